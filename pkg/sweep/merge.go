package sweep

import (
	"sort"
	"unicode/utf8"

	"github.com/papercomputeco/engram/pkg/memory"
)

// mergeCandidates collapses candidates whose summaries share most of
// their words. The earlier candidate survives and absorbs the later
// one's provenance; confidence and importance take the max of the pair.
func (x *Extractor) mergeCandidates(candidates []memory.Candidate) []memory.Candidate {
	var merged []memory.Candidate
	for _, cand := range candidates {
		target := -1
		for i, kept := range merged {
			if memory.Jaccard(kept.Summary, cand.Summary) > x.cfg.MergeOverlap {
				target = i
				break
			}
		}

		if target < 0 {
			merged = append(merged, cand)
			continue
		}
		merged[target] = absorb(merged[target], cand)
	}
	return merged
}

func absorb(into, from memory.Candidate) memory.Candidate {
	into.SourceEventIDs = unionStrings(into.SourceEventIDs, from.SourceEventIDs)
	into.Signals = dedupSignals(append(into.Signals, from.Signals...))
	into.Tags = unionStrings(into.Tags, from.Tags)

	if from.Confidence > into.Confidence {
		into.Confidence = from.Confidence
	}
	if from.PreliminaryImportance > into.PreliminaryImportance {
		into.PreliminaryImportance = from.PreliminaryImportance
	}
	return into
}

// dedupSignals keeps one signal per kind and source, at the highest
// weight seen.
func dedupSignals(signals []memory.Signal) []memory.Signal {
	type key struct {
		kind   memory.SignalKind
		source string
	}

	seen := make(map[key]int, len(signals))
	var out []memory.Signal
	for _, s := range signals {
		k := key{s.Kind, s.Source}
		if i, ok := seen[k]; ok {
			if s.Weight > out[i].Weight {
				out[i].Weight = s.Weight
			}
			continue
		}
		seen[k] = len(out)
		out = append(out, s)
	}
	return out
}

func unionStrings(a, b []string) []string {
	set := make(map[string]struct{}, len(a)+len(b))
	for _, s := range a {
		set[s] = struct{}{}
	}
	for _, s := range b {
		set[s] = struct{}{}
	}

	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// filterFragments drops candidates whose summary is too short to mean
// anything once leading markup is stripped.
func (x *Extractor) filterFragments(candidates []memory.Candidate) []memory.Candidate {
	kept := candidates[:0]
	for _, c := range candidates {
		if utf8.RuneCountInString(stripLeadingSymbols(c.Summary)) < x.cfg.MinSummaryLen {
			continue
		}
		kept = append(kept, c)
	}
	return kept
}
