// Package lexicon is the pattern dictionary: fixed, weighted keyword and
// phrase categories across several languages, used to detect importance
// signals in conversational text.
//
// All tables are immutable package data built at init. Every function here
// is a pure lookup with no state and no side effects.
package lexicon

import (
	"strings"

	"github.com/papercomputeco/engram/pkg/memory"
)

// Category is one weighted phrase group in the dictionary.
type Category struct {
	Kind    memory.SignalKind
	Weight  float64
	Phrases []string
}

// Match scans text for the category with the given kind and returns a signal
// for the first phrase that occurs. Matching is case-insensitive.
func Match(text string, kind memory.SignalKind) (memory.Signal, bool) {
	cat, ok := byKind[kind]
	if !ok {
		return memory.Signal{}, false
	}
	return matchCategory(strings.ToLower(text), cat)
}

// MatchAll runs every category against the text and returns one signal per
// category that matched, in dictionary order (strongest categories first).
func MatchAll(text string) []memory.Signal {
	lower := strings.ToLower(text)

	var hits []memory.Signal
	for _, cat := range categories {
		if sig, ok := matchCategory(lower, cat); ok {
			hits = append(hits, sig)
		}
	}
	return hits
}

// Classify derives a classification from pattern matches alone, checking the
// classifying categories in fixed priority order: bugfix, learning,
// constraint, decision, preference, procedural. Emphasis, correction, and
// explicit-remember hits strengthen candidates but never classify by
// themselves.
func Classify(text string) (memory.Classification, bool) {
	lower := strings.ToLower(text)

	for _, cc := range classifiers {
		if _, ok := matchCategory(lower, byKind[cc.kind]); ok {
			return cc.class, true
		}
	}
	return "", false
}

// HasErrorIndicator reports whether the text contains an error-shaped
// phrase. Used by the tool-event scan, which requires an error and a
// resolution to co-occur before emitting a bugfix candidate.
func HasErrorIndicator(text string) bool {
	return containsAny(strings.ToLower(text), errorIndicators)
}

// HasResolutionIndicator reports whether the text contains a fix-shaped
// phrase.
func HasResolutionIndicator(text string) bool {
	return containsAny(strings.ToLower(text), resolutionIndicators)
}

// Stopword reports whether the lowercased word is too common to act as a
// concept word in cross-event repetition detection.
func Stopword(word string) bool {
	_, ok := stopwords[word]
	return ok
}

func matchCategory(lower string, cat Category) (memory.Signal, bool) {
	for _, phrase := range cat.Phrases {
		if strings.Contains(lower, phrase) {
			return memory.Signal{
				Kind:   cat.Kind,
				Weight: cat.Weight,
				Source: "pattern:" + phrase,
			}, true
		}
	}
	return memory.Signal{}, false
}

func containsAny(lower string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}
