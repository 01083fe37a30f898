package analyzer

import (
	"regexp"
	"strings"

	"github.com/papercomputeco/engram/pkg/memory"
)

var (
	listItemRe   = regexp.MustCompile(`(?m)^\s*(?:[-*•]|\d+[.)])\s+\S`)
	definitionRe = regexp.MustCompile(`(?m)^[A-Za-z][\w /-]{1,40}:\s+\S`)
)

var contrastMarkers = []string{
	"->",
	"=>",
	"→",
	" vs ",
	" vs. ",
	"instead of",
	"rather than",
	"as opposed to",
	"on the other hand",
	"not ... but",
}

// Discourse detects structural markers in the prose itself: arrows and
// contrast phrasing, enumerated lists, and "Term: definition" lines.
// Definitions are weighted low; a glossary line is rarely memorable alone.
func Discourse(text string) []memory.Signal {
	var signals []memory.Signal
	lower := strings.ToLower(text)

	for _, marker := range contrastMarkers {
		if strings.Contains(lower, marker) {
			signals = append(signals, memory.Signal{
				Kind:   memory.SignalContrast,
				Weight: 0.5,
				Source: "discourse:contrast",
			})
			break
		}
	}

	if items := len(listItemRe.FindAllString(text, -1)); items >= 2 {
		w := 0.5 + 0.05*float64(items-2)
		if w > 0.8 {
			w = 0.8
		}
		signals = append(signals, memory.Signal{
			Kind:   memory.SignalList,
			Weight: w,
			Source: "discourse:list",
		})
	}

	if definitionRe.MatchString(text) && !strings.Contains(text, "://") {
		signals = append(signals, memory.Signal{
			Kind:   memory.SignalDefinition,
			Weight: 0.3,
			Source: "discourse:definition",
		})
	}

	return signals
}
