package analyzer

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/papercomputeco/engram/pkg/memory"
)

const (
	capsMinLetters = 10
	capsMinRatio   = 0.3

	quoteWeight = 0.5
	codeWeight  = 0.25
)

var (
	boldRe   = regexp.MustCompile(`\*\*[^*\n]+\*\*|__[^_\n]+__`)
	italicRe = regexp.MustCompile(`(^|\s)\*[^*\n]+\*([\s.,!?]|$)|(^|\s)_[^_\n]+_([\s.,!?]|$)`)
	quoteRe  = regexp.MustCompile(`"[^"\n]{2,}"|'[^'\n]{3,}'|“[^”\n]{2,}”`)
	fenceRe  = regexp.MustCompile("```[\\s\\S]*?```|`[^`\n]+`")
)

// Typography detects visual emphasis: shouting caps, exclamation runs,
// markdown strong/emphasis, quoted spans, and code spans. Code is weighted
// low on purpose; code alone is not memorable.
func Typography(text string) []memory.Signal {
	var signals []memory.Signal

	if w, ok := capsWeight(text); ok {
		signals = append(signals, memory.Signal{
			Kind:   memory.SignalCaps,
			Weight: w,
			Source: "typography:caps",
		})
	}

	if w, ok := exclamationWeight(text); ok {
		signals = append(signals, memory.Signal{
			Kind:   memory.SignalExclamation,
			Weight: w,
			Source: "typography:exclamation",
		})
	}

	if boldRe.MatchString(text) {
		signals = append(signals, memory.Signal{
			Kind:   memory.SignalMarkdown,
			Weight: 0.6,
			Source: "typography:bold",
		})
	} else if italicRe.MatchString(text) {
		signals = append(signals, memory.Signal{
			Kind:   memory.SignalMarkdown,
			Weight: 0.4,
			Source: "typography:italic",
		})
	}

	if quoteRe.MatchString(text) {
		signals = append(signals, memory.Signal{
			Kind:   memory.SignalQuote,
			Weight: quoteWeight,
			Source: "typography:quote",
		})
	}

	if fenceRe.MatchString(text) {
		signals = append(signals, memory.Signal{
			Kind:   memory.SignalCode,
			Weight: codeWeight,
			Source: "typography:code",
		})
	}

	return signals
}

// capsWeight scales from 0.4 at a 30% uppercase ratio to 0.7 at full caps.
// Texts with ten or fewer letters are ignored; acronyms shout enough
// already.
func capsWeight(text string) (float64, bool) {
	var letters, upper int
	for _, r := range text {
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsUpper(r) {
				upper++
			}
		}
	}

	if letters <= capsMinLetters {
		return 0, false
	}

	ratio := float64(upper) / float64(letters)
	if ratio <= capsMinRatio {
		return 0, false
	}

	scaled := 0.4 + (ratio-capsMinRatio)/(1-capsMinRatio)*0.3
	return scaled, true
}

// exclamationWeight needs at least two marks to fire and saturates at 0.6.
func exclamationWeight(text string) (float64, bool) {
	count := strings.Count(text, "!") + strings.Count(text, "！")
	if count < 2 {
		return 0, false
	}

	w := 0.35 + 0.05*float64(count)
	if w > 0.6 {
		w = 0.6
	}
	return w, true
}
