package sweep

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// lineNumberRe matches the gutter of pasted grep or cat -n output.
var lineNumberRe = regexp.MustCompile(`^\s*\d{1,6}[:\t|]`)

// pathLineRe matches a line that is nothing but a filesystem path,
// optionally with a trailing line:column suffix.
var pathLineRe = regexp.MustCompile(`^[\w~.@+/-]+/[\w~.@+/-]+(?::\d+(?::\d+)?)?$`)

// AcceptQuality reports whether text is coherent enough to become a
// memory summary. It rejects clipped content, pasted dumps, and text
// that is mostly code or noise. The gate sees one chunk at a time;
// callers run it before any signal matching.
func AcceptQuality(text string) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return false
	}

	if truncated(trimmed) {
		return false
	}

	total, fenced := fenceSplit(trimmed)
	if total > 0 && float64(fenced)/float64(total) > 0.6 {
		return false
	}

	lines := nonEmptyLines(trimmed)
	if ratioMatching(lines, lineNumberRe) > 0.5 {
		return false
	}
	if ratioMatching(lines, pathLineRe) > 0.7 {
		return false
	}

	return !noisy(trimmed)
}

func truncated(text string) bool {
	lower := strings.ToLower(text)
	if strings.Contains(lower, "[truncated]") || strings.Contains(lower, "(truncated)") {
		return true
	}

	// A trailing ellipsis marks clipped content no matter how strong
	// the rest of the chunk reads.
	return strings.HasSuffix(text, "...") || strings.HasSuffix(text, "…")
}

// fenceSplit returns the total character count and the count of
// characters inside ``` fences, fence markers included.
func fenceSplit(text string) (total, fenced int) {
	inFence := false
	for _, line := range strings.Split(text, "\n") {
		n := utf8.RuneCountInString(line) + 1
		total += n

		marker := strings.HasPrefix(strings.TrimSpace(line), "```")
		if inFence || marker {
			fenced += n
		}
		if marker {
			inFence = !inFence
		}
	}
	return total, fenced
}

func nonEmptyLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return lines
}

func ratioMatching(lines []string, re *regexp.Regexp) float64 {
	if len(lines) == 0 {
		return 0
	}

	var hits int
	for _, line := range lines {
		if re.MatchString(line) {
			hits++
		}
	}
	return float64(hits) / float64(len(lines))
}

// noisy reports whether symbol characters outnumber 30% of the letters
// and digits, measured outside code fences. Box drawing, escape
// sequences, and diff gutters all trip this.
func noisy(text string) bool {
	inFence := false
	var alnum, special int

	for _, line := range strings.Split(text, "\n") {
		marker := strings.HasPrefix(strings.TrimSpace(line), "```")
		if marker {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}

		for _, r := range line {
			switch {
			case unicode.IsLetter(r) || unicode.IsDigit(r):
				alnum++
			case unicode.IsSpace(r):
			case strings.ContainsRune(`.,;:!?'"()[]{}-_/`, r):
			default:
				special++
			}
		}
	}

	if alnum == 0 {
		return special > 0
	}
	return float64(special) > 0.3*float64(alnum)
}
