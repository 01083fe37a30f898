package analyzer

import (
	"regexp"
	"strings"

	"github.com/papercomputeco/engram/pkg/memory"
)

var (
	filePathRe = regexp.MustCompile(`(?:^|\s)(?:~?/[\w.-]+(?:/[\w.-]+)+|[\w-]+(?:/[\w.-]+)+\.\w{1,6})`)

	// Frame lines like "at foo (bar.js:10:5)", "file.go:42", or Python's
	// header mark stack traces.
	traceFrameRe  = regexp.MustCompile(`(?m)^\s*at\s+\S+|[\w./-]+\.\w+:\d+`)
	pyTracebackRe = regexp.MustCompile(`Traceback \(most recent call last\)`)
	goPanicRe     = regexp.MustCompile(`panic:|goroutine \d+ \[`)

	urlRe = regexp.MustCompile(`https?://\S+`)
)

// Meta detects references to the mechanics of the work: error aftermath,
// file paths, stack traces, and URLs. Paths and URLs are weighted low on
// purpose.
func Meta(text string, ctx FlowContext) []memory.Signal {
	var signals []memory.Signal

	if ctx.FollowsToolError {
		signals = append(signals, memory.Signal{
			Kind:   memory.SignalFollowsErr,
			Weight: 0.8,
			Source: "meta:follows-error",
		})
	}

	if isStackTrace(text) {
		signals = append(signals, memory.Signal{
			Kind:   memory.SignalStackTrace,
			Weight: 0.7,
			Source: "meta:stacktrace",
		})
	} else if filePathRe.MatchString(text) {
		signals = append(signals, memory.Signal{
			Kind:   memory.SignalFilePath,
			Weight: 0.25,
			Source: "meta:filepath",
		})
	}

	if urlRe.MatchString(text) {
		signals = append(signals, memory.Signal{
			Kind:   memory.SignalURL,
			Weight: 0.2,
			Source: "meta:url",
		})
	}

	return signals
}

// isStackTrace wants either an explicit traceback/panic header or at least
// two frame-shaped lines; a single file:line mention is just a path.
func isStackTrace(text string) bool {
	if pyTracebackRe.MatchString(text) || goPanicRe.MatchString(text) {
		return true
	}

	frames := traceFrameRe.FindAllString(text, 3)
	if len(frames) < 2 {
		return false
	}

	// Frames on separate lines, not one line mentioning two files.
	return strings.Count(text, "\n") >= 1
}
