package backfill

import "fmt"

// Result contains statistics from a backfill run.
type Result struct {
	TranscriptFiles   int
	TranscriptEntries int
	Sessions          int
	Events            int
	Candidates        int
	UnitsCreated      int
}

// Summary returns a human-readable summary of the backfill result.
func (r *Result) Summary() string {
	return fmt.Sprintf(
		"Backfill complete: %d units created from %d candidates\n"+
			"Scanned %d transcript files (%d entries, %d usable events, %d sessions)",
		r.UnitsCreated, r.Candidates,
		r.TranscriptFiles, r.TranscriptEntries, r.Events, r.Sessions,
	)
}
