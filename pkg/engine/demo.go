package engine

import (
	"time"

	"github.com/papercomputeco/engram/pkg/memory"
)

// DemoBatch is one canned session worth of events for seeding a fresh
// store through the real pipeline.
type DemoBatch struct {
	Project string
	Events  []memory.Event
}

// DemoBatches returns canned sessions that exercise every classification
// the sweep can produce. Used by the seed command; nothing here bypasses
// the extraction or admission paths.
func DemoBatches() []DemoBatch {
	base := time.Now().UTC().Add(-48 * time.Hour)

	backend := memory.NewSession("/home/demo/projects/backend")
	backendEvents := []memory.Event{
		demoEvent(backend.ID, memory.HookUserPrompt, base,
			"I prefer tabs over spaces for indentation in this project."),
		demoEvent(backend.ID, memory.HookUserPrompt, base.Add(5*time.Minute),
			"Never commit directly to main, always open a pull request first."),
		demoEvent(backend.ID, memory.HookUserPrompt, base.Add(12*time.Minute),
			"We decided to go with Postgres for the primary store instead of keeping everything in SQLite."),
		demoEvent(backend.ID, memory.HookUserPrompt, base.Add(20*time.Minute),
			"Remember this: the staging database gets wiped every Sunday night, so never rely on data there."),
	}

	debugging := memory.NewSession("/home/demo/projects/backend")
	debugTool := demoEvent(debugging.ID, memory.HookPostToolUse, base.Add(3*time.Hour), "")
	debugTool.ToolName = "Bash"
	debugTool.ToolOutput = "Error: connection refused on port 5432\n" +
		"Fixed by starting the postgres container before running the migration suite."
	debuggingEvents := []memory.Event{
		debugTool,
		demoEvent(debugging.ID, memory.HookUserPrompt, base.Add(3*time.Hour+10*time.Minute),
			"Turns out the migration runner reads DATABASE_URL before the env file is loaded, that was the whole problem."),
		demoEvent(debugging.ID, memory.HookUserPrompt, base.Add(3*time.Hour+18*time.Minute),
			"The workflow for a release is: bump the version, tag the commit, then push the tag to trigger the pipeline. In that order every time."),
	}

	frontend := memory.NewSession("/home/demo/projects/frontend")
	frontendEvents := []memory.Event{
		demoEvent(frontend.ID, memory.HookUserPrompt, base.Add(24*time.Hour),
			"I learned that the flaky snapshot tests were caused by unseeded random ids in the fixtures."),
		demoEvent(frontend.ID, memory.HookUserPrompt, base.Add(24*time.Hour+8*time.Minute),
			"Always use the shared Button component, don't ever hand-roll button markup in pages."),
	}

	return []DemoBatch{
		{Project: backend.Project, Events: backendEvents},
		{Project: debugging.Project, Events: debuggingEvents},
		{Project: frontend.Project, Events: frontendEvents},
	}
}

func demoEvent(sessionID string, hook memory.HookType, at time.Time, content string) memory.Event {
	e := memory.NewEvent(sessionID, hook, content)
	e.Timestamp = at
	return e
}
