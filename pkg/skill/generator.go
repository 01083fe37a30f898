package skill

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/papercomputeco/engram/pkg/memory"
	"github.com/papercomputeco/engram/pkg/storage"
)

// GenerateOptions controls filtering for skill generation.
type GenerateOptions struct {
	// Project keeps user-level memories plus memories scoped to this
	// project. Empty means user-level only.
	Project string

	// Since only includes memories created on or after this time.
	Since *time.Time

	// MinUnits is the minimum group size worth a skill file. Default 2.
	MinUnits int

	// MaxUnits caps how many memories land in one skill. Default 20.
	MaxUnits int
}

// skillProfile maps a memory classification onto a skill identity.
type skillProfile struct {
	name        string
	skillType   string
	description string
}

var profiles = map[memory.Classification]skillProfile{
	memory.ClassPreference: {
		name:        "coding-preferences",
		skillType:   "prompt-template",
		description: "Stated user preferences to honor in every coding session",
	},
	memory.ClassConstraint: {
		name:        "working-constraints",
		skillType:   "prompt-template",
		description: "Hard rules and prohibitions the user has laid down",
	},
	memory.ClassDecision: {
		name:        "architecture-decisions",
		skillType:   "domain-knowledge",
		description: "Design and architecture decisions made in past sessions",
	},
	memory.ClassBugfix: {
		name:        "bugfix-notes",
		skillType:   "domain-knowledge",
		description: "Root causes and fixes for bugs already diagnosed once",
	},
	memory.ClassLearning: {
		name:        "hard-won-learnings",
		skillType:   "domain-knowledge",
		description: "Lessons learned about the codebase and its tooling",
	},
	memory.ClassProcedural: {
		name:        "working-procedures",
		skillType:   "workflow",
		description: "Step-by-step procedures that have worked before",
	},
	memory.ClassSemantic: {
		name:        "project-knowledge",
		skillType:   "domain-knowledge",
		description: "Facts about the project's structure and behavior",
	},
	// Episodic memories are session chatter, never skill-worthy.
}

// Generate distills consolidated long-term memories into Skill documents,
// one per classification with enough material. Strongest memories lead.
func Generate(ctx context.Context, storer storage.Driver, opts GenerateOptions) ([]*Skill, error) {
	if opts.MinUnits <= 0 {
		opts.MinUnits = 2
	}
	if opts.MaxUnits <= 0 {
		opts.MaxUnits = 20
	}

	units, err := storer.ListUnits(ctx, storage.UnitQuery{
		Project: opts.Project,
		Store:   memory.StoreLTM,
		Status:  memory.StatusActive,
	})
	if err != nil {
		return nil, fmt.Errorf("listing long-term memories: %w", err)
	}

	groups := make(map[memory.Classification][]memory.Unit)
	for _, u := range units {
		if _, ok := profiles[u.Classification]; !ok {
			continue
		}
		if opts.Since != nil && u.CreatedAt.Before(*opts.Since) {
			continue
		}
		groups[u.Classification] = append(groups[u.Classification], u)
	}

	var skills []*Skill
	for class, members := range groups {
		if len(members) < opts.MinUnits {
			continue
		}

		sort.SliceStable(members, func(i, j int) bool {
			return members[i].Strength > members[j].Strength
		})
		if len(members) > opts.MaxUnits {
			members = members[:opts.MaxUnits]
		}

		skills = append(skills, buildSkill(profiles[class], members))
	}

	// Deterministic output order regardless of map iteration.
	sort.Slice(skills, func(i, j int) bool {
		return skills[i].Name < skills[j].Name
	})

	return skills, nil
}

func buildSkill(profile skillProfile, members []memory.Unit) *Skill {
	var body strings.Builder
	body.WriteString("# " + titleFromName(profile.name) + "\n\n")
	body.WriteString(profile.description + ".\n\n")
	for _, u := range members {
		body.WriteString("- " + strings.TrimSpace(u.Summary) + "\n")
	}

	return &Skill{
		Name:        profile.name,
		Description: profile.description,
		Version:     "0.1.0",
		Type:        profile.skillType,
		Tags:        collectTags(members),
		Sessions:    collectSessions(members),
		Content:     body.String(),
		CreatedAt:   time.Now().UTC(),
	}
}

func titleFromName(name string) string {
	words := strings.Split(name, "-")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

func collectTags(members []memory.Unit) []string {
	seen := make(map[string]bool)
	var tags []string
	for _, u := range members {
		for _, t := range u.Tags {
			if !seen[t] {
				seen[t] = true
				tags = append(tags, t)
			}
		}
	}
	sort.Strings(tags)
	const maxTags = 8
	if len(tags) > maxTags {
		tags = tags[:maxTags]
	}
	return tags
}

func collectSessions(members []memory.Unit) []string {
	seen := make(map[string]bool)
	var sessions []string
	for _, u := range members {
		if u.SessionID != "" && !seen[u.SessionID] {
			seen[u.SessionID] = true
			sessions = append(sessions, u.SessionID)
		}
	}
	return sessions
}
