package retrieval

import "github.com/papercomputeco/engram/pkg/memory"

// Injection budget shape. Short-term units are capped so volatile recents
// cannot crowd out settled knowledge; long-term units fill the remainder.
const (
	MaxSTM   = 3
	MaxTotal = 7
)

// Budget selects which ranked units to inject, preserving rank order in the
// result. Up to MaxSTM short-term units are taken first by rank, then
// long-term units fill the list to MaxTotal.
func Budget(ranked []Scored) []Scored {
	take := make([]bool, len(ranked))
	var total int

	var stm int
	for i, s := range ranked {
		if s.Unit.Store != memory.StoreSTM {
			continue
		}
		if stm == MaxSTM {
			break
		}
		take[i] = true
		stm++
		total++
	}

	for i, s := range ranked {
		if total == MaxTotal {
			break
		}
		if take[i] || s.Unit.Store == memory.StoreSTM {
			continue
		}
		take[i] = true
		total++
	}

	selected := make([]Scored, 0, total)
	for i, s := range ranked {
		if take[i] {
			selected = append(selected, s)
		}
	}
	return selected
}
