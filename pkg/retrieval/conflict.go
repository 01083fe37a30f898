package retrieval

import (
	"github.com/papercomputeco/engram/pkg/memory"
)

// ConflictOverlap is the minimum summary Jaccard for two units to count as
// being about the same topic.
const ConflictOverlap = 0.25

// Suppressed records a unit dropped by the conflict filter and the unit it
// lost to.
type Suppressed struct {
	Unit          *memory.Unit `json:"unit"`
	ConflictsWith string       `json:"conflicts_with"`
	Reason        string       `json:"reason"`
}

// polarityGroups are antonym word groups. Two units that sit on opposite
// sides of the same group, with enough topic overlap, contradict each other.
var polarityGroups = [][2][]string{
	{{"never", "avoid", "dislike"}, {"always", "use", "prefer"}},
	{{"deprecated", "old"}, {"current", "latest"}},
	{{"disable"}, {"enable"}},
	{{"reject", "block"}, {"accept", "allow"}},
}

// FilterConflicts drops the weaker member of each contradicting pair.
// Strength ties keep the newer unit. The suppressed set names the winning
// unit for diagnostic display.
func FilterConflicts(units []*memory.Unit) ([]*memory.Unit, []Suppressed) {
	wordSets := make([]map[string]struct{}, len(units))
	for i, u := range units {
		wordSets[i] = memory.WordSet(u.Summary)
	}

	// loser index -> winner index
	winnerOf := make(map[int]int)

	for i := 0; i < len(units); i++ {
		if _, gone := winnerOf[i]; gone {
			continue
		}
		for j := i + 1; j < len(units); j++ {
			if _, gone := winnerOf[j]; gone {
				continue
			}
			if !conflicting(wordSets[i], wordSets[j]) {
				continue
			}

			win, lose := i, j
			if loses(units[i], units[j]) {
				win, lose = j, i
			}
			winnerOf[lose] = win
			if lose == i {
				break
			}
		}
	}

	clean := make([]*memory.Unit, 0, len(units))
	var suppressed []Suppressed
	for i, u := range units {
		win, gone := winnerOf[i]
		if !gone {
			clean = append(clean, u)
			continue
		}

		reason := "contradicts a stronger memory"
		if units[win].Strength == u.Strength {
			reason = "contradicts a newer memory of equal strength"
		}
		suppressed = append(suppressed, Suppressed{
			Unit:          u,
			ConflictsWith: units[win].ID,
			Reason:        reason,
		})
	}
	return clean, suppressed
}

// conflicting reports topic overlap plus opposing polarity.
func conflicting(a, b map[string]struct{}) bool {
	if memory.JaccardSets(a, b) < ConflictOverlap {
		return false
	}
	return opposingPolarity(a, b)
}

func opposingPolarity(a, b map[string]struct{}) bool {
	for _, group := range polarityGroups {
		aLeft, aRight := polaritySides(a, group)
		bLeft, bRight := polaritySides(b, group)
		if (aLeft && bRight) || (aRight && bLeft) {
			return true
		}
	}
	return false
}

func polaritySides(words map[string]struct{}, group [2][]string) (left, right bool) {
	for _, w := range group[0] {
		if _, ok := words[w]; ok {
			left = true
			break
		}
	}
	for _, w := range group[1] {
		if _, ok := words[w]; ok {
			right = true
			break
		}
	}
	return left, right
}

// loses reports whether a is suppressed in favor of b.
func loses(a, b *memory.Unit) bool {
	if a.Strength != b.Strength {
		return a.Strength < b.Strength
	}
	return a.CreatedAt.Before(b.CreatedAt)
}
