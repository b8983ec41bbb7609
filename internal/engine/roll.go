package engine

import (
	"cmp"
	"slices"
)

const (
	DefaultMaxParticipants = 20
	DefaultMaxRoll         = 100
)

// Source is the random source the roll engine draws from. *rand.Rand from
// math/rand/v2 satisfies it.
type Source interface {
	IntN(n int) int
}

// Member is one roster entry as supplied by the caller.
type Member struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Participant struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Roll     int    `json:"roll"`
	TieBreak int    `json:"tie_break,omitempty"` // zero unless the primary roll was shared
	Rank     int    `json:"rank"`
}

type Limits struct {
	MaxParticipants int
	MaxRoll         int
}

func DefaultLimits() Limits {
	return Limits{MaxParticipants: DefaultMaxParticipants, MaxRoll: DefaultMaxRoll}
}

// Roll ranks the roster by a primary roll in [1, MaxRoll], highest first.
// Participants sharing a primary roll draw a tie-break roll and are re-sorted
// within their group by it. A repeated tie-break keeps roster order.
//
// Rolls are drawn in roster order, then tie-breaks group by group, so a
// scripted Source reproduces the result exactly.
func Roll(roster []Member, src Source, limits Limits) ([]Participant, error) {
	if err := validateRoster(roster, limits); err != nil {
		return nil, err
	}

	ranked := make([]Participant, len(roster))
	for i, m := range roster {
		ranked[i] = Participant{ID: m.ID, Name: m.Name, Roll: rollDie(src, limits.MaxRoll)}
	}

	slices.SortStableFunc(ranked, func(a, b Participant) int {
		return cmp.Compare(b.Roll, a.Roll)
	})

	for start := 0; start < len(ranked); {
		end := start + 1
		for end < len(ranked) && ranked[end].Roll == ranked[start].Roll {
			end++
		}
		if end-start > 1 {
			group := ranked[start:end]
			for i := range group {
				group[i].TieBreak = rollDie(src, limits.MaxRoll)
			}
			slices.SortStableFunc(group, func(a, b Participant) int {
				return cmp.Compare(b.TieBreak, a.TieBreak)
			})
		}
		start = end
	}

	for i := range ranked {
		ranked[i].Rank = i
	}
	return ranked, nil
}

func validateRoster(roster []Member, limits Limits) error {
	if len(roster) == 0 || len(roster) > limits.MaxParticipants {
		return &InvalidRosterError{Size: len(roster), Max: limits.MaxParticipants}
	}
	seen := make(map[string]bool, len(roster))
	for _, m := range roster {
		if m.ID == "" {
			return &InvalidRosterError{Size: len(roster), Max: limits.MaxParticipants, Reason: "participant with empty id"}
		}
		if seen[m.ID] {
			return &InvalidRosterError{Size: len(roster), Max: limits.MaxParticipants, Reason: "duplicate participant " + m.ID}
		}
		seen[m.ID] = true
	}
	return nil
}

func rollDie(src Source, sides int) int {
	return src.IntN(sides) + 1
}
