package engine

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scripted returns the given die faces in order.
type scripted struct {
	faces []int
	next  int
}

func (s *scripted) IntN(n int) int {
	if s.next >= len(s.faces) {
		panic("scripted source exhausted")
	}
	v := s.faces[s.next]
	s.next++
	return v - 1
}

func roster(ids ...string) []Member {
	out := make([]Member, len(ids))
	for i, id := range ids {
		out[i] = Member{ID: id, Name: "name-" + id}
	}
	return out
}

func rankedIDs(ps []Participant) []string {
	ids := make([]string, len(ps))
	for i, p := range ps {
		ids[i] = p.ID
	}
	return ids
}

func TestRoll_SortsDescendingAndBreaksTies(t *testing.T) {
	src := &scripted{faces: []int{80, 80, 10, 5, 90}}

	ranked, err := Roll(roster("A", "B", "C"), src, DefaultLimits())
	require.NoError(t, err)

	assert.Equal(t, []string{"B", "A", "C"}, rankedIDs(ranked))
	assert.Equal(t, 90, ranked[0].TieBreak)
	assert.Equal(t, 5, ranked[1].TieBreak)
	assert.Zero(t, ranked[2].TieBreak, "untied participant should not draw a tie-break")
	for i, p := range ranked {
		assert.Equal(t, i, p.Rank)
	}
}

func TestRoll_RepeatedTieBreakKeepsRosterOrder(t *testing.T) {
	src := &scripted{faces: []int{50, 50, 50, 7, 7, 9}}

	ranked, err := Roll(roster("A", "B", "C"), src, DefaultLimits())
	require.NoError(t, err)

	assert.Equal(t, []string{"C", "A", "B"}, rankedIDs(ranked))
}

func TestRoll_SeededSourceIsReproducible(t *testing.T) {
	members := roster("a", "b", "c", "d", "e", "f", "g", "h")

	first, err := Roll(members, rand.New(rand.NewPCG(7, 11)), DefaultLimits())
	require.NoError(t, err)
	second, err := Roll(members, rand.New(rand.NewPCG(7, 11)), DefaultLimits())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	for i := 1; i < len(first); i++ {
		prev, cur := first[i-1], first[i]
		require.GreaterOrEqual(t, prev.Roll, cur.Roll)
		if prev.Roll == cur.Roll {
			require.GreaterOrEqual(t, prev.TieBreak, cur.TieBreak)
		}
	}
}

func TestRoll_StaysWithinMaxRoll(t *testing.T) {
	src := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 200; i++ {
		ranked, err := Roll(roster("a", "b", "c", "d"), src, Limits{MaxParticipants: 20, MaxRoll: 6})
		require.NoError(t, err)
		for _, p := range ranked {
			require.GreaterOrEqual(t, p.Roll, 1)
			require.LessOrEqual(t, p.Roll, 6)
		}
	}
}

func TestRoll_RejectsBadRoster(t *testing.T) {
	big := make([]string, 21)
	for i := range big {
		big[i] = string(rune('a' + i))
	}

	cases := []struct {
		name   string
		roster []Member
	}{
		{name: "empty", roster: nil},
		{name: "over capacity", roster: roster(big...)},
		{name: "duplicate id", roster: roster("a", "a")},
		{name: "blank id", roster: []Member{{ID: "", Name: "ghost"}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Roll(tc.roster, rand.New(rand.NewPCG(1, 1)), DefaultLimits())
			if !errors.Is(err, ErrInvalidRoster) {
				t.Fatalf("want ErrInvalidRoster, got %v", err)
			}
			var rosterErr *InvalidRosterError
			require.ErrorAs(t, err, &rosterErr)
		})
	}
}
