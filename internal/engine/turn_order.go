package engine

type Direction string

const (
	DirectionForward Direction = "forward"
	DirectionReverse Direction = "reverse"
)

// Turn describes who holds a pick and where that pick sits in the snake.
type Turn struct {
	Pick       int
	Round      int
	Direction  Direction
	Rank       int
	DoublePick bool // the boundary picker going again as the direction flips
}

// TurnAt maps a pick index onto the snake for a roster of size n:
// round r covers picks [r*n, (r+1)*n), even rounds run rank 0..n-1 and odd
// rounds run n-1..0. The first pick of every round after the first lands on
// the previous round's last picker, which is the double pick.
// An empty roster (n <= 0) has no turns and yields only the pick index.
func TurnAt(pick, n int) Turn {
	if n <= 0 {
		return Turn{Pick: pick}
	}
	round := pick / n
	pos := pick % n

	t := Turn{Pick: pick, Round: round, Direction: DirectionForward, Rank: pos}
	if round%2 == 1 {
		t.Direction = DirectionReverse
		t.Rank = n - 1 - pos
	}
	t.DoublePick = round > 0 && pos == 0
	return t
}

func AdvancePast(pick int) int { return pick + 1 }

func Rewind(pick int) int { return pick - 1 }

// PickOrder is the ranked roster frozen at draft start. Picks are resolved
// on demand, so there is no upper bound on rounds.
type PickOrder struct {
	ids []string
}

func BuildPickOrder(ranked []Participant) (PickOrder, error) {
	if len(ranked) == 0 {
		return PickOrder{}, &InvalidRosterError{}
	}
	ids := make([]string, len(ranked))
	for i, p := range ranked {
		ids[i] = p.ID
	}
	return PickOrder{ids: ids}, nil
}

func (o PickOrder) Len() int { return len(o.ids) }

func (o PickOrder) IDs() []string {
	return append([]string(nil), o.ids...)
}

// At returns the participant holding the given pick.
func (o PickOrder) At(pick int) (string, Turn) {
	t := TurnAt(pick, len(o.ids))
	return o.ids[t.Rank], t
}
