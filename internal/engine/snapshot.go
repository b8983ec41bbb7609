package engine

import "slices"

// Snapshot is a deep copy of a session's observable state. It is safe to
// hand to other goroutines.
type Snapshot struct {
	SessionID     string        `json:"session_id"`
	Manager       string        `json:"manager"`
	Status        Status        `json:"status"`
	Roster        []Participant `json:"roster"`
	PickIndex     int           `json:"pick_index"`
	Round         int           `json:"round"`
	Direction     Direction     `json:"direction,omitempty"`
	DoublePick    bool          `json:"double_pick"`
	CurrentPicker string        `json:"current_picker,omitempty"`
	Items         []Item        `json:"items"`
	CanUndo       bool          `json:"can_undo"`
	Final         bool          `json:"final"`
}

// Holding is one participant's share of the loot.
type Holding struct {
	Participant Participant
	Items       []HeldItem
}

type HeldItem struct {
	ItemID   int
	Name     string
	Quantity int
}

func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{
		SessionID: s.ID,
		Manager:   s.Manager,
		Status:    s.Status,
		Roster:    slices.Clone(s.Roster),
		PickIndex: s.PickIndex,
		Items:     make([]Item, len(s.Items)),
		CanUndo:   s.CanUndo(),
		Final:     s.Status.Terminal(),
	}
	for i, item := range s.Items {
		snap.Items[i] = *item
		snap.Items[i].Assignments = append([]Assignment{}, item.Assignments...)
	}
	if picker, turn, ok := s.CurrentPicker(); ok {
		snap.CurrentPicker = picker
		snap.Round = turn.Round
		snap.Direction = turn.Direction
		snap.DoublePick = turn.DoublePick
	}
	return snap
}

// Unclaimed lists items that still have copies left.
func (s Snapshot) Unclaimed() []Item {
	var out []Item
	for _, item := range s.Items {
		if item.Remaining > 0 {
			out = append(out, item)
		}
	}
	return out
}

// Distribution groups assigned items by participant in rank order. Every
// participant appears, including those who received nothing.
func (s Snapshot) Distribution() []Holding {
	holdings := make([]Holding, len(s.Roster))
	index := make(map[string]int, len(s.Roster))
	for i, p := range s.Roster {
		holdings[i].Participant = p
		index[p.ID] = i
	}
	for _, item := range s.Items {
		for _, a := range item.Assignments {
			i, ok := index[a.ParticipantID]
			if !ok {
				continue
			}
			holdings[i].Items = append(holdings[i].Items, HeldItem{ItemID: item.ID, Name: item.Name, Quantity: a.Quantity})
		}
	}
	return holdings
}

// Participant looks up a roster entry by id.
func (s Snapshot) Participant(id string) (Participant, bool) {
	for _, p := range s.Roster {
		if p.ID == id {
			return p, true
		}
	}
	return Participant{}, false
}
