package engine

import (
	"slices"
	"time"
)

type Status string

const (
	StatusSetup     Status = "setup"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusTimedOut  Status = "timed_out"
)

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusTimedOut
}

// Command is the closed set of operations a session accepts.
type Command interface{ isCommand() }

type CreateSession struct {
	ID      string
	Manager string
	Roster  []Member
	Items   string
}

type RemoveParticipant struct {
	Actor         string
	ParticipantID string
}

type StartDraft struct {
	Actor string
}

// Assign hands items to the current picker. Actor may be the picker or the
// manager acting on their behalf.
type Assign struct {
	Actor string
	Picks []Pick
}

type Skip struct {
	Actor string
}

type Undo struct {
	Actor string
}

func (CreateSession) isCommand()     {}
func (RemoveParticipant) isCommand() {}
func (StartDraft) isCommand()        {}
func (Assign) isCommand()            {}
func (Skip) isCommand()              {}
func (Undo) isCommand()              {}

type Pick struct {
	ItemID   int `json:"item_id"`
	Quantity int `json:"quantity"`
}

type ActionKind string

const (
	ActionAssign ActionKind = "assign"
	ActionSkip   ActionKind = "skip"
)

// ActionRecord is the single-entry undo journal.
type ActionRecord struct {
	Kind          ActionKind
	ParticipantID string
	Picks         []Pick
	Pick          int // pick index before the action was applied
}

type Session struct {
	ID           string
	Manager      string
	Status       Status
	Roster       []Participant // rank order
	Order        PickOrder
	PickIndex    int
	Items        []*Item
	CreatedAt    time.Time
	LastActivity time.Time

	last *ActionRecord
}

// NewSession parses the item list and rolls the roster. The pick order is
// not built until StartDraft.
func NewSession(cmd CreateSession, src Source, limits Limits, now time.Time) (*Session, error) {
	if cmd.ID == "" {
		return nil, &InvalidStateError{Op: "create", Reason: "session id is required"}
	}
	if cmd.Manager == "" {
		return nil, &InvalidStateError{Op: "create", Reason: "manager is required"}
	}
	items, err := ParseItems(cmd.Items)
	if err != nil {
		return nil, err
	}
	ranked, err := Roll(cmd.Roster, src, limits.withDefaults())
	if err != nil {
		return nil, err
	}
	return &Session{
		ID:           cmd.ID,
		Manager:      cmd.Manager,
		Status:       StatusSetup,
		Roster:       ranked,
		Items:        items,
		CreatedAt:    now,
		LastActivity: now,
	}, nil
}

// Apply runs one command against the session. A failed command leaves the
// session untouched.
func Apply(s *Session, cmd Command, now time.Time) error {
	switch c := cmd.(type) {
	case RemoveParticipant:
		return s.RemoveParticipant(c.Actor, c.ParticipantID, now)
	case StartDraft:
		return s.StartDraft(c.Actor, now)
	case Assign:
		return s.Assign(c.Actor, c.Picks, now)
	case Skip:
		return s.Skip(c.Actor, now)
	case Undo:
		return s.Undo(c.Actor, now)
	case CreateSession:
		return &InvalidStateError{Op: "create", Reason: "session " + s.ID + " already exists"}
	default:
		return &InvalidStateError{Op: "apply", Reason: "unsupported command"}
	}
}

func (s *Session) RemoveParticipant(actor, participantID string, now time.Time) error {
	if s.Status != StatusSetup {
		return &InvalidStateError{Op: "remove participant", Status: s.Status}
	}
	if actor != s.Manager {
		return &NotManagerError{Actor: actor, Op: "remove participant"}
	}
	idx := slices.IndexFunc(s.Roster, func(p Participant) bool { return p.ID == participantID })
	if idx < 0 {
		return &UnknownParticipantError{ID: participantID}
	}

	s.Roster = slices.Delete(s.Roster, idx, idx+1)
	for i := range s.Roster {
		s.Roster[i].Rank = i
	}
	s.LastActivity = now
	return nil
}

func (s *Session) StartDraft(actor string, now time.Time) error {
	if s.Status != StatusSetup {
		return &InvalidStateError{Op: "start", Status: s.Status}
	}
	if actor != s.Manager {
		return &NotManagerError{Actor: actor, Op: "start"}
	}
	order, err := BuildPickOrder(s.Roster)
	if err != nil {
		return err
	}

	s.Order = order
	s.PickIndex = 0
	s.Status = StatusActive
	s.last = nil
	s.LastActivity = now
	return nil
}

func (s *Session) Assign(actor string, picks []Pick, now time.Time) error {
	if s.Status != StatusActive {
		return &InvalidStateError{Op: "assign", Status: s.Status}
	}
	picker, err := s.authorizeTurn("assign", actor)
	if err != nil {
		return err
	}
	if err := s.validatePicks(picks); err != nil {
		return err
	}

	for _, p := range picks {
		item := s.item(p.ItemID)
		item.Remaining -= p.Quantity
		item.Assignments = append(item.Assignments, Assignment{
			ParticipantID: picker,
			Quantity:      p.Quantity,
			Pick:          s.PickIndex,
		})
	}
	s.last = &ActionRecord{
		Kind:          ActionAssign,
		ParticipantID: picker,
		Picks:         slices.Clone(picks),
		Pick:          s.PickIndex,
	}
	s.PickIndex = AdvancePast(s.PickIndex)
	s.LastActivity = now

	if exhausted(s.Items) {
		_, _ = s.Terminate(StatusCompleted)
	}
	return nil
}

func (s *Session) Skip(actor string, now time.Time) error {
	if s.Status != StatusActive {
		return &InvalidStateError{Op: "skip", Status: s.Status}
	}
	picker, err := s.authorizeTurn("skip", actor)
	if err != nil {
		return err
	}

	s.last = &ActionRecord{Kind: ActionSkip, ParticipantID: picker, Pick: s.PickIndex}
	s.PickIndex = AdvancePast(s.PickIndex)
	s.LastActivity = now
	return nil
}

// Undo reverses the most recent Assign or Skip. It can reopen a completed
// session. Only one step is journaled.
func (s *Session) Undo(actor string, now time.Time) error {
	if s.Status != StatusActive && s.Status != StatusCompleted {
		return &InvalidStateError{Op: "undo", Status: s.Status}
	}
	if actor != s.Manager {
		return &NotManagerError{Actor: actor, Op: "undo"}
	}
	rec := s.last
	if rec == nil {
		return ErrNoActionToUndo
	}

	if rec.Kind == ActionAssign {
		for _, p := range rec.Picks {
			s.item(p.ItemID).Remaining += p.Quantity
		}
		for _, item := range s.Items {
			item.Assignments = slices.DeleteFunc(item.Assignments, func(a Assignment) bool {
				return a.Pick == rec.Pick
			})
		}
	}
	s.PickIndex = Rewind(s.PickIndex)
	s.last = nil
	s.Status = StatusActive
	s.LastActivity = now
	return nil
}

// Terminate moves the session into a terminal status. It reports whether the
// status changed; terminating an already terminal session is a no-op.
func (s *Session) Terminate(reason Status) (bool, error) {
	if !reason.Terminal() {
		return false, &InvalidStateError{Op: "terminate", Reason: "not a terminal status: " + string(reason)}
	}
	if s.Status.Terminal() {
		return false, nil
	}
	if reason == StatusCompleted && !exhausted(s.Items) {
		return false, &InvalidStateError{Op: "terminate", Reason: "items remain unclaimed"}
	}
	s.Status = reason
	if reason == StatusTimedOut {
		s.last = nil
	}
	return true, nil
}

// CurrentPicker returns the participant holding the current pick while the
// draft is active.
func (s *Session) CurrentPicker() (string, Turn, bool) {
	if s.Status != StatusActive {
		return "", Turn{}, false
	}
	id, turn := s.Order.At(s.PickIndex)
	return id, turn, true
}

func (s *Session) CanUndo() bool {
	return s.last != nil && (s.Status == StatusActive || s.Status == StatusCompleted)
}

// LastAction returns a copy of the undo journal entry, if any.
func (s *Session) LastAction() (ActionRecord, bool) {
	if s.last == nil {
		return ActionRecord{}, false
	}
	rec := *s.last
	rec.Picks = slices.Clone(rec.Picks)
	return rec, true
}

// authorizeTurn allows the current picker and the manager. Other roster
// members are told it is not their turn; anyone else lacks authority.
func (s *Session) authorizeTurn(op, actor string) (string, error) {
	picker, _, _ := s.CurrentPicker()
	if actor == picker || actor == s.Manager {
		return picker, nil
	}
	if s.participant(actor) != nil {
		return "", &InvalidStateError{Op: op, Status: s.Status, Reason: "it is not " + actor + "'s turn"}
	}
	return "", &NotManagerError{Actor: actor, Op: op}
}

func (s *Session) validatePicks(picks []Pick) error {
	if len(picks) == 0 {
		return &InvalidQuantityError{}
	}
	claimed := make(map[int]int, len(picks))
	for _, p := range picks {
		item := s.item(p.ItemID)
		if item == nil {
			return &UnknownItemError{ID: p.ItemID}
		}
		if p.Quantity <= 0 {
			return &InvalidQuantityError{ItemID: p.ItemID, Quantity: p.Quantity}
		}
		claimed[p.ItemID] += p.Quantity
		if claimed[p.ItemID] > item.Remaining {
			return &InsufficientQuantityError{ItemID: p.ItemID, Requested: claimed[p.ItemID], Remaining: item.Remaining}
		}
	}
	return nil
}

func (s *Session) item(id int) *Item {
	if id < 1 || id > len(s.Items) {
		return nil
	}
	return s.Items[id-1]
}

func (s *Session) participant(id string) *Participant {
	for i := range s.Roster {
		if s.Roster[i].ID == id {
			return &s.Roster[i]
		}
	}
	return nil
}
