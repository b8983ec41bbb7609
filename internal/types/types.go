package types

import (
	"errors"
	"fmt"

	"github.com/DoyleJ11/loot-draft-backend/internal/engine"
	"github.com/DoyleJ11/loot-draft-backend/internal/hub"
	"github.com/DoyleJ11/loot-draft-backend/internal/lobby"
)

var ErrUnknownMessage = errors.New("unknown message type")

// Client message types.
const (
	MsgCreate            = "create"
	MsgRemoveParticipant = "remove_participant"
	MsgStart             = "start"
	MsgAssign            = "assign"
	MsgSkip              = "skip"
	MsgUndo              = "undo"
)

// Server message types.
const (
	MsgStateSnapshot = "StateSnapshot"
	MsgError         = "Error"
)

type ClientMessage struct {
	Type          string          `json:"type"`
	Actor         string          `json:"actor,omitempty"`
	ParticipantID string          `json:"participant_id,omitempty"`
	Picks         []engine.Pick   `json:"picks,omitempty"`
	Manager       string          `json:"manager,omitempty"`
	Roster        []engine.Member `json:"roster,omitempty"`
	Items         string          `json:"items,omitempty"`
}

type ServerMessage struct {
	Type    string           `json:"type"` // "StateSnapshot" | "Error"
	Version int              `json:"version"`
	State   *engine.Snapshot `json:"state,omitempty"`
	Error   string           `json:"error,omitempty"`
	Code    string           `json:"code,omitempty"`
}

// ToCommand converts a client message into an engine command. The session
// id of a create message comes from the transport, not the body.
func ToCommand(m ClientMessage) (engine.Command, error) {
	switch m.Type {
	case MsgCreate:
		return engine.CreateSession{Manager: m.Manager, Roster: m.Roster, Items: m.Items}, nil
	case MsgRemoveParticipant:
		return engine.RemoveParticipant{Actor: m.Actor, ParticipantID: m.ParticipantID}, nil
	case MsgStart:
		return engine.StartDraft{Actor: m.Actor}, nil
	case MsgAssign:
		return engine.Assign{Actor: m.Actor, Picks: m.Picks}, nil
	case MsgSkip:
		return engine.Skip{Actor: m.Actor}, nil
	case MsgUndo:
		return engine.Undo{Actor: m.Actor}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMessage, m.Type)
	}
}

func Snapshot(up lobby.Update) ServerMessage {
	snap := up.Snapshot
	return ServerMessage{Type: MsgStateSnapshot, Version: up.Version, State: &snap}
}

// Failure builds an Error envelope. Version is the session's current
// version when the caller knows it.
func Failure(version int, err error) ServerMessage {
	return ServerMessage{Type: MsgError, Version: version, Error: err.Error(), Code: ErrorCode(err)}
}

var codes = []struct {
	err  error
	code string
}{
	{engine.ErrInvalidRoster, "invalid_roster"},
	{engine.ErrInvalidItemLine, "invalid_item_line"},
	{engine.ErrNotManager, "not_manager"},
	{engine.ErrInvalidState, "invalid_state"},
	{engine.ErrUnknownParticipant, "unknown_participant"},
	{engine.ErrUnknownItem, "unknown_item"},
	{engine.ErrInvalidQuantity, "invalid_quantity"},
	{engine.ErrInsufficientQuantity, "insufficient_quantity"},
	{engine.ErrNoActionToUndo, "no_action_to_undo"},
	{hub.ErrSessionNotFound, "session_not_found"},
	{hub.ErrSessionExists, "session_exists"},
	{ErrUnknownMessage, "unknown_message"},
}

// ErrorCode returns the machine-readable code for err, or "internal".
func ErrorCode(err error) string {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return "internal"
}
