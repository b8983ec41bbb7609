package engine

import (
	"errors"
	"fmt"
)

var ErrInvalidRoster = errors.New("invalid roster")
var ErrInvalidItemLine = errors.New("invalid item line")
var ErrNotManager = errors.New("not the loot master")
var ErrInvalidState = errors.New("invalid state")
var ErrUnknownParticipant = errors.New("unknown participant")
var ErrUnknownItem = errors.New("unknown item")
var ErrInvalidQuantity = errors.New("invalid quantity")
var ErrInsufficientQuantity = errors.New("insufficient quantity")
var ErrNoActionToUndo = errors.New("no action to undo")

// InvalidRosterError reports an empty or over-capacity roster.
type InvalidRosterError struct {
	Size   int
	Max    int
	Reason string
}

func (e *InvalidRosterError) Error() string {
	if e.Reason != "" {
		return "invalid roster: " + e.Reason
	}
	if e.Size == 0 {
		return "invalid roster: no participants"
	}
	return fmt.Sprintf("invalid roster: %d participants, maximum is %d", e.Size, e.Max)
}

func (e *InvalidRosterError) Unwrap() error { return ErrInvalidRoster }

// InvalidItemLineError names the offending input line.
type InvalidItemLineError struct {
	Line   string
	Reason string
}

func (e *InvalidItemLineError) Error() string {
	if e.Line == "" {
		return fmt.Sprintf("invalid item line: %s", e.Reason)
	}
	return fmt.Sprintf("invalid item line %q: %s", e.Line, e.Reason)
}

func (e *InvalidItemLineError) Unwrap() error { return ErrInvalidItemLine }

type NotManagerError struct {
	Actor string
	Op    string
}

func (e *NotManagerError) Error() string {
	return fmt.Sprintf("%s: %q is not the loot master", e.Op, e.Actor)
}

func (e *NotManagerError) Unwrap() error { return ErrNotManager }

// InvalidStateError is returned when an operation is not legal in the
// session's current status, or the actor is not the current picker.
type InvalidStateError struct {
	Op     string
	Status Status
	Reason string
}

func (e *InvalidStateError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Reason)
	}
	return fmt.Sprintf("%s: not allowed while session is %s", e.Op, e.Status)
}

func (e *InvalidStateError) Unwrap() error { return ErrInvalidState }

type UnknownParticipantError struct {
	ID string
}

func (e *UnknownParticipantError) Error() string {
	return fmt.Sprintf("unknown participant %q", e.ID)
}

func (e *UnknownParticipantError) Unwrap() error { return ErrUnknownParticipant }

type UnknownItemError struct {
	ID int
}

func (e *UnknownItemError) Error() string {
	return fmt.Sprintf("unknown item %d", e.ID)
}

func (e *UnknownItemError) Unwrap() error { return ErrUnknownItem }

type InvalidQuantityError struct {
	ItemID   int
	Quantity int
}

func (e *InvalidQuantityError) Error() string {
	if e.ItemID == 0 {
		return "no items selected"
	}
	return fmt.Sprintf("item %d: quantity must be positive, got %d", e.ItemID, e.Quantity)
}

func (e *InvalidQuantityError) Unwrap() error { return ErrInvalidQuantity }

type InsufficientQuantityError struct {
	ItemID    int
	Requested int
	Remaining int
}

func (e *InsufficientQuantityError) Error() string {
	return fmt.Sprintf("item %d: requested %d, only %d remaining", e.ItemID, e.Requested, e.Remaining)
}

func (e *InsufficientQuantityError) Unwrap() error { return ErrInsufficientQuantity }
