package engine

func (l Limits) withDefaults() Limits {
	if l.MaxParticipants <= 0 {
		l.MaxParticipants = DefaultMaxParticipants
	}
	if l.MaxRoll <= 0 {
		l.MaxRoll = DefaultMaxRoll
	}
	return l
}

func exhausted(items []*Item) bool {
	for _, item := range items {
		if item.Remaining > 0 {
			return false
		}
	}
	return true
}

// TotalQuantity is the sum of remaining and assigned copies across items.
// It never changes over a session's life.
func TotalQuantity(items []Item) int {
	total := 0
	for _, item := range items {
		total += item.Remaining
		for _, a := range item.Assignments {
			total += a.Quantity
		}
	}
	return total
}

// CommandName is a short label for logs and transport errors.
func CommandName(cmd Command) string {
	switch cmd.(type) {
	case CreateSession:
		return "create"
	case RemoveParticipant:
		return "remove_participant"
	case StartDraft:
		return "start"
	case Assign:
		return "assign"
	case Skip:
		return "skip"
	case Undo:
		return "undo"
	default:
		return "unknown"
	}
}

// CommandActor returns the acting identity carried by a command.
func CommandActor(cmd Command) string {
	switch c := cmd.(type) {
	case CreateSession:
		return c.Manager
	case RemoveParticipant:
		return c.Actor
	case StartDraft:
		return c.Actor
	case Assign:
		return c.Actor
	case Skip:
		return c.Actor
	case Undo:
		return c.Actor
	default:
		return ""
	}
}
