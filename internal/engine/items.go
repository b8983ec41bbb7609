package engine

import (
	"regexp"
	"strconv"
	"strings"
)

// Item is one line of loot. ID is the 1-based position in the parsed list
// and never changes.
type Item struct {
	ID          int          `json:"id"`
	Name        string       `json:"name"`
	Quantity    int          `json:"quantity"`
	Remaining   int          `json:"remaining"`
	Assignments []Assignment `json:"assignments"`
}

// Assignment is one entry in an item's history.
type Assignment struct {
	ParticipantID string `json:"participant_id"`
	Quantity      int    `json:"quantity"`
	Pick          int    `json:"pick"`
}

var quantityPrefix = regexp.MustCompile(`^([+-]?\d+)[xX](?:\s+(.*))?$`)

// ParseItems reads one item per line. A leading "<N>x " sets the quantity;
// blank lines are ignored.
func ParseItems(text string) ([]*Item, error) {
	var items []*Item
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		name, qty, err := parseItemLine(line)
		if err != nil {
			return nil, err
		}
		items = append(items, &Item{
			ID:        len(items) + 1,
			Name:      name,
			Quantity:  qty,
			Remaining: qty,
		})
	}
	if len(items) == 0 {
		return nil, &InvalidItemLineError{Reason: "at least one item is required"}
	}
	return items, nil
}

func parseItemLine(line string) (string, int, error) {
	m := quantityPrefix.FindStringSubmatch(line)
	if m == nil {
		return line, 1, nil
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return "", 0, &InvalidItemLineError{Line: line, Reason: "quantity out of range"}
	}
	if n <= 0 {
		return "", 0, &InvalidItemLineError{Line: line, Reason: "quantity must be at least 1"}
	}
	name := strings.TrimSpace(m[2])
	if name == "" {
		return "", 0, &InvalidItemLineError{Line: line, Reason: "missing item name"}
	}
	return name, n, nil
}
