package presenter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/DoyleJ11/loot-draft-backend/internal/engine"
	"github.com/DoyleJ11/loot-draft-backend/internal/lobby"
)

func finalUpdate() lobby.Update {
	return lobby.Update{
		Version: 7,
		Snapshot: engine.Snapshot{
			SessionID: "s1",
			Status:    engine.StatusTimedOut,
			Final:     true,
			Roster:    []engine.Participant{{ID: "A", Rank: 0}, {ID: "B", Rank: 1}},
			Items: []engine.Item{
				{ID: 1, Name: "Gem", Quantity: 2, Remaining: 1, Assignments: []engine.Assignment{{ParticipantID: "A", Quantity: 1}}},
				{ID: 2, Name: "Shield", Quantity: 1, Remaining: 1},
			},
		},
	}
}

func TestLog_FinalSummary(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	p := NewLog(zap.New(core))

	p.Present(lobby.Update{Version: 1, Snapshot: engine.Snapshot{SessionID: "s1", Status: engine.StatusActive, CurrentPicker: "A"}})
	p.Present(finalUpdate())

	entries := logs.AllUntimed()
	require.Len(t, entries, 2)
	assert.Equal(t, "session updated", entries[0].Message)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)

	final := entries[1]
	assert.Equal(t, "final summary", final.Message)
	ctx := final.ContextMap()
	assert.Equal(t, "timed_out", ctx["status"])
	assert.Equal(t, int64(1), ctx["recipients"])
	assert.Equal(t, []interface{}{"Gem", "Shield"}, ctx["unclaimed"])
}

func TestMulti_ForwardsInOrder(t *testing.T) {
	var got []string
	m := Multi{
		lobby.PresenterFunc(func(lobby.Update) { got = append(got, "first") }),
		nil,
		lobby.PresenterFunc(func(lobby.Update) { got = append(got, "second") }),
	}

	m.Present(finalUpdate())

	assert.Equal(t, []string{"first", "second"}, got)
}
