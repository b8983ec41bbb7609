// Package presenter holds the outward adapters that consume session
// snapshots: a structured-log sink and a fan-out combinator.
package presenter

import (
	"go.uber.org/zap"

	"github.com/DoyleJ11/loot-draft-backend/internal/lobby"
)

// Multi forwards every update to each presenter in order.
type Multi []lobby.Presenter

func (m Multi) Present(u lobby.Update) {
	for _, p := range m {
		if p != nil {
			p.Present(u)
		}
	}
}

// Log writes one line per transition and a summary line for final
// snapshots.
type Log struct {
	log *zap.Logger
}

func NewLog(log *zap.Logger) *Log {
	return &Log{log: log}
}

func (l *Log) Present(u lobby.Update) {
	snap := u.Snapshot
	fields := []zap.Field{
		zap.String("session_id", snap.SessionID),
		zap.Int("version", u.Version),
		zap.String("status", string(snap.Status)),
		zap.Int("pick_index", snap.PickIndex),
	}
	if snap.CurrentPicker != "" {
		fields = append(fields,
			zap.String("picker", snap.CurrentPicker),
			zap.Int("round", snap.Round+1),
			zap.Bool("double_pick", snap.DoublePick))
	}

	if !u.Final() {
		l.log.Debug("session updated", fields...)
		return
	}

	unclaimed := snap.Unclaimed()
	names := make([]string, len(unclaimed))
	for i, item := range unclaimed {
		names[i] = item.Name
	}
	holders := 0
	for _, h := range snap.Distribution() {
		if len(h.Items) > 0 {
			holders++
		}
	}
	fields = append(fields,
		zap.Int("recipients", holders),
		zap.Strings("unclaimed", names))
	l.log.Info("final summary", fields...)
}
