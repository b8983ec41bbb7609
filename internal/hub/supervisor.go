package hub

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/loot-draft-backend/internal/lobby"
)

// SweepReport summarises one pass of the timeout supervisor.
type SweepReport struct {
	Expired  []lobby.Update
	Evicted  []string
	Deferred int // sessions skipped because an action held the guard
}

// Sweep times out idle sessions and evicts those whose terminal snapshot
// has aged past the eviction grace. Sessions busy with a user action are
// left for the next tick.
func (h *Hub) Sweep() SweepReport {
	var report SweepReport
	now := h.now()

	for _, lb := range h.list() {
		up, res := lb.ExpireIfIdle(now, h.cfg.IdleTimeout)
		switch res {
		case lobby.Busy:
			report.Deferred++
			h.log.Debug("sweep deferred, session busy", zap.String("session_id", lb.ID()))
			continue
		case lobby.Expired:
			report.Expired = append(report.Expired, up)
			h.log.Info("session timed out",
				zap.String("session_id", lb.ID()),
				zap.Duration("idle_timeout", h.cfg.IdleTimeout))
		}

		if lb.Evictable(now, h.cfg.EvictAfter) {
			h.evict(lb.ID(), lb)
			report.Evicted = append(report.Evicted, lb.ID())
		}
	}
	return report
}

// Run sweeps on every tick of SweepInterval until ctx is done.
func (h *Hub) Run(ctx context.Context) error {
	interval := h.cfg.SweepInterval
	if interval <= 0 {
		interval = DefaultConfig().SweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			h.Sweep()
		}
	}
}
