package archive

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/loot-draft-backend/internal/engine"
	"github.com/DoyleJ11/loot-draft-backend/internal/lobby"
)

type Saver interface {
	Save(ctx context.Context, snap engine.Snapshot, finishedAt time.Time) error
}

type job struct {
	snap       engine.Snapshot
	finishedAt time.Time
}

// Recorder is a Presenter that queues final summaries and writes them from
// a background goroutine, so a slow database never holds a session guard.
// Non-final updates are ignored.
type Recorder struct {
	saver   Saver
	log     *zap.Logger
	timeout time.Duration

	mu     sync.Mutex
	closed bool
	queue  chan job
	done   chan struct{}
}

func NewRecorder(saver Saver, log *zap.Logger, buffer int) *Recorder {
	if buffer <= 0 {
		buffer = 64
	}
	r := &Recorder{
		saver:   saver,
		log:     log,
		timeout: 5 * time.Second,
		queue:   make(chan job, buffer),
		done:    make(chan struct{}),
	}
	go r.loop()
	return r
}

func (r *Recorder) Present(u lobby.Update) {
	if !u.Final() {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	select {
	case r.queue <- job{snap: u.Snapshot, finishedAt: time.Now()}:
	default:
		r.log.Warn("archive queue full, dropping final summary", zap.String("session_id", u.Snapshot.SessionID))
	}
}

func (r *Recorder) loop() {
	defer close(r.done)
	for j := range r.queue {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		err := r.saver.Save(ctx, j.snap, j.finishedAt)
		cancel()
		if err != nil {
			r.log.Error("archive final summary", zap.String("session_id", j.snap.SessionID), zap.Error(err))
			continue
		}
		r.log.Debug("archived final summary", zap.String("session_id", j.snap.SessionID))
	}
}

// Close stops accepting summaries and waits for queued ones to be written.
func (r *Recorder) Close(ctx context.Context) error {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.queue)
	}
	r.mu.Unlock()

	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
