package lobby

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/loot-draft-backend/internal/engine"
)

var ErrClosed = errors.New("lobby closed")

// Update is one versioned snapshot. Version increases by one on every
// accepted transition.
type Update struct {
	Version  int
	Snapshot engine.Snapshot
}

func (u Update) Final() bool { return u.Snapshot.Final }

// Presenter receives every accepted transition in order. It is called with
// the session guard held, so it must not call back into the lobby.
type Presenter interface {
	Present(Update)
}

// PresenterFunc adapts a plain function to Presenter.
type PresenterFunc func(Update)

func (f PresenterFunc) Present(u Update) { f(u) }

// ExpireResult is the outcome of an idle check.
type ExpireResult int

const (
	NotIdle ExpireResult = iota
	Expired
	Busy // another operation holds the guard; try again next tick
)

// Lobby owns one session. Its mutex is the session guard: every operation
// validates and mutates while holding it.
type Lobby struct {
	mu           sync.Mutex
	session      *engine.Session
	version      int
	presenter    Presenter
	clients      map[string]chan Update
	terminatedAt time.Time
	closed       bool
	log          *zap.Logger
}

// NewLobby wraps a freshly created session and presents its first snapshot
// as version 0.
func NewLobby(s *engine.Session, p Presenter, log *zap.Logger) *Lobby {
	l := Prepare(s, p, log)
	l.Open()
	return l
}

// Prepare wraps s with its guard already held. Operations block, and idle
// checks report Busy, until Open presents version 0. This lets a registry
// publish the lobby before its first snapshot without reordering versions.
func Prepare(s *engine.Session, p Presenter, log *zap.Logger) *Lobby {
	if log == nil {
		log = zap.NewNop()
	}
	l := &Lobby{
		session:   s,
		presenter: p,
		clients:   make(map[string]chan Update),
		log:       log.With(zap.String("session_id", s.ID)),
	}
	l.mu.Lock()
	return l
}

// Open presents version 0 and releases the guard taken by Prepare. It must
// be called exactly once per prepared lobby.
func (l *Lobby) Open() Update {
	defer l.mu.Unlock()
	up := l.current()
	l.emit(up)
	return up
}

func (l *Lobby) ID() string { return l.session.ID }

// Apply runs cmd under the guard. On failure the returned update is the
// unchanged current state, so a caller that lost a race sees what won.
func (l *Lobby) Apply(cmd engine.Command, now time.Time) (Update, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return Update{}, ErrClosed
	}
	wasTerminal := l.session.Status.Terminal()
	if err := engine.Apply(l.session, cmd, now); err != nil {
		l.log.Debug("command rejected",
			zap.String("command", engine.CommandName(cmd)),
			zap.String("actor", engine.CommandActor(cmd)),
			zap.Error(err))
		return l.current(), err
	}

	switch terminal := l.session.Status.Terminal(); {
	case terminal && !wasTerminal:
		l.terminatedAt = now
	case !terminal:
		l.terminatedAt = time.Time{}
	}
	return l.publish(), nil
}

// ExpireIfIdle times the session out when it has seen no accepted action for
// longer than idle. It never waits for the guard.
func (l *Lobby) ExpireIfIdle(now time.Time, idle time.Duration) (Update, ExpireResult) {
	if !l.mu.TryLock() {
		return Update{}, Busy
	}
	defer l.mu.Unlock()

	if l.closed || l.session.Status.Terminal() || now.Sub(l.session.LastActivity) <= idle {
		return Update{}, NotIdle
	}
	changed, err := l.session.Terminate(engine.StatusTimedOut)
	if err != nil || !changed {
		return Update{}, NotIdle
	}
	l.terminatedAt = now
	return l.publish(), Expired
}

// Evictable reports whether the session ended at least grace ago. A busy
// guard counts as not evictable.
func (l *Lobby) Evictable(now time.Time, grace time.Duration) bool {
	if !l.mu.TryLock() {
		return false
	}
	defer l.mu.Unlock()

	if !l.session.Status.Terminal() || l.terminatedAt.IsZero() {
		return false
	}
	return now.Sub(l.terminatedAt) >= grace
}

// Join registers a client outbox and immediately sends it the current
// snapshot. Joining a closed lobby closes the outbox.
func (l *Lobby) Join(clientID string, outbox chan Update) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		close(outbox)
		return
	}
	l.clients[clientID] = outbox
	select {
	case outbox <- l.current():
	default:
		close(outbox)
		delete(l.clients, clientID)
	}
}

func (l *Lobby) Leave(clientID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.clients, clientID)
}

// View returns the current state without changing it.
func (l *Lobby) View() Update {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.current()
}

func (l *Lobby) NumClients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

// Close stops delivery to all clients. Later operations fail with ErrClosed.
func (l *Lobby) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.closed = true
	for id, ch := range l.clients {
		close(ch) // tell the client no more snapshots
		delete(l.clients, id)
	}
}

func (l *Lobby) current() Update {
	return Update{Version: l.version, Snapshot: l.session.Snapshot()}
}

func (l *Lobby) publish() Update {
	l.version++
	up := l.current()
	l.emit(up)
	return up
}

func (l *Lobby) emit(up Update) {
	if l.presenter != nil {
		l.presenter.Present(up)
	}
	l.broadcast(up)
}

func (l *Lobby) broadcast(up Update) {
	for id, ch := range l.clients {
		select {
		case ch <- up:
			// ok
		default:
			// Client is slow/full - drop them.
			close(ch)
			delete(l.clients, id)
			l.log.Debug("dropped slow client", zap.String("client_id", id))
		}
	}
}
