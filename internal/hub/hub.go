package hub

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/loot-draft-backend/internal/engine"
	"github.com/DoyleJ11/loot-draft-backend/internal/lobby"
)

var ErrSessionNotFound = errors.New("session not found")
var ErrSessionExists = errors.New("session already exists")

type Config struct {
	IdleTimeout   time.Duration
	SweepInterval time.Duration
	EvictAfter    time.Duration // grace between a terminal snapshot and eviction
	Limits        engine.Limits
}

func DefaultConfig() Config {
	return Config{
		IdleTimeout:   30 * time.Minute,
		SweepInterval: 30 * time.Second,
		EvictAfter:    time.Minute,
		Limits:        engine.DefaultLimits(),
	}
}

type Option func(*Hub)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(h *Hub) { h.now = now }
}

// WithSource supplies the random source for each new session's rolls.
func WithSource(newSource func() engine.Source) Option {
	return func(h *Hub) { h.newSource = newSource }
}

func WithLogger(log *zap.Logger) Option {
	return func(h *Hub) { h.log = log }
}

// Hub is the session registry. Its map lock only guards insert, lookup and
// delete; session operations run under each lobby's own guard.
type Hub struct {
	mu        sync.RWMutex
	lobbies   map[string]*lobby.Lobby
	cfg       Config
	presenter lobby.Presenter
	now       func() time.Time
	newSource func() engine.Source
	log       *zap.Logger
}

func NewHub(cfg Config, presenter lobby.Presenter, opts ...Option) *Hub {
	h := &Hub{
		lobbies:   make(map[string]*lobby.Lobby),
		cfg:       cfg,
		presenter: presenter,
		now:       time.Now,
		newSource: globalSource,
		log:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// globalSource draws from math/rand/v2's package functions, which are safe
// for concurrent use.
func globalSource() engine.Source { return sharedRand{} }

type sharedRand struct{}

func (sharedRand) IntN(n int) int { return rand.IntN(n) }

// Create rolls a new session and registers it under its id. The registry
// lock covers only the duplicate check and the insert; rolling and the
// version 0 presentation run outside it.
func (h *Hub) Create(cmd engine.CreateSession) (lobby.Update, error) {
	if _, ok := h.Get(cmd.ID); ok {
		return lobby.Update{}, fmt.Errorf("%w: %s", ErrSessionExists, cmd.ID)
	}
	s, err := engine.NewSession(cmd, h.newSource(), h.cfg.Limits, h.now())
	if err != nil {
		return lobby.Update{}, err
	}
	lb := lobby.Prepare(s, h.presenter, h.log)

	h.mu.Lock()
	if _, ok := h.lobbies[cmd.ID]; ok {
		h.mu.Unlock()
		return lobby.Update{}, fmt.Errorf("%w: %s", ErrSessionExists, cmd.ID)
	}
	h.lobbies[cmd.ID] = lb
	h.mu.Unlock()

	up := lb.Open()
	h.log.Info("session created",
		zap.String("session_id", cmd.ID),
		zap.String("manager", cmd.Manager),
		zap.Int("participants", len(s.Roster)),
		zap.Int("items", len(s.Items)))
	return up, nil
}

// Dispatch routes a command to its session. CreateSession is accepted too,
// so transports can push every command through one entry point.
func (h *Hub) Dispatch(id string, cmd engine.Command) (lobby.Update, error) {
	if c, ok := cmd.(engine.CreateSession); ok {
		c.ID = id
		return h.Create(c)
	}
	lb, ok := h.Get(id)
	if !ok {
		return lobby.Update{}, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	up, err := lb.Apply(cmd, h.now())
	if errors.Is(err, lobby.ErrClosed) {
		return lobby.Update{}, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if err == nil && up.Final() {
		h.log.Info("session completed", zap.String("session_id", id), zap.Int("version", up.Version))
		if h.cfg.EvictAfter <= 0 {
			h.evict(id, lb)
		}
	}
	return up, err
}

func (h *Hub) RemoveParticipant(id, actor, participantID string) (lobby.Update, error) {
	return h.Dispatch(id, engine.RemoveParticipant{Actor: actor, ParticipantID: participantID})
}

func (h *Hub) StartDraft(id, actor string) (lobby.Update, error) {
	return h.Dispatch(id, engine.StartDraft{Actor: actor})
}

func (h *Hub) Assign(id, actor string, picks []engine.Pick) (lobby.Update, error) {
	return h.Dispatch(id, engine.Assign{Actor: actor, Picks: picks})
}

func (h *Hub) Skip(id, actor string) (lobby.Update, error) {
	return h.Dispatch(id, engine.Skip{Actor: actor})
}

func (h *Hub) Undo(id, actor string) (lobby.Update, error) {
	return h.Dispatch(id, engine.Undo{Actor: actor})
}

func (h *Hub) Get(id string) (*lobby.Lobby, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	lb, ok := h.lobbies[id]
	return lb, ok
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.lobbies)
}

// Shutdown closes every lobby and empties the registry.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, lb := range h.lobbies {
		lb.Close()
	}
	clear(h.lobbies)
}

func (h *Hub) list() []*lobby.Lobby {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*lobby.Lobby, 0, len(h.lobbies))
	for _, lb := range h.lobbies {
		out = append(out, lb)
	}
	return out
}

// evict removes id only if it still maps to lb.
func (h *Hub) evict(id string, lb *lobby.Lobby) {
	h.mu.Lock()
	if h.lobbies[id] != lb {
		h.mu.Unlock()
		return
	}
	delete(h.lobbies, id)
	h.mu.Unlock()

	lb.Close()
	h.log.Info("session evicted", zap.String("session_id", id))
}
