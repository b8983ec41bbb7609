// Package ws streams session snapshots to websocket clients and accepts
// commands from them.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/DoyleJ11/loot-draft-backend/internal/hub"
	"github.com/DoyleJ11/loot-draft-backend/internal/lobby"
	"github.com/DoyleJ11/loot-draft-backend/internal/types"
)

const (
	writeTimeout = 3 * time.Second
	outboxSize   = 8
)

type options struct {
	pingInterval time.Duration
	pingTimeout  time.Duration
}

type Option func(*options)

// WithPing sets how often the server pings each client and how long it
// waits for the pong before dropping the connection.
func WithPing(interval, timeout time.Duration) Option {
	return func(o *options) {
		o.pingInterval = interval
		o.pingTimeout = timeout
	}
}

// Handler serves GET /ws?session=<id>&actor=<id>. The actor query value is
// used for commands that leave it empty. Reads carry no deadline, so
// watchers that never send stay connected while they answer pings.
func Handler(h *hub.Hub, log *zap.Logger, opts ...Option) http.HandlerFunc {
	o := options{pingInterval: 30 * time.Second, pingTimeout: 10 * time.Second}
	for _, opt := range opts {
		opt(&o)
	}
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := r.URL.Query().Get("session")
		if sessionID == "" {
			http.Error(w, "missing session", http.StatusBadRequest)
			return
		}
		actor := r.URL.Query().Get("actor")

		lb, ok := h.Get(sessionID)
		if !ok {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			// In dev ONLY, you can loosen origin checks:
			// OriginPatterns: []string{"http://localhost:*", "http://127.0.0.1:*"},
		})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		clientID := uuid.NewString()
		clog := log.With(zap.String("session_id", sessionID), zap.String("client_id", clientID))

		out := make(chan lobby.Update, outboxSize)
		lb.Join(clientID, out)
		defer lb.Leave(clientID)
		clog.Debug("client joined", zap.String("actor", actor))

		// Writer goroutine. The lobby closes out when the session is evicted
		// or the client falls behind; either way the socket is done.
		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()
		replies := make(chan types.ServerMessage, outboxSize)
		go func() {
			defer cancel()
			for {
				select {
				case up, ok := <-out:
					if !ok {
						conn.Close(websocket.StatusGoingAway, "session closed")
						return
					}
					if err := write(ctx, conn, types.Snapshot(up)); err != nil {
						return
					}
				case msg := <-replies:
					if err := write(ctx, conn, msg); err != nil {
						return
					}
				case <-ctx.Done():
					return
				}
			}
		}()

		go keepAlive(ctx, cancel, conn, o, clog)

		// Reader loop
		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				default:
					clog.Debug("client read ended", zap.Error(err))
				}
				return
			}

			reply, ok := handleMessage(h, sessionID, actor, data)
			if !ok {
				continue
			}
			select {
			case replies <- reply:
			case <-ctx.Done():
				return
			}
		}
	}
}

// handleMessage applies one client frame. Accepted commands reach the
// client through the broadcast, so only failures produce a direct reply.
func handleMessage(h *hub.Hub, sessionID, actor string, data []byte) (types.ServerMessage, bool) {
	var cm types.ClientMessage
	if err := json.Unmarshal(data, &cm); err != nil {
		return types.ServerMessage{Type: types.MsgError, Error: "bad json", Code: "bad_json"}, true
	}
	if cm.Actor == "" {
		cm.Actor = actor
	}
	cmd, err := types.ToCommand(cm)
	if err != nil {
		return types.Failure(0, err), true
	}
	up, err := h.Dispatch(sessionID, cmd)
	if err != nil {
		return types.Failure(up.Version, err), true
	}
	return types.ServerMessage{}, false
}

// keepAlive pings the client until ctx ends and cancels the connection
// when a pong does not arrive in time. Pongs are read by the reader loop.
func keepAlive(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, o options, log *zap.Logger) {
	ticker := time.NewTicker(o.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pingCtx, pingCancel := context.WithTimeout(ctx, o.pingTimeout)
			err := conn.Ping(pingCtx)
			pingCancel()
			if err != nil {
				log.Debug("client missed ping", zap.Error(err))
				cancel()
				return
			}
		}
	}
}

func write(ctx context.Context, conn *websocket.Conn, msg types.ServerMessage) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, msg)
}
