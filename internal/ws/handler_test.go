package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/DoyleJ11/loot-draft-backend/internal/engine"
	"github.com/DoyleJ11/loot-draft-backend/internal/hub"
	"github.com/DoyleJ11/loot-draft-backend/internal/types"
)

type faces []int

func (f *faces) IntN(n int) int {
	v := (*f)[0]
	*f = (*f)[1:]
	return v - 1
}

func newServer(t *testing.T, opts ...Option) (*hub.Hub, *httptest.Server) {
	t.Helper()
	h := hub.NewHub(hub.DefaultConfig(), nil,
		hub.WithSource(func() engine.Source { return &faces{90, 10} }))
	_, err := h.Create(engine.CreateSession{
		ID:      "s1",
		Manager: "M",
		Roster:  []engine.Member{{ID: "A"}, {ID: "B"}},
		Items:   "Gem",
	})
	require.NoError(t, err)

	srv := httptest.NewServer(Handler(h, zap.NewNop(), opts...))
	t.Cleanup(srv.Close)
	return h, srv
}

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?" + query
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func recv(t *testing.T, conn *websocket.Conn) types.ServerMessage {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	var msg types.ServerMessage
	require.NoError(t, wsjson.Read(ctx, conn, &msg))
	return msg
}

func send(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, wsjson.Write(ctx, conn, v))
}

func TestHandler_DraftOverSocket(t *testing.T) {
	_, srv := newServer(t)
	conn := dial(t, srv, "session=s1&actor=M")

	first := recv(t, conn)
	require.Equal(t, types.MsgStateSnapshot, first.Type)
	assert.Equal(t, 0, first.Version)
	assert.Equal(t, engine.StatusSetup, first.State.Status)

	send(t, conn, types.ClientMessage{Type: types.MsgStart})
	started := recv(t, conn)
	assert.Equal(t, 1, started.Version)
	assert.Equal(t, "A", started.State.CurrentPicker)

	send(t, conn, types.ClientMessage{Type: types.MsgSkip, Actor: "B"})
	rejected := recv(t, conn)
	assert.Equal(t, types.MsgError, rejected.Type)
	assert.Equal(t, "invalid_state", rejected.Code)
	assert.Equal(t, 1, rejected.Version)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte("{nope")))
	assert.Equal(t, "bad_json", recv(t, conn).Code)

	send(t, conn, types.ClientMessage{Type: types.MsgAssign, Actor: "A", Picks: []engine.Pick{{ItemID: 1, Quantity: 1}}})
	done := recv(t, conn)
	assert.Equal(t, 2, done.Version)
	assert.True(t, done.State.Final)
	assert.Equal(t, engine.StatusCompleted, done.State.Status)
}

func TestHandler_BroadcastsToOtherClients(t *testing.T) {
	_, srv := newServer(t)
	manager := dial(t, srv, "session=s1&actor=M")
	watcher := dial(t, srv, "session=s1&actor=B")
	recv(t, manager)
	recv(t, watcher)

	send(t, manager, types.ClientMessage{Type: types.MsgRemoveParticipant, ParticipantID: "B"})

	for _, conn := range []*websocket.Conn{manager, watcher} {
		msg := recv(t, conn)
		assert.Equal(t, 1, msg.Version)
		assert.Len(t, msg.State.Roster, 1)
	}
}

func TestHandler_ClosesWhenSessionEvicted(t *testing.T) {
	h, srv := newServer(t)
	conn := dial(t, srv, "session=s1")
	recv(t, conn)

	h.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, _, err := conn.Read(ctx)
	assert.Equal(t, websocket.StatusGoingAway, websocket.CloseStatus(err))
}

func TestHandler_RejectsBadRequests(t *testing.T) {
	_, srv := newServer(t)

	tests := []struct {
		query string
		want  int
	}{
		{query: "", want: http.StatusBadRequest},
		{query: "session=nope", want: http.StatusNotFound},
	}
	for _, tt := range tests {
		resp, err := http.Get(srv.URL + "?" + tt.query)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, tt.want, resp.StatusCode, tt.query)
	}
}

func TestHandler_QuietWatcherStaysConnected(t *testing.T) {
	h, srv := newServer(t, WithPing(20*time.Millisecond, time.Second))
	conn := dial(t, srv, "session=s1&actor=B")
	recv(t, conn)

	// Keep a read pending so pings are answered, but never send.
	got := make(chan types.ServerMessage, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		var msg types.ServerMessage
		if err := wsjson.Read(ctx, conn, &msg); err == nil {
			got <- msg
		}
		close(got)
	}()

	time.Sleep(150 * time.Millisecond)
	_, err := h.StartDraft("s1", "M")
	require.NoError(t, err)

	msg, ok := <-got
	require.True(t, ok, "watcher was disconnected")
	assert.Equal(t, 1, msg.Version)
}

func TestHandler_DropsClientThatMissesPong(t *testing.T) {
	h, srv := newServer(t, WithPing(20*time.Millisecond, 30*time.Millisecond))
	conn := dial(t, srv, "session=s1")
	recv(t, conn)

	lb, ok := h.Get("s1")
	require.True(t, ok)
	// Without a pending read the client never answers pings.
	assert.Eventually(t, func() bool { return lb.NumClients() == 0 }, 2*time.Second, 10*time.Millisecond)
}
