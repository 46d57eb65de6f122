package realtime

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		client := hub.NewClient(conn, r.URL.Query().Get("room"))
		hub.Register <- client
		go client.WritePump()
		go client.ReadPump()
	}))
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, room string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?room=" + room
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHub_BroadcastReachesOnlyRoom(t *testing.T) {
	hub, srv := newTestHub(t)
	chess := dial(t, srv, RoomID("Chess", "2026-ev"))
	other := dial(t, srv, RoomID("cricket", "2026-ev"))

	require.Eventually(t, func() bool {
		return hub.ClientsInRoom("chess:2026-ev") == 1 && hub.ClientsInRoom("cricket:2026-ev") == 1
	}, time.Second, 10*time.Millisecond)

	hub.BroadcastToRoom("chess:2026-ev", Message{Type: MatchCreated, Payload: map[string]int{"match_number": 1}, RoomID: "chess:2026-ev"})

	chess.SetReadDeadline(time.Now().Add(time.Second))
	_, data, err := chess.ReadMessage()
	require.NoError(t, err)
	var msg struct {
		Type    string         `json:"type"`
		Payload map[string]int `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, MatchCreated, msg.Type)
	assert.Equal(t, 1, msg.Payload["match_number"])

	other.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, _, err = other.ReadMessage()
	assert.Error(t, err)
}

func TestHub_UnregisterOnDisconnect(t *testing.T) {
	hub, srv := newTestHub(t)
	conn := dial(t, srv, "chess:ev")
	require.Eventually(t, func() bool { return hub.ClientsInRoom("chess:ev") == 1 }, time.Second, 10*time.Millisecond)

	conn.Close()
	assert.Eventually(t, func() bool { return hub.ClientsInRoom("chess:ev") == 0 }, time.Second, 10*time.Millisecond)
}

func TestHub_BroadcastToEmptyRoom(t *testing.T) {
	hub := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.NotPanics(t, func() { hub.BroadcastToRoom("nobody", Message{Type: MatchDeleted}) })
}
