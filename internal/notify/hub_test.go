package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/magefree/arena-server-go/internal/game/engine"
	"github.com/magefree/arena-server-go/internal/game/model"
)

type respondCall struct {
	gameID, userID, actionID string
	params                   json.RawMessage
}

type fakeEngine struct {
	mu    sync.Mutex
	calls []respondCall
}

func (f *fakeEngine) Respond(ctx context.Context, gameID, userID, actionID string, params json.RawMessage) error {
	f.mu.Lock()
	f.calls = append(f.calls, respondCall{gameID, userID, actionID, params})
	f.mu.Unlock()
	if actionID == "bad" {
		return engine.ErrRejected
	}
	return nil
}

func (f *fakeEngine) Game(ctx context.Context, id string) (*model.GameInstance, error) {
	if id != "game-1" {
		return nil, engine.ErrGameNotFound
	}
	return &model.GameInstance{
		ID:     id,
		Status: model.StatusActive,
		Users:  []*model.User{{ID: "alice"}, {ID: "bob"}},
	}, nil
}

func startHub(t *testing.T) (*Hub, *fakeEngine, *httptest.Server) {
	t.Helper()
	eng := &fakeEngine{}
	hub := NewHub(eng, zaptest.NewLogger(t))
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	srv := httptest.NewServer(hub)
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return hub, eng, srv
}

func dial(t *testing.T, srv *httptest.Server, user string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?game_id=game-1&user_id=" + user
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	first := read(t, conn)
	require.Equal(t, MessageState, first.Type)
	return conn
}

func read(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestServeHTTPValidatesRequest(t *testing.T) {
	_, _, srv := startHub(t)

	tests := []struct {
		name  string
		query string
		code  int
	}{
		{"missing params", "", http.StatusBadRequest},
		{"unknown game", "?game_id=nope&user_id=alice", http.StatusNotFound},
		{"unseated user", "?game_id=game-1&user_id=mallory", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Get(srv.URL + tt.query)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tt.code, resp.StatusCode)
		})
	}
}

func TestNotificationsAreRoutedByPlayer(t *testing.T) {
	hub, _, srv := startHub(t)
	conn := dial(t, srv, "alice")
	require.Equal(t, 1, hub.ClientCount("game-1"))

	hub.Handle(engine.Notification{Type: engine.NotificationActions, GameID: "game-1", PlayerID: "bob"})
	hub.Handle(engine.Notification{Type: engine.NotificationGameState, GameID: "game-1"})

	msg := read(t, conn)
	assert.Equal(t, MessageNotification, msg.Type)
	data, ok := msg.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, engine.NotificationGameState, data["type"])
}

func TestRespondForwardsToEngine(t *testing.T) {
	_, eng, srv := startHub(t)
	conn := dial(t, srv, "bob")

	require.NoError(t, conn.WriteJSON(Message{Type: MessageRespond, ActionID: "a1", Params: json.RawMessage(`{"index":2}`)}))
	msg := read(t, conn)
	assert.Equal(t, MessageAck, msg.Type)
	assert.Equal(t, "a1", msg.ActionID)

	require.NoError(t, conn.WriteJSON(Message{Type: MessageRespond, ActionID: "bad"}))
	msg = read(t, conn)
	assert.Equal(t, MessageError, msg.Type)
	assert.Equal(t, "rejected", msg.Error)

	eng.mu.Lock()
	defer eng.mu.Unlock()
	require.Len(t, eng.calls, 2)
	assert.Equal(t, respondCall{"game-1", "bob", "a1", json.RawMessage(`{"index":2}`)}, eng.calls[0])
}

func TestUnknownMessageType(t *testing.T) {
	_, _, srv := startHub(t)
	conn := dial(t, srv, "alice")

	require.NoError(t, conn.WriteJSON(Message{Type: "dance"}))
	msg := read(t, conn)
	assert.Equal(t, MessageError, msg.Type)

	require.NoError(t, conn.WriteJSON(Message{Type: MessageState}))
	msg = read(t, conn)
	assert.Equal(t, MessageState, msg.Type)
	assert.Equal(t, "game-1", msg.GameID)
}

func TestErrorCodes(t *testing.T) {
	assert.Equal(t, "not_your_action", errorCode(engine.ErrNotYourAction))
	assert.Equal(t, "bad_response", errorCode(engine.ErrResponseKind))
	assert.Equal(t, "internal", errorCode(engine.ErrHookFault))
	assert.Equal(t, "game_ended", errorCode(engine.ErrGameEnded))
}
