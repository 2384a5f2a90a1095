// Package notify pushes engine notifications to websocket clients and
// forwards their responses back to the engine.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/magefree/arena-server-go/internal/game/engine"
	"github.com/magefree/arena-server-go/internal/game/model"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 256
)

// Message types exchanged with clients.
const (
	MessageNotification = "notification"
	MessageRespond      = "respond"
	MessageState        = "state"
	MessageAck          = "ack"
	MessageError        = "error"
)

// Engine is the part of the game engine the hub talks to.
type Engine interface {
	Respond(ctx context.Context, gameID, userID, actionID string, params json.RawMessage) error
	Game(ctx context.Context, id string) (*model.GameInstance, error)
}

// Message is the envelope of every websocket frame.
type Message struct {
	Type     string          `json:"type"`
	GameID   string          `json:"gameId,omitempty"`
	ActionID string          `json:"actionId,omitempty"`
	Params   json.RawMessage `json:"params,omitempty"`
	Data     any             `json:"data,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// Hub tracks connected clients per game.
type Hub struct {
	engine   Engine
	logger   *zap.Logger
	upgrader websocket.Upgrader

	register   chan *Client
	unregister chan *Client
	outbound   chan engine.Notification
	done       chan struct{}

	mu      sync.RWMutex
	clients map[string]map[*Client]struct{} // game id -> clients
}

// NewHub creates a hub. Call Run before serving connections.
func NewHub(eng Engine, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		engine: eng,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		register:   make(chan *Client),
		unregister: make(chan *Client),
		outbound:   make(chan engine.Notification, sendBuffer),
		done:       make(chan struct{}),
		clients:    make(map[string]map[*Client]struct{}),
	}
}

// Run processes registrations and notifications until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case c := <-h.register:
			h.mu.Lock()
			set, ok := h.clients[c.gameID]
			if !ok {
				set = make(map[*Client]struct{})
				h.clients[c.gameID] = set
			}
			set[c] = struct{}{}
			h.mu.Unlock()
			h.logger.Debug("client registered",
				zap.String("game_id", c.gameID),
				zap.String("user_id", c.userID),
			)
		case c := <-h.unregister:
			h.remove(c)
		case n := <-h.outbound:
			h.deliver(n)
		}
	}
}

// Handle queues a notification for delivery. It matches
// engine.NotificationHandler.
func (h *Hub) Handle(n engine.Notification) {
	select {
	case h.outbound <- n:
	default:
		h.logger.Warn("notification dropped, hub backlog full",
			zap.String("game_id", n.GameID),
			zap.String("type", n.Type),
		)
	}
}

// ClientCount returns how many clients watch a game.
func (h *Hub) ClientCount(gameID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[gameID])
}

func (h *Hub) deliver(n engine.Notification) {
	payload, err := json.Marshal(Message{Type: MessageNotification, GameID: n.GameID, Data: n})
	if err != nil {
		h.logger.Error("failed to encode notification", zap.Error(err))
		return
	}

	h.mu.RLock()
	var stale []*Client
	for c := range h.clients[n.GameID] {
		if n.PlayerID != "" && c.userID != n.PlayerID {
			continue
		}
		if !c.enqueue(payload) {
			stale = append(stale, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range stale {
		h.logger.Warn("dropping slow client",
			zap.String("game_id", c.gameID),
			zap.String("user_id", c.userID),
		)
		h.remove(c)
	}
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	set, ok := h.clients[c.gameID]
	if ok {
		if _, present := set[c]; present {
			delete(set, c)
			if len(set) == 0 {
				delete(h.clients, c.gameID)
			}
		} else {
			ok = false
		}
	}
	h.mu.Unlock()
	if ok {
		c.close()
		h.logger.Debug("client unregistered",
			zap.String("game_id", c.gameID),
			zap.String("user_id", c.userID),
		)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, set := range h.clients {
		for c := range set {
			c.close()
		}
	}
	h.clients = make(map[string]map[*Client]struct{})
}

// ServeHTTP upgrades the request. The game and user come from the
// game_id and user_id query parameters.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	gameID := r.URL.Query().Get("game_id")
	userID := r.URL.Query().Get("user_id")
	if gameID == "" || userID == "" {
		http.Error(w, "game_id and user_id are required", http.StatusBadRequest)
		return
	}

	inst, err := h.engine.Game(r.Context(), gameID)
	if err != nil {
		http.Error(w, "game not found", http.StatusNotFound)
		return
	}
	if inst.User(userID) == nil {
		http.Error(w, "user is not seated in this game", http.StatusForbidden)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &Client{
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		gameID: gameID,
		userID: userID,
	}
	select {
	case h.register <- c:
	case <-h.done:
		_ = conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()

	c.reply(Message{Type: MessageState, GameID: gameID, Data: inst})
}

// handleMessage runs one client request against the engine.
func (h *Hub) handleMessage(c *Client, msg Message) {
	ctx, cancel := context.WithTimeout(context.Background(), writeWait)
	defer cancel()

	switch msg.Type {
	case MessageRespond:
		err := h.engine.Respond(ctx, c.gameID, c.userID, msg.ActionID, msg.Params)
		if err != nil {
			h.logger.Debug("response refused",
				zap.String("game_id", c.gameID),
				zap.String("user_id", c.userID),
				zap.String("action_id", msg.ActionID),
				zap.Error(err),
			)
			c.reply(Message{Type: MessageError, ActionID: msg.ActionID, Error: errorCode(err)})
			return
		}
		c.reply(Message{Type: MessageAck, ActionID: msg.ActionID})

	case MessageState:
		inst, err := h.engine.Game(ctx, c.gameID)
		if err != nil {
			c.reply(Message{Type: MessageError, Error: errorCode(err)})
			return
		}
		c.reply(Message{Type: MessageState, GameID: c.gameID, Data: inst})

	default:
		c.reply(Message{Type: MessageError, Error: "unknown message type"})
	}
}

// errorCode maps engine errors onto stable client codes.
func errorCode(err error) string {
	switch {
	case errors.Is(err, engine.ErrGameNotFound):
		return "game_not_found"
	case errors.Is(err, engine.ErrGameEnded):
		return "game_ended"
	case errors.Is(err, engine.ErrActionNotFound):
		return "action_not_found"
	case errors.Is(err, engine.ErrNotYourAction):
		return "not_your_action"
	case errors.Is(err, engine.ErrNotDecidable):
		return "not_decidable"
	case errors.Is(err, engine.ErrResponseKind):
		return "bad_response"
	case errors.Is(err, engine.ErrRejected):
		return "rejected"
	default:
		return "internal"
	}
}
