package handler

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/freeeve/commander-clash/api/internal/service"
)

// Event types that only exist on the socket; battle events come from the
// service package.
const (
	EventConnected    = "connected"
	EventPickAccepted = "pick_accepted"
	EventPickRejected = "pick_rejected"

	EventSubscribeRejected = "subscribe_rejected"
)

// ErrNotWatching is returned when a player subscribes to a battle that is not
// their running battle.
var ErrNotWatching = errors.New("battle not found")

// BattleAccess reports whether a player may follow a battle.
type BattleAccess interface {
	Watching(playerID, battleID string) bool
}

// WSEvent is the envelope for all WebSocket messages.
type WSEvent struct {
	Type     string `json:"type"`
	BattleID string `json:"battle_id"`
	Data     any    `json:"data"`
}

// ClientMessage is the envelope for messages sent from the client.
type ClientMessage struct {
	Action   string `json:"action"` // "subscribe", "unsubscribe" or "pick"
	BattleID string `json:"battle_id"`
	Unit     string `json:"unit,omitempty"`
}

// WSConn wraps a WebSocket connection with its player and subscriptions.
type WSConn struct {
	conn     *websocket.Conn
	playerID string
	send     chan []byte
}

// Hub manages WebSocket connections and battle-channel subscriptions. It
// remembers the open decision window of each battle so a late subscriber is
// told about it.
type Hub struct {
	mu          sync.RWMutex
	connections map[*WSConn]bool
	battles     map[string]map[*WSConn]bool // battleID -> set of connections
	windows     map[string][]byte           // battleID -> encoded window_opened
	access      BattleAccess
}

// NewHub creates a new Hub. Until SetAccess is called any player may
// subscribe to any battle.
func NewHub() *Hub {
	return &Hub{
		connections: make(map[*WSConn]bool),
		battles:     make(map[string]map[*WSConn]bool),
		windows:     make(map[string][]byte),
	}
}

// SetAccess installs the ownership check applied by Subscribe.
func (h *Hub) SetAccess(a BattleAccess) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.access = a
}

// Register adds a connection to the hub.
func (h *Hub) Register(c *WSConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.connections[c] = true
}

// Unregister removes a connection from the hub and all its subscriptions.
func (h *Hub) Unregister(c *WSConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.connections[c] {
		return
	}
	delete(h.connections, c)
	for battleID, conns := range h.battles {
		delete(conns, c)
		if len(conns) == 0 {
			delete(h.battles, battleID)
		}
	}
	close(c.send)
}

// Subscribe adds a connection to a battle channel and replays the battle's
// open decision window, if any.
func (h *Hub) Subscribe(c *WSConn, battleID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.access != nil && !h.access.Watching(c.playerID, battleID) {
		return ErrNotWatching
	}
	if h.battles[battleID] == nil {
		h.battles[battleID] = make(map[*WSConn]bool)
	}
	h.battles[battleID][c] = true

	if window, ok := h.windows[battleID]; ok && h.connections[c] {
		select {
		case c.send <- window:
		default:
		}
	}
	return nil
}

// Unsubscribe removes a connection from a battle channel.
func (h *Hub) Unsubscribe(c *WSConn, battleID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.battles[battleID]; ok {
		delete(conns, c)
		if len(conns) == 0 {
			delete(h.battles, battleID)
		}
	}
}

// BroadcastToBattle sends an event to all connections subscribed to a battle.
func (h *Hub) BroadcastToBattle(battleID string, event WSEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("battleId", battleID).Msg("Failed to marshal WebSocket event")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.track(battleID, event.Type, data)

	for c := range h.battles[battleID] {
		select {
		case c.send <- data:
		default:
			log.Warn().Str("playerId", c.playerID).Str("battleId", battleID).Msg("Dropping WebSocket message, buffer full")
		}
	}
	if terminal(event.Type) {
		delete(h.battles, battleID)
	}
}

// track keeps the open window of a battle. Callers hold h.mu.
func (h *Hub) track(battleID, eventType string, data []byte) {
	switch {
	case eventType == service.EventWindowOpened:
		h.windows[battleID] = data
	case eventType == service.EventRoundResolved, terminal(eventType):
		delete(h.windows, battleID)
	}
}

func terminal(eventType string) bool {
	return eventType == service.EventBattleEnded || eventType == service.EventBattleAborted
}

// SendTo queues an event for a single connection.
func (h *Hub) SendTo(c *WSConn, event WSEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("playerId", c.playerID).Msg("Failed to marshal WebSocket event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if !h.connections[c] {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

// ConnectionCount returns the total number of active connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// OpenWindow reports whether the hub holds an open decision window for a
// battle.
func (h *Hub) OpenWindow(battleID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.windows[battleID]
	return ok
}

// BattleSubscriberCount returns the number of connections subscribed to a battle.
func (h *Hub) BattleSubscriberCount(battleID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.battles[battleID])
}
