package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/commander-clash/api/internal/auth"
	"github.com/freeeve/commander-clash/api/pkg/battle"
	"github.com/gorilla/websocket"
)

const (
	writeWait   = 10 * time.Second
	pongWait    = 60 * time.Second
	pingPeriod  = 54 * time.Second // Must be less than pongWait
	maxMsgSize  = 4096
	sendBufSize = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // CORS handled by middleware; tighten in production
	},
}

// LiveBattles is the running-battle surface the socket needs: ownership
// checks for subscriptions and pick submission.
type LiveBattles interface {
	BattleAccess
	SubmitPick(playerID, battleID string, u battle.UnitType) error
}

// WSHandler handles WebSocket connections.
type WSHandler struct {
	hub    *Hub
	jwtMgr *auth.JWTManager
	picks  LiveBattles
}

// NewWSHandler creates a WSHandler.
// Subscriptions on hub are restricted to the owners reported by picks.
func NewWSHandler(hub *Hub, jwtMgr *auth.JWTManager, picks LiveBattles) *WSHandler {
	hub.SetAccess(picks)
	return &WSHandler{hub: hub, jwtMgr: jwtMgr, picks: picks}
}

// ServeWS handles GET /api/v1/ws and upgrades to WebSocket. The token comes
// from the ?token= query parameter.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	playerID, err := h.jwtMgr.Authenticate(r, auth.QueryToken)
	if err != nil {
		auth.WriteError(w, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	client := &WSConn{
		conn:     conn,
		playerID: playerID,
		send:     make(chan []byte, sendBufSize),
	}
	h.hub.Register(client)
	h.hub.SendTo(client, WSEvent{Type: EventConnected, Data: map[string]any{}})

	go h.writePump(client)
	go h.readPump(client)

	log.Info().Str("playerId", playerID).Int("total", h.hub.ConnectionCount()).Msg("WebSocket client connected")
}

// handleMessage applies one client message.
func (h *WSHandler) handleMessage(c *WSConn, msg ClientMessage) {
	if msg.BattleID == "" {
		return
	}
	switch msg.Action {
	case "subscribe":
		if err := h.hub.Subscribe(c, msg.BattleID); err != nil {
			h.hub.SendTo(c, WSEvent{
				Type:     EventSubscribeRejected,
				BattleID: msg.BattleID,
				Data:     map[string]string{"error": err.Error()},
			})
		}
	case "unsubscribe":
		h.hub.Unsubscribe(c, msg.BattleID)
	case "pick":
		u, err := battle.ParseUnitType(msg.Unit)
		if err == nil {
			err = h.picks.SubmitPick(c.playerID, msg.BattleID, u)
		}
		if err != nil {
			h.hub.SendTo(c, WSEvent{
				Type:     EventPickRejected,
				BattleID: msg.BattleID,
				Data:     map[string]string{"unit": msg.Unit, "error": err.Error()},
			})
			return
		}
		h.hub.SendTo(c, WSEvent{
			Type:     EventPickAccepted,
			BattleID: msg.BattleID,
			Data:     map[string]string{"unit": u.String()},
		})
	}
}

// readPump reads messages from the WebSocket connection.
func (h *WSHandler) readPump(c *WSConn) {
	defer func() {
		h.hub.Unregister(c)
		c.conn.Close()
		log.Info().Str("playerId", c.playerID).Msg("WebSocket client disconnected")
	}()

	c.conn.SetReadLimit(maxMsgSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("playerId", c.playerID).Msg("WebSocket unexpected close")
			}
			break
		}

		var msg ClientMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}
		h.handleMessage(c, msg)
	}
}

// writePump writes messages to the WebSocket connection.
func (h *WSHandler) writePump(c *WSConn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Drain queued messages into the same write
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte("\n"))
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
