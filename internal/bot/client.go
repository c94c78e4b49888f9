package bot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/freeeve/commander-clash/api/internal/model"
	"github.com/freeeve/commander-clash/api/pkg/battle"
)

// Server-sent event types the remote player reacts to.
const (
	EventWindowOpened  = "window_opened"
	EventRoundResolved = "round_resolved"
	EventBattleEnded   = "battle_ended"
	EventBattleAborted = "battle_aborted"
)

// WSEvent mirrors handler.WSEvent for client-side deserialization.
type WSEvent struct {
	Type     string          `json:"type"`
	BattleID string          `json:"battle_id"`
	Data     json.RawMessage `json:"data"`
}

// BattleView mirrors the GET /battles/{id} response. Deadline is set while a
// decision window is open.
type BattleView struct {
	model.Battle
	Live     *battle.Snapshot `json:"live,omitempty"`
	Deadline *time.Time       `json:"deadline,omitempty"`
}

// Client is an HTTP+WebSocket client for a single remote player.
type Client struct {
	name     string
	baseURL  string
	token    string
	playerID string
	wsConn   *websocket.Conn
	events   chan WSEvent
	httpC    *http.Client
	mu       sync.Mutex
	closedWS bool
}

// NewClient creates a new client targeting the given server URL.
func NewClient(name, baseURL string) *Client {
	return &Client{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		events:  make(chan WSEvent, 64),
		httpC:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Name returns the player name.
func (c *Client) Name() string { return c.name }

// PlayerID returns the server-assigned player ID after login.
func (c *Client) PlayerID() string { return c.playerID }

// Login authenticates via the dev login endpoint.
func (c *Client) Login(ctx context.Context) error {
	var tok struct {
		AccessToken string `json:"access_token"`
		PlayerID    string `json:"player_id"`
	}
	if err := c.do(ctx, http.MethodPost, "/auth/dev", map[string]string{"name": c.name}, &tok); err != nil {
		return fmt.Errorf("dev login: %w", err)
	}
	c.token = tok.AccessToken
	c.playerID = tok.PlayerID
	log.Debug().Str("bot", c.name).Str("playerId", c.playerID).Msg("Bot logged in")
	return nil
}

// ListCommanders fetches the commander ladder.
func (c *Client) ListCommanders(ctx context.Context) ([]model.Commander, error) {
	var out []model.Commander
	err := c.do(ctx, http.MethodGet, "/api/v1/commanders", nil, &out)
	return out, err
}

// StartBattle starts a battle against the given commander.
func (c *Client) StartBattle(ctx context.Context, commanderID string) (*model.Battle, error) {
	var b model.Battle
	if err := c.do(ctx, http.MethodPost, "/api/v1/battles", map[string]string{"commander_id": commanderID}, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// GetBattle fetches a battle with its live snapshot.
func (c *Client) GetBattle(ctx context.Context, battleID string) (*BattleView, error) {
	var v BattleView
	if err := c.do(ctx, http.MethodGet, "/api/v1/battles/"+url.PathEscape(battleID), nil, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// SubmitPick sends a pick for the open decision window over HTTP.
func (c *Client) SubmitPick(ctx context.Context, battleID string, u battle.UnitType) error {
	return c.do(ctx, http.MethodPost, "/api/v1/battles/"+url.PathEscape(battleID)+"/pick",
		map[string]string{"unit": u.String()}, nil)
}

// ConnectWS opens a WebSocket connection and starts listening for events.
func (c *Client) ConnectWS(ctx context.Context) error {
	wsURL := strings.Replace(c.baseURL, "http", "ws", 1) + "/api/v1/ws?token=" + url.QueryEscape(c.token)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("ws dial: %w", err)
	}
	c.wsConn = conn

	go c.readWSLoop()
	return nil
}

// SubscribeBattle sends a subscribe message for the given battle.
func (c *Client) SubscribeBattle(battleID string) error {
	msg := map[string]string{"action": "subscribe", "battle_id": battleID}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.wsConn.WriteJSON(msg)
}

// Events returns the channel of incoming WebSocket events.
func (c *Client) Events() <-chan WSEvent { return c.events }

// CloseWS closes the WebSocket connection.
func (c *Client) CloseWS() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.wsConn != nil && !c.closedWS {
		c.closedWS = true
		c.wsConn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.wsConn.Close()
	}
}

func (c *Client) readWSLoop() {
	defer close(c.events)
	for {
		_, msg, err := c.wsConn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			closed := c.closedWS
			c.mu.Unlock()
			if !closed {
				log.Debug().Err(err).Str("bot", c.name).Msg("WS read error")
			}
			return
		}
		// The server batches queued events into one frame, newline separated.
		dec := json.NewDecoder(bytes.NewReader(msg))
		for {
			var event WSEvent
			if err := dec.Decode(&event); err != nil {
				break
			}
			c.events <- event
		}
	}
}

// do sends a JSON request and decodes the response into out when non-nil.
func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	var bodyReader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpC.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, body)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
