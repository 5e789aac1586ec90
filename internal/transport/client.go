package transport

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/mvarner/gambit/internal/chess"
	"github.com/mvarner/gambit/internal/session"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

var (
	errEmptyPayload  = errors.New("empty report payload")
	errMissingReason = errors.New("report reason is required")
)

// Message is the wire frame in both directions.
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Client is one player's WebSocket connection. It implements
// session.Socket.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	id       string
	playerID string
	gameID   string

	mu       sync.Mutex
	color    chess.Color
	hasColor bool
}

func (c *Client) ID() string       { return c.id }
func (c *Client) PlayerID() string { return c.playerID }

// SubscribedColor returns the cached seat color. Best-effort: set on first
// subscribe, kept across unsubscribe so desync recovery can re-seat us.
func (c *Client) SubscribedColor() (chess.Color, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.color, c.hasColor
}

func (c *Client) cacheColor(color chess.Color) {
	c.mu.Lock()
	c.color = color
	c.hasColor = true
	c.mu.Unlock()
}

// Send marshals and queues one message; a full queue drops the message
// rather than blocking the session core.
func (c *Client) Send(msgType string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Str("type", msgType).Msg("Failed to marshal outbound payload")
		return
	}
	frame, err := json.Marshal(Message{Type: msgType, Data: data})
	if err != nil {
		log.Error().Err(err).Str("type", msgType).Msg("Failed to marshal outbound frame")
		return
	}

	select {
	case c.send <- frame:
	default:
		log.Warn().
			Str("socketID", c.id).
			Str("type", msgType).
			Msg("Send queue full, dropping message")
	}
}

// readPump reads inbound frames and dispatches them to the session core.
func (c *Client) readPump() {
	defer func() {
		g := c.hub.actions.Lookup(c.gameID)
		if g != nil && c.hub.subscribed(c.gameID, c) {
			c.hub.Unsubscribe(g, c, false)
			c.hub.actions.HandleDisconnect(c, g)
		}
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).Str("socketID", c.id).Msg("WebSocket error")
			}
			break
		}

		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			log.Warn().Err(err).Str("socketID", c.id).Msg("Malformed frame, dropping")
			continue
		}

		c.dispatch(msg)
	}
}

// dispatch routes one inbound action. Payloads are validated here, before
// any handler runs.
func (c *Client) dispatch(msg Message) {
	if msg.Type == "ping" {
		c.Send("pong", nil)
		return
	}

	g := c.hub.actions.Lookup(c.gameID)

	switch msg.Type {
	case "join":
		c.hub.actions.Join(c, g)
	case "abort":
		c.hub.actions.Abort(c, g)
	case "resign":
		c.hub.actions.Resign(c, g)
	case "report":
		req, err := parseReport(msg.Data)
		if err != nil {
			log.Warn().Err(err).Str("socketID", c.id).Msg("Invalid cheat report payload")
			c.Send(session.MsgError, map[string]string{"message": "Invalid report payload"})
			return
		}
		c.hub.actions.Report(c, g, req)
	case "afk:declare":
		c.hub.actions.AFKDeclare(c, g)
	case "afk:return":
		c.hub.actions.AFKReturn(c, g)
	case "move":
		var req session.MoveRequest
		if err := json.Unmarshal(msg.Data, &req); err != nil || req.From == "" || req.To == "" {
			c.Send(session.MsgError, map[string]string{"message": "Invalid move payload"})
			return
		}
		c.hub.actions.Move(c, g, req)
	case "draw:offer":
		c.hub.actions.DrawOffer(c, g)
	case "draw:accept":
		c.hub.actions.DrawAccept(c, g)
	case "draw:decline":
		c.hub.actions.DrawDecline(c, g)
	default:
		log.Warn().Str("socketID", c.id).Str("type", msg.Type).Msg("Unknown action")
	}
}

// parseReport schema-validates the cheat report payload: a non-empty string
// reason and an integer move number, nothing else passes.
func parseReport(data json.RawMessage) (session.ReportRequest, error) {
	var req session.ReportRequest
	if len(data) == 0 {
		return req, errEmptyPayload
	}
	if err := json.Unmarshal(data, &req); err != nil {
		return req, err
	}
	if req.Reason == "" {
		return req, errMissingReason
	}
	return req, nil
}

// writePump drains the send queue and keeps the connection alive.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
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
