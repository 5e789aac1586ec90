// Package transport owns the WebSocket surface: connection registry,
// message framing, payload validation, and dispatch into the session core.
package transport

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/mvarner/gambit/internal/chess"
	"github.com/mvarner/gambit/internal/game"
	"github.com/mvarner/gambit/internal/session"
)

// Hub tracks which socket holds which seat of which game. It implements
// session.Transport; the session core never touches websockets directly.
type Hub struct {
	mu    sync.RWMutex
	seats map[string]map[chess.Color]session.Socket // game ID -> color -> socket

	actions *session.Manager
}

func NewHub() *Hub {
	return &Hub{
		seats: make(map[string]map[chess.Color]session.Socket),
	}
}

// SetActions wires in the session core. Separate from the constructor
// because hub and manager reference each other.
func (h *Hub) SetActions(m *session.Manager) {
	h.actions = m
}

// Subscribe attaches a socket to a game feed under a seat color, replacing
// any previous socket on that seat.
func (h *Hub) Subscribe(g *game.Game, s session.Socket, color chess.Color) {
	h.mu.Lock()
	if h.seats[g.ID] == nil {
		h.seats[g.ID] = make(map[chess.Color]session.Socket)
	}
	h.seats[g.ID][color] = s
	h.mu.Unlock()

	if c, ok := s.(*Client); ok {
		c.cacheColor(color)
	}

	log.Info().
		Str("gameID", g.ID).
		Str("color", string(color)).
		Str("socketID", s.ID()).
		Msg("Socket subscribed to game")
}

// Unsubscribe detaches a socket from the game feed. With notify the client
// is told; without, the feed just goes quiet (the client already left).
func (h *Hub) Unsubscribe(g *game.Game, s session.Socket, notify bool) {
	h.mu.Lock()
	if seats, ok := h.seats[g.ID]; ok {
		for color, sock := range seats {
			if sock.ID() == s.ID() {
				delete(seats, color)
			}
		}
		if len(seats) == 0 {
			delete(h.seats, g.ID)
		}
	}
	h.mu.Unlock()

	if notify {
		s.Send("unsubscribed", map[string]string{"gameId": g.ID})
	}

	log.Info().
		Str("gameID", g.ID).
		Str("socketID", s.ID()).
		Msg("Socket unsubscribed from game")
}

// SendToColor delivers a message to the socket holding one seat, if any.
func (h *Hub) SendToColor(g *game.Game, color chess.Color, msgType string, payload interface{}) {
	h.mu.RLock()
	sock := h.seats[g.ID][color]
	h.mu.RUnlock()

	if sock != nil {
		sock.Send(msgType, payload)
	}
}

// SendToBoth delivers a message to both seats.
func (h *Hub) SendToBoth(g *game.Game, msgType string, payload interface{}) {
	h.SendToColor(g, chess.White, msgType, payload)
	h.SendToColor(g, chess.Black, msgType, payload)
}

// subscribed reports whether the socket currently holds a seat in the game.
func (h *Hub) subscribed(gameID string, s session.Socket) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sock := range h.seats[gameID] {
		if sock.ID() == s.ID() {
			return true
		}
	}
	return false
}
