// Package session is the authoritative state manager for in-progress
// matches. It arbitrates every client action that can end or alter a game
// outside normal move-making, owns the AFK and disconnect countdown timers,
// and guarantees a game concludes exactly once no matter how the two
// connections race.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mvarner/gambit/internal/audit"
	"github.com/mvarner/gambit/internal/chess"
	"github.com/mvarner/gambit/internal/config"
	"github.com/mvarner/gambit/internal/game"
)

// Socket is one player's live connection as the session layer sees it.
type Socket interface {
	ID() string
	PlayerID() string
	// SubscribedColor is the seat color cached on the connection. It is a
	// best-effort fast path; handlers fall back to the authoritative
	// game-membership lookup when it is absent.
	SubscribedColor() (chess.Color, bool)
	Send(msgType string, payload interface{})
}

// Transport is the connection registry the session layer publishes through.
type Transport interface {
	Subscribe(g *game.Game, s Socket, color chess.Color)
	// Unsubscribe detaches a socket from the game feed. When notify is
	// false the client gets no synchronization message about it.
	Unsubscribe(g *game.Game, s Socket, notify bool)
	SendToColor(g *game.Game, color chess.Color, msgType string, payload interface{})
	SendToBoth(g *game.Game, msgType string, payload interface{})
}

// Registry is the process-wide active-game bookkeeping the session layer
// drives but does not own.
type Registry interface {
	IncrementActive()
	DecrementActive()
	AddPlayer(playerID, gameID string)
	RemovePlayer(playerID string)
}

// Outbound message types.
const (
	MsgGameUpdate   = "game:update"
	MsgNotice       = "game:notice"
	MsgError        = "game:error"
	MsgAFKWarning   = "afk:warning"
	MsgAFKCancelled = "afk:cancelled"
	MsgDrawOffer    = "draw:offer"
	MsgDrawDeclined = "draw:declined"
	MsgOppDropped   = "opponent:disconnected"
)

// Manager routes every session action for every active game.
type Manager struct {
	transport Transport
	registry  Registry
	audit     audit.Recorder
	timers    *TimerSupervisor
	concluder *Concluder
	clock     clockwork.Clock

	afkTimeout        time.Duration
	disconnectTimeout time.Duration

	mu    sync.RWMutex
	games map[string]*game.Game
}

func NewManager(t Transport, r Registry, rec audit.Recorder, clock clockwork.Clock, cfg config.GameConfig) *Manager {
	timers := NewTimerSupervisor(clock)
	return &Manager{
		transport:         t,
		registry:          r,
		audit:             rec,
		timers:            timers,
		concluder:         NewConcluder(r, timers),
		clock:             clock,
		afkTimeout:        cfg.AFKTimeout(),
		disconnectTimeout: cfg.DisconnectTimeout(),
		games:             make(map[string]*game.Game),
	}
}

// Seat creates a game with both players in it and registers it as active.
// Matchmaking proper lives outside this core; this is the handoff point.
func (m *Manager) Seat(whiteID, blackID string, untimed bool, publicity game.Publicity) *game.Game {
	g := game.New(uuid.NewString(), whiteID, blackID, untimed, publicity)

	m.mu.Lock()
	m.games[g.ID] = g
	m.mu.Unlock()

	m.registry.AddPlayer(whiteID, g.ID)
	m.registry.AddPlayer(blackID, g.ID)
	m.registry.IncrementActive()

	log.Info().
		Str("gameID", g.ID).
		Str("white", whiteID).
		Str("black", blackID).
		Msg("Game seated")

	return g
}

// Lookup resolves a game ID to its live aggregate, or nil.
func (m *Manager) Lookup(gameID string) *game.Game {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.games[gameID]
}

// resolveColor finds the acting seat: cached subscription color first, then
// the authoritative membership lookup.
func (m *Manager) resolveColor(g *game.Game, s Socket) (chess.Color, bool) {
	if color, ok := s.SubscribedColor(); ok {
		return color, true
	}
	return g.ColorOf(s.PlayerID())
}

// StatePayload is the full game snapshot pushed to clients.
type StatePayload struct {
	GameID      string       `json:"gameId"`
	Moves       []chess.Move `json:"moves"`
	WhosTurn    chess.Color  `json:"whosTurn"`
	FEN         string       `json:"fen"`
	Conclusion  string       `json:"conclusion,omitempty"`
	DrawOffer   string       `json:"drawOffer,omitempty"`
	AFKDeadline int64        `json:"afkDeadline,omitempty"` // unix ms
}

// snapshot builds the client-facing state. Caller holds the game lock.
func snapshot(g *game.Game) StatePayload {
	p := StatePayload{
		GameID:     g.ID,
		Moves:      append([]chess.Move(nil), g.Moves...),
		WhosTurn:   g.WhosTurn,
		FEN:        g.Engine.GetFEN(),
		Conclusion: string(g.Conclusion()),
		DrawOffer:  string(g.DrawOfferBy()),
	}
	if !g.AFKDeadline.IsZero() {
		p.AFKDeadline = g.AFKDeadline.UnixMilli()
	}
	return p
}

type noticePayload struct {
	Message string `json:"message"`
}
