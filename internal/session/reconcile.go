package session

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mvarner/gambit/internal/game"
)

// Join (re)attaches a socket to its in-progress game: subscribe under the
// resolved seat, settle any AFK countdown the reconnect resolves, and always
// clear the disconnect countdown for that seat.
func (m *Manager) Join(s Socket, g *game.Game) {
	if g == nil {
		// Socket has no game; nothing to reconcile.
		log.Debug().Str("socketID", s.ID()).Msg("Join with no game")
		return
	}

	g.Lock()
	defer g.Unlock()

	color, ok := m.resolveColor(g, s)
	if !ok {
		log.Error().
			Str("gameID", g.ID).
			Str("socketID", s.ID()).
			Msg("Joining socket is not a member of the game")
		return
	}

	m.transport.Subscribe(g, s, color)

	// A player reconnecting on their own turn is by definition not AFK.
	if g.WhosTurn == color && m.timers.Cancel(g.ID, color, TimerAFK) {
		g.AFKDeadline = time.Time{}
		m.transport.SendToColor(g, color.Opponent(), MsgAFKCancelled, afkPayload{Color: color})
	}

	m.timers.Cancel(g.ID, color, TimerDisconnect)

	// Sync the rejoiner with the authoritative state.
	s.Send(MsgGameUpdate, snapshot(g))

	log.Info().
		Str("gameID", g.ID).
		Str("color", string(color)).
		Msg("Socket rejoined game")
}

// HandleDisconnect is the transport's notification that a player's socket
// dropped. Arms the disconnect auto-resign countdown unless the game is
// already settled; a rejoin cancels it.
func (m *Manager) HandleDisconnect(s Socket, g *game.Game) {
	if g == nil {
		return
	}

	g.Lock()
	defer g.Unlock()

	if g.Over() {
		return
	}

	color, ok := m.resolveColor(g, s)
	if !ok {
		return
	}

	deadline := m.timers.Arm(g.ID, color, TimerDisconnect, m.disconnectTimeout, func() {
		m.abandonmentLoss(g, color)
	})

	m.transport.SendToColor(g, color.Opponent(), MsgOppDropped, afkPayload{
		Color:     color,
		RemainsMs: m.disconnectTimeout.Milliseconds(),
		Deadline:  deadline.UnixMilli(),
	})

	log.Info().
		Str("gameID", g.ID).
		Str("color", string(color)).
		Msg("Player disconnected, auto-resign countdown armed")
}
