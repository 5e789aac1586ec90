package session

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mvarner/gambit/internal/audit"
	"github.com/mvarner/gambit/internal/chess"
	"github.com/mvarner/gambit/internal/game"
)

// Every handler re-checks the conclusion and resignability at the top of its
// own invocation under the game lock. Two actions racing on one game are
// serialized there; the first to observe no conclusion wins, the loser is
// rejected or desynced, never double-applied.

// Abort ends a game that has not really started yet. Legal only while fewer
// than two plies have been played.
func (m *Manager) Abort(s Socket, g *game.Game) {
	if g == nil {
		log.Error().Str("socketID", s.ID()).Msg("Abort requested with no game")
		return
	}

	g.Lock()
	defer g.Unlock()

	// The client has already left the board visually. Drop their feed with
	// no sync message, and finalize the leave whatever we decide below.
	m.transport.Unsubscribe(g, s, false)
	m.concluder.RemoveFromActivePlayers(s)

	if g.Conclusion() == game.ConclusionAborted {
		// Opponent's abort got here first. Nothing more to send.
		return
	}
	if g.Over() {
		// Desync: the client thinks the game is live. Put them back on the
		// feed so they see the true outcome.
		s.Send(MsgNotice, noticePayload{Message: "Can't abort, the game is already over"})
		m.resubscribe(g, s)
		return
	}
	if g.Resignable() {
		s.Send(MsgError, noticePayload{Message: "Can't abort a game after moves have been played"})
		m.resubscribe(g, s)
		return
	}

	if m.concluder.SetConclusion(g, game.ConclusionAborted) {
		if color, ok := m.resolveColor(g, s); ok {
			m.transport.SendToColor(g, color.Opponent(), MsgGameUpdate, snapshot(g))
		}
	}
}

// Resign concedes the game. Unlike abort this is never rejected on ply
// count: resigning before the game is resignable is a client bug worth a
// warning, but the server still honors it as an escape hatch.
func (m *Manager) Resign(s Socket, g *game.Game) {
	if g == nil {
		log.Error().Str("socketID", s.ID()).Msg("Resign requested with no game")
		return
	}

	g.Lock()
	defer g.Unlock()

	m.transport.Unsubscribe(g, s, false)
	m.concluder.RemoveFromActivePlayers(s)

	if g.Over() {
		s.Send(MsgNotice, noticePayload{Message: "Can't resign, the game is already over"})
		m.resubscribe(g, s)
		return
	}

	color, ok := m.resolveColor(g, s)
	if !ok {
		log.Error().
			Str("gameID", g.ID).
			Str("socketID", s.ID()).
			Msg("Resigning socket is not a member of the game")
		return
	}

	if !g.Resignable() {
		log.Warn().
			Str("gameID", g.ID).
			Str("color", string(color)).
			Int("plies", len(g.Moves)).
			Msg("Resignation before the game is resignable")
	}

	winner := color.Opponent()
	if m.concluder.SetConclusion(g, game.Resignation(winner)) {
		m.transport.SendToColor(g, winner, MsgGameUpdate, snapshot(g))
	}
}

// ReportRequest is the schema-validated cheat report payload.
type ReportRequest struct {
	Reason              string `json:"reason"`
	OpponentsMoveNumber int    `json:"opponentsMoveNumber"`
}

// Report flags the opponent's last move as suspected cheating. On success
// the move is retracted and the game aborts; the only handler that mutates
// the move list.
func (m *Manager) Report(s Socket, g *game.Game, req ReportRequest) {
	if g == nil {
		log.Error().Str("socketID", s.ID()).Msg("Cheat report with no game")
		return
	}

	g.Lock()
	defer g.Unlock()

	if g.Over() {
		s.Send(MsgNotice, noticePayload{Message: "Can't report, the game is already over"})
		return
	}

	reporter, ok := m.resolveColor(g, s)
	if !ok {
		log.Error().
			Str("gameID", g.ID).
			Str("socketID", s.ID()).
			Msg("Reporting socket is not a member of the game")
		return
	}

	if g.Publicity != game.Public {
		m.audit.Record(fmt.Sprintf(
			"cheat report rejected: game %s is private, reporter %s, reason %q",
			g.ID, reporter, req.Reason,
		), audit.CategoryRejected)
		s.Send(MsgError, noticePayload{Message: "Cheating can only be reported in public games"})
		return
	}

	if author, ok := g.ColorThatPlayedPly(len(g.Moves) - 1); ok && author == reporter {
		m.audit.Record(fmt.Sprintf(
			"cheat report rejected: reporter %s authored the last move of game %s, reason %q",
			reporter, g.ID, req.Reason,
		), audit.CategoryRejected)
		s.Send(MsgError, noticePayload{Message: "Can't report your own move"})
		return
	}

	// The reported move is retracted before the game concludes; it stays
	// out of the record as unverified.
	popped, _ := g.PopLastMove()

	m.audit.Record(fmt.Sprintf(
		"cheat report: game %s, reporter %s, suspected %s, move %s removed, claimed move number %d, reason %q",
		g.ID, reporter, reporter.Opponent(), popped.SAN, req.OpponentsMoveNumber, req.Reason,
	), audit.CategoryCheatReport)

	m.transport.SendToBoth(g, MsgNotice, noticePayload{Message: "Game aborted for suspected cheating"})

	if m.concluder.SetConclusion(g, game.ConclusionAborted) {
		m.transport.SendToBoth(g, MsgGameUpdate, snapshot(g))
	}
}

// afkPayload tells the opponent how long the countdown has left.
type afkPayload struct {
	Color     chess.Color `json:"color"`
	RemainsMs int64       `json:"remainsMs,omitempty"`
	Deadline  int64       `json:"deadline,omitempty"` // unix ms
}

// AFKDeclare starts the away-from-keyboard countdown against the declaring
// player. Failed preconditions are logged, never surfaced to the client; the
// declare itself came from an automatic client-side idle detector.
func (m *Manager) AFKDeclare(s Socket, g *game.Game) {
	if g == nil {
		log.Error().Str("socketID", s.ID()).Msg("AFK declared with no game")
		return
	}

	g.Lock()
	defer g.Unlock()

	color, ok := m.afkPreconditions("declare", s, g)
	if !ok {
		return
	}

	if m.timers.Armed(g.ID, color, TimerDisconnect) {
		// The disconnect timer should have been cancelled before any AFK
		// declare can arrive on a live socket. Server bug signal; cancel it
		// and carry on.
		log.Error().
			Str("gameID", g.ID).
			Str("color", string(color)).
			Bool("bug", true).
			Msg("Disconnect timer still armed at AFK declare")
		m.timers.Cancel(g.ID, color, TimerDisconnect)
	}

	deadline := m.timers.Arm(g.ID, color, TimerAFK, m.afkTimeout, func() {
		m.abandonmentLoss(g, color)
	})
	g.AFKDeadline = deadline

	m.transport.SendToColor(g, color.Opponent(), MsgAFKWarning, afkPayload{
		Color:     color,
		RemainsMs: m.afkTimeout.Milliseconds(),
		Deadline:  deadline.UnixMilli(),
	})
}

// AFKReturn cancels the countdown when the player comes back in time.
func (m *Manager) AFKReturn(s Socket, g *game.Game) {
	if g == nil {
		log.Error().Str("socketID", s.ID()).Msg("AFK return with no game")
		return
	}

	g.Lock()
	defer g.Unlock()

	color, ok := m.afkPreconditions("return", s, g)
	if !ok {
		return
	}

	if m.timers.Cancel(g.ID, color, TimerAFK) {
		g.AFKDeadline = time.Time{}
		m.transport.SendToColor(g, color.Opponent(), MsgAFKCancelled, afkPayload{Color: color})
	}
}

// afkPreconditions holds the checks shared by declare and return: game not
// over, acting color's turn, and not a timed game past the resignable
// threshold (real clocks take over from AFK policy there).
func (m *Manager) afkPreconditions(action string, s Socket, g *game.Game) (chess.Color, bool) {
	if g.Over() {
		log.Error().
			Str("gameID", g.ID).
			Str("action", action).
			Msg("AFK action on a concluded game")
		return "", false
	}

	color, ok := m.resolveColor(g, s)
	if !ok {
		log.Error().
			Str("gameID", g.ID).
			Str("socketID", s.ID()).
			Str("action", action).
			Msg("AFK action from a socket that is not a member of the game")
		return "", false
	}

	if g.WhosTurn != color {
		log.Error().
			Str("gameID", g.ID).
			Str("color", string(color)).
			Str("action", action).
			Msg("AFK action out of turn")
		return "", false
	}

	if !g.Untimed && g.Resignable() {
		log.Error().
			Str("gameID", g.ID).
			Str("color", string(color)).
			Str("action", action).
			Msg("AFK action in a timed game past the resignable threshold")
		return "", false
	}

	return color, true
}

// abandonmentLoss is the shared expiry path for both timer kinds: the
// offender loses to their opponent, unless something else concluded the game
// while the timer was in flight.
func (m *Manager) abandonmentLoss(g *game.Game, offender chess.Color) {
	g.Lock()
	defer g.Unlock()

	if g.Over() {
		return
	}

	g.AFKDeadline = time.Time{}
	winner := offender.Opponent()
	if m.concluder.SetConclusion(g, game.Abandonment(winner)) {
		m.transport.SendToBoth(g, MsgGameUpdate, snapshot(g))
	}
}

// resubscribe puts a desynced socket back on the game feed under its seat.
func (m *Manager) resubscribe(g *game.Game, s Socket) {
	if color, ok := m.resolveColor(g, s); ok {
		m.transport.Subscribe(g, s, color)
	}
}
