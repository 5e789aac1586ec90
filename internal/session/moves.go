package session

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mvarner/gambit/internal/chess"
	"github.com/mvarner/gambit/internal/game"
)

// MoveRequest is a move in coordinate notation.
type MoveRequest struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Promotion string `json:"promotion,omitempty"`
}

// Move plays one half-move. Legality is the rules engine's call; this layer
// only guards turn order and liveness, then records the ply.
func (m *Manager) Move(s Socket, g *game.Game, req MoveRequest) {
	if g == nil {
		log.Error().Str("socketID", s.ID()).Msg("Move with no game")
		return
	}

	g.Lock()
	defer g.Unlock()

	if g.Over() {
		s.Send(MsgNotice, noticePayload{Message: "Can't move, the game is already over"})
		return
	}

	color, ok := m.resolveColor(g, s)
	if !ok {
		log.Error().
			Str("gameID", g.ID).
			Str("socketID", s.ID()).
			Msg("Move from a socket that is not a member of the game")
		return
	}

	if g.WhosTurn != color {
		s.Send(MsgError, noticePayload{Message: "Not your turn"})
		return
	}

	result, err := g.Engine.MakeMove(req.From, req.To, chess.ParsePromotion(req.Promotion))
	if err != nil {
		log.Info().
			Str("gameID", g.ID).
			Str("from", req.From).
			Str("to", req.To).
			Err(err).
			Msg("Illegal move rejected")
		s.Send(MsgError, noticePayload{Message: "Illegal move"})
		return
	}

	g.AppendMove(result.Move)

	// Playing on answers an open draw offer with a decline.
	if g.DrawOfferOpen() {
		offeredBy := g.DrawOfferBy()
		g.CloseDrawOffer()
		if offeredBy != color {
			m.transport.SendToColor(g, offeredBy, MsgDrawDeclined, noticePayload{Message: "Draw offer declined by moving"})
		}
	}

	// Making a move is proof of presence.
	if m.timers.Cancel(g.ID, color, TimerAFK) {
		g.AFKDeadline = time.Time{}
		m.transport.SendToColor(g, color.Opponent(), MsgAFKCancelled, afkPayload{Color: color})
	}

	if result.GameOver && result.Terminal != "" {
		m.concluder.SetConclusion(g, game.Conclusion(result.Terminal))
	}

	m.transport.SendToBoth(g, MsgGameUpdate, snapshot(g))
}

// DrawOffer opens a draw proposal by the acting color.
func (m *Manager) DrawOffer(s Socket, g *game.Game) {
	if g == nil {
		log.Error().Str("socketID", s.ID()).Msg("Draw offer with no game")
		return
	}

	g.Lock()
	defer g.Unlock()

	if g.Over() {
		s.Send(MsgNotice, noticePayload{Message: "Can't offer a draw, the game is already over"})
		return
	}

	color, ok := m.resolveColor(g, s)
	if !ok {
		log.Error().
			Str("gameID", g.ID).
			Str("socketID", s.ID()).
			Msg("Draw offer from a socket that is not a member of the game")
		return
	}

	if g.OfferedTooFast(color) {
		s.Send(MsgError, noticePayload{Message: "Wait a couple of moves between draw offers"})
		return
	}

	if !g.OpenDrawOffer(color) {
		return
	}

	m.transport.SendToColor(g, color.Opponent(), MsgDrawOffer, noticePayload{Message: "Your opponent offers a draw"})
}

// DrawAccept concludes the game as agreed drawn, if the opponent's offer is
// actually open.
func (m *Manager) DrawAccept(s Socket, g *game.Game) {
	if g == nil {
		log.Error().Str("socketID", s.ID()).Msg("Draw accept with no game")
		return
	}

	g.Lock()
	defer g.Unlock()

	if g.Over() {
		s.Send(MsgNotice, noticePayload{Message: "Can't accept a draw, the game is already over"})
		return
	}

	color, ok := m.resolveColor(g, s)
	if !ok {
		return
	}

	if !g.DrawOfferOpen() || g.DrawOfferBy() == color {
		log.Warn().
			Str("gameID", g.ID).
			Str("color", string(color)).
			Msg("Draw accept without a matching open offer")
		return
	}

	g.CloseDrawOffer()
	if m.concluder.SetConclusion(g, game.ConclusionDrawAgreed) {
		m.transport.SendToBoth(g, MsgGameUpdate, snapshot(g))
	}
}

// DrawDecline closes the opponent's open offer and tells them.
func (m *Manager) DrawDecline(s Socket, g *game.Game) {
	if g == nil {
		log.Error().Str("socketID", s.ID()).Msg("Draw decline with no game")
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

	if !g.DrawOfferOpen() || g.DrawOfferBy() == color {
		return
	}

	offeredBy := g.DrawOfferBy()
	g.CloseDrawOffer()
	m.transport.SendToColor(g, offeredBy, MsgDrawDeclined, noticePayload{Message: "Draw offer declined"})
}
