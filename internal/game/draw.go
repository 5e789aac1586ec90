package game

import (
	"github.com/rs/zerolog/log"

	"github.com/mvarner/gambit/internal/chess"
)

// MovesBetweenDrawOffers is the minimum number of plies a color must let
// pass between two of its own draw offers.
const MovesBetweenDrawOffers = 2

// Draw-offer ledger. Pure bookkeeping over the aggregate; callers hold the
// game lock and are responsible for notifying the opponent.

// DrawOfferOpen reports whether an unanswered draw offer exists.
func (g *Game) DrawOfferOpen() bool {
	return g.drawOffer != ""
}

// DrawOfferBy returns the color with the open offer, or "" if none.
func (g *Game) DrawOfferBy() chess.Color {
	return g.drawOffer
}

// HasColorOfferedDraw reports whether the open offer, if any, is c's.
func (g *Game) HasColorOfferedDraw(c chess.Color) bool {
	return g.drawOffer == c
}

// OfferedTooFast reports whether c opened a prior offer fewer than
// MovesBetweenDrawOffers plies ago.
func (g *Game) OfferedTooFast(c chess.Color) bool {
	slot := g.Players[c]
	if slot == nil || slot.LastOfferPly < 0 {
		return false
	}
	return len(g.Moves)-slot.LastOfferPly < MovesBetweenDrawOffers
}

// OpenDrawOffer records an offer by c. At most one offer may be open per
// game; a second open while one is pending is a no-op.
func (g *Game) OpenDrawOffer(c chess.Color) bool {
	if g.drawOffer != "" {
		log.Error().
			Str("gameID", g.ID).
			Str("color", string(c)).
			Str("openOffer", string(g.drawOffer)).
			Bool("bug", true).
			Msg("Draw offer opened while another is pending")
		return false
	}
	if slot := g.Players[c]; slot != nil {
		slot.LastOfferPly = len(g.Moves)
	}
	g.drawOffer = c
	return true
}

// CloseDrawOffer clears the open offer, if any.
func (g *Game) CloseDrawOffer() {
	g.drawOffer = ""
}
