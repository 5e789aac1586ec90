package game

import (
	"fmt"
	"sync"
	"time"

	"github.com/mvarner/gambit/internal/chess"
)

// ResignableThreshold is the ply count at which a game stops being abortable
// and starts being resignable.
const ResignableThreshold = 2

type Publicity string

const (
	Public  Publicity = "public"
	Private Publicity = "private"
)

// Conclusion is the immutable terminal-outcome tag of a finished game.
type Conclusion string

const (
	ConclusionAborted    Conclusion = "aborted"
	ConclusionDrawAgreed Conclusion = "draw agreed"
)

// Resignation names the winner, not the player who resigned.
func Resignation(winner chess.Color) Conclusion {
	return Conclusion(fmt.Sprintf("%s resignation", winner))
}

func Abandonment(winner chess.Color) Conclusion {
	return Conclusion(fmt.Sprintf("%s abandonment", winner))
}

// PlayerSlot holds one seated player's identity and draw-offer bookkeeping.
type PlayerSlot struct {
	ID string
	// LastOfferPly is the ply at which this color last opened a draw offer,
	// or -1 if it never has.
	LastOfferPly int
}

// Game is the shared aggregate for one match. It is accessed from both
// players' connection goroutines and from timer expiries; callers hold the
// embedded mutex across any check-then-act sequence.
type Game struct {
	sync.Mutex

	ID        string
	Players   map[chess.Color]*PlayerSlot
	Engine    *chess.Engine
	Moves     []chess.Move
	WhosTurn  chess.Color
	Untimed   bool
	Publicity Publicity

	// AFKDeadline is the wall-clock expiry of the armed AFK timer, zero when
	// none is armed. Read-only display state; the timer itself lives in the
	// session timer supervisor.
	AFKDeadline time.Time

	conclusion Conclusion
	drawOffer  chess.Color
}

func New(id, whiteID, blackID string, untimed bool, publicity Publicity) *Game {
	return &Game{
		ID: id,
		Players: map[chess.Color]*PlayerSlot{
			chess.White: {ID: whiteID, LastOfferPly: -1},
			chess.Black: {ID: blackID, LastOfferPly: -1},
		},
		Engine:    chess.NewEngine(),
		WhosTurn:  chess.White,
		Untimed:   untimed,
		Publicity: publicity,
	}
}

// Conclude records the terminal outcome if none is set yet and reports
// whether this call won the race. A false return means the game already
// concluded; the caller must not apply any conclusion side effects.
func (g *Game) Conclude(c Conclusion) bool {
	if g.conclusion != "" {
		return false
	}
	g.conclusion = c
	return true
}

func (g *Game) Conclusion() Conclusion {
	return g.conclusion
}

func (g *Game) Over() bool {
	return g.conclusion != ""
}

// Resignable reports whether enough plies have been played that abort is no
// longer legal and resignation is expected.
func (g *Game) Resignable() bool {
	return len(g.Moves) >= ResignableThreshold
}

// ColorOf resolves a player identity to their seat. This is the
// authoritative lookup behind the transport's cached subscription color.
func (g *Game) ColorOf(playerID string) (chess.Color, bool) {
	for color, slot := range g.Players {
		if slot != nil && slot.ID == playerID {
			return color, true
		}
	}
	return "", false
}

// ColorThatPlayedPly returns the color that played the given zero-based ply.
func (g *Game) ColorThatPlayedPly(ply int) (chess.Color, bool) {
	if ply < 0 || ply >= len(g.Moves) {
		return "", false
	}
	return g.Moves[ply].Color, true
}

// AppendMove records a played move and flips the turn.
func (g *Game) AppendMove(m chess.Move) {
	g.Moves = append(g.Moves, m)
	g.WhosTurn = g.WhosTurn.Opponent()
}

// PopLastMove removes and returns the most recent move. Only the
// cheat-report path calls this, strictly before it concludes the game.
func (g *Game) PopLastMove() (chess.Move, bool) {
	if len(g.Moves) == 0 {
		return chess.Move{}, false
	}
	m := g.Moves[len(g.Moves)-1]
	g.Moves = g.Moves[:len(g.Moves)-1]
	return m, true
}
