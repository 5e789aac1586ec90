package session

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mvarner/gambit/internal/game"
)

// Concluder is the single choke point that sets a game's terminal outcome.
// Nothing else in the process writes the conclusion field.
type Concluder struct {
	registry Registry
	timers   *TimerSupervisor
}

func NewConcluder(r Registry, t *TimerSupervisor) *Concluder {
	return &Concluder{
		registry: r,
		timers:   t,
	}
}

// SetConclusion writes the terminal outcome if the game has none yet and
// fans out the side effects: timer teardown, active-count decrement (which
// broadcasts the new count), and removal from matchmaking. A second call for
// the same game is a no-op; it signals a handler bug, so it is logged, but
// it never corrupts the first outcome. Caller holds the game lock.
func (c *Concluder) SetConclusion(g *game.Game, outcome game.Conclusion) bool {
	if !g.Conclude(outcome) {
		log.Error().
			Str("gameID", g.ID).
			Str("attempted", string(outcome)).
			Str("existing", string(g.Conclusion())).
			Bool("bug", true).
			Msg("Conclusion set twice")
		return false
	}

	g.AFKDeadline = time.Time{}
	c.timers.CancelAllForGame(g.ID)
	c.registry.DecrementActive()

	log.Info().
		Str("gameID", g.ID).
		Str("conclusion", string(outcome)).
		Msg("Game concluded")

	return true
}

// RemoveFromActivePlayers finalizes a player's leave. It runs even when the
// leave attempt itself is judged illegal, because the client-side "back to
// menu" effect has already happened and cannot be undone.
func (c *Concluder) RemoveFromActivePlayers(s Socket) {
	c.registry.RemovePlayer(s.PlayerID())
}
