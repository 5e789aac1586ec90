// Package registry tracks process-wide game activity: how many games are in
// progress and which players are seated in one. The session core calls it
// but does not own its storage.
package registry

import (
	"sync"

	"github.com/rs/zerolog/log"
)

type Registry struct {
	mu      sync.Mutex
	active  int
	inGame  map[string]string // playerID -> gameID
	nextSub int
	subs    map[int]func(count int)
}

func New() *Registry {
	return &Registry{
		inGame: make(map[string]string),
		subs:   make(map[int]func(int)),
	}
}

// IncrementActive bumps the active-game count and broadcasts it.
func (r *Registry) IncrementActive() {
	r.mu.Lock()
	r.active++
	count := r.active
	subs := r.snapshotSubs()
	r.mu.Unlock()

	broadcast(subs, count)
}

// DecrementActive drops the active-game count and broadcasts it. Called
// exactly once per game, by the conclusion authority.
func (r *Registry) DecrementActive() {
	r.mu.Lock()
	if r.active == 0 {
		r.mu.Unlock()
		log.Error().Bool("bug", true).Msg("Active game count decremented below zero")
		return
	}
	r.active--
	count := r.active
	subs := r.snapshotSubs()
	r.mu.Unlock()

	broadcast(subs, count)
}

func (r *Registry) ActiveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// AddPlayer marks a player as seated in a game.
func (r *Registry) AddPlayer(playerID, gameID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inGame[playerID] = gameID
}

// RemovePlayer detaches a player from the active-player index. Safe to call
// for players not present; leave attempts are finalized even when the leave
// itself is judged illegal.
func (r *Registry) RemovePlayer(playerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.inGame, playerID)
}

// GameOf returns the game a player is seated in, if any.
func (r *Registry) GameOf(playerID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	gameID, ok := r.inGame[playerID]
	return gameID, ok
}

// SubscribeCount registers a callback for active-count changes and returns
// an unsubscribe func. The callback runs outside the registry lock.
func (r *Registry) SubscribeCount(fn func(count int)) func() {
	r.mu.Lock()
	id := r.nextSub
	r.nextSub++
	r.subs[id] = fn
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		delete(r.subs, id)
		r.mu.Unlock()
	}
}

func (r *Registry) snapshotSubs() []func(int) {
	subs := make([]func(int), 0, len(r.subs))
	for _, fn := range r.subs {
		subs = append(subs, fn)
	}
	return subs
}

func broadcast(subs []func(int), count int) {
	for _, fn := range subs {
		fn(count)
	}
}
