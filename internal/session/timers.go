package session

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/mvarner/gambit/internal/chess"
)

// TimerKind distinguishes the two auto-resign countdowns.
type TimerKind int

const (
	TimerAFK TimerKind = iota
	TimerDisconnect
)

func (k TimerKind) String() string {
	if k == TimerAFK {
		return "afk"
	}
	return "disconnect"
}

type timerKey struct {
	gameID string
	color  chess.Color
	kind   TimerKind
}

type armedTimer struct {
	timer clockwork.Timer
	stop  chan struct{}
}

// disarm stops the underlying timer before signalling the waiting
// goroutine. Stopping synchronously matters: once disarm returns, the timer
// can no longer fire, even if its goroutine has not run yet.
func (at *armedTimer) disarm() {
	at.timer.Stop()
	close(at.stop)
}

// TimerSupervisor owns every scheduled auto-resign task, keyed by
// (game, color, kind). Arming a key always cancels and replaces any timer
// already armed for it; timers are never additive.
type TimerSupervisor struct {
	clock clockwork.Clock

	mu     sync.Mutex
	timers map[timerKey]*armedTimer
}

func NewTimerSupervisor(clock clockwork.Clock) *TimerSupervisor {
	return &TimerSupervisor{
		clock:  clock,
		timers: make(map[timerKey]*armedTimer),
	}
}

// Arm schedules expire to run after d, replacing any timer already armed for
// the same key. It returns the wall-clock deadline for client display.
func (s *TimerSupervisor) Arm(gameID string, color chess.Color, kind TimerKind, d time.Duration, expire func()) time.Time {
	key := timerKey{gameID: gameID, color: color, kind: kind}

	s.mu.Lock()
	if prev, ok := s.timers[key]; ok {
		prev.disarm()
	}
	at := &armedTimer{
		timer: s.clock.NewTimer(d),
		stop:  make(chan struct{}),
	}
	s.timers[key] = at
	s.mu.Unlock()

	go func() {
		select {
		case <-at.timer.Chan():
			// A cancel may have landed between the fire and this wakeup;
			// only the arming still on the books gets to expire.
			if s.remove(key, at) {
				expire()
			}
		case <-at.stop:
			stopAndDrainTimer(at.timer)
		}
	}()

	return s.clock.Now().Add(d)
}

// Cancel stops the timer for the key, if armed, and reports whether one was.
func (s *TimerSupervisor) Cancel(gameID string, color chess.Color, kind TimerKind) bool {
	key := timerKey{gameID: gameID, color: color, kind: kind}

	s.mu.Lock()
	defer s.mu.Unlock()
	at, ok := s.timers[key]
	if !ok {
		return false
	}
	at.disarm()
	delete(s.timers, key)
	return true
}

// Armed reports whether a timer is currently scheduled for the key.
func (s *TimerSupervisor) Armed(gameID string, color chess.Color, kind TimerKind) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.timers[timerKey{gameID: gameID, color: color, kind: kind}]
	return ok
}

// CancelAllForGame tears down every timer for a game, both colors and both
// kinds. Called when a game concludes.
func (s *TimerSupervisor) CancelAllForGame(gameID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, at := range s.timers {
		if key.gameID == gameID {
			at.disarm()
			delete(s.timers, key)
		}
	}
}

// remove clears the entry after a fire and reports whether it was still the
// same arming; a cancel or re-arm may already have displaced it.
func (s *TimerSupervisor) remove(key timerKey, at *armedTimer) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.timers[key]; ok && cur == at {
		delete(s.timers, key)
		return true
	}
	return false
}

// stopAndDrainTimer stops a timer and drains its channel so the goroutine
// that owned it can exit without leaking a pending tick.
func stopAndDrainTimer(t clockwork.Timer) {
	if !t.Stop() {
		select {
		case <-t.Chan():
		default:
		}
	}
}
