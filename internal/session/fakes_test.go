package session

import (
	"sync"
	"testing"

	"github.com/jonboulle/clockwork"

	"github.com/mvarner/gambit/internal/chess"
	"github.com/mvarner/gambit/internal/config"
	"github.com/mvarner/gambit/internal/game"
)

type sentMsg struct {
	Type    string
	Payload interface{}
}

type fakeSocket struct {
	id       string
	playerID string
	color    chess.Color
	hasColor bool

	mu   sync.Mutex
	sent []sentMsg
}

func (s *fakeSocket) ID() string       { return s.id }
func (s *fakeSocket) PlayerID() string { return s.playerID }

func (s *fakeSocket) SubscribedColor() (chess.Color, bool) {
	return s.color, s.hasColor
}

func (s *fakeSocket) Send(msgType string, payload interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, sentMsg{Type: msgType, Payload: payload})
}

func (s *fakeSocket) received(msgType string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.sent {
		if m.Type == msgType {
			return true
		}
	}
	return false
}

func (s *fakeSocket) sentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

type transportCall struct {
	Op     string // "subscribe", "unsubscribe", "toColor", "toBoth"
	Color  chess.Color
	Type   string
	Notify bool
}

type fakeTransport struct {
	mu    sync.Mutex
	calls []transportCall
}

func (f *fakeTransport) Subscribe(g *game.Game, s Socket, color chess.Color) {
	f.record(transportCall{Op: "subscribe", Color: color})
}

func (f *fakeTransport) Unsubscribe(g *game.Game, s Socket, notify bool) {
	f.record(transportCall{Op: "unsubscribe", Notify: notify})
}

func (f *fakeTransport) SendToColor(g *game.Game, color chess.Color, msgType string, payload interface{}) {
	f.record(transportCall{Op: "toColor", Color: color, Type: msgType})
}

func (f *fakeTransport) SendToBoth(g *game.Game, msgType string, payload interface{}) {
	f.record(transportCall{Op: "toBoth", Type: msgType})
}

func (f *fakeTransport) record(c transportCall) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
}

func (f *fakeTransport) sentToColor(color chess.Color, msgType string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.calls {
		if c.Op == "toColor" && c.Color == color && c.Type == msgType {
			return true
		}
		if c.Op == "toBoth" && c.Type == msgType {
			return true
		}
	}
	return false
}

func (f *fakeTransport) countOp(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.Op == op {
			n++
		}
	}
	return n
}

type fakeRegistry struct {
	mu         sync.Mutex
	increments int
	decrements int
	added      []string
	removed    []string
}

func (f *fakeRegistry) IncrementActive() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.increments++
}

func (f *fakeRegistry) DecrementActive() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.decrements++
}

func (f *fakeRegistry) AddPlayer(playerID, gameID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.added = append(f.added, playerID)
}

func (f *fakeRegistry) RemovePlayer(playerID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, playerID)
}

func (f *fakeRegistry) removedCount(playerID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, id := range f.removed {
		if id == playerID {
			n++
		}
	}
	return n
}

func (f *fakeRegistry) decrementCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.decrements
}

type auditEntry struct {
	Message  string
	Category string
}

type fakeAudit struct {
	mu      sync.Mutex
	entries []auditEntry
}

func (f *fakeAudit) Record(message, category string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, auditEntry{Message: message, Category: category})
}

func (f *fakeAudit) recorded(category string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.entries {
		if e.Category == category {
			return true
		}
	}
	return false
}

type testEnv struct {
	manager   *Manager
	transport *fakeTransport
	registry  *fakeRegistry
	audit     *fakeAudit
	clock     *clockwork.FakeClock
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	ft := &fakeTransport{}
	fr := &fakeRegistry{}
	fa := &fakeAudit{}
	clock := clockwork.NewFakeClock()

	cfg := config.GameConfig{
		AFKTimeoutMs:        20000,
		DisconnectTimeoutMs: 60000,
	}

	return &testEnv{
		manager:   NewManager(ft, fr, fa, clock, cfg),
		transport: ft,
		registry:  fr,
		audit:     fa,
		clock:     clock,
	}
}

// seatGame creates a game with two fake sockets already holding their seats.
func (e *testEnv) seatGame(untimed bool, publicity game.Publicity) (*game.Game, *fakeSocket, *fakeSocket) {
	g := e.manager.Seat("player-white", "player-black", untimed, publicity)

	white := &fakeSocket{id: "sock-white", playerID: "player-white", color: chess.White, hasColor: true}
	black := &fakeSocket{id: "sock-black", playerID: "player-black", color: chess.Black, hasColor: true}
	return g, white, black
}

// playPlies appends n fabricated plies, alternating colors from white.
func playPlies(g *game.Game, n int) {
	g.Lock()
	defer g.Unlock()
	for i := 0; i < n; i++ {
		g.AppendMove(chess.Move{
			From:  "e2",
			To:    "e4",
			SAN:   "e4",
			Color: chess.ColorOfPly(i),
		})
	}
}
