package transport

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/mvarner/gambit/internal/chess"
	"github.com/mvarner/gambit/internal/game"
)

type stubSocket struct {
	id string

	mu   sync.Mutex
	sent []string
}

func (s *stubSocket) ID() string       { return s.id }
func (s *stubSocket) PlayerID() string { return s.id }

func (s *stubSocket) SubscribedColor() (chess.Color, bool) { return "", false }

func (s *stubSocket) Send(msgType string, payload interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, msgType)
}

func (s *stubSocket) sentTypes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.sent...)
}

func TestHubRoutesByColor(t *testing.T) {
	hub := NewHub()
	g := game.New("g1", "alice", "bob", true, game.Public)

	white := &stubSocket{id: "sw"}
	black := &stubSocket{id: "sb"}
	hub.Subscribe(g, white, chess.White)
	hub.Subscribe(g, black, chess.Black)

	hub.SendToColor(g, chess.White, "hello", nil)
	if got := white.sentTypes(); len(got) != 1 || got[0] != "hello" {
		t.Fatalf("white received %v, want [hello]", got)
	}
	if got := black.sentTypes(); len(got) != 0 {
		t.Fatalf("black received %v, want nothing", got)
	}

	hub.SendToBoth(g, "both", nil)
	if len(white.sentTypes()) != 2 || len(black.sentTypes()) != 1 {
		t.Fatal("SendToBoth should reach both seats")
	}
}

func TestHubUnsubscribeSilences(t *testing.T) {
	hub := NewHub()
	g := game.New("g1", "alice", "bob", true, game.Public)

	white := &stubSocket{id: "sw"}
	hub.Subscribe(g, white, chess.White)
	hub.Unsubscribe(g, white, false)

	hub.SendToColor(g, chess.White, "hello", nil)
	if got := white.sentTypes(); len(got) != 0 {
		t.Fatalf("unsubscribed socket received %v, want nothing", got)
	}
	if hub.subscribed("g1", white) {
		t.Fatal("socket should no longer be subscribed")
	}
}

func TestHubUnsubscribeWithNotify(t *testing.T) {
	hub := NewHub()
	g := game.New("g1", "alice", "bob", true, game.Public)

	white := &stubSocket{id: "sw"}
	hub.Subscribe(g, white, chess.White)
	hub.Unsubscribe(g, white, true)

	if got := white.sentTypes(); len(got) != 1 || got[0] != "unsubscribed" {
		t.Fatalf("notified unsubscribe sent %v, want [unsubscribed]", got)
	}
}

func TestSubscribeReplacesSeat(t *testing.T) {
	hub := NewHub()
	g := game.New("g1", "alice", "bob", true, game.Public)

	old := &stubSocket{id: "old"}
	fresh := &stubSocket{id: "fresh"}
	hub.Subscribe(g, old, chess.White)
	hub.Subscribe(g, fresh, chess.White)

	hub.SendToColor(g, chess.White, "hello", nil)
	if len(old.sentTypes()) != 0 {
		t.Fatal("replaced socket should not receive seat messages")
	}
	if len(fresh.sentTypes()) != 1 {
		t.Fatal("replacement socket should receive seat messages")
	}
}

func TestParseReport(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr bool
	}{
		{"valid", `{"reason":"engine","opponentsMoveNumber":3}`, false},
		{"empty payload", ``, true},
		{"missing reason", `{"opponentsMoveNumber":3}`, true},
		{"non-integer move number", `{"reason":"engine","opponentsMoveNumber":3.5}`, true},
		{"wrong type for reason", `{"reason":7,"opponentsMoveNumber":3}`, true},
		{"not json", `engine cheated`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := parseReport(json.RawMessage(tt.data))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseReport(%s) succeeded, want error", tt.data)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseReport(%s) failed: %v", tt.data, err)
			}
			if req.Reason != "engine" || req.OpponentsMoveNumber != 3 {
				t.Errorf("parsed %+v, want engine/3", req)
			}
		})
	}
}
