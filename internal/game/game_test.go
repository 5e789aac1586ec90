package game

import (
	"testing"

	"github.com/mvarner/gambit/internal/chess"
)

func newTestGame() *Game {
	return New("g1", "alice", "bob", true, Public)
}

func appendPlies(g *Game, n int) {
	for i := 0; i < n; i++ {
		g.AppendMove(chess.Move{SAN: "e4", Color: chess.ColorOfPly(i)})
	}
}

func TestConcludeOnlyOnce(t *testing.T) {
	g := newTestGame()

	if !g.Conclude(ConclusionAborted) {
		t.Fatal("first Conclude should succeed")
	}
	if g.Conclude(Resignation(chess.White)) {
		t.Fatal("second Conclude must be refused")
	}
	if g.Conclusion() != ConclusionAborted {
		t.Fatalf("conclusion = %q, want %q", g.Conclusion(), ConclusionAborted)
	}
	if !g.Over() {
		t.Fatal("game with a conclusion should be over")
	}
}

func TestResignableThreshold(t *testing.T) {
	tests := []struct {
		plies int
		want  bool
	}{
		{0, false},
		{1, false},
		{2, true},
		{5, true},
	}

	for _, tt := range tests {
		g := newTestGame()
		appendPlies(g, tt.plies)
		if got := g.Resignable(); got != tt.want {
			t.Errorf("Resignable() with %d plies = %v, want %v", tt.plies, got, tt.want)
		}
	}
}

func TestAppendMoveFlipsTurn(t *testing.T) {
	g := newTestGame()

	if g.WhosTurn != chess.White {
		t.Fatalf("fresh game turn = %q, want white", g.WhosTurn)
	}
	g.AppendMove(chess.Move{SAN: "e4", Color: chess.White})
	if g.WhosTurn != chess.Black {
		t.Fatalf("after one ply turn = %q, want black", g.WhosTurn)
	}
	g.AppendMove(chess.Move{SAN: "e5", Color: chess.Black})
	if g.WhosTurn != chess.White {
		t.Fatalf("after two plies turn = %q, want white", g.WhosTurn)
	}
}

func TestColorOf(t *testing.T) {
	g := newTestGame()

	if c, ok := g.ColorOf("alice"); !ok || c != chess.White {
		t.Errorf("ColorOf(alice) = %q, %v; want white, true", c, ok)
	}
	if c, ok := g.ColorOf("bob"); !ok || c != chess.Black {
		t.Errorf("ColorOf(bob) = %q, %v; want black, true", c, ok)
	}
	if _, ok := g.ColorOf("mallory"); ok {
		t.Error("ColorOf for a stranger should report false")
	}
}

func TestColorThatPlayedPly(t *testing.T) {
	g := newTestGame()
	appendPlies(g, 3)

	if c, ok := g.ColorThatPlayedPly(0); !ok || c != chess.White {
		t.Errorf("ply 0 = %q, %v; want white", c, ok)
	}
	if c, ok := g.ColorThatPlayedPly(2); !ok || c != chess.White {
		t.Errorf("ply 2 = %q, %v; want white", c, ok)
	}
	if c, ok := g.ColorThatPlayedPly(1); !ok || c != chess.Black {
		t.Errorf("ply 1 = %q, %v; want black", c, ok)
	}
	if _, ok := g.ColorThatPlayedPly(3); ok {
		t.Error("out-of-range ply should report false")
	}
	if _, ok := g.ColorThatPlayedPly(-1); ok {
		t.Error("negative ply should report false")
	}
}

func TestPopLastMove(t *testing.T) {
	g := newTestGame()
	appendPlies(g, 2)

	m, ok := g.PopLastMove()
	if !ok {
		t.Fatal("pop from a non-empty move list should succeed")
	}
	if m.Color != chess.Black {
		t.Errorf("popped move color = %q, want black", m.Color)
	}
	if len(g.Moves) != 1 {
		t.Errorf("moves = %d after pop, want 1", len(g.Moves))
	}

	g.PopLastMove()
	if _, ok := g.PopLastMove(); ok {
		t.Error("pop from an empty move list should report false")
	}
}
