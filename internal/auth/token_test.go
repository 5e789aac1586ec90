package auth

import (
	"testing"
	"time"

	"github.com/mvarner/gambit/internal/chess"
)

func TestIssueAndValidate(t *testing.T) {
	tokens := NewTokens("test-secret", time.Hour)

	signed, err := tokens.Issue("g1", "alice", chess.White)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	claims, err := tokens.Validate(signed)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if claims.GameID != "g1" || claims.PlayerID != "alice" || claims.Color != "white" {
		t.Errorf("claims = %+v, want g1/alice/white", claims)
	}
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	issuer := NewTokens("secret-a", time.Hour)
	verifier := NewTokens("secret-b", time.Hour)

	signed, err := issuer.Issue("g1", "alice", chess.White)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := verifier.Validate(signed); err == nil {
		t.Fatal("token signed with another secret must not validate")
	}
}

func TestValidateRejectsExpired(t *testing.T) {
	tokens := NewTokens("test-secret", -time.Minute)

	signed, err := tokens.Issue("g1", "alice", chess.Black)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := tokens.Validate(signed); err == nil {
		t.Fatal("expired token must not validate")
	}
}

func TestValidateRejectsGarbage(t *testing.T) {
	tokens := NewTokens("test-secret", time.Hour)

	if _, err := tokens.Validate("not-a-token"); err == nil {
		t.Fatal("garbage must not validate")
	}
}
