// Package auth issues and validates seat tokens. A token is minted when a
// player is seated and presented again on the WebSocket handshake, so a
// reconnecting socket can prove which seat it belongs to.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mvarner/gambit/internal/chess"
)

type SeatClaims struct {
	GameID   string `json:"gameId"`
	PlayerID string `json:"playerId"`
	Color    string `json:"color"`
	jwt.RegisteredClaims
}

type Tokens struct {
	secret []byte
	ttl    time.Duration
}

func NewTokens(secret string, ttl time.Duration) *Tokens {
	return &Tokens{
		secret: []byte(secret),
		ttl:    ttl,
	}
}

// Issue mints a seat token for one player in one game.
func (t *Tokens) Issue(gameID, playerID string, color chess.Color) (string, error) {
	now := time.Now()
	claims := SeatClaims{
		GameID:   gameID,
		PlayerID: playerID,
		Color:    string(color),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign seat token: %w", err)
	}
	return signed, nil
}

// Validate parses a seat token and returns its claims.
func (t *Tokens) Validate(tokenString string) (*SeatClaims, error) {
	var claims SeatClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(tok *jwt.Token) (interface{}, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", tok.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid seat token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid seat token")
	}
	if !chess.Color(claims.Color).Valid() {
		return nil, fmt.Errorf("seat token has unknown color %q", claims.Color)
	}
	return &claims, nil
}
