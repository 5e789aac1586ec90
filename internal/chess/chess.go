package chess

// Color identifies a side of the board.
type Color string

const (
	White Color = "white"
	Black Color = "black"
)

// Opponent returns the other side.
func (c Color) Opponent() Color {
	if c == White {
		return Black
	}
	return White
}

// Valid reports whether c is one of the two playable colors.
func (c Color) Valid() bool {
	return c == White || c == Black
}

// ColorOfPly returns the color that plays the given zero-based ply.
// White plays even plies, black plays odd ones.
func ColorOfPly(ply int) Color {
	if ply%2 == 0 {
		return White
	}
	return Black
}

// Move is one played half-move as the session layer records it.
type Move struct {
	From  string `json:"from"`
	To    string `json:"to"`
	SAN   string `json:"san"`
	Color Color  `json:"color"`
}
