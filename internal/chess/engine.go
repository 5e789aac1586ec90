package chess

import (
	"fmt"

	"github.com/notnil/chess"
)

// Engine wraps the rules library for a single game. It answers legality and
// terminal-outcome questions; it knows nothing about sessions or sockets.
type Engine struct {
	game *chess.Game
}

func NewEngine() *Engine {
	return &Engine{
		game: chess.NewGame(),
	}
}

func NewEngineFromFEN(fen string) (*Engine, error) {
	fenFunc, err := chess.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("invalid FEN: %w", err)
	}

	return &Engine{
		game: chess.NewGame(fenFunc),
	}, nil
}

// MoveResult describes a successfully applied move.
type MoveResult struct {
	Move     Move   `json:"move"`
	FEN      string `json:"fen"`
	Check    bool   `json:"check"`
	GameOver bool   `json:"gameOver"`
	// Terminal is the conclusion tag when GameOver, e.g. "white checkmate".
	Terminal string `json:"terminal,omitempty"`
}

// MakeMove validates and applies a move in coordinate notation.
func (e *Engine) MakeMove(from, to string, promotion chess.PieceType) (*MoveResult, error) {
	fromSquare := parseSquare(from)
	toSquare := parseSquare(to)

	if fromSquare == chess.NoSquare || toSquare == chess.NoSquare {
		return nil, fmt.Errorf("invalid square notation")
	}

	mover := e.ActiveColor()

	var validMove *chess.Move
	for _, vm := range e.game.ValidMoves() {
		if vm.S1() == fromSquare && vm.S2() == toSquare && vm.Promo() == promotion {
			validMove = vm
			break
		}
	}

	if validMove == nil {
		return nil, fmt.Errorf("invalid move: %s to %s", from, to)
	}

	position := e.game.Position()
	san := chess.AlgebraicNotation{}.Encode(position, validMove)

	if err := e.game.Move(validMove); err != nil {
		return nil, fmt.Errorf("failed to make move: %w", err)
	}

	result := &MoveResult{
		Move: Move{
			From:  from,
			To:    to,
			SAN:   san,
			Color: mover,
		},
		FEN:      e.game.Position().String(),
		Check:    validMove.HasTag(chess.Check),
		GameOver: e.game.Outcome() != chess.NoOutcome,
	}

	if result.GameOver {
		result.Terminal = e.terminalTag()
	}

	return result, nil
}

// ActiveColor returns the side to move.
func (e *Engine) ActiveColor() Color {
	if e.game.Position().Turn() == chess.White {
		return White
	}
	return Black
}

// PlyCount returns the number of half-moves played so far.
func (e *Engine) PlyCount() int {
	return len(e.game.Moves())
}

func (e *Engine) GetFEN() string {
	return e.game.Position().String()
}

func (e *Engine) GetPGN() string {
	return e.game.String()
}

// terminalTag maps the library outcome onto a conclusion tag.
func (e *Engine) terminalTag() string {
	switch e.game.Outcome() {
	case chess.WhiteWon:
		return fmt.Sprintf("%s %s", White, methodTag(e.game.Method()))
	case chess.BlackWon:
		return fmt.Sprintf("%s %s", Black, methodTag(e.game.Method()))
	case chess.Draw:
		if e.game.Method() == chess.Stalemate {
			return "stalemate"
		}
		return "draw"
	default:
		return ""
	}
}

func methodTag(m chess.Method) string {
	if m == chess.Checkmate {
		return "checkmate"
	}
	return "win"
}

func parseSquare(sq string) chess.Square {
	if len(sq) != 2 {
		return chess.NoSquare
	}

	file := sq[0] - 'a'
	rank := sq[1] - '1'

	if file > 7 || rank > 7 {
		return chess.NoSquare
	}

	return chess.Square(rank*8 + file)
}

func ParsePromotion(p string) chess.PieceType {
	switch p {
	case "q":
		return chess.Queen
	case "r":
		return chess.Rook
	case "b":
		return chess.Bishop
	case "n":
		return chess.Knight
	default:
		return chess.NoPieceType
	}
}
