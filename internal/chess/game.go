package chess

import (
	"fmt"
	"strings"
)

// Move is a parsed pair of squares.
type Move struct {
	From Square
	To   Square
}

// String returns the concatenated form ("e2e4").
func (m Move) String() string { return m.From.String() + m.To.String() }

// ParseMove accepts "e2e4" or "e2 e4". Any other shape is ReasonBadFormat and
// squares outside a1-h8 are ReasonBadSquare.
func ParseMove(text string) (Move, error) {
	var fromText, toText string
	switch {
	case len(text) == 4:
		fromText, toText = text[:2], text[2:]
	case len(text) == 5 && text[2] == ' ':
		fromText, toText = text[:2], text[3:]
	default:
		return Move{}, ReasonBadFormat
	}
	if strings.ContainsAny(fromText+toText, " \t\r\n") {
		return Move{}, ReasonBadFormat
	}
	from, err := ParseSquare(fromText)
	if err != nil {
		return Move{}, err
	}
	to, err := ParseSquare(toText)
	if err != nil {
		return Move{}, err
	}
	return Move{From: from, To: to}, nil
}

// MoveResult is the outcome of MakeMove.
type MoveResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// State is everything a caller may see about a game.
type State struct {
	Board         Grid   `json:"board"`
	CurrentPlayer Color  `json:"currentPlayer"`
	GameOver      bool   `json:"gameOver"`
	Winner        *Color `json:"winner"`
}

// Game tracks one board plus turn and outcome. A Game is not safe for
// concurrent use; callers serialize access per game.
type Game struct {
	board   Board
	current Color
	over    bool
	winner  Color
}

func NewGame() *Game {
	return &Game{board: NewBoard(), current: White}
}

// NewGameFromBoard starts a game from an arbitrary position.
func NewGameFromBoard(b Board, toMove Color) *Game {
	return &Game{board: b, current: toMove}
}

func (g *Game) CurrentPlayer() Color { return g.current }
func (g *Game) Over() bool           { return g.over }

// Winner returns the winning side once the game is over.
func (g *Game) Winner() (Color, bool) {
	if !g.over {
		return White, false
	}
	return g.winner, true
}

// Piece returns a copy of the piece on sq.
func (g *Game) Piece(sq Square) (Piece, bool) { return g.board.at(sq) }

// ValidateMove checks a move for the side to move without applying it.
func (g *Game) ValidateMove(from, to Square) error {
	return ValidateMove(&g.board, g.current, from, to)
}

// PossibleMoves lists destinations for the side to move from (row, col).
func (g *Game) PossibleMoves(row, col int) []Square {
	return EnumerateMoves(&g.board, g.current, Sq(row, col))
}

// MakeMove parses and plays text. Refused moves leave the game untouched.
func (g *Game) MakeMove(text string) MoveResult {
	if g.over {
		return MoveResult{Message: ReasonGameOver.Error()}
	}
	mv, err := ParseMove(text)
	if err != nil {
		return MoveResult{Message: err.Error()}
	}
	if err := g.Apply(mv); err != nil {
		return MoveResult{Message: err.Error()}
	}
	if g.over {
		return MoveResult{Success: true, Message: fmt.Sprintf("Checkmate! %s wins!", g.winner)}
	}
	return MoveResult{Success: true, Message: fmt.Sprintf("Move made: %s to %s", mv.From, mv.To)}
}

// Apply plays an already parsed move. Capturing a king ends the game with the
// mover as winner and the turn does not pass.
func (g *Game) Apply(mv Move) error {
	if g.over {
		return ReasonGameOver
	}
	if err := g.ValidateMove(mv.From, mv.To); err != nil {
		return err
	}
	captured, _ := g.board.at(mv.To)
	g.board.Relocate(mv.From.Row, mv.From.Col, mv.To.Row, mv.To.Col)
	if captured.kind == King {
		g.over = true
		g.winner = g.current
		return nil
	}
	g.current = g.current.Opponent()
	return nil
}

// State snapshots the game.
func (g *Game) State() State {
	st := State{
		Board:         g.board.Snapshot(),
		CurrentPlayer: g.current,
		GameOver:      g.over,
	}
	if g.over {
		w := g.winner
		st.Winner = &w
	}
	return st
}

func (g *Game) String() string {
	var sb strings.Builder
	sb.WriteString(g.board.String())
	if g.over {
		sb.WriteString(fmt.Sprintf("Game Over! %s wins!\n", g.winner))
	} else {
		sb.WriteString(fmt.Sprintf("Current player: %s\n", g.current))
	}
	return sb.String()
}
