package chess

import (
	"fmt"
	"strings"
)

// Color identifies chess side.
type Color uint8

const (
	White Color = iota
	Black
)

func (c Color) String() string {
	if c == Black {
		return "black"
	}
	return "white"
}

// Opponent returns the other side.
func (c Color) Opponent() Color {
	if c == White {
		return Black
	}
	return White
}

// pawnDirection is the row delta of a forward pawn step.
func (c Color) pawnDirection() int {
	if c == White {
		return -1
	}
	return 1
}

func (c Color) pawnHomeRow() int {
	if c == White {
		return 6
	}
	return 1
}

func (c Color) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

func (c *Color) UnmarshalText(b []byte) error {
	v, err := ParseColor(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

func ParseColor(s string) (Color, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "white", "w":
		return White, nil
	case "black", "b":
		return Black, nil
	default:
		return White, fmt.Errorf("unknown color %q", s)
	}
}

// PieceType is the kind of a piece. The zero value means no piece.
type PieceType uint8

const (
	NoPieceType PieceType = iota
	Pawn
	Rook
	Knight
	Bishop
	Queen
	King
)

var pieceTypeNames = [...]string{
	NoPieceType: "",
	Pawn:        "pawn",
	Rook:        "rook",
	Knight:      "knight",
	Bishop:      "bishop",
	Queen:       "queen",
	King:        "king",
}

func (t PieceType) String() string {
	if int(t) < len(pieceTypeNames) {
		return pieceTypeNames[t]
	}
	return fmt.Sprintf("piece(%d)", uint8(t))
}

func (t PieceType) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *PieceType) UnmarshalText(b []byte) error {
	s := strings.ToLower(strings.TrimSpace(string(b)))
	for i, name := range pieceTypeNames {
		if i > 0 && name == s {
			*t = PieceType(i)
			return nil
		}
	}
	return fmt.Errorf("unknown piece type %q", s)
}

// BackRank is the file-ordered setup of each side's first rank.
var BackRank = [8]PieceType{Rook, Knight, Bishop, Queen, King, Bishop, Knight, Rook}

// Piece is a value; color and type never change after NewPiece.
type Piece struct {
	color Color
	kind  PieceType
	moved bool
}

func NewPiece(c Color, t PieceType) Piece {
	return Piece{color: c, kind: t}
}

func (p Piece) Color() Color    { return p.color }
func (p Piece) Type() PieceType { return p.kind }
func (p Piece) HasMoved() bool  { return p.moved }
func (p Piece) IsZero() bool    { return p.kind == NoPieceType }

var (
	whiteGlyphs = [...]string{Pawn: "♙", Rook: "♖", Knight: "♘", Bishop: "♗", Queen: "♕", King: "♔"}
	blackGlyphs = [...]string{Pawn: "♟", Rook: "♜", Knight: "♞", Bishop: "♝", Queen: "♛", King: "♚"}
	pieceChars  = [...]string{Pawn: "P", Rook: "R", Knight: "N", Bishop: "B", Queen: "Q", King: "K"}
)

// Glyph returns the unicode chess symbol.
func (p Piece) Glyph() string {
	if p.IsZero() || int(p.kind) >= len(whiteGlyphs) {
		return ""
	}
	if p.color == Black {
		return blackGlyphs[p.kind]
	}
	return whiteGlyphs[p.kind]
}

// Char returns the ASCII letter, uppercase for white.
func (p Piece) Char() string {
	if p.IsZero() || int(p.kind) >= len(pieceChars) {
		return ""
	}
	if p.color == Black {
		return strings.ToLower(pieceChars[p.kind])
	}
	return pieceChars[p.kind]
}

func (p Piece) String() string {
	if p.IsZero() {
		return "empty"
	}
	return p.color.String() + " " + p.kind.String()
}
