package chess

import "strings"

// Size is the number of ranks and files.
const Size = 8

// Board is an 8x8 grid of pieces. It is a plain value: copying a Board copies
// every square, so no two boards share state.
type Board struct {
	squares [Size][Size]Piece
}

// NewBoard returns a board in the standard starting position.
func NewBoard() Board {
	var b Board
	for col := 0; col < Size; col++ {
		b.squares[1][col] = NewPiece(Black, Pawn)
		b.squares[6][col] = NewPiece(White, Pawn)
		b.squares[0][col] = NewPiece(Black, BackRank[col])
		b.squares[7][col] = NewPiece(White, BackRank[col])
	}
	return b
}

// EmptyBoard returns a board with no pieces.
func EmptyBoard() Board { return Board{} }

func (b *Board) InBounds(row, col int) bool {
	return row >= 0 && row < Size && col >= 0 && col < Size
}

// Get returns the piece at (row, col). Off-board reads report an empty square.
func (b *Board) Get(row, col int) (Piece, bool) {
	if !b.InBounds(row, col) {
		return Piece{}, false
	}
	p := b.squares[row][col]
	return p, !p.IsZero()
}

func (b *Board) at(sq Square) (Piece, bool) { return b.Get(sq.Row, sq.Col) }

// Set places p at (row, col). Off-board writes are ignored.
func (b *Board) Set(row, col int, p Piece) {
	if b.InBounds(row, col) {
		b.squares[row][col] = p
	}
}

// Clear empties (row, col). Off-board writes are ignored.
func (b *Board) Clear(row, col int) {
	b.Set(row, col, Piece{})
}

// Relocate moves the piece at the source onto the destination, replacing
// whatever stood there, and marks it as moved. It does not check legality.
func (b *Board) Relocate(fromRow, fromCol, toRow, toCol int) bool {
	p, ok := b.Get(fromRow, fromCol)
	if !ok {
		return false
	}
	p.moved = true
	b.Set(toRow, toCol, p)
	b.Clear(fromRow, fromCol)
	return true
}

// Count returns the number of pieces of the given color.
func (b *Board) Count(c Color) int {
	n := 0
	for row := range b.squares {
		for _, p := range b.squares[row] {
			if !p.IsZero() && p.color == c {
				n++
			}
		}
	}
	return n
}

// PieceView is the serializable form of a piece.
type PieceView struct {
	Color Color     `json:"color"`
	Type  PieceType `json:"type"`
	Glyph string    `json:"symbol"`
	Char  string    `json:"char"`
}

// Grid is a read-only copy of the board; nil entries are empty squares.
type Grid [Size][Size]*PieceView

// Snapshot copies the board out for callers.
func (b *Board) Snapshot() Grid {
	var g Grid
	for row := range b.squares {
		for col, p := range b.squares[row] {
			if p.IsZero() {
				continue
			}
			g[row][col] = &PieceView{Color: p.color, Type: p.kind, Glyph: p.Glyph(), Char: p.Char()}
		}
	}
	return g
}

// String draws the board the way the console display does.
func (b *Board) String() string { return b.Snapshot().String() }

func (g Grid) String() string {
	var sb strings.Builder
	sb.WriteString("   a b c d e f g h\n")
	sb.WriteString("  ─────────────────\n")
	for row := 0; row < Size; row++ {
		rank := string(rune('0' + Size - row))
		sb.WriteString(rank + " │")
		for col := 0; col < Size; col++ {
			sym := "·"
			if v := g[row][col]; v != nil {
				sym = v.Glyph
			}
			sb.WriteString(" " + sym)
		}
		sb.WriteString(" │ " + rank + "\n")
	}
	sb.WriteString("  ─────────────────\n")
	sb.WriteString("   a b c d e f g h\n")
	return sb.String()
}
