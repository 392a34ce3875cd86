package chess

import (
	"encoding/json"
	"fmt"
)

// Square addresses a board cell. Row 0 is rank 8, column 0 is file a.
type Square struct {
	Row int
	Col int
}

func Sq(row, col int) Square { return Square{Row: row, Col: col} }

func (s Square) InBounds() bool {
	return s.Row >= 0 && s.Row < Size && s.Col >= 0 && s.Col < Size
}

// String returns the algebraic name ("e4") or "-" for off-board squares.
func (s Square) String() string {
	if !s.InBounds() {
		return "-"
	}
	return fmt.Sprintf("%c%d", 'a'+s.Col, Size-s.Row)
}

func (s Square) offset(dRow, dCol int) Square {
	return Square{Row: s.Row + dRow, Col: s.Col + dCol}
}

// ParseSquare converts algebraic notation ("e4") into a Square.
func ParseSquare(text string) (Square, error) {
	if len(text) != 2 {
		return Square{}, ReasonBadSquare
	}
	file, rank := text[0], text[1]
	if file < 'a' || file > 'h' || rank < '1' || rank > '8' {
		return Square{}, ReasonBadSquare
	}
	return Square{Row: Size - int(rank-'0'), Col: int(file - 'a')}, nil
}

// MarshalJSON encodes the square as a [row, col] pair.
func (s Square) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{s.Row, s.Col})
}

func (s *Square) UnmarshalJSON(b []byte) error {
	var pair [2]int
	if err := json.Unmarshal(b, &pair); err != nil {
		return fmt.Errorf("square: %w", err)
	}
	s.Row, s.Col = pair[0], pair[1]
	return nil
}
