package chessdto

import "github.com/park285/chessmaster/internal/chess"

// MoveResponse reports a move attempt. Refused moves are still 200 with
// Success false and the reason in Message.
type MoveResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	State   chess.State `json:"state"`
}

// PossibleMovesResponse lists destinations as [row, col] pairs.
type PossibleMovesResponse struct {
	PossibleMoves []chess.Square `json:"possibleMoves"`
}
