package chessdto

import "github.com/park285/chessmaster/internal/chess"

type NewGameResponse struct {
	GameID string      `json:"gameId"`
	State  chess.State `json:"state"`
}

type StateResponse struct {
	State chess.State `json:"state"`
}

// StateEvent is one websocket frame. Version grows with every move and
// reset of the game.
type StateEvent struct {
	GameID  string      `json:"gameId"`
	Version int64       `json:"version"`
	State   chess.State `json:"state"`
}
