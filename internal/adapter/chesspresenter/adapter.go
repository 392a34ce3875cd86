package chesspresenter

import (
	"github.com/park285/chessmaster/internal/chess"
	"github.com/park285/chessmaster/internal/session"
	"github.com/park285/chessmaster/pkg/chessdto"
)

func ToNewGameResponse(id string, st chess.State) chessdto.NewGameResponse {
	return chessdto.NewGameResponse{GameID: id, State: st}
}

func ToStateResponse(st chess.State) chessdto.StateResponse {
	return chessdto.StateResponse{State: st}
}

func ToMoveResponse(res chess.MoveResult, st chess.State) chessdto.MoveResponse {
	return chessdto.MoveResponse{Success: res.Success, Message: res.Message, State: st}
}

// ToPossibleMovesResponse never yields a null list.
func ToPossibleMovesResponse(moves []chess.Square) chessdto.PossibleMovesResponse {
	if moves == nil {
		moves = []chess.Square{}
	}
	return chessdto.PossibleMovesResponse{PossibleMoves: moves}
}

func ToStateEvent(c session.Change) chessdto.StateEvent {
	return chessdto.StateEvent{GameID: c.ID, Version: c.Version, State: c.State}
}

func FromMoveResponse(resp chessdto.MoveResponse) (chess.MoveResult, chess.State) {
	return chess.MoveResult{Success: resp.Success, Message: resp.Message}, resp.State
}
