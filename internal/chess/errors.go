package chess

// Reason explains why a move was refused. The text is shown to players as is.
type Reason string

func (r Reason) Error() string { return string(r) }

const (
	ReasonBadFormat    Reason = `Invalid move format. Use format like "e2 e4" or "e2e4"`
	ReasonBadSquare    Reason = "Invalid square coordinates"
	ReasonNoPiece      Reason = "No piece at source square"
	ReasonWrongTurn    Reason = "Not your piece"
	ReasonSelfCapture  Reason = "Cannot capture your own piece"
	ReasonPawnMove     Reason = "Invalid pawn move"
	ReasonRookLine     Reason = "Rook must move horizontally or vertically"
	ReasonPathBlocked  Reason = "Path is blocked"
	ReasonKnightMove   Reason = "Invalid knight move"
	ReasonBishopLine   Reason = "Bishop must move diagonally"
	ReasonQueenMove    Reason = "Invalid queen move"
	ReasonKingMove     Reason = "Invalid king move"
	ReasonGameOver     Reason = "Game is over!"
	ReasonUnknownPiece Reason = "Unknown piece type"
)
