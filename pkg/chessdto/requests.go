package chessdto

// MoveRequest carries a move in coordinate text, "e2e4" or "e2 e4".
type MoveRequest struct {
	Move string `json:"move"`
}
