package chess

// ValidateMove reports whether player may move the piece on from to to.
// It returns nil for a pseudo-legal move and a Reason otherwise. Check safety
// is not considered.
func ValidateMove(b *Board, player Color, from, to Square) error {
	piece, ok := b.at(from)
	if !ok {
		return ReasonNoPiece
	}
	if piece.color != player {
		return ReasonWrongTurn
	}
	if target, ok := b.at(to); ok && target.color == piece.color {
		return ReasonSelfCapture
	}
	return validateShape(b, piece, from, to)
}

func validateShape(b *Board, piece Piece, from, to Square) error {
	switch piece.kind {
	case Pawn:
		return validatePawn(b, piece, from, to)
	case Rook:
		return validateRook(b, from, to)
	case Knight:
		return validateKnight(from, to)
	case Bishop:
		return validateBishop(b, from, to)
	case Queen:
		return validateQueen(b, from, to)
	case King:
		return validateKing(from, to)
	default:
		return ReasonUnknownPiece
	}
}

func validatePawn(b *Board, piece Piece, from, to Square) error {
	dir := piece.color.pawnDirection()
	rowDiff := to.Row - from.Row
	colDiff := to.Col - from.Col
	target, occupied := b.at(to)

	if colDiff == 0 {
		if rowDiff == dir && !occupied {
			return nil
		}
		if rowDiff == 2*dir && from.Row == piece.color.pawnHomeRow() && !occupied {
			if _, blocked := b.Get(from.Row+dir, from.Col); !blocked {
				return nil
			}
		}
	}
	if abs(colDiff) == 1 && rowDiff == dir && occupied && target.color != piece.color {
		return nil
	}
	return ReasonPawnMove
}

func validateRook(b *Board, from, to Square) error {
	if from.Row != to.Row && from.Col != to.Col {
		return ReasonRookLine
	}
	if !PathClear(b, from, to) {
		return ReasonPathBlocked
	}
	return nil
}

func validateKnight(from, to Square) error {
	dr, dc := abs(to.Row-from.Row), abs(to.Col-from.Col)
	if (dr == 2 && dc == 1) || (dr == 1 && dc == 2) {
		return nil
	}
	return ReasonKnightMove
}

func validateBishop(b *Board, from, to Square) error {
	if abs(to.Row-from.Row) != abs(to.Col-from.Col) {
		return ReasonBishopLine
	}
	if !PathClear(b, from, to) {
		return ReasonPathBlocked
	}
	return nil
}

func validateQueen(b *Board, from, to Square) error {
	straight := from.Row == to.Row || from.Col == to.Col
	diagonal := abs(to.Row-from.Row) == abs(to.Col-from.Col)
	if !straight && !diagonal {
		return ReasonQueenMove
	}
	if !PathClear(b, from, to) {
		return ReasonPathBlocked
	}
	return nil
}

func validateKing(from, to Square) error {
	dr, dc := abs(to.Row-from.Row), abs(to.Col-from.Col)
	if dr <= 1 && dc <= 1 && dr+dc > 0 {
		return nil
	}
	return ReasonKingMove
}

// PathClear reports whether every square strictly between from and to is
// empty. from and to must share a row, a column or a diagonal.
func PathClear(b *Board, from, to Square) bool {
	dRow, dCol := sign(to.Row-from.Row), sign(to.Col-from.Col)
	cur := from.offset(dRow, dCol)
	for cur != to {
		if !cur.InBounds() {
			return true
		}
		if _, occupied := b.at(cur); occupied {
			return false
		}
		cur = cur.offset(dRow, dCol)
	}
	return true
}

type offset struct{ dRow, dCol int }

var (
	orthogonalRays = []offset{{0, 1}, {0, -1}, {1, 0}, {-1, 0}}
	diagonalRays   = []offset{{1, 1}, {1, -1}, {-1, 1}, {-1, -1}}
	knightJumps    = []offset{{2, 1}, {2, -1}, {-2, 1}, {-2, -1}, {1, 2}, {1, -2}, {-1, 2}, {-1, -2}}
	kingSteps      = []offset{{1, 0}, {-1, 0}, {0, 1}, {0, -1}, {1, 1}, {1, -1}, {-1, 1}, {-1, -1}}
)

// EnumerateMoves lists every destination ValidateMove accepts for the piece on
// from. Sliders are listed ray by ray, nearest square first; jumpers and pawns
// follow a fixed offset order.
func EnumerateMoves(b *Board, player Color, from Square) []Square {
	piece, ok := b.at(from)
	if !ok || piece.color != player {
		return []Square{}
	}

	moves := []Square{}
	switch piece.kind {
	case Rook:
		moves = walkRays(b, player, from, orthogonalRays, moves)
	case Bishop:
		moves = walkRays(b, player, from, diagonalRays, moves)
	case Queen:
		moves = walkRays(b, player, from, orthogonalRays, moves)
		moves = walkRays(b, player, from, diagonalRays, moves)
	case Knight:
		moves = tryOffsets(b, player, from, knightJumps, moves)
	case King:
		moves = tryOffsets(b, player, from, kingSteps, moves)
	case Pawn:
		dir := player.pawnDirection()
		steps := []offset{{dir, 0}}
		if from.Row == player.pawnHomeRow() {
			steps = append(steps, offset{2 * dir, 0})
		}
		steps = append(steps, offset{dir, -1}, offset{dir, 1})
		moves = tryOffsets(b, player, from, steps, moves)
	}
	return moves
}

func walkRays(b *Board, player Color, from Square, rays []offset, out []Square) []Square {
	for _, ray := range rays {
		for i := 1; i < Size; i++ {
			to := from.offset(ray.dRow*i, ray.dCol*i)
			if !to.InBounds() {
				break
			}
			if ValidateMove(b, player, from, to) != nil {
				break
			}
			out = append(out, to)
			if _, captured := b.at(to); captured {
				break
			}
		}
	}
	return out
}

func tryOffsets(b *Board, player Color, from Square, offsets []offset, out []Square) []Square {
	for _, o := range offsets {
		to := from.offset(o.dRow, o.dCol)
		if !to.InBounds() {
			continue
		}
		if ValidateMove(b, player, from, to) == nil {
			out = append(out, to)
		}
	}
	return out
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
