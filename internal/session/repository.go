package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
)

// Repository archives game outcomes in Postgres.
type Repository struct {
	db *sql.DB
}

const schemaSQL = `CREATE TABLE IF NOT EXISTS chess_games (
    game_id       TEXT PRIMARY KEY,
    result        TEXT NOT NULL,
    result_method TEXT NOT NULL,
    moves         JSONB NOT NULL,
    move_count    INTEGER NOT NULL,
    movetext      TEXT NOT NULL,
    started_at    TIMESTAMPTZ NOT NULL,
    ended_at      TIMESTAMPTZ NOT NULL,
    duration_ms   BIGINT NOT NULL
)`

const upsertSQL = `INSERT INTO chess_games (
    game_id, result, result_method, moves, move_count, movetext,
    started_at, ended_at, duration_ms
  ) VALUES (
    $1,$2,$3,$4,$5,$6,$7,$8,$9
  ) ON CONFLICT (game_id) DO UPDATE SET
    result=EXCLUDED.result,
    result_method=EXCLUDED.result_method,
    moves=EXCLUDED.moves,
    move_count=EXCLUDED.move_count,
    movetext=EXCLUDED.movetext,
    started_at=EXCLUDED.started_at,
    ended_at=EXCLUDED.ended_at,
    duration_ms=EXCLUDED.duration_ms`

func NewRepository(ctx context.Context, databaseURL string) (*Repository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// EnsureSchema creates the archive table if needed.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, schemaSQL)
	return err
}

// SaveResult upserts the outcome of rec.
func (r *Repository) SaveResult(ctx context.Context, rec *Record, result, method string) error {
	if r == nil || r.db == nil || rec == nil {
		return nil
	}
	row, err := newArchiveRow(rec, result, method)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, upsertSQL, row.args()...)
	return err
}

type archiveRow struct {
	GameID     string
	Result     string
	Method     string
	Moves      string
	MoveCount  int
	Movetext   string
	StartedAt  time.Time
	EndedAt    time.Time
	DurationMS int64
}

func newArchiveRow(rec *Record, result, method string) (archiveRow, error) {
	moves := rec.Moves
	if moves == nil {
		moves = []string{}
	}
	raw, err := json.Marshal(moves)
	if err != nil {
		return archiveRow{}, err
	}
	duration := rec.UpdatedAt.Sub(rec.CreatedAt).Milliseconds()
	if duration < 0 {
		duration = 0
	}
	result = strings.ToLower(strings.TrimSpace(result))
	return archiveRow{
		GameID:     rec.ID,
		Result:     result,
		Method:     strings.TrimSpace(method),
		Moves:      string(raw),
		MoveCount:  len(moves),
		Movetext:   buildMovetext(moves, resultToken(result)),
		StartedAt:  rec.CreatedAt,
		EndedAt:    rec.UpdatedAt,
		DurationMS: duration,
	}, nil
}

func (a archiveRow) args() []any {
	return []any{a.GameID, a.Result, a.Method, a.Moves, a.MoveCount, a.Movetext, a.StartedAt, a.EndedAt, a.DurationMS}
}

func resultToken(result string) string {
	switch result {
	case "white":
		return "1-0"
	case "black":
		return "0-1"
	default:
		return "*"
	}
}

// buildMovetext numbers the moves in pairs: "1. e2e4 e7e5 2. g1f3 1-0".
func buildMovetext(moves []string, token string) string {
	var b strings.Builder
	for i := 0; i < len(moves); i += 2 {
		fmt.Fprintf(&b, "%d. %s ", i/2+1, moves[i])
		if i+1 < len(moves) {
			b.WriteString(moves[i+1])
			b.WriteString(" ")
		}
	}
	b.WriteString(token)
	return b.String()
}
