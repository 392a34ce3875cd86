package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/park285/chessmaster/internal/chess"
	"github.com/park285/chessmaster/internal/obslog"
)

// Change is one committed state of a game. Version orders changes of the
// same game; listeners may be called out of order.
type Change struct {
	ID      string      `json:"id"`
	Version int64       `json:"version"`
	State   chess.State `json:"state"`
}

// Listener is told about every state change that was written.
type Listener func(Change)

// Archive keeps the outcome of games that leave play.
type Archive interface {
	SaveResult(ctx context.Context, rec *Record, result, method string) error
}

// Archive results and methods.
const (
	ResultAbandoned   = "abandoned"
	MethodKingCapture = "king_capture"
	MethodReset       = "reset"
)

// errNoWrite aborts a store update for a refused move.
var errNoWrite = errors.New("no_write")

// Manager owns game sessions. Every mutation goes through Store.Update, so
// moves on one game are serialized even across server replicas.
type Manager struct {
	store   Store
	archive Archive
	now     func() time.Time
	newID   func() string

	mu        sync.RWMutex
	listeners []Listener
}

func NewManager(store Store) *Manager {
	return &Manager{store: store, now: time.Now, newID: uuid.NewString}
}

// AttachArchive wires a repository for finished and abandoned games.
func (m *Manager) AttachArchive(a Archive) {
	if m != nil {
		m.archive = a
	}
}

// OnChange registers fn for successful moves and resets.
func (m *Manager) OnChange(fn Listener) {
	if fn == nil {
		return
	}
	m.mu.Lock()
	m.listeners = append(m.listeners, fn)
	m.mu.Unlock()
}

func (m *Manager) Close() error {
	if m == nil || m.store == nil {
		return nil
	}
	return m.store.Close()
}

// Create starts a new game and returns its id.
func (m *Manager) Create(ctx context.Context) (string, chess.State, error) {
	now := m.now()
	rec := &Record{ID: m.newID(), Moves: []string{}, Status: StatusActive, CreatedAt: now, UpdatedAt: now}
	if err := m.store.Create(ctx, rec); err != nil {
		return "", chess.State{}, err
	}
	obslog.L().Info("game_create", zap.String("game_id", rec.ID))
	return rec.ID, chess.NewGame().State(), nil
}

// Load returns the rebuilt game with its record.
func (m *Manager) Load(ctx context.Context, id string) (*chess.Game, *Record, error) {
	rec, err := m.store.Load(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	g, err := Replay(rec.Moves)
	if err != nil {
		return nil, nil, fmt.Errorf("game %s: %w", id, err)
	}
	return g, rec, nil
}

func (m *Manager) State(ctx context.Context, id string) (chess.State, error) {
	g, _, err := m.Load(ctx, id)
	if err != nil {
		return chess.State{}, err
	}
	return g.State(), nil
}

// Snapshot returns the current state with its version.
func (m *Manager) Snapshot(ctx context.Context, id string) (Change, error) {
	g, rec, err := m.Load(ctx, id)
	if err != nil {
		return Change{}, err
	}
	return Change{ID: id, Version: rec.Version, State: g.State()}, nil
}

// PossibleMoves lists destinations for the side to move from (row, col).
func (m *Manager) PossibleMoves(ctx context.Context, id string, row, col int) ([]chess.Square, error) {
	g, _, err := m.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	return g.PossibleMoves(row, col), nil
}

// Move plays text on game id. A refused move is not an error: the result
// carries the reason and nothing is written.
func (m *Manager) Move(ctx context.Context, id, text string) (chess.MoveResult, chess.State, error) {
	var (
		res    chess.MoveResult
		st     chess.State
		player chess.Color
	)
	rec, err := m.store.Update(ctx, id, func(cur *Record) error {
		g, err := Replay(cur.Moves)
		if err != nil {
			return err
		}
		player = g.CurrentPlayer()
		res = g.MakeMove(text)
		st = g.State()
		if !res.Success {
			return errNoWrite
		}
		mv, err := chess.ParseMove(text)
		if err != nil {
			return err
		}
		cur.Moves = append(cur.Moves, mv.String())
		cur.Version++
		cur.UpdatedAt = m.now()
		if w, over := g.Winner(); over {
			cur.Status = StatusFinished
			cur.Winner = w.String()
		}
		return nil
	})
	if errors.Is(err, errNoWrite) {
		obslog.L().Debug("game_move_rejected",
			zap.String("game_id", id),
			zap.String("move", text),
			zap.String("reason", res.Message),
		)
		return res, st, nil
	}
	if err != nil {
		return chess.MoveResult{}, chess.State{}, err
	}

	obslog.L().Info("game_move",
		zap.String("game_id", id),
		zap.String("player", player.String()),
		zap.String("move", rec.Moves[len(rec.Moves)-1]),
		zap.Int("ply", len(rec.Moves)),
		zap.String("status", string(rec.Status)),
	)
	m.notify(Change{ID: id, Version: rec.Version, State: st})
	if rec.Status == StatusFinished {
		m.persist(ctx, rec, rec.Winner, MethodKingCapture)
	}
	return res, st, nil
}

// Reset replaces the game with a fresh one under the same id. An unfinished
// game with moves is archived as abandoned.
func (m *Manager) Reset(ctx context.Context, id string) (chess.State, error) {
	var prev *Record
	rec, err := m.store.Update(ctx, id, func(cur *Record) error {
		prev = cur.Clone()
		now := m.now()
		*cur = Record{ID: cur.ID, Moves: []string{}, Status: StatusActive, Version: cur.Version + 1, CreatedAt: now, UpdatedAt: now}
		return nil
	})
	if err != nil {
		return chess.State{}, err
	}

	obslog.L().Info("game_reset", zap.String("game_id", id), zap.Int("discarded_plies", len(prev.Moves)))
	st := chess.NewGame().State()
	m.notify(Change{ID: id, Version: rec.Version, State: st})
	if prev.Status == StatusActive && len(prev.Moves) > 0 {
		prev.UpdatedAt = m.now()
		m.persist(ctx, prev, ResultAbandoned, MethodReset)
	}
	return st, nil
}

// Latest returns the most recently updated unfinished game. It needs a store
// that implements Lister and reports ErrGameNotFound when there is none.
func (m *Manager) Latest(ctx context.Context) (*Record, error) {
	lister, ok := m.store.(Lister)
	if !ok {
		return nil, ErrGameNotFound
	}
	ids, err := lister.List(ctx)
	if err != nil {
		return nil, err
	}
	var best *Record
	for _, id := range ids {
		rec, err := m.store.Load(ctx, id)
		if errors.Is(err, ErrGameNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if rec.Status != StatusActive {
			continue
		}
		if best == nil || rec.UpdatedAt.After(best.UpdatedAt) {
			best = rec
		}
	}
	if best == nil {
		return nil, ErrGameNotFound
	}
	return best, nil
}

// Replay rebuilds a game from normalized moves.
func Replay(moves []string) (*chess.Game, error) {
	g := chess.NewGame()
	for i, text := range moves {
		mv, err := chess.ParseMove(text)
		if err != nil {
			return nil, fmt.Errorf("%w: ply %d %q: %v", ErrCorrupt, i+1, text, err)
		}
		if err := g.Apply(mv); err != nil {
			return nil, fmt.Errorf("%w: ply %d %q: %v", ErrCorrupt, i+1, text, err)
		}
	}
	return g, nil
}

func (m *Manager) notify(c Change) {
	m.mu.RLock()
	ls := append([]Listener(nil), m.listeners...)
	m.mu.RUnlock()
	for _, fn := range ls {
		fn(c)
	}
}

// persist saves the outcome if an archive is attached. Failures are logged.
func (m *Manager) persist(ctx context.Context, rec *Record, result, method string) {
	if m.archive == nil || rec == nil {
		return
	}
	if err := m.archive.SaveResult(ctx, rec, result, method); err != nil {
		obslog.L().Error("game_archive_error", zap.String("game_id", rec.ID), zap.String("result", result), zap.Error(err))
		return
	}
	obslog.L().Info("game_archive", zap.String("game_id", rec.ID), zap.String("result", result), zap.String("method", method))
}
