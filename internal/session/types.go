package session

import (
	"errors"
	"time"
)

// Status represents a game lifecycle state.
type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusFinished Status = "FINISHED"
)

// Record is the persisted form of a game. The board is never stored; it is
// rebuilt by replaying Moves from the starting position.
type Record struct {
	ID     string   `json:"id"`
	Moves  []string `json:"moves"`
	Status Status   `json:"status"`
	Winner string   `json:"winner,omitempty"`
	// Version counts committed moves and resets, resets included, so it only
	// ever grows for one id.
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a deep copy.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	out := *r
	out.Moves = append([]string{}, r.Moves...)
	return &out
}

var (
	ErrGameNotFound = errors.New("game not found")
	ErrGameExists   = errors.New("game already exists")
	ErrConflict     = errors.New("concurrent update, retry")
	ErrCorrupt      = errors.New("stored game cannot be replayed")
)
