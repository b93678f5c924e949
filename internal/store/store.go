// Package store persists boards and their document snapshots.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("already exists")
)

// Board is the stored metadata of one board. PasscodeHash is empty for
// open boards.
type Board struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	PasscodeHash string    `json:"-"`
	Width        int       `json:"width"`
	Height       int       `json:"height"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Snapshot is one saved version of a board document.
type Snapshot struct {
	ID        string          `json:"id"`
	BoardID   string          `json:"boardId"`
	Version   int             `json:"version"`
	Document  json.RawMessage `json:"document"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Store is implemented by Postgres and Memory.
type Store interface {
	CreateBoard(ctx context.Context, b Board) error
	GetBoard(ctx context.Context, id string) (Board, error)
	ListBoards(ctx context.Context) ([]Board, error)
	DeleteBoard(ctx context.Context, id string) error

	// CreateSnapshot stores s with the next version for its board and
	// returns that version.
	CreateSnapshot(ctx context.Context, s Snapshot) (int, error)
	LatestSnapshot(ctx context.Context, boardID string) (Snapshot, error)
}
