package store

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"
)

// Memory is an in-process Store used when no database is configured.
type Memory struct {
	mu        sync.RWMutex
	boards    map[string]Board
	snapshots map[string][]Snapshot
}

func NewMemory() *Memory {
	return &Memory{
		boards:    make(map[string]Board),
		snapshots: make(map[string][]Snapshot),
	}
}

func (m *Memory) CreateBoard(_ context.Context, b Board) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.boards[b.ID]; ok {
		return fmt.Errorf("create board %s: %w", b.ID, ErrDuplicate)
	}
	now := time.Now().UTC()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
	m.boards[b.ID] = b
	return nil
}

func (m *Memory) GetBoard(_ context.Context, id string) (Board, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.boards[id]
	if !ok {
		return Board{}, fmt.Errorf("get board %s: %w", id, ErrNotFound)
	}
	return b, nil
}

// ListBoards returns boards most recently updated first.
func (m *Memory) ListBoards(_ context.Context) ([]Board, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Board, 0, len(m.boards))
	for _, b := range m.boards {
		out = append(out, b)
	}
	slices.SortFunc(out, func(a, b Board) int {
		if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (m *Memory) DeleteBoard(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.boards[id]; !ok {
		return fmt.Errorf("delete board %s: %w", id, ErrNotFound)
	}
	delete(m.boards, id)
	delete(m.snapshots, id)
	return nil
}

func (m *Memory) CreateSnapshot(_ context.Context, s Snapshot) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.boards[s.BoardID]
	if !ok {
		return 0, fmt.Errorf("create snapshot for %s: %w", s.BoardID, ErrNotFound)
	}
	snaps := m.snapshots[s.BoardID]
	s.Version = len(snaps) + 1
	s.CreatedAt = time.Now().UTC()
	s.Document = append([]byte(nil), s.Document...)
	m.snapshots[s.BoardID] = append(snaps, s)

	b.UpdatedAt = s.CreatedAt
	m.boards[b.ID] = b
	return s.Version, nil
}

func (m *Memory) LatestSnapshot(_ context.Context, boardID string) (Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snaps := m.snapshots[boardID]
	if len(snaps) == 0 {
		return Snapshot{}, fmt.Errorf("latest snapshot for %s: %w", boardID, ErrNotFound)
	}
	return snaps[len(snaps)-1], nil
}
