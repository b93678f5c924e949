// Package boards manages the catalog of persisted boards and their saved
// documents.
package boards

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/noteboard/noteboard/internal/auth"
	"github.com/noteboard/noteboard/internal/document"
	"github.com/noteboard/noteboard/internal/store"
	"github.com/noteboard/noteboard/internal/typeid"
)

// PlaygroundID names the shared board anyone may join without a token.
const PlaygroundID = "playground"

var (
	ErrNotFound     = errors.New("board not found")
	ErrInvalidInput = errors.New("invalid input")
)

type Service struct {
	store store.Store
}

func NewService(st store.Store) *Service {
	return &Service{store: st}
}

type Board struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Protected bool   `json:"protected"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

type CreateParams struct {
	Name     string
	Passcode string
	Width    int
	Height   int
}

func (s *Service) Create(ctx context.Context, p CreateParams) (*Board, error) {
	if p.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if p.Width <= 0 || p.Height <= 0 {
		p.Width, p.Height = 800, 600
	}
	hash, err := auth.HashPasscode(p.Passcode)
	if err != nil {
		return nil, err
	}
	return s.create(ctx, typeid.NewBoardID(), p, hash, document.NewEmptyDocument)
}

// EnsurePlayground creates the shared playground board, seeded with the
// sample document, unless it already exists.
func (s *Service) EnsurePlayground(ctx context.Context) error {
	_, err := s.store.GetBoard(ctx, PlaygroundID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("get playground: %w", err)
	}
	p := CreateParams{Name: "Playground", Width: 800, Height: 600}
	_, err = s.create(ctx, PlaygroundID, p, "", func(id, _ string, _, _ int) *document.Document {
		return document.NewSampleDocument(id)
	})
	if errors.Is(err, store.ErrDuplicate) {
		return nil
	}
	return err
}

func (s *Service) create(ctx context.Context, id string, p CreateParams, hash string, seed func(id, name string, w, h int) *document.Document) (*Board, error) {
	rec := store.Board{
		ID:           id,
		Name:         p.Name,
		PasscodeHash: hash,
		Width:        p.Width,
		Height:       p.Height,
	}
	if err := s.store.CreateBoard(ctx, rec); err != nil {
		return nil, fmt.Errorf("create board: %w", err)
	}

	// Seed empty document snapshot
	doc := seed(id, p.Name, p.Width, p.Height)
	if _, err := s.SaveDocument(ctx, id, doc); err != nil {
		return nil, fmt.Errorf("create initial snapshot: %w", err)
	}

	return s.Get(ctx, id)
}

func (s *Service) Get(ctx context.Context, boardID string) (*Board, error) {
	rec, err := s.store.GetBoard(ctx, boardID)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return toBoard(rec), nil
}

func (s *Service) List(ctx context.Context) ([]Board, error) {
	recs, err := s.store.ListBoards(ctx)
	if err != nil {
		return nil, fmt.Errorf("list boards: %w", err)
	}

	out := make([]Board, len(recs))
	for i, rec := range recs {
		out[i] = *toBoard(rec)
	}
	return out, nil
}

func (s *Service) Delete(ctx context.Context, boardID string) error {
	if boardID == PlaygroundID {
		return fmt.Errorf("%w: the playground cannot be deleted", ErrInvalidInput)
	}
	return mapNotFound(s.store.DeleteBoard(ctx, boardID))
}

// LatestDocument returns the most recently saved document of a board.
func (s *Service) LatestDocument(ctx context.Context, boardID string) (*document.Document, error) {
	snap, err := s.store.LatestSnapshot(ctx, boardID)
	if err != nil {
		return nil, mapNotFound(err)
	}
	doc, err := document.Parse(snap.Document)
	if err != nil {
		return nil, fmt.Errorf("parse snapshot %s: %w", snap.ID, err)
	}
	return doc, nil
}

// SaveDocument stores doc as the board's next snapshot and returns its
// version.
func (s *Service) SaveDocument(ctx context.Context, boardID string, doc *document.Document) (int, error) {
	if err := doc.Validate(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	rec, err := s.store.GetBoard(ctx, boardID)
	if err != nil {
		return 0, mapNotFound(err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	doc.Board.ID = rec.ID
	doc.Board.Name = rec.Name
	doc.Board.Version = document.CurrentVersion
	if doc.Board.CreatedAt == "" {
		doc.Board.CreatedAt = rec.CreatedAt.UTC().Format(time.RFC3339)
	}
	doc.Board.UpdatedAt = now

	data, err := json.Marshal(doc)
	if err != nil {
		return 0, fmt.Errorf("marshal document: %w", err)
	}
	version, err := s.store.CreateSnapshot(ctx, store.Snapshot{
		ID:       typeid.NewSnapshotID(),
		BoardID:  boardID,
		Document: data,
	})
	if err != nil {
		return 0, mapNotFound(err)
	}
	return version, nil
}

func mapNotFound(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return err
}

func toBoard(rec store.Board) *Board {
	return &Board{
		ID:        rec.ID,
		Name:      rec.Name,
		Protected: rec.PasscodeHash != "",
		Width:     rec.Width,
		Height:    rec.Height,
		CreatedAt: rec.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: rec.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
