// Package session hosts live boards for WebSocket clients. Each board is
// loaded into a room on first join; clients drive it with input messages
// and receive its events and the draw commands it records.
package session

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/noteboard/noteboard/internal/board"
	"github.com/noteboard/noteboard/internal/boards"
	"github.com/noteboard/noteboard/internal/document"
	"github.com/noteboard/noteboard/internal/export"
	"github.com/noteboard/noteboard/internal/render"
	"github.com/noteboard/noteboard/internal/shape"
)

// saveTimeout bounds the save made when a room empties.
const saveTimeout = 10 * time.Second

var ErrStopped = errors.New("session hub stopped")

// Documents loads and saves board documents.
type Documents interface {
	LatestDocument(ctx context.Context, boardID string) (*document.Document, error)
	SaveDocument(ctx context.Context, boardID string, doc *document.Document) (int, error)
}

type Config struct {
	// Board holds the defaults for every room's board. Width and Height
	// are taken from the saved document when it has them.
	Board  board.Options
	FPS    int
	Loader shape.Loader
	Logger *slog.Logger
	// Frames creates the frame clock of each room. The default ticks at FPS.
	Frames func() render.FrameSource

	// CheckSource rejects image sources clients may not use. Nil allows all.
	CheckSource func(src string) error
}

type Hub struct {
	docs   Documents
	cfg    Config
	logger *slog.Logger

	// loads outlives any one request; image loads started by clients run on it.
	loads      context.Context
	cancelLoad context.CancelFunc

	mu      sync.Mutex
	rooms   map[string]*Room // boardID -> room
	stopped bool
}

func NewHub(docs Documents, cfg Config) *Hub {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.FPS <= 0 {
		cfg.FPS = 60
	}
	if cfg.Frames == nil {
		fps := cfg.FPS
		cfg.Frames = func() render.FrameSource { return render.NewTickerSource(fps) }
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		docs:       docs,
		cfg:        cfg,
		logger:     cfg.Logger,
		loads:      ctx,
		cancelLoad: cancel,
		rooms:      make(map[string]*Room),
	}
}

// Join attaches c to the room of c.BoardID, opening the board on first
// join, then greets c with the board's document and a full frame.
func (h *Hub) Join(ctx context.Context, c *Client) error {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return ErrStopped
	}
	room, ok := h.rooms[c.BoardID]
	if !ok {
		var err error
		room, err = h.openRoom(ctx, c.BoardID)
		if err != nil {
			h.mu.Unlock()
			return err
		}
		h.rooms[c.BoardID] = room
	}
	room.add(c)
	h.mu.Unlock()

	if err := room.welcome(c); err != nil {
		return fmt.Errorf("welcome client: %w", err)
	}
	h.logger.Info("client joined", "client", c.ClientID, "board", c.BoardID)
	return nil
}

// Leave detaches c. The last client out saves unsaved changes and closes
// the room.
func (h *Hub) Leave(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c.close()
	room, ok := h.rooms[c.BoardID]
	if !ok || !room.remove(c) {
		return
	}
	h.logger.Info("client left", "client", c.ClientID, "board", c.BoardID)

	if room.empty() {
		delete(h.rooms, c.BoardID)
		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		defer cancel()
		room.close(ctx)
	}
}

// HandleMessage applies one client message to the client's room.
func (h *Hub) HandleMessage(ctx context.Context, c *Client, msg *Message) {
	h.mu.Lock()
	room, ok := h.rooms[c.BoardID]
	h.mu.Unlock()
	if !ok {
		c.Send(errorMessage(msg.Type, "not joined"))
		return
	}

	if err := room.handle(ctx, c, msg); err != nil {
		h.logger.Debug("message rejected", "type", msg.Type, "client", c.ClientID, "error", err)
		c.Send(errorMessage(msg.Type, err.Error()))
	}
	room.flush()
}

// Snapshot renders a board for export. A live board is rendered as it
// stands, including unsaved changes; otherwise the latest saved document
// is loaded onto a headless board.
func (h *Hub) Snapshot(ctx context.Context, boardID string) (image.Image, error) {
	h.mu.Lock()
	room, ok := h.rooms[boardID]
	h.mu.Unlock()
	if ok {
		if err := room.board.WaitImages(ctx); err != nil {
			return nil, err
		}
		return room.board.Snapshot()
	}

	doc, err := h.docs.LatestDocument(ctx, boardID)
	if errors.Is(err, boards.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", export.ErrNotFound, boardID)
	}
	if err != nil {
		return nil, err
	}
	b, err := board.NewHeadless(h.options(doc),
		board.WithLogger(h.logger),
		board.WithLoader(h.cfg.Loader),
		board.WithFrameSource(render.NewManualSource()),
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = b.Dispose() }()

	if err := b.LoadDocument(ctx, doc); err != nil {
		return nil, err
	}
	if err := b.WaitImages(ctx); err != nil {
		return nil, err
	}
	return b.Snapshot()
}

// Stop saves every open room and disconnects all clients.
func (h *Hub) Stop(ctx context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.stopped = true
	for id, room := range h.rooms {
		room.disconnect()
		room.close(ctx)
		delete(h.rooms, id)
	}
	h.cancelLoad()
}

// Rooms returns the ids of the boards currently open.
func (h *Hub) Rooms() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	ids := make([]string, 0, len(h.rooms))
	for id := range h.rooms {
		ids = append(ids, id)
	}
	return ids
}

func (h *Hub) options(doc *document.Document) board.Options {
	opts := h.cfg.Board
	if doc.Board.Width > 0 && doc.Board.Height > 0 {
		opts.Width, opts.Height = float64(doc.Board.Width), float64(doc.Board.Height)
	}
	return opts
}

func errorMessage(request, text string) *Message {
	return newMessage(TypeError, ErrorPayload{Request: request, Message: text})
}
