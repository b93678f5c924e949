package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/noteboard/noteboard/internal/board"
	"github.com/noteboard/noteboard/internal/geom"
	"github.com/noteboard/noteboard/internal/input"
	"github.com/noteboard/noteboard/internal/render"
	"github.com/noteboard/noteboard/internal/surface"
)

// Room is one live board and the clients attached to it. The board draws
// into a recorder; recorded commands are flushed to every client after
// each frame and after each handled message.
type Room struct {
	boardID string
	board   *board.Board
	rec     *surface.Recorder
	docs    Documents
	loads   context.Context
	logger  *slog.Logger
	check   func(src string) error

	// dirty is set by commits and cleared by saves.
	dirty  atomic.Bool
	unsubs []func()

	mu      sync.RWMutex
	clients map[string]*Client // clientID -> client
}

func (h *Hub) openRoom(ctx context.Context, boardID string) (*Room, error) {
	doc, err := h.docs.LatestDocument(ctx, boardID)
	if err != nil {
		return nil, fmt.Errorf("load board %s: %w", boardID, err)
	}

	opts := h.options(doc)
	logger := h.logger.With("board", boardID)
	rec := surface.NewRecorder(geom.Size{Width: opts.Width, Height: opts.Height}, opts.DPR)
	b, err := board.New(rec, opts,
		board.WithLogger(logger),
		board.WithLoader(h.cfg.Loader),
		board.WithFrameSource(h.cfg.Frames()),
	)
	if err != nil {
		return nil, fmt.Errorf("open board %s: %w", boardID, err)
	}
	if err := b.LoadDocument(h.loads, doc); err != nil {
		if derr := b.Dispose(); derr != nil {
			logger.Warn("dispose board", "error", derr)
		}
		return nil, fmt.Errorf("open board %s: %w", boardID, err)
	}

	r := &Room{
		boardID: boardID,
		board:   b,
		rec:     rec,
		docs:    h.docs,
		loads:   h.loads,
		logger:  logger,
		check:   h.cfg.CheckSource,
		clients: make(map[string]*Client),
	}
	r.unsubs = append(r.unsubs, b.On(r.onEvent), b.OnFrame(r.onFrame))
	if err := b.Start(); err != nil {
		r.close(ctx)
		return nil, err
	}
	logger.Info("room opened", "shapes", len(doc.Shapes))
	return r, nil
}

func (r *Room) add(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[c.ClientID] = c
}

// remove reports whether c was in the room.
func (r *Room) remove(c *Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.clients[c.ClientID]; !ok {
		return false
	}
	delete(r.clients, c.ClientID)
	return true
}

func (r *Room) empty() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients) == 0
}

func (r *Room) welcome(c *Client) error {
	doc, err := r.board.Document()
	if err != nil {
		return err
	}
	size, dpr := r.board.Size()
	c.Send(newMessage(TypeWelcome, WelcomePayload{
		ClientID: c.ClientID,
		BoardID:  r.boardID,
		Mode:     r.board.Mode(),
		Cursor:   r.board.Cursor(),
		Width:    size.Width,
		Height:   size.Height,
		DPR:      dpr,
		Document: doc,
	}))
	// A full repaint reaches the new client through onFrame.
	return r.board.RenderNow()
}

// onEvent forwards board events. It runs after the board lock is released.
func (r *Room) onEvent(e board.Event) {
	if e.Type == board.EventCommit {
		r.dirty.Store(true)
	}
	r.broadcast(newMessage(TypeEvent, e))
}

// onFrame runs under the board lock, so it may read the recorder.
func (r *Room) onFrame(st render.Stats) {
	cmds := r.rec.Flush()
	r.broadcast(newMessage(TypeDraw, DrawPayload{Frame: st.Frame, Commands: cmds}))
}

// flush sends commands drawn outside a frame, such as stroke segments.
func (r *Room) flush() {
	var cmds []surface.DrawCommand
	if err := r.board.Locked(func() { cmds = r.rec.Flush() }); err != nil || len(cmds) == 0 {
		return
	}
	r.broadcast(newMessage(TypeDraw, DrawPayload{Commands: cmds}))
}

func (r *Room) broadcast(msg *Message) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.clients {
		c.Send(msg)
	}
}

func (r *Room) handle(ctx context.Context, c *Client, msg *Message) error {
	b := r.board
	switch msg.Type {
	case TypePointer:
		var ev input.PointerEvent
		if err := decode(msg, &ev); err != nil {
			return err
		}
		return b.HandlePointer(ev)

	case TypeWheel:
		var ev input.WheelEvent
		if err := decode(msg, &ev); err != nil {
			return err
		}
		return b.HandleWheel(ev)

	case TypeMode:
		var p ModePayload
		if err := decode(msg, &p); err != nil {
			return err
		}
		return b.SetMode(board.Mode(p.Mode))

	case TypeStyle:
		var p StylePayload
		if err := decode(msg, &p); err != nil {
			return err
		}
		if p.StrokeColor == "" && p.LineWidth == 0 {
			return errors.New("style: nothing to change")
		}
		if p.StrokeColor != "" {
			if err := b.SetStrokeColor(p.StrokeColor); err != nil {
				return err
			}
		}
		if p.LineWidth != 0 {
			return b.SetLineWidth(p.LineWidth)
		}
		return nil

	case TypeUndo:
		_, err := b.Undo()
		return err

	case TypeRedo:
		_, err := b.Redo()
		return err

	case TypeClear:
		return b.Clear()

	case TypeZoom:
		var p ZoomPayload
		if err := decode(msg, &p); err != nil {
			return err
		}
		switch p.Step {
		case "in":
			return b.ZoomIn()
		case "out":
			return b.ZoomOut()
		case "reset":
			return b.ResetView()
		case "":
			return b.Zoom(p.Zoom)
		}
		return fmt.Errorf("zoom: unknown step %q", p.Step)

	case TypeResize:
		var p ResizePayload
		if err := decode(msg, &p); err != nil {
			return err
		}
		return b.Resize(p.Width, p.Height, p.DPR)

	case TypeImage:
		var p ImagePayload
		if err := decode(msg, &p); err != nil {
			return err
		}
		if err := r.checkSource(p.Src); err != nil {
			return err
		}
		_, err := b.AddImage(r.loads, p.Src, geom.Pt(p.X, p.Y), p.Width, p.Height)
		return err

	case TypeBackground:
		var p BackgroundPayload
		if err := decode(msg, &p); err != nil {
			return err
		}
		if p.Src == "" {
			return b.ClearBackgroundImage()
		}
		if err := r.checkSource(p.Src); err != nil {
			return err
		}
		return b.DrawBackgroundImage(r.loads, p.Src, p.Fit)

	case TypeExport:
		var p ExportRequest
		if err := decode(msg, &p); err != nil {
			return err
		}
		url, err := b.Export(ctx, p.Format, p.Quality)
		if err != nil {
			return err
		}
		c.Send(newMessage(TypeExport, ExportPayload{Format: p.Format, DataURL: url}))
		return nil

	case TypeSave:
		version, err := r.save(ctx)
		if err != nil {
			return err
		}
		c.Send(newMessage(TypeSaved, SavedPayload{Version: version}))
		return nil
	}
	return fmt.Errorf("unknown message type %q", msg.Type)
}

func (r *Room) save(ctx context.Context) (int, error) {
	r.dirty.Store(false)
	doc, err := r.board.Document()
	if err != nil {
		return 0, err
	}
	version, err := r.docs.SaveDocument(ctx, r.boardID, doc)
	if err != nil {
		r.dirty.Store(true)
		return 0, fmt.Errorf("save board: %w", err)
	}
	r.logger.Info("board saved", "version", version)
	return version, nil
}

// disconnect closes every client's send queue.
func (r *Room) disconnect() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, c := range r.clients {
		c.close()
		delete(r.clients, id)
	}
}

// close saves unsaved changes and disposes the board.
func (r *Room) close(ctx context.Context) {
	if r.dirty.Load() {
		if _, err := r.save(ctx); err != nil {
			r.logger.Error("save on close failed", "error", err)
		}
	}
	for _, u := range r.unsubs {
		u()
	}
	if err := r.board.Dispose(); err != nil {
		r.logger.Warn("dispose board", "error", err)
	}
	r.logger.Info("room closed")
}

func (r *Room) checkSource(src string) error {
	if r.check == nil || src == "" {
		return nil
	}
	return r.check(src)
}

func decode(msg *Message, v any) error {
	if len(msg.Payload) == 0 {
		return fmt.Errorf("%s: missing payload", msg.Type)
	}
	if err := json.Unmarshal(msg.Payload, v); err != nil {
		return fmt.Errorf("%s: invalid payload: %w", msg.Type, err)
	}
	return nil
}

func newMessage(typ string, payload any) *Message {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal payload", "type", typ, "error", err)
	}
	return &Message{Type: typ, Payload: data}
}
