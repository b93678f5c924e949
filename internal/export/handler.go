package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
)

// ErrNotFound is returned by a Source for unknown boards.
var ErrNotFound = errors.New("board not found")

// Source renders a board to pixels.
type Source interface {
	Snapshot(ctx context.Context, boardID string) (image.Image, error)
}

type Handler struct {
	source Source
}

func NewHandler(source Source) *Handler {
	return &Handler{source: source}
}

type dataURLResponse struct {
	DataURL string `json:"dataUrl"`
	Format  Format `json:"format"`
}

// Export handles GET /boards/{boardId}/export?format=png|jpeg|pdf&quality=0.9.
// With as=dataurl the body is JSON carrying a data URL, otherwise the
// encoded file is sent as an attachment.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	boardID := mux.Vars(r)["boardId"]
	q := r.URL.Query()

	format, err := ParseFormat(q.Get("format"))
	if err != nil {
		http.Error(w, "invalid format: must be png, jpeg, or pdf", http.StatusBadRequest)
		return
	}

	quality := DefaultQuality
	if s := q.Get("quality"); s != "" {
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			quality = v
		}
	}

	img, err := h.source.Snapshot(r.Context(), boardID)
	if errors.Is(err, ErrNotFound) {
		http.Error(w, "board not found", http.StatusNotFound)
		return
	}
	if err != nil {
		slog.Error("snapshot board", "board", boardID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	data, err := Encode(img, format, quality)
	if err != nil {
		slog.Error("encode export", "board", boardID, "format", format, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	slog.Info("board exported", "board", boardID, "format", format, "bytes", len(data))

	if q.Get("as") == "dataurl" {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(dataURLResponse{
			DataURL: wrapDataURL(format, data),
			Format:  format,
		})
		return
	}

	name := sanitizeName(q.Get("name"))
	w.Header().Set("Content-Type", format.MIMEType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s%s"`, name, format.Ext()))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Write(data)
}

func sanitizeName(name string) string {
	if name == "" {
		return "board"
	}
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}
		return '-'
	}, name)
}
