package auth

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/noteboard/noteboard/internal/store"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type tokenRequest struct {
	Passcode string `json:"passcode"`
}

type tokenResponse struct {
	Token   string `json:"token"`
	BoardID string `json:"boardId"`
}

// Token exchanges a board passcode for an access token. Open boards accept
// an empty body.
func (h *Handler) Token(w http.ResponseWriter, r *http.Request) {
	boardID := mux.Vars(r)["boardId"]

	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	token, err := h.service.Authorize(r.Context(), boardID, req.Passcode)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "board not found"})
		case errors.Is(err, ErrInvalidCredentials):
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid passcode"})
		default:
			slog.Error("issue token failed", "board", boardID, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		}
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{Token: token, BoardID: boardID})
}
