package boards

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
)

// TokenIssuer signs board access tokens.
type TokenIssuer interface {
	IssueToken(boardID string) (string, error)
}

type Handler struct {
	service *Service
	tokens  TokenIssuer
}

func NewHandler(service *Service, tokens TokenIssuer) *Handler {
	return &Handler{service: service, tokens: tokens}
}

type createRequest struct {
	Name     string `json:"name"`
	Passcode string `json:"passcode"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
}

type createResponse struct {
	Board *Board `json:"board"`
	Token string `json:"token"`
}

// Create makes a new board and returns it with an access token, so the
// creator does not need to send the passcode back.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	board, err := h.service.Create(r.Context(), CreateParams{
		Name:     req.Name,
		Passcode: req.Passcode,
		Width:    req.Width,
		Height:   req.Height,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	token, err := h.tokens.IssueToken(board.ID)
	if err != nil {
		slog.Error("issue token failed", "board", board.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	writeJSON(w, http.StatusCreated, createResponse{Board: board, Token: token})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	board, err := h.service.Get(r.Context(), mux.Vars(r)["boardId"])
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, board)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	boards, err := h.service.List(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, boards)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), mux.Vars(r)["boardId"]); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Document returns the latest saved document of a board.
func (h *Handler) Document(w http.ResponseWriter, r *http.Request) {
	doc, err := h.service.LatestDocument(r.Context(), mux.Vars(r)["boardId"])
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, doc)
}

func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		slog.Error("service error", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
