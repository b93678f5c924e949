package boards

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"

	"github.com/noteboard/noteboard/internal/document"
	"github.com/noteboard/noteboard/internal/geom"
	"github.com/noteboard/noteboard/internal/shape"
	"github.com/noteboard/noteboard/internal/store"
)

type fakeTokens struct{}

func (fakeTokens) IssueToken(boardID string) (string, error) { return "token-" + boardID, nil }

func TestService_CreateSeedsDocument(t *testing.T) {
	ctx := context.Background()
	s := NewService(store.NewMemory())

	b, err := s.Create(ctx, CreateParams{Name: "Retro", Passcode: "secret", Width: 1024, Height: 768})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !strings.HasPrefix(b.ID, "board_") || !b.Protected || b.Width != 1024 {
		t.Errorf("board = %+v", b)
	}

	doc, err := s.LatestDocument(ctx, b.ID)
	if err != nil {
		t.Fatalf("LatestDocument: %v", err)
	}
	if doc.Board.ID != b.ID || doc.Board.Name != "Retro" || len(doc.Shapes) != 0 {
		t.Errorf("seed document = %+v", doc.Board)
	}

	if _, err := s.Create(ctx, CreateParams{}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("nameless create err = %v", err)
	}
}

func TestService_SaveDocumentBumpsVersion(t *testing.T) {
	ctx := context.Background()
	s := NewService(store.NewMemory())
	b, err := s.Create(ctx, CreateParams{Name: "A"})
	if err != nil {
		t.Fatal(err)
	}

	doc, _ := s.LatestDocument(ctx, b.ID)
	end := geom.Pt(40, 30)
	doc.Shapes = append(doc.Shapes, shape.New(shape.KindRect, geom.Pt(1, 1), &end, shape.DefaultStyle(), shape.Meta{}))
	v, err := s.SaveDocument(ctx, b.ID, doc)
	if err != nil {
		t.Fatalf("SaveDocument: %v", err)
	}
	if v != 2 {
		t.Errorf("version = %d, want 2", v)
	}
	got, _ := s.LatestDocument(ctx, b.ID)
	if len(got.Shapes) != 1 {
		t.Errorf("saved document has %d shapes", len(got.Shapes))
	}

	if _, err := s.SaveDocument(ctx, "board_missing", document.NewEmptyDocument("x", "x", 1, 1)); !errors.Is(err, ErrNotFound) {
		t.Errorf("save to missing board err = %v", err)
	}
}

func TestService_EnsurePlayground(t *testing.T) {
	ctx := context.Background()
	s := NewService(store.NewMemory())
	for range 2 {
		if err := s.EnsurePlayground(ctx); err != nil {
			t.Fatalf("EnsurePlayground: %v", err)
		}
	}
	doc, err := s.LatestDocument(ctx, PlaygroundID)
	if err != nil {
		t.Fatal(err)
	}
	if len(doc.Shapes) != 4 {
		t.Errorf("playground has %d shapes, want the 4 sample shapes", len(doc.Shapes))
	}
	if err := s.Delete(ctx, PlaygroundID); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("deleting playground err = %v", err)
	}
}

func TestHandler_Routes(t *testing.T) {
	s := NewService(store.NewMemory())
	h := NewHandler(s, fakeTokens{})
	r := mux.NewRouter()
	r.HandleFunc("/boards", h.Create).Methods(http.MethodPost)
	r.HandleFunc("/boards", h.List).Methods(http.MethodGet)
	r.HandleFunc("/boards/{boardId}", h.Get).Methods(http.MethodGet)
	r.HandleFunc("/boards/{boardId}", h.Delete).Methods(http.MethodDelete)
	r.HandleFunc("/boards/{boardId}/document", h.Document).Methods(http.MethodGet)

	do := func(method, path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	rec := do(http.MethodPost, "/boards", `{"name":"Standup"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body.String())
	}
	var created createResponse
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatal(err)
	}
	if created.Token != "token-"+created.Board.ID || created.Board.Protected {
		t.Errorf("create response = %+v", created)
	}
	id := created.Board.ID

	if rec := do(http.MethodGet, "/boards/"+id, ""); rec.Code != http.StatusOK {
		t.Errorf("get status = %d", rec.Code)
	}
	if rec := do(http.MethodGet, "/boards/"+id+"/document", ""); rec.Code != http.StatusOK {
		t.Errorf("document status = %d", rec.Code)
	}
	if rec := do(http.MethodGet, "/boards", ""); rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), id) {
		t.Errorf("list = %d %s", rec.Code, rec.Body.String())
	}
	if rec := do(http.MethodDelete, "/boards/"+id, ""); rec.Code != http.StatusNoContent {
		t.Errorf("delete status = %d", rec.Code)
	}
	if rec := do(http.MethodGet, "/boards/"+id, ""); rec.Code != http.StatusNotFound {
		t.Errorf("get after delete = %d", rec.Code)
	}
	if rec := do(http.MethodPost, "/boards", `{}`); rec.Code != http.StatusBadRequest {
		t.Errorf("create without name = %d", rec.Code)
	}
}
