package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"github.com/noteboard/noteboard/internal/store"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	st := store.NewMemory()
	hash, err := HashPasscode("hunter22")
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if err := st.CreateBoard(ctx, store.Board{ID: "board_locked", PasscodeHash: hash}); err != nil {
		t.Fatal(err)
	}
	if err := st.CreateBoard(ctx, store.Board{ID: "board_open"}); err != nil {
		t.Fatal(err)
	}
	return NewService(st, "test-secret")
}

func TestAuthorize(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		board    string
		passcode string
		wantErr  error
	}{
		{"open board", "board_open", "", nil},
		{"correct passcode", "board_locked", "hunter22", nil},
		{"wrong passcode", "board_locked", "nope", ErrInvalidCredentials},
		{"missing board", "board_missing", "", store.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := s.Authorize(ctx, tt.board, tt.passcode)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			got, err := s.ValidateToken(token)
			if err != nil || got != tt.board {
				t.Errorf("ValidateToken = %q, %v, want %q", got, err, tt.board)
			}
		})
	}
}

func TestValidateToken_Rejects(t *testing.T) {
	s := newTestService(t)
	token, err := s.IssueToken("board_open")
	if err != nil {
		t.Fatal(err)
	}

	other := NewService(store.NewMemory(), "other-secret")
	if _, err := other.ValidateToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("wrong secret err = %v", err)
	}

	s.now = func() time.Time { return time.Now().Add(25 * time.Hour) }
	if _, err := s.ValidateToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expired token err = %v", err)
	}
	if _, err := s.ValidateToken("garbage"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("garbage token err = %v", err)
	}
}

func TestBoardMiddleware(t *testing.T) {
	s := newTestService(t)
	token, err := s.IssueToken("board_open")
	if err != nil {
		t.Fatal(err)
	}

	r := mux.NewRouter()
	r.Handle("/boards/{boardId}/document", s.BoardMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(BoardIDFromContext(r.Context())))
	})))

	tests := []struct {
		name   string
		path   string
		header string
		want   int
	}{
		{"bearer", "/boards/board_open/document", "Bearer " + token, http.StatusOK},
		{"query", "/boards/board_open/document?token=" + token, "", http.StatusOK},
		{"missing", "/boards/board_open/document", "", http.StatusUnauthorized},
		{"bad scheme", "/boards/board_open/document", "Basic abc", http.StatusUnauthorized},
		{"other board", "/boards/board_locked/document", "Bearer " + token, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.want, rec.Body.String())
			}
			if tt.want == http.StatusOK && rec.Body.String() != "board_open" {
				t.Errorf("board in context = %q", rec.Body.String())
			}
		})
	}
}

func TestHandler_Token(t *testing.T) {
	s := newTestService(t)
	r := mux.NewRouter()
	r.HandleFunc("/boards/{boardId}/token", NewHandler(s).Token).Methods(http.MethodPost)

	post := func(board, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/boards/"+board+"/token", strings.NewReader(body))
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	rec := post("board_locked", `{"passcode":"hunter22"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp tokenResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.BoardID != "board_locked" || resp.Token == "" {
		t.Errorf("response = %+v", resp)
	}

	if rec := post("board_open", ""); rec.Code != http.StatusOK {
		t.Errorf("open board with empty body: %d", rec.Code)
	}
	if rec := post("board_locked", `{"passcode":"x"}`); rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong passcode: %d", rec.Code)
	}
	if rec := post("board_missing", `{}`); rec.Code != http.StatusNotFound {
		t.Errorf("missing board: %d", rec.Code)
	}
	if rec := post("board_open", `{`); rec.Code != http.StatusBadRequest {
		t.Errorf("bad body: %d", rec.Code)
	}
}
