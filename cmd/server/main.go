package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/noteboard/noteboard/internal/asset"
	"github.com/noteboard/noteboard/internal/auth"
	"github.com/noteboard/noteboard/internal/boards"
	"github.com/noteboard/noteboard/internal/config"
	"github.com/noteboard/noteboard/internal/discovery"
	"github.com/noteboard/noteboard/internal/export"
	mw "github.com/noteboard/noteboard/internal/middleware"
	"github.com/noteboard/noteboard/internal/session"
	"github.com/noteboard/noteboard/internal/store"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var st store.Store
	if cfg.DatabaseURL == "" {
		slog.Warn("DATABASE_URL not set, boards are kept in memory")
		st = store.NewMemory()
	} else {
		pg, err := store.NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("connect to database", "error", err)
			os.Exit(1)
		}
		defer pg.Close()
		st = pg
	}

	authService := auth.NewService(st, cfg.JWTSecret)
	authHandler := auth.NewHandler(authService)

	boardService := boards.NewService(st)
	if err := boardService.EnsurePlayground(ctx); err != nil {
		slog.Error("seed playground", "error", err)
		os.Exit(1)
	}
	boardHandler := boards.NewHandler(boardService, authService)

	loader := asset.NewMux(cfg.AssetDir).RestrictHosts(cfg.ImageHosts)
	hub := session.NewHub(boardService, session.Config{
		Board:       cfg.Board.Options(),
		FPS:         cfg.RenderFPS,
		Loader:      loader,
		CheckSource: loader.Check,
	})

	assetHandler := asset.NewHandler(cfg.AssetDir)
	exportHandler := export.NewHandler(hub)

	r := mux.NewRouter()

	// Global middleware
	r.Use(mw.Recovery)
	r.Use(mw.Logger)
	r.Use(mw.CORS(cfg.Origins()))

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// Board catalog and tokens (public)
	r.HandleFunc("/boards", boardHandler.List).Methods("GET")
	r.HandleFunc("/boards", boardHandler.Create).Methods("POST", "OPTIONS")
	r.HandleFunc("/boards/{boardId}", boardHandler.Get).Methods("GET")
	r.HandleFunc("/boards/{boardId}/token", authHandler.Token).Methods("POST", "OPTIONS")

	// Asset endpoints (public)
	r.HandleFunc("/assets/upload", assetHandler.Upload).Methods("POST", "OPTIONS")
	r.PathPrefix("/assets/").Handler(assetHandler.Serve()).Methods("GET")

	// Board routes that need a board token
	protected := r.PathPrefix("/boards/{boardId}").Subrouter()
	protected.Use(authService.BoardMiddleware)
	protected.HandleFunc("", boardHandler.Delete).Methods("DELETE", "OPTIONS")
	protected.HandleFunc("/document", boardHandler.Document).Methods("GET", "OPTIONS")
	protected.HandleFunc("/export", exportHandler.Export).Methods("GET", "OPTIONS")

	// WebSocket endpoint
	r.HandleFunc("/ws/boards/{boardId}", func(w http.ResponseWriter, r *http.Request) {
		handleWebSocket(w, r, hub, authService, cfg.Origins())
	})

	if cfg.MDNSEnable {
		server, err := discovery.Advertise(cfg.Port)
		if err != nil {
			slog.Warn("mdns advertisement failed", "error", err)
		} else {
			slog.Info("advertising on local network", "service", discovery.ServiceType)
			defer server.Shutdown()
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down server")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		// Stop hub first to save all open boards
		slog.Info("saving open boards...")
		hub.Stop(shutdownCtx)

		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("server starting", "addr", addr, "store", storeName(cfg))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func storeName(cfg *config.Config) string {
	if cfg.DatabaseURL == "" {
		return "memory"
	}
	return "postgres"
}

func handleWebSocket(w http.ResponseWriter, r *http.Request, hub *session.Hub, authSvc *auth.Service, origins []string) {
	boardID := mux.Vars(r)["boardId"]

	// The playground board allows anonymous access
	if boardID != boards.PlaygroundID {
		token := r.URL.Query().Get("token")
		if token == "" {
			http.Error(w, "missing token", http.StatusUnauthorized)
			return
		}
		tokenBoard, err := authSvc.ValidateToken(token)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		if tokenBoard != boardID {
			http.Error(w, "token is for another board", http.StatusForbidden)
			return
		}
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: originPatterns(origins),
	})
	if err != nil {
		slog.Error("websocket accept", "error", err)
		return
	}

	client := session.NewClient(hub, conn, boardID, uuid.New().String())

	ctx := r.Context()
	if err := hub.Join(ctx, client); err != nil {
		slog.Warn("join board", "board", boardID, "error", err)
		conn.Close(websocket.StatusPolicyViolation, "board unavailable")
		return
	}

	go client.WritePump(ctx)
	client.ReadPump(ctx)
}

// originPatterns strips schemes: websocket.Accept matches host patterns.
func originPatterns(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		if i := strings.Index(o, "://"); i >= 0 {
			o = o[i+3:]
		}
		out = append(out, o)
	}
	return out
}
