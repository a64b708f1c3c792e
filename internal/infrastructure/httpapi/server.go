// Package httpapi serves the latest payload over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"StoryScanner/internal/domain"
	"StoryScanner/internal/infrastructure/storage"
	"StoryScanner/internal/ports"
)

const noDataMessage = "No data found. Wait for the first scrape."

// HistoryLister exposes stored snapshot metadata.
type HistoryLister interface {
	History(ctx context.Context, limit int) ([]storage.Snapshot, error)
}

// Refresher triggers an out-of-band pipeline run.
type Refresher func(ctx context.Context) (domain.Payload, error)

// Deps collects the collaborators behind the routes. Only Store is required.
type Deps struct {
	Store     ports.PayloadStore
	History   HistoryLister
	Refresher Refresher
	Logger    *slog.Logger
}

// Server is the read-side HTTP surface.
type Server struct {
	store     ports.PayloadStore
	history   HistoryLister
	refresher Refresher
	logger    *slog.Logger
	router    chi.Router
}

// New builds the router.
func New(deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Server{
		store:     deps.Store,
		history:   deps.History,
		refresher: deps.Refresher,
		logger:    logger,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(middleware.SetHeader("Access-Control-Allow-Origin", "*"))

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/articles", s.handleArticles)
		if s.history != nil {
			r.Get("/snapshots", s.handleSnapshots)
		}
		if s.refresher != nil {
			r.Post("/refresh", s.handleRefresh)
		}
	})

	s.router = r
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe blocks until ctx is canceled or the listener fails.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleArticles(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeJSON(w, http.StatusNotFound, errorBody(noDataMessage))
		return
	}
	payload, err := s.store.Latest(r.Context())
	if errors.Is(err, domain.ErrNoPayload) {
		writeJSON(w, http.StatusNotFound, errorBody(noDataMessage))
		return
	}
	if err != nil {
		s.logger.Error("load payload", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody("Failed to load articles"))
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleSnapshots(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, errorBody("Invalid limit"))
			return
		}
		limit = n
	}

	snapshots, err := s.history.History(r.Context(), limit)
	if err != nil {
		s.logger.Error("list snapshots", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody("Failed to list snapshots"))
		return
	}
	if snapshots == nil {
		snapshots = []storage.Snapshot{}
	}
	writeJSON(w, http.StatusOK, snapshots)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	payload, err := s.refresher(r.Context())
	if errors.Is(err, domain.ErrRunInProgress) {
		writeJSON(w, http.StatusConflict, errorBody("A refresh is already running"))
		return
	}
	if err != nil {
		s.logger.Error("manual refresh", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody("Refresh failed"))
		return
	}
	records, nested := payload.Count()
	writeJSON(w, http.StatusOK, map[string]any{
		"last_updated": payload.LastUpdated,
		"articles":     records,
		"stories":      nested,
	})
}

func errorBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
