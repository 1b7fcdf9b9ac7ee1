// Package api exposes a small status server over the crawl's progress
// counters, useful when a long run executes headless on a remote box.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/upgradewatch/unity-upgrade-scraper/internal/scraper"
)

// StatusSource yields the current run counters.
type StatusSource interface {
	Snapshot() scraper.ProgressSnapshot
}

// ProcessedSource yields processed-set counters from the store.
type ProcessedSource interface {
	ProcessedCount() int
	RowsWritten() int
}

type Handlers struct {
	status    StatusSource
	processed ProcessedSource
	logger    *slog.Logger
}

func NewHandlers(status StatusSource, processed ProcessedSource) *Handlers {
	return &Handlers{
		status:    status,
		processed: processed,
		logger:    slog.Default().With("component", "api"),
	}
}

func (h *Handlers) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET"},
	}))

	r.Get("/healthz", h.Health)
	r.Get("/status", h.Status)

	return r
}

type StatusResponse struct {
	Progress       scraper.ProgressSnapshot `json:"progress"`
	ProcessedTotal int                      `json:"processed_total"`
	RowsWritten    int                      `json:"rows_written"`
}

func (h *Handlers) Status(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, StatusResponse{
		Progress:       h.status.Snapshot(),
		ProcessedTotal: h.processed.ProcessedCount(),
		RowsWritten:    h.processed.RowsWritten(),
	})
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handlers) respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

// Serve runs the status server until ctx is cancelled.
func Serve(ctx context.Context, addr string, handler http.Handler) {
	logger := slog.Default().With("component", "api")

	srv := &http.Server{Addr: addr, Handler: handler}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info("status server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("status server failed", "error", err)
	}
}
