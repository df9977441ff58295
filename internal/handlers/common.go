package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/lehigh-university-libraries/refeval/internal/evaluation"
	"github.com/lehigh-university-libraries/refeval/internal/models"
	"github.com/lehigh-university-libraries/refeval/internal/storage"
)

// RunReader reads recorded evaluation runs
type RunReader interface {
	ListRuns(ctx context.Context) ([]models.RunSummary, error)
	GetRun(ctx context.Context, id int64) (*evaluation.Results, error)
}

type Handler struct {
	runs  RunReader
	cache *storage.RunCache
}

func New(runs RunReader) *Handler {
	return &Handler{
		runs:  runs,
		cache: storage.NewRunCache(),
	}
}

// Routes registers the API on a new mux
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/runs", h.HandleRuns)
	mux.HandleFunc("/api/runs/", h.HandleRunDetail)
	mux.HandleFunc("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			slog.Error("Unable to write healthcheck", "err", err)
		}
	})
	return mux
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	slog.Error(message)
	http.Error(w, message, code)
}
