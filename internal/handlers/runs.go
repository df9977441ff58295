package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/lehigh-university-libraries/refeval/internal/evaluation"
	"github.com/lehigh-university-libraries/refeval/internal/models"
	"github.com/lehigh-university-libraries/refeval/internal/storage"
)

func (h *Handler) HandleRuns(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		runs, err := h.runs.ListRuns(r.Context())
		if err != nil {
			h.writeError(w, "Unable to list runs: "+err.Error(), http.StatusInternalServerError)
			return
		}
		if runs == nil {
			runs = []models.RunSummary{}
		}
		h.writeJSON(w, runs)
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleRunDetail serves /api/runs/{id}, /api/runs/{id}/summary and
// /api/runs/{id}/files?parser=NAME
func (h *Handler) HandleRunDetail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/runs/"), "/")
	idPart, view, _ := strings.Cut(rest, "/")
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil {
		h.writeError(w, "Invalid run id", http.StatusBadRequest)
		return
	}

	run, ok := h.getRunOrError(w, r, id)
	if !ok {
		return
	}

	switch view {
	case "":
		h.writeJSON(w, run)
	case "summary":
		h.writeJSON(w, run.Summary())
	case "files":
		parser := r.URL.Query().Get("parser")
		if parser == "" {
			h.writeJSON(w, run.Diagnostics())
			return
		}
		p := run.Parser(parser)
		if p == nil {
			h.writeError(w, "Parser not found", http.StatusNotFound)
			return
		}
		h.writeJSON(w, p.Files)
	default:
		h.writeError(w, "Not found", http.StatusNotFound)
	}
}

func (h *Handler) getRunOrError(w http.ResponseWriter, r *http.Request, id int64) (*evaluation.Results, bool) {
	if run, ok := h.cache.Get(id); ok {
		return run, true
	}

	run, err := h.runs.GetRun(r.Context(), id)
	if errors.Is(err, storage.ErrRunNotFound) {
		h.writeError(w, "Run not found", http.StatusNotFound)
		return nil, false
	}
	if err != nil {
		h.writeError(w, "Unable to load run: "+err.Error(), http.StatusInternalServerError)
		return nil, false
	}

	h.cache.Set(id, run)
	return run, true
}
