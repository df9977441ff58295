package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lehigh-university-libraries/refeval/internal/eval/metrics"
	"github.com/lehigh-university-libraries/refeval/internal/evaluation"
	"github.com/lehigh-university-libraries/refeval/internal/models"
	"github.com/lehigh-university-libraries/refeval/internal/storage"
)

type fakeRuns struct {
	runs  map[int64]*evaluation.Results
	loads int
}

func (f *fakeRuns) ListRuns(ctx context.Context) ([]models.RunSummary, error) {
	var out []models.RunSummary
	for id, r := range f.runs {
		out = append(out, models.RunSummary{ID: id, CreatedAt: r.Timestamp, GoldDir: r.GoldDir, OutputDir: r.OutputDir})
	}
	return out, nil
}

func (f *fakeRuns) GetRun(ctx context.Context, id int64) (*evaluation.Results, error) {
	f.loads++
	r, ok := f.runs[id]
	if !ok {
		return nil, fmt.Errorf("run %d: %w", id, storage.ErrRunNotFound)
	}
	return r, nil
}

func newFake() *fakeRuns {
	files := []metrics.FileResult{
		{File: "paper1.xml", Counts: metrics.Counts{RefGS: 2, RefOut: 2, RefCorrect: 2}},
	}
	return &fakeRuns{runs: map[int64]*evaluation.Results{
		7: {
			ID:        7,
			Timestamp: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			GoldDir:   "gold",
			OutputDir: "out",
			Parsers:   []*metrics.ParserResult{metrics.AggregateFileResults("Cermine", files)},
		},
	}}
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHandleRuns(t *testing.T) {
	h := New(newFake()).Routes()

	rec := get(t, h, "/api/runs")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var runs []models.RunSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, int64(7), runs[0].ID)
}

func TestHandleRunsEmpty(t *testing.T) {
	h := New(&fakeRuns{}).Routes()

	rec := get(t, h, "/api/runs")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestHandleRunDetail(t *testing.T) {
	fake := newFake()
	h := New(fake).Routes()

	tests := []struct {
		name string
		path string
		code int
	}{
		{"run", "/api/runs/7", http.StatusOK},
		{"summary", "/api/runs/7/summary", http.StatusOK},
		{"all files", "/api/runs/7/files", http.StatusOK},
		{"parser files", "/api/runs/7/files?parser=Cermine", http.StatusOK},
		{"unknown parser", "/api/runs/7/files?parser=Grobid", http.StatusNotFound},
		{"unknown view", "/api/runs/7/other", http.StatusNotFound},
		{"unknown run", "/api/runs/8", http.StatusNotFound},
		{"bad id", "/api/runs/abc", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, h, tt.path)
			assert.Equal(t, tt.code, rec.Code)
		})
	}

	// run 7 is loaded once and then served from the cache
	assert.Equal(t, 2, fake.loads)
}

func TestHandleRunSummaryBody(t *testing.T) {
	h := New(newFake()).Routes()

	rec := get(t, h, "/api/runs/7/summary")
	require.Equal(t, http.StatusOK, rec.Code)

	var summary map[string]metrics.Metrics
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, 1.0, summary["Cermine"].References.FScore)
}

func TestMethodNotAllowed(t *testing.T) {
	h := New(newFake()).Routes()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/runs", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/runs/7", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHealthcheck(t *testing.T) {
	rec := get(t, New(newFake()).Routes(), "/healthcheck")
	assert.Equal(t, "OK", rec.Body.String())
}
