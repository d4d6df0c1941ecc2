package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paperchase/relay/internal/config"
	"github.com/paperchase/relay/internal/core/model"
	"github.com/paperchase/relay/internal/core/report"
	"github.com/paperchase/relay/internal/logging"
)

func seededServer(t *testing.T, results ...model.BatchResult) *Server {
	t.Helper()
	runLog := filepath.Join(t.TempDir(), "runs.log")
	rep := report.New(logging.NewNop(), runLog)
	for _, res := range results {
		rep.Report(res)
	}
	return New(config.ServerConfig{Addr: ":0"}, runLog, logging.NewNop())
}

func run(job string, n int) model.BatchResult {
	return model.BatchResult{
		RunID:      job + "-" + time.Now().Format("150405.000"),
		Job:        job,
		StartedAt:  time.Now().UTC(),
		FinishedAt: time.Now().UTC(),
		Succeeded:  n,
	}
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	w := get(t, seededServer(t), "/healthz")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRunsNewestFirst(t *testing.T) {
	s := seededServer(t, run("collect", 1), run("generate", 2), run("publish", 3))

	w := get(t, s, "/runs")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Runs []model.BatchResult `json:"runs"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Runs, 3)
	assert.Equal(t, "publish", body.Runs[0].Job)
	assert.Equal(t, "collect", body.Runs[2].Job)
}

func TestRunsLimitAndJobFilter(t *testing.T) {
	s := seededServer(t, run("collect", 1), run("generate", 2), run("collect", 3))

	w := get(t, s, "/runs?job=collect&limit=1")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Runs []model.BatchResult `json:"runs"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Runs, 1)
	assert.Equal(t, "collect", body.Runs[0].Job)
	assert.Equal(t, 3, body.Runs[0].Succeeded)
}

func TestRunsRejectsBadLimit(t *testing.T) {
	w := get(t, seededServer(t), "/runs?limit=zero")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLatestRun(t *testing.T) {
	s := seededServer(t, run("collect", 1), run("publish", 2))

	w := get(t, s, "/runs/latest")
	require.Equal(t, http.StatusOK, w.Code)

	var latest model.BatchResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &latest))
	assert.Equal(t, "publish", latest.Job)
}

func TestLatestRunEmptyLogIs404(t *testing.T) {
	w := get(t, seededServer(t), "/runs/latest")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
