package ui

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mcsim/adapters/memory"
	"mcsim/app"
	"mcsim/domain/core"
	"mcsim/domain/kernel"
	"mcsim/domain/run"
	"mcsim/internal"
	"mcsim/internal/api"
	"mcsim/internal/config"
	"mcsim/internal/dispatch"
	"mcsim/internal/seeding"
)

func newTestApp(t *testing.T) (*App, *app.SimulationService) {
	t.Helper()
	logger := internal.NewLogger(internal.LogLevelError)
	defaults := config.SimulationConfig{Lanes: 2, TrialsPerLane: 50, Seed: 3, HistogramBins: 5, RunTimeout: time.Minute}
	svc := app.NewSimulationService(memory.NewRunRepository(), seeding.NewSplitMixSeeder(), dispatch.New(1, logger), defaults, logger)
	a, err := NewApp(svc, api.NewRouter(api.NewRunHandler(svc, nil), gin.TestMode))
	require.NoError(t, err)
	return a, svc
}

func storeRun(t *testing.T, svc *app.SimulationService) *run.Result {
	t.Helper()
	req := svc.NewRequest()
	req.Name = "cost"
	req.Formula = "labour + materials"
	req.Inputs = []run.InputDecl{
		{Name: "labour", Family: kernel.FamilyTriangular, Params: kernel.DistributionSpec{Param1: 10, Param2: 30, Param3: 15}},
		{Name: "materials", Family: kernel.FamilyLognormal, Params: kernel.DistributionSpec{Param1: 2, Param2: 0.3}},
	}
	result, err := svc.Run(context.Background(), req)
	require.NoError(t, err)
	return result
}

func get(a http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	a.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestIndex(t *testing.T) {
	a, svc := newTestApp(t)

	w := get(a, "/")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "No runs yet")

	result := storeRun(t, svc)
	w = get(a, "/")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/runs/"+result.Manifest.RunID.String()+"/report")
	assert.Contains(t, w.Body.String(), "<td>100</td>")
}

func TestReport(t *testing.T) {
	a, svc := newTestApp(t)
	result := storeRun(t, svc)

	w := get(a, "/runs/"+result.Manifest.RunID.String()+"/report")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/html"))
	assert.Contains(t, w.Body.String(), "<h1 id=\"cost\">cost</h1>")

	w = get(a, "/runs/"+result.Manifest.RunID.String()+"/report.md")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "# cost")

	assert.Equal(t, http.StatusNotFound, get(a, "/runs/"+core.NewRunID().String()+"/report").Code)
	assert.Equal(t, http.StatusBadRequest, get(a, "/runs/nope/report").Code)
}

func TestMountsAPI(t *testing.T) {
	a, _ := newTestApp(t)

	w := get(a, "/api/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
}
