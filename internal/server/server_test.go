package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amgaina/CoreCutter/internal/config"
	"github.com/amgaina/CoreCutter/internal/engine"
	"github.com/amgaina/CoreCutter/internal/model"
	"github.com/amgaina/CoreCutter/internal/telemetry"
)

const textbookBody = `{
	"master_length": 100,
	"kerf": "0.5",
	"demands": [
		{"width": 45, "quantity": 4, "label": "A"},
		{"width": "36", "quantity": 3}
	]
}`

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.Default()
	s, err := New(cfg, zerolog.Nop(), telemetry.NewMetrics(cfg.Metrics))
	require.NoError(t, err)
	return s
}

func do(t *testing.T, s *Server, method, path, body string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := s.App().Test(req, -1)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	resp := do(t, s, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestSolvers(t *testing.T) {
	s := newTestServer(t)
	resp := do(t, s, http.MethodGet, "/api/v1/solvers", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Solvers []string `json:"solvers"`
		Default string   `json:"default"`
	}
	decode(t, resp, &body)
	assert.Contains(t, body.Solvers, model.SolverBranchAndBound)
	assert.Contains(t, body.Solvers, model.SolverExhaustive)
	assert.Equal(t, model.SolverBranchAndBound, body.Default)
}

func TestOptimize(t *testing.T) {
	s := newTestServer(t)
	resp := do(t, s, http.MethodPost, "/api/v1/optimize", textbookBody)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body OptimizeResponse
	decode(t, resp, &body)
	assert.NotEmpty(t, body.RequestID)
	assert.Equal(t, 4, body.Result.CoresRequired)
	assert.Len(t, body.Cores, 4)
	assert.Equal(t, model.SolverBranchAndBound, body.Stats.Solver)
	assert.Equal(t, int64(10), body.Stats.Scale)

	expected := decimal.NewFromInt(400 - 4*45 - 3*36).Sub(body.Result.TotalKerfLoss())
	assert.True(t, body.Result.TotalWaste.Equal(expected), "waste %s, expected %s", body.Result.TotalWaste, expected)
}

func TestOptimizeSolverOverride(t *testing.T) {
	s := newTestServer(t)
	body := `{"master_length": "100", "kerf": 0.5, "solver": "exhaustive",
		"demands": [{"width": 45, "quantity": 4}, {"width": 36, "quantity": 3}]}`
	resp := do(t, s, http.MethodPost, "/api/v1/optimize", body)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out OptimizeResponse
	decode(t, resp, &out)
	assert.Equal(t, model.SolverExhaustive, out.Stats.Solver)
	assert.Equal(t, 4, out.Result.CoresRequired)
}

func TestOptimizeDefaultKerf(t *testing.T) {
	s := newTestServer(t)
	body := `{"master_length": 10, "demands": [{"width": 5, "quantity": 2}]}`
	resp := do(t, s, http.MethodPost, "/api/v1/optimize", body)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out OptimizeResponse
	decode(t, resp, &out)
	// Two halves only share a core without a blade; the default kerf is 0.25.
	assert.Equal(t, 2, out.Result.CoresRequired)
}

func TestOptimizeEmptyDemand(t *testing.T) {
	s := newTestServer(t)
	resp := do(t, s, http.MethodPost, "/api/v1/optimize", `{"master_length": 100, "demands": []}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out OptimizeResponse
	decode(t, resp, &out)
	assert.Zero(t, out.Result.CoresRequired)
	assert.Empty(t, out.Result.CuttingPlan)
}

func TestOptimizeErrors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
		kind   engine.ErrorKind
		index  int
	}{
		{
			name:   "oversized width",
			body:   `{"master_length": 100, "demands": [{"width": 10, "quantity": 1}, {"width": 150, "quantity": 1}]}`,
			status: http.StatusUnprocessableEntity,
			kind:   engine.KindOversizedItem,
			index:  1,
		},
		{
			name:   "non-positive width",
			body:   `{"master_length": 100, "demands": [{"width": -5, "quantity": 1}]}`,
			status: http.StatusUnprocessableEntity,
			kind:   engine.KindInvalidConfiguration,
			index:  0,
		},
		{
			name:   "missing master length",
			body:   `{"demands": [{"width": 5, "quantity": 1}]}`,
			status: http.StatusUnprocessableEntity,
			kind:   engine.KindInvalidConfiguration,
			index:  -1,
		},
		{
			name:   "negative quantity",
			body:   `{"master_length": 100, "demands": [{"width": 5, "quantity": -1}]}`,
			status: http.StatusUnprocessableEntity,
			kind:   engine.KindInvalidConfiguration,
			index:  -1,
		},
		{
			name:   "unknown solver",
			body:   `{"master_length": 100, "solver": "simulated-annealing", "demands": [{"width": 5, "quantity": 1}]}`,
			status: http.StatusServiceUnavailable,
			kind:   engine.KindSolverUnavailable,
			index:  -1,
		},
	}

	s := newTestServer(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := do(t, s, http.MethodPost, "/api/v1/optimize", tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)

			var body ErrorResponse
			decode(t, resp, &body)
			assert.Equal(t, tt.kind, body.Kind)
			assert.Equal(t, tt.index, body.Index)
			assert.NotEmpty(t, body.Error)
		})
	}
}

func TestOptimizeMalformedBody(t *testing.T) {
	s := newTestServer(t)
	resp := do(t, s, http.MethodPost, "/api/v1/optimize", `{"master_length": `)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body ErrorResponse
	decode(t, resp, &body)
	assert.Empty(t, body.Kind)
}

func TestCompare(t *testing.T) {
	s := newTestServer(t)
	body := `{"master_length": 100, "kerf": 0.5, "demands": [{"width": 50, "quantity": 2}]}`
	resp := do(t, s, http.MethodPost, "/api/v1/compare", body)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Scenarios []ScenarioResponse `json:"scenarios"`
	}
	decode(t, resp, &out)
	require.Len(t, out.Scenarios, 4)

	cores := make([]int, len(out.Scenarios))
	for i, sc := range out.Scenarios {
		assert.Nil(t, sc.Error, sc.Name)
		cores[i] = sc.CoresUsed
	}
	assert.Equal(t, []int{2, 2, 2, 1}, cores)
	assert.Equal(t, "No Kerf", out.Scenarios[3].Name)
}

func TestEstimate(t *testing.T) {
	s := newTestServer(t)
	body := `{"master_length": 100, "kerf": 0, "demands": [{"width": 50, "quantity": 3}],
		"estimate": {"waste_percent": 10, "price_per_core": "20"}}`
	resp := do(t, s, http.MethodPost, "/api/v1/estimate", body)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var est model.PurchaseEstimate
	decode(t, resp, &est)
	assert.True(t, est.CoresNeededExact.Equal(decimal.RequireFromString("1.5")), "exact %s", est.CoresNeededExact)
	assert.Equal(t, 2, est.CoresNeededMin)
	assert.Equal(t, 2, est.CoresWithWaste)
	assert.True(t, est.EstimatedCost.Equal(decimal.NewFromInt(40)), "cost %s", est.EstimatedCost)
}

func TestEstimateRejectsOversized(t *testing.T) {
	s := newTestServer(t)
	body := `{"master_length": 100, "demands": [{"width": 101, "quantity": 1}]}`
	resp := do(t, s, http.MethodPost, "/api/v1/estimate", body)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	do(t, s, http.MethodPost, "/api/v1/optimize", textbookBody)

	resp := do(t, s, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "corecutter_optimizations_total")
}

func TestMetricsDisabled(t *testing.T) {
	cfg := config.Default()
	cfg.Metrics.Enabled = false
	s, err := New(cfg, zerolog.Nop(), nil)
	require.NoError(t, err)

	resp := do(t, s, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusUnprocessableEntity, StatusFor(engine.ErrOversizedItem))
	assert.Equal(t, http.StatusServiceUnavailable, StatusFor(engine.ErrSolverUnavailable))
	assert.Equal(t, http.StatusInternalServerError, StatusFor(engine.ErrSolverError))
	assert.Equal(t, http.StatusInternalServerError, StatusFor(io.EOF))
}
