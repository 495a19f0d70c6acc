package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/chaoslab/internal/analysis"
	"github.com/san-kum/chaoslab/internal/experiment"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv, err := New(experiment.NewRegistry(), prometheus.NewRegistry(), nil)
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler(nil))
	t.Cleanup(ts.Close)
	return ts
}

func do(t *testing.T, ts *httptest.Server, method, path string, body any, out any) int {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, ts.URL+path, r)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 && resp.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func createCycle(t *testing.T, ts *httptest.Server) sessionView {
	t.Helper()
	var v sessionView
	code := do(t, ts, http.MethodPost, "/api/sessions", createRequest{Model: "vanderpol", Preset: "cycle"}, &v)
	require.Equal(t, http.StatusCreated, code)
	return v
}

func TestHealthAndModels(t *testing.T) {
	ts := newTestServer(t)

	resp, err := ts.Client().Get(ts.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var models []experiment.ModelInfo
	require.Equal(t, http.StatusOK, do(t, ts, http.MethodGet, "/api/models", nil, &models))
	require.Len(t, models, 9)
	names := make([]string, len(models))
	for i, m := range models {
		names[i] = m.Name
	}
	assert.Contains(t, names, "lorenz")
	assert.Contains(t, names, "betatron")
}

func TestSessionLifecycle(t *testing.T) {
	ts := newTestServer(t)
	v := createCycle(t, ts)
	assert.Equal(t, "idle", v.Phase)
	assert.Equal(t, 3, v.Live)
	require.Len(t, v.Trajectories, 3)

	base := "/api/sessions/" + v.ID

	var fr frameResponse
	require.Equal(t, http.StatusOK, do(t, ts, http.MethodPost, base+"/frame", nil, &fr))
	assert.Zero(t, fr.Report.Steps, "idle frame should not step")

	require.Equal(t, http.StatusOK, do(t, ts, http.MethodPost, base+"/start", nil, &v))
	assert.Equal(t, "running", v.Phase)
	assert.Equal(t, http.StatusConflict, do(t, ts, http.MethodPost, base+"/start", nil, nil))

	require.Equal(t, http.StatusOK, do(t, ts, http.MethodPost, base+"/frame?n=4&tail=2", nil, &fr))
	assert.Equal(t, 20, fr.Report.Steps)
	assert.InDelta(t, 0.2, fr.Report.Time, 1e-9)
	assert.Equal(t, 4, fr.Session.Frames)
	for _, snap := range fr.Session.Trajectories {
		assert.Len(t, snap.History, 2)
	}

	require.Equal(t, http.StatusOK, do(t, ts, http.MethodPost, base+"/pause", nil, &v))
	assert.Equal(t, "paused", v.Phase)
	require.Equal(t, http.StatusOK, do(t, ts, http.MethodPost, base+"/resume", nil, &v))
	assert.Equal(t, "running", v.Phase)

	require.Equal(t, http.StatusOK, do(t, ts, http.MethodPost, base+"/reset", nil, &v))
	assert.Equal(t, "idle", v.Phase)
	assert.Zero(t, v.Time)

	assert.Equal(t, http.StatusNoContent, do(t, ts, http.MethodDelete, base, nil, nil))
	assert.Equal(t, http.StatusNotFound, do(t, ts, http.MethodGet, base, nil, nil))
}

func TestParamsAndSpeed(t *testing.T) {
	ts := newTestServer(t)
	v := createCycle(t, ts)
	base := "/api/sessions/" + v.ID

	require.Equal(t, http.StatusOK, do(t, ts, http.MethodPost, base+"/start", nil, nil))
	require.Equal(t, http.StatusOK, do(t, ts, http.MethodPost, base+"/frame?n=3", nil, nil))

	require.Equal(t, http.StatusOK, do(t, ts, http.MethodPut, base+"/params", map[string]float64{"mu": 2.5}, &v))
	assert.Equal(t, 2.5, v.Params["mu"])
	assert.Equal(t, "running", v.Phase)
	assert.Zero(t, v.Time, "history should be discarded with the old field")

	assert.Equal(t, http.StatusBadRequest, do(t, ts, http.MethodPut, base+"/params", map[string]float64{"rho": 1}, nil))

	require.Equal(t, http.StatusOK, do(t, ts, http.MethodPut, base+"/speed", speedRequest{SubSteps: 2}, &v))
	assert.Equal(t, 2, v.Speed)
	assert.Equal(t, http.StatusBadRequest, do(t, ts, http.MethodPut, base+"/speed", speedRequest{SubSteps: 0}, nil))
}

func TestTrajectories(t *testing.T) {
	ts := newTestServer(t)
	v := createCycle(t, ts)
	base := "/api/sessions/" + v.ID

	var added addResponse
	require.Equal(t, http.StatusCreated, do(t, ts, http.MethodPost, base+"/trajectories", addRequest{State: []float64{1, 1}}, &added))
	assert.Equal(t, 3, added.Index)

	assert.Equal(t, http.StatusBadRequest,
		do(t, ts, http.MethodPost, base+"/trajectories", addRequest{State: []float64{1, 1, 1}}, nil))

	assert.Equal(t, http.StatusNoContent, do(t, ts, http.MethodDelete, base+"/trajectories/0", nil, nil))
	assert.Equal(t, http.StatusNotFound, do(t, ts, http.MethodDelete, base+"/trajectories/9", nil, nil))

	require.Equal(t, http.StatusOK, do(t, ts, http.MethodGet, base, nil, &v))
	assert.Len(t, v.Trajectories, 3)
	assert.EqualValues(t, 1, v.Generation)
}

func TestDivergence(t *testing.T) {
	ts := newTestServer(t)
	v := createCycle(t, ts)
	base := "/api/sessions/" + v.ID

	var div divergenceResponse
	require.Equal(t, http.StatusOK, do(t, ts, http.MethodGet, base+"/divergence?i=0&j=1", nil, &div))
	require.Len(t, div.Samples, 1)

	require.Equal(t, http.StatusOK, do(t, ts, http.MethodPost, base+"/start", nil, nil))
	require.Equal(t, http.StatusOK, do(t, ts, http.MethodPost, base+"/frame?n=10", nil, nil))

	require.Equal(t, http.StatusOK, do(t, ts, http.MethodGet, base+"/divergence?i=0&j=1&window=5", nil, &div))
	assert.Len(t, div.Samples, 11)
	assert.NotNil(t, div.Lyapunov)
	for _, s := range div.Samples {
		assert.Positive(t, s.Distance)
		require.NotNil(t, s.Log10)
	}

	assert.Equal(t, http.StatusNotFound, do(t, ts, http.MethodGet, base+"/divergence?i=0&j=7", nil, nil))
	assert.Equal(t, http.StatusBadRequest, do(t, ts, http.MethodGet, base+"/divergence?i=x", nil, nil))
	assert.Equal(t, http.StatusBadRequest, do(t, ts, http.MethodGet, base+"/divergence?i=1&j=1", nil, nil))
}

func TestSection(t *testing.T) {
	ts := newTestServer(t)

	var v sessionView
	require.Equal(t, http.StatusCreated,
		do(t, ts, http.MethodPost, "/api/sessions", createRequest{Model: "duffing", Preset: "periodic"}, &v))
	base := "/api/sessions/" + v.ID

	require.Equal(t, http.StatusOK, do(t, ts, http.MethodPost, base+"/start", nil, nil))
	require.Equal(t, http.StatusOK, do(t, ts, http.MethodPost, base+"/frame?n=2000", nil, nil))

	var crossings []analysis.Crossing
	require.Equal(t, http.StatusOK, do(t, ts, http.MethodGet, base+"/section", nil, &crossings))
	assert.NotEmpty(t, crossings)

	require.Equal(t, http.StatusOK, do(t, ts, http.MethodPost, base+"/reset", nil, nil))
	require.Equal(t, http.StatusOK, do(t, ts, http.MethodGet, base+"/section", nil, &crossings))
	assert.Empty(t, crossings, "reset must drop crossings of the old ensemble")

	require.Equal(t, http.StatusOK, do(t, ts, http.MethodPost, base+"/start", nil, nil))
	require.Equal(t, http.StatusOK, do(t, ts, http.MethodPost, base+"/frame?n=2000", nil, nil))
	require.Equal(t, http.StatusCreated,
		do(t, ts, http.MethodPost, base+"/trajectories", addRequest{State: []float64{0.5, 0}}, nil))
	require.Equal(t, http.StatusNoContent, do(t, ts, http.MethodDelete, base+"/trajectories/0", nil, nil))
	require.Equal(t, http.StatusOK, do(t, ts, http.MethodGet, base+"/section", nil, &crossings))
	assert.Empty(t, crossings, "crossings of a removed trajectory must not survive")

	cycle := createCycle(t, ts)
	assert.Equal(t, http.StatusNotFound, do(t, ts, http.MethodGet, "/api/sessions/"+cycle.ID+"/section", nil, nil))
}

func TestScan(t *testing.T) {
	ts := newTestServer(t)

	req := scanRequest{
		Model: "logistic",
		Scan: analysis.ScanConfig{
			Param: "r", Min: 2.5, Max: 3.2, Resolution: 8,
			Transient: 300, Samples: 64, X0: []float64{0.5},
		},
	}
	var recs []analysis.Record
	require.Equal(t, http.StatusOK, do(t, ts, http.MethodPost, "/api/scan", req, &recs))
	require.Len(t, recs, 8)
	assert.Equal(t, 1, recs[0].Period)
	assert.Equal(t, 2, recs[len(recs)-1].Period)

	req.Model = "lorenz"
	assert.Equal(t, http.StatusBadRequest, do(t, ts, http.MethodPost, "/api/scan", req, nil))
}

func TestCreateErrors(t *testing.T) {
	ts := newTestServer(t)

	cases := []struct {
		name string
		body any
	}{
		{"unknown model", createRequest{Model: "nope"}},
		{"unknown preset", createRequest{Model: "lorenz", Preset: "nope"}},
		{"bad override", createRequest{Model: "lorenz", Config: json.RawMessage(`{"dt": -1}`)}},
		{"unknown field", map[string]any{"model": "lorenz", "colour": "red"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, http.StatusBadRequest, do(t, ts, http.MethodPost, "/api/sessions", tc.body, nil))
		})
	}
}

func TestRequestLimits(t *testing.T) {
	ts := newTestServer(t)

	oversize := []struct {
		name   string
		config string
	}{
		{"capacity", `{"capacity": 1099511627776}`},
		{"count", `{"ensemble": {"count": 100000000}}`},
		{"steps", `{"steps": 1000000000}`},
		{"substeps", `{"substeps": 1000000000}`},
		{"window", `{"divergence": {"window": 1000000000}}`},
	}
	for _, tc := range oversize {
		t.Run(tc.name, func(t *testing.T) {
			body := createRequest{Model: "vanderpol", Config: json.RawMessage(tc.config)}
			assert.Equal(t, http.StatusBadRequest, do(t, ts, http.MethodPost, "/api/sessions", body, nil))
		})
	}

	scan := scanRequest{
		Model: "logistic",
		Scan: analysis.ScanConfig{
			Param: "r", Min: 2.5, Max: 4, Resolution: 1 << 20,
			Transient: 10, Samples: 1 << 20, X0: []float64{0.5},
		},
	}
	assert.Equal(t, http.StatusBadRequest, do(t, ts, http.MethodPost, "/api/scan", scan, nil))

	v := createCycle(t, ts)
	base := "/api/sessions/" + v.ID
	assert.Equal(t, http.StatusBadRequest,
		do(t, ts, http.MethodPut, base+"/speed", speedRequest{SubSteps: maxSubSteps + 1}, nil))
	require.Equal(t, http.StatusOK,
		do(t, ts, http.MethodPut, base+"/speed", speedRequest{SubSteps: maxSubSteps}, nil))
	require.Equal(t, http.StatusOK, do(t, ts, http.MethodPost, base+"/start", nil, nil))
	assert.Equal(t, http.StatusBadRequest,
		do(t, ts, http.MethodPost, base+"/frame?n="+strconv.Itoa(maxFramesPerRequest), nil, nil))
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	v := createCycle(t, ts)
	base := "/api/sessions/" + v.ID
	require.Equal(t, http.StatusOK, do(t, ts, http.MethodPost, base+"/start", nil, nil))
	require.Equal(t, http.StatusOK, do(t, ts, http.MethodPost, base+"/frame?n=2", nil, nil))

	resp, err := ts.Client().Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), "chaoslab_"), "metrics output missing chaoslab series")
}

func TestCORS(t *testing.T) {
	srv, err := New(experiment.NewRegistry(), prometheus.NewRegistry(), nil)
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler([]string{"http://lab.example"}))
	defer ts.Close()

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/models", nil)
	req.Header.Set("Origin", "http://lab.example")
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "http://lab.example", resp.Header.Get("Access-Control-Allow-Origin"))
}
