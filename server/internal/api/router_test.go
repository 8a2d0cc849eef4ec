package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/yaroslav/stretchsim/models"
	"github.com/yaroslav/stretchsim/server/internal/api/handlers"
	"github.com/yaroslav/stretchsim/server/internal/ratelimit"
	"github.com/yaroslav/stretchsim/server/internal/service"
	"github.com/yaroslav/stretchsim/server/internal/sim"
)

const testRunID = "6f1c2a8e-1d2b-4c3d-9e8f-0a1b2c3d4e5f"

type envelope struct {
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

func setupRouter(t *testing.T) (*Router, *service.SimulationService) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zaptest.NewLogger(t)

	db, err := service.OpenMemoryDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	journal, err := service.OpenJournal(db, logger)
	require.NoError(t, err)

	svc, err := service.NewSimulationService(nil, journal, logger)
	require.NoError(t, err)

	limits := ratelimit.Config{}
	r := SetupRouter(&RouterConfig{
		Service:    svc,
		Journal:    journal,
		Logger:     logger,
		RunID:      testRunID,
		RateLimits: &limits,
		GlobalRPS:  1e6,
	})
	t.Cleanup(r.Close)
	return r, svc
}

func do(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeData[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out), string(env.Data))
	return out
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) handlers.ErrorResponse {
	t.Helper()
	var resp handlers.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

func TestRouter_Health(t *testing.T) {
	r, _ := setupRouter(t)

	w := do(t, r, http.MethodGet, "/health/live", nil)
	require.Equal(t, http.StatusOK, w.Code)
	live := decodeData[handlers.LivenessResponse](t, w)
	assert.Equal(t, "ok", live.Status)
	assert.Equal(t, testRunID, live.RunID)

	w = do(t, r, http.MethodGet, "/health/ready", nil)
	require.Equal(t, http.StatusOK, w.Code)
	ready := decodeData[handlers.ReadinessResponse](t, w)
	assert.Equal(t, "connected", ready.Journal)
}

func TestRouter_Metrics(t *testing.T) {
	r, _ := setupRouter(t)

	w := do(t, r, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_Status(t *testing.T) {
	r, _ := setupRouter(t)

	w := do(t, r, http.MethodGet, "/api/v1/status", nil)
	require.Equal(t, http.StatusOK, w.Code)

	st := decodeData[models.StatusResponse](t, w)
	assert.Equal(t, testRunID, st.RunID)
	assert.False(t, st.AutoTick)
	assert.Zero(t, st.Snapshot.Tick)
	assert.Len(t, st.Snapshot.Arrays, 2)
	require.Len(t, st.Snapshot.Pods, 1)
	assert.Equal(t, sim.StretchedPod, st.Snapshot.Pods[0].Name)
}

func TestRouter_Device(t *testing.T) {
	r, _ := setupRouter(t)

	tests := []struct {
		name string
		kind models.DeviceKind
	}{
		{sim.SiteArray(sim.Site1), models.KindArray},
		{sim.SiteArray(sim.Site1) + "-ct0", models.KindController},
		{sim.StretchedPod, models.KindPod},
		{sim.CloudMediator, models.KindMediator},
		{sim.SiteHost(sim.Site2), models.KindHost},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, r, http.MethodGet, "/api/v1/devices/"+tt.name, nil)
			require.Equal(t, http.StatusOK, w.Code)
			dev := decodeData[models.DeviceStatus](t, w)
			assert.Equal(t, tt.name, dev.Name)
			assert.Equal(t, tt.kind, dev.Kind)
		})
	}

	w := do(t, r, http.MethodGet, "/api/v1/devices/nosuchdevice", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", decodeError(t, w).Error)
}

func TestRouter_DeviceAction(t *testing.T) {
	r, svc := setupRouter(t)
	array := sim.SiteArray(sim.Site2)

	w := do(t, r, http.MethodPost, "/api/v1/devices/"+array+"/actions/fail", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeData[models.ActionResponse](t, w)
	assert.Equal(t, models.ActionFail, resp.Action)

	dev, err := svc.Device(array)
	require.NoError(t, err)
	assert.False(t, dev.Status.(models.ArrayStatus).Online)

	tests := []struct {
		path string
		code int
		err  string
	}{
		{"/api/v1/devices/" + array + "/actions/explode", http.StatusBadRequest, "invalid_action"},
		{"/api/v1/devices/" + array + "/actions/promote", http.StatusBadRequest, "invalid_action"},
		{"/api/v1/devices/nosuchdevice/actions/fail", http.StatusNotFound, "not_found"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := do(t, r, http.MethodPost, tt.path, nil)
			assert.Equal(t, tt.code, w.Code)
			errResp := decodeError(t, w)
			assert.Equal(t, tt.err, errResp.Error)
			assert.NotEmpty(t, errResp.RequestID)
		})
	}
}

func TestRouter_Tick(t *testing.T) {
	r, svc := setupRouter(t)

	w := do(t, r, http.MethodPost, "/api/v1/tick?count=3", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeData[models.TickResponse](t, w)
	assert.EqualValues(t, 3, resp.Tick)
	assert.EqualValues(t, 3, svc.CurrentTick())
	assert.NotEmpty(t, resp.Transitions, "the second site baselines during the first ticks")

	w = do(t, r, http.MethodPost, "/api/v1/tick", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 4, decodeData[models.TickResponse](t, w).Tick)

	for _, q := range []string{"0", "-1", "abc", "100000"} {
		w := do(t, r, http.MethodPost, "/api/v1/tick?count="+q, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, q)
	}
	assert.EqualValues(t, 4, svc.CurrentTick())
}

func TestRouter_FailoverPreference(t *testing.T) {
	r, _ := setupRouter(t)
	path := "/api/v1/pods/" + sim.StretchedPod + "/failover-preference"
	site1 := sim.SiteArray(sim.Site1)

	w := do(t, r, http.MethodPut, path, models.FailoverPreferenceRequest{Array: site1})
	require.Equal(t, http.StatusOK, w.Code)

	type podDevice struct {
		Kind   models.DeviceKind `json:"kind"`
		Status models.PodStatus  `json:"status"`
	}
	dev := decodeData[podDevice](t, w)
	assert.Equal(t, models.KindPod, dev.Kind)
	assert.Equal(t, site1, dev.Status.FailoverPreference)

	w = do(t, r, http.MethodDelete, path, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"kind":"pod"`)
	assert.NotContains(t, w.Body.String(), "failover_preference")

	tests := []struct {
		name string
		path string
		body any
		code int
	}{
		{"not a member", path, models.FailoverPreferenceRequest{Array: "cloud-mediator"}, http.StatusConflict},
		{"missing array", path, map[string]string{}, http.StatusBadRequest},
		{"unknown pod", "/api/v1/pods/nopod/failover-preference", models.FailoverPreferenceRequest{Array: site1}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, r, http.MethodPut, tt.path, tt.body)
			assert.Equal(t, tt.code, w.Code, w.Body.String())
		})
	}
}

func TestRouter_WANLatency(t *testing.T) {
	r, svc := setupRouter(t)

	w := do(t, r, http.MethodPut, "/api/v1/wan/latency", map[string]float64{"latency": 8})
	require.Equal(t, http.StatusOK, w.Code)

	snap := svc.Status()
	wan := 0
	for _, c := range snap.Connections {
		if c.WAN {
			wan++
			assert.Equal(t, 4.0, c.Latency)
		}
	}
	assert.Equal(t, 2, wan)

	w = do(t, r, http.MethodPut, "/api/v1/wan/latency", map[string]float64{"latency": -1})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, http.MethodPut, "/api/v1/wan/latency", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_Transitions(t *testing.T) {
	r, _ := setupRouter(t)

	require.Equal(t, http.StatusOK, do(t, r, http.MethodPost, "/api/v1/tick?count=3", nil).Code)

	subject := sim.StretchedPod + "/" + sim.SiteArray(sim.Site2)
	w := do(t, r, http.MethodGet, "/api/v1/transitions?kind=pod_state&subject="+subject, nil)
	require.Equal(t, http.StatusOK, w.Code)

	list := decodeData[models.TransitionListResponse](t, w)
	require.Len(t, list.Transitions, 2)
	assert.Equal(t, string(models.SyncBaselining), list.Transitions[0].To)
	assert.Equal(t, string(models.SyncSynced), list.Transitions[1].To)
	assert.GreaterOrEqual(t, list.Total, 2)

	w = do(t, r, http.MethodGet, "/api/v1/transitions?from=2&to=2&kind=pod_state&subject="+subject, nil)
	require.Equal(t, http.StatusOK, w.Code)
	list = decodeData[models.TransitionListResponse](t, w)
	require.Len(t, list.Transitions, 1)
	assert.EqualValues(t, 2, list.Transitions[0].Tick)

	for _, q := range []string{"from=x", "from=5&to=2", "kind=bogus", "limit=0", "limit=99999"} {
		w := do(t, r, http.MethodGet, "/api/v1/transitions?"+q, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, q)
	}
}

func TestRouter_Reset(t *testing.T) {
	r, svc := setupRouter(t)

	require.Equal(t, http.StatusOK, do(t, r, http.MethodPost, "/api/v1/tick?count=5", nil).Code)
	require.EqualValues(t, 5, svc.CurrentTick())

	w := do(t, r, http.MethodPost, "/api/v1/reset", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, svc.CurrentTick())

	w = do(t, r, http.MethodGet, "/api/v1/transitions", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, decodeData[models.TransitionListResponse](t, w).Total)
}

func TestRouter_MutationRateLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)

	svc, err := service.NewSimulationService(nil, nil, nil)
	require.NoError(t, err)

	limits := ratelimit.Config{MutationsPerMin: 1}
	r := SetupRouter(&RouterConfig{Service: svc, RunID: testRunID, RateLimits: &limits})
	defer r.Close()

	path := "/api/v1/devices/" + sim.SiteArray(sim.Site1) + "/actions/fail"
	assert.Equal(t, http.StatusOK, do(t, r, http.MethodPost, path, nil).Code)

	w := do(t, r, http.MethodPost, path, nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	// Reads are a separate class, and the journal routes are absent.
	assert.Equal(t, http.StatusOK, do(t, r, http.MethodGet, "/api/v1/status", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, r, http.MethodGet, "/api/v1/transitions", nil).Code)

	w = do(t, r, http.MethodGet, "/health/ready", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "disabled", decodeData[handlers.ReadinessResponse](t, w).Journal)
}
