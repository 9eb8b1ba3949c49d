package internal

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sitestatus/internal/controllers"
	"sitestatus/internal/gateway"
	"sitestatus/internal/providers"
	"sitestatus/internal/services"
	"sitestatus/internal/storage"
	"sitestatus/internal/structures"
	"sitestatus/internal/testutil"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func routeTestConfig() *structures.Config {
	return &structures.Config{
		Storage: structures.StorageConfig{
			InMemory: true,
			Tables: structures.Tables{
				Status:      "site-status",
				Subscribers: "status-subscribers",
				Phase:       "phase-status",
			},
		},
		Forecast:    structures.ForecastConfig{Retention: 96 * time.Hour},
		Subscribers: structures.SubscribersConfig{TTL: time.Hour},
		Phase:       structures.PhaseConfig{TTL: time.Hour, MaxAge: time.Hour, MaxItems: 1},
	}
}

func newTestMux(t *testing.T) (*http.ServeMux, providers.RouterProviderInterface) {
	t.Helper()
	conf := routeTestConfig()
	logger := &testutil.MockLogger{}
	metrics := &testutil.MockMetrics{}

	store, err := storage.OpenInMemory(storage.NewChangeFeed(conf), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	publisher := &testutil.MockPublisher{}
	statusService := services.NewStatusService(conf, store, publisher, logger, metrics)
	phaseService := services.NewPhaseStatusService(conf, store, publisher, logger, metrics)
	subscriberService := services.NewSubscriberService(conf, store, logger, metrics)
	gw := gateway.NewWebsocketGateway(conf, logger, metrics)

	router := InitRoutes(
		controllers.NewStatusController(logger, statusService, testutil.NewMockCache()),
		controllers.NewPhaseController(logger, phaseService),
		controllers.NewConnectionController(logger, subscriberService, gw),
	)
	mux := http.NewServeMux()
	for _, route := range router.GetRoutes() {
		mux.Handle(route.Pattern(), route.Handler)
	}
	return mux, router
}

func do(mux http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	return rr
}

func TestInitRoutes_RegistersRoutes(t *testing.T) {
	_, router := newTestMux(t)

	patterns := make([]string, 0)
	for _, r := range router.GetRoutes() {
		patterns = append(patterns, r.Pattern())
	}

	assert.ElementsMatch(t, []string{
		"GET /status/open",
		"POST /status/{site}",
		"DELETE /status/{site}",
		"GET /status/{site}/complete",
		"GET /status/{site}/{status_type}",
		"POST /phase_status",
		"GET /phase_status/{site}",
		"GET /ws",
	}, patterns)
}

func TestInitRoutes_MethodEnforcement(t *testing.T) {
	mux, _ := newTestMux(t)

	assert.Equal(t, http.StatusMethodNotAllowed, do(mux, http.MethodPut, "/status/tst", "{}").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, do(mux, http.MethodGet, "/phase_status", "").Code)
	assert.Equal(t, http.StatusNotFound, do(mux, http.MethodGet, "/nowhere", "").Code)
}

func TestInitRoutes_StatusLifecycle(t *testing.T) {
	mux, _ := newTestMux(t)

	rr := do(mux, http.MethodPost, "/status/tst", `{"statusType":"device","status":{"mount":{"m1":{"ra":12.5}}}}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	rr = do(mux, http.MethodPost, "/status/tst", `{"statusType":"weather","status":{"observing_conditions":{"wx1":{"wx_ok":"Yes"}}}}`)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = do(mux, http.MethodGet, "/status/tst/device", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var device map[string]map[string]map[string]map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &device))
	assert.Equal(t, 12.5, device["mount"]["m1"]["ra"]["val"])

	rr = do(mux, http.MethodGet, "/status/tst/complete", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var complete map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &complete))
	assert.Equal(t, "tst", complete["site"])
	assert.Contains(t, complete["status"], "mount")
	assert.Contains(t, complete["status"], "observing_conditions")

	rr = do(mux, http.MethodGet, "/status/open", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var open map[string]map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &open))
	assert.Equal(t, true, open["tst"]["wx_ok"])
	assert.Contains(t, open["tst"], "device")

	rr = do(mux, http.MethodDelete, "/status/tst", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var cleared map[string][]map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &cleared))
	assert.Len(t, cleared["items_removed"], 2)

	rr = do(mux, http.MethodGet, "/status/tst/device", "")
	assert.Equal(t, "{}", rr.Body.String())
}

func TestInitRoutes_PostStatusBadRequest(t *testing.T) {
	mux, _ := newTestMux(t)

	assert.Equal(t, http.StatusBadRequest, do(mux, http.MethodPost, "/status/tst", `{"status":{}}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(mux, http.MethodPost, "/status/tst", `nope`).Code)
}

func TestInitRoutes_PhaseStatus(t *testing.T) {
	mux, _ := newTestMux(t)

	rr := do(mux, http.MethodPost, "/phase_status", `{"site":"tst","message":"Taking darks"}`)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = do(mux, http.MethodGet, "/phase_status/tst", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var phases []map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &phases))
	require.Len(t, phases, 1)
	assert.Equal(t, "Taking darks", phases[0]["message"])
}

func TestInitRoutes_WsRequiresSite(t *testing.T) {
	mux, _ := newTestMux(t)
	assert.Equal(t, http.StatusBadRequest, do(mux, http.MethodGet, "/ws", "").Code)
}
