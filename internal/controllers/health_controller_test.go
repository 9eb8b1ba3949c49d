package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sitestatus/internal/gateway"
	"sitestatus/internal/storage"
	"sitestatus/internal/structures"
	"sitestatus/internal/testutil"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockDatabase struct {
	pingErr error
}

func (m *mockDatabase) Table(_ string) storage.Table { return nil }
func (m *mockDatabase) Ping() error                  { return m.pingErr }
func (m *mockDatabase) Close() error                 { return nil }

func newTestGateway() *gateway.WebsocketGateway {
	return gateway.NewWebsocketGateway(&structures.Config{}, &testutil.MockLogger{}, &testutil.MockMetrics{})
}

func TestHealth_ReturnsOK(t *testing.T) {
	hc := NewHealthController(&mockDatabase{}, newTestGateway())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	hc.Health(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp["status"])
	assert.Contains(t, resp, "uptime")
	assert.Contains(t, resp, "uptime_seconds")
	assert.Equal(t, float64(0), resp["connections"])
	assert.NotContains(t, resp, "error")
}

func TestHealth_DegradedWhenStoreUnreachable(t *testing.T) {
	hc := NewHealthController(&mockDatabase{pingErr: errors.New("closed")}, newTestGateway())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	hc.Health(rr, req)

	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "degraded", resp["status"])
	assert.Equal(t, "closed", resp["error"])
}

func TestHealth_MethodNotAllowed(t *testing.T) {
	hc := NewHealthController(&mockDatabase{}, newTestGateway())

	req := httptest.NewRequest(http.MethodPost, "/health", nil)
	rr := httptest.NewRecorder()
	hc.Health(rr, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		name     string
		duration time.Duration
		expected string
	}{
		{"zero", 0, "0h0m0s"},
		{"one minute", 60 * time.Second, "0h1m0s"},
		{"one hour", time.Hour, "1h0m0s"},
		{"mixed", time.Hour + time.Minute + time.Second, "1h1m1s"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, formatDuration(tt.duration))
		})
	}
}
