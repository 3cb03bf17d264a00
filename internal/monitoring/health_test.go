package monitoring

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestHealthChecker_ReportsDegradedWhenDisconnected tests the
// connectivity status transition
func TestHealthChecker_ReportsDegradedWhenDisconnected(t *testing.T) {
	h := NewHealthChecker()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var status HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "degraded", status.Status)
}

// TestHealthChecker_ReportsHealthyWhenConnected tests the happy path
func TestHealthChecker_ReportsHealthyWhenConnected(t *testing.T) {
	h := NewHealthChecker()
	h.SetConnected(true)
	h.RecordPrice(50000)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)

	var status HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "healthy", status.Status)
	assert.Equal(t, 50000.0, status.LastPrice)
}

// TestHealthChecker_FailuresCapAtTen tests the error list bound
func TestHealthChecker_FailuresCapAtTen(t *testing.T) {
	h := NewHealthChecker()
	h.SetConnected(true)
	for i := 0; i < 15; i++ {
		h.RecordFailure("venue unreachable")
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var status HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "unhealthy", status.Status)
	assert.Len(t, status.Errors, 10)
}

// TestHealthChecker_DisconnectedWithFailuresIsUnhealthy tests that the
// error state wins over degraded connectivity and the response carries a
// single status code
func TestHealthChecker_DisconnectedWithFailuresIsUnhealthy(t *testing.T) {
	h := NewHealthChecker()
	h.RecordFailure("order rejected")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var status HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "unhealthy", status.Status)
	assert.False(t, status.IsConnected)
}

// TestNewServeMux_ExposesMetricsEndpoint tests the scrape endpoint wiring
func TestNewServeMux_ExposesMetricsEndpoint(t *testing.T) {
	RecordOrder("BTC/USDT", "buy", "market", 0.5)
	mux := NewServeMux(NewHealthChecker())

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "assistant_orders_placed_total")
}
