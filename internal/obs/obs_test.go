package obs

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warning"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel("bogus"))
}

func TestMetricsExposition(t *testing.T) {
	m := NewMetrics()
	m.OrdersCreated.WithLabelValues("guest").Inc()
	m.AuthAttempts.WithLabelValues("login", "rate_limited").Inc()

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, `storefront_orders_created_total{checkout="guest"} 1`)
	assert.Contains(t, body, `storefront_auth_attempts_total{endpoint="login",result="rate_limited"} 1`)
}

func TestMetricsIndependentRegistries(t *testing.T) {
	// Two instances must not collide on registration.
	assert.NotPanics(t, func() {
		NewMetrics()
		NewMetrics()
	})
}
