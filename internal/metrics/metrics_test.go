package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveReservation(t *testing.T) {
	m := New()

	m.ObserveReservation("reserved", 10*time.Millisecond)
	m.ObserveReservation("reserved", 20*time.Millisecond)
	m.ObserveReservation("capacity_exceeded", time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Reservations.WithLabelValues("reserved")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Reservations.WithLabelValues("capacity_exceeded")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.ReserveDuration))
}

func TestHandlerExposesRegistry(t *testing.T) {
	m := New()
	m.ObserveReservation("already_booked", time.Millisecond)
	m.RateLimited.Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `booking_reservations_total{outcome="already_booked"} 1`))
	assert.Contains(t, body, "booking_rate_limited_total 1")
	assert.Contains(t, body, "go_goroutines")
}
