// Package metrics exposes Prometheus instruments for the booking API.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	reg             *prometheus.Registry
	Reservations    *prometheus.CounterVec
	ReserveDuration *prometheus.HistogramVec
	RateLimited     prometheus.Counter
	PublishFailures prometheus.Counter
}

// New builds a private registry with Go runtime and process collectors
// plus the booking instruments.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Metrics{
		reg: reg,
		Reservations: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "booking_reservations_total",
			Help: "Reservation attempts by outcome.",
		}, []string{"outcome"}),
		ReserveDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "booking_reserve_duration_seconds",
			Help:    "Time spent in a reservation attempt, including lock waits.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"outcome"}),
		RateLimited: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "booking_rate_limited_total",
			Help: "Requests rejected by the rate limiter.",
		}),
		PublishFailures: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "booking_publish_failures_total",
			Help: "booking.confirmed messages that could not be published.",
		}),
	}
}

// ObserveReservation records one reservation attempt.
func (m *Metrics) ObserveReservation(outcome string, elapsed time.Duration) {
	m.Reservations.WithLabelValues(outcome).Inc()
	m.ReserveDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// PublishFailed counts a booking.confirmed message that was not delivered.
func (m *Metrics) PublishFailed() { m.PublishFailures.Inc() }

// Registry returns the registry backing the handler.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}
