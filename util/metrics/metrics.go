package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	ReservationsCommitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reservations_committed_total",
			Help: "Reservations committed, by tenant",
		},
		[]string{"tenant"},
	)

	ReservationConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "reservation_conflicts_total",
			Help: "Commit attempts rejected because the date was taken",
		},
	)

	PaymentEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_events_total",
			Help: "Inbound payment events by outcome",
		},
		[]string{"outcome"},
	)
)

func Register() {
	prometheus.MustRegister(
		RequestCounter,
		RequestDuration,
		ReservationsCommitted,
		ReservationConflicts,
		PaymentEvents,
	)
}

// Middleware records request count and duration per route.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := strconv.Itoa(c.Response().Status)
			method := c.Request().Method
			path := c.Path()

			RequestCounter.WithLabelValues(method, path, status).Inc()
			RequestDuration.WithLabelValues(method, path, status).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// Handler exposes the prometheus scrape endpoint.
func Handler() http.Handler { return promhttp.Handler() }
