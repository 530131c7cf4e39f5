// Package metrics exposes Prometheus counters for HTTP traffic and for the
// outcome of authentication operations. Every Metrics value owns a private
// registry, so several routers can coexist in one process.
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/patric-chuzhbe/authsrv/internal/models"
	"github.com/patric-chuzhbe/authsrv/internal/service"
)

const namespace = "authsrv"

// Outcome labels of ObserveAuth.
const (
	OutcomeSuccess      = "success"
	OutcomeConflict     = "conflict"
	OutcomeUnauthorized = "unauthorized"
	OutcomeInvalid      = "invalid"
	OutcomeError        = "error"
)

// Operation labels of ObserveAuth.
const (
	OperationRegister = "register"
	OperationLogin    = "login"
	OperationMe       = "me"
)

type Metrics struct {
	registry     *prometheus.Registry
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	authOutcomes *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests by route pattern, method and status code.",
			},
			[]string{"route", "method", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency by route pattern.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		authOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "auth_operations_total",
				Help:      "Register, login and identity check calls by outcome.",
			},
			[]string{"operation", "outcome"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests,
		m.httpDuration,
		m.authOutcomes,
	)

	return m
}

// ObserveAuth counts one authentication operation.
func (m *Metrics) ObserveAuth(operation, outcome string) {
	m.authOutcomes.WithLabelValues(operation, outcome).Inc()
}

// OutcomeOf classifies the result of an authentication operation.
func OutcomeOf(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, service.ErrConflict):
		return OutcomeConflict
	case errors.Is(err, service.ErrUnauthorized):
		return OutcomeUnauthorized
	case errors.Is(err, models.ErrInvalidCredentials),
		errors.Is(err, models.ErrUsernameTooLong),
		errors.Is(err, models.ErrPasswordTooLong):
		return OutcomeInvalid
	}
	return OutcomeError
}

// Middleware records the status and latency of every request, labelled by
// the chi route pattern to keep cardinality bounded.
func (m *Metrics) Middleware(h http.Handler) http.Handler {
	fn := func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		h.ServeHTTP(ww, r)

		route := "unmatched"
		if routeContext := chi.RouteContext(r.Context()); routeContext != nil {
			if pattern := routeContext.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		m.httpRequests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		m.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}

	return http.HandlerFunc(fn)
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
