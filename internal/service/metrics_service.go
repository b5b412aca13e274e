package service

import (
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the HTTP layer
// and the solver.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	solveDuration   prometheus.Histogram
	solvesTotal     *prometheus.CounterVec
	blocksAssigned  prometheus.Counter
	blocksRequired  prometheus.Counter
}

// NewMetricsService registers the collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	solveDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "schedule_solve_duration_seconds",
		Help:    "Wall-clock time of timetable solves",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
	})

	solvesTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "schedule_solves_total",
		Help: "Total timetable solves by final solver status",
	}, []string{"status"})

	blocksAssigned := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "schedule_blocks_assigned_total",
		Help: "Total blocks placed across all solves",
	})

	blocksRequired := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "schedule_blocks_required_total",
		Help: "Total blocks requested across all solves",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, solveDuration, solvesTotal, blocksAssigned, blocksRequired, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		solveDuration:   solveDuration,
		solvesTotal:     solvesTotal,
		blocksAssigned:  blocksAssigned,
		blocksRequired:  blocksRequired,
	}
}

// Handler serves the Prometheus exposition endpoint.
func (m *MetricsService) Handler() http.Handler { return m.handler }

// ObserveRequest records one HTTP request.
func (m *MetricsService) ObserveRequest(method, path, status string, duration time.Duration) {
	m.requestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, status).Inc()
}

// ObserveSolve records one finished solve.
func (m *MetricsService) ObserveSolve(status string, duration time.Duration, assigned, required int) {
	m.solveDuration.Observe(duration.Seconds())
	m.solvesTotal.WithLabelValues(status).Inc()
	m.blocksAssigned.Add(float64(assigned))
	m.blocksRequired.Add(float64(required))
}
