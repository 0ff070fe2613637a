package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	ResultOK    = "ok"
	ResultError = "error"
	ResultStale = "stale"
)

// Registry owns the dashboard collectors. A nil *Registry is valid and records nothing.
type Registry struct {
	registry *prometheus.Registry
	handler  http.Handler

	unread              prometheus.Gauge
	notificationRefresh *prometheus.CounterVec
	notificationAck     *prometheus.CounterVec
	statusTransition    *prometheus.CounterVec
	consultationRefresh *prometheus.CounterVec
	requestDuration     *prometheus.HistogramVec
}

func New() *Registry {
	registry := prometheus.NewRegistry()

	unread := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "dashboard_unread_notifications",
		Help: "Unread notifications in the local projection (unclamped)",
	})

	notificationRefresh := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dashboard_notification_refresh_total",
		Help: "Notification list refreshes by result",
	}, []string{"result"})

	notificationAck := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dashboard_notification_ack_total",
		Help: "Read acknowledgements by result",
	}, []string{"result"})

	statusTransition := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dashboard_status_transition_total",
		Help: "Consultation status transition requests by target status and result",
	}, []string{"to", "result"})

	consultationRefresh := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dashboard_consultation_refresh_total",
		Help: "Consultation list refreshes by result",
	}, []string{"result"})

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	registry.MustRegister(unread, notificationRefresh, notificationAck, statusTransition, consultationRefresh, requestDuration)

	return &Registry{
		registry:            registry,
		handler:             promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		unread:              unread,
		notificationRefresh: notificationRefresh,
		notificationAck:     notificationAck,
		statusTransition:    statusTransition,
		consultationRefresh: consultationRefresh,
		requestDuration:     requestDuration,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (r *Registry) Handler() http.Handler {
	if r == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return r.handler
}

func (r *Registry) SetUnread(n int) {
	if r == nil {
		return
	}
	r.unread.Set(float64(n))
}

func (r *Registry) NotificationRefresh(result string) {
	if r == nil {
		return
	}
	r.notificationRefresh.WithLabelValues(result).Inc()
}

func (r *Registry) NotificationAck(result string) {
	if r == nil {
		return
	}
	r.notificationAck.WithLabelValues(result).Inc()
}

func (r *Registry) StatusTransition(to, result string) {
	if r == nil {
		return
	}
	r.statusTransition.WithLabelValues(to, result).Inc()
}

func (r *Registry) ConsultationRefresh(result string) {
	if r == nil {
		return
	}
	r.consultationRefresh.WithLabelValues(result).Inc()
}

func (r *Registry) ObserveHTTPRequest(method, path string, status int, d time.Duration) {
	if r == nil {
		return
	}
	r.requestDuration.WithLabelValues(method, path, strconv.Itoa(status)).Observe(d.Seconds())
}

// Gatherer is exposed for tests.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// Result maps an error to a result label.
func Result(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultOK
}
