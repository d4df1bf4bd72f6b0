package devserver

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type serverMetrics struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	logins   *prometheus.CounterVec
	resets   *prometheus.CounterVec
}

func newServerMetrics(reg prometheus.Registerer) *serverMetrics {
	f := promauto.With(reg)
	return &serverMetrics{
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "teachkit",
			Subsystem: "devserver",
			Name:      "http_requests_total",
			Help:      "Requests by route and status",
		}, []string{"route", "status"}),
		latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "teachkit",
			Subsystem: "devserver",
			Name:      "http_request_duration_seconds",
			Help:      "Request latency by route",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		logins: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "teachkit",
			Subsystem: "devserver",
			Name:      "logins_total",
			Help:      "Login attempts by outcome",
		}, []string{"outcome"}),
		resets: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "teachkit",
			Subsystem: "devserver",
			Name:      "password_reset_total",
			Help:      "Password reset calls by action and outcome",
		}, []string{"action", "outcome"}),
	}
}

func outcome(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}

func (m *serverMetrics) login(ok bool) {
	m.logins.WithLabelValues(outcome(ok)).Inc()
}

func (m *serverMetrics) reset(action string, ok bool) {
	m.resets.WithLabelValues(action, outcome(ok)).Inc()
}

// observe labels requests by route template so path parameters don't explode cardinality
func (m *serverMetrics) observe(r *http.Request, status int, elapsed time.Duration) {
	route := "unmatched"
	if cur := mux.CurrentRoute(r); cur != nil {
		if tpl, err := cur.GetPathTemplate(); err == nil {
			route = tpl
		}
	}
	m.requests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.latency.WithLabelValues(route).Observe(elapsed.Seconds())
}
