package metrics

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal *prometheus.CounterVec
	votesTotal        prometheus.Counter
	pollsFinished     prometheus.Counter
	pushClients       prometheus.Gauge
	registerOnce      sync.Once
)

// Register initializes Prometheus metrics on the default registry.
func Register() {
	registerOnce.Do(func() {
		httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "votify",
			Name:      "http_requests_total",
			Help:      "Total HTTP requests processed by the Votify API.",
		}, []string{"method", "path", "status"})
		votesTotal = promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "votify",
			Name:      "votes_total",
			Help:      "Votes accepted.",
		})
		pollsFinished = promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "votify",
			Name:      "polls_finished_total",
			Help:      "Polls closed by the finisher job.",
		})
		pushClients = promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "votify",
			Name:      "push_clients",
			Help:      "Open push notification connections.",
		})
	})
}

// IncRequest increments the http_requests_total counter with the given labels.
func IncRequest(method, path string, status int) {
	if httpRequestsTotal == nil {
		return
	}
	httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
}

func IncVote() {
	if votesTotal != nil {
		votesTotal.Inc()
	}
}

func AddFinished(n int) {
	if pollsFinished != nil {
		pollsFinished.Add(float64(n))
	}
}

func SetPushClients(n int) {
	if pushClients != nil {
		pushClients.Set(float64(n))
	}
}
