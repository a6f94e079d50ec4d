// Package metrics экспортирует счетчики сервиса в Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"moodnote/internal/journal/domain/entities"
)

const namespace = "moodnote"

// Prometheus реализует services.Metrics и счетчики транспорта.
type Prometheus struct {
	registry *prometheus.Registry

	publications  *prometheus.CounterVec
	likes         *prometheus.CounterVec
	suggestions   *prometheus.CounterVec
	reconciled    *prometheus.CounterVec
	requests      *prometheus.CounterVec
	latency       *prometheus.HistogramVec
	subscriptions *prometheus.GaugeVec
}

// New регистрирует метрики в собственном реестре вместе с метриками процесса и Go.
func New() *Prometheus {
	reg := prometheus.NewRegistry()
	m := &Prometheus{
		registry: reg,
		publications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publication_outcomes_total",
			Help:      "Publication attempts by operation and resulting state.",
		}, []string{"operation", "state"}),
		likes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "likes_total",
			Help:      "Like requests by result.",
		}, []string{"result"}),
		suggestions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "suggestions_total",
			Help:      "Entry starter suggestions by result.",
		}, []string{"result"}),
		reconciled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconciled_records_total",
			Help:      "Records repaired by the reconciler.",
		}, []string{"kind"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		subscriptions: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_subscriptions",
			Help:      "Open live view subscriptions by view kind.",
		}, []string{"view"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.publications, m.likes, m.suggestions, m.reconciled,
		m.requests, m.latency, m.subscriptions,
	)
	return m
}

func (m *Prometheus) PublicationOutcome(operation string, state entities.State) {
	m.publications.WithLabelValues(operation, string(state)).Inc()
}

func (m *Prometheus) LikeResult(result string) {
	m.likes.WithLabelValues(result).Inc()
}

func (m *Prometheus) SuggestionResult(result string) {
	m.suggestions.WithLabelValues(result).Inc()
}

func (m *Prometheus) Reconciled(kind string, n int) {
	m.reconciled.WithLabelValues(kind).Add(float64(n))
}

// ObserveRequest учитывает HTTP запрос.
func (m *Prometheus) ObserveRequest(route, method string, status int, elapsed time.Duration) {
	m.requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.latency.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

// SubscriptionOpened и SubscriptionClosed ведут число живых подписок.
func (m *Prometheus) SubscriptionOpened(view string) { m.subscriptions.WithLabelValues(view).Inc() }

func (m *Prometheus) SubscriptionClosed(view string) { m.subscriptions.WithLabelValues(view).Dec() }

// Handler отдает метрики в формате Prometheus.
func (m *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
