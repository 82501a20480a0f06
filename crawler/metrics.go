package crawler

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the crawl engine.
type Metrics struct {
	Registry        *prometheus.Registry
	PeriodsTotal    *prometheus.CounterVec
	OrdersTotal     *prometheus.CounterVec
	FetchDuration   prometheus.Histogram
	ItemsTotal      prometheus.Counter
	RetriesTotal    prometheus.Counter
	LoginsTotal     prometheus.Counter
	ErrorsTotal     *prometheus.CounterVec
	SnapshotsTotal  prometheus.Counter
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	periods := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mohist_periods_total",
			Help: "Periods handled per run, by outcome.",
		},
		[]string{"outcome"},
	)
	orders := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mohist_orders_total",
			Help: "Orders handled, by outcome.",
		},
		[]string{"outcome"},
	)
	fetchDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mohist_order_fetch_duration_seconds",
			Help:    "Latency of order detail fetches.",
			Buckets: prometheus.DefBuckets,
		},
	)
	items := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "mohist_line_items_total",
			Help: "Line items recorded into the crawl state.",
		},
	)
	retries := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "mohist_retries_total",
			Help: "Retry attempts scheduled for transient page errors.",
		},
	)
	logins := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "mohist_logins_total",
			Help: "Login attempts made after session loss.",
		},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mohist_errors_total",
			Help: "Errors observed by the engine, by type.",
		},
		[]string{"error_type"},
	)
	snapshots := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "mohist_snapshots_total",
			Help: "State snapshots written to disk.",
		},
	)

	registry.MustRegister(periods, orders, fetchDuration, items, retries, logins, errorsTotal, snapshots)

	return &Metrics{
		Registry:       registry,
		PeriodsTotal:   periods,
		OrdersTotal:    orders,
		FetchDuration:  fetchDuration,
		ItemsTotal:     items,
		RetriesTotal:   retries,
		LoginsTotal:    logins,
		ErrorsTotal:    errorsTotal,
		SnapshotsTotal: snapshots,
	}
}

// IncPeriod counts a period outcome (fetched or skipped).
func (m *Metrics) IncPeriod(outcome string) {
	if m == nil {
		return
	}
	m.PeriodsTotal.WithLabelValues(outcome).Inc()
}

// IncOrder counts an order outcome (fetched, cached, or cancelled).
func (m *Metrics) IncOrder(outcome string) {
	if m == nil {
		return
	}
	m.OrdersTotal.WithLabelValues(outcome).Inc()
}

// ObserveFetch records an order detail fetch duration.
func (m *Metrics) ObserveFetch(d time.Duration) {
	if m == nil {
		return
	}
	m.FetchDuration.Observe(d.Seconds())
}

// AddItems counts line items recorded.
func (m *Metrics) AddItems(n int) {
	if m == nil {
		return
	}
	m.ItemsTotal.Add(float64(n))
}

// IncRetries counts a scheduled retry.
func (m *Metrics) IncRetries() {
	if m == nil {
		return
	}
	m.RetriesTotal.Inc()
}

// IncLogins counts a login attempt.
func (m *Metrics) IncLogins() {
	if m == nil {
		return
	}
	m.LoginsTotal.Inc()
}

// IncError counts an error for a type label.
func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}

// IncSnapshots counts a snapshot save.
func (m *Metrics) IncSnapshots() {
	if m == nil {
		return
	}
	m.SnapshotsTotal.Inc()
}
