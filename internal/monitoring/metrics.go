package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	SearchCallsTotal    prometheus.Counter
	PagesFetchedTotal   prometheus.Counter
	RecordsWrittenTotal prometheus.Counter
	ErrorsTotal         *prometheus.CounterVec
	QuotaUsed           prometheus.Gauge
}

func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

// NewMetricsWith registers the metric set on the given registerer; tests pass
// a fresh registry to avoid duplicate-registration panics.
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		SearchCallsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "prospector_search_calls_total",
			Help: "The total number of search API calls issued",
		}),
		PagesFetchedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "prospector_pages_fetched_total",
			Help: "The total number of result pages fetched",
		}),
		RecordsWrittenTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "prospector_records_written_total",
			Help: "The total number of new contact records persisted",
		}),
		ErrorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "prospector_errors_total",
			Help: "The total number of errors encountered",
		}, []string{"type"}), // e.g., 'search_failed', 'fetch_failed', 'save_failed'
		QuotaUsed: factory.NewGauge(prometheus.GaugeOpts{
			Name: "prospector_quota_used",
			Help: "API calls spent against the daily quota",
		}),
	}
}

func (m *Metrics) IncSearchCalls() {
	m.SearchCallsTotal.Inc()
}

func (m *Metrics) IncPagesFetched() {
	m.PagesFetchedTotal.Inc()
}

func (m *Metrics) AddRecordsWritten(n int) {
	m.RecordsWrittenTotal.Add(float64(n))
}

func (m *Metrics) IncErrors(errorType string) {
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}

func (m *Metrics) SetQuotaUsed(count int) {
	m.QuotaUsed.Set(float64(count))
}
