package publisher

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	targetLive    = "live"
	targetArchive = "archive"
)

// Metrics holds the scheduler's Prometheus collectors. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	cycleDuration   prometheus.Histogram
	cycles          prometheus.Counter
	writeFailures   *prometheus.CounterVec
	archives        prometheus.Counter
	weatherFailures prometheus.Counter
	alertsActive    prometheus.Gauge
}

// NewMetrics registers the collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		cycleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "hostwatch_cycle_duration_seconds",
			Help:    "Time taken by one publication cycle",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
		}),
		cycles: factory.NewCounter(prometheus.CounterOpts{
			Name: "hostwatch_cycles_total",
			Help: "Total number of completed publication cycles",
		}),
		writeFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "hostwatch_write_failures_total",
			Help: "Total number of failed document writes",
		}, []string{"target"}), // live or archive
		archives: factory.NewCounter(prometheus.CounterOpts{
			Name: "hostwatch_archives_total",
			Help: "Total number of archive documents written",
		}),
		weatherFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "hostwatch_weather_failures_total",
			Help: "Total number of failed weather lookups",
		}),
		alertsActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "hostwatch_alerts_active",
			Help: "Number of alerts in the last published document",
		}),
	}
}

func (m *Metrics) observe(res CycleResult, weatherFailed bool, took time.Duration) {
	if m == nil {
		return
	}

	m.cycleDuration.Observe(took.Seconds())
	m.cycles.Inc()
	m.alertsActive.Set(float64(len(res.Alerts)))

	if res.LiveErr != nil {
		m.writeFailures.WithLabelValues(targetLive).Inc()
	}
	if res.ArchiveErr != nil {
		m.writeFailures.WithLabelValues(targetArchive).Inc()
	}
	if res.Archived {
		m.archives.Inc()
	}
	if weatherFailed {
		m.weatherFailures.Inc()
	}
}
