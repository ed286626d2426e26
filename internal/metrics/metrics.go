package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"vacancy_syncer/internal/domain"
)

const namespace = "vacancy_syncer"

// Metrics records per-source run outcomes.
type Metrics struct {
	RunsTotal       *prometheus.CounterVec
	RunDuration     *prometheus.HistogramVec
	ItemsTotal      *prometheus.CounterVec
	LastSuccessTime *prometheus.GaugeVec
}

func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		RunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Synchronization runs by source and final status",
		}, []string{"source_id", "status"}),
		RunDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of one source run",
			Buckets:   []float64{0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"source_id"}),
		ItemsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_total",
			Help:      "Feed items by source and outcome",
		}, []string{"source_id", "outcome"}),
		LastSuccessTime: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run per source",
		}, []string{"source_id"}),
	}
}

func (m *Metrics) ObserveRun(sourceID string, status domain.RunStatus, tally domain.Tally, elapsed time.Duration) {
	m.RunsTotal.WithLabelValues(sourceID, string(status)).Inc()
	m.RunDuration.WithLabelValues(sourceID).Observe(elapsed.Seconds())

	m.ItemsTotal.WithLabelValues(sourceID, "found").Add(float64(tally.Found))
	m.ItemsTotal.WithLabelValues(sourceID, "created").Add(float64(tally.Created))
	m.ItemsTotal.WithLabelValues(sourceID, "updated").Add(float64(tally.Updated))
	m.ItemsTotal.WithLabelValues(sourceID, "closed").Add(float64(tally.Closed))
	m.ItemsTotal.WithLabelValues(sourceID, "deleted").Add(float64(tally.Deleted))

	if status == domain.RunStatusSuccess {
		m.LastSuccessTime.WithLabelValues(sourceID).SetToCurrentTime()
	}
}
