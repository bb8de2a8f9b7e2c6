package metadata

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nerrad567/gray-logic-sensorgw/internal/store"
)

const (
	metricsNamespace = "sensorgw"
	metricsSubsystem = "metadata"
)

// Resolution outcomes used as the result label.
const (
	resultOK          = "ok"
	resultNoMetadata  = "no_metadata"
	resultCompilation = "compilation_error"
	resultQuery       = "query_error"
	resultOther       = "error"
)

// Metrics holds the Prometheus collectors for resolution and caching.
// All methods are safe on a nil receiver.
type Metrics struct {
	cacheHits    prometheus.Counter
	cacheMisses  prometheus.Counter
	cacheSets    prometheus.Counter
	cacheDeletes prometheus.Counter
	cacheSize    prometheus.Gauge
	resolutions  *prometheus.CounterVec
	duration     prometheus.Histogram
	queries      *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "cache_hits_total",
			Help:      "Total number of metadata cache hits",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "cache_misses_total",
			Help:      "Total number of metadata cache misses, stale entries included",
		}),
		cacheSets: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "cache_sets_total",
			Help:      "Total number of metadata cache writes",
		}),
		cacheDeletes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "cache_deletes_total",
			Help:      "Total number of metadata cache invalidations",
		}),
		cacheSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "cache_size",
			Help:      "Current number of devices in the metadata cache",
		}),
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "resolutions_total",
			Help:      "Total number of resolver runs by result",
		}, []string{"result"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "resolve_duration_seconds",
			Help:      "Time taken by a full resolver run",
			Buckets:   prometheus.DefBuckets,
		}),
		queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "queries_total",
			Help:      "Total number of store queries issued by stage",
		}, []string{"stage"}),
	}

	for _, c := range []prometheus.Collector{
		m.cacheHits, m.cacheMisses, m.cacheSets, m.cacheDeletes,
		m.cacheSize, m.resolutions, m.duration, m.queries,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) recordHit() {
	if m != nil {
		m.cacheHits.Inc()
	}
}

func (m *Metrics) recordMiss() {
	if m != nil {
		m.cacheMisses.Inc()
	}
}

func (m *Metrics) recordSet(size int) {
	if m != nil {
		m.cacheSets.Inc()
		m.cacheSize.Set(float64(size))
	}
}

func (m *Metrics) recordDelete(size int) {
	if m != nil {
		m.cacheDeletes.Inc()
		m.cacheSize.Set(float64(size))
	}
}

func (m *Metrics) countQuery(stage string) {
	if m != nil {
		m.queries.WithLabelValues(stage).Inc()
	}
}

func (m *Metrics) observeResolve(result string, d time.Duration) {
	if m != nil {
		m.resolutions.WithLabelValues(result).Inc()
		m.duration.Observe(d.Seconds())
	}
}

func resultOf(err error) string {
	switch {
	case errors.Is(err, ErrNoMetadata):
		return resultNoMetadata
	case errors.Is(err, ErrCompilation):
		return resultCompilation
	case errors.Is(err, store.ErrQuery):
		return resultQuery
	default:
		return resultOther
	}
}
