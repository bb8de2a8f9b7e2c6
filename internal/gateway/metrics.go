package gateway

import "github.com/prometheus/client_golang/prometheus"

// Result labels besides the rejection codes.
const (
	resultProcessed  = "processed"
	resultInvalid    = "invalid_topic"
	resultOverloaded = "overloaded"
)

// Metrics holds the gateway collectors. Methods are safe on a nil receiver.
type Metrics struct {
	events   *prometheus.CounterVec
	rejected *prometheus.CounterVec
	inFlight prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sensorgw",
			Subsystem: "gateway",
			Name:      "events_total",
			Help:      "Total number of ingest events by result",
		}, []string{"result"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sensorgw",
			Subsystem: "gateway",
			Name:      "rejected_values_total",
			Help:      "Total number of attribute values dropped during processing",
		}, []string{"attribute"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "sensorgw",
			Subsystem: "gateway",
			Name:      "events_in_flight",
			Help:      "Number of ingest events currently being processed",
		}),
	}

	for _, c := range []prometheus.Collector{m.events, m.rejected, m.inFlight} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) countEvent(result string) {
	if m != nil {
		m.events.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) countRejected(attribute string) {
	if m != nil {
		m.rejected.WithLabelValues(attribute).Inc()
	}
}

func (m *Metrics) track(delta float64) {
	if m != nil {
		m.inFlight.Add(delta)
	}
}
