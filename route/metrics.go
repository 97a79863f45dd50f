package route

import (
	"github.com/prometheus/client_golang/prometheus"

	pgroute "github.com/pgstack/go-pgroute"
)

// Metrics counts routing outcomes. All methods are safe on a nil receiver
// so instrumentation stays optional.
type Metrics struct {
	reads                 *prometheus.CounterVec
	writes                *prometheus.CounterVec
	positionCheckFailures prometheus.Counter
}

func NewMetrics() *Metrics {
	return &Metrics{
		reads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pgroute",
			Name:      "reads_total",
			Help:      "Reads routed, by strategy and target role.",
		}, []string{"strategy", "role"}),
		writes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pgroute",
			Name:      "writes_total",
			Help:      "Writes routed to the primary, by strategy.",
		}, []string{"strategy"}),
		positionCheckFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pgroute",
			Name:      "position_check_failures_total",
			Help:      "Replay position reports that failed and were treated as not caught up.",
		}),
	}
}

// Register registers the collectors with reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, collector := range []prometheus.Collector{m.reads, m.writes, m.positionCheckFailures} {
		if err := reg.Register(collector); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ReadRouted(strategy string, role pgroute.Role) {
	if m == nil {
		return
	}
	m.reads.WithLabelValues(strategy, role.String()).Inc()
}

func (m *Metrics) WriteRouted(strategy string) {
	if m == nil {
		return
	}
	m.writes.WithLabelValues(strategy).Inc()
}

func (m *Metrics) PositionCheckFailed() {
	if m == nil {
		return
	}
	m.positionCheckFailures.Inc()
}
