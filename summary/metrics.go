package summary

import "github.com/prometheus/client_golang/prometheus"

// Tier identifies which cache tier satisfied a summary read.
type Tier string

const (
	TierMemory      Tier = "memory"
	TierDistributed Tier = "distributed"
	TierFile        Tier = "file"
	TierMiss        Tier = "miss"
)

// Metrics holds the observability counters of the cache. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	lookups *prometheus.CounterVec
}

// NewMetrics creates the counters and registers them with reg when it is
// non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "calsummary",
			Name:      "summary_lookups_total",
			Help:      "Calendar summary lookups by serving tier.",
		}, []string{"tier"}),
	}
	if reg != nil {
		reg.MustRegister(m.lookups)
	}
	return m
}

func (m *Metrics) recordLookup(tier Tier) {
	if m == nil {
		return
	}
	m.lookups.WithLabelValues(string(tier)).Inc()
}

// LookupCounter exposes the per-tier counter, mainly for tests and for
// wiring into custom collectors.
func (m *Metrics) LookupCounter(tier Tier) prometheus.Counter {
	return m.lookups.WithLabelValues(string(tier))
}
