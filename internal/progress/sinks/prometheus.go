package sinks

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/fedistat/blockwatch/internal/progress"
)

// PrometheusSink exports crawl progress via Prometheus. It owns the probe
// outcome counters, the collected-rule counter, and the probe latency
// histogram.
type PrometheusSink struct {
	nodesProbed   *prometheus.CounterVec
	rulesTotal    prometheus.Counter
	probeDuration *prometheus.HistogramVec
}

// NewPrometheusSink registers the collectors against the provided registry.
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PrometheusSink{
		nodesProbed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "blockwatch_nodes_probed_total",
			Help: "Node probes partitioned by outcome (success or skip reason).",
		}, []string{"outcome"}),
		rulesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "blockwatch_rules_collected_total",
			Help: "Total block rules collected across runs.",
		}),
		probeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "blockwatch_probe_duration_seconds",
			Help:    "Probe wall time partitioned by outcome.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}, []string{"outcome"}),
	}
	for _, collector := range []prometheus.Collector{
		s.nodesProbed,
		s.rulesTotal,
		s.probeDuration,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register progress collector: %w", err)
		}
	}
	return s, nil
}

// Consume updates the collectors. Safe for concurrent use.
func (s *PrometheusSink) Consume(evt progress.Event) {
	outcome := evt.Outcome()
	s.nodesProbed.WithLabelValues(outcome).Inc()
	if evt.Rules > 0 {
		s.rulesTotal.Add(float64(evt.Rules))
	}
	if evt.Dur > 0 {
		s.probeDuration.WithLabelValues(outcome).Observe(evt.Dur.Seconds())
	}
}
