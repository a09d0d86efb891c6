package service

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the pipeline counters. All of them are cheap to bump on
// the hot path.
type Metrics struct {
	// Turns counts completed turns by category and outcome
	// (responded, rejected, loop_warning).
	Turns *prometheus.CounterVec

	// Violations counts guardrail violations by code.
	Violations *prometheus.CounterVec

	// ClassifierFallbacks counts router retry exhaustions. Wired into the
	// router at construction time.
	ClassifierFallbacks prometheus.Counter
}

// NewMetrics creates and registers the pipeline counters.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Turns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "helmsman",
			Name:      "turns_total",
			Help:      "Completed turns by category and outcome.",
		}, []string{"category", "outcome"}),
		Violations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "helmsman",
			Name:      "guardrail_violations_total",
			Help:      "Guardrail violations by code.",
		}, []string{"code"}),
		ClassifierFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "helmsman",
			Name:      "classifier_fallbacks_total",
			Help:      "Classification retry exhaustions resolved to DIRECT.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Turns, m.Violations, m.ClassifierFallbacks)
	}
	return m
}

func (m *Metrics) countTurn(category, outcome string) {
	if m == nil {
		return
	}
	m.Turns.WithLabelValues(category, outcome).Inc()
}

func (m *Metrics) countViolations(codes []string) {
	if m == nil {
		return
	}
	for _, code := range codes {
		m.Violations.WithLabelValues(code).Inc()
	}
}
