package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusCollector mirrors every run into Prometheus counters while still
// returning the per-run SolveMetric.
type PrometheusCollector struct {
	collector

	registry  *prometheus.Registry
	steps     *prometheus.CounterVec
	terminals prometheus.Counter
	runs      *prometheus.CounterVec
	duration  *prometheus.HistogramVec
}

func NewPrometheusCollector(namespace string) *PrometheusCollector {
	registry := prometheus.NewRegistry()

	steps := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evaluation_steps_total",
			Help:      "Total number of internal nodes evaluated",
		},
		[]string{"kind"},
	)
	terminals := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "terminal_assignments_total",
			Help:      "Total number of terminal payouts assigned during evaluation",
		},
	)
	runs := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "solve_runs_total",
			Help:      "Total number of step and auto runs by outcome",
		},
		[]string{"kind", "outcome"},
	)
	duration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "solve_run_duration_seconds",
			Help:      "Duration of step and auto runs in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	registry.MustRegister(steps, terminals, runs, duration)

	return &PrometheusCollector{
		registry:  registry,
		steps:     steps,
		terminals: terminals,
		runs:      runs,
		duration:  duration,
	}
}

func (p *PrometheusCollector) Registry() *prometheus.Registry {
	return p.registry
}

func (p *PrometheusCollector) AddStep() {
	p.collector.AddStep()
	p.steps.WithLabelValues(string(p.kind)).Inc()
}

func (p *PrometheusCollector) AddTerminal() {
	p.collector.AddTerminal()
	p.terminals.Inc()
}

func (p *PrometheusCollector) Complete() SolveMetric {
	metric := p.collector.Complete()
	p.runs.WithLabelValues(string(metric.Kind), outcome(metric)).Inc()
	p.duration.WithLabelValues(string(metric.Kind)).Observe(metric.Duration.Seconds())
	return metric
}

func outcome(metric SolveMetric) string {
	switch {
	case metric.Cancelled:
		return "cancelled"
	case metric.Solved:
		return "solved"
	default:
		return "partial"
	}
}
