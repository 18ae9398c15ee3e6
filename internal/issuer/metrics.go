package issuer

import "github.com/prometheus/client_golang/prometheus"

type metrics struct {
	idsIssued         prometheus.Counter
	generateLatency   prometheus.Histogram
	generateErrors    prometheus.Counter
	sequenceExhausted prometheus.Counter
	clockRegressions  prometheus.Counter
	auditBatchLatency prometheus.Histogram
}

func initMetrics(register bool) *metrics {
	m := &metrics{
		idsIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "flakeid",
			Subsystem: "issuer",
			Name:      "ids_issued_total",
			Help:      "Total number of ids handed out",
		}),
		generateLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "flakeid",
			Subsystem: "issuer",
			Name:      "generate_latency_seconds",
			Help:      "Time to generate all ids of one request, including sequence exhaustion waits",
			Buckets:   []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01},
		}),
		generateErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "flakeid",
			Subsystem: "issuer",
			Name:      "generate_errors_total",
			Help:      "Total number of requests that failed to generate ids",
		}),
		sequenceExhausted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "flakeid",
			Subsystem: "issuer",
			Name:      "sequence_exhausted_total",
			Help:      "Number of times the per-millisecond sequence ran out and generation waited for the clock",
		}),
		clockRegressions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "flakeid",
			Subsystem: "issuer",
			Name:      "clock_regressions_total",
			Help:      "Number of clock readings earlier than the last issued millisecond",
		}),
		auditBatchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "flakeid",
			Subsystem: "output",
			Name:      "audit_batch_latency_seconds",
			Help:      "Latency of delivering an entire audit batch",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 5.0},
		}),
	}

	if register {
		prometheus.MustRegister(
			m.idsIssued,
			m.generateLatency,
			m.generateErrors,
			m.sequenceExhausted,
			m.clockRegressions,
			m.auditBatchLatency,
		)
	}
	return m
}

func (m *metrics) auditBatchTimer() (stop func()) {
	timer := prometheus.NewTimer(m.auditBatchLatency)
	stop = func() {
		timer.ObserveDuration()
	}
	return
}
