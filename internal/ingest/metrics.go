package ingest

import "github.com/prometheus/client_golang/prometheus"

type metrics struct {
	requestLatency *prometheus.HistogramVec
	requestErrors  *prometheus.CounterVec
}

func initMetrics(register bool) *metrics {
	m := &metrics{
		requestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "flakeid",
			Subsystem: "ingest",
			Name:      "request_latency_seconds",
			Help:      "Time to read a request, obtain ids and write the response",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1},
		}, []string{"transport"}),
		requestErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flakeid",
			Subsystem: "ingest",
			Name:      "errors_total",
			Help:      "Total number of failed requests",
		}, []string{"transport"}),
	}

	if register {
		prometheus.MustRegister(
			m.requestLatency,
			m.requestErrors,
		)
	}
	return m
}

func (m *metrics) incError(transport string) {
	m.requestErrors.WithLabelValues(transport).Inc()
}
