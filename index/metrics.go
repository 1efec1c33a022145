package index

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type refreshMetrics struct {
	refreshes prometheus.Counter
	failures  prometheus.Counter
	duration  prometheus.Histogram
	indexes   prometheus.Gauge
}

func newRefreshMetrics(reg prometheus.Registerer) *refreshMetrics {
	factory := promauto.With(reg)
	return &refreshMetrics{
		refreshes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "fieldkv",
			Subsystem: "index_refresher",
			Name:      "refreshes_total",
		}),
		failures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "fieldkv",
			Subsystem: "index_refresher",
			Name:      "refresh_failures_total",
		}),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "fieldkv",
			Subsystem: "index_refresher",
			Name:      "refresh_duration_seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
		indexes: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "fieldkv",
			Subsystem: "index_refresher",
			Name:      "catalog_indexes",
		}),
	}
}
