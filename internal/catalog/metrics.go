package catalog

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	snapshotApps = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "catalog_snapshot_apps",
		Help: "Number of apps in the current catalog snapshot.",
	})

	snapshotRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_snapshot_refresh_total",
			Help: "Catalog snapshot reloads by result.",
		},
		[]string{"result"},
	)

	rankingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "catalog_ranking_duration_seconds",
			Help:    "Time spent in a ranking operation over one snapshot.",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"operation"},
	)
)

// ObserveRanking starts timing a ranking operation; call the returned func
// when it completes.
//
//	defer catalog.ObserveRanking("search")()
func ObserveRanking(operation string) func() {
	start := time.Now()
	return func() {
		rankingDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}
}
