package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CatalogQueries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_queries_total",
			Help: "Catalogue queries served, by view",
		},
		[]string{"view"},
	)

	CatalogQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "catalog_query_duration_seconds",
			Help:    "Time spent filtering, ranking and laying out a query",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
		[]string{"view"},
	)

	CatalogResults = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "catalog_results",
			Help:    "Listings matched per query",
			Buckets: []float64{0, 1, 5, 10, 30, 100, 300, 1000, 3000},
		},
		[]string{"view"},
	)

	SnapshotLoads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snapshot_loads_total",
			Help: "Snapshot reads by serving layer and result",
		},
		[]string{"layer", "result"},
	)

	SnapshotRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snapshot_refreshes_total",
			Help: "Snapshot reloads from the source by result",
		},
		[]string{"result"},
	)

	GeoIPLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geoip_lookups_total",
			Help: "Geo-IP lookups by result",
		},
		[]string{"result"},
	)
)
