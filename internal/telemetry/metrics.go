// Package telemetry provides application-level observability for the Application Catalog.
//
// # Prometheus Metrics Endpoint
//
// All metrics are registered against the default Prometheus registry and are
// automatically available on the side-channel HTTP server started by main.go:
//
//	GET http://<host>:<CATALOG_TELEMETRY_METRICS_PROMETHEUS_PORT>/metrics
//
// Default port: 9090.  The endpoint returns data in the Prometheus text exposition
// format and is intended to be scraped every 15–60 seconds.  It is NOT served by
// the Gin router, so it never competes with catalog traffic for handler time.
//
// # Metric Groups
//
//   - HTTP request counters and latency histograms (labelled by route template, not raw URL)
//   - Catalog entity row gauges (applications, attributes, organisations)
//   - Slug collision counter (how often the -N dedup loop had to probe)
//   - Hierarchy rebuild counter and duration histogram
//   - Redis list-cache hit/miss counters
//   - Audit shipper failure counter
//   - Database connection pool gauge (polled every 30 s)
//
// # Label Cardinality
//
// HTTP metrics use c.FullPath() (route template such as /application/:id/edit/)
// rather than the raw request URL to prevent unbounded label cardinality from
// user-supplied path segments such as record UUIDs.
package telemetry

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics — labelled by method, route template, and status code.
//
// HTTPRequestsTotal is a CounterVec with labels {method, path, status}.
// The path label holds the Gin route template (e.g. /application/:id/edit/),
// NOT the raw URL, to prevent unbounded cardinality.
//
// Example PromQL queries:
//   - Request rate (req/s, 5 m window):  rate(http_requests_total[5m])
//   - Error rate (%):                    sum(rate(http_requests_total{status=~"5.."}[5m])) / sum(rate(http_requests_total[5m])) * 100
//   - Requests by route:                 sum by (path) (rate(http_requests_total[5m]))
//
// HTTPRequestDuration is a HistogramVec with labels {method, path} and exponential-ish
// buckets from 5 ms to 30 s.  Use histogram_quantile to compute latency percentiles.
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed, by method, route template, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, by method and route template.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path"},
	)
)

// Catalog entity metrics.
//
// EntityRows is a GaugeVec with label {entity} ("applications", "attributes",
// "organisations") holding the current row count per table. It is refreshed by
// the tree maintenance job rather than per-request, so a brief lag after bulk
// writes is expected.
//
// SlugCollisionsTotal is a CounterVec with label {entity} incremented each time
// slug generation found the base slug taken and had to probe a -N suffix. A
// rising rate usually means users are creating many records with identical
// names and lookups by slug are getting less readable.
//
// Example PromQL queries:
//   - Catalog growth over a day:  delta(catalog_entity_rows[24h])
//   - Collision rate by entity:   rate(catalog_slug_collisions_total[1h])
var (
	EntityRows = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "catalog_entity_rows",
			Help: "Current number of rows per catalog entity table.",
		},
		[]string{"entity"},
	)

	SlugCollisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_slug_collisions_total",
			Help: "Total number of slug generations that required a -N suffix probe, by entity.",
		},
		[]string{"entity"},
	)
)

// Hierarchy metrics — recorded wherever a tree rebuild runs (structural writes
// and the background maintenance job).
//
// TreeRebuildsTotal is a CounterVec with label {entity}; one increment per full
// path/depth/bounds recomputation of that entity's tree.
//
// TreeRebuildDuration is a HistogramVec with label {entity} using the default
// Prometheus buckets. Rebuilds walk every row of the table, so duration grows
// with catalog size; watch p95 as the trees grow.
//
// Example PromQL queries:
//   - p95 rebuild duration:  histogram_quantile(0.95, sum by (entity, le) (rate(catalog_tree_rebuild_duration_seconds_bucket[1h])))
//   - Rebuild frequency:     rate(catalog_tree_rebuilds_total[1h])
var (
	TreeRebuildsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_tree_rebuilds_total",
			Help: "Total number of hierarchy rebuilds, by entity.",
		},
		[]string{"entity"},
	)

	TreeRebuildDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "catalog_tree_rebuild_duration_seconds",
			Help:    "Duration of a full hierarchy rebuild, by entity.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"entity"},
	)
)

// Redis list-cache metrics. Plain counters; the cache currently stores only the
// application list page, so no key label is needed.
//
// Example PromQL queries:
//   - Hit ratio: rate(catalog_cache_hits_total[5m]) / (rate(catalog_cache_hits_total[5m]) + rate(catalog_cache_misses_total[5m]))
var (
	CacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_cache_hits_total",
			Help: "Total number of list-cache hits.",
		},
	)

	CacheMissesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_cache_misses_total",
			Help: "Total number of list-cache misses.",
		},
	)
)

// AuditShipFailuresTotal is a plain Counter incremented once per audit entry
// that could not be delivered to a configured shipper (file write error,
// webhook non-2xx, timeout). Audit failures never fail the request itself, so
// this counter is the only signal that records are being dropped.
//
// Example PromQL queries:
//   - Alert expression:  increase(catalog_audit_ship_failures_total[15m]) > 0
var AuditShipFailuresTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "catalog_audit_ship_failures_total",
		Help: "Total number of audit log entries that failed to ship to a configured sink.",
	},
)

// DBOpenConnections is a Gauge that tracks the number of open connections currently
// held by the sql.DB connection pool.  It is sampled every 30 seconds by
// StartDBStatsCollector rather than per-request to avoid the overhead of sql.DB.Stats().
//
// Example PromQL queries:
//   - Pool utilisation (%): db_open_connections / <CATALOG_DATABASE_MAX_CONNECTIONS> * 100
//   - Alert on near-exhaustion: db_open_connections > 20  (for max_connections=25)
var DBOpenConnections = promauto.NewGauge(
	prometheus.GaugeOpts{
		Name: "db_open_connections",
		Help: "Current number of open database connections in the pool.",
	},
)

// StartDBStatsCollector launches a background goroutine that samples sql.DB connection
// pool statistics every 30 seconds and updates the DBOpenConnections gauge.
// The goroutine exits cleanly when the database becomes unreachable (db.Ping fails),
// which happens automatically when the application shuts down and defers db.Close().
//
// Call this once, immediately after db.Connect() succeeds in main.go:
//
//	telemetry.StartDBStatsCollector(database)
func StartDBStatsCollector(db *sql.DB) {
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			if err := db.Ping(); err != nil {
				slog.Warn("db stats collector: database unreachable, stopping collector", "error", err)
				return
			}
			DBOpenConnections.Set(float64(db.Stats().OpenConnections))
		}
	}()
}
