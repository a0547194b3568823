// Package metrics exposes resolver activity as Prometheus metrics.
//
// Metrics implements the resolver's observer interface. Every series is
// registered on a private registry under the "waypoint" namespace, along
// with the Go runtime and process collectors:
//
//	waypoint_strategy_attempts_total{strategy,outcome}
//	waypoint_strategy_attempt_duration_seconds{strategy}
//	waypoint_strategy_skips_total{strategy}
//	waypoint_resolutions_total{kind,status,strategy,cached}
//	waypoint_cache_entries, waypoint_cache_{hits,misses,shared}_total
//
// The cache series read cache.Stats at scrape time. Handler serves the
// registry in the Prometheus text format.
package metrics
