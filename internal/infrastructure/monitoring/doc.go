// Package monitoring provides Prometheus metrics for the plugin runtime.
//
// Counters and gauges cover HTTP traffic, plugin lifecycle transitions,
// event bus throughput, api surface usage and catalog downloads. A small
// mutex-guarded snapshot backs the JSON metrics endpoint so dashboards
// without a Prometheus scraper still get the headline numbers.
package monitoring
