// Package tracing correlates request logs through per-request ids.
package tracing
