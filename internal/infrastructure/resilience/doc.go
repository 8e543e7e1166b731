// Package resilience provides a small circuit breaker for calls to
// external services such as the plugin catalog.
package resilience
