package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the plugin runtime
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Plugin lifecycle metrics
	PluginsInstalled prometheus.Gauge
	PluginsActive    prometheus.Gauge
	Installs         prometheus.Counter
	Activations      *prometheus.CounterVec
	ActivateDuration prometheus.Histogram
	PluginErrors     *prometheus.CounterVec

	// Event bus metrics
	EventsPublished *prometheus.CounterVec
	EventDeliveries prometheus.Counter

	// API surface metrics
	APICalls *prometheus.CounterVec

	// Store client metrics
	StoreDownloads prometheus.Counter
	StoreFailures  prometheus.Counter

	// WebSocket metrics
	WSConnections prometheus.Gauge

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time

	// Snapshot for JSON API
	snapshot Snapshot
	mu       sync.RWMutex
}

// Snapshot holds current metric values for the JSON endpoint
type Snapshot struct {
	TotalRequests    int64   `json:"total_requests"`
	TotalErrors      int64   `json:"total_errors"`
	TotalActivations int64   `json:"total_activations"`
	PluginErrors     int64   `json:"plugin_errors"`
	AvgRequestMs     float64 `json:"avg_request_ms"`
	UptimeSeconds    float64 `json:"uptime_seconds"`

	totalDuration float64
	requestCount  int64
}

// NewMetrics creates a metrics collector registered with the default registry
func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

// NewMetricsWith registers the collectors on the given registerer.
// Tests pass a fresh registry so managers can be built repeatedly.
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	m := &Metrics{
		startTime: time.Now(),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "worldloom_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "worldloom_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),

		PluginsInstalled: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "worldloom_plugins_installed",
				Help: "Number of plugins in the registry",
			},
		),
		PluginsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "worldloom_plugins_active",
				Help: "Number of active plugins",
			},
		),
		Installs: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "worldloom_plugin_installs_total",
				Help: "Total number of plugin installs",
			},
		),
		Activations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "worldloom_plugin_activations_total",
				Help: "Total number of plugin activation attempts",
			},
			[]string{"status"},
		),
		ActivateDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "worldloom_plugin_activate_duration_seconds",
				Help:    "Plugin activate() call duration in seconds",
				Buckets: []float64{.001, .01, .05, .1, .5, 1, 2.5, 5},
			},
		),
		PluginErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "worldloom_plugin_errors_total",
				Help: "Total plugin failures by taxonomy kind",
			},
			[]string{"kind"},
		),

		EventsPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "worldloom_events_published_total",
				Help: "Total events published on the bus",
			},
			[]string{"event"},
		),
		EventDeliveries: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "worldloom_event_deliveries_total",
				Help: "Total handler deliveries",
			},
		),

		APICalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "worldloom_plugin_api_calls_total",
				Help: "Total api surface calls by namespace",
			},
			[]string{"namespace", "status"},
		),

		StoreDownloads: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "worldloom_store_downloads_total",
				Help: "Total plugin bundles downloaded from the catalog",
			},
		),
		StoreFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "worldloom_store_failures_total",
				Help: "Total catalog failures",
			},
		),

		WSConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "worldloom_ws_connections",
				Help: "Number of active WebSocket connections",
			},
		),

		Uptime: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "worldloom_uptime_seconds",
				Help: "Backend uptime in seconds",
			},
		),
	}

	go m.updateUptime()
	return m
}

func (m *Metrics) updateUptime() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for range ticker.C {
		m.Uptime.Set(time.Since(m.startTime).Seconds())
	}
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())

	m.mu.Lock()
	m.snapshot.TotalRequests++
	m.snapshot.totalDuration += duration.Seconds()
	m.snapshot.requestCount++
	if len(status) > 0 && (status[0] == '4' || status[0] == '5') {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// RecordActivation records an activation attempt
func (m *Metrics) RecordActivation(status string, duration time.Duration) {
	m.Activations.WithLabelValues(status).Inc()
	m.ActivateDuration.Observe(duration.Seconds())

	m.mu.Lock()
	m.snapshot.TotalActivations++
	m.mu.Unlock()
}

// RecordPluginError records a classified plugin failure
func (m *Metrics) RecordPluginError(kind string) {
	m.PluginErrors.WithLabelValues(kind).Inc()

	m.mu.Lock()
	m.snapshot.PluginErrors++
	m.mu.Unlock()
}

// GetSnapshot returns current values for the JSON metrics endpoint
func (m *Metrics) GetSnapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := m.snapshot
	s.UptimeSeconds = time.Since(m.startTime).Seconds()
	if s.requestCount > 0 {
		s.AvgRequestMs = s.totalDuration / float64(s.requestCount) * 1000
	}
	return s
}
