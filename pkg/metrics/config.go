// Package metrics provides Prometheus metrics for hld client calls.
package metrics

// Config holds configuration for the metrics module.
type Config struct {
	// Namespace is the prefix for all metrics (default: "hld")
	Namespace string

	// Subsystem groups the client metrics (default: "client")
	Subsystem string

	// DefaultLabels are attached to every metric as constant labels.
	DefaultLabels map[string]string

	// EnableProcessMetrics enables Go process metrics (CPU, memory, file descriptors)
	EnableProcessMetrics bool

	// EnableRuntimeMetrics enables Go runtime metrics
	EnableRuntimeMetrics bool

	// HistogramBuckets allows customizing default histogram buckets
	HistogramBuckets HistogramBucketsConfig
}

// HistogramBucketsConfig holds custom bucket configurations.
type HistogramBucketsConfig struct {
	// CallDuration buckets for call duration in seconds
	CallDuration []float64

	// ResponseSize buckets for response body size in bytes
	ResponseSize []float64
}

// DefaultConfig returns the default metrics configuration.
func DefaultConfig() Config {
	return Config{
		Namespace: "hld",
		Subsystem: "client",
		DefaultLabels: map[string]string{
			"version": "unknown",
		},
		HistogramBuckets: DefaultHistogramBuckets(),
	}
}

// DefaultHistogramBuckets returns the default histogram bucket configurations.
func DefaultHistogramBuckets() HistogramBucketsConfig {
	return HistogramBucketsConfig{
		CallDuration: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		ResponseSize: []float64{100, 1000, 10000, 100000, 1000000},
	}
}

// WithVersion sets the version label.
func (c Config) WithVersion(version string) Config {
	labels := make(map[string]string, len(c.DefaultLabels)+1)
	for k, v := range c.DefaultLabels {
		labels[k] = v
	}
	labels["version"] = version
	c.DefaultLabels = labels
	return c
}
