// Package metrics exposes the Prometheus instrumentation for server mode.
// Collectors register themselves on the default registry at init, so
// importing a package that increments them is enough to make them scrape.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// IngestedLines counts lines accepted per listener ("tcp", "udp").
	IngestedLines = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scrubgate_ingested_lines_total",
		Help: "Lines accepted into the ring buffer, by listener.",
	}, []string{"source"})

	// IngestedBytes counts payload bytes accepted per listener.
	IngestedBytes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scrubgate_ingested_bytes_total",
		Help: "Bytes accepted into the ring buffer, by listener.",
	}, []string{"source"})

	// DroppedLines counts lines rejected because the ring was full.
	DroppedLines = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scrubgate_dropped_lines_total",
		Help: "Lines dropped on a full ring buffer.",
	})

	// ProcessedLines counts lines that left the chain bound for a sink.
	ProcessedLines = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scrubgate_processed_lines_total",
		Help: "Lines rewritten and queued for output.",
	})

	// EmittedBytes counts payload bytes flushed to sinks.
	EmittedBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scrubgate_emitted_bytes_total",
		Help: "Bytes written out after rewriting.",
	})

	// SkippedLines counts lines vetoed by a chain stage.
	SkippedLines = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scrubgate_skipped_lines_total",
		Help: "Lines discarded by filters or skip rules.",
	})

	// ProcessErrors counts chain failures.
	ProcessErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scrubgate_process_errors_total",
		Help: "Lines the processor chain failed on.",
	})

	// WriteErrors counts failed sink writes and flushes.
	WriteErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scrubgate_write_errors_total",
		Help: "Batches a sink rejected.",
	})

	// ConfigReloads counts control-plane manifest applications.
	ConfigReloads = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scrubgate_config_reloads_total",
		Help: "Successfully applied control-plane manifests.",
	})
)

// RegisterQueueDepth exposes the ring buffer fill level through the given
// sampler. Call once after the ring exists.
func RegisterQueueDepth(sample func() float64) {
	promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "scrubgate_queue_depth",
		Help: "Lines currently waiting in the ring buffer.",
	}, sample)
}

// Handler serves the scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
