// Package metrics provides Prometheus instrumentation for the egress API
// (spec.md section 6): a counter of operations by kind and outcome, and a
// histogram of rasterize/graph-build/escape-route latencies.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Operation names used as the "operation" label value.
const (
	OpProcessFile          = "process_file"
	OpUpdateCell           = "update_cell"
	OpBatchUpdateCells     = "batch_update_cells"
	OpApplyWallBuffer      = "apply_wall_buffer"
	OpDetectExits          = "detect_exits"
	OpUpdateSpaces         = "update_spaces"
	OpCreateGraph          = "create_graph"
	OpGetStairConnections  = "get_stair_connections"
	OpCalculateEscapeRoute = "calculate_escape_route"
)

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Stage names for StageDuration.
const (
	StageRasterize    = "rasterize"
	StageGraphBuild   = "graph_build"
	StageEscapeRoute  = "escape_route"
)

// Collector holds the egress API's Prometheus metrics.
type Collector struct {
	operationsTotal *prometheus.CounterVec
	stageDuration   *prometheus.HistogramVec
}

var (
	defaultOnce      sync.Once
	defaultCollector *Collector
)

// NewCollector returns the process-wide Collector. The first call creates
// the egress API's metric collectors and registers them on the default
// Prometheus registry; later calls return that same Collector.
func NewCollector() *Collector {
	defaultOnce.Do(func() { defaultCollector = newCollector() })
	return defaultCollector
}

func newCollector() *Collector {
	return &Collector{
		operationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "egress",
				Subsystem: "api",
				Name:      "operations_total",
				Help:      "Total number of egress operations by kind and outcome.",
			},
			[]string{"operation", "outcome"},
		),
		stageDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "egress",
				Subsystem: "api",
				Name:      "stage_duration_seconds",
				Help:      "Duration of rasterize/graph-build/escape-route stages.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"stage"},
		),
	}
}

// ObserveOperation records one completed operation.
func (c *Collector) ObserveOperation(operation, outcome string) {
	c.operationsTotal.WithLabelValues(operation, outcome).Inc()
}

// ObserveStage records how long a named stage took.
func (c *Collector) ObserveStage(stage string, d time.Duration) {
	c.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}
