// Package metrics defines the minimal observability surface the core depends
// on. Store and CLI code emit through Backend only; concrete backends
// (Datadog, or Nop for tests and library use) live in subpackages or here.
package metrics

// Labels are free-form metric dimensions (e.g. {"op": "bulk_load"}).
type Labels map[string]string

// Backend receives counters and histogram observations.
//
// Implementations must be safe for concurrent use. Unknown metric names may be
// ignored by a backend; emitting is always fire-and-forget and never returns
// an error to the caller.
type Backend interface {
	IncCounter(name string, delta float64, labels Labels)
	ObserveHistogram(name string, value float64, labels Labels)
}

// Metric names emitted by the store adapter.
const (
	// StoreOpsTotal counts adapter operations, labeled op + status.
	StoreOpsTotal = "store_ops_total"
	// StoreOpDurationSeconds observes per-operation wall time, labeled op.
	StoreOpDurationSeconds = "store_op_duration_seconds"
	// StoreRowsTotal counts rows written by bulk loads, labeled op.
	StoreRowsTotal = "store_rows_total"
)

// Nop discards everything. Useful as a default so callers never nil-check.
type Nop struct{}

func (Nop) IncCounter(string, float64, Labels)       {}
func (Nop) ObserveHistogram(string, float64, Labels) {}

var _ Backend = Nop{}
