// Package inference - Backend-neutral inference sessions.
package inference

import (
	"context"

	"github.com/pkg/errors"
)

// Session represents a loaded network that can run a forward pass.
//
// Implementations own their native resources and release them in Close. A Session is bound to
// one model file for its whole lifetime.
type Session interface {
	// Run executes the network on the given inputs and returns every declared output.
	Run(ctx context.Context, inputs ...Tensor) (Outputs, error)
	// Close releases the resources associated with the Session.
	Close() error
}

// Metrics holds cumulative inference statistics for a session.
type Metrics struct {
	// InferenceCount is the number of completed runs.
	InferenceCount int64 `json:"inference_count"`
	// TotalTimeMS is the accumulated run time in milliseconds.
	TotalTimeMS float64 `json:"total_time_ms"`
}

// AverageTimeMS returns the mean run time in milliseconds.
//
// Returns:
//   - float64: The mean latency, or 0 when no runs have completed.
func (m Metrics) AverageTimeMS() float64 {
	if m.InferenceCount == 0 {
		return 0
	}
	return m.TotalTimeMS / float64(m.InferenceCount)
}

// Profiler is implemented by sessions that track inference statistics.
type Profiler interface {
	Metrics() Metrics
}

// ErrIncompatibleModel is returned when a model file's inputs or outputs do not match the
// tensor contract of the selected architecture.
var ErrIncompatibleModel = errors.New("model is incompatible with the selected architecture")
