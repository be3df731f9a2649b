package providers

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
	"go.uber.org/zap"

	"github.com/nvr-ai/go-objectdetection/inference"
	"github.com/nvr-ai/go-objectdetection/models/model"
)

// Session wraps an ONNX Runtime session with per-run tensor management and profiling.
//
// Input and output tensors are allocated for each run and destroyed before Run returns, so
// outputs with data-dependent shapes (e.g. a variable number of detections) are supported.
type Session struct {
	session *ort.DynamicAdvancedSession
	inputs  []inference.TensorSpec
	outputs []inference.TensorSpec
	backend ProviderBackend
	logger  *zap.Logger

	// mu serializes runs and guards the counters below.
	mu             sync.Mutex
	inferenceCount int64
	totalTime      float64
}

// NewSessionArgs represents the arguments for creating a new ONNX session.
type NewSessionArgs struct {
	// Model holds the weights path and the tensor contract; inputs are fed and outputs fetched
	// in the order it declares them.
	Model model.Options
	// Optimization controls graph optimization and threading.
	Optimization OptimizationConfig
	// Logger receives per-run debug output. Nil disables logging.
	Logger *zap.Logger
}

// NewSession creates a new ONNX Runtime session.
//
// The environment must already be initialized (see InitializeEnvironment).
//
// Order of operations:
//  1. Session options: graph optimization level, threading and execution mode.
//  2. Execution provider: appended to the options (e.g. CUDA, CoreML, OpenVINO).
//  3. Session creation: loads the model and binds the input and output names.
//
// Arguments:
//   - provider: The provider for the session.
//   - args: The arguments for the session.
//
// Returns:
//   - *Session: The runnable session.
//   - error: An error if the session creation fails.
func NewSession(provider ExecutionProvider, args NewSessionArgs) (*Session, error) {
	if len(args.Model.Inputs) == 0 || len(args.Model.Outputs) == 0 {
		return nil, errors.New("session needs at least one input and one output")
	}

	options, err := OptimizedSessionOptions(args.Optimization, provider)
	if err != nil {
		return nil, err
	}
	defer options.Destroy()

	session, err := ort.NewDynamicAdvancedSession(
		args.Model.Path,
		args.Model.InputNames(),
		args.Model.OutputNames(),
		options,
	)
	if err != nil {
		return nil, errors.Wrapf(err, "error creating ORT session for %s", args.Model.Path)
	}

	logger := args.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Session{
		session: session,
		inputs:  args.Model.Inputs,
		outputs: args.Model.Outputs,
		backend: provider.Backend(),
		logger:  logger,
	}, nil
}

// Run executes the model on the given inputs.
//
// Arguments:
//   - ctx: Checked before and after the blocking native call.
//   - inputs: One float32 tensor per declared input, in feed order.
//
// Returns:
//   - inference.Outputs: Copies of every declared output, keyed by name.
//   - error: An error if the inputs are malformed, the run fails or ctx is done.
func (s *Session) Run(ctx context.Context, inputs ...inference.Tensor) (inference.Outputs, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(inputs) != len(s.inputs) {
		return nil, errors.Errorf("expected %d inputs, got %d", len(s.inputs), len(inputs))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == nil {
		return nil, errors.New("session is closed")
	}

	in := make([]ort.Value, 0, len(inputs))
	defer func() {
		for _, v := range in {
			v.Destroy()
		}
	}()
	for i, t := range inputs {
		if err := t.Validate(); err != nil {
			return nil, err
		}
		if t.DataType() != inference.DataTypeFloat32 {
			return nil, errors.Errorf("input %q must be float32", s.inputs[i].Name)
		}
		v, err := ort.NewTensor(ort.NewShape(t.Shape...), t.Float32)
		if err != nil {
			return nil, errors.Wrapf(err, "error creating input tensor %q", s.inputs[i].Name)
		}
		in = append(in, v)
	}

	// Nil entries are allocated by the runtime to the shapes the graph produces.
	out := make([]ort.Value, len(s.outputs))
	defer func() {
		for _, v := range out {
			if v != nil {
				v.Destroy()
			}
		}
	}()

	start := time.Now()
	err := s.session.Run(in, out)
	s.record(time.Since(start))
	if err != nil {
		return nil, errors.Wrap(err, "error running ORT session")
	}

	results := make(inference.Outputs, len(out))
	for i, v := range out {
		name := s.outputs[i].Name
		t, err := toTensor(name, v)
		if err != nil {
			return nil, err
		}
		results[name] = t
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// record adds one run to the profiling counters. Callers hold s.mu.
func (s *Session) record(d time.Duration) {
	ms := float64(d.Nanoseconds()) / 1e6
	s.inferenceCount++
	s.totalTime += ms
	s.logger.Debug("inference",
		zap.String("backend", string(s.backend)),
		zap.Float64("duration_ms", ms),
		zap.Int64("count", s.inferenceCount),
		zap.Float64("average_ms", s.totalTime/float64(s.inferenceCount)),
	)
}

// Metrics returns the cumulative performance statistics.
func (s *Session) Metrics() inference.Metrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return inference.Metrics{InferenceCount: s.inferenceCount, TotalTimeMS: s.totalTime}
}

// ResetMetrics clears all performance counters.
func (s *Session) ResetMetrics() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inferenceCount = 0
	s.totalTime = 0
}

// Backend returns the execution provider the session runs on.
func (s *Session) Backend() ProviderBackend {
	return s.backend
}

// Close releases the resources associated with the Session.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == nil {
		return nil
	}
	err := s.session.Destroy()
	s.session = nil
	if err != nil {
		return errors.Wrap(err, "error destroying ORT session")
	}
	return nil
}

// toTensor copies a native output into a backend-neutral tensor.
func toTensor(name string, v ort.Value) (inference.Tensor, error) {
	switch t := v.(type) {
	case *ort.Tensor[float32]:
		return inference.Tensor{
			Name:    name,
			Shape:   append([]int64(nil), t.GetShape()...),
			Float32: append([]float32(nil), t.GetData()...),
		}, nil
	case *ort.Tensor[int64]:
		return inference.Tensor{
			Name:  name,
			Shape: append([]int64(nil), t.GetShape()...),
			Int64: append([]int64{}, t.GetData()...),
		}, nil
	case nil:
		return inference.Tensor{}, errors.Errorf("output %q was not produced", name)
	default:
		return inference.Tensor{}, errors.Errorf("output %q has unsupported type %T", name, v)
	}
}
