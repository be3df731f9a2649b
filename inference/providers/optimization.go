package providers

import (
	"runtime"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
)

// GraphOptimization names an ONNX Runtime graph optimization level.
type GraphOptimization string

const (
	// GraphOptimizationDisabled disables all graph rewrites.
	GraphOptimizationDisabled GraphOptimization = "disabled"
	// GraphOptimizationBasic applies semantics-preserving rewrites such as constant folding.
	GraphOptimizationBasic GraphOptimization = "basic"
	// GraphOptimizationExtended adds node fusions.
	GraphOptimizationExtended GraphOptimization = "extended"
	// GraphOptimizationAll adds layout optimizations.
	GraphOptimizationAll GraphOptimization = "all"
)

var graphOptimizationLevels = map[GraphOptimization]ort.GraphOptimizationLevel{
	GraphOptimizationDisabled: ort.GraphOptimizationLevelDisableAll,
	GraphOptimizationBasic:    ort.GraphOptimizationLevelEnableBasic,
	GraphOptimizationExtended: ort.GraphOptimizationLevelEnableExtended,
	GraphOptimizationAll:      ort.GraphOptimizationLevelEnableAll,
}

// OptimizationConfig contains ONNX Runtime optimization settings.
type OptimizationConfig struct {
	// GraphOptimization controls the level of graph optimization.
	GraphOptimization GraphOptimization `json:"graph_optimization" yaml:"graph_optimization"`
	// ParallelExecution runs independent graph nodes concurrently.
	ParallelExecution bool `json:"parallel_execution" yaml:"parallel_execution"`
	// IntraOpNumThreads sets threads for parallelizing ops. Zero lets the runtime decide.
	IntraOpNumThreads int `json:"intra_op_num_threads" yaml:"intra_op_num_threads"`
	// InterOpNumThreads sets threads for parallelizing independent ops. Zero lets the runtime
	// decide.
	InterOpNumThreads int `json:"inter_op_num_threads" yaml:"inter_op_num_threads"`
}

// DefaultOptimizationConfig returns a production-ready optimization configuration.
//
// Detection runs one image at a time, so node-level parallelism is preferred over
// inter-op parallelism.
func DefaultOptimizationConfig() OptimizationConfig {
	return OptimizationConfig{
		GraphOptimization: GraphOptimizationExtended,
		ParallelExecution: false,
		IntraOpNumThreads: max(1, runtime.NumCPU()/2),
		InterOpNumThreads: 1,
	}
}

// Validate checks the optimization settings.
func (c OptimizationConfig) Validate() error {
	if _, ok := graphOptimizationLevels[c.GraphOptimization]; !ok && c.GraphOptimization != "" {
		return errors.Errorf("unknown graph optimization level %q", c.GraphOptimization)
	}
	if c.IntraOpNumThreads < 0 || c.InterOpNumThreads < 0 {
		return errors.New("thread counts must not be negative")
	}
	return nil
}

// ExecutionMode returns the native execution mode.
func (c OptimizationConfig) ExecutionMode() ort.ExecutionMode {
	var mode ort.ExecutionMode = ort.ExecutionModeSequential
	if c.ParallelExecution {
		mode = ort.ExecutionModeParallel
	}
	return mode
}

// Level returns the native graph optimization level.
func (c OptimizationConfig) Level() ort.GraphOptimizationLevel {
	if level, ok := graphOptimizationLevels[c.GraphOptimization]; ok {
		return level
	}
	return ort.GraphOptimizationLevelEnableExtended
}

// OptimizedSessionOptions creates session options configured for the given provider.
//
// Arguments:
//   - config: Optimization configuration.
//   - provider: The execution provider to append.
//
// Returns:
//   - *ort.SessionOptions: The options. The caller must Destroy them.
//   - error: An error if the runtime rejects a setting or the provider is unavailable.
//
// @example
// options, err := OptimizedSessionOptions(config, provider)
//
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// defer options.Destroy()
func OptimizedSessionOptions(config OptimizationConfig, provider ExecutionProvider) (*ort.SessionOptions, error) {
	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create session options")
	}

	steps := []func() error{
		func() error { return options.SetGraphOptimizationLevel(config.Level()) },
		func() error { return options.SetExecutionMode(config.ExecutionMode()) },
		func() error { return options.SetIntraOpNumThreads(config.IntraOpNumThreads) },
		func() error { return options.SetInterOpNumThreads(config.InterOpNumThreads) },
		func() error { return provider.Apply(options) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			options.Destroy()
			return nil, errors.Wrapf(err, "failed to configure %s session", provider.Backend())
		}
	}

	return options, nil
}
