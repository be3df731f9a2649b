package providers

import (
	"fmt"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
)

const (
	// OpenVINOProviderBackend uses Intel OpenVINO for inference optimization.
	OpenVINOProviderBackend ProviderBackend = "openvino"
)

// Precision represents the inference precision requested from OpenVINO.
type Precision string

const (
	// PrecisionAccuracy executes the model with its default input precision.
	PrecisionAccuracy Precision = "ACCURACY"
	// PrecisionFP32 represents 32-bit floating point precision.
	PrecisionFP32 Precision = "FP32"
	// PrecisionFP16 represents 16-bit floating point precision.
	PrecisionFP16 Precision = "FP16"
)

// OpenVINOOptions contains arguments for the OpenVINO provider.
// See:
// https://onnxruntime.ai/docs/execution-providers/OpenVINO-ExecutionProvider.html#summary-of-options
type OpenVINOOptions struct {
	// Overrides the accelerator hardware type with these values at runtime (CPU, GPU, NPU). If this
	// option is not explicitly set, default hardware specified during build is used.
	DeviceType string `json:"device_type" yaml:"device_type"`
	// Supported precisions for HW {CPU:FP32, GPU:[FP32, FP16, ACCURACY], NPU:FP16}.
	Precision Precision `json:"precision" yaml:"precision"`
	// Overrides the accelerator default value of number of threads with this value at runtime.
	NumOfThreads int `json:"num_of_threads" yaml:"num_of_threads"`
	// Overrides the accelerator default streams with this value at runtime.
	NumStreams int `json:"num_streams" yaml:"num_streams"`
	// This option enables rewriting dynamic shaped models to static shape at runtime and execute.
	DisableDynamicShapes bool `json:"disable_dynamic_shapes" yaml:"disable_dynamic_shapes"`
	// Directory for compiled blob caching.
	CacheDir string `json:"cache_dir" yaml:"cache_dir"`
}

// isProviderOptions is a marker function to ensure the options are valid.
func (OpenVINOOptions) isProviderOptions() {}

// ProviderOptions renders the set options as ONNX Runtime key/value pairs.
func (o OpenVINOOptions) ProviderOptions() map[string]string {
	opts := map[string]string{}
	if o.DeviceType != "" {
		opts["device_type"] = o.DeviceType
	}
	if o.Precision != "" {
		opts["precision"] = string(o.Precision)
	}
	if o.NumOfThreads > 0 {
		opts["num_of_threads"] = fmt.Sprintf("%d", o.NumOfThreads)
	}
	if o.NumStreams > 0 {
		opts["num_streams"] = fmt.Sprintf("%d", o.NumStreams)
	}
	if o.DisableDynamicShapes {
		opts["disable_dynamic_shapes"] = "true"
	}
	if o.CacheDir != "" {
		opts["cache_dir"] = o.CacheDir
	}
	return opts
}

// OpenVINOProvider implements the ExecutionProvider interface.
type OpenVINOProvider struct {
	options OpenVINOOptions
}

// NewOpenVINOProvider creates a new OpenVINO provider.
func NewOpenVINOProvider(args OpenVINOOptions) *OpenVINOProvider {
	return &OpenVINOProvider{options: args}
}

// Backend returns the backend of the OpenVINO provider.
func (p *OpenVINOProvider) Backend() ProviderBackend {
	return OpenVINOProviderBackend
}

// Options returns the options of the OpenVINO provider.
func (p *OpenVINOProvider) Options() ProviderOptions {
	return p.options
}

// Apply appends the OpenVINO provider to the session options.
func (p *OpenVINOProvider) Apply(options *ort.SessionOptions) error {
	if err := options.AppendExecutionProviderOpenVINO(p.options.ProviderOptions()); err != nil {
		return errors.Wrap(err, "error enabling OpenVINO")
	}
	return nil
}
