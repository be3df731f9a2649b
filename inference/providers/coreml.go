package providers

import (
	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
)

const (
	// CoreMLProviderBackend uses Apple CoreML for macOS/iOS acceleration.
	CoreMLProviderBackend ProviderBackend = "coreml"
)

// CoreML EP flags, from coreml_provider_factory.h.
const (
	coreMLFlagUseCPUOnly                = 0x001
	coreMLFlagEnableOnSubgraph          = 0x002
	coreMLFlagOnlyEnableDeviceWithANE   = 0x004
	coreMLFlagOnlyAllowStaticInputShape = 0x008
	coreMLFlagCreateMLProgram           = 0x010
)

// CoreMLOptions contains arguments for the CoreML provider.
// See: https://onnxruntime.ai/docs/execution-providers/CoreML-ExecutionProvider.html
type CoreMLOptions struct {
	// Create an MLProgram format model. Requires Core ML 5 or later (iOS 15+ or macOS 12+).
	// When false a NeuralNetwork format model is created.
	MLProgram bool `json:"ml_program" yaml:"ml_program"`
	// Limit CoreML to running on CPU only.
	CPUOnly bool `json:"cpu_only" yaml:"cpu_only"`
	// Only enable the CoreML EP on Apple devices with a compatible Apple Neural Engine (ANE).
	RequireANE bool `json:"require_ane" yaml:"require_ane"`
	// Only allow the CoreML EP to take nodes with inputs that have static shapes.
	RequireStaticInputShapes bool `json:"require_static_input_shapes" yaml:"require_static_input_shapes"`
	// Enable CoreML EP to run on a subgraph in the body of a control flow operator (i.e. a Loop,
	// Scan or If operator).
	EnableOnSubgraphs bool `json:"enable_on_subgraphs" yaml:"enable_on_subgraphs"`
}

func (CoreMLOptions) isProviderOptions() {}

// Flags packs the options into the CoreML EP bit field.
func (o CoreMLOptions) Flags() uint32 {
	var flags uint32
	if o.CPUOnly {
		flags |= coreMLFlagUseCPUOnly
	}
	if o.EnableOnSubgraphs {
		flags |= coreMLFlagEnableOnSubgraph
	}
	if o.RequireANE {
		flags |= coreMLFlagOnlyEnableDeviceWithANE
	}
	if o.RequireStaticInputShapes {
		flags |= coreMLFlagOnlyAllowStaticInputShape
	}
	if o.MLProgram {
		flags |= coreMLFlagCreateMLProgram
	}
	return flags
}

// CoreMLProvider implements the ExecutionProvider interface.
type CoreMLProvider struct {
	options CoreMLOptions
}

// NewCoreMLProvider creates a new CoreML provider.
func NewCoreMLProvider(options CoreMLOptions) *CoreMLProvider {
	return &CoreMLProvider{
		options: options,
	}
}

// Backend returns the backend of the CoreML provider.
func (p *CoreMLProvider) Backend() ProviderBackend {
	return CoreMLProviderBackend
}

// Options returns the options of the CoreML provider.
func (p *CoreMLProvider) Options() ProviderOptions {
	return p.options
}

// Apply appends the CoreML provider to the session options.
func (p *CoreMLProvider) Apply(options *ort.SessionOptions) error {
	if err := options.AppendExecutionProviderCoreML(p.options.Flags()); err != nil {
		return errors.Wrap(err, "error enabling CoreML")
	}
	return nil
}
