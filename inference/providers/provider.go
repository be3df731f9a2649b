// Package providers - ONNX Runtime sessions and execution providers.
package providers

import (
	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
)

// ProviderBackend represents different ONNX Runtime execution providers.
type ProviderBackend string

// ProviderOptions is a marker interface for provider-specific config.
type ProviderOptions interface {
	isProviderOptions()
}

// ExecutionProvider represents the contract that all execution providers must implement.
type ExecutionProvider interface {
	// Backend identifies the provider.
	Backend() ProviderBackend
	// Options returns the provider-specific configuration.
	Options() ProviderOptions
	// Apply appends the provider to the session options.
	Apply(options *ort.SessionOptions) error
}

// ErrUnsupportedBackend is returned for backends with no registered provider.
var ErrUnsupportedBackend = errors.New("unsupported provider backend")

// Backends lists every supported provider backend.
var Backends = []ProviderBackend{
	CPUProviderBackend,
	CUDAProviderBackend,
	CoreMLProviderBackend,
	OpenVINOProviderBackend,
}

// NewProvider creates a new provider based on the type of its options.
//
// Arguments:
//   - options: The options for the provider. Nil selects the CPU provider.
//
// Returns:
//   - ExecutionProvider: The new provider.
//   - error: An error if the options type has no provider.
func NewProvider(options ProviderOptions) (ExecutionProvider, error) {
	switch opts := options.(type) {
	case nil:
		return NewCPUProvider(CPUOptions{}), nil
	case CPUOptions:
		return NewCPUProvider(opts), nil
	case CoreMLOptions:
		return NewCoreMLProvider(opts), nil
	case OpenVINOOptions:
		return NewOpenVINOProvider(opts), nil
	case CUDAOptions:
		return NewCUDAProvider(opts), nil
	default:
		return nil, errors.Wrapf(ErrUnsupportedBackend, "options type %T", opts)
	}
}
