package providers

import (
	"github.com/pkg/errors"
)

// Config selects and configures the execution provider for detection sessions.
type Config struct {
	// Backend specifies the backend to use.
	Backend ProviderBackend `json:"backend" yaml:"backend"`
	// CUDA options, used when Backend is cuda.
	CUDA CUDAOptions `json:"cuda" yaml:"cuda"`
	// CoreML options, used when Backend is coreml.
	CoreML CoreMLOptions `json:"coreml" yaml:"coreml"`
	// OpenVINO options, used when Backend is openvino.
	OpenVINO OpenVINOOptions `json:"openvino" yaml:"openvino"`
	// Optimization controls graph optimization and threading.
	Optimization OptimizationConfig `json:"optimization" yaml:"optimization"`
	// SharedLibraryPath points at the ONNX Runtime shared library. Empty uses
	// GetSharedLibPath.
	SharedLibraryPath string `json:"shared_library_path" yaml:"shared_library_path"`
}

// DefaultConfig returns a CPU configuration with default optimization settings.
//
// Returns:
//   - Config: The default configuration.
//
// @example
// config := DefaultConfig()
// config.Backend = CUDAProviderBackend
// loader, err := NewLoader(config, logger)
func DefaultConfig() Config {
	return Config{
		Backend:      CPUProviderBackend,
		Optimization: DefaultOptimizationConfig(),
	}
}

// Validate checks the backend and optimization settings.
//
// Returns:
//   - error: An error describing the first invalid field, nil otherwise.
func (c Config) Validate() error {
	if _, err := c.ProviderOptions(); err != nil {
		return err
	}
	if _, err := c.CUDA.ProviderOptions(); c.Backend == CUDAProviderBackend && err != nil {
		return err
	}
	return c.Optimization.Validate()
}

// ProviderOptions returns the options of the selected backend.
//
// Returns:
//   - ProviderOptions: The backend's options, ready for NewProvider.
//   - error: An error if the backend is not supported.
func (c Config) ProviderOptions() (ProviderOptions, error) {
	switch c.Backend {
	case CPUProviderBackend, "":
		return CPUOptions{}, nil
	case CUDAProviderBackend:
		return c.CUDA, nil
	case CoreMLProviderBackend:
		return c.CoreML, nil
	case OpenVINOProviderBackend:
		return c.OpenVINO, nil
	default:
		return nil, errors.Wrapf(ErrUnsupportedBackend, "backend %q", c.Backend)
	}
}
