package providers

import (
	"fmt"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
)

const (
	// CUDAProviderBackend uses NVIDIA CUDA for inference optimization.
	CUDAProviderBackend ProviderBackend = "cuda"
)

// CUDAOptions contains arguments for the CUDA provider. Zero values keep the ONNX Runtime
// defaults.
//
// See:
// https://onnxruntime.ai/docs/execution-providers/CUDA-ExecutionProvider.html#configuration-options
type CUDAOptions struct {
	// The device ID.
	DeviceID int `json:"device_id" yaml:"device_id"`
	// The size limit of the device memory arena in bytes. This size limit is only for the execution
	// provider's arena. The total device memory usage may be higher.
	GPUMemLimit int64 `json:"gpu_mem_limit" yaml:"gpu_mem_limit"`
	// The strategy for extending the device memory arena.
	// 0: kNextPowerOfTwo - subsequent extensions extend by larger amounts (multiplied by powers of
	// two)
	// 1: kSameAsRequested - extend by the requested amount
	ArenaExtendStrategy int `json:"arena_extend_strategy" yaml:"arena_extend_strategy"`
	// The type of search done for cuDNN convolution algorithms.
	// 0: EXHAUSTIVE - expensive exhaustive benchmarking using cudnnFindConvolutionForwardAlgorithmEx
	// 1: HEURISTIC - lightweight heuristic based search using cudnnGetConvolutionForwardAlgorithm_v7
	// 2: DEFAULT - default algorithm using CUDNN_CONVOLUTION_FWD_ALGO_IMPLICIT_PRECOMP_GEMM
	CudnnConvAlgoSearch int `json:"cudnn_conv_algo_search" yaml:"cudnn_conv_algo_search"`
	// Whether to do copies in the default stream or use separate streams.
	DoCopyInDefaultStream bool `json:"do_copy_in_default_stream" yaml:"do_copy_in_default_stream"`
	// Check using CUDA Graphs in the CUDA EP for details on what this flag does.
	EnableCudaGraph bool `json:"enable_cuda_graph" yaml:"enable_cuda_graph"`
	// TF32 is a math mode available on NVIDIA GPUs since Ampere. It allows certain float32 matrix
	// multiplications and convolutions to run much faster on tensor cores with TensorFloat-32
	// reduced precision.
	UseTF32 bool `json:"use_tf32" yaml:"use_tf32"`
	// If this option is enabled, the execution provider prefers NHWC operators over NCHW.
	PreferNHWC bool `json:"prefer_nhwc" yaml:"prefer_nhwc"`
}

// isProviderOptions is a marker function to ensure the options are valid.
func (CUDAOptions) isProviderOptions() {}

var (
	arenaExtendStrategies = []string{"kNextPowerOfTwo", "kSameAsRequested"}
	cudnnConvAlgoSearches = []string{"EXHAUSTIVE", "HEURISTIC", "DEFAULT"}
)

// ProviderOptions renders the options as ONNX Runtime key/value pairs.
//
// Returns:
//   - map[string]string: The native option map.
//   - error: An error if an enumerated option is out of range.
func (o CUDAOptions) ProviderOptions() (map[string]string, error) {
	if o.ArenaExtendStrategy < 0 || o.ArenaExtendStrategy >= len(arenaExtendStrategies) {
		return nil, errors.Errorf("invalid arena_extend_strategy %d", o.ArenaExtendStrategy)
	}
	if o.CudnnConvAlgoSearch < 0 || o.CudnnConvAlgoSearch >= len(cudnnConvAlgoSearches) {
		return nil, errors.Errorf("invalid cudnn_conv_algo_search %d", o.CudnnConvAlgoSearch)
	}

	opts := map[string]string{
		"device_id":                 fmt.Sprintf("%d", o.DeviceID),
		"arena_extend_strategy":     arenaExtendStrategies[o.ArenaExtendStrategy],
		"cudnn_conv_algo_search":    cudnnConvAlgoSearches[o.CudnnConvAlgoSearch],
		"do_copy_in_default_stream": boolFlag(o.DoCopyInDefaultStream),
		"enable_cuda_graph":         boolFlag(o.EnableCudaGraph),
		"use_tf32":                  boolFlag(o.UseTF32),
		"prefer_nhwc":               boolFlag(o.PreferNHWC),
	}
	if o.GPUMemLimit > 0 {
		opts["gpu_mem_limit"] = fmt.Sprintf("%d", o.GPUMemLimit)
	}
	return opts, nil
}

func boolFlag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// CUDAProvider implements the ExecutionProvider interface.
type CUDAProvider struct {
	options CUDAOptions
}

// NewCUDAProvider creates a new CUDA provider.
func NewCUDAProvider(args CUDAOptions) *CUDAProvider {
	return &CUDAProvider{
		options: args,
	}
}

// Backend returns the backend of the CUDA provider.
func (p *CUDAProvider) Backend() ProviderBackend {
	return CUDAProviderBackend
}

// Options returns the options of the CUDA provider.
func (p *CUDAProvider) Options() ProviderOptions {
	return p.options
}

// Apply appends the CUDA provider to the session options.
//
// Arguments:
//   - options: The session options to extend.
//
// Returns:
//   - error: An error if the runtime was built without CUDA or the options are rejected.
func (p *CUDAProvider) Apply(options *ort.SessionOptions) error {
	kv, err := p.options.ProviderOptions()
	if err != nil {
		return err
	}
	cuda, err := ort.NewCUDAProviderOptions()
	if err != nil {
		return errors.Wrap(err, "error creating CUDA provider options")
	}
	defer cuda.Destroy()

	if err := cuda.Update(kv); err != nil {
		return errors.Wrap(err, "error updating CUDA provider options")
	}
	if err := options.AppendExecutionProviderCUDA(cuda); err != nil {
		return errors.Wrap(err, "error enabling CUDA")
	}
	return nil
}
