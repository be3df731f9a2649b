package model

import (
	"github.com/nvr-ai/go-objectdetection/inference"
	"github.com/nvr-ai/go-objectdetection/models/postprocess"
)

// SquareInput returns an NCHW float32 input spec of the given side length.
func SquareInput(name string, size int) inference.TensorSpec {
	return inference.TensorSpec{
		Name:     name,
		Shape:    []int64{1, 3, int64(size), int64(size)},
		DataType: inference.DataTypeFloat32,
	}
}

// ApplyArgs overlays user arguments on architecture defaults.
//
// Arguments:
//   - opts: The architecture defaults.
//   - args: The user-supplied arguments.
//
// Returns:
//   - Options: The merged options.
func ApplyArgs(opts Options, args NewModelArgs) Options {
	opts.Path = args.Path
	if args.NMS != nil {
		nms := *args.NMS
		opts.NMS = &nms
	}
	if args.InputSize > 0 {
		opts.Preprocess.InputWidth = args.InputSize
		opts.Preprocess.InputHeight = args.InputSize
		inputs := make([]inference.TensorSpec, len(opts.Inputs))
		for i, in := range opts.Inputs {
			inputs[i] = SquareInput(in.Name, args.InputSize)
		}
		opts.Inputs = inputs
	}
	return opts
}

// ResolveNMS picks the per-call suppression settings, falling back to the model default.
func ResolveNMS(cfg postprocess.Config, opts Options) *postprocess.NMSConfig {
	if cfg.NMS != nil {
		return cfg.NMS
	}
	return opts.NMS
}
