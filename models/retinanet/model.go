// Package retinanet - RetinaNet (ResNet-50 FPN) model exported from torchvision.
package retinanet

import (
	"image/color"

	"github.com/nvr-ai/go-objectdetection/inference"
	"github.com/nvr-ai/go-objectdetection/models/labels"
	"github.com/nvr-ai/go-objectdetection/models/model"
	"github.com/nvr-ai/go-objectdetection/models/preprocess"
)

const (
	// InputSize is the default square input resolution.
	InputSize = 800
	// InputName is the graph input node.
	InputName = "images"
	// BoxesName is the [N, 4] x1, y1, x2, y2 output in input pixels.
	BoxesName = "boxes"
	// ScoresName is the [N] confidence output.
	ScoresName = "scores"
	// LabelsName is the [N] int64 torchvision category output.
	LabelsName = "labels"
)

// RetinaNet is the instance of the RetinaNet model.
type RetinaNet struct {
	options model.Options
}

// DefaultOptions returns the tensor contract of a torchvision RetinaNet ONNX export.
//
// The graph normalizes internally and already applies per-class NMS, so the decoder does not
// suppress again unless asked to.
func DefaultOptions() model.Options {
	return model.Options{
		Name:   model.NameRetinaNet,
		Family: model.FamilyTorchvision,
		Inputs: []inference.TensorSpec{model.SquareInput(InputName, InputSize)},
		Outputs: []inference.TensorSpec{
			{Name: BoxesName, Shape: []int64{inference.Dynamic, 4}, DataType: inference.DataTypeFloat32},
			{Name: ScoresName, Shape: []int64{inference.Dynamic}, DataType: inference.DataTypeFloat32},
			{Name: LabelsName, Shape: []int64{inference.Dynamic}, DataType: inference.DataTypeInt64},
		},
		Preprocess: preprocess.Config{
			InputWidth:      InputSize,
			InputHeight:     InputSize,
			Normalization:   preprocess.NormalizeZeroToOne,
			ColorMode:       preprocess.ColorModeRGB,
			KeepAspectRatio: true,
			LetterboxColor:  color.NRGBA{A: 255},
		},
	}
}

// NewModel creates a new model.
//
// Arguments:
//   - args: The arguments for creating a new model.
//
// Returns:
//   - *RetinaNet: The model.
//   - error: Always nil; kept for parity with the other architectures.
func NewModel(args model.NewModelArgs) (*RetinaNet, error) {
	return &RetinaNet{options: model.ApplyArgs(DefaultOptions(), args)}, nil
}

// Options returns the options for the RetinaNet model.
func (m *RetinaNet) Options() model.Options {
	return m.options
}

// Labels returns the 91-id torchvision COCO set.
func (m *RetinaNet) Labels() *labels.Set {
	return m.options.Family.Labels()
}
