// Package yolov3 - YOLOv3 model exported with a single anchor-free detection head.
package yolov3

import (
	"image/color"

	"github.com/nvr-ai/go-objectdetection/inference"
	"github.com/nvr-ai/go-objectdetection/models/labels"
	"github.com/nvr-ai/go-objectdetection/models/model"
	"github.com/nvr-ai/go-objectdetection/models/postprocess"
	"github.com/nvr-ai/go-objectdetection/models/preprocess"
)

const (
	// InputSize is the default square input resolution.
	InputSize = 640
	// InputName is the graph input node.
	InputName = "images"
	// OutputName is the graph output node, shaped [1, 4+classes, candidates].
	OutputName = "output0"

	boxFields = 4
)

// YOLOv3 is the instance of the YOLOv3 model.
type YOLOv3 struct {
	options model.Options
}

// DefaultOptions returns the tensor contract of a YOLOv3 ONNX export.
func DefaultOptions() model.Options {
	return model.Options{
		Name:    model.NameYOLOv3,
		Family:  model.FamilyYOLO,
		Inputs:  []inference.TensorSpec{model.SquareInput(InputName, InputSize)},
		Outputs: []inference.TensorSpec{{
			Name:     OutputName,
			Shape:    []int64{1, boxFields + int64(len(labels.COCO.Classes)), inference.Dynamic},
			DataType: inference.DataTypeFloat32,
		}},
		Preprocess: preprocess.Config{
			InputWidth:      InputSize,
			InputHeight:     InputSize,
			Normalization:   preprocess.NormalizeZeroToOne,
			ColorMode:       preprocess.ColorModeRGB,
			KeepAspectRatio: true,
			LetterboxColor:  color.NRGBA{R: 114, G: 114, B: 114, A: 255},
		},
		NMS: postprocess.DefaultNMSConfig(),
	}
}

// NewModel creates a new model.
//
// Arguments:
//   - args: The arguments for creating a new model.
//
// Returns:
//   - *YOLOv3: The model.
//   - error: Always nil; kept for parity with the other architectures.
func NewModel(args model.NewModelArgs) (*YOLOv3, error) {
	return &YOLOv3{options: model.ApplyArgs(DefaultOptions(), args)}, nil
}

// Options returns the options for the YOLOv3 model.
func (m *YOLOv3) Options() model.Options {
	return m.options
}

// Labels returns the 80-class COCO set.
func (m *YOLOv3) Labels() *labels.Set {
	return m.options.Family.Labels()
}
