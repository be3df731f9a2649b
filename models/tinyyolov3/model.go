// Package tinyyolov3 - Tiny-YOLOv3 model with objectness-scored detection rows.
package tinyyolov3

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
	InputSize = 416
	// InputName is the graph input node.
	InputName = "input"
	// OutputName is the graph output node, shaped [1, candidates, 5+classes].
	OutputName = "output"

	// cx, cy, w, h, objectness
	rowHeader = 5
)

// TinyYOLOv3 is the instance of the Tiny-YOLOv3 model.
type TinyYOLOv3 struct {
	options model.Options
}

// DefaultOptions returns the tensor contract of a Tiny-YOLOv3 ONNX export.
func DefaultOptions() model.Options {
	return model.Options{
		Name:   model.NameTinyYOLOv3,
		Family: model.FamilyYOLO,
		Inputs: []inference.TensorSpec{model.SquareInput(InputName, InputSize)},
		Outputs: []inference.TensorSpec{{
			Name:     OutputName,
			Shape:    []int64{1, inference.Dynamic, rowHeader + int64(len(labels.COCO.Classes))},
			DataType: inference.DataTypeFloat32,
		}},
		Preprocess: preprocess.Config{
			InputWidth:      InputSize,
			InputHeight:     InputSize,
			Normalization:   preprocess.NormalizeZeroToOne,
			ColorMode:       preprocess.ColorModeRGB,
			KeepAspectRatio: true,
			LetterboxColor:  color.NRGBA{R: 128, G: 128, B: 128, A: 255},
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
//   - *TinyYOLOv3: The model.
//   - error: Always nil; kept for parity with the other architectures.
func NewModel(args model.NewModelArgs) (*TinyYOLOv3, error) {
	return &TinyYOLOv3{options: model.ApplyArgs(DefaultOptions(), args)}, nil
}

// Options returns the options for the Tiny-YOLOv3 model.
func (m *TinyYOLOv3) Options() model.Options {
	return m.options
}

// Labels returns the 80-class COCO set.
func (m *TinyYOLOv3) Labels() *labels.Set {
	return m.options.Family.Labels()
}
