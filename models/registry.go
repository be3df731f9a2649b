// Package models - registry for models.
package models

import (
	"github.com/pkg/errors"

	"github.com/nvr-ai/go-objectdetection/models/model"
	"github.com/nvr-ai/go-objectdetection/models/retinanet"
	"github.com/nvr-ai/go-objectdetection/models/tinyyolov3"
	"github.com/nvr-ai/go-objectdetection/models/yolov3"
)

// ErrUnsupportedModel is returned for model names with no registered architecture.
var ErrUnsupportedModel = errors.New("unsupported model")

// NewModel creates a new detection model instance based on the specified model type.
//
// This factory function is the single entry point for model creation, routing requests to the
// architecture-specific constructors.
//
// Arguments:
//   - args: Configuration parameters specifying the model type and location.
//
// Returns:
//   - model.Model: A fully configured model instance implementing the Model interface.
//   - error: An error if the model type is unsupported.
//
// Example:
//
// ```go
//
//	detectionModel, err := NewModel(model.NewModelArgs{
//	    Name: model.NameYOLOv3,
//	    Path: "/models/yolov3.onnx",
//	})
//	if err != nil {
//	    log.Fatalf("Failed to create detection model: %v", err)
//	}
//
// ```
func NewModel(args model.NewModelArgs) (model.Model, error) {
	var (
		m   model.Model
		err error
	)
	switch args.Name {
	case model.NameRetinaNet:
		m, err = retinanet.NewModel(args)
	case model.NameYOLOv3:
		m, err = yolov3.NewModel(args)
	case model.NameTinyYOLOv3:
		m, err = tinyyolov3.NewModel(args)
	default:
		return nil, errors.Wrapf(ErrUnsupportedModel, "model name %q", args.Name)
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}
