// Package model - Contract shared by the detection model architectures.
package model

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-objectdetection/inference"
	"github.com/nvr-ai/go-objectdetection/models/labels"
	"github.com/nvr-ai/go-objectdetection/models/postprocess"
	"github.com/nvr-ai/go-objectdetection/models/preprocess"
)

// Family is the label family a model's class indices refer to.
type Family string

const (
	// FamilyYOLO indexes the zero-based 80-class COCO list.
	FamilyYOLO Family = "yolo"
	// FamilyTorchvision indexes the 91-id torchvision COCO categories.
	FamilyTorchvision Family = "torchvision"
)

// Labels returns the label set for the family.
func (f Family) Labels() *labels.Set {
	if f == FamilyTorchvision {
		return labels.TorchvisionCOCO
	}
	return labels.COCO
}

// Name is the unique identifier of a model.
type Name string

const (
	// NameRetinaNet is the name of the RetinaNet model.
	NameRetinaNet Name = "retinanet"
	// NameYOLOv3 is the name of the YOLOv3 model.
	NameYOLOv3 Name = "yolov3"
	// NameTinyYOLOv3 is the name of the Tiny-YOLOv3 model.
	NameTinyYOLOv3 Name = "tinyyolov3"
)

// Names lists every supported model in a stable order.
var Names = []Name{NameRetinaNet, NameYOLOv3, NameTinyYOLOv3}

// ParseName converts a user-supplied model name, ignoring case and separators
// ("YOLOv3", "tiny-yolov3", "tiny_yolo_v3").
//
// Arguments:
//   - s: The name to parse.
//
// Returns:
//   - Name: The matching model name.
//   - error: An error if no model matches.
func ParseName(s string) (Name, error) {
	key := strings.Map(func(r rune) rune {
		switch r {
		case '-', '_', ' ':
			return -1
		}
		return r
	}, strings.ToLower(s))
	for _, n := range Names {
		if string(n) == key {
			return n, nil
		}
	}
	return "", errors.Errorf("unknown model name %q", s)
}

// Options describes how to feed and decode a model.
type Options struct {
	// Name is the architecture identifier.
	Name Name `json:"name" yaml:"name"`
	// Family selects the label set.
	Family Family `json:"family" yaml:"family"`
	// Path is the location of the ONNX weights.
	Path string `json:"path" yaml:"path"`
	// Inputs are the expected graph inputs, in feed order.
	Inputs []inference.TensorSpec `json:"inputs" yaml:"inputs"`
	// Outputs are the expected graph outputs, in fetch order.
	Outputs []inference.TensorSpec `json:"outputs" yaml:"outputs"`
	// Preprocess configures image to tensor conversion.
	Preprocess preprocess.Config `json:"preprocess" yaml:"preprocess"`
	// NMS is the default suppression applied by the decoder. Nil means the graph already
	// suppresses overlapping boxes.
	NMS *postprocess.NMSConfig `json:"nms" yaml:"nms"`
}

// InputNames returns the graph input names in feed order.
func (o Options) InputNames() []string {
	return specNames(o.Inputs)
}

// OutputNames returns the graph output names in fetch order.
func (o Options) OutputNames() []string {
	return specNames(o.Outputs)
}

func specNames(specs []inference.TensorSpec) []string {
	names := make([]string, len(specs))
	for i, s := range specs {
		names[i] = s.Name
	}
	return names
}

// Model is an architecture's tensor contract and output decoder.
type Model interface {
	// Options returns the model's tensor contract and defaults.
	Options() Options
	// Labels returns the label set the decoded class indices refer to.
	Labels() *labels.Set
	// PostProcess decodes raw outputs into detections in model input coordinates, sorted by
	// descending score.
	PostProcess(outputs inference.Outputs, cfg postprocess.Config) ([]postprocess.Result, error)
}

// NewModelArgs is the arguments for creating a new model.
type NewModelArgs struct {
	Name Name                   `json:"name" yaml:"name"`
	Path string                 `json:"path" yaml:"path"`
	NMS  *postprocess.NMSConfig `json:"nms" yaml:"nms"`
	// InputSize overrides the square model input size when the weights were exported at a
	// different resolution. Zero keeps the architecture default.
	InputSize int `json:"input_size" yaml:"input_size"`
}

// ErrUnexpectedOutput is returned when a decoder receives tensors that do not match the
// model's output contract.
var ErrUnexpectedOutput = errors.New("unexpected model output")
