package detection

import (
	"github.com/pkg/errors"

	"github.com/nvr-ai/go-objectdetection/images"
	"github.com/nvr-ai/go-objectdetection/inference"
)

var (
	// ErrModelTypeNotSet is returned by LoadModel when no architecture was selected.
	ErrModelTypeNotSet = errors.New("model type not set")
	// ErrInvalidModelPath is returned by LoadModel when the weights path is missing, a directory
	// or an empty file.
	ErrInvalidModelPath = errors.New("invalid model path")
	// ErrIncompatibleModel is returned by LoadModel when the weights do not match the selected
	// architecture.
	ErrIncompatibleModel = inference.ErrIncompatibleModel
	// ErrModelNotLoaded is returned by DetectObjectsFromImage before LoadModel succeeded.
	ErrModelNotLoaded = errors.New("model not loaded")
	// ErrUnknownObject is returned by CustomObjects for a name the model cannot emit.
	ErrUnknownObject = errors.New("unknown object name")
	// ErrInvalidInput is returned when the input cannot be decoded into an image.
	ErrInvalidInput = images.ErrInvalidInput
	// ErrMissingOutputPath is returned when file output needs a path that was not given.
	ErrMissingOutputPath = errors.New("output image path required")
	// ErrInvalidArgs is returned for out of range detection arguments.
	ErrInvalidArgs = errors.New("invalid detection arguments")
)
