// Package detection - Object detection over pretrained RetinaNet, YOLOv3 and Tiny-YOLOv3 networks.
package detection

import (
	"os"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/nvr-ai/go-objectdetection/inference"
	"github.com/nvr-ai/go-objectdetection/inference/providers"
	"github.com/nvr-ai/go-objectdetection/models"
	"github.com/nvr-ai/go-objectdetection/models/labels"
	"github.com/nvr-ai/go-objectdetection/models/model"
	"github.com/nvr-ai/go-objectdetection/models/postprocess"
	"github.com/nvr-ai/go-objectdetection/models/preprocess"
)

// Loader opens an inference session for a model's weights and tensor contract.
type Loader interface {
	Load(opts model.Options) (inference.Session, error)
}

// Options configures a Detector.
type Options struct {
	// Loader opens sessions. Nil uses the ONNX Runtime CPU provider.
	Loader Loader
	// Logger receives load and detection events. Nil disables logging.
	Logger *zap.Logger
	// NMS overrides the architecture's default suppression.
	NMS *postprocess.NMSConfig
	// InputSize overrides the square network input size. Zero keeps the architecture default.
	InputSize int
}

// Detector wraps one pretrained detection network.
//
// Select an architecture, point it at weights and call LoadModel once. After that the detector
// is safe for concurrent use; calls are serialized.
type Detector struct {
	mu     sync.Mutex
	loader Loader
	logger *zap.Logger

	nms       *postprocess.NMSConfig
	inputSize int

	name model.Name
	path string

	model   model.Model
	pre     *preprocess.Preprocessor
	session inference.Session
}

// NewDetector creates a detector with no model selected.
//
// Arguments:
//   - opts: The session loader, logger and decoder overrides.
//
// Returns:
//   - *Detector: The detector.
//   - error: An error if the default loader cannot be created.
//
// @example
//
//	d, err := NewDetector(Options{Logger: logger})
//	if err != nil {
//	    return err
//	}
//	d.SetModelTypeAsYOLOv3()
//	d.SetModelPath("yolov3.onnx")
//	if err := d.LoadModel(); err != nil {
//	    return err
//	}
//	defer d.Close()
func NewDetector(opts Options) (*Detector, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	loader := opts.Loader
	if loader == nil {
		l, err := providers.NewLoader(providers.DefaultConfig(), logger)
		if err != nil {
			return nil, errors.Wrap(err, "creating default loader")
		}
		loader = l
	}
	return &Detector{
		loader:    loader,
		logger:    logger,
		nms:       opts.NMS,
		inputSize: opts.InputSize,
	}, nil
}

// SetModelTypeAsRetinaNet selects the RetinaNet architecture.
func (d *Detector) SetModelTypeAsRetinaNet() {
	d.setModelType(model.NameRetinaNet)
}

// SetModelTypeAsYOLOv3 selects the YOLOv3 architecture.
func (d *Detector) SetModelTypeAsYOLOv3() {
	d.setModelType(model.NameYOLOv3)
}

// SetModelTypeAsTinyYOLOv3 selects the Tiny-YOLOv3 architecture.
func (d *Detector) SetModelTypeAsTinyYOLOv3() {
	d.setModelType(model.NameTinyYOLOv3)
}

// SetModelType selects an architecture by name.
func (d *Detector) SetModelType(name model.Name) {
	d.setModelType(name)
}

func (d *Detector) setModelType(name model.Name) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.session != nil {
		d.logger.Warn("model already loaded, ignoring model type", zap.String("model_type", string(name)))
		return
	}
	d.name = name
}

// SetModelPath sets the location of the weights. The path is checked by LoadModel.
func (d *Detector) SetModelPath(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.session != nil {
		d.logger.Warn("model already loaded, ignoring model path", zap.String("path", path))
		return
	}
	d.path = path
}

// ModelType returns the selected architecture, or "" if none was selected.
func (d *Detector) ModelType() model.Name {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.name
}

// LoadModel opens the selected weights. Calling it again after a successful load does nothing.
//
// Returns:
//   - error: ErrModelTypeNotSet, ErrInvalidModelPath or ErrIncompatibleModel (all wrapped), or
//     a runtime error from the loader.
func (d *Detector) LoadModel() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.session != nil {
		return nil
	}
	if d.name == "" {
		return ErrModelTypeNotSet
	}
	if err := checkModelPath(d.path); err != nil {
		return err
	}

	m, err := models.NewModel(model.NewModelArgs{
		Name:      d.name,
		Path:      d.path,
		NMS:       d.nms,
		InputSize: d.inputSize,
	})
	if err != nil {
		return err
	}
	pre, err := preprocess.NewPreprocessor(m.Options().Preprocess, d.logger)
	if err != nil {
		return err
	}
	session, err := d.loader.Load(m.Options())
	if err != nil {
		return errors.Wrapf(err, "loading %s model from %s", d.name, d.path)
	}

	d.model = m
	d.pre = pre
	d.session = session

	d.logger.Info("model loaded",
		zap.String("model_type", string(d.name)),
		zap.String("path", d.path),
	)
	return nil
}

// checkModelPath requires path to name a non-empty regular file.
func checkModelPath(path string) error {
	if path == "" {
		return errors.Wrap(ErrInvalidModelPath, "path not set")
	}
	info, err := os.Stat(path)
	if err != nil {
		return errors.Wrapf(ErrInvalidModelPath, "%s: %v", path, err)
	}
	if info.IsDir() {
		return errors.Wrapf(ErrInvalidModelPath, "%s is a directory", path)
	}
	if info.Size() == 0 {
		return errors.Wrapf(ErrInvalidModelPath, "%s is empty", path)
	}
	return nil
}

// CustomObjects builds a filter of class names. Names are checked against the loaded model's
// labels, or the COCO labels shared by every supported architecture before loading.
//
// Arguments:
//   - names: Class names in display ("cell phone") or keyword ("cell_phone") form.
//
// Returns:
//   - CustomObjects: The filter to pass in DetectArgs.
//   - error: An error wrapping ErrUnknownObject.
func (d *Detector) CustomObjects(names ...string) (CustomObjects, error) {
	d.mu.Lock()
	set := labels.COCO
	if d.model != nil {
		set = d.model.Labels()
	}
	d.mu.Unlock()
	return NewCustomObjects(set, names...)
}

// Close releases the loaded model. LoadModel may be called again afterwards.
func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.session == nil {
		return nil
	}
	err := d.session.Close()
	d.session = nil
	d.model = nil
	d.pre = nil
	return err
}
