// Package config - YAML configuration for the detection command.
package config

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/nvr-ai/go-objectdetection/inference/providers"
	"github.com/nvr-ai/go-objectdetection/logging"
	"github.com/nvr-ai/go-objectdetection/models/model"
	"github.com/nvr-ai/go-objectdetection/models/postprocess"
)

// Config is the complete configuration of a detection run.
type Config struct {
	Model     ModelConfig      `json:"model" yaml:"model"`
	Detection DetectionConfig  `json:"detection" yaml:"detection"`
	Provider  providers.Config `json:"provider" yaml:"provider"`
	Log       logging.Config   `json:"log" yaml:"log"`
}

// ModelConfig selects the network and its weights.
type ModelConfig struct {
	// Type is retinanet, yolov3 or tinyyolov3. Case and separators are ignored.
	Type string `json:"type" yaml:"type"`
	// Path is the ONNX weights file.
	Path string `json:"path" yaml:"path"`
	// InputSize overrides the square input size the weights were exported at. Zero keeps the
	// architecture default.
	InputSize int `json:"input_size" yaml:"input_size"`
}

// DetectionConfig holds the per-image detection settings.
type DetectionConfig struct {
	// MinimumPercentageProbability drops detections below this confidence, in [0, 100].
	MinimumPercentageProbability float64 `json:"minimum_percentage_probability" yaml:"minimum_percentage_probability"`
	// NMS overrides the architecture's default suppression.
	NMS *postprocess.NMSConfig `json:"nms,omitempty" yaml:"nms,omitempty"`
	// CustomObjects restricts the returned classes. Empty returns every class.
	CustomObjects []string `json:"custom_objects" yaml:"custom_objects"`
	// ExtractDetectedObjects writes a crop of every detection.
	ExtractDetectedObjects bool `json:"extract_detected_objects" yaml:"extract_detected_objects"`
	// DisplayPercentageProbability draws the confidence next to each box.
	DisplayPercentageProbability bool `json:"display_percentage_probability" yaml:"display_percentage_probability"`
	// DisplayObjectName draws the class name next to each box.
	DisplayObjectName bool `json:"display_object_name" yaml:"display_object_name"`
	// DisplayBox draws the bounding boxes.
	DisplayBox bool `json:"display_box" yaml:"display_box"`
}

// Default returns a configuration for YOLOv3 on the CPU with 50% confidence and every
// overlay element drawn. The model path is left empty.
func Default() Config {
	return Config{
		Model: ModelConfig{Type: string(model.NameYOLOv3)},
		Detection: DetectionConfig{
			MinimumPercentageProbability: 50,
			DisplayPercentageProbability: true,
			DisplayObjectName:            true,
			DisplayBox:                   true,
		},
		Provider: providers.DefaultConfig(),
		Log:      logging.DefaultConfig(),
	}
}

// Load reads a YAML file over the defaults and validates the result.
//
// Arguments:
//   - path: The YAML file.
//
// Returns:
//   - Config: The configuration.
//   - error: An error if the file cannot be read, parsed or validated.
//
// @example
//
//	cfg, err := config.Load("detect.yaml")
//	if err != nil {
//	    return err
//	}
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "reading config %s", path)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrap(err, "parsing config")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ModelName returns the parsed model type.
func (c Config) ModelName() (model.Name, error) {
	return model.ParseName(c.Model.Type)
}

// Validate checks every section. The model path is not checked here; the detector reports a
// missing or unusable file when it loads.
func (c Config) Validate() error {
	if _, err := c.ModelName(); err != nil {
		return errors.Wrap(err, "model.type")
	}
	if c.Model.InputSize < 0 || c.Model.InputSize%32 != 0 {
		return errors.Errorf("model.input_size %d must be a non-negative multiple of 32", c.Model.InputSize)
	}
	d := c.Detection
	if d.MinimumPercentageProbability < 0 || d.MinimumPercentageProbability > 100 {
		return errors.Errorf("detection.minimum_percentage_probability %v outside [0, 100]",
			d.MinimumPercentageProbability)
	}
	if d.NMS != nil && (d.NMS.IoUThreshold <= 0 || d.NMS.IoUThreshold > 1) {
		return errors.Errorf("detection.nms.iou_threshold %v outside (0, 1]", d.NMS.IoUThreshold)
	}
	if err := c.Provider.Validate(); err != nil {
		return errors.Wrap(err, "provider")
	}
	if err := c.Log.Validate(); err != nil {
		return errors.Wrap(err, "log")
	}
	return nil
}
