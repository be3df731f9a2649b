// Package preprocess - Image to tensor conversion for detection models.
package preprocess

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/nvr-ai/go-objectdetection/models/postprocess"
)

// NormalizationType defines how pixel values are normalized.
type NormalizationType int

const (
	// NormalizeNone keeps pixel values as 0-255.
	NormalizeNone NormalizationType = iota
	// NormalizeZeroToOne scales pixel values to [0, 1].
	NormalizeZeroToOne
	// NormalizeMinusOneToOne scales pixel values to [-1, 1].
	NormalizeMinusOneToOne
	// NormalizeStandardize applies mean and std normalization on 0-255 values.
	NormalizeStandardize
)

// ColorMode defines the channel order written to the tensor.
type ColorMode int

const (
	// ColorModeRGB is standard RGB color mode.
	ColorModeRGB ColorMode = iota
	// ColorModeBGR is BGR color mode (common for OpenCV models).
	ColorModeBGR
)

// Config defines preprocessing configuration for a specific model.
type Config struct {
	// InputWidth is the expected width of the model input.
	InputWidth int `json:"input_width" yaml:"input_width"`
	// InputHeight is the expected height of the model input.
	InputHeight int `json:"input_height" yaml:"input_height"`
	// Normalization defines how to normalize pixel values.
	Normalization NormalizationType `json:"normalization" yaml:"normalization"`
	// MeanValues for standardization, one per channel.
	MeanValues []float32 `json:"mean_values,omitempty" yaml:"mean_values,omitempty"`
	// StdValues for standardization, one per channel.
	StdValues []float32 `json:"std_values,omitempty" yaml:"std_values,omitempty"`
	// ColorMode defines the channel order.
	ColorMode ColorMode `json:"color_mode" yaml:"color_mode"`
	// KeepAspectRatio if true, maintains aspect ratio with letterboxing.
	KeepAspectRatio bool `json:"keep_aspect_ratio" yaml:"keep_aspect_ratio"`
	// LetterboxColor is the color used for letterbox padding.
	LetterboxColor color.NRGBA `json:"letterbox_color" yaml:"letterbox_color"`
}

// Validate checks the configuration for values the preprocessor cannot honour.
//
// Returns:
//   - error: An error describing the first invalid field, nil otherwise.
func (c Config) Validate() error {
	if c.InputWidth <= 0 || c.InputHeight <= 0 {
		return errors.Errorf("invalid input dimensions: %dx%d", c.InputWidth, c.InputHeight)
	}
	if c.Normalization == NormalizeStandardize {
		if len(c.MeanValues) != channels || len(c.StdValues) != channels {
			return errors.Errorf("standardization needs %d mean and std values", channels)
		}
		for _, s := range c.StdValues {
			if s == 0 {
				return errors.New("standardization std values must be non-zero")
			}
		}
	}
	return nil
}

// Shape returns the NCHW tensor shape produced for a single image.
func (c Config) Shape() []int64 {
	return []int64{1, channels, int64(c.InputHeight), int64(c.InputWidth)}
}

const channels = 3

// Result contains the preprocessed image data and metadata.
type Result struct {
	// Data is the preprocessed float32 tensor data in NCHW order.
	Data []float32
	// Shape is the tensor shape, [1, 3, H, W].
	Shape []int64
	// Geometry maps boxes between the original image and the model input.
	Geometry Geometry
}

// Preprocessor handles image preprocessing for ONNX models.
type Preprocessor struct {
	config Config
	logger *zap.Logger
}

// NewPreprocessor creates a new preprocessor with the given configuration.
//
// Arguments:
//   - config: The model-specific preprocessing configuration.
//   - logger: Debug output for each call. Nil disables logging.
//
// Returns:
//   - *Preprocessor: A configured Preprocessor instance.
//   - error: An error if the configuration is invalid.
//
// @example
//
//	pre, err := NewPreprocessor(Config{
//	    InputWidth:      640,
//	    InputHeight:     640,
//	    Normalization:   NormalizeZeroToOne,
//	    KeepAspectRatio: true,
//	    LetterboxColor:  color.NRGBA{114, 114, 114, 255},
//	}, logger)
func NewPreprocessor(config Config, logger *zap.Logger) (*Preprocessor, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid preprocess config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Preprocessor{config: config, logger: logger}, nil
}

// Config returns the preprocessing configuration.
func (p *Preprocessor) Config() Config {
	return p.config
}

// Preprocess resizes the image to the model input and converts it to a normalized tensor.
//
// Arguments:
//   - img: The input image.
//
// Returns:
//   - *Result: The tensor and the geometry needed to map boxes back.
//   - error: An error if the image is empty.
func (p *Preprocessor) Preprocess(img image.Image) (*Result, error) {
	if img == nil {
		return nil, errors.New("image is nil")
	}
	bounds := img.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return nil, errors.Errorf("invalid image dimensions: %dx%d", bounds.Dx(), bounds.Dy())
	}

	canvas, geom := p.letterbox(img)
	data := p.toTensor(canvas)

	p.logger.Debug("preprocessed image",
		zap.Int("width", geom.OriginalWidth),
		zap.Int("height", geom.OriginalHeight),
		zap.Float64("scale_x", geom.ScaleX),
		zap.Float64("scale_y", geom.ScaleY),
		zap.Int("pad_left", geom.PadLeft),
		zap.Int("pad_top", geom.PadTop),
	)

	return &Result{
		Data:     data,
		Shape:    p.config.Shape(),
		Geometry: geom,
	}, nil
}

// letterbox resizes the image onto a canvas of the model's input size.
func (p *Preprocessor) letterbox(img image.Image) (*image.NRGBA, Geometry) {
	srcWidth := img.Bounds().Dx()
	srcHeight := img.Bounds().Dy()
	dstWidth, dstHeight := p.config.InputWidth, p.config.InputHeight

	newWidth, newHeight := dstWidth, dstHeight
	if p.config.KeepAspectRatio {
		scale := min(float64(dstWidth)/float64(srcWidth), float64(dstHeight)/float64(srcHeight))
		newWidth = max(1, int(float64(srcWidth)*scale+0.5))
		newHeight = max(1, int(float64(srcHeight)*scale+0.5))
	}

	geom := Geometry{
		OriginalWidth:  srcWidth,
		OriginalHeight: srcHeight,
		ScaleX:         float64(newWidth) / float64(srcWidth),
		ScaleY:         float64(newHeight) / float64(srcHeight),
		PadLeft:        (dstWidth - newWidth) / 2,
		PadTop:         (dstHeight - newHeight) / 2,
	}

	resized := img
	if newWidth != srcWidth || newHeight != srcHeight {
		resized = resize.Resize(uint(newWidth), uint(newHeight), img, resize.Bilinear)
	}

	canvas := imaging.New(dstWidth, dstHeight, p.config.LetterboxColor)
	canvas = imaging.Paste(canvas, resized, image.Pt(geom.PadLeft, geom.PadTop))
	return canvas, geom
}

// toTensor converts the canvas to a normalized CHW float32 tensor.
func (p *Preprocessor) toTensor(canvas *image.NRGBA) []float32 {
	width := canvas.Bounds().Dx()
	height := canvas.Bounds().Dy()
	plane := width * height
	tensor := make([]float32, channels*plane)

	order := [channels]int{0, 1, 2}
	if p.config.ColorMode == ColorModeBGR {
		order = [channels]int{2, 1, 0}
	}

	for y := 0; y < height; y++ {
		row := canvas.Pix[y*canvas.Stride : y*canvas.Stride+width*4]
		for x := 0; x < width; x++ {
			px := row[x*4 : x*4+3]
			i := y*width + x
			for c := 0; c < channels; c++ {
				tensor[c*plane+i] = p.normalize(float32(px[order[c]]), c)
			}
		}
	}
	return tensor
}

func (p *Preprocessor) normalize(v float32, c int) float32 {
	switch p.config.Normalization {
	case NormalizeZeroToOne:
		return v / 255.0
	case NormalizeMinusOneToOne:
		return v/127.5 - 1.0
	case NormalizeStandardize:
		return (v - p.config.MeanValues[c]) / p.config.StdValues[c]
	default:
		return v
	}
}

// Geometry records how an image was placed on the model input canvas.
type Geometry struct {
	// OriginalWidth is the original image width before preprocessing.
	OriginalWidth int `json:"original_width"`
	// OriginalHeight is the original image height before preprocessing.
	OriginalHeight int `json:"original_height"`
	// ScaleX is the horizontal scaling factor applied.
	ScaleX float64 `json:"scale_x"`
	// ScaleY is the vertical scaling factor applied.
	ScaleY float64 `json:"scale_y"`
	// PadLeft is the left padding applied for letterboxing.
	PadLeft int `json:"pad_left"`
	// PadTop is the top padding applied for letterboxing.
	PadTop int `json:"pad_top"`
}

// Forward maps a box from original image coordinates to model input coordinates.
func (g Geometry) Forward(b postprocess.Box) postprocess.Box {
	sx, sy := float32(g.ScaleX), float32(g.ScaleY)
	px, py := float32(g.PadLeft), float32(g.PadTop)
	return postprocess.Box{
		X1: b.X1*sx + px,
		Y1: b.Y1*sy + py,
		X2: b.X2*sx + px,
		Y2: b.Y2*sy + py,
	}
}

// Restore maps a box from model input coordinates back to original image coordinates.
// The result is not clamped.
func (g Geometry) Restore(b postprocess.Box) postprocess.Box {
	sx, sy := float32(g.ScaleX), float32(g.ScaleY)
	px, py := float32(g.PadLeft), float32(g.PadTop)
	return postprocess.Box{
		X1: (b.X1 - px) / sx,
		Y1: (b.Y1 - py) / sy,
		X2: (b.X2 - px) / sx,
		Y2: (b.Y2 - py) / sy,
	}
}
