package detection

import (
	"context"
	"fmt"
	"image"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/chewxy/math32"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/nvr-ai/go-objectdetection/images"
	"github.com/nvr-ai/go-objectdetection/inference"
	"github.com/nvr-ai/go-objectdetection/models/postprocess"
	"github.com/nvr-ai/go-objectdetection/models/preprocess"
)

// OutputType selects how the annotated image is returned.
type OutputType string

const (
	// OutputFile writes the annotated image to DetectArgs.OutputImagePath.
	OutputFile OutputType = "file"
	// OutputArray returns the annotated image in memory.
	OutputArray OutputType = "array"
)

// DefaultMinimumPercentageProbability is the default confidence cut-off, in percent.
const DefaultMinimumPercentageProbability = 50

// DetectArgs controls a single detection call.
type DetectArgs struct {
	// OutputType is OutputFile (the default when empty) or OutputArray.
	OutputType OutputType `json:"output_type" yaml:"output_type"`
	// OutputImagePath is where OutputFile writes the annotated image. The extension picks the
	// format.
	OutputImagePath string `json:"output_image_path" yaml:"output_image_path"`
	// ExtractDetectedObjects also returns a crop of every detection.
	ExtractDetectedObjects bool `json:"extract_detected_objects" yaml:"extract_detected_objects"`
	// CustomObjects restricts the returned classes. Nil returns every class, an empty filter
	// returns none.
	CustomObjects CustomObjects `json:"-" yaml:"-"`
	// MinimumPercentageProbability drops detections below this confidence, in [0, 100].
	MinimumPercentageProbability float64 `json:"minimum_percentage_probability" yaml:"minimum_percentage_probability"`
	// DisplayPercentageProbability draws the confidence next to each box.
	DisplayPercentageProbability bool `json:"display_percentage_probability" yaml:"display_percentage_probability"`
	// DisplayObjectName draws the class name next to each box.
	DisplayObjectName bool `json:"display_object_name" yaml:"display_object_name"`
	// DisplayBox draws the bounding boxes.
	DisplayBox bool `json:"display_box" yaml:"display_box"`
}

// DefaultDetectArgs returns file output at 50% confidence with boxes, names and
// probabilities drawn.
func DefaultDetectArgs() DetectArgs {
	return DetectArgs{
		OutputType:                   OutputFile,
		MinimumPercentageProbability: DefaultMinimumPercentageProbability,
		DisplayPercentageProbability: true,
		DisplayObjectName:            true,
		DisplayBox:                   true,
	}
}

// Validate checks the arguments for a detection call.
func (a DetectArgs) Validate() error {
	switch a.OutputType {
	case "", OutputFile, OutputArray:
	default:
		return errors.Wrapf(ErrInvalidArgs, "output type %q", a.OutputType)
	}
	if a.MinimumPercentageProbability < 0 || a.MinimumPercentageProbability > 100 {
		return errors.Wrapf(ErrInvalidArgs, "minimum percentage probability %v outside [0, 100]",
			a.MinimumPercentageProbability)
	}
	if a.outputType() != OutputFile {
		return nil
	}
	if a.OutputImagePath == "" {
		if a.ExtractDetectedObjects {
			return errors.Wrap(ErrMissingOutputPath, "extracting objects to files")
		}
		return nil
	}
	if _, err := images.FormatFromPath(a.OutputImagePath); err != nil {
		return errors.Wrap(err, "output image path")
	}
	return nil
}

func (a DetectArgs) outputType() OutputType {
	if a.OutputType == "" {
		return OutputFile
	}
	return a.OutputType
}

// Detection is one detected object.
type Detection struct {
	// Name is the class name, e.g. "person".
	Name string `json:"name"`
	// PercentageProbability is the confidence in [0, 100].
	PercentageProbability float64 `json:"percentage_probability"`
	// BoxPoints is x1, y1, x2, y2 in image pixels, with x1 < x2 and y1 < y2.
	BoxPoints [4]int `json:"box_points"`
}

// Rect returns the detection's box.
func (d Detection) Rect() images.Rect {
	return images.Rect{X1: d.BoxPoints[0], Y1: d.BoxPoints[1], X2: d.BoxPoints[2], Y2: d.BoxPoints[3]}
}

// Label returns the overlay text for the detection.
func (d Detection) Label(showName, showProbability bool) string {
	probability := fmt.Sprintf("%.2f", d.PercentageProbability)
	switch {
	case showName && showProbability:
		return d.Name + " : " + probability
	case showName:
		return d.Name
	case showProbability:
		return probability
	}
	return ""
}

// Result is the outcome of one detection call.
type Result struct {
	// Detections are ordered by descending probability.
	Detections []Detection `json:"detections"`
	// Image is the annotated image. Set for OutputArray.
	Image *image.NRGBA `json:"-"`
	// Objects are the crops of each detection, in Detections order. Set for OutputArray with
	// ExtractDetectedObjects.
	Objects []*image.NRGBA `json:"-"`
	// OutputImagePath is where the annotated image was written. Set for OutputFile.
	OutputImagePath string `json:"output_image_path,omitempty"`
	// ObjectPaths are the crop files, in Detections order. Set for OutputFile with
	// ExtractDetectedObjects.
	ObjectPaths []string `json:"object_paths,omitempty"`
}

// DetectObjectsFromImage runs the loaded model on one image.
//
// Arguments:
//   - ctx: Cancels the call before or after inference.
//   - input: The image, from images.FromPath, FromBytes, FromMat or FromImage.
//   - args: Output mode, filtering and drawing options.
//
// Returns:
//   - *Result: The detections and the requested images or files.
//   - error: ErrModelNotLoaded, ErrInvalidInput, ErrMissingOutputPath (all wrapped), or an
//     inference or output error.
//
// @example
//
//	args := DefaultDetectArgs()
//	args.OutputImagePath = "out.jpg"
//	res, err := d.DetectObjectsFromImage(ctx, images.FromPath("in.jpg"), args)
func (d *Detector) DetectObjectsFromImage(ctx context.Context, input images.Input, args DetectArgs) (*Result, error) {
	if err := args.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.session == nil {
		return nil, ErrModelNotLoaded
	}
	if input == nil {
		return nil, errors.Wrap(ErrInvalidInput, "nil input")
	}

	start := time.Now()
	img, err := input.Decode()
	if err != nil {
		return nil, err
	}

	all, err := d.detect(ctx, img, args.MinimumPercentageProbability)
	if err != nil {
		return nil, err
	}
	detections := make([]Detection, 0, len(all))
	for _, det := range all {
		if args.CustomObjects.Allows(det.Name) {
			detections = append(detections, det)
		}
	}

	d.logger.Debug("detected objects",
		zap.String("model_type", string(d.name)),
		zap.Int("candidates", len(all)),
		zap.Int("detections", len(detections)),
		zap.Duration("elapsed", time.Since(start)),
	)
	if p, ok := d.session.(inference.Profiler); ok {
		m := p.Metrics()
		d.logger.Debug("session metrics",
			zap.Int64("inference_count", m.InferenceCount),
			zap.Float64("average_time_ms", m.AverageTimeMS()),
		)
	}

	return render(img, detections, args)
}

// detect returns every detection above the threshold in original image coordinates.
func (d *Detector) detect(ctx context.Context, img *image.NRGBA, minPercentage float64) ([]Detection, error) {
	pre, err := d.pre.Preprocess(img)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidInput, err.Error())
	}

	opts := d.model.Options()
	outputs, err := d.session.Run(ctx, inference.Tensor{
		Name:    opts.Inputs[0].Name,
		Shape:   pre.Shape,
		Float32: pre.Data,
	})
	if err != nil {
		return nil, errors.Wrap(err, "running inference")
	}

	results, err := d.model.PostProcess(outputs, postprocess.Config{
		ScoreThreshold: float32(minPercentage / 100),
	})
	if err != nil {
		return nil, err
	}

	set := d.model.Labels()
	detections := make([]Detection, 0, len(results))
	for _, r := range results {
		name, ok := set.Name(r.Class)
		if !ok {
			continue
		}
		box, ok := toBoxPoints(pre.Geometry, r.Box)
		if !ok {
			continue
		}
		detections = append(detections, Detection{
			Name:                  name,
			PercentageProbability: float64(math32.Min(math32.Max(r.Score, 0), 1)) * 100,
			BoxPoints:             box,
		})
	}
	sort.SliceStable(detections, func(i, j int) bool {
		return detections[i].PercentageProbability > detections[j].PercentageProbability
	})
	return detections, nil
}

// toBoxPoints maps a model input box to integer image pixels, clamped to the image. It reports
// false for boxes with no area left.
func toBoxPoints(geom preprocess.Geometry, b postprocess.Box) ([4]int, bool) {
	r := geom.Restore(b)
	w, h := float32(geom.OriginalWidth), float32(geom.OriginalHeight)
	clamp := func(v, hi float32) int {
		return int(math32.Round(math32.Min(math32.Max(v, 0), hi)))
	}
	points := [4]int{clamp(r.X1, w), clamp(r.Y1, h), clamp(r.X2, w), clamp(r.Y2, h)}
	if points[0] >= points[2] || points[1] >= points[3] {
		return points, false
	}
	return points, true
}

// render draws the detections and produces the requested outputs.
func render(img *image.NRGBA, detections []Detection, args DetectArgs) (*Result, error) {
	annotations := make([]images.Annotation, len(detections))
	for i, det := range detections {
		annotations[i] = images.Annotation{
			Rect:  det.Rect(),
			Label: det.Label(args.DisplayObjectName, args.DisplayPercentageProbability),
			Color: images.ClassColor(det.Name),
		}
	}
	annotated := images.Annotate(img, annotations, images.DrawOptions{
		DrawBox:   args.DisplayBox,
		DrawLabel: args.DisplayObjectName || args.DisplayPercentageProbability,
	})

	var crops []*image.NRGBA
	if args.ExtractDetectedObjects {
		crops = make([]*image.NRGBA, len(detections))
		for i, det := range detections {
			crop, err := images.Crop(img, det.Rect())
			if err != nil {
				return nil, errors.Wrapf(err, "extracting %s", det.Name)
			}
			crops[i] = crop
		}
	}

	result := &Result{Detections: detections}
	if args.outputType() == OutputArray {
		result.Image = annotated
		result.Objects = crops
		return result, nil
	}

	if args.OutputImagePath == "" {
		return result, nil
	}
	if err := images.Save(annotated, args.OutputImagePath); err != nil {
		return nil, errors.Wrap(err, "writing annotated image")
	}
	result.OutputImagePath = args.OutputImagePath

	if len(crops) > 0 {
		result.ObjectPaths = make([]string, len(crops))
		for i, crop := range crops {
			path := ObjectPath(args.OutputImagePath, detections[i].Name, i+1)
			if err := images.Save(crop, path); err != nil {
				return nil, errors.Wrapf(err, "writing %s", path)
			}
			result.ObjectPaths[i] = path
		}
	}
	return result, nil
}

// ObjectPath returns the file an extracted object is written to: a "-objects" directory next to
// the annotated image, holding "<name>-<n><ext>" with spaces in the name replaced by
// underscores.
//
// Arguments:
//   - outputImagePath: The annotated image path.
//   - name: The class name.
//   - n: The one-based position of the detection.
//
// Returns:
//   - string: The crop path.
func ObjectPath(outputImagePath, name string, n int) string {
	ext := filepath.Ext(outputImagePath)
	dir := strings.TrimSuffix(outputImagePath, ext) + "-objects"
	return filepath.Join(dir, fmt.Sprintf("%s-%d%s", strings.ReplaceAll(name, " ", "_"), n, ext))
}
