package detection

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gocv.io/x/gocv"

	"github.com/nvr-ai/go-objectdetection/images"
	"github.com/nvr-ai/go-objectdetection/inference"
	"github.com/nvr-ai/go-objectdetection/models/labels"
	"github.com/nvr-ai/go-objectdetection/models/model"
)

func writeWeights(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "weights.onnx")
	require.NoError(t, os.WriteFile(path, []byte("onnx"), 0o600))
	return path
}

func loadedDetector(t *testing.T, name model.Name) (*Detector, *fakeLoader) {
	t.Helper()
	loader := &fakeLoader{}
	d, err := NewDetector(Options{Loader: loader, Logger: zaptest.NewLogger(t)})
	require.NoError(t, err)

	switch name {
	case model.NameRetinaNet:
		d.SetModelTypeAsRetinaNet()
	case model.NameYOLOv3:
		d.SetModelTypeAsYOLOv3()
	case model.NameTinyYOLOv3:
		d.SetModelTypeAsTinyYOLOv3()
	}
	d.SetModelPath(writeWeights(t))
	require.NoError(t, d.LoadModel())
	t.Cleanup(func() { _ = d.Close() })
	return d, loader
}

func arrayArgs() DetectArgs {
	args := DefaultDetectArgs()
	args.OutputType = OutputArray
	return args
}

func assertDetections(t *testing.T, detections []Detection) {
	t.Helper()
	for i, det := range detections {
		assert.NotEmpty(t, det.Name)
		assert.GreaterOrEqual(t, det.PercentageProbability, 0.0)
		assert.LessOrEqual(t, det.PercentageProbability, 100.0)
		assert.Less(t, det.BoxPoints[0], det.BoxPoints[2], "x1 < x2 for %v", det)
		assert.Less(t, det.BoxPoints[1], det.BoxPoints[3], "y1 < y2 for %v", det)
		if i > 0 {
			assert.GreaterOrEqual(t, detections[i-1].PercentageProbability, det.PercentageProbability)
		}
	}
}

// assertEdgeObjects checks the scene objects that leave the image: the bicycle is clamped to
// the frame and the cat, which lies wholly in the padding, is dropped.
func assertEdgeObjects(t *testing.T, detections []Detection) {
	t.Helper()
	var bicycle *Detection
	for i := range detections {
		assert.NotEqual(t, "cat", detections[i].Name)
		if detections[i].Name == "bicycle" {
			bicycle = &detections[i]
		}
	}
	require.NotNil(t, bicycle)
	for i, want := range []int{600, 400, sceneWidth, sceneHeight} {
		assert.InDelta(t, want, bicycle.BoxPoints[i], 1)
	}
	assert.LessOrEqual(t, bicycle.BoxPoints[2], sceneWidth)
	assert.LessOrEqual(t, bicycle.BoxPoints[3], sceneHeight)
}

func TestDetectObjectsFromImage(t *testing.T) {
	tests := []struct {
		model model.Name
	}{
		{model: model.NameRetinaNet},
		{model: model.NameYOLOv3},
		{model: model.NameTinyYOLOv3},
	}

	for _, tt := range tests {
		t.Run(string(tt.model), func(t *testing.T) {
			d, loader := loadedDetector(t, tt.model)
			ctx := context.Background()

			res, err := d.DetectObjectsFromImage(ctx, images.FromImage(sceneImage()), arrayArgs())
			require.NoError(t, err)
			assertDetections(t, res.Detections)
			require.Len(t, res.Detections, 6, "the 20% car is below the default threshold")
			assert.Equal(t, "person", res.Detections[0].Name)
			assert.InDelta(t, 92, res.Detections[0].PercentageProbability, 1e-3)
			for i, want := range []int{100, 80, 220, 400} {
				assert.InDelta(t, want, res.Detections[0].BoxPoints[i], 1)
			}
			assert.Equal(t, sceneImage().Bounds(), res.Image.Bounds())
			assertEdgeObjects(t, res.Detections)

			filter, err := d.CustomObjects("person", "cell_phone")
			require.NoError(t, err)
			args := arrayArgs()
			args.CustomObjects = filter
			filtered, err := d.DetectObjectsFromImage(ctx, images.FromImage(sceneImage()), args)
			require.NoError(t, err)
			assertDetections(t, filtered.Detections)
			require.Len(t, filtered.Detections, 3)
			assert.Less(t, len(filtered.Detections), len(res.Detections))
			for _, det := range filtered.Detections {
				assert.Contains(t, []string{"person", "cell phone"}, det.Name)
			}

			session := loader.sessions[0]
			require.Len(t, session.runs, 2)
			spec := d.model.Options().Inputs[0]
			assert.Equal(t, spec.Name, session.runs[0].Name)
			assert.Equal(t, spec.Shape, session.runs[0].Shape)
			assert.NoError(t, session.runs[0].Validate())
		})
	}
}

func TestMinimumPercentageProbability(t *testing.T) {
	d, _ := loadedDetector(t, model.NameYOLOv3)

	args := arrayArgs()
	args.MinimumPercentageProbability = 10
	res, err := d.DetectObjectsFromImage(context.Background(), images.FromImage(sceneImage()), args)
	require.NoError(t, err)
	assert.Len(t, res.Detections, 7)

	args.MinimumPercentageProbability = 70
	res, err = d.DetectObjectsFromImage(context.Background(), images.FromImage(sceneImage()), args)
	require.NoError(t, err)
	assert.Len(t, res.Detections, 3)

	args.MinimumPercentageProbability = 101
	_, err = d.DetectObjectsFromImage(context.Background(), images.FromImage(sceneImage()), args)
	assert.ErrorIs(t, err, ErrInvalidArgs)
}

func TestInputFormats(t *testing.T) {
	d, _ := loadedDetector(t, model.NameTinyYOLOv3)

	dir := t.TempDir()
	path := filepath.Join(dir, "scene.png")
	require.NoError(t, images.Save(sceneImage(), path))
	var encoded bytes.Buffer
	require.NoError(t, images.Encode(&encoded, sceneImage(), images.FormatPNG))
	mat, err := gocv.ImageToMatRGB(sceneImage())
	require.NoError(t, err)
	defer mat.Close()

	want, err := d.DetectObjectsFromImage(context.Background(), images.FromImage(sceneImage()), arrayArgs())
	require.NoError(t, err)

	inputs := map[string]images.Input{
		"path":  images.FromPath(path),
		"bytes": images.FromBytes(encoded.Bytes()),
		"mat":   images.FromMat(mat),
	}
	for name, input := range inputs {
		t.Run(name, func(t *testing.T) {
			got, err := d.DetectObjectsFromImage(context.Background(), input, arrayArgs())
			require.NoError(t, err)
			assert.Equal(t, want.Detections, got.Detections)
		})
	}
}

func TestInvalidInput(t *testing.T) {
	d, _ := loadedDetector(t, model.NameYOLOv3)

	_, err := d.DetectObjectsFromImage(context.Background(), images.FromBytes([]byte("garbage")), arrayArgs())
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = d.DetectObjectsFromImage(context.Background(), images.FromPath("/does/not/exist.jpg"), arrayArgs())
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = d.DetectObjectsFromImage(context.Background(), nil, arrayArgs())
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestOutputFile(t *testing.T) {
	d, _ := loadedDetector(t, model.NameRetinaNet)
	out := filepath.Join(t.TempDir(), "annotated.jpg")

	args := DefaultDetectArgs()
	args.OutputImagePath = out
	args.ExtractDetectedObjects = true
	res, err := d.DetectObjectsFromImage(context.Background(), images.FromImage(sceneImage()), args)
	require.NoError(t, err)

	assert.Equal(t, out, res.OutputImagePath)
	assert.Nil(t, res.Image)
	annotated, err := images.Open(out)
	require.NoError(t, err)
	assert.Equal(t, sceneImage().Bounds(), annotated.Bounds())

	require.Len(t, res.ObjectPaths, len(res.Detections))
	assert.Equal(t, filepath.Join(filepath.Dir(out), "annotated-objects", "person-1.jpg"), res.ObjectPaths[0])
	for i, path := range res.ObjectPaths {
		crop, err := images.Open(path)
		require.NoError(t, err)
		box := res.Detections[i].BoxPoints
		assert.Equal(t, box[2]-box[0], crop.Bounds().Dx())
		assert.Equal(t, box[3]-box[1], crop.Bounds().Dy())
	}
	assert.Equal(t, filepath.Join(filepath.Dir(out), "annotated-objects", "cell_phone-4.jpg"), res.ObjectPaths[3])
}

func TestOutputFileWithoutPath(t *testing.T) {
	d, _ := loadedDetector(t, model.NameYOLOv3)

	res, err := d.DetectObjectsFromImage(context.Background(), images.FromImage(sceneImage()), DefaultDetectArgs())
	require.NoError(t, err)
	assert.Len(t, res.Detections, 6)
	assert.Empty(t, res.OutputImagePath)

	args := DefaultDetectArgs()
	args.ExtractDetectedObjects = true
	_, err = d.DetectObjectsFromImage(context.Background(), images.FromImage(sceneImage()), args)
	assert.ErrorIs(t, err, ErrMissingOutputPath)
}

func TestOutputFileUnsupportedFormat(t *testing.T) {
	d, loader := loadedDetector(t, model.NameYOLOv3)

	args := DefaultDetectArgs()
	args.OutputImagePath = filepath.Join(t.TempDir(), "out.xyz")
	_, err := d.DetectObjectsFromImage(context.Background(), images.FromImage(sceneImage()), args)
	assert.ErrorIs(t, err, images.ErrUnsupportedFormat)
	assert.Empty(t, loader.sessions[0].runs, "rejected before inference")
	assert.NoFileExists(t, args.OutputImagePath)
}

func TestOutputArrayObjects(t *testing.T) {
	d, _ := loadedDetector(t, model.NameYOLOv3)
	src := sceneImage()

	args := arrayArgs()
	args.ExtractDetectedObjects = true
	res, err := d.DetectObjectsFromImage(context.Background(), images.FromImage(src), args)
	require.NoError(t, err)

	require.Len(t, res.Objects, len(res.Detections))
	for i, obj := range res.Objects {
		box := res.Detections[i].BoxPoints
		assert.Equal(t, box[2]-box[0], obj.Bounds().Dx())
		// Crops come from the image before drawing.
		assert.Equal(t, src.NRGBAAt(box[0], box[1]), obj.NRGBAAt(0, 0))
	}
	assert.NotEqual(t, src.Pix, res.Image.Pix, "boxes drawn on the returned image")

	args.DisplayBox = false
	args.DisplayObjectName = false
	args.DisplayPercentageProbability = false
	res, err = d.DetectObjectsFromImage(context.Background(), images.FromImage(src), args)
	require.NoError(t, err)
	assert.Equal(t, src.Pix, res.Image.Pix, "nothing drawn")
}

func TestLoadModelErrors(t *testing.T) {
	weights := writeWeights(t)
	empty := filepath.Join(t.TempDir(), "empty.onnx")
	require.NoError(t, os.WriteFile(empty, nil, 0o600))

	tests := []struct {
		name   string
		model  model.Name
		path   string
		loader *fakeLoader
		err    error
	}{
		{name: "no model type", path: weights, loader: &fakeLoader{}, err: ErrModelTypeNotSet},
		{name: "no path", model: model.NameYOLOv3, loader: &fakeLoader{}, err: ErrInvalidModelPath},
		{name: "missing file", model: model.NameYOLOv3, path: weights + ".missing", loader: &fakeLoader{}, err: ErrInvalidModelPath},
		{name: "directory", model: model.NameYOLOv3, path: t.TempDir(), loader: &fakeLoader{}, err: ErrInvalidModelPath},
		{name: "empty file", model: model.NameYOLOv3, path: empty, loader: &fakeLoader{}, err: ErrInvalidModelPath},
		{
			name:   "incompatible weights",
			model:  model.NameRetinaNet,
			path:   weights,
			loader: &fakeLoader{err: errors.Wrap(inference.ErrIncompatibleModel, `output "boxes" missing`)},
			err:    ErrIncompatibleModel,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := NewDetector(Options{Loader: tt.loader, Logger: zaptest.NewLogger(t)})
			require.NoError(t, err)
			if tt.model != "" {
				d.SetModelType(tt.model)
			}
			d.SetModelPath(tt.path)

			assert.ErrorIs(t, d.LoadModel(), tt.err)

			_, err = d.DetectObjectsFromImage(context.Background(), images.FromImage(sceneImage()), arrayArgs())
			assert.ErrorIs(t, err, ErrModelNotLoaded)
		})
	}
}

func TestLoadModelOnce(t *testing.T) {
	d, loader := loadedDetector(t, model.NameYOLOv3)

	d.SetModelTypeAsRetinaNet()
	require.NoError(t, d.LoadModel())
	assert.Equal(t, 1, loader.loads)
	assert.Equal(t, model.NameYOLOv3, d.ModelType(), "model type is fixed once loaded")

	require.NoError(t, d.Close())
	assert.True(t, loader.sessions[0].closed)
	require.NoError(t, d.Close())

	_, err := d.DetectObjectsFromImage(context.Background(), images.FromImage(sceneImage()), arrayArgs())
	assert.ErrorIs(t, err, ErrModelNotLoaded)
}

func TestContextCanceled(t *testing.T) {
	d, loader := loadedDetector(t, model.NameYOLOv3)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := d.DetectObjectsFromImage(ctx, images.FromImage(sceneImage()), arrayArgs())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, loader.sessions[0].runs)
}

func TestCustomObjects(t *testing.T) {
	d, err := NewDetector(Options{Loader: &fakeLoader{}})
	require.NoError(t, err)

	filter, err := d.CustomObjects("person", "cell_phone", "Traffic Light")
	require.NoError(t, err)
	assert.Equal(t, []string{"cell phone", "person", "traffic light"}, filter.Names())
	assert.True(t, filter.Allows("cell phone"))
	assert.False(t, filter.Allows("dog"))

	_, err = d.CustomObjects("person", "unicorn")
	assert.ErrorIs(t, err, ErrUnknownObject)

	// Placeholder ids in the torchvision set are not addressable.
	_, err = NewCustomObjects(labels.TorchvisionCOCO, "N/A")
	assert.ErrorIs(t, err, ErrUnknownObject)

	assert.True(t, CustomObjects(nil).Allows("anything"))

	empty, err := d.CustomObjects()
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.False(t, empty.Allows("person"))
}

func TestEmptyCustomObjects(t *testing.T) {
	d, _ := loadedDetector(t, model.NameYOLOv3)

	filter, err := d.CustomObjects()
	require.NoError(t, err)
	args := arrayArgs()
	args.CustomObjects = filter
	res, err := d.DetectObjectsFromImage(context.Background(), images.FromImage(sceneImage()), args)
	require.NoError(t, err)
	assert.Empty(t, res.Detections)

	args.CustomObjects = nil
	res, err = d.DetectObjectsFromImage(context.Background(), images.FromImage(sceneImage()), args)
	require.NoError(t, err)
	assert.NotEmpty(t, res.Detections)
}

func TestDetectionLabel(t *testing.T) {
	det := Detection{Name: "person", PercentageProbability: 87.1234}
	assert.Equal(t, "person : 87.12", det.Label(true, true))
	assert.Equal(t, "person", det.Label(true, false))
	assert.Equal(t, "87.12", det.Label(false, true))
	assert.Empty(t, det.Label(false, false))
}

func TestObjectPath(t *testing.T) {
	assert.Equal(t, filepath.Join("out", "street-objects", "cell_phone-3.png"),
		ObjectPath(filepath.Join("out", "street.png"), "cell phone", 3))
}

func BenchmarkDetectObjectsFromImage(b *testing.B) {
	for _, name := range model.Names {
		b.Run(string(name), func(b *testing.B) {
			d, err := NewDetector(Options{Loader: &fakeLoader{}})
			require.NoError(b, err)
			d.SetModelType(name)
			path := filepath.Join(b.TempDir(), "weights.onnx")
			require.NoError(b, os.WriteFile(path, []byte("onnx"), 0o600))
			d.SetModelPath(path)
			require.NoError(b, d.LoadModel())
			defer d.Close()

			img := sceneImage()
			args := arrayArgs()
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := d.DetectObjectsFromImage(context.Background(), images.FromImage(img), args); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
