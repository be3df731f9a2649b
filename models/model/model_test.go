package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-objectdetection/inference"
	"github.com/nvr-ai/go-objectdetection/models/labels"
	"github.com/nvr-ai/go-objectdetection/models/postprocess"
	"github.com/nvr-ai/go-objectdetection/models/preprocess"
)

func TestParseName(t *testing.T) {
	tests := []struct {
		in   string
		want Name
	}{
		{in: "retinanet", want: NameRetinaNet},
		{in: "RetinaNet", want: NameRetinaNet},
		{in: "YOLOv3", want: NameYOLOv3},
		{in: "tiny-yolov3", want: NameTinyYOLOv3},
		{in: "tiny_yolo_v3", want: NameTinyYOLOv3},
	}
	for _, tt := range tests {
		got, err := ParseName(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseName("yolov8")
	assert.Error(t, err)
}

func TestFamilyLabels(t *testing.T) {
	assert.Same(t, labels.COCO, FamilyYOLO.Labels())
	assert.Same(t, labels.TorchvisionCOCO, FamilyTorchvision.Labels())
}

func TestApplyArgs(t *testing.T) {
	defaults := Options{
		Name:       NameYOLOv3,
		Inputs:     []inference.TensorSpec{SquareInput("images", 640)},
		Outputs:    []inference.TensorSpec{{Name: "output0"}},
		Preprocess: preprocess.Config{InputWidth: 640, InputHeight: 640},
		NMS:        postprocess.DefaultNMSConfig(),
	}

	got := ApplyArgs(defaults, NewModelArgs{
		Path:      "/models/yolov3.onnx",
		InputSize: 320,
		NMS:       &postprocess.NMSConfig{IoUThreshold: 0.6},
	})

	assert.Equal(t, "/models/yolov3.onnx", got.Path)
	assert.Equal(t, []int64{1, 3, 320, 320}, got.Inputs[0].Shape)
	assert.Equal(t, 320, got.Preprocess.InputWidth)
	assert.Equal(t, float32(0.6), got.NMS.IoUThreshold)
	assert.Equal(t, []string{"images"}, got.InputNames())
	assert.Equal(t, []string{"output0"}, got.OutputNames())
}

func TestResolveNMS(t *testing.T) {
	opts := Options{NMS: postprocess.DefaultNMSConfig()}
	assert.Same(t, opts.NMS, ResolveNMS(postprocess.Config{}, opts))

	override := &postprocess.NMSConfig{IoUThreshold: 0.3}
	assert.Same(t, override, ResolveNMS(postprocess.Config{NMS: override}, opts))
}
