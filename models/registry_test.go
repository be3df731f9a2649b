package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-objectdetection/models/model"
)

func TestNewModel(t *testing.T) {
	tests := []struct {
		name   model.Name
		family model.Family
		input  []int64
	}{
		{name: model.NameRetinaNet, family: model.FamilyTorchvision, input: []int64{1, 3, 800, 800}},
		{name: model.NameYOLOv3, family: model.FamilyYOLO, input: []int64{1, 3, 640, 640}},
		{name: model.NameTinyYOLOv3, family: model.FamilyYOLO, input: []int64{1, 3, 416, 416}},
	}

	for _, tt := range tests {
		t.Run(string(tt.name), func(t *testing.T) {
			m, err := NewModel(model.NewModelArgs{Name: tt.name, Path: "weights.onnx"})
			require.NoError(t, err)

			opts := m.Options()
			assert.Equal(t, tt.name, opts.Name)
			assert.Equal(t, tt.family, opts.Family)
			assert.Equal(t, "weights.onnx", opts.Path)
			require.Len(t, opts.Inputs, 1)
			assert.Equal(t, tt.input, opts.Inputs[0].Shape)
			assert.NotEmpty(t, opts.Outputs)
			assert.NoError(t, opts.Preprocess.Validate())
			assert.True(t, m.Labels().Contains("person"))
		})
	}
}

func TestNewModelUnsupported(t *testing.T) {
	_, err := NewModel(model.NewModelArgs{Name: "rfdetr"})
	assert.ErrorIs(t, err, ErrUnsupportedModel)
}
