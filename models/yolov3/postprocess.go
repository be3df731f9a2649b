package yolov3

import (
	"github.com/pkg/errors"
	"gorgonia.org/tensor"

	"github.com/nvr-ai/go-objectdetection/inference"
	"github.com/nvr-ai/go-objectdetection/models/model"
	"github.com/nvr-ai/go-objectdetection/models/postprocess"
)

// PostProcess decodes the [1, 84, N] head output.
//
// Each of the N candidate columns holds cx, cy, w, h in input pixels followed by one score
// per class. The column is scored by its best class.
//
// Arguments:
//   - outputs: The raw session outputs.
//   - cfg: The score threshold and optional NMS override.
//
// Returns:
//   - []postprocess.Result: Detections in model input coordinates, highest score first.
//   - error: An error if the output tensor does not match the contract.
func (m *YOLOv3) PostProcess(outputs inference.Outputs, cfg postprocess.Config) ([]postprocess.Result, error) {
	out, err := outputs.Float32(OutputName)
	if err != nil {
		return nil, errors.Wrap(model.ErrUnexpectedOutput, err.Error())
	}
	if err := out.Validate(); err != nil {
		return nil, errors.Wrap(model.ErrUnexpectedOutput, err.Error())
	}
	numClasses := len(m.Labels().Classes)
	numFields := boxFields + numClasses
	if len(out.Shape) != 3 || out.Shape[1] != int64(numFields) {
		return nil, errors.Wrapf(model.ErrUnexpectedOutput, "output %q has shape %v", OutputName, out.Shape)
	}
	numRows := int(out.Shape[2])
	if numRows == 0 {
		return nil, nil
	}

	rows, err := transpose(out.Float32, numFields, numRows)
	if err != nil {
		return nil, err
	}

	results := make([]postprocess.Result, 0, 64)
	for i := 0; i < numRows; i++ {
		row := rows[i*numFields : (i+1)*numFields]

		classID := 0
		maxScore := row[boxFields]
		for j := 1; j < numClasses; j++ {
			if s := row[boxFields+j]; s > maxScore {
				maxScore = s
				classID = j
			}
		}
		if maxScore < cfg.ScoreThreshold {
			continue
		}

		results = append(results, postprocess.Result{
			Box:   postprocess.FromCenter(row[0], row[1], row[2], row[3]),
			Score: maxScore,
			Class: classID,
		})
	}

	return postprocess.ApplyGreedyNMS(results, model.ResolveNMS(cfg, m.options)), nil
}

// transpose converts the field-major [fields, rows] layout to row-major [rows, fields].
func transpose(data []float32, fields, rows int) ([]float32, error) {
	backing := make([]float32, len(data))
	copy(backing, data)

	t := tensor.New(tensor.WithShape(fields, rows), tensor.WithBacking(backing))
	if err := t.T(); err != nil {
		return nil, errors.Wrap(err, "failed to transpose output")
	}
	if err := t.Transpose(); err != nil {
		return nil, errors.Wrap(err, "failed to materialize transposed output")
	}
	return t.Data().([]float32), nil
}
