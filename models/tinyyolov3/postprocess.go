package tinyyolov3

import (
	"github.com/pkg/errors"

	"github.com/nvr-ai/go-objectdetection/inference"
	"github.com/nvr-ai/go-objectdetection/models/model"
	"github.com/nvr-ai/go-objectdetection/models/postprocess"
)

// PostProcess decodes the [1, N, 85] output.
//
// Each row holds cx, cy, w, h in input pixels, an objectness score and one probability per
// class. The final score is objectness times the best class probability.
//
// Arguments:
//   - outputs: The raw session outputs.
//   - cfg: The score threshold and optional NMS override.
//
// Returns:
//   - []postprocess.Result: Detections in model input coordinates, highest score first.
//   - error: An error if the output tensor does not match the contract.
func (m *TinyYOLOv3) PostProcess(outputs inference.Outputs, cfg postprocess.Config) ([]postprocess.Result, error) {
	out, err := outputs.Float32(OutputName)
	if err != nil {
		return nil, errors.Wrap(model.ErrUnexpectedOutput, err.Error())
	}
	if err := out.Validate(); err != nil {
		return nil, errors.Wrap(model.ErrUnexpectedOutput, err.Error())
	}
	numClasses := len(m.Labels().Classes)
	numCols := rowHeader + numClasses
	if len(out.Shape) != 3 || out.Shape[2] != int64(numCols) {
		return nil, errors.Wrapf(model.ErrUnexpectedOutput, "output %q has shape %v", OutputName, out.Shape)
	}

	output := out.Float32
	numRows := int(out.Shape[1])
	results := make([]postprocess.Result, 0, 64)

	for i := 0; i < numRows; i++ {
		offset := i * numCols
		objConf := output[offset+4]
		if objConf < cfg.ScoreThreshold {
			continue
		}

		classID := 0
		maxScore := float32(0)
		for j := rowHeader; j < numCols; j++ {
			if score := output[offset+j]; score > maxScore {
				maxScore = score
				classID = j - rowHeader
			}
		}

		finalScore := objConf * maxScore
		if finalScore < cfg.ScoreThreshold {
			continue
		}

		results = append(results, postprocess.Result{
			Box: postprocess.FromCenter(
				output[offset+0],
				output[offset+1],
				output[offset+2],
				output[offset+3],
			),
			Score: finalScore,
			Class: classID,
		})
	}

	return postprocess.ApplyGreedyNMS(results, model.ResolveNMS(cfg, m.options)), nil
}
