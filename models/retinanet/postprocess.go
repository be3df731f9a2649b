package retinanet

import (
	"github.com/pkg/errors"

	"github.com/nvr-ai/go-objectdetection/inference"
	"github.com/nvr-ai/go-objectdetection/models/model"
	"github.com/nvr-ai/go-objectdetection/models/postprocess"
)

// PostProcess decodes the boxes, scores and labels outputs.
//
// Detections carrying a placeholder category id are dropped.
//
// Arguments:
//   - outputs: The raw session outputs.
//   - cfg: The score threshold and optional NMS override.
//
// Returns:
//   - []postprocess.Result: Detections in model input coordinates, highest score first.
//   - error: An error if the output tensors disagree with each other or the contract.
func (m *RetinaNet) PostProcess(outputs inference.Outputs, cfg postprocess.Config) ([]postprocess.Result, error) {
	boxes, err := outputs.Float32(BoxesName)
	if err != nil {
		return nil, errors.Wrap(model.ErrUnexpectedOutput, err.Error())
	}
	scores, err := outputs.Float32(ScoresName)
	if err != nil {
		return nil, errors.Wrap(model.ErrUnexpectedOutput, err.Error())
	}
	classes, err := outputs.Int64(LabelsName)
	if err != nil {
		return nil, errors.Wrap(model.ErrUnexpectedOutput, err.Error())
	}
	for _, t := range []inference.Tensor{boxes, scores, classes} {
		if err := t.Validate(); err != nil {
			return nil, errors.Wrap(model.ErrUnexpectedOutput, err.Error())
		}
	}

	n := len(scores.Float32)
	if len(boxes.Shape) != 2 || boxes.Shape[1] != 4 || int(boxes.Shape[0]) != n || len(classes.Int64) != n {
		return nil, errors.Wrapf(model.ErrUnexpectedOutput,
			"mismatched outputs: boxes %v, scores %v, labels %v", boxes.Shape, scores.Shape, classes.Shape)
	}

	set := m.Labels()
	results := make([]postprocess.Result, 0, n)
	for i := 0; i < n; i++ {
		class := int(classes.Int64[i])
		if _, ok := set.Name(class); !ok {
			continue
		}
		b := boxes.Float32[i*4 : i*4+4]
		results = append(results, postprocess.Result{
			Box:   postprocess.Box{X1: b[0], Y1: b[1], X2: b[2], Y2: b[3]},
			Score: scores.Float32[i],
			Class: class,
		})
	}

	results = postprocess.FilterByScore(results, cfg.ScoreThreshold)
	return postprocess.ApplyGreedyNMS(results, model.ResolveNMS(cfg, m.options)), nil
}
