package detection

import (
	"context"
	"image"
	"image/color"
	"sync"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-objectdetection/inference"
	"github.com/nvr-ai/go-objectdetection/models/labels"
	"github.com/nvr-ai/go-objectdetection/models/model"
	"github.com/nvr-ai/go-objectdetection/models/postprocess"
	"github.com/nvr-ai/go-objectdetection/models/preprocess"
	"github.com/nvr-ai/go-objectdetection/models/retinanet"
	"github.com/nvr-ai/go-objectdetection/models/tinyyolov3"
	"github.com/nvr-ai/go-objectdetection/models/yolov3"
)

// sceneObject is a ground truth object in original image coordinates.
type sceneObject struct {
	name  string
	box   postprocess.Box
	score float32
}

const (
	sceneWidth  = 640
	sceneHeight = 480
)

// scene is what every fake network "sees" in the test image.
var scene = []sceneObject{
	{name: "person", box: postprocess.Box{X1: 100, Y1: 80, X2: 220, Y2: 400}, score: 0.92},
	{name: "person", box: postprocess.Box{X1: 300, Y1: 100, X2: 380, Y2: 420}, score: 0.81},
	{name: "car", box: postprocess.Box{X1: 20, Y1: 300, X2: 180, Y2: 460}, score: 0.74},
	{name: "cell phone", box: postprocess.Box{X1: 500, Y1: 200, X2: 540, Y2: 260}, score: 0.66},
	{name: "dog", box: postprocess.Box{X1: 400, Y1: 350, X2: 600, Y2: 470}, score: 0.58},
	{name: "car", box: postprocess.Box{X1: 560, Y1: 20, X2: 620, Y2: 60}, score: 0.2},
	// Runs past the bottom right corner.
	{name: "bicycle", box: postprocess.Box{X1: 600, Y1: 400, X2: 700, Y2: 520}, score: 0.6},
	// Lies entirely in the letterbox padding above the image.
	{name: "cat", box: postprocess.Box{X1: 100, Y1: -70, X2: 200, Y2: -10}, score: 0.85},
}

func sceneImage() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, sceneWidth, sceneHeight))
	for y := 0; y < sceneHeight; y++ {
		for x := 0; x < sceneWidth; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x / 3), G: uint8(y / 2), B: 90, A: 255})
		}
	}
	return img
}

// fakeSession replays fixed outputs and records its inputs.
type fakeSession struct {
	mu      sync.Mutex
	outputs inference.Outputs
	runs    []inference.Tensor
	closed  bool
}

func (s *fakeSession) Run(ctx context.Context, inputs ...inference.Tensor) (inference.Outputs, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, inputs...)
	return s.outputs, nil
}

func (s *fakeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// fakeLoader builds a session emitting the scene in the raw layout of the requested
// architecture, so the real decoders run.
type fakeLoader struct {
	err      error
	loads    int
	sessions []*fakeSession
}

func (l *fakeLoader) Load(opts model.Options) (inference.Session, error) {
	l.loads++
	if l.err != nil {
		return nil, l.err
	}
	outputs, err := encodeScene(opts)
	if err != nil {
		return nil, err
	}
	s := &fakeSession{outputs: outputs}
	l.sessions = append(l.sessions, s)
	return s, nil
}

// encodeScene lays the scene out in model input coordinates as the architecture's head does.
func encodeScene(opts model.Options) (inference.Outputs, error) {
	pre, err := preprocess.NewPreprocessor(opts.Preprocess, nil)
	if err != nil {
		return nil, err
	}
	res, err := pre.Preprocess(sceneImage())
	if err != nil {
		return nil, err
	}
	boxes := make([]postprocess.Box, len(scene))
	for i, obj := range scene {
		boxes[i] = res.Geometry.Forward(obj.box)
	}

	switch opts.Name {
	case model.NameYOLOv3:
		return encodeYOLOv3(boxes), nil
	case model.NameTinyYOLOv3:
		return encodeTinyYOLOv3(boxes), nil
	case model.NameRetinaNet:
		return encodeRetinaNet(boxes), nil
	}
	return nil, errors.Errorf("no encoder for %s", opts.Name)
}

func classIndex(set *labels.Set, name string) int {
	idx, ok := set.Index(name)
	if !ok {
		panic("unknown label " + name)
	}
	return idx
}

// encodeYOLOv3 emits [1, 84, N], field-major.
func encodeYOLOv3(boxes []postprocess.Box) inference.Outputs {
	const fields = 84
	n := len(boxes)
	data := make([]float32, fields*n)
	for i, b := range boxes {
		data[0*n+i] = (b.X1 + b.X2) / 2
		data[1*n+i] = (b.Y1 + b.Y2) / 2
		data[2*n+i] = b.Width()
		data[3*n+i] = b.Height()
		data[(4+classIndex(labels.COCO, scene[i].name))*n+i] = scene[i].score
	}
	return inference.Outputs{
		yolov3.OutputName: {Name: yolov3.OutputName, Shape: []int64{1, fields, int64(n)}, Float32: data},
	}
}

// encodeTinyYOLOv3 emits [1, N, 85] rows of cx, cy, w, h, objectness and class scores.
func encodeTinyYOLOv3(boxes []postprocess.Box) inference.Outputs {
	const cols = 85
	n := len(boxes)
	data := make([]float32, cols*n)
	for i, b := range boxes {
		row := data[i*cols : (i+1)*cols]
		row[0] = (b.X1 + b.X2) / 2
		row[1] = (b.Y1 + b.Y2) / 2
		row[2] = b.Width()
		row[3] = b.Height()
		row[4] = scene[i].score
		row[5+classIndex(labels.COCO, scene[i].name)] = 1
	}
	return inference.Outputs{
		tinyyolov3.OutputName: {Name: tinyyolov3.OutputName, Shape: []int64{1, int64(n), cols}, Float32: data},
	}
}

// encodeRetinaNet emits torchvision's boxes, scores and labels outputs.
func encodeRetinaNet(boxes []postprocess.Box) inference.Outputs {
	n := len(boxes)
	coords := make([]float32, 0, 4*n)
	scores := make([]float32, n)
	ids := make([]int64, n)
	for i, b := range boxes {
		coords = append(coords, b.X1, b.Y1, b.X2, b.Y2)
		scores[i] = scene[i].score
		ids[i] = int64(classIndex(labels.TorchvisionCOCO, scene[i].name))
	}
	return inference.Outputs{
		retinanet.BoxesName:  {Name: retinanet.BoxesName, Shape: []int64{int64(n), 4}, Float32: coords},
		retinanet.ScoresName: {Name: retinanet.ScoresName, Shape: []int64{int64(n)}, Float32: scores},
		retinanet.LabelsName: {Name: retinanet.LabelsName, Shape: []int64{int64(n)}, Int64: ids},
	}
}
