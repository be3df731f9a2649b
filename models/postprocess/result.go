// Package postprocess - Postprocessing utilities for models.
package postprocess

// Box is an axis-aligned bounding box in pixel coordinates, X2/Y2 exclusive.
type Box struct {
	X1, Y1, X2, Y2 float32
}

// Width returns the horizontal extent of the box.
func (b Box) Width() float32 { return b.X2 - b.X1 }

// Height returns the vertical extent of the box.
func (b Box) Height() float32 { return b.Y2 - b.Y1 }

// Area returns the box area, or 0 for degenerate boxes.
func (b Box) Area() float32 {
	w, h := b.Width(), b.Height()
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

// IoU measures the overlap of two boxes as intersection area over union area.
//
// Arguments:
//   - o: The other box.
//
// Returns:
//   - float32: A value between 0.0 and 1.0. Disjoint or touching boxes return 0.
func (b Box) IoU(o Box) float32 {
	inter := Box{
		X1: max(b.X1, o.X1),
		Y1: max(b.Y1, o.Y1),
		X2: min(b.X2, o.X2),
		Y2: min(b.Y2, o.Y2),
	}.Area()
	if inter == 0 {
		return 0
	}
	return inter / (b.Area() + o.Area() - inter)
}

// FromCenter builds a box from center coordinates and size, as emitted by YOLO heads.
func FromCenter(cx, cy, w, h float32) Box {
	return Box{
		X1: cx - w/2,
		Y1: cy - h/2,
		X2: cx + w/2,
		Y2: cy + h/2,
	}
}

// Result represents a single detection result.
type Result struct {
	// The bounding box of the result.
	Box Box
	// The confidence score of the result, in [0, 1].
	Score float32
	// The predicted class index of the result, in the model's label set.
	Class int
}
