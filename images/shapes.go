package images

import "image"

// Rect is a lightweight bounding box in pixel coordinates.
type Rect struct {
	// X2,Y2 are exclusive (like image.Rectangle).
	X1, Y1, X2, Y2 int
}

// Rectangle converts the box to an image.Rectangle.
func (r Rect) Rectangle() image.Rectangle {
	return image.Rect(r.X1, r.Y1, r.X2, r.Y2)
}

// Empty reports whether the box has no area.
func (r Rect) Empty() bool {
	return r.X2 <= r.X1 || r.Y2 <= r.Y1
}

// Clamp limits the box to the given bounds.
func (r Rect) Clamp(bounds image.Rectangle) Rect {
	c := r.Rectangle().Intersect(bounds)
	return Rect{X1: c.Min.X, Y1: c.Min.Y, X2: c.Max.X, Y2: c.Max.Y}
}
