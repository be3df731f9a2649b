package images

import (
	"hash/fnv"
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
)

// ClassColor returns a stable, saturated color for a class name so that every box of the
// same class is drawn in the same color.
func ClassColor(name string) color.RGBA {
	h := fnv.New32a()
	_, _ = h.Write([]byte(name))
	hue := float64(h.Sum32() % 360)
	r, g, b := colorful.Hsv(hue, 0.85, 0.95).Clamped().RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}
}

// TextColor returns black or white, whichever reads better on the background.
func TextColor(background color.Color) color.RGBA {
	c, ok := colorful.MakeColor(background)
	if !ok {
		return color.RGBA{A: 255}
	}
	if l, _, _ := c.Lab(); l > 0.6 {
		return color.RGBA{A: 255}
	}
	return color.RGBA{R: 255, G: 255, B: 255, A: 255}
}
