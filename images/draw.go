package images

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/goregular"
)

var font *truetype.Font

// init sets up the fonts we want to use.
func init() {
	var err error
	font, err = truetype.Parse(goregular.TTF)
	if err != nil {
		panic(err)
	}
}

// Font returns the font we use for drawing.
func Font() *truetype.Font {
	return font
}

// Annotation is one box drawn onto an image.
type Annotation struct {
	// Rect is the box in image coordinates.
	Rect Rect
	// Label is drawn above the box. Empty draws no label.
	Label string
	// Color of the box and the label background.
	Color color.Color
}

// DrawOptions controls what Annotate draws.
type DrawOptions struct {
	// DrawBox draws the box outlines.
	DrawBox bool `json:"draw_box" yaml:"draw_box"`
	// DrawLabel draws the labels.
	DrawLabel bool `json:"draw_label" yaml:"draw_label"`
	// LineWidth is the box outline width in pixels. Zero scales with the image.
	LineWidth float64 `json:"line_width" yaml:"line_width"`
	// FontSize is the label size in points. Zero scales with the image.
	FontSize float64 `json:"font_size" yaml:"font_size"`
}

// Annotate draws boxes and labels on a copy of the image.
//
// Arguments:
//   - img: The source image, left unmodified.
//   - annotations: The boxes to draw, in drawing order.
//   - opts: What to draw.
//
// Returns:
//   - *image.NRGBA: The annotated copy.
func Annotate(img image.Image, annotations []Annotation, opts DrawOptions) *image.NRGBA {
	dc := gg.NewContextForImage(img)

	short := float64(min(dc.Width(), dc.Height()))
	lineWidth := opts.LineWidth
	if lineWidth <= 0 {
		lineWidth = max(2, short/300)
	}
	fontSize := opts.FontSize
	if fontSize <= 0 {
		fontSize = max(10, short/45)
	}

	for _, a := range annotations {
		c := a.Color
		if c == nil {
			c = color.RGBA{R: 255, A: 255}
		}
		r := a.Rect.Rectangle()
		if opts.DrawBox {
			DrawRectangleEmpty(dc, r, c, lineWidth)
		}
		if opts.DrawLabel && a.Label != "" {
			drawLabel(dc, a.Label, r, c, fontSize)
		}
	}

	return imaging.Clone(dc.Image())
}

// drawLabel draws text on a filled tab above the box, or inside it when the box touches the
// top edge.
func drawLabel(dc *gg.Context, text string, r image.Rectangle, c color.Color, size float64) {
	dc.SetFontFace(truetype.NewFace(Font(), &truetype.Options{Size: size}))
	w, h := dc.MeasureString(text)
	pad := size / 4

	x := float64(r.Min.X)
	y := float64(r.Min.Y) - h - 2*pad
	if y < 0 {
		y = float64(r.Min.Y)
	}

	dc.SetColor(c)
	dc.DrawRectangle(x, y, w+2*pad, h+2*pad)
	dc.Fill()

	DrawString(dc, text, image.Pt(int(x+pad), int(y+pad)), TextColor(c), size)
}

// DrawString writes a string to the given context at a particular point.
func DrawString(dc *gg.Context, text string, p image.Point, c color.Color, size float64) {
	dc.SetFontFace(truetype.NewFace(Font(), &truetype.Options{Size: size}))
	dc.SetColor(c)
	dc.DrawStringWrapped(text, float64(p.X), float64(p.Y), 0, 0, float64(dc.Width()), 1, 0)
}

// DrawRectangleEmpty draws the given rectangle into the context. The positions of the
// rectangle are used to place it within the context.
func DrawRectangleEmpty(dc *gg.Context, r image.Rectangle, c color.Color, width float64) {
	dc.SetColor(c)
	dc.SetLineWidth(width)
	dc.DrawRectangle(float64(r.Min.X), float64(r.Min.Y), float64(r.Dx()), float64(r.Dy()))
	dc.Stroke()
}
