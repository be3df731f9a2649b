package images

import (
	"image"
	"io"
	"os"
	"path/filepath"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
)

// JPEGQuality is the quality used for JPEG output.
const JPEGQuality = 95

// WebPQuality is the quality used for lossy WebP output.
const WebPQuality = 90

var imagingFormats = map[ImageFormat]imaging.Format{
	FormatJPEG: imaging.JPEG,
	FormatPNG:  imaging.PNG,
	FormatBMP:  imaging.BMP,
	FormatGIF:  imaging.GIF,
	FormatTIFF: imaging.TIFF,
}

// Encode writes the image to w in the given format.
//
// Arguments:
//   - w: The destination.
//   - img: The image to encode.
//   - format: The output format.
//
// Returns:
//   - error: An error if the format is unsupported or encoding fails.
func Encode(w io.Writer, img image.Image, format ImageFormat) error {
	if format == FormatWebP {
		return errors.Wrap(webp.Encode(w, img, &webp.Options{Quality: WebPQuality}), "encoding webp")
	}
	f, ok := imagingFormats[format]
	if !ok {
		return errors.Wrapf(ErrUnsupportedFormat, "format %q", format)
	}
	return errors.Wrapf(imaging.Encode(w, img, f, imaging.JPEGQuality(JPEGQuality)), "encoding %s", format)
}

// Save writes the image to path, choosing the format from the extension and creating parent
// directories as needed.
//
// Arguments:
//   - img: The image to save.
//   - path: The destination file.
//
// Returns:
//   - error: An error if the extension is unsupported or the file cannot be written.
func Save(img image.Image, path string) (err error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "creating directory for %s", path)
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating %s", path)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = errors.Wrapf(cerr, "closing %s", path)
		}
	}()

	return Encode(f, img, format)
}

// Open reads and decodes an image file.
func Open(path string) (*image.NRGBA, error) {
	return FromPath(path).Decode()
}

// Crop returns a copy of the region of img inside r.
//
// Arguments:
//   - img: The source image.
//   - r: The region, clamped to the image bounds.
//
// Returns:
//   - *image.NRGBA: The cropped copy.
//   - error: An error if the region does not overlap the image.
func Crop(img image.Image, r Rect) (*image.NRGBA, error) {
	c := r.Clamp(img.Bounds())
	if c.Empty() {
		return nil, errors.Errorf("crop %v is outside image bounds %v", r, img.Bounds())
	}
	return imaging.Crop(img, c.Rectangle()), nil
}
