// Package images - Image decoding, drawing and encoding for detection inputs and outputs.
package images

import (
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// ImageFormat represents supported image formats
type ImageFormat string

// ImageFormat constants
const (
	// FormatJPEG is the JPEG image format.
	FormatJPEG ImageFormat = "jpeg"
	// FormatPNG is the PNG image format.
	FormatPNG ImageFormat = "png"
	// FormatWebP is the WebP image format.
	FormatWebP ImageFormat = "webp"
	// FormatBMP is the BMP image format.
	FormatBMP ImageFormat = "bmp"
	// FormatGIF is the GIF image format.
	FormatGIF ImageFormat = "gif"
	// FormatTIFF is the TIFF image format.
	FormatTIFF ImageFormat = "tiff"
)

var extensions = map[string]ImageFormat{
	".jpg":  FormatJPEG,
	".jpeg": FormatJPEG,
	".png":  FormatPNG,
	".webp": FormatWebP,
	".bmp":  FormatBMP,
	".gif":  FormatGIF,
	".tif":  FormatTIFF,
	".tiff": FormatTIFF,
}

// ErrUnsupportedFormat is returned for file extensions with no encoder.
var ErrUnsupportedFormat = errors.New("unsupported image format")

// FormatFromPath returns the image format implied by a file extension.
//
// Arguments:
//   - path: A file path such as "out/detected.jpg".
//
// Returns:
//   - ImageFormat: The format.
//   - error: ErrUnsupportedFormat if the extension is unknown.
func FormatFromPath(path string) (ImageFormat, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if f, ok := extensions[ext]; ok {
		return f, nil
	}
	return "", errors.Wrapf(ErrUnsupportedFormat, "extension %q", ext)
}
