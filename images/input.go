package images

import (
	"bytes"
	"image"
	"os"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// ErrInvalidInput is returned when an input cannot be turned into a non-empty image.
var ErrInvalidInput = errors.New("invalid input image")

// Input is an image source accepted by the detector.
//
// Every source decodes to the same representation, a non-empty *image.NRGBA in RGB channel
// order.
type Input interface {
	// Decode returns the image as NRGBA.
	Decode() (*image.NRGBA, error)
}

// FromPath returns an Input that reads and decodes a file. JPEG, PNG, WebP, BMP, GIF and TIFF
// are supported, and JPEG EXIF orientation is applied.
func FromPath(path string) Input {
	return pathInput(path)
}

// FromBytes returns an Input that decodes an encoded image held in memory.
func FromBytes(data []byte) Input {
	return bytesInput(data)
}

// FromMat returns an Input backed by an OpenCV matrix. Three-channel matrices are taken to be
// BGR, as produced by gocv.IMRead. The matrix is not closed.
func FromMat(mat gocv.Mat) Input {
	return matInput{mat: mat}
}

// FromImage returns an Input backed by a decoded image.
func FromImage(img image.Image) Input {
	return imageInput{img: img}
}

type pathInput string

func (p pathInput) Decode() (*image.NRGBA, error) {
	data, err := os.ReadFile(string(p))
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidInput, "reading %s: %v", string(p), err)
	}
	img, err := decode(data)
	if err != nil {
		return nil, errors.Wrapf(err, "decoding %s", string(p))
	}
	return img, nil
}

type bytesInput []byte

func (b bytesInput) Decode() (*image.NRGBA, error) {
	return decode(b)
}

type matInput struct {
	mat gocv.Mat
}

func (m matInput) Decode() (*image.NRGBA, error) {
	if m.mat.Empty() {
		return nil, errors.Wrap(ErrInvalidInput, "empty matrix")
	}
	img, err := m.mat.ToImage()
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidInput, "converting matrix: %v", err)
	}
	return normalize(img)
}

type imageInput struct {
	img image.Image
}

func (i imageInput) Decode() (*image.NRGBA, error) {
	return normalize(i.img)
}

// decode sniffs the container and decodes it.
func decode(data []byte) (*image.NRGBA, error) {
	if len(data) == 0 {
		return nil, errors.Wrap(ErrInvalidInput, "no image data")
	}

	var (
		img image.Image
		err error
	)
	if isWebP(data) {
		img, err = webp.Decode(bytes.NewReader(data))
	} else {
		img, err = imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	}
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidInput, "decoding image: %v", err)
	}
	return normalize(img)
}

// isWebP reports whether data starts with a RIFF/WEBP header.
func isWebP(data []byte) bool {
	return len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WEBP"
}

// normalize converts any image to a zero-origin NRGBA copy.
func normalize(img image.Image) (*image.NRGBA, error) {
	if img == nil {
		return nil, errors.Wrap(ErrInvalidInput, "nil image")
	}
	if b := img.Bounds(); b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, errors.Wrapf(ErrInvalidInput, "empty image %v", b)
	}
	return imaging.Clone(img), nil
}
