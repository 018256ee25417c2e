// Package imaging holds the raster operations used by the detection pipeline. Every operation
// returns a fresh image whose bounds start at the origin.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"math"

	"github.com/nfnt/resize"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const DefaultJPEGQuality = 95

var (
	ErrEmptyInput     = errors.New("empty image data")
	ErrHeightMismatch = errors.New("images have different heights")
)

// Decode parses any registered format (jpeg, png, gif, bmp, tiff, webp).
func Decode(data []byte) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", ErrEmptyInput
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", err)
	}
	return img, format, nil
}

// Crop copies the part of img inside r. r is interpreted relative to the top-left corner of
// img and is intersected with its bounds.
func Crop(img image.Image, r image.Rectangle) *image.NRGBA {
	b := img.Bounds()
	r = r.Add(b.Min).Intersect(b)
	dst := image.NewNRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	if r.Empty() {
		return dst
	}
	draw.Draw(dst, dst.Bounds(), img, r.Min, draw.Src)
	return dst
}

// ScaledSize returns the dimensions of img resized by factor, rounded to the nearest pixel.
func ScaledSize(img image.Image, factor float64) (int, int) {
	b := img.Bounds()
	return int(math.Round(float64(b.Dx()) * factor)), int(math.Round(float64(b.Dy()) * factor))
}

// Resize scales img by factor with bilinear interpolation. A result that rounds to zero pixels
// on either side yields an empty image.
func Resize(img image.Image, factor float64) image.Image {
	w, h := ScaledSize(img, factor)
	if w <= 0 || h <= 0 {
		return image.NewNRGBA(image.Rect(0, 0, 0, 0))
	}
	return resize.Resize(uint(w), uint(h), img, resize.Bilinear)
}

// ConcatHorizontal places images left to right. All images must share the same height.
func ConcatHorizontal(imgs []image.Image) (*image.NRGBA, error) {
	if len(imgs) == 0 {
		return nil, errors.New("nothing to concatenate")
	}

	height := imgs[0].Bounds().Dy()
	width := 0
	for _, img := range imgs {
		if img.Bounds().Dy() != height {
			return nil, ErrHeightMismatch
		}
		width += img.Bounds().Dx()
	}

	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	x := 0
	for _, img := range imgs {
		b := img.Bounds()
		draw.Draw(dst, image.Rect(x, 0, x+b.Dx(), height), img, b.Min, draw.Src)
		x += b.Dx()
	}
	return dst, nil
}

func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	if quality <= 0 || quality > 100 {
		quality = DefaultJPEGQuality
	}
	if img.Bounds().Empty() {
		return nil, errors.New("cannot encode an empty image")
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
