package imaging

import (
	"errors"
	"image"
	"image/color"
	"testing"
)

func solid(w, h int, c color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestDecode_Invalid(t *testing.T) {
	if _, _, err := Decode(nil); !errors.Is(err, ErrEmptyInput) {
		t.Errorf("Decode(nil): got %v, want ErrEmptyInput", err)
	}
	if _, _, err := Decode([]byte("definitely not an image")); err == nil {
		t.Error("Decode: expected error for non-image bytes")
	}
}

func TestEncodeDecode_PreservesSize(t *testing.T) {
	data, err := EncodeJPEG(solid(64, 48, color.White), 90)
	if err != nil {
		t.Fatalf("EncodeJPEG: %v", err)
	}
	img, format, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if format != "jpeg" {
		t.Errorf("format: got %q, want jpeg", format)
	}
	if img.Bounds().Dx() != 64 || img.Bounds().Dy() != 48 {
		t.Errorf("size: got %v, want 64x48", img.Bounds())
	}
}

func TestEncodeJPEG_Empty(t *testing.T) {
	if _, err := EncodeJPEG(image.NewNRGBA(image.Rect(0, 0, 0, 0)), 90); err == nil {
		t.Error("EncodeJPEG: expected error for empty image")
	}
}

func TestCrop(t *testing.T) {
	src := solid(100, 80, color.Black)
	src.Set(10, 20, color.White)

	tests := []struct {
		name   string
		rect   image.Rectangle
		expect image.Rectangle
	}{
		{name: "inside", rect: image.Rect(10, 20, 40, 50), expect: image.Rect(0, 0, 30, 30)},
		{name: "overflow is intersected", rect: image.Rect(90, 70, 200, 200), expect: image.Rect(0, 0, 10, 10)},
		{name: "outside is empty", rect: image.Rect(150, 150, 160, 160), expect: image.Rect(0, 0, 0, 0)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Crop(src, tc.rect)
			if got.Bounds() != tc.expect {
				t.Errorf("Crop bounds: got %v, want %v", got.Bounds(), tc.expect)
			}
		})
	}

	got := Crop(src, image.Rect(10, 20, 40, 50))
	r, _, _, _ := got.At(0, 0).RGBA()
	if r != 0xffff {
		t.Errorf("Crop origin pixel: got red %d, want white", r)
	}
}

func TestCrop_SubImageOrigin(t *testing.T) {
	src := solid(100, 80, color.Black)
	src.Set(30, 30, color.White)
	sub := src.SubImage(image.Rect(20, 20, 60, 60))

	got := Crop(sub, image.Rect(10, 10, 20, 20))
	r, _, _, _ := got.At(0, 0).RGBA()
	if r != 0xffff {
		t.Errorf("Crop should be relative to the sub image origin, got red %d", r)
	}
}

func TestResize(t *testing.T) {
	tests := []struct {
		name    string
		w, h    int
		factor  float64
		expectW int
		expectH int
	}{
		{name: "half", w: 1000, h: 800, factor: 0.5, expectW: 500, expectH: 400},
		{name: "rounding", w: 3, h: 3, factor: 0.5, expectW: 2, expectH: 2},
		{name: "vanishes", w: 1, h: 1, factor: 0.1, expectW: 0, expectH: 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Resize(solid(tc.w, tc.h, color.White), tc.factor)
			if got.Bounds().Dx() != tc.expectW || got.Bounds().Dy() != tc.expectH {
				t.Errorf("Resize: got %dx%d, want %dx%d", got.Bounds().Dx(), got.Bounds().Dy(), tc.expectW, tc.expectH)
			}
		})
	}
}

func TestConcatHorizontal(t *testing.T) {
	out, err := ConcatHorizontal([]image.Image{solid(10, 20, color.White), solid(30, 20, color.Black)})
	if err != nil {
		t.Fatalf("ConcatHorizontal: %v", err)
	}
	if out.Bounds().Dx() != 40 || out.Bounds().Dy() != 20 {
		t.Errorf("ConcatHorizontal: got %v, want 40x20", out.Bounds())
	}
	r, _, _, _ := out.At(5, 5).RGBA()
	if r != 0xffff {
		t.Error("ConcatHorizontal: first image should be on the left")
	}
	r, _, _, _ = out.At(15, 5).RGBA()
	if r != 0 {
		t.Error("ConcatHorizontal: second image should follow the first")
	}

	if _, err := ConcatHorizontal([]image.Image{solid(10, 20, color.White), solid(10, 21, color.White)}); !errors.Is(err, ErrHeightMismatch) {
		t.Errorf("ConcatHorizontal mismatch: got %v, want ErrHeightMismatch", err)
	}
}
