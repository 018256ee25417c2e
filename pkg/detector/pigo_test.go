package detector

import (
	"context"
	"go/build"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"runtime/debug"
	"testing"
)

const pigoModulePath = "github.com/esimov/pigo"

// pigoModuleDir locates the pigo module source, which ships the facefinder cascade and a sample
// portrait. PIGO_MODULE_DIR overrides the module cache lookup.
func pigoModuleDir() string {
	if dir := os.Getenv("PIGO_MODULE_DIR"); dir != "" {
		return dir
	}

	version := "v1.4.6"
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, dep := range info.Deps {
			if dep.Path == pigoModulePath {
				version = dep.Version
			}
		}
	}

	cache := os.Getenv("GOMODCACHE")
	if cache == "" {
		gopath := filepath.SplitList(build.Default.GOPATH)
		if len(gopath) == 0 {
			return ""
		}
		cache = filepath.Join(gopath[0], "pkg", "mod")
	}
	return filepath.Join(cache, "github.com", "esimov", "pigo@"+version)
}

// findCascade returns the facefinder cascade path, honouring PIGO_CASCADE_PATH.
func findCascade() string {
	candidates := []string{
		os.Getenv("PIGO_CASCADE_PATH"),
		filepath.Join(pigoModuleDir(), "cascade", "facefinder"),
	}
	for _, c := range candidates {
		if c == "" {
			continue
		}
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	return ""
}

func loadPigo(t *testing.T, cfg Config) *PigoDetector {
	t.Helper()

	path := findCascade()
	if path == "" {
		t.Skip("pigo cascade not found, set PIGO_CASCADE_PATH")
	}
	cascade, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read cascade: %v", err)
	}

	d, err := NewPigo(cascade, cfg)
	if err != nil {
		t.Fatalf("NewPigo: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

func TestNewPigo_InvalidCascade(t *testing.T) {
	if _, err := NewPigo([]byte("not a cascade"), Config{}); err == nil {
		t.Error("expected error for invalid cascade data")
	}
}

func TestPigoDetect_SolidImage(t *testing.T) {
	d := loadPigo(t, Config{ScaleFactor: 1.1, MinSize: 20})

	img := image.NewNRGBA(image.Rect(0, 0, 200, 200))
	for y := 0; y < 200; y++ {
		for x := 0; x < 200; x++ {
			img.Set(x, y, color.Gray{Y: 128})
		}
	}

	faces, err := d.Detect(context.Background(), img)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(faces) != 0 {
		t.Errorf("solid image should contain no faces, got %d", len(faces))
	}

	faces, err = d.Detect(context.Background(), image.NewNRGBA(image.Rect(0, 0, 0, 0)))
	if err != nil || len(faces) != 0 {
		t.Errorf("empty image: got %v, %v", faces, err)
	}
}

func TestPigoDetect_SamplePortrait(t *testing.T) {
	d := loadPigo(t, Config{ScaleFactor: 1.1, MinSize: 80})

	f, err := os.Open(filepath.Join(pigoModuleDir(), "testdata", "sample.jpg"))
	if err != nil {
		t.Skipf("pigo sample image not found: %v", err)
	}
	defer f.Close()

	img, err := jpeg.Decode(f)
	if err != nil {
		t.Fatalf("decode sample: %v", err)
	}
	bounds := img.Bounds()

	faces, err := d.Detect(context.Background(), img)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(faces) == 0 {
		t.Fatal("expected at least one face in the sample portrait")
	}

	for _, face := range faces {
		box := face.Box
		if box.Width < 80 || box.Height != box.Width {
			t.Errorf("box %+v: want a square window of at least 80px", box)
		}
		center := image.Pt(box.X+box.Width/2, box.Y+box.Height/2)
		if !center.In(bounds) {
			t.Errorf("box %+v: center %v outside frame %v", box, center, bounds)
		}
		if face.Confidence <= 0 || face.Confidence >= 1 {
			t.Errorf("box %+v: confidence %v outside (0,1)", box, face.Confidence)
		}
	}
}

func TestPigoConfidence(t *testing.T) {
	tests := []struct {
		q    float32
		want float64
	}{
		{q: -3, want: 0},
		{q: 0, want: 0},
		{q: pigoQualityHalf, want: 0.5},
		{q: 3 * pigoQualityHalf, want: 0.75},
	}

	for _, tc := range tests {
		if got := pigoConfidence(tc.q); got != tc.want {
			t.Errorf("pigoConfidence(%v): got %v, want %v", tc.q, got, tc.want)
		}
	}

	if pigoConfidence(10) >= pigoConfidence(40) {
		t.Error("confidence must keep the order of cascade scores")
	}
}
