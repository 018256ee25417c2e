//go:build gocv

package detector

import (
	"context"
	"fmt"
	"image"
	"sync"

	"FaceCrop/internal/entity"
	"gocv.io/x/gocv"
)

// HaarDetector runs an OpenCV Haar cascade. CascadeClassifier is not safe for concurrent use, so
// inference is serialized.
type HaarDetector struct {
	mu         sync.Mutex
	classifier gocv.CascadeClassifier
	config     Config
}

func NewHaar(cascadePath string, cfg Config) (*HaarDetector, error) {
	classifier := gocv.NewCascadeClassifier()
	if !classifier.Load(cascadePath) {
		classifier.Close()
		return nil, fmt.Errorf("error loading haar cascade file: %s", cascadePath)
	}
	if cfg.ScaleFactor <= 1 {
		cfg.ScaleFactor = 1.1
	}
	return &HaarDetector{classifier: classifier, config: cfg}, nil
}

func (d *HaarDetector) Detect(ctx context.Context, img image.Image) ([]entity.Candidate, error) {
	if img.Bounds().Empty() {
		return nil, nil
	}

	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, fmt.Errorf("convert image: %w", err)
	}
	defer mat.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(mat, &gray, gocv.ColorRGBToGray)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	rects := d.classifier.DetectMultiScaleWithParams(
		gray,
		d.config.ScaleFactor,
		d.config.MinNeighbors,
		0,
		image.Pt(d.config.MinSize, d.config.MinSize),
		image.Point{},
	)
	d.mu.Unlock()

	candidates := make([]entity.Candidate, 0, len(rects))
	for _, r := range rects {
		candidates = append(candidates, entity.Candidate{Box: entity.BoundingBoxFromRect(r)})
	}
	return candidates, nil
}

func (d *HaarDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.classifier.Close()
	return nil
}
