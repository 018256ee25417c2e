package detector

import (
	"context"
	"fmt"
	"image"

	"FaceCrop/internal/entity"
	pigo "github.com/esimov/pigo/core"
)

const (
	pigoShiftFactor = 0.1
	pigoIoU         = 0.2
	pigoMinWindow   = 20
	// pigoQualityThreshold drops weak cascade hits; pigo scores are unbounded.
	pigoQualityThreshold = 5.0
	// pigoQualityHalf is the score that maps to confidence 0.5.
	pigoQualityHalf = 20.0
)

// pigoConfidence maps an unbounded cascade score onto [0,1) keeping the order of scores.
func pigoConfidence(q float32) float64 {
	if q <= 0 {
		return 0
	}
	return float64(q) / (float64(q) + pigoQualityHalf)
}

// PigoDetector runs the pigo pixel intensity cascade. The unpacked classifier is only read
// during detection, so one instance serves concurrent calls.
type PigoDetector struct {
	classifier *pigo.Pigo
	config     Config
}

func NewPigo(cascade []byte, cfg Config) (d *PigoDetector, err error) {
	// Unpack indexes into the packet without bounds checks.
	defer func() {
		if r := recover(); r != nil {
			d, err = nil, fmt.Errorf("unpack pigo cascade: %v", r)
		}
	}()

	classifier, err := pigo.NewPigo().Unpack(cascade)
	if err != nil {
		return nil, fmt.Errorf("unpack pigo cascade: %w", err)
	}
	if cfg.ScaleFactor <= 1 {
		cfg.ScaleFactor = 1.1
	}
	return &PigoDetector{classifier: classifier, config: cfg}, nil
}

func (d *PigoDetector) Detect(ctx context.Context, img image.Image) ([]entity.Candidate, error) {
	src := pigo.ImgToNRGBA(img)
	cols, rows := src.Bounds().Dx(), src.Bounds().Dy()
	if cols == 0 || rows == 0 {
		return nil, nil
	}

	minSize := max(d.config.MinSize, pigoMinWindow)
	maxSize := max(cols, rows)
	if minSize > maxSize {
		return nil, nil
	}

	params := pigo.CascadeParams{
		MinSize:     minSize,
		MaxSize:     maxSize,
		ShiftFactor: pigoShiftFactor,
		ScaleFactor: d.config.ScaleFactor,
		ImageParams: pigo.ImageParams{
			Pixels: pigo.RgbToGrayscale(src),
			Rows:   rows,
			Cols:   cols,
			Dim:    cols,
		},
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dets := d.classifier.RunCascade(params, 0)
	dets = d.classifier.ClusterDetections(dets, pigoIoU)

	var candidates []entity.Candidate
	for _, det := range dets {
		if det.Q < pigoQualityThreshold {
			continue
		}
		candidates = append(candidates, entity.Candidate{
			Box: entity.BoundingBox{
				X:      det.Col - det.Scale/2,
				Y:      det.Row - det.Scale/2,
				Width:  det.Scale,
				Height: det.Scale,
			},
			Confidence: pigoConfidence(det.Q),
		})
	}

	return candidates, nil
}

func (d *PigoDetector) Close() error {
	return nil
}
