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

const (
	yunetNMSThreshold = 0.3
	yunetTopK         = 5000
)

// YuNetDetector runs OpenCV's FaceDetectorYN landmark network. The score threshold is baked
// into the network at construction.
type YuNetDetector struct {
	mu       sync.Mutex
	detector gocv.FaceDetectorYN
	config   Config
}

func NewYuNet(modelPath string, cfg Config) (*YuNetDetector, error) {
	detector := gocv.NewFaceDetectorYNWithParams(
		modelPath,
		"",
		image.Pt(320, 320),
		float32(cfg.Confidence),
		yunetNMSThreshold,
		yunetTopK,
		int(gocv.NetBackendDefault),
		int(gocv.NetTargetCPU),
	)

	return &YuNetDetector{detector: detector, config: cfg}, nil
}

func (d *YuNetDetector) Detect(ctx context.Context, img image.Image) ([]entity.Candidate, error) {
	if img.Bounds().Empty() {
		return nil, nil
	}

	rgb, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, fmt.Errorf("convert image: %w", err)
	}
	defer rgb.Close()

	bgr := gocv.NewMat()
	defer bgr.Close()
	gocv.CvtColor(rgb, &bgr, gocv.ColorRGBToBGR)

	faces := gocv.NewMat()
	defer faces.Close()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	d.detector.SetInputSize(image.Pt(bgr.Cols(), bgr.Rows()))
	d.detector.Detect(bgr, &faces)
	d.mu.Unlock()

	// Each row: x, y, w, h, five landmark pairs, score.
	candidates := make([]entity.Candidate, 0, faces.Rows())
	for r := 0; r < faces.Rows(); r++ {
		score := float64(faces.GetFloatAt(r, 14))
		if score < d.config.Confidence {
			continue
		}
		candidates = append(candidates, entity.Candidate{
			Box: entity.BoundingBox{
				X:      int(faces.GetFloatAt(r, 0)),
				Y:      int(faces.GetFloatAt(r, 1)),
				Width:  int(faces.GetFloatAt(r, 2)),
				Height: int(faces.GetFloatAt(r, 3)),
			},
			Confidence: score,
		})
	}

	return candidates, nil
}

func (d *YuNetDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.detector.Close()
	return nil
}
