package detectionService

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"FaceCrop/internal/api/detection"
	"FaceCrop/internal/entity"
	"FaceCrop/pkg/detector"
	"FaceCrop/pkg/imaging"
	"FaceCrop/pkg/log"
	"FaceCrop/pkg/redis"
	"FaceCrop/pkg/response"
)

const archiveTimeout = 30 * time.Second

func (s *detectionService) DetectFace(ctx context.Context, data []byte, req detection.DetectRequest) (*entity.FaceCrop, error) {
	img, err := decode(data)
	if err != nil {
		return nil, err
	}

	params, err := s.resolveParams(req)
	if err != nil {
		return nil, err
	}

	cacheKey := s.cacheKey(data, params)
	if cached := s.cachedCrop(ctx, cacheKey); cached != nil {
		return cached, nil
	}

	faces, err := s.locate(ctx, img, params)
	if err != nil {
		return nil, err
	}

	crop, err := s.render(img, faces)
	if err != nil {
		return nil, err
	}

	s.storeCrop(ctx, cacheKey, crop)
	s.archiveCrop(crop)

	return crop, nil
}

func (s *detectionService) DetectFrame(ctx context.Context, frame []byte) (*detection.FrameResponse, error) {
	img, err := decode(frame)
	if err != nil {
		return nil, err
	}

	faces, err := s.locate(ctx, img, s.config.Defaults)
	if err != nil {
		return nil, err
	}

	return &detection.FrameResponse{
		Width:  img.Bounds().Dx(),
		Height: img.Bounds().Dy(),
		Faces:  faces,
	}, nil
}

func decode(data []byte) (image.Image, error) {
	img, _, err := imaging.Decode(data)
	if err != nil {
		return nil, response.WithCause(detection.ErrDecode, err)
	}
	return img, nil
}

// locate runs detection and returns the selected faces in the frame of img.
func (s *detectionService) locate(ctx context.Context, img image.Image, p detection.Params) ([]entity.BoundingBox, error) {
	bounds := img.Bounds()
	region := image.Rect(0, 0, bounds.Dx(), bounds.Dy())
	if p.Region != nil {
		region = ClampRegion(*p.Region, bounds.Dx(), bounds.Dy())
	}
	if region.Empty() {
		return nil, detection.NewFaceNotFound(detection.ReasonNoneDetected)
	}

	var working image.Image = img
	if p.Region != nil || bounds.Min != (image.Point{}) {
		working = imaging.Crop(img, region)
	}

	scale := p.Scale
	detectImg := working
	if scale < 1 {
		detectImg = imaging.Resize(working, scale)
	} else {
		scale = 1
	}

	candidates, err := s.detect(ctx, detectImg, detector.Config{
		ScaleFactor:  p.ScaleFactor,
		MinNeighbors: p.MinNeighbors,
		MinSize:      int(float64(p.CascadeMinSize) * scale),
		Confidence:   p.Confidence,
	})
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, detection.NewFaceNotFound(detection.ReasonNoneDetected)
	}

	candidates = reconcile(candidates, scale, region.Dx(), region.Dy())
	if len(candidates) == 0 {
		return nil, detection.NewFaceNotFound(detection.ReasonNoneDetected)
	}

	candidates = filterMinSize(candidates, p.MinSize)
	if len(candidates) == 0 {
		return nil, detection.NewFaceNotFound(detection.ReasonBelowMinSize)
	}

	if p.Mode != detection.ModeLargestArea && !detector.RanksByConfidence(s.config.Backend) {
		s.log.WithFields(log.Fields{
			"backend": s.config.Backend,
			"mode":    p.Mode,
		}).Debug("Backend reports no confidence, keeping detector order")
	}

	selected := selectFaces(candidates, p.Mode)
	faces := make([]entity.BoundingBox, len(selected))
	for i, c := range selected {
		faces[i] = c.Box.Offset(region.Min.X, region.Min.Y)
	}

	return faces, nil
}

func (s *detectionService) detect(ctx context.Context, img image.Image, cfg detector.Config) ([]entity.Candidate, error) {
	d, release, err := s.pool.Acquire(cfg)
	if err != nil {
		return nil, response.WithCause(detection.ErrInternalServerError, fmt.Errorf("acquire detector: %w", err))
	}
	defer release()

	candidates, err := d.Detect(ctx, img)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, response.WithCause(detection.ErrInternalServerError, fmt.Errorf("detect faces: %w", err))
	}

	return candidates, nil
}

// render crops every face out of img and packages the encoded result. Several faces are laid
// out left to right and must share the same height.
func (s *detectionService) render(img image.Image, faces []entity.BoundingBox) (*entity.FaceCrop, error) {
	crops := make([]image.Image, len(faces))
	for i, f := range faces {
		crops[i] = imaging.Crop(img, f.Rect())
	}

	var out image.Image = crops[0]
	if len(crops) > 1 {
		height := crops[0].Bounds().Dy()
		for _, c := range crops[1:] {
			if c.Bounds().Dy() != height {
				return nil, detection.ErrConcatenation
			}
		}

		joined, err := imaging.ConcatHorizontal(crops)
		if err != nil {
			return nil, response.WithCause(detection.ErrConcatenation, err)
		}
		out = joined
	}

	encoded, err := imaging.EncodeJPEG(out, s.config.JPEGQuality)
	if err != nil {
		return nil, response.WithCause(detection.ErrInternalServerError, fmt.Errorf("encode crop: %w", err))
	}

	return &entity.FaceCrop{
		Image:  encoded,
		Width:  out.Bounds().Dx(),
		Height: out.Bounds().Dy(),
		Faces:  faces,
	}, nil
}

// ClampRegion fits a requested region into a width x height image. The result never extends past
// the image and never has its end before its start.
func ClampRegion(r detection.CropRegion, width, height int) image.Rectangle {
	sx := clamp(r.StartX, 0, width)
	sy := clamp(r.StartY, 0, height)
	ex := clamp(r.EndX, sx, width)
	ey := clamp(r.EndY, sy, height)
	return image.Rectangle{Min: image.Pt(sx, sy), Max: image.Pt(ex, ey)}
}

// reconcile maps detector boxes back to the working frame. Each field is divided by scale and
// truncated on its own, so a remapped box can be one pixel off its exact size.
func reconcile(candidates []entity.Candidate, scale float64, width, height int) []entity.Candidate {
	out := make([]entity.Candidate, 0, len(candidates))
	for _, c := range candidates {
		b := c.Box
		if scale < 1 {
			b = entity.BoundingBox{
				X:      int(float64(b.X) / scale),
				Y:      int(float64(b.Y) / scale),
				Width:  int(float64(b.Width) / scale),
				Height: int(float64(b.Height) / scale),
			}
		}
		b = b.ClampTo(width, height)
		if b.Empty() {
			continue
		}
		out = append(out, entity.Candidate{Box: b, Confidence: c.Confidence})
	}
	return out
}

func filterMinSize(candidates []entity.Candidate, minSize int) []entity.Candidate {
	out := make([]entity.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Box.Width >= minSize && c.Box.Height >= minSize {
			out = append(out, c)
		}
	}
	return out
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

func (s *detectionService) cacheKey(data []byte, p detection.Params) string {
	if s.cache == nil {
		return ""
	}
	fields := []string{
		s.config.Backend,
		string(p.Mode),
		fmt.Sprint(p.Scale, p.ScaleFactor, p.MinNeighbors, p.MinSize, p.CascadeMinSize, p.Confidence),
		fmt.Sprint(s.config.JPEGQuality),
	}
	if p.Region != nil {
		fields = append(fields, fmt.Sprint(p.Region.StartX, p.Region.StartY, p.Region.EndX, p.Region.EndY))
	}
	return s.utils.Digest(data, fields...)
}

func (s *detectionService) cachedCrop(ctx context.Context, key string) *entity.FaceCrop {
	if s.cache == nil {
		return nil
	}
	crop, err := s.cache.GetFaceCrop(ctx, key)
	if err != nil {
		if !errors.Is(err, redis.ErrCacheMiss) {
			log.WithRequestID(ctx).WithField("error", err.Error()).Warn("Result cache lookup failed")
		}
		return nil
	}
	return crop
}

func (s *detectionService) storeCrop(ctx context.Context, key string, crop *entity.FaceCrop) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SetFaceCrop(ctx, key, crop, s.config.CacheTTL); err != nil {
		log.WithRequestID(ctx).WithField("error", err.Error()).Warn("Failed to cache face crop")
	}
}

func (s *detectionService) archiveCrop(crop *entity.FaceCrop) {
	if s.archive == nil {
		return
	}

	key, err := s.utils.NewULIDFromTimestamp(time.Now())
	if err != nil {
		s.log.WithFields(log.Fields{"error": err.Error()}).Warn("Failed to name archived crop")
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
		defer cancel()

		location, err := s.archive.UploadCrop(ctx, key, crop.Image)
		if err != nil {
			s.log.WithFields(log.Fields{
				"key":   key,
				"error": err.Error(),
			}).Error("Failed to archive face crop")
			return
		}
		s.log.WithFields(log.Fields{
			"key":      key,
			"location": location,
		}).Debug("Archived face crop")
	}()
}
