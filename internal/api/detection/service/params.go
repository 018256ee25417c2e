package detectionService

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"FaceCrop/internal/api/detection"
	"FaceCrop/pkg/response"
)

// resolveParams merges the request fields over the configured defaults. Crop bounds are
// checked first so a malformed region is always reported as such.
func (s *detectionService) resolveParams(req detection.DetectRequest) (detection.Params, error) {
	req = trimRequest(req)
	p := s.config.Defaults

	region, err := parseRegion(req)
	if err != nil {
		return p, err
	}
	if region != nil {
		p.Region = region
	} else if p.Region != nil {
		r := *p.Region
		p.Region = &r
	}

	if err := s.validator.Struct(req); err != nil {
		return p, response.WithCause(detection.ErrInvalidParameter, err)
	}

	if req.Mode != "" {
		p.Mode = detection.Mode(req.Mode)
	}
	if req.Scale != "" {
		if p.Scale, err = strconv.ParseFloat(req.Scale, 64); err != nil {
			return p, invalidParameter("scale", err)
		}
	}
	if req.ScaleFactor != "" {
		if p.ScaleFactor, err = strconv.ParseFloat(req.ScaleFactor, 64); err != nil {
			return p, invalidParameter("scaleFactor", err)
		}
	}
	if req.MinNeighbors != "" {
		if p.MinNeighbors, err = strconv.Atoi(req.MinNeighbors); err != nil {
			return p, invalidParameter("minNeighbors", err)
		}
	}
	if req.MinSize != "" {
		if p.MinSize, err = strconv.Atoi(req.MinSize); err != nil {
			return p, invalidParameter("minSize", err)
		}
		p.CascadeMinSize = p.MinSize
	}
	if req.Confidence != "" {
		if p.Confidence, err = strconv.ParseFloat(req.Confidence, 64); err != nil {
			return p, invalidParameter("confidence", err)
		}
	}

	if err := CheckParams(p); err != nil {
		return p, err
	}
	return p, nil
}

// CheckParams rejects values no backend can work with.
func CheckParams(p detection.Params) error {
	switch {
	case !p.Mode.Valid():
		return invalidParameter("mode", fmt.Errorf("unknown mode %q", p.Mode))
	case !finite(p.Scale) || p.Scale <= 0:
		return invalidParameter("scale", fmt.Errorf("%v is not positive", p.Scale))
	case !finite(p.ScaleFactor) || p.ScaleFactor <= 1:
		return invalidParameter("scaleFactor", fmt.Errorf("%v must be greater than 1", p.ScaleFactor))
	case p.MinNeighbors < 0:
		return invalidParameter("minNeighbors", fmt.Errorf("%d is negative", p.MinNeighbors))
	case p.MinSize < 0 || p.CascadeMinSize < 0:
		return invalidParameter("minSize", fmt.Errorf("%d is negative", p.MinSize))
	case math.IsNaN(p.Confidence) || p.Confidence < 0 || p.Confidence > 1:
		return invalidParameter("confidence", fmt.Errorf("%v is outside [0, 1]", p.Confidence))
	}
	return nil
}

// parseRegion returns the requested crop region, or nil when the request does not supply all
// four bounds. startX/startY/endX/endY take precedence over x1/y1/x2/y2.
func parseRegion(req detection.DetectRequest) (*detection.CropRegion, error) {
	fields := [4]string{
		firstNonEmpty(req.StartX, req.X1),
		firstNonEmpty(req.StartY, req.Y1),
		firstNonEmpty(req.EndX, req.X2),
		firstNonEmpty(req.EndY, req.Y2),
	}

	var bounds [4]int
	complete := true
	for i, f := range fields {
		if f == "" {
			complete = false
			continue
		}
		v, err := strconv.Atoi(f)
		if err != nil {
			return nil, response.WithCause(detection.ErrInvalidCropRange, err)
		}
		bounds[i] = v
	}
	if !complete {
		return nil, nil
	}

	return &detection.CropRegion{
		StartX: bounds[0],
		StartY: bounds[1],
		EndX:   bounds[2],
		EndY:   bounds[3],
	}, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func invalidParameter(field string, err error) error {
	return response.WithCause(detection.ErrInvalidParameter, fmt.Errorf("%s: %w", field, err))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func trimRequest(req detection.DetectRequest) detection.DetectRequest {
	for _, f := range []*string{
		&req.Mode, &req.Scale, &req.ScaleFactor, &req.MinNeighbors, &req.MinSize, &req.Confidence,
		&req.StartX, &req.StartY, &req.EndX, &req.EndY,
		&req.X1, &req.Y1, &req.X2, &req.Y2,
	} {
		*f = strings.TrimSpace(*f)
	}
	return req
}
