package detection

import "FaceCrop/internal/entity"

type Mode string

const (
	ModeLargestArea       Mode = "largest-area"
	ModeHighestConfidence Mode = "highest-confidence"
	ModeAllByConfidence   Mode = "all-sorted-by-confidence-descending"
)

func (m Mode) Valid() bool {
	switch m {
	case ModeLargestArea, ModeHighestConfidence, ModeAllByConfidence:
		return true
	}
	return false
}

// DetectRequest carries the raw text fields of a detection form. Empty fields fall back to the
// configured defaults.
type DetectRequest struct {
	Mode         string `form:"mode" validate:"omitempty,oneof=largest-area highest-confidence all-sorted-by-confidence-descending"`
	Scale        string `form:"scale" validate:"omitempty,numeric"`
	ScaleFactor  string `form:"scaleFactor" validate:"omitempty,numeric"`
	MinNeighbors string `form:"minNeighbors" validate:"omitempty,number"`
	MinSize      string `form:"minSize" validate:"omitempty,number"`
	Confidence   string `form:"confidence" validate:"omitempty,numeric"`

	StartX string `form:"startX" validate:"omitempty,numeric"`
	StartY string `form:"startY" validate:"omitempty,numeric"`
	EndX   string `form:"endX" validate:"omitempty,numeric"`
	EndY   string `form:"endY" validate:"omitempty,numeric"`

	X1 string `form:"x1" validate:"omitempty,numeric"`
	Y1 string `form:"y1" validate:"omitempty,numeric"`
	X2 string `form:"x2" validate:"omitempty,numeric"`
	Y2 string `form:"y2" validate:"omitempty,numeric"`
}

// CropRegion is a region of interest requested by the caller, before clamping.
type CropRegion struct {
	StartX int
	StartY int
	EndX   int
	EndY   int
}

// Params is the resolved configuration of one detection request.
type Params struct {
	Mode         Mode
	Scale        float64
	ScaleFactor  float64
	MinNeighbors int
	// MinSize drops faces smaller than this many pixels on either side.
	MinSize int
	// CascadeMinSize is the smallest window cascade backends scan for, before scaling.
	CascadeMinSize int
	Confidence     float64
	Region         *CropRegion
}

func DefaultParams() Params {
	return Params{
		Mode:           ModeLargestArea,
		Scale:          0.5,
		ScaleFactor:    1.1,
		MinNeighbors:   2,
		MinSize:        0,
		CascadeMinSize: 80,
		Confidence:     0.5,
	}
}

type ErrorResponse struct {
	Error  string             `json:"error"`
	Reason FaceNotFoundReason `json:"reason,omitempty"`
}

// FrameResponse answers one frame of the streaming endpoint.
type FrameResponse struct {
	Width  int                  `json:"width,omitempty"`
	Height int                  `json:"height,omitempty"`
	Faces  []entity.BoundingBox `json:"faces,omitempty"`
	Error  string               `json:"error,omitempty"`
	Reason FaceNotFoundReason   `json:"reason,omitempty"`
}

type HealthResponse struct {
	Status string `json:"status"`
}
