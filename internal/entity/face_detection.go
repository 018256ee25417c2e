package entity

import "image"

// BoundingBox is a pixel rectangle expressed in one reference frame (original image, working
// image or detection frame).
type BoundingBox struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (b BoundingBox) Area() int {
	return b.Width * b.Height
}

func (b BoundingBox) Empty() bool {
	return b.Width <= 0 || b.Height <= 0
}

func (b BoundingBox) Rect() image.Rectangle {
	return image.Rect(b.X, b.Y, b.X+b.Width, b.Y+b.Height)
}

func (b BoundingBox) Offset(dx, dy int) BoundingBox {
	return BoundingBox{X: b.X + dx, Y: b.Y + dy, Width: b.Width, Height: b.Height}
}

// ClampTo intersects the box with a width x height frame anchored at the origin.
func (b BoundingBox) ClampTo(width, height int) BoundingBox {
	r := b.Rect().Intersect(image.Rect(0, 0, width, height))
	if r.Empty() {
		return BoundingBox{X: r.Min.X, Y: r.Min.Y}
	}
	return BoundingBoxFromRect(r)
}

func BoundingBoxFromRect(r image.Rectangle) BoundingBox {
	return BoundingBox{X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy()}
}

// Candidate is a face proposed by a detector backend. Confidence is in [0,1]; the Haar backend
// leaves it at zero.
type Candidate struct {
	Box        BoundingBox `json:"box"`
	Confidence float64     `json:"confidence,omitempty"`
}

// FaceCrop is the packaged outcome of a successful detection request.
type FaceCrop struct {
	Image  []byte        `json:"-"`
	Width  int           `json:"width"`
	Height int           `json:"height"`
	Faces  []BoundingBox `json:"faces"`
}
