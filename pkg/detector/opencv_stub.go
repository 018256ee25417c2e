//go:build !gocv

package detector

import "errors"

var errNoOpenCV = errors.New("built without OpenCV support, rebuild with -tags gocv")

// NewHaar is unavailable without the gocv build tag.
func NewHaar(cascadePath string, cfg Config) (Detector, error) {
	return nil, errNoOpenCV
}

// NewYuNet is unavailable without the gocv build tag.
func NewYuNet(modelPath string, cfg Config) (Detector, error) {
	return nil, errNoOpenCV
}
