package detection

import (
	"FaceCrop/pkg/response"
	"errors"
	"net/http"
)

var (
	ErrMissingFile         = response.NewError(http.StatusBadRequest, "no file uploaded")
	ErrFileTooLarge        = response.NewError(http.StatusRequestEntityTooLarge, "uploaded file is too large")
	ErrDecode              = response.NewError(http.StatusBadRequest, "failed to decode input image")
	ErrInvalidCropRange    = response.NewError(http.StatusBadRequest, "invalid crop range")
	ErrInvalidParameter    = response.NewError(http.StatusBadRequest, "invalid detection parameter")
	ErrConcatenation       = response.NewError(http.StatusInternalServerError, "detected faces have different heights and cannot be concatenated")
	ErrInternalServerError = response.NewError(http.StatusInternalServerError, "internal server error")
)

type FaceNotFoundReason string

const (
	ReasonNoneDetected FaceNotFoundReason = "none-detected"
	ReasonBelowMinSize FaceNotFoundReason = "below-min-size"
)

// ErrFaceNotFound matches every FaceNotFoundError regardless of reason.
var ErrFaceNotFound = &FaceNotFoundError{}

type FaceNotFoundError struct {
	Reason FaceNotFoundReason
}

func NewFaceNotFound(reason FaceNotFoundReason) error {
	return &FaceNotFoundError{Reason: reason}
}

func (e *FaceNotFoundError) Error() string {
	switch e.Reason {
	case ReasonBelowMinSize:
		return "no face larger than the minimum size was detected"
	default:
		return "no face detected"
	}
}

func (e *FaceNotFoundError) StatusCode() int {
	return http.StatusNotFound
}

func (e *FaceNotFoundError) Is(target error) bool {
	var t *FaceNotFoundError
	if !errors.As(target, &t) {
		return false
	}
	return t.Reason == "" || t.Reason == e.Reason
}
