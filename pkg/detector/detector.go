// Package detector wraps the face detection backends behind a single interface.
package detector

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"

	"FaceCrop/internal/entity"
	websocketPkg "FaceCrop/pkg/websocket"
)

const (
	BackendPigo   = "pigo"
	BackendHaar   = "haar"
	BackendYuNet  = "yunet"
	BackendRemote = "remote"
)

var ErrUnknownBackend = errors.New("unknown detector backend")

// Detector finds faces in an image. Boxes are expressed in pixels of img, relative to its
// top-left corner.
type Detector interface {
	Detect(ctx context.Context, img image.Image) ([]entity.Candidate, error)
	Close() error
}

// Config is the tuning a detector is built with. It cannot change once the detector exists;
// a different Config needs a different detector.
type Config struct {
	ScaleFactor  float64
	MinNeighbors int
	// MinSize is the smallest face window in pixels of the image handed to Detect.
	MinSize    int
	Confidence float64
}

// Factory builds a detector for one configuration.
type Factory func(cfg Config) (Detector, error)

// Options selects a backend and the resources it loads at startup.
type Options struct {
	Backend         string
	PigoCascadePath string
	HaarCascadePath string
	YuNetModelPath  string
	Remote          websocketPkg.IWebsocket
}

// NewFactory builds one detector to validate the backend resources, then returns the factory
// used by the pool.
func NewFactory(opts Options) (Factory, error) {
	switch opts.Backend {
	case BackendPigo, "":
		cascade, err := os.ReadFile(opts.PigoCascadePath)
		if err != nil {
			return nil, fmt.Errorf("read pigo cascade: %w", err)
		}
		if _, err := NewPigo(cascade, Config{}); err != nil {
			return nil, err
		}
		return func(cfg Config) (Detector, error) {
			d, err := NewPigo(cascade, cfg)
			if err != nil {
				return nil, err
			}
			return d, nil
		}, nil

	case BackendHaar:
		if _, err := os.Stat(opts.HaarCascadePath); err != nil {
			return nil, fmt.Errorf("haar cascade: %w", err)
		}
		d, err := NewHaar(opts.HaarCascadePath, Config{})
		if err != nil {
			return nil, fmt.Errorf("haar cascade: %w", err)
		}
		if err := d.Close(); err != nil {
			return nil, fmt.Errorf("haar cascade: %w", err)
		}
		return func(cfg Config) (Detector, error) {
			d, err := NewHaar(opts.HaarCascadePath, cfg)
			if err != nil {
				return nil, err
			}
			return d, nil
		}, nil

	case BackendYuNet:
		if _, err := os.Stat(opts.YuNetModelPath); err != nil {
			return nil, fmt.Errorf("yunet model: %w", err)
		}
		d, err := NewYuNet(opts.YuNetModelPath, Config{})
		if err != nil {
			return nil, fmt.Errorf("yunet model: %w", err)
		}
		if err := d.Close(); err != nil {
			return nil, fmt.Errorf("yunet model: %w", err)
		}
		return func(cfg Config) (Detector, error) {
			d, err := NewYuNet(opts.YuNetModelPath, cfg)
			if err != nil {
				return nil, err
			}
			return d, nil
		}, nil

	case BackendRemote:
		if opts.Remote == nil {
			return nil, errors.New("remote backend requires a face detection client")
		}
		return func(cfg Config) (Detector, error) {
			return NewRemote(opts.Remote, cfg), nil
		}, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Backend)
}

// RanksByConfidence reports whether a backend produces meaningful confidence scores.
func RanksByConfidence(backend string) bool {
	switch backend {
	case BackendPigo, "", BackendYuNet, BackendRemote:
		return true
	}
	return false
}
