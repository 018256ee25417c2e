package detector

import (
	"context"
	"image"

	"FaceCrop/internal/entity"
	"FaceCrop/pkg/imaging"
	websocketPkg "FaceCrop/pkg/websocket"
)

// RemoteDetector delegates to an inference service reached over a websocket. Frames are sent
// as JPEG and answers below the configured confidence are dropped.
type RemoteDetector struct {
	client websocketPkg.IWebsocket
	config Config
}

func NewRemote(client websocketPkg.IWebsocket, cfg Config) *RemoteDetector {
	return &RemoteDetector{client: client, config: cfg}
}

func (d *RemoteDetector) Detect(ctx context.Context, img image.Image) ([]entity.Candidate, error) {
	if img.Bounds().Empty() {
		return nil, nil
	}

	frame, err := imaging.EncodeJPEG(img, imaging.DefaultJPEGQuality)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	faces, err := d.client.DetectFaces(frame)
	if err != nil {
		return nil, err
	}

	candidates := make([]entity.Candidate, 0, len(faces))
	for _, f := range faces {
		if f.Confidence < d.config.Confidence {
			continue
		}
		candidates = append(candidates, entity.Candidate{
			Box: entity.BoundingBox{
				X:      int(f.X),
				Y:      int(f.Y),
				Width:  int(f.Width),
				Height: int(f.Height),
			},
			Confidence: f.Confidence,
		})
	}
	return candidates, nil
}

// Close is a no-op: the websocket client is shared by every remote detector and closed by its
// owner.
func (d *RemoteDetector) Close() error {
	return nil
}
