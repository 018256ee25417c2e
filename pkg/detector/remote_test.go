package detector

import (
	"context"
	"errors"
	"image"
	"testing"

	websocketPkg "FaceCrop/pkg/websocket"
)

type fakeFaceClient struct {
	faces  []websocketPkg.RemoteFace
	err    error
	frames int
}

func (c *fakeFaceClient) DetectFaces(frame []byte) ([]websocketPkg.RemoteFace, error) {
	c.frames++
	return c.faces, c.err
}

func (c *fakeFaceClient) IsConnected() bool { return true }
func (c *fakeFaceClient) Reconnect() error  { return nil }
func (c *fakeFaceClient) CloseConnections() {}

func TestRemoteDetector_FiltersByConfidence(t *testing.T) {
	client := &fakeFaceClient{faces: []websocketPkg.RemoteFace{
		{X: 10.7, Y: 20.2, Width: 30.9, Height: 40.1, Confidence: 0.9},
		{X: 1, Y: 1, Width: 5, Height: 5, Confidence: 0.3},
	}}
	d := NewRemote(client, Config{Confidence: 0.5})

	got, err := d.Detect(context.Background(), image.NewNRGBA(image.Rect(0, 0, 64, 64)))
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Detect: got %d candidates, want 1", len(got))
	}
	box := got[0].Box
	if box.X != 10 || box.Y != 20 || box.Width != 30 || box.Height != 40 {
		t.Errorf("box should be truncated to pixels, got %+v", box)
	}
	if got[0].Confidence != 0.9 {
		t.Errorf("confidence: got %f, want 0.9", got[0].Confidence)
	}
}

func TestRemoteDetector_EmptyImageSkipsService(t *testing.T) {
	client := &fakeFaceClient{}
	d := NewRemote(client, Config{})

	got, err := d.Detect(context.Background(), image.NewNRGBA(image.Rect(0, 0, 0, 0)))
	if err != nil || got != nil {
		t.Errorf("Detect on empty image: got %v, %v", got, err)
	}
	if client.frames != 0 {
		t.Error("empty images must not be sent to the service")
	}
}

func TestRemoteDetector_PropagatesErrors(t *testing.T) {
	wantErr := errors.New("service down")
	d := NewRemote(&fakeFaceClient{err: wantErr}, Config{})

	if _, err := d.Detect(context.Background(), image.NewNRGBA(image.Rect(0, 0, 8, 8))); !errors.Is(err, wantErr) {
		t.Errorf("Detect: got %v, want %v", err, wantErr)
	}
}
