package websocketPkg

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

func newTestServer(t *testing.T, reply func(frame []byte) string) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			_, frame, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, []byte(reply(frame))); err != nil {
				return
			}
		}
	}))
}

func newTestClient(url string) *webSocketClient {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return &webSocketClient{
		url:          url,
		log:          logger,
		pingInterval: time.Hour,
		readTimeout:  2 * time.Second,
		writeTimeout: 2 * time.Second,
	}
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestDetectFaces(t *testing.T) {
	server := newTestServer(t, func(frame []byte) string {
		if string(frame) != "jpeg-bytes" {
			return `{"error":"unexpected frame"}`
		}
		return `{"faces":[{"x":10,"y":20,"width":30,"height":40,"confidence":0.8}]}`
	})
	defer server.Close()

	client := newTestClient(wsURL(server))
	defer client.CloseConnections()

	faces, err := client.DetectFaces([]byte("jpeg-bytes"))
	if err != nil {
		t.Fatalf("DetectFaces: %v", err)
	}
	if len(faces) != 1 {
		t.Fatalf("DetectFaces: got %d faces, want 1", len(faces))
	}
	if faces[0].Width != 30 || faces[0].Confidence != 0.8 {
		t.Errorf("DetectFaces: got %+v", faces[0])
	}
	if !client.IsConnected() {
		t.Error("client should stay connected after a successful round trip")
	}
}

func TestDetectFaces_ServiceError(t *testing.T) {
	server := newTestServer(t, func(frame []byte) string {
		return `{"error":"model not loaded"}`
	})
	defer server.Close()

	client := newTestClient(wsURL(server))
	defer client.CloseConnections()

	_, err := client.DetectFaces([]byte("frame"))
	if err == nil || !strings.Contains(err.Error(), "model not loaded") {
		t.Errorf("DetectFaces: got %v, want service error", err)
	}
}

func TestDetectFaces_Unreachable(t *testing.T) {
	client := newTestClient("ws://127.0.0.1:1/face")

	if _, err := client.DetectFaces([]byte("frame")); err == nil {
		t.Error("expected error when the service is unreachable")
	}
	if client.IsConnected() {
		t.Error("client should not report a connection")
	}
}
