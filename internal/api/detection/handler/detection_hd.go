package detectionHandler

import (
	"context"
	_ "embed"
	"errors"
	"strconv"
	"time"

	"FaceCrop/internal/api/detection"
	contextPkg "FaceCrop/pkg/context"
	"FaceCrop/pkg/handlerUtil"
	"FaceCrop/pkg/log"
	"FaceCrop/pkg/response"
	"FaceCrop/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

const (
	HeaderImageWidth  = "X-Image-Width"
	HeaderImageHeight = "X-Image-Height"

	requestTimeout = 30 * time.Second
	frameTimeout   = 10 * time.Second
	maxReadTimeout = 60 * time.Second
)

//go:embed form.html
var uploadForm []byte

func (h *DetectionHandler) ShowForm(ctx *fiber.Ctx) error {
	ctx.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return ctx.Status(fiber.StatusOK).Send(uploadForm)
}

func (h *DetectionHandler) DetectFace(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), requestTimeout)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	file, err := ctx.FormFile("file")
	if err != nil {
		return errHandler.Handle(ctx, requestID, response.WithCause(detection.ErrMissingFile, err), ctx.Path(), "form_file")
	}

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"path":       ctx.Path(),
		"file_name":  file.Filename,
		"file_size":  file.Size,
	}).Debug("Processing face detection request")

	data, err := h.utils.ReadFormFile(file)
	if err != nil {
		if errors.Is(err, utils.ErrFileTooLarge) {
			return errHandler.Handle(ctx, requestID, detection.ErrFileTooLarge, ctx.Path(), "read_file")
		}
		return errHandler.Handle(ctx, requestID, response.WithCause(detection.ErrInternalServerError, err), ctx.Path(), "read_file")
	}

	var req detection.DetectRequest
	if err := ctx.BodyParser(&req); err != nil {
		return errHandler.Handle(ctx, requestID, response.WithCause(detection.ErrInvalidParameter, err), ctx.Path(), "parse_request_body")
	}

	crop, err := h.detectionService.DetectFace(c, data, req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return errHandler.HandleRequestTimeout(ctx)
		}
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "detect_face")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		h.log.WithFields(log.Fields{
			"request_id": requestID,
			"path":       ctx.Path(),
			"faces":      len(crop.Faces),
			"width":      crop.Width,
			"height":     crop.Height,
		}).Info("Face crop successful")

		ctx.Set(fiber.HeaderContentType, "image/jpeg")
		ctx.Set(HeaderImageWidth, strconv.Itoa(crop.Width))
		ctx.Set(HeaderImageHeight, strconv.Itoa(crop.Height))
		return ctx.Status(fiber.StatusOK).Send(crop.Image)
	}
}

func (h *DetectionHandler) handleWebSocket(c *websocket.Conn) {
	h.log.Info("Face detection WebSocket client connected")
	defer h.log.Info("Face detection WebSocket client disconnected")

	c.SetPingHandler(func(data string) error {
		if err := c.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(5*time.Second)); err != nil {
			h.log.Errorf("Error sending pong: %v", err)
		}
		return nil
	})

	for {
		if err := c.SetReadDeadline(time.Now().Add(maxReadTimeout)); err != nil {
			h.log.Errorf("Error setting read deadline: %v", err)
			break
		}

		messageType, message, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Errorf("Face WebSocket error: %v", err)
			} else {
				h.log.Debug("Face WebSocket connection closed")
			}
			break
		}

		if messageType != websocket.BinaryMessage {
			h.log.Warnf("Received unexpected message type: %d", messageType)
			continue
		}

		result := h.processFrame(message)

		if err := c.SetWriteDeadline(time.Now().Add(frameTimeout)); err != nil {
			h.log.Errorf("Error setting write deadline: %v", err)
			break
		}

		if err := c.WriteJSON(result); err != nil {
			h.log.Errorf("Error writing JSON response: %v", err)
			break
		}

		if err := c.SetWriteDeadline(time.Time{}); err != nil {
			h.log.Errorf("Error resetting write deadline: %v", err)
			break
		}
	}
}

func (h *DetectionHandler) processFrame(frame []byte) *detection.FrameResponse {
	ctx, cancel := context.WithTimeout(context.Background(), frameTimeout)
	defer cancel()

	result, err := h.detectionService.DetectFrame(ctx, frame)
	if err == nil {
		return result
	}

	var notFound *detection.FaceNotFoundError
	var respErr *response.Error
	switch {
	case errors.As(err, &notFound):
		return &detection.FrameResponse{Error: notFound.Error(), Reason: notFound.Reason}
	case errors.As(err, &respErr):
		h.log.WithFields(log.Fields{
			"code":  respErr.Code,
			"error": err.Error(),
		}).Warn("Error processing face frame")
		return &detection.FrameResponse{Error: respErr.Error()}
	default:
		h.log.WithFields(log.Fields{
			"error": err.Error(),
		}).Error("Error processing face frame")
		return &detection.FrameResponse{Error: detection.ErrInternalServerError.Error()}
	}
}
