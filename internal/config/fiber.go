package config

import (
	"errors"

	"FaceCrop/internal/api/detection"
	"FaceCrop/pkg/log"
	"github.com/gofiber/fiber/v2"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
)

func NewFiber(logger *logrus.Logger) *fiber.App {
	app := fiber.New(
		fiber.Config{
			AppName:           "FaceCrop",
			BodyLimit:         50 * 1024 * 1024,
			DisableKeepalive:  false,
			StrictRouting:     true,
			CaseSensitive:     true,
			EnablePrintRoutes: false,
			JSONEncoder:       jsoniter.Marshal,
			JSONDecoder:       jsoniter.Unmarshal,
			ErrorHandler:      newErrorHandler(logger),
		})

	return app
}

// newErrorHandler answers every error that escapes a handler, including recovered panics, with a
// JSON body.
func newErrorHandler(logger *logrus.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return c.Status(fiberErr.Code).JSON(detection.ErrorResponse{Error: fiberErr.Message})
		}

		requestID, _ := c.Locals("request_id").(string)
		traceID := log.ErrorWithTraceID(log.Fields{
			"request_id": requestID,
			"method":     c.Method(),
			"path":       c.Path(),
			"error":      err.Error(),
		}, "Unhandled error")
		logger.WithField("trace_id", traceID).Debug("Responded with internal server error")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":    detection.ErrInternalServerError.Error(),
			"trace_id": traceID,
		})
	}
}
