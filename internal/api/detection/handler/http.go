package detectionHandler

import (
	detectionService "FaceCrop/internal/api/detection/service"
	"FaceCrop/internal/middleware"
	"FaceCrop/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
)

type DetectionHandler struct {
	log              *logrus.Logger
	middleware       middleware.Middleware
	detectionService detectionService.IDetectionService
	utils            utils.IUtils
}

func New(
	log *logrus.Logger,
	middleware middleware.Middleware,
	ds detectionService.IDetectionService,
	utils utils.IUtils,
) *DetectionHandler {
	return &DetectionHandler{
		detectionService: ds,
		log:              log,
		middleware:       middleware,
		utils:            utils,
	}
}

func (h *DetectionHandler) Start(srv fiber.Router) {
	wsMiddleware := func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}

	srv.Get("/detect", h.ShowForm)
	srv.Post("/detect", h.middleware.NewRateLimiter, h.middleware.NewTokenMiddleware, h.DetectFace)

	detect := srv.Group("/detect")
	detect.Use("/ws", h.middleware.NewTokenMiddleware, wsMiddleware)
	detect.Get("/ws", websocket.New(h.handleWebSocket))
}
