package config

import (
	"context"
	"fmt"
	"os"

	"FaceCrop/internal/api/detection"
	detectionHandler "FaceCrop/internal/api/detection/handler"
	detectionService "FaceCrop/internal/api/detection/service"
	"FaceCrop/internal/middleware"
	"FaceCrop/pkg/detector"
	"FaceCrop/pkg/handlerUtil"
	"FaceCrop/pkg/redis"
	"FaceCrop/pkg/s3"
	"FaceCrop/pkg/utils"
	websocketPkg "FaceCrop/pkg/websocket"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"
)

type ServerOption func(*Server) error

type Server struct {
	engine        *fiber.App
	log           *logrus.Logger
	middleware    middleware.Middleware
	validator     *validator.Validate
	utils         utils.IUtils
	handlers      []handler
	detection     DetectionConfig
	detectorPool  *detector.Pool
	redisServer   redis.IRedis
	s3Client      s3.ItfS3
	faceWebsocket websocketPkg.IWebsocket
}

type handler interface {
	Start(srv fiber.Router)
}

func NewServer(options ...ServerOption) (*Server, error) {
	server := &Server{}

	for _, option := range options {
		if err := option(server); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if server.engine == nil {
		return nil, fmt.Errorf("fiber app is required")
	}
	if server.log == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if server.detectorPool == nil {
		return nil, fmt.Errorf("detector pool is required")
	}
	if server.validator == nil {
		server.validator = NewValidator()
	}
	if server.utils == nil {
		server.utils = utils.New()
	}
	if server.middleware == nil {
		server.middleware = middleware.New(server.log, server.detection.Limits)
	}

	return server, nil
}

func WithFiber(fiberApp *fiber.App) ServerOption {
	return func(s *Server) error {
		s.engine = fiberApp
		return nil
	}
}

func WithLogger(logger *logrus.Logger) ServerOption {
	return func(s *Server) error {
		s.log = logger
		return nil
	}
}

func WithValidator(validator *validator.Validate) ServerOption {
	return func(s *Server) error {
		s.validator = validator
		return nil
	}
}

func WithDetectionConfig(cfg DetectionConfig) ServerOption {
	return func(s *Server) error {
		s.detection = cfg
		return nil
	}
}

// WithFaceDetectionClient connects the remote backend. It must come before WithDetectorPool.
func WithFaceDetectionClient() ServerOption {
	return func(s *Server) error {
		if s.detection.Detector.Backend != detector.BackendRemote {
			return nil
		}
		if s.log == nil {
			return fmt.Errorf("logger must be initialized before the face detection client")
		}
		s.faceWebsocket = websocketPkg.NewFaceDetectionClient(s.log)
		s.detection.Detector.Remote = s.faceWebsocket
		return nil
	}
}

// WithDetectorPool loads the configured backend and builds the detector pool.
func WithDetectorPool() ServerOption {
	return func(s *Server) error {
		factory, err := detector.NewFactory(s.detection.Detector)
		if err != nil {
			if s.log != nil {
				s.log.Errorf("Failed to load %s detector: %v", s.detection.Detector.Backend, err)
			}
			return fmt.Errorf("failed to create detector: %w", err)
		}
		s.detectorPool = detector.NewPool(factory, s.detection.PoolSize)
		return nil
	}
}

func WithDetectorFactory(factory detector.Factory) ServerOption {
	return func(s *Server) error {
		s.detectorPool = detector.NewPool(factory, s.detection.PoolSize)
		return nil
	}
}

// WithRedisServer enables the result cache when REDIS_ADDRESS is set.
func WithRedisServer() ServerOption {
	return func(s *Server) error {
		if !redis.Enabled() {
			return nil
		}
		s.redisServer = redis.New()
		return nil
	}
}

// WithS3Client enables the crop archive when AWS_BUCKET_NAME is set.
func WithS3Client() ServerOption {
	return func(s *Server) error {
		if !s3.Enabled() {
			return nil
		}
		client, err := s3.New()
		if err != nil {
			if s.log != nil {
				s.log.Errorf("Failed to initialize S3 client: %v", err)
			}
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		s.s3Client = client
		return nil
	}
}

func WithMiddleware() ServerOption {
	return func(s *Server) error {
		if s.log == nil {
			return fmt.Errorf("logger must be initialized before middleware")
		}
		s.middleware = middleware.New(s.log, s.detection.Limits)
		return nil
	}
}

func WithUtils() ServerOption {
	return func(s *Server) error {
		s.utils = utils.New()
		return nil
	}
}

func (s *Server) RegisterHandler() {
	// Detection
	detectionServices := detectionService.NewDetectionService(s.log, s.validator, s.detectorPool, s.utils, s.redisServer, s.s3Client, s.detection.Service)
	detectionHandlers := detectionHandler.New(s.log, s.middleware, detectionServices, s.utils)

	s.engine.Use(recover.New(recover.Config{EnableStackTrace: true}))
	s.engine.Use(s.middleware.NewRequestIDMiddleware())
	s.engine.Use(s.middleware.NewLoggingMiddleware())

	s.setupHealthCheck()
	s.handlers = append(s.handlers, detectionHandlers)

	for _, h := range s.handlers {
		h.Start(s.engine)
	}
}

func (s *Server) Run() error {
	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "5000"
	}

	s.log.WithFields(logrus.Fields{
		"port":    port,
		"backend": s.detection.Detector.Backend,
	}).Info("Starting face crop server")

	if err := s.engine.Listen(fmt.Sprintf(":%s", port)); err != nil {
		return err
	}

	return nil
}

// Shutdown stops accepting requests and releases the detectors and external clients.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.engine.ShutdownWithContext(ctx)

	if s.detectorPool != nil {
		if closeErr := s.detectorPool.Close(); closeErr != nil {
			s.log.Errorf("Failed to close detectors: %v", closeErr)
		}
	}
	if s.faceWebsocket != nil {
		s.faceWebsocket.CloseConnections()
	}
	if s.redisServer != nil {
		if closeErr := s.redisServer.Close(); closeErr != nil {
			s.log.Errorf("Failed to close redis: %v", closeErr)
		}
	}

	return err
}

func (s *Server) App() *fiber.App {
	return s.engine
}

func (s *Server) setupHealthCheck() {
	s.engine.Get("/health", func(ctx *fiber.Ctx) error {
		return handlerUtil.New(s.log).HandleSuccess(ctx, fiber.StatusOK, detection.HealthResponse{Status: "ok"})
	})
}
