package detectionService

import (
	"context"
	"time"

	"FaceCrop/internal/api/detection"
	"FaceCrop/internal/entity"
	"FaceCrop/pkg/detector"
	"FaceCrop/pkg/imaging"
	"FaceCrop/pkg/redis"
	"FaceCrop/pkg/s3"
	"FaceCrop/pkg/utils"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

type IDetectionService interface {
	// DetectFace runs the full pipeline over an uploaded image and returns the encoded crop.
	DetectFace(ctx context.Context, data []byte, req detection.DetectRequest) (*entity.FaceCrop, error)
	// DetectFrame locates faces in one streamed frame using the configured defaults.
	DetectFrame(ctx context.Context, frame []byte) (*detection.FrameResponse, error)
}

// Config holds the process-wide settings of the service.
type Config struct {
	Defaults    detection.Params
	Backend     string
	JPEGQuality int
	CacheTTL    time.Duration
}

type detectionService struct {
	log       *logrus.Logger
	validator *validator.Validate
	pool      *detector.Pool
	utils     utils.IUtils
	cache     redis.IRedis
	archive   s3.ItfS3
	config    Config
}

// NewDetectionService wires the pipeline. cache and archive may be nil to disable result
// caching and crop archiving.
func NewDetectionService(
	log *logrus.Logger,
	validator *validator.Validate,
	pool *detector.Pool,
	utils utils.IUtils,
	cache redis.IRedis,
	archive s3.ItfS3,
	config Config,
) IDetectionService {
	if config.JPEGQuality <= 0 || config.JPEGQuality > 100 {
		config.JPEGQuality = imaging.DefaultJPEGQuality
	}
	if config.Backend == "" {
		config.Backend = detector.BackendPigo
	}

	return &detectionService{
		log:       log,
		validator: validator,
		pool:      pool,
		utils:     utils,
		cache:     cache,
		archive:   archive,
		config:    config,
	}
}
