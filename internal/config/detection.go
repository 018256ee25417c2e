package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"FaceCrop/internal/api/detection"
	detectionService "FaceCrop/internal/api/detection/service"
	"FaceCrop/internal/middleware"
	"FaceCrop/pkg/detector"
	"FaceCrop/pkg/imaging"
)

// DetectionConfig is the detection setup read from the environment.
type DetectionConfig struct {
	Service  detectionService.Config
	Detector detector.Options
	PoolSize int
	Limits   middleware.Options
}

// LoadDetectionConfig reads the detection settings. Unset variables keep the built-in defaults;
// malformed ones are reported.
func LoadDetectionConfig() (DetectionConfig, error) {
	cfg := DetectionConfig{
		Service: detectionService.Config{
			Defaults:    detection.DefaultParams(),
			Backend:     envString("DETECTOR_BACKEND", detector.BackendPigo),
			JPEGQuality: imaging.DefaultJPEGQuality,
			CacheTTL:    10 * time.Minute,
		},
		Detector: detector.Options{
			PigoCascadePath: envString("PIGO_CASCADE_PATH", "cascade/facefinder"),
			HaarCascadePath: envString("HAAR_CASCADE_PATH", "cascade/haarcascade_frontalface_default.xml"),
			YuNetModelPath:  envString("YUNET_MODEL_PATH", "models/face_detection_yunet_2023mar.onnx"),
		},
		PoolSize: detector.DefaultPoolSize,
	}
	cfg.Detector.Backend = cfg.Service.Backend

	p := &cfg.Service.Defaults
	if mode := os.Getenv("DETECT_MODE"); mode != "" {
		p.Mode = detection.Mode(mode)
	}

	var errs []string
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err.Error())
		}
	}

	collect(envFloat("DETECT_SCALE", &p.Scale))
	collect(envFloat("DETECT_SCALE_FACTOR", &p.ScaleFactor))
	collect(envInt("DETECT_MIN_NEIGHBORS", &p.MinNeighbors))
	collect(envFloat("DETECT_CONFIDENCE", &p.Confidence))
	if strings.TrimSpace(os.Getenv("DETECT_MIN_SIZE")) != "" {
		collect(envInt("DETECT_MIN_SIZE", &p.MinSize))
		p.CascadeMinSize = p.MinSize
	}

	region, err := envRegion()
	collect(err)
	p.Region = region

	collect(envInt("JPEG_QUALITY", &cfg.Service.JPEGQuality))
	collect(envInt("DETECTOR_POOL_SIZE", &cfg.PoolSize))
	collect(envDuration("RESULT_CACHE_TTL", &cfg.Service.CacheTTL))
	collect(envFloat("RATE_LIMIT_RPS", &cfg.Limits.RequestsPerSecond))
	collect(envInt("RATE_LIMIT_BURST", &cfg.Limits.Burst))

	if len(errs) > 0 {
		return cfg, fmt.Errorf("invalid detection configuration: %s", strings.Join(errs, "; "))
	}

	if err := detectionService.CheckParams(*p); err != nil {
		return cfg, fmt.Errorf("invalid detection defaults: %w", err)
	}

	return cfg, nil
}

// envRegion returns the default crop region when all four CROP_* variables are set.
func envRegion() (*detection.CropRegion, error) {
	keys := []string{"CROP_START_X", "CROP_START_Y", "CROP_END_X", "CROP_END_Y"}
	var values [4]int
	for i, key := range keys {
		raw := strings.TrimSpace(os.Getenv(key))
		if raw == "" {
			return nil, nil
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		values[i] = v
	}

	return &detection.CropRegion{
		StartX: values[0],
		StartY: values[1],
		EndX:   values[2],
		EndY:   values[3],
	}, nil
}

func envString(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, dst *int) error {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = v
	return nil
}

func envFloat(key string, dst *float64) error {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = v
	return nil
}

func envDuration(key string, dst *time.Duration) error {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = v
	return nil
}
