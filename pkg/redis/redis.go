package redis

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"FaceCrop/internal/entity"
	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const keyPrefix = "facecrop:"

var ErrCacheMiss = errors.New("face crop not cached")

// IRedis caches packaged face crops keyed by a digest of the request.
type IRedis interface {
	GetFaceCrop(ctx context.Context, key string) (*entity.FaceCrop, error)
	SetFaceCrop(ctx context.Context, key string, crop *entity.FaceCrop, expiration time.Duration) error
	Close() error
}

type cachedCrop struct {
	Image  []byte               `json:"image"`
	Width  int                  `json:"width"`
	Height int                  `json:"height"`
	Faces  []entity.BoundingBox `json:"faces"`
}

type redisClient struct {
	client *redis.Client
}

// Enabled reports whether REDIS_ADDRESS is configured.
func Enabled() bool {
	return os.Getenv("REDIS_ADDRESS") != ""
}

func New() IRedis {
	db, _ := strconv.Atoi(os.Getenv("REDIS_DB"))
	redisAddr := os.Getenv("REDIS_ADDRESS")
	redisPassword := os.Getenv("REDIS_PASSWORD")

	logrus.Info(fmt.Sprintf("Connecting to Redis at %s...", redisAddr))

	client := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: redisPassword,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		logrus.Error(fmt.Sprintf("Failed to connect to Redis: %v", err))
	} else {
		logrus.Info("Successfully connected to Redis")
	}

	return &redisClient{client: client}
}

// NewWithClient wraps an existing go-redis client.
func NewWithClient(client *redis.Client) IRedis {
	return &redisClient{client: client}
}

func (r *redisClient) GetFaceCrop(ctx context.Context, key string) (*entity.FaceCrop, error) {
	raw, err := r.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	} else if err != nil {
		logrus.Error(fmt.Sprintf("Error getting face crop for key %s: %v", key, err))
		return nil, err
	}

	var cached cachedCrop
	if err := jsoniter.Unmarshal(raw, &cached); err != nil {
		return nil, fmt.Errorf("decode cached face crop: %w", err)
	}

	logrus.Debug(fmt.Sprintf("Cache hit for key %s", key))
	return &entity.FaceCrop{
		Image:  cached.Image,
		Width:  cached.Width,
		Height: cached.Height,
		Faces:  cached.Faces,
	}, nil
}

func (r *redisClient) SetFaceCrop(ctx context.Context, key string, crop *entity.FaceCrop, expiration time.Duration) error {
	raw, err := jsoniter.Marshal(cachedCrop{
		Image:  crop.Image,
		Width:  crop.Width,
		Height: crop.Height,
		Faces:  crop.Faces,
	})
	if err != nil {
		return fmt.Errorf("encode face crop: %w", err)
	}

	if err := r.client.Set(ctx, keyPrefix+key, raw, expiration).Err(); err != nil {
		logrus.Error(fmt.Sprintf("Error caching face crop for key %s: %v", key, err))
		return err
	}
	logrus.Debug(fmt.Sprintf("Cached face crop for key %s with expiration %v", key, expiration))
	return nil
}

func (r *redisClient) Close() error {
	return r.client.Close()
}
