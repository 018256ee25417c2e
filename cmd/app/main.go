package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"FaceCrop/internal/config"
	"FaceCrop/pkg/log"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const shutdownTimeout = 10 * time.Second

// loadEnvironment reads .env before the logger is built so LOG_LEVEL, LOG_DIR and APP_ENV from
// the file take effect.
func loadEnvironment() *logrus.Logger {
	envErr := godotenv.Load()
	logger := log.NewLogger()
	if envErr != nil {
		logger.Warnf("No .env file loaded, using the process environment: %v", envErr)
	}
	return logger
}

func main() {
	logger := loadEnvironment()

	detectionConfig, err := config.LoadDetectionConfig()
	if err != nil {
		logger.Fatal(err)
	}

	fiberApp := config.NewFiber(logger)
	validator := config.NewValidator()

	server, err := config.NewServer(
		config.WithFiber(fiberApp),
		config.WithLogger(logger),
		config.WithValidator(validator),
		config.WithDetectionConfig(detectionConfig),
		config.WithFaceDetectionClient(),
		config.WithDetectorPool(),
		config.WithRedisServer(),
		config.WithS3Client(),
		config.WithMiddleware(),
		config.WithUtils(),
	)
	if err != nil {
		logger.Fatal(err)
	}

	server.RegisterHandler()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.Run(); err != nil {
			logger.Fatalf("Error starting server: %v", err)
		}
	}()

	<-sigChan
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Errorf("Error during shutdown: %v", err)
	}
}
