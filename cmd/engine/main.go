package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/thom899g/autonomous-self-healing-market-prediction-engine/internal/config"
	"github.com/thom899g/autonomous-self-healing-market-prediction-engine/internal/logging"
)

func main() {
	// Load .env file; a missing one is fine in deployed environments.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: could not load .env file: %v", err)
	}

	logger := logging.NewLogger(os.Getenv("LOG_LEVEL"), os.Getenv("ENVIRONMENT"))

	manager, err := config.NewManager(config.WithLogger(logger))
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	cfg := manager.Config()
	logger.SetLevel(logging.ParseLevel(cfg.LogLevel))
	logger.WithFields(logrus.Fields{
		"environment": cfg.Environment,
		"config_path": manager.Path(),
		"symbols":     len(cfg.Data.Symbols),
		"timeframes":  len(cfg.Data.Timeframes),
		"model_type":  cfg.Model.ModelType,
	}).Info("Market prediction engine starting")

	manager.Watch(func(updated *config.Config) {
		logger.SetLevel(logging.ParseLevel(updated.LogLevel))
	})

	// Wait for interrupt signal to shut down
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Market prediction engine shutting down")
}
