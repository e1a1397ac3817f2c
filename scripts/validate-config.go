package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/thom899g/autonomous-self-healing-market-prediction-engine/internal/config"
	"github.com/thom899g/autonomous-self-healing-market-prediction-engine/internal/logging"
)

func main() {
	fmt.Println("🔧 Validating Market Engine Configuration...")

	// Load .env file
	if err := godotenv.Load(); err != nil {
		fmt.Printf("⚠️  Warning: Could not load .env file: %v\n", err)
	}

	logger := logging.NewLogger(os.Getenv("LOG_LEVEL"), os.Getenv("ENVIRONMENT"))

	path := config.DefaultConfigPath
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	manager, err := config.NewManager(
		config.WithConfigPath(path),
		config.WithLogger(logger),
	)
	if err != nil {
		fmt.Printf("❌ Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	cfg := manager.Config()

	if validateConfig(cfg, path) != nil {
		os.Exit(1)
	}

	fmt.Println("🎉 Configuration validation completed successfully!")
}

func validateConfig(cfg *config.Config, path string) error {
	if cfg.Firebase.ProjectID == "" {
		fmt.Println("❌ Firebase project id is not resolved")
		return fmt.Errorf("firebase project id missing")
	}
	fmt.Printf("✅ Firebase project id: %s\n", cfg.Firebase.ProjectID)

	if os.Getenv(config.EnvFirebaseDatabaseURL) == "" {
		fmt.Printf("⚠️  %s is not set, using default: %s\n", config.EnvFirebaseDatabaseURL, cfg.Firebase.DatabaseURL)
	} else {
		fmt.Printf("✅ Firebase database URL: %s\n", cfg.Firebase.DatabaseURL)
	}

	var sum float64
	for _, w := range cfg.Model.EnsembleWeights {
		sum += w
	}
	fmt.Printf("✅ Ensemble weights sum to %g across %d models\n", sum, len(cfg.Model.EnsembleWeights))

	fmt.Printf("✅ Tracking %d symbols on %d timeframes with %d features\n",
		len(cfg.Data.Symbols), len(cfg.Data.Timeframes), len(cfg.Data.Features))

	dir := filepath.Dir(path)
	if _, err := os.Stat(dir); err != nil {
		fmt.Printf("❌ Config directory %s is missing: %v\n", dir, err)
		return err
	}
	fmt.Printf("✅ Config directory present: %s\n", dir)

	return nil
}
