package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultDataConfig(t *testing.T) {
	cfg := DefaultDataConfig()

	assert.Equal(t, []string{"BTC/USDT", "ETH/USDT", "SOL/USDT"}, cfg.Symbols)
	assert.Equal(t, []string{"1h", "4h", "1d"}, cfg.Timeframes)
	assert.Equal(t, []string{
		"open", "high", "low", "close", "volume",
		"rsi_14", "macd", "bollinger_upper", "bollinger_lower",
		"volume_ma_20", "price_change_24h",
	}, cfg.Features)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, 5, cfg.RetryDelaySeconds)
	assert.Equal(t, 15, cfg.CacheTTLMinutes)
}

func TestDefaultModelConfig(t *testing.T) {
	cfg := DefaultModelConfig()

	assert.Equal(t, "ensemble", cfg.ModelType)
	assert.Equal(t, 90, cfg.TrainingWindowDays)
	assert.Equal(t, 0.2, cfg.ValidationSplit)
	assert.Equal(t, 0.85, cfg.RetrainingThreshold)
	assert.Equal(t, map[string]float64{
		"lstm":              0.4,
		"gradient_boosting": 0.35,
		"statistical":       0.25,
	}, cfg.EnsembleWeights)

	var sum float64
	for _, w := range cfg.EnsembleWeights {
		sum += w
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestDefaultAnomalyConfig(t *testing.T) {
	cfg := DefaultAnomalyConfig()

	assert.Equal(t, 3.0, cfg.ZScoreThreshold)
	assert.Equal(t, 0.15, cfg.PredictionErrorThreshold)
	assert.Equal(t, 5, cfg.ConsecutiveFailuresBeforeReset)
	assert.Equal(t, 30, cfg.HealthCheckIntervalMinutes)
	assert.True(t, cfg.AutoRecoveryEnabled)
}

func TestDefaultFirebaseConfig(t *testing.T) {
	cfg := DefaultFirebaseConfig()

	assert.Equal(t, "market-prediction-engine", cfg.ProjectID)
	assert.Equal(t, "https://market-prediction-engine-default-rtdb.firebaseio.com", cfg.DatabaseURL)
}

func TestLoad_WithDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config", "market_engine_config.json")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, DefaultDataConfig(), cfg.Data)
	assert.Equal(t, DefaultModelConfig(), cfg.Model)
	assert.Equal(t, DefaultAnomalyConfig(), cfg.Anomaly)
}

func TestLoad_WithEnvironmentVariables(t *testing.T) {
	t.Setenv("ENVIRONMENT", "PRODUCTION")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("DATA_MAX_RETRIES", "7")
	t.Setenv("DATA_RETRY_DELAY_SECONDS", "10")
	t.Setenv("DATA_CACHE_TTL_MINUTES", "30")
	t.Setenv("MODEL_MODEL_TYPE", "lstm")
	t.Setenv("MODEL_TRAINING_WINDOW_DAYS", "120")
	t.Setenv("ANOMALY_Z_SCORE_THRESHOLD", "2.5")
	t.Setenv("ANOMALY_AUTO_RECOVERY_ENABLED", "false")

	path := filepath.Join(t.TempDir(), "config", "market_engine_config.json")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	// Environment is normalized to lowercase
	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, "error", cfg.LogLevel)
	assert.Equal(t, 7, cfg.Data.MaxRetries)
	assert.Equal(t, 10, cfg.Data.RetryDelaySeconds)
	assert.Equal(t, 30, cfg.Data.CacheTTLMinutes)
	assert.Equal(t, "lstm", cfg.Model.ModelType)
	assert.Equal(t, 120, cfg.Model.TrainingWindowDays)
	assert.Equal(t, 2.5, cfg.Anomaly.ZScoreThreshold)
	assert.False(t, cfg.Anomaly.AutoRecoveryEnabled)

	// Untouched fields keep their defaults
	assert.Equal(t, DefaultDataConfig().Symbols, cfg.Data.Symbols)
	assert.Equal(t, DefaultModelConfig().EnsembleWeights, cfg.Model.EnsembleWeights)
}

func TestLoad_FromFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "config")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, "market_engine_config.json")

	fileCfg := map[string]any{
		"environment": "staging",
		"data": map[string]any{
			"symbols":     []string{"BTC/USDT"},
			"max_retries": 9,
		},
		"model": map[string]any{
			"validation_split": 0.3,
		},
	}
	b, err := json.Marshal(fileCfg)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "staging", cfg.Environment)
	assert.Equal(t, []string{"BTC/USDT"}, cfg.Data.Symbols)
	assert.Equal(t, 9, cfg.Data.MaxRetries)
	assert.Equal(t, 0.3, cfg.Model.ValidationSplit)

	// Fields absent from the file keep their defaults
	assert.Equal(t, DefaultDataConfig().Timeframes, cfg.Data.Timeframes)
	assert.Equal(t, DefaultAnomalyConfig(), cfg.Anomaly)
}

func TestLoad_MalformedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "market_engine_config.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_InvalidEnsembleWeights(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "market_engine_config.json")

	fileCfg := map[string]any{
		"model": map[string]any{
			"ensemble_weights": map[string]float64{
				"lstm":        0.5,
				"statistical": 0.6,
			},
		},
	}
	b, err := json.Marshal(fileCfg)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o644))

	_, err = Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sum to 1.0")
}

func TestResolveFirebaseConfig_FromLookup(t *testing.T) {
	env := map[string]string{
		EnvFirebaseProjectID:   "my-proj",
		EnvFirebaseDatabaseURL: "https://my-proj.firebaseio.com",
	}
	lookup := func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}

	cfg := ResolveFirebaseConfig(lookup)
	assert.Equal(t, "my-proj", cfg.ProjectID)
	assert.Equal(t, "https://my-proj.firebaseio.com", cfg.DatabaseURL)
}

func TestResolveFirebaseConfig_Fallbacks(t *testing.T) {
	lookup := func(key string) (string, bool) { return "", false }

	cfg := ResolveFirebaseConfig(lookup)
	assert.Equal(t, "market-prediction-engine", cfg.ProjectID)
	assert.Equal(t, "https://market-prediction-engine-default-rtdb.firebaseio.com", cfg.DatabaseURL)
}

func TestResolveFirebaseConfig_ProcessEnv(t *testing.T) {
	t.Setenv(EnvFirebaseProjectID, "env-proj")

	cfg := ResolveFirebaseConfig(nil)
	assert.Equal(t, "env-proj", cfg.ProjectID)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Environment: "test",
			LogLevel:    "info",
			Data:        DefaultDataConfig(),
			Model:       DefaultModelConfig(),
			Anomaly:     DefaultAnomalyConfig(),
		}
	}

	t.Run("defaults pass", func(t *testing.T) {
		assert.NoError(t, valid().Validate())
	})

	t.Run("empty symbols", func(t *testing.T) {
		cfg := valid()
		cfg.Data.Symbols = nil
		assert.Error(t, cfg.Validate())
	})

	t.Run("validation split out of range", func(t *testing.T) {
		cfg := valid()
		cfg.Model.ValidationSplit = 1.5
		assert.Error(t, cfg.Validate())
	})

	t.Run("negative weight", func(t *testing.T) {
		cfg := valid()
		cfg.Model.EnsembleWeights = map[string]float64{"lstm": 1.5, "statistical": -0.5}
		assert.Error(t, cfg.Validate())
	})

	t.Run("zero health check interval", func(t *testing.T) {
		cfg := valid()
		cfg.Anomaly.HealthCheckIntervalMinutes = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("zero z-score threshold", func(t *testing.T) {
		cfg := valid()
		cfg.Anomaly.ZScoreThreshold = 0
		assert.Error(t, cfg.Validate())
	})
}
