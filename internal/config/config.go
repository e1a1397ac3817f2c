package config

import (
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Environment variable names for the Firebase connection record.
const (
	EnvFirebaseProjectID   = "FIREBASE_PROJECT_ID"
	EnvFirebaseDatabaseURL = "FIREBASE_DATABASE_URL"
)

// DefaultConfigPath is where the engine persists its configuration.
const DefaultConfigPath = "config/market_engine_config.json"

type Config struct {
	Environment string         `mapstructure:"environment" json:"environment"`
	LogLevel    string         `mapstructure:"log_level" json:"log_level"`
	Data        DataConfig     `mapstructure:"data" json:"data"`
	Model       ModelConfig    `mapstructure:"model" json:"model"`
	Anomaly     AnomalyConfig  `mapstructure:"anomaly" json:"anomaly"`
	Firebase    FirebaseConfig `mapstructure:"firebase" json:"firebase"`
}

// DataConfig holds data collection and preprocessing parameters.
type DataConfig struct {
	Symbols           []string `mapstructure:"symbols" json:"symbols"`
	Timeframes        []string `mapstructure:"timeframes" json:"timeframes"`
	Features          []string `mapstructure:"features" json:"features"`
	MaxRetries        int      `mapstructure:"max_retries" json:"max_retries"`
	RetryDelaySeconds int      `mapstructure:"retry_delay_seconds" json:"retry_delay_seconds"`
	CacheTTLMinutes   int      `mapstructure:"cache_ttl_minutes" json:"cache_ttl_minutes"`
}

// ModelConfig holds ML model parameters.
type ModelConfig struct {
	ModelType           string             `mapstructure:"model_type" json:"model_type"`
	TrainingWindowDays  int                `mapstructure:"training_window_days" json:"training_window_days"`
	ValidationSplit     float64            `mapstructure:"validation_split" json:"validation_split"`
	RetrainingThreshold float64            `mapstructure:"retraining_threshold" json:"retraining_threshold"`
	EnsembleWeights     map[string]float64 `mapstructure:"ensemble_weights" json:"ensemble_weights"`
}

// AnomalyConfig holds anomaly detection and self-healing parameters.
type AnomalyConfig struct {
	ZScoreThreshold                float64 `mapstructure:"z_score_threshold" json:"z_score_threshold"`
	PredictionErrorThreshold       float64 `mapstructure:"prediction_error_threshold" json:"prediction_error_threshold"`
	ConsecutiveFailuresBeforeReset int     `mapstructure:"consecutive_failures_before_reset" json:"consecutive_failures_before_reset"`
	HealthCheckIntervalMinutes     int     `mapstructure:"health_check_interval_minutes" json:"health_check_interval_minutes"`
	AutoRecoveryEnabled            bool    `mapstructure:"auto_recovery_enabled" json:"auto_recovery_enabled"`
}

// FirebaseConfig identifies the backing Firebase project. Resolved from
// environment variables, never from the config file.
type FirebaseConfig struct {
	ProjectID   string `mapstructure:"project_id" json:"project_id"`
	DatabaseURL string `mapstructure:"database_url" json:"database_url"`
}

// DefaultDataConfig returns a fully populated data configuration.
func DefaultDataConfig() DataConfig {
	return DataConfig{
		Symbols:    []string{"BTC/USDT", "ETH/USDT", "SOL/USDT"},
		Timeframes: []string{"1h", "4h", "1d"},
		Features: []string{
			"open", "high", "low", "close", "volume",
			"rsi_14", "macd", "bollinger_upper", "bollinger_lower",
			"volume_ma_20", "price_change_24h",
		},
		MaxRetries:        3,
		RetryDelaySeconds: 5,
		CacheTTLMinutes:   15,
	}
}

// DefaultModelConfig returns a fully populated model configuration.
func DefaultModelConfig() ModelConfig {
	return ModelConfig{
		ModelType:           "ensemble",
		TrainingWindowDays:  90,
		ValidationSplit:     0.2,
		RetrainingThreshold: 0.85,
		EnsembleWeights: map[string]float64{
			"lstm":              0.4,
			"gradient_boosting": 0.35,
			"statistical":       0.25,
		},
	}
}

// DefaultAnomalyConfig returns a fully populated anomaly configuration.
func DefaultAnomalyConfig() AnomalyConfig {
	return AnomalyConfig{
		ZScoreThreshold:                3.0,
		PredictionErrorThreshold:       0.15,
		ConsecutiveFailuresBeforeReset: 5,
		HealthCheckIntervalMinutes:     30,
		AutoRecoveryEnabled:            true,
	}
}

// DefaultFirebaseConfig returns the literal fallbacks used when the
// FIREBASE_* environment variables are unset.
func DefaultFirebaseConfig() FirebaseConfig {
	return FirebaseConfig{
		ProjectID:   "market-prediction-engine",
		DatabaseURL: "https://market-prediction-engine-default-rtdb.firebaseio.com",
	}
}

// EnvLookup resolves an environment variable. os.LookupEnv satisfies it.
type EnvLookup func(key string) (string, bool)

// ResolveFirebaseConfig reads the Firebase connection record through the
// given lookup, falling back to the literal defaults for unset variables.
func ResolveFirebaseConfig(lookup EnvLookup) FirebaseConfig {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	cfg := DefaultFirebaseConfig()
	if v, ok := lookup(EnvFirebaseProjectID); ok && v != "" {
		cfg.ProjectID = v
	}
	if v, ok := lookup(EnvFirebaseDatabaseURL); ok && v != "" {
		cfg.DatabaseURL = v
	}
	return cfg
}

// Load resolves the engine configuration from defaults, an optional JSON
// config file at path, and environment variable overrides, in ascending
// precedence. The Firebase record is not populated here; see
// ResolveFirebaseConfig.
func Load(path string) (*Config, error) {
	cfg, _, err := load(path)
	return cfg, err
}

// load is Load plus the viper instance, which the Manager keeps for
// config-file watching.
func load(path string) (*Config, *viper.Viper, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")

	setDefaults(v)

	// Enable environment variable support
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file if one exists; defaults and environment
	// variables cover the rest.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return nil, nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.Environment = strings.ToLower(cfg.Environment)

	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	return &cfg, v, nil
}

// Validate checks the resolved configuration for values the engine
// cannot run with.
func (c *Config) Validate() error {
	if len(c.Data.Symbols) == 0 {
		return fmt.Errorf("data.symbols cannot be empty")
	}
	if len(c.Data.Timeframes) == 0 {
		return fmt.Errorf("data.timeframes cannot be empty")
	}
	if len(c.Data.Features) == 0 {
		return fmt.Errorf("data.features cannot be empty")
	}
	if c.Data.MaxRetries < 0 {
		return fmt.Errorf("data.max_retries must not be negative, got %d", c.Data.MaxRetries)
	}
	if c.Data.RetryDelaySeconds < 0 {
		return fmt.Errorf("data.retry_delay_seconds must not be negative, got %d", c.Data.RetryDelaySeconds)
	}
	if c.Data.CacheTTLMinutes <= 0 {
		return fmt.Errorf("data.cache_ttl_minutes must be positive, got %d", c.Data.CacheTTLMinutes)
	}

	if c.Model.ModelType == "" {
		return fmt.Errorf("model.model_type is required")
	}
	if c.Model.TrainingWindowDays <= 0 {
		return fmt.Errorf("model.training_window_days must be positive, got %d", c.Model.TrainingWindowDays)
	}
	if c.Model.ValidationSplit <= 0 || c.Model.ValidationSplit >= 1 {
		return fmt.Errorf("model.validation_split must be in (0, 1), got %g", c.Model.ValidationSplit)
	}
	if c.Model.RetrainingThreshold <= 0 || c.Model.RetrainingThreshold > 1 {
		return fmt.Errorf("model.retraining_threshold must be in (0, 1], got %g", c.Model.RetrainingThreshold)
	}
	if len(c.Model.EnsembleWeights) == 0 {
		return fmt.Errorf("model.ensemble_weights cannot be empty")
	}
	var sum float64
	for name, w := range c.Model.EnsembleWeights {
		if w < 0 {
			return fmt.Errorf("model.ensemble_weights[%s] must not be negative, got %g", name, w)
		}
		sum += w
	}
	if math.Abs(sum-1.0) > 1e-9 {
		return fmt.Errorf("model.ensemble_weights must sum to 1.0, got %g", sum)
	}

	if c.Anomaly.ZScoreThreshold <= 0 {
		return fmt.Errorf("anomaly.z_score_threshold must be positive, got %g", c.Anomaly.ZScoreThreshold)
	}
	if c.Anomaly.PredictionErrorThreshold <= 0 || c.Anomaly.PredictionErrorThreshold > 1 {
		return fmt.Errorf("anomaly.prediction_error_threshold must be in (0, 1], got %g", c.Anomaly.PredictionErrorThreshold)
	}
	if c.Anomaly.ConsecutiveFailuresBeforeReset <= 0 {
		return fmt.Errorf("anomaly.consecutive_failures_before_reset must be positive, got %d", c.Anomaly.ConsecutiveFailuresBeforeReset)
	}
	if c.Anomaly.HealthCheckIntervalMinutes <= 0 {
		return fmt.Errorf("anomaly.health_check_interval_minutes must be positive, got %d", c.Anomaly.HealthCheckIntervalMinutes)
	}

	return nil
}

func setDefaults(v *viper.Viper) {
	// Environment
	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")

	// Data collection
	data := DefaultDataConfig()
	v.SetDefault("data.symbols", data.Symbols)
	v.SetDefault("data.timeframes", data.Timeframes)
	v.SetDefault("data.features", data.Features)
	v.SetDefault("data.max_retries", data.MaxRetries)
	v.SetDefault("data.retry_delay_seconds", data.RetryDelaySeconds)
	v.SetDefault("data.cache_ttl_minutes", data.CacheTTLMinutes)

	// Model
	model := DefaultModelConfig()
	v.SetDefault("model.model_type", model.ModelType)
	v.SetDefault("model.training_window_days", model.TrainingWindowDays)
	v.SetDefault("model.validation_split", model.ValidationSplit)
	v.SetDefault("model.retraining_threshold", model.RetrainingThreshold)
	v.SetDefault("model.ensemble_weights", model.EnsembleWeights)

	// Anomaly detection
	anomaly := DefaultAnomalyConfig()
	v.SetDefault("anomaly.z_score_threshold", anomaly.ZScoreThreshold)
	v.SetDefault("anomaly.prediction_error_threshold", anomaly.PredictionErrorThreshold)
	v.SetDefault("anomaly.consecutive_failures_before_reset", anomaly.ConsecutiveFailuresBeforeReset)
	v.SetDefault("anomaly.health_check_interval_minutes", anomaly.HealthCheckIntervalMinutes)
	v.SetDefault("anomaly.auto_recovery_enabled", anomaly.AutoRecoveryEnabled)
}
