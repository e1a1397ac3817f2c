package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Manager owns the resolved engine configuration and the on-disk config
// file backing it. Construction resolves every settings record, reads the
// Firebase connection record from the environment, and bootstraps the
// config directory. Safe for concurrent reads once constructed.
type Manager struct {
	path   string
	logger *logrus.Logger
	lookup EnvLookup
	v      *viper.Viper

	mu  sync.RWMutex
	cfg *Config
}

// Option configures a Manager before it loads anything.
type Option func(*Manager)

// WithConfigPath overrides the default config file path.
func WithConfigPath(path string) Option {
	return func(m *Manager) {
		m.path = path
	}
}

// WithLogger injects the logger the Manager reports through.
func WithLogger(logger *logrus.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithEnvLookup injects the environment lookup used to resolve the
// Firebase record, so tests never mutate the process environment.
func WithEnvLookup(lookup EnvLookup) Option {
	return func(m *Manager) {
		m.lookup = lookup
	}
}

// NewManager resolves the full configuration and ensures the config
// directory exists. A directory-creation failure is returned, never
// swallowed.
func NewManager(opts ...Option) (*Manager, error) {
	m := &Manager{
		path:   DefaultConfigPath,
		logger: logrus.New(),
		lookup: os.LookupEnv,
	}
	for _, opt := range opts {
		opt(m)
	}

	cfg, v, err := load(m.path)
	if err != nil {
		return nil, err
	}
	cfg.Firebase = ResolveFirebaseConfig(m.lookup)
	m.cfg = cfg
	m.v = v

	if err := m.ensureConfigDirectory(); err != nil {
		return nil, err
	}

	m.logger.Info("Market engine configuration initialized")
	return m, nil
}

// Config returns the current configuration snapshot.
func (m *Manager) Config() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

// Path returns the config file path the Manager was constructed with.
func (m *Manager) Path() string {
	return m.path
}

// Save persists the current configuration as indented JSON at the
// config path.
func (m *Manager) Save() error {
	cfg := m.Config()
	b, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(m.path, b, 0o644); err != nil {
		return fmt.Errorf("write config file %s: %w", m.path, err)
	}
	m.logger.WithField("path", m.path).Info("Saved configuration")
	return nil
}

// Watch re-resolves the configuration whenever the config file changes
// on disk and hands each valid snapshot to onReload. A reload that fails
// validation is logged and discarded, keeping the previous snapshot. No
// watch is armed when the config file does not exist yet.
func (m *Manager) Watch(onReload func(*Config)) {
	if _, err := os.Stat(m.path); err != nil {
		m.logger.WithField("path", m.path).Debug("Config file absent, not watching")
		return
	}

	m.v.OnConfigChange(func(e fsnotify.Event) {
		var cfg Config
		if err := m.v.Unmarshal(&cfg); err != nil {
			m.logger.WithError(err).Warn("Ignoring config reload: unmarshal failed")
			return
		}
		cfg.Environment = strings.ToLower(cfg.Environment)
		if err := cfg.Validate(); err != nil {
			m.logger.WithError(err).Warn("Ignoring config reload: validation failed")
			return
		}

		// The Firebase record stays environment-resolved; the file
		// never overrides it.
		cfg.Firebase = ResolveFirebaseConfig(m.lookup)

		m.mu.Lock()
		m.cfg = &cfg
		m.mu.Unlock()

		m.logger.WithField("file", e.Name).Info("Configuration reloaded")
		if onReload != nil {
			onReload(&cfg)
		}
	})
	m.v.WatchConfig()
}

// ensureConfigDirectory creates the parent directory of the config path,
// recursively, if it does not already exist.
func (m *Manager) ensureConfigDirectory() error {
	dir := filepath.Dir(m.path)
	if dir == "" || dir == "." {
		return nil
	}
	if info, err := os.Stat(dir); err == nil {
		if info.IsDir() {
			return nil
		}
		return fmt.Errorf("config directory path %s exists and is not a directory", dir)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat config directory %s: %w", dir, err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create config directory %s: %w", dir, err)
	}
	m.logger.WithField("directory", dir).Info("Created config directory")
	return nil
}
