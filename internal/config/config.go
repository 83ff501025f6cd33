package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// #region config
// Config holds controller settings. Precedence: defaults, YAML file,
// environment, command-line flags.
type Config struct {
	DBPath            string        `yaml:"db_path"`
	CodecAddr         string        `yaml:"codec_addr"`
	PlannerModel      string        `yaml:"planner_model"`
	RealizerModel     string        `yaml:"realizer_model"`
	RealizerMaxLength int           `yaml:"realizer_max_length"`
	RequestTimeout    time.Duration `yaml:"request_timeout"`
	Concurrency       int           `yaml:"concurrency"`
	LogMode           string        `yaml:"log_mode"`
	MetricsAddr       string        `yaml:"metrics_addr"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		DBPath:            "flownlg.db",
		CodecAddr:         "localhost:50051",
		PlannerModel:      "royeis/T5-FlowNLG-Planner",
		RealizerModel:     "royeis/T5-FlowNLG-Realizer",
		RealizerMaxLength: 256,
		RequestTimeout:    30 * time.Second,
		Concurrency:       1,
		LogMode:           "dev",
	}
}

// #endregion config

// #region load
// Load reads path over the defaults (a missing path is allowed when empty),
// then applies environment overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from FLOWNLG_DB, CODEC_ADDR, FLOWNLG_LOG_MODE
// and FLOWNLG_METRICS_ADDR.
func (c *Config) ApplyEnv() {
	c.DBPath = envOr("FLOWNLG_DB", c.DBPath)
	c.CodecAddr = envOr("CODEC_ADDR", c.CodecAddr)
	c.LogMode = envOr("FLOWNLG_LOG_MODE", c.LogMode)
	c.MetricsAddr = envOr("FLOWNLG_METRICS_ADDR", c.MetricsAddr)
}

// Validate rejects settings the controller cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.DBPath == "" {
		errs = append(errs, errors.New("db_path is required"))
	}
	if c.CodecAddr == "" {
		errs = append(errs, errors.New("codec_addr is required"))
	}
	if c.PlannerModel == "" || c.RealizerModel == "" {
		errs = append(errs, errors.New("planner_model and realizer_model are required"))
	}
	if c.PlannerModel != "" && c.PlannerModel == c.RealizerModel {
		errs = append(errs, errors.New("planner_model and realizer_model must differ"))
	}
	if c.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("concurrency must be >= 1, got %d", c.Concurrency))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, fmt.Errorf("request_timeout must be positive, got %s", c.RequestTimeout))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// #endregion load

// #region helpers
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// #endregion helpers
