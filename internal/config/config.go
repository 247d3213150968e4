package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/eugenenazirov/smartpack/internal/packing"
	"github.com/eugenenazirov/smartpack/internal/storage"
	"gopkg.in/yaml.v3"
)

const (
	defaultPort           = "8080"
	defaultRateLimitRPS   = 25.0
	defaultRateLimitBurst = 50
	defaultPackTimeout    = 2 * time.Second
	defaultLogLevel       = "info"
)

// Config aggregates runtime configuration resolved from multiple sources.
// Precedence: CLI flags > YAML config > Environment variables > Defaults
type Config struct {
	Port                 string
	Catalog              []packing.CatalogBox
	EnvelopePolicy       packing.EnvelopePolicy
	CustomMargin         float64
	CostBaseRate         float64
	MaxAnchors           int
	MaxInstances         int
	PackTimeout          time.Duration
	LogLevel             string
	ShutdownGracePeriod  time.Duration
	ReadHeaderTimeout    time.Duration
	WriteTimeout         time.Duration
	IdleTimeout          time.Duration
	EnableRequestLogging bool
	EnableMetrics        bool
	RateLimitRPS         float64
	RateLimitBurst       int
}

// yamlConfig represents the YAML configuration file structure.
type yamlConfig struct {
	Port                 string               `yaml:"port"`
	Catalog              []packing.CatalogBox `yaml:"catalog"`
	Packing              yamlPacking          `yaml:"packing"`
	LogLevel             string               `yaml:"log_level"`
	ShutdownGracePeriod  string               `yaml:"shutdown_grace_period"`
	ReadHeaderTimeout    string               `yaml:"read_header_timeout"`
	WriteTimeout         string               `yaml:"write_timeout"`
	IdleTimeout          string               `yaml:"idle_timeout"`
	EnableRequestLogging *bool                `yaml:"enable_request_logging"`
	EnableMetrics        *bool                `yaml:"enable_metrics"`
	RateLimit            yamlRateLimit        `yaml:"rate_limit"`
}

// yamlPacking represents the packing section in YAML.
type yamlPacking struct {
	EnvelopePolicy string   `yaml:"envelope_policy"`
	CustomMargin   *float64 `yaml:"custom_margin_cm"`
	CostBaseRate   float64  `yaml:"cost_base_rate"`
	MaxAnchors     int      `yaml:"max_anchors"`
	MaxInstances   int      `yaml:"max_instances"`
	Timeout        string   `yaml:"timeout"`
}

// yamlRateLimit represents the rate limit section in YAML.
type yamlRateLimit struct {
	RPS   *float64 `yaml:"rps"`
	Burst *int     `yaml:"burst"`
}

// CLIOverrides holds command-line flag overrides.
type CLIOverrides struct {
	ConfigFile     string
	Port           *string
	CatalogStr     *string
	EnvelopePolicy *string
	LogLevel       *string
	PackTimeout    *time.Duration
	RateLimitRPS   *float64
	RateLimitBurst *int
}

// Load extracts configuration from multiple sources with precedence:
// CLI flags > YAML config > Environment variables > Defaults
func Load(overrides *CLIOverrides) (Config, error) {
	cfg := defaultConfig()

	// Apply environment variables (YAML overrides them)
	applyEnvConfig(&cfg)

	if overrides != nil && overrides.ConfigFile != "" {
		yamlCfg, err := loadFromFile(overrides.ConfigFile)
		if err != nil {
			return Config{}, fmt.Errorf("load YAML config: %w", err)
		}
		if err := applyYAMLConfig(&cfg, yamlCfg); err != nil {
			return Config{}, fmt.Errorf("apply YAML config: %w", err)
		}
	}

	// Apply CLI overrides (highest precedence)
	if overrides != nil {
		if err := applyCLIOverrides(&cfg, overrides); err != nil {
			return Config{}, err
		}
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// defaultConfig returns a Config with default values.
func defaultConfig() Config {
	return Config{
		Port:                 defaultPort,
		Catalog:              storage.DefaultCatalogBoxes(),
		EnvelopePolicy:       packing.EnvelopeMaxPerAxis,
		CustomMargin:         packing.DefaultCustomMargin,
		CostBaseRate:         packing.DefaultCostBaseRate,
		MaxAnchors:           packing.DefaultMaxAnchors,
		MaxInstances:         packing.DefaultMaxInstances,
		PackTimeout:          defaultPackTimeout,
		LogLevel:             defaultLogLevel,
		ShutdownGracePeriod:  10 * time.Second,
		ReadHeaderTimeout:    5 * time.Second,
		WriteTimeout:         15 * time.Second,
		IdleTimeout:          60 * time.Second,
		EnableRequestLogging: true,
		EnableMetrics:        true,
		RateLimitRPS:         defaultRateLimitRPS,
		RateLimitBurst:       defaultRateLimitBurst,
	}
}

// loadFromFile loads configuration from a YAML file.
func loadFromFile(path string) (*yamlConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}

	return &yamlCfg, nil
}

// applyYAMLConfig applies YAML configuration to the Config struct.
func applyYAMLConfig(cfg *Config, yamlCfg *yamlConfig) error {
	if yamlCfg.Port != "" {
		cfg.Port = yamlCfg.Port
	}

	if len(yamlCfg.Catalog) > 0 {
		cfg.Catalog = yamlCfg.Catalog
	}

	if raw := yamlCfg.Packing.EnvelopePolicy; raw != "" {
		policy, err := packing.ParseEnvelopePolicy(raw)
		if err != nil {
			return err
		}
		cfg.EnvelopePolicy = policy
	}

	if yamlCfg.Packing.CustomMargin != nil {
		cfg.CustomMargin = *yamlCfg.Packing.CustomMargin
	}

	if yamlCfg.Packing.CostBaseRate > 0 {
		cfg.CostBaseRate = yamlCfg.Packing.CostBaseRate
	}

	if yamlCfg.Packing.MaxAnchors > 0 {
		cfg.MaxAnchors = yamlCfg.Packing.MaxAnchors
	}

	if yamlCfg.Packing.MaxInstances > 0 {
		cfg.MaxInstances = yamlCfg.Packing.MaxInstances
	}

	durations := []struct {
		raw string
		dst *time.Duration
	}{
		{yamlCfg.Packing.Timeout, &cfg.PackTimeout},
		{yamlCfg.ShutdownGracePeriod, &cfg.ShutdownGracePeriod},
		{yamlCfg.ReadHeaderTimeout, &cfg.ReadHeaderTimeout},
		{yamlCfg.WriteTimeout, &cfg.WriteTimeout},
		{yamlCfg.IdleTimeout, &cfg.IdleTimeout},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("parse duration %q: %w", d.raw, err)
		}
		*d.dst = parsed
	}

	if yamlCfg.LogLevel != "" {
		cfg.LogLevel = yamlCfg.LogLevel
	}

	if yamlCfg.EnableRequestLogging != nil {
		cfg.EnableRequestLogging = *yamlCfg.EnableRequestLogging
	}

	if yamlCfg.EnableMetrics != nil {
		cfg.EnableMetrics = *yamlCfg.EnableMetrics
	}

	if yamlCfg.RateLimit.RPS != nil && *yamlCfg.RateLimit.RPS >= 0 {
		cfg.RateLimitRPS = *yamlCfg.RateLimit.RPS
	}

	if yamlCfg.RateLimit.Burst != nil && *yamlCfg.RateLimit.Burst >= 0 {
		cfg.RateLimitBurst = *yamlCfg.RateLimit.Burst
	}

	return nil
}

// applyEnvConfig applies environment variable configuration. Malformed values
// are ignored and the previous value is kept.
func applyEnvConfig(cfg *Config) {
	if port := env("PORT"); port != "" {
		cfg.Port = port
	}

	if raw := env("BOX_CATALOG"); raw != "" {
		if boxes, err := ParseCatalog(raw); err == nil {
			cfg.Catalog = boxes
		}
	}

	if raw := env("ENVELOPE_POLICY"); raw != "" {
		if policy, err := packing.ParseEnvelopePolicy(raw); err == nil {
			cfg.EnvelopePolicy = policy
		}
	}

	if raw := env("CUSTOM_MARGIN_CM"); raw != "" {
		if value, err := strconv.ParseFloat(raw, 64); err == nil && value >= 0 {
			cfg.CustomMargin = value
		}
	}

	if raw := env("COST_BASE_RATE"); raw != "" {
		if value, err := strconv.ParseFloat(raw, 64); err == nil && value > 0 {
			cfg.CostBaseRate = value
		}
	}

	if raw := env("MAX_ANCHORS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.MaxAnchors = value
		}
	}

	if raw := env("MAX_INSTANCES"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.MaxInstances = value
		}
	}

	if raw := env("PACK_TIMEOUT"); raw != "" {
		if value, err := time.ParseDuration(raw); err == nil {
			cfg.PackTimeout = value
		}
	}

	if level := env("LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}

	if raw := env("ENABLE_REQUEST_LOGGING"); raw != "" {
		if value, err := strconv.ParseBool(raw); err == nil {
			cfg.EnableRequestLogging = value
		}
	}

	if raw := env("ENABLE_METRICS"); raw != "" {
		if value, err := strconv.ParseBool(raw); err == nil {
			cfg.EnableMetrics = value
		}
	}

	if rps := env("RATE_LIMIT_RPS"); rps != "" {
		if value, err := strconv.ParseFloat(rps, 64); err == nil && value >= 0 {
			cfg.RateLimitRPS = value
		}
	}

	if burst := env("RATE_LIMIT_BURST"); burst != "" {
		if value, err := strconv.Atoi(burst); err == nil && value >= 0 {
			cfg.RateLimitBurst = value
		}
	}
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

// applyCLIOverrides applies command-line flag overrides.
func applyCLIOverrides(cfg *Config, overrides *CLIOverrides) error {
	if overrides.Port != nil && *overrides.Port != "" {
		cfg.Port = *overrides.Port
	}

	if overrides.CatalogStr != nil && *overrides.CatalogStr != "" {
		boxes, err := ParseCatalog(*overrides.CatalogStr)
		if err != nil {
			return fmt.Errorf("parse box catalog: %w", err)
		}
		cfg.Catalog = boxes
	}

	if overrides.EnvelopePolicy != nil && *overrides.EnvelopePolicy != "" {
		policy, err := packing.ParseEnvelopePolicy(*overrides.EnvelopePolicy)
		if err != nil {
			return err
		}
		cfg.EnvelopePolicy = policy
	}

	if overrides.LogLevel != nil && *overrides.LogLevel != "" {
		cfg.LogLevel = *overrides.LogLevel
	}

	if overrides.PackTimeout != nil && *overrides.PackTimeout > 0 {
		cfg.PackTimeout = *overrides.PackTimeout
	}

	if overrides.RateLimitRPS != nil && *overrides.RateLimitRPS >= 0 {
		cfg.RateLimitRPS = *overrides.RateLimitRPS
	}

	if overrides.RateLimitBurst != nil && *overrides.RateLimitBurst >= 0 {
		cfg.RateLimitBurst = *overrides.RateLimitBurst
	}

	return nil
}

// validateConfig validates the final configuration.
func validateConfig(cfg Config) error {
	if cfg.RateLimitRPS < 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must be >= 0")
	}
	if cfg.RateLimitBurst < 0 {
		return fmt.Errorf("RATE_LIMIT_BURST must be >= 0")
	}
	if len(cfg.Catalog) == 0 {
		return fmt.Errorf("box catalog cannot be empty")
	}
	if cfg.CustomMargin < 0 {
		return fmt.Errorf("custom margin must be >= 0")
	}
	if cfg.PackTimeout < 0 {
		return fmt.Errorf("pack timeout must be >= 0")
	}
	if _, err := packing.ParseEnvelopePolicy(string(cfg.EnvelopePolicy)); err != nil {
		return err
	}
	return nil
}

// ParseCatalog parses a comma-separated box list. Each entry is LxWxH in
// centimetres, optionally prefixed by a name: "S:25x20x15,M:30x25x20".
func ParseCatalog(raw string) ([]packing.CatalogBox, error) {
	parts := strings.Split(raw, ",")
	boxes := make([]packing.CatalogBox, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		var name string
		if before, after, ok := strings.Cut(part, ":"); ok {
			name, part = strings.TrimSpace(before), strings.TrimSpace(after)
		}

		sides := strings.Split(strings.ToLower(part), "x")
		if len(sides) != 3 {
			return nil, fmt.Errorf("invalid box %q: want LxWxH", part)
		}
		var dims [3]float64
		for i, side := range sides {
			value, err := strconv.ParseFloat(strings.TrimSpace(side), 64)
			if err != nil {
				return nil, fmt.Errorf("invalid dimension %q in box %q", side, part)
			}
			if value <= 0 {
				return nil, fmt.Errorf("box dimension must be positive, got %g", value)
			}
			dims[i] = value
		}

		boxes = append(boxes, packing.CatalogBox{
			Name:       name,
			Dimensions: packing.Dimensions{Length: dims[0], Width: dims[1], Height: dims[2]},
		})
	}
	if len(boxes) == 0 {
		return nil, fmt.Errorf("no boxes provided")
	}
	return boxes, nil
}
