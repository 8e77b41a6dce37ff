package configs

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const envPrefix = "mcpfhir"

// FileConfig defines the structure loaded from the YAML configuration file.
type FileConfig struct {
	FHIR struct {
		BaseURL string            `yaml:"base_url"`
		Headers map[string]string `yaml:"headers"`
	} `yaml:"fhir"`
	Assessment struct {
		Categories []string `yaml:"categories"`
		SampleSize int      `yaml:"sample_size"`
		Workers    int      `yaml:"workers"`
	} `yaml:"assessment"`
}

// Config holds the final application configuration, merged from file and
// environment variables. Variables are read with the MCPFHIR_ prefix first and
// fall back to the bare name, so FHIR_BASE_URL and MCPFHIR_FHIR_BASE_URL both work.
type Config struct {
	ConfigFilePath string `envconfig:"CONFIG_FILE"`

	FHIRBaseURL   string            `envconfig:"FHIR_BASE_URL" default:"https://hapi.fhir.org/baseR4"`
	FHIRAuthToken string            `envconfig:"FHIR_AUTH_TOKEN"`
	FHIRTimeout   time.Duration     `envconfig:"FHIR_TIMEOUT" default:"30s"`
	FHIRHeaders   map[string]string `ignored:"true"`

	AssessCategories []string `envconfig:"ASSESS_CATEGORIES"`
	AssessSampleSize int      `envconfig:"ASSESS_SAMPLE_SIZE" default:"10"`
	AssessWorkers    int      `envconfig:"ASSESS_WORKERS" default:"1"`

	ListenAddr               string        `envconfig:"LISTEN_ADDR" default:":8080"`
	AdminAddr                string        `envconfig:"ADMIN_ADDR" default:":8081"`
	ShutdownTimeout          time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"5s"`
	ServerReadTimeout        time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"5s"`
	ServerIdleTimeout        time.Duration `envconfig:"SERVER_IDLE_TIMEOUT" default:"120s"`
	OtelExporterOtlpEndpoint string        `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OtelExporterOtlpInsecure bool          `envconfig:"OTEL_EXPORTER_OTLP_INSECURE" default:"true"`
	LogLevel                 string        `envconfig:"LOG_LEVEL" default:"info"`
	LogFile                  string        `envconfig:"LOG_FILE" default:"/tmp/mcpfhir.log"`
}

// ParsedLogLevel returns the slog.Level based on the configured LogLevel string.
func (c *Config) ParsedLogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	u, err := url.Parse(c.FHIRBaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("FHIR_BASE_URL must be an absolute http(s) URL, got %q", c.FHIRBaseURL))
	}
	if c.FHIRTimeout <= 0 {
		errs = append(errs, fmt.Errorf("FHIR_TIMEOUT must be positive, got %s", c.FHIRTimeout))
	}
	if c.AssessWorkers < 1 {
		errs = append(errs, fmt.Errorf("ASSESS_WORKERS must be at least 1, got %d", c.AssessWorkers))
	}
	if c.AssessSampleSize < 1 {
		errs = append(errs, fmt.Errorf("ASSESS_SAMPLE_SIZE must be at least 1, got %d", c.AssessSampleSize))
	}
	return errors.Join(errs...)
}

// Load reads the environment, then fills in settings from the optional YAML
// file for every variable the environment leaves unset.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	if cfg.ConfigFilePath != "" {
		raw, err := os.ReadFile(cfg.ConfigFilePath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file '%s': %w", cfg.ConfigFilePath, err)
		}
		var fileCfg FileConfig
		if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config file '%s': %w", cfg.ConfigFilePath, err)
		}
		slog.Info("Loaded configuration from file.", "path", cfg.ConfigFilePath)
		cfg.applyFile(fileCfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// envSet reports whether key is set with or without the MCPFHIR_ prefix.
func envSet(key string) bool {
	if _, ok := os.LookupEnv(strings.ToUpper(envPrefix) + "_" + key); ok {
		return true
	}
	_, ok := os.LookupEnv(key)
	return ok
}

func (c *Config) applyFile(f FileConfig) {
	if f.FHIR.BaseURL != "" && !envSet("FHIR_BASE_URL") {
		c.FHIRBaseURL = f.FHIR.BaseURL
	}
	if len(f.FHIR.Headers) > 0 {
		c.FHIRHeaders = f.FHIR.Headers
	}
	if len(f.Assessment.Categories) > 0 && !envSet("ASSESS_CATEGORIES") {
		c.AssessCategories = f.Assessment.Categories
	}
	if f.Assessment.SampleSize != 0 && !envSet("ASSESS_SAMPLE_SIZE") {
		c.AssessSampleSize = f.Assessment.SampleSize
	}
	if f.Assessment.Workers != 0 && !envSet("ASSESS_WORKERS") {
		c.AssessWorkers = f.Assessment.Workers
	}
}
