// internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/SyedDaiam9101/tl-detector/internal/classifier"
)

// EnvPrefix is the prefix of every environment variable the service reads.
const EnvPrefix = "TL_DETECTOR"

// Config holds all configuration for the service
type Config struct {
	// Server configuration
	Port        int    `mapstructure:"port"`
	MetricsPort int    `mapstructure:"metrics_port"`
	Redis       string `mapstructure:"redis"`

	// Classifier configuration
	Backend     string `mapstructure:"backend"`
	ModelDir    string `mapstructure:"model_dir"`
	SampleImage string `mapstructure:"sample_image"`
	ONNXLibrary string `mapstructure:"onnx_library"`

	// How long a published signal stays in Redis
	PublishTTL time.Duration `mapstructure:"publish_ttl"`

	// OpenTelemetry configuration
	OTELEnabled  bool   `mapstructure:"otel_enabled"`
	OTELEndpoint string `mapstructure:"otel_endpoint"`

	// Logging
	LogLevel       string `mapstructure:"log_level"`
	LogDevelopment bool   `mapstructure:"log_development"`

	// Feature flags
	UseMockInference bool `mapstructure:"use_mock_inference"`
}

func newViper() *viper.Viper {
	v := viper.New()

	// Set defaults
	v.SetDefault("port", 50051)
	v.SetDefault("metrics_port", 9100)
	v.SetDefault("redis", "")
	v.SetDefault("backend", string(classifier.Simulator))
	v.SetDefault("model_dir", "light_classification")
	v.SetDefault("sample_image", "")
	v.SetDefault("onnx_library", "")
	v.SetDefault("publish_ttl", 2*time.Second)
	v.SetDefault("otel_endpoint", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_development", false)
	v.SetDefault("use_mock_inference", false)

	// Environment variable configuration
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// otel_enabled has no default so an explicit setting can be told apart
	v.BindEnv("otel_enabled")

	// Also read OTEL standard env vars
	v.BindEnv("otel_endpoint", EnvPrefix+"_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
	v.BindEnv("use_mock_inference", EnvPrefix+"_USE_MOCK")

	return v
}

// Load loads configuration from environment variables and an optional config file.
// An empty configPath searches ./config.yaml, /etc/tl-detector/ and $HOME/.tl-detector.
// Priority (highest to lowest): env vars > config file > defaults. Flags are applied by the caller.
func Load(configPath string) (*Config, error) {
	v := newViper()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configPath, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/tl-detector/")
		v.AddConfigPath("$HOME/.tl-detector")

		// Read config file if present (ignore error if not found)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// The standard OTEL endpoint variable turns tracing on by itself
	if cfg.OTELEndpoint != "" && !v.IsSet("otel_enabled") {
		cfg.OTELEnabled = true
	}

	return &cfg, nil
}

// ClassifierConfig returns the classifier settings. Call Validate first.
func (c *Config) ClassifierConfig() classifier.Config {
	return classifier.Config{
		Backend:     classifier.Kind(c.Backend),
		ModelDir:    c.ModelDir,
		SampleImage: c.SampleImage,
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.MetricsPort <= 0 || c.MetricsPort > 65535 {
		return fmt.Errorf("invalid metrics port: %d", c.MetricsPort)
	}
	if c.Port == c.MetricsPort {
		return fmt.Errorf("port and metrics_port must be different")
	}
	if _, err := classifier.ParseKind(c.Backend); err != nil {
		return fmt.Errorf("invalid backend: %w", err)
	}
	if c.ModelDir == "" && !c.UseMockInference {
		return fmt.Errorf("model_dir is required when not using mock inference")
	}
	if c.PublishTTL <= 0 {
		return fmt.Errorf("publish_ttl must be positive, got %v", c.PublishTTL)
	}
	return nil
}
