// Package config manages environment variables.
//
// It reads variables (optionally from a `.env` file), loads them into
// structured Go types, and validates them so the gateway fails fast on
// bad or missing configuration.
//
// Responsibilities:
//   - Load environment variables with the SCHEMAGUARD_ prefix.
//   - Map env vars into the Config struct (double underscore = nesting).
//   - Validate required values.
//   - Provide defaults for everything that has a sensible one.
package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	// Side-effect import: loads `.env` into the process environment, if present.
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix every schemaguard variable starts with.
const EnvPrefix = "SCHEMAGUARD_"

/*
	Env var naming:
	- prefix SCHEMAGUARD_ is removed, the rest lowercased
	- a double underscore separates nesting levels, a single one stays
	  part of the key

	  SCHEMAGUARD_SERVER__READ_TIMEOUT -> server.read_timeout
	  SCHEMAGUARD_OBSERVABILITY__LOGGING__LEVEL -> observability.logging.level

	- values containing commas become lists
	  SCHEMAGUARD_SERVER__CORS_ALLOWED_ORIGINS=https://a.io,https://b.io
*/

// Config is the root configuration object.
//
// Observability is a pointer because the whole block is optional;
// DefaultObservabilityConfig fills it in when missing.
type Config struct {
	Primary       Primary              `koanf:"primary" validate:"required"`
	Server        ServerConfig         `koanf:"server" validate:"required"`
	Gateway       GatewayConfig        `koanf:"gateway" validate:"required"`
	Observability *ObservabilityConfig `koanf:"observability"`
}

// Primary holds top-level information about the runtime environment.
type Primary struct {
	Env string `koanf:"env" validate:"required,oneof=development staging production test"`
}

// ServerConfig groups settings for the HTTP server runtime.
// Timeouts are in seconds.
type ServerConfig struct {
	Port               string   `koanf:"port" validate:"required"`
	ReadTimeout        int      `koanf:"read_timeout" validate:"required,min=1"`
	WriteTimeout       int      `koanf:"write_timeout" validate:"required,min=1"`
	IdleTimeout        int      `koanf:"idle_timeout" validate:"required,min=1"`
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins" validate:"required,min=1"`

	// RateLimit is the allowed requests per second per client IP; 0 disables it.
	RateLimit float64 `koanf:"rate_limit" validate:"min=0"`
}

// GatewayConfig configures the validating gateway itself.
type GatewayConfig struct {
	// ManifestPath is the YAML route manifest to serve.
	ManifestPath string `koanf:"manifest_path" validate:"required"`

	// MaxBodyBytes caps how much of a request body is read for validation.
	MaxBodyBytes int64 `koanf:"max_body_bytes" validate:"min=1"`
}

// DefaultConfig returns the values used for every key the environment
// does not set.
func DefaultConfig() *Config {
	return &Config{
		Primary: Primary{Env: "development"},
		Server: ServerConfig{
			Port:               "8080",
			ReadTimeout:        30,
			WriteTimeout:       30,
			IdleTimeout:        60,
			CORSAllowedOrigins: []string{"*"},
			RateLimit:          20,
		},
		Gateway: GatewayConfig{
			ManifestPath: "routes.yaml",
			MaxBodyBytes: 10 << 20,
		},
	}
}

// envKey turns SCHEMAGUARD_SERVER__READ_TIMEOUT into server.read_timeout.
func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
}

// LoadConfig loads configuration from environment variables, validates it,
// applies defaults and returns it.
//
// Behavior summary:
//   - start from DefaultConfig
//   - overlay env vars with prefix SCHEMAGUARD_
//   - inject default observability if missing, then pin service name and environment
//   - validate struct tags
//   - run the observability block's own checks
func LoadConfig() (*Config, error) {
	k := koanf.New(".")

	err := k.Load(env.ProviderWithValue(EnvPrefix, ".", func(key, value string) (string, interface{}) {
		if strings.Contains(value, ",") {
			return envKey(key), strings.Split(value, ",")
		}
		return envKey(key), value
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("could not load env variables: %w", err)
	}

	mainConfig := DefaultConfig()

	// Unmarshal overlays the env values on top of the defaults.
	if err := k.Unmarshal("", mainConfig); err != nil {
		return nil, fmt.Errorf("could not unmarshal config: %w", err)
	}

	if mainConfig.Observability == nil {
		mainConfig.Observability = DefaultObservabilityConfig()
	}

	// The service name is not configurable; the environment follows primary.env.
	// Both are pinned before validation so a partial observability block passes.
	mainConfig.Observability.ServiceName = "schemaguard"
	mainConfig.Observability.Environment = mainConfig.Primary.Env

	if err := validator.New().Struct(mainConfig); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	if err := mainConfig.Observability.Validate(); err != nil {
		return nil, fmt.Errorf("invalid observability config: %w", err)
	}

	return mainConfig, nil
}
