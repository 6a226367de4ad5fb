// Package config loads server and CLI settings from the environment.
package config

import (
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"
)

// ServerConfig holds everything the API server needs to start.
type ServerConfig struct {
	ListenAddr        string `envconfig:"GPUSIZER_LISTEN_ADDR" default:":8080"`
	DatabaseURL       string `envconfig:"DATABASE_URL"`
	DeviceCatalogPath string `envconfig:"GPUSIZER_DEVICE_CATALOG" default:"data/gpu_catalog.json"`
	ModelSeedPath     string `envconfig:"GPUSIZER_MODEL_SEED"`
	HubBaseURL        string `envconfig:"GPUSIZER_HUB_URL" default:"https://huggingface.co"`
	HubToken          string `envconfig:"GPUSIZER_HUB_TOKEN"`
	LogLevel          string `envconfig:"GPUSIZER_LOG_LEVEL" default:"info"`
}

// LoadServerConfig reads the server configuration, loading a .env file
// first when one is present.
func LoadServerConfig() (ServerConfig, error) {
	_ = godotenv.Load()

	var cfg ServerConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return ServerConfig{}, err
	}
	return cfg, nil
}

// CliConfig holds the defaults the CLI reads before flag parsing.
type CliConfig struct {
	APIURL string `envconfig:"GPUSIZER_API_URL" default:"http://localhost:8080"`
}

// LoadCliConfig reads the CLI configuration from the environment.
func LoadCliConfig() (CliConfig, error) {
	_ = godotenv.Load()

	var cfg CliConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return CliConfig{}, err
	}
	return cfg, nil
}

// LogLevelOrInfo parses a level name, falling back to info.
func LogLevelOrInfo(name string) zerolog.Level {
	level, err := zerolog.ParseLevel(name)
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}
