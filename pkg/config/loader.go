package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v10"
)

// EnvDevelopment is the ENVIRONMENT value that relaxes secret checks.
const EnvDevelopment = "development"

// Load parses environment variables into the provided struct.
// The struct should use `env` tags to define mappings.
//
// Example:
//
//	type Config struct {
//	    Port     int    `env:"HTTP_PORT" envDefault:"8080"`
//	    LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
//	}
func Load(cfg any) error {
	return LoadWithOptions(cfg, env.Options{})
}

// LoadWithOptions is Load with explicit env.Options, e.g. a fixed Environment
// map for tests or a Prefix for sidecar tools.
func LoadWithOptions(cfg any, opts env.Options) error {
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

// IsDevelopment reports whether the ENVIRONMENT value denotes a local setup.
func IsDevelopment(environment string) bool {
	switch strings.ToLower(environment) {
	case EnvDevelopment, "local", "test":
		return true
	default:
		return false
	}
}
