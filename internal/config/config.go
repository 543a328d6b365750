// Package config loads daemon configuration from environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the godwatchd runtime settings.
type Config struct {
	DBPath       string        `env:"GODWATCH_DB" envDefault:"data/godwatch.db"`
	Addr         string        `env:"GODWATCH_ADDR" envDefault:":8080"`
	TickInterval time.Duration `env:"GODWATCH_TICK_INTERVAL" envDefault:"10m"`
	LogLevel     string        `env:"GODWATCH_LOG_LEVEL" envDefault:"info"`
	RandomOrgKey string        `env:"GODWATCH_RANDOM_ORG_KEY"`
}

// Load parses the configuration from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
