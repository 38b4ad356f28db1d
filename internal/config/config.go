package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds the externally supplied settings. The listen port is
// the only contract-level knob; the rest is ambient.
type Config struct {
	Port       string `env:"PORT" envDefault:"8080"`
	GeoBaseURL string `env:"GEO_BASE_URL"`
	Debug      bool   `env:"DEBUG" envDefault:"false"`
}

// Load reads .env when present, then parses the environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

func (c Config) Addr() string {
	return ":" + c.Port
}
