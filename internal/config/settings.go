package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Settings are process-wide options read from the environment.
type Settings struct {
	DataDir     string `env:"MODSIM_DATA_DIR" envDefault:"./data" validate:"required"`
	Store       string `env:"MODSIM_STORE" envDefault:"file" validate:"oneof=file sqlite"`
	LogLevel    string `env:"MODSIM_LOG_LEVEL" envDefault:"info" validate:"oneof=trace debug info warn error"`
	LogFormat   string `env:"MODSIM_LOG_FORMAT" envDefault:"console" validate:"oneof=console json"`
	MetricsFile string `env:"MODSIM_METRICS_FILE"`
}

func LoadSettings() (Settings, error) {
	var s Settings
	if err := env.Parse(&s); err != nil {
		return Settings{}, fmt.Errorf("parse env: %w", err)
	}
	if err := validate.Struct(s); err != nil {
		return Settings{}, fmt.Errorf("invalid settings: %w", err)
	}
	return s, nil
}
