// internal/config/config.go
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds every environment-driven setting the bot reads. A single
// administrator username gates all mutating commands; everything else is
// connection material.
type Config struct {
	BotToken      string `env:"TELEGRAM_BOT_TOKEN,required"`
	AdminUsername string `env:"ADMIN_USERNAME,required"`

	DBHost     string `env:"DB_HOST" envDefault:"localhost"`
	DBPort     int    `env:"DB_PORT" envDefault:"5432"`
	DBUser     string `env:"DB_USER,required"`
	DBPassword string `env:"DB_PASSWORD,required"`
	DBName     string `env:"DB_NAME,required"`

	WeatherAPIKey string `env:"WEATHER_API_KEY"`

	Workers int    `env:"BOT_WORKERS" envDefault:"8"`
	LogMode string `env:"LOG_MODE" envDefault:"dev"`
}

// Load reads an optional .env file and parses the environment into a
// Config. A missing .env file is not an error; missing required
// variables are.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &cfg, nil
}
