// Package config loads server settings from the environment, reading a local
// .env file first when one exists.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config holds every tunable the server reads at startup.
type Config struct {
	Port      string `env:"PORT" envDefault:"5175"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	DatabasePath string `env:"DATABASE_PATH" envDefault:"./data/memory.db"`

	JWTSecret      string `env:"JWT_SECRET" envDefault:"dev_secret_change_me"`
	JWTExpiresDays int    `env:"JWT_EXPIRES_DAYS" envDefault:"14"`
	CookieName     string `env:"COOKIE_NAME" envDefault:"memory_token"`
	AppEnv         string `env:"APP_ENV" envDefault:"development"`
	ClientOrigin   string `env:"CLIENT_ORIGIN" envDefault:"http://localhost:5173"`

	DailySalt   string `env:"DAILY_SALT" envDefault:"local_dev_salt"`
	SymbolsFile string `env:"SYMBOLS_FILE"`
	NATSURL     string `env:"NATS_URL"`

	SessionIdleTTL       time.Duration `env:"SESSION_IDLE_TTL" envDefault:"2h"`
	SessionSweepInterval time.Duration `env:"SESSION_SWEEP_INTERVAL" envDefault:"5m"`
}

// Production reports whether cookies should be Secure/SameSite=None.
func (c Config) Production() bool { return c.AppEnv == "production" }

// Load reads .env (if present) and parses the environment into a Config.
func Load() (Config, error) {
	_ = godotenv.Load()
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// SetupLogging applies the level and output format to zerolog's globals.
func SetupLogging(cfg Config) {
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	if cfg.LogFormat == "console" {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).With().Timestamp().Logger()
	}
}
