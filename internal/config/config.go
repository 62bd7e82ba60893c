package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr  string     `env:"HTTP_ADDR" envDefault:":8080"`
	DBPath    string     `env:"DB_PATH" envDefault:"data/questboard.db"`
	LogLevel  slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
	LogFormat string     `env:"LOG_FORMAT" envDefault:"json"`
	LogFile   string     `env:"LOG_FILE"`

	// RedisURL is optional. Without it the leaderboard is computed from
	// the document store and notifications stay in-process.
	RedisURL     string `env:"REDIS_URL"`
	EventChannel string `env:"EVENT_CHANNEL" envDefault:"questboard:events"`

	JWTSecret      string        `env:"JWT_SECRET" envDefault:"change-me-in-production"`
	PlayerTokenTTL time.Duration `env:"PLAYER_TOKEN_TTL" envDefault:"720h"`
	SessionTTL     time.Duration `env:"SESSION_TTL" envDefault:"168h"`

	AdminEmail    string `env:"ADMIN_EMAIL" envDefault:"admin@playperu.com"`
	AdminPassword string `env:"ADMIN_PASSWORD" envDefault:"changeme"`
	AdminName     string `env:"ADMIN_NAME" envDefault:"Admin"`

	// ConsoleDir is an optional directory holding the built admin console.
	ConsoleDir string `env:"CONSOLE_DIR"`

	Timezone          string `env:"TIMEZONE" envDefault:"Local"`
	ProgressionPolicy string `env:"PROGRESSION_POLICY" envDefault:"floor"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func (c *Config) validate() error {
	switch c.LogFormat {
	case "json", "text":
	default:
		return fmt.Errorf("invalid LOG_FORMAT %q: want json or text", c.LogFormat)
	}
	switch c.ProgressionPolicy {
	case "floor", "symmetric":
	default:
		return fmt.Errorf("invalid PROGRESSION_POLICY %q: want floor or symmetric", c.ProgressionPolicy)
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET must not be empty")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}
