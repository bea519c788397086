// Package config loads process settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/aretw0/rewind/internal/logging"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Store backends.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"
)

// Settings holds everything the CLI reads from the environment.
// Command-line flags override them.
type Settings struct {
	LogLevel  string `env:"REWIND_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"REWIND_LOG_FORMAT" envDefault:"text"`

	Store      string `env:"REWIND_STORE" envDefault:"file"`
	SessionDir string `env:"REWIND_SESSION_DIR" envDefault:".rewind/sessions"`

	RedisAddr     string        `env:"REWIND_REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string        `env:"REWIND_REDIS_PASSWORD"`
	RedisDB       int           `env:"REWIND_REDIS_DB" envDefault:"0"`
	RedisPrefix   string        `env:"REWIND_REDIS_PREFIX" envDefault:"rewind:session:"`
	SessionTTL    time.Duration `env:"REWIND_SESSION_TTL" envDefault:"0s"`

	HTTPPort  int `env:"REWIND_HTTP_PORT" envDefault:"8080"`
	RateLimit int `env:"REWIND_RATE_LIMIT" envDefault:"0"` // Requests per minute per IP; 0 disables.
}

// Load reads the given .env files (".env" when none are named, ignored if
// missing) and then parses the environment. Variables already set in the
// environment win over the files.
func Load(files ...string) (Settings, error) {
	if len(files) == 0 {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Settings{}, fmt.Errorf("failed to read .env: %w", err)
		}
	} else if err := godotenv.Load(files...); err != nil {
		return Settings{}, fmt.Errorf("failed to read env files: %w", err)
	}

	var s Settings
	if err := env.Parse(&s); err != nil {
		return Settings{}, fmt.Errorf("failed to parse environment: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Validate rejects settings no command can work with.
func (s Settings) Validate() error {
	var errs []error
	switch s.Store {
	case StoreMemory, StoreFile, StoreRedis:
	default:
		errs = append(errs, fmt.Errorf("REWIND_STORE: unknown store %q (want memory, file or redis)", s.Store))
	}
	if _, err := ParseLevel(s.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("REWIND_LOG_LEVEL: %w", err))
	}
	if err := logging.ValidateFormat(s.LogFormat); err != nil {
		errs = append(errs, fmt.Errorf("REWIND_LOG_FORMAT: %w", err))
	}
	if s.HTTPPort <= 0 || s.HTTPPort > 65535 {
		errs = append(errs, fmt.Errorf("REWIND_HTTP_PORT: %d out of range", s.HTTPPort))
	}
	if s.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("REWIND_RATE_LIMIT: must not be negative"))
	}
	if s.SessionTTL < 0 {
		errs = append(errs, fmt.Errorf("REWIND_SESSION_TTL: must not be negative"))
	}
	return errors.Join(errs...)
}

// Level returns the parsed log level, defaulting to info.
func (s Settings) Level() slog.Level {
	level, err := ParseLevel(s.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

// ParseLevel accepts debug, info, warn and error, case-insensitively.
func ParseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(name))); err != nil {
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", name)
	}
	return level, nil
}
