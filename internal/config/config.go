// internal/config/config.go
//
// Process configuration for the starcipher server and CLI.
// Responsibilities:
//   - Load .env (if present) through godotenv, then read the environment.
//   - Typed helpers with defaults; malformed numbers fall back with a warning.
//   - Build the per-challenge game.Config (Game), honouring a motion override.
//
// Notes:
//   - Production (NODE_ENV or APP_ENV = production) refuses the dev JWT secret.
//   - An unknown MOTION is a start-up error rather than a silent default.

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/starcipher/internal/game"
)

// Config is the process configuration, read from the environment and an
// optional .env file.
type Config struct {
	Port           string
	LogLevel       string
	DBPath         string
	JWTSecret      string
	JWTExpiresDays int
	CookieName     string
	ClientOrigin   string
	Production     bool
	DailySalt      string
	MessagesFile   string
	SessionTTL     time.Duration

	MaxLevel      int
	MaxLives      int
	RoundSeconds  int
	BaseInterval  time.Duration
	BoostInterval time.Duration
	BoostWindow   time.Duration
	WinDelay      time.Duration
	Motion        string
	FieldWidth    float64
	FieldHeight   float64
	HitRadius     float64
}

// Load reads .env (if present) and then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file found, reading from environment")
	}
	return FromEnv()
}

// FromEnv builds a Config from the current environment only.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Port:           getEnv("PORT", "5175"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		DBPath:         getEnv("DB_PATH", "./data/app.db"),
		JWTSecret:      getEnv("JWT_SECRET", "dev_secret_change_me"),
		JWTExpiresDays: getEnvAsInt("JWT_EXPIRES_DAYS", 14),
		CookieName:     getEnv("COOKIE_NAME", "starcipher_token"),
		ClientOrigin:   getEnv("CLIENT_ORIGIN", "http://localhost:5173"),
		Production:     os.Getenv("NODE_ENV") == "production" || os.Getenv("APP_ENV") == "production",
		DailySalt:      getEnv("DAILY_SALT", "local_dev_salt"),
		MessagesFile:   os.Getenv("MESSAGES_FILE"),
		SessionTTL:     time.Duration(getEnvAsInt("SESSION_TTL_MINUTES", 30)) * time.Minute,

		MaxLevel:      getEnvAsInt("MAX_LEVEL", 5),
		MaxLives:      getEnvAsInt("MAX_LIVES", 3),
		RoundSeconds:  getEnvAsInt("ROUND_SECONDS", 10),
		BaseInterval:  getEnvAsMillis("BASE_INTERVAL_MS", 1200),
		BoostInterval: getEnvAsMillis("BOOST_INTERVAL_MS", 300),
		BoostWindow:   getEnvAsMillis("BOOST_WINDOW_MS", 1000),
		WinDelay:      getEnvAsMillis("WIN_DELAY_MS", 1500),
		Motion:        getEnv("MOTION", "jump"),
		FieldWidth:    getEnvAsFloat("FIELD_WIDTH", 90),
		FieldHeight:   getEnvAsFloat("FIELD_HEIGHT", 90),
		HitRadius:     getEnvAsFloat("HIT_RADIUS", 5),
	}

	if cfg.Production && cfg.JWTSecret == "dev_secret_change_me" {
		return nil, fmt.Errorf("JWT_SECRET must be set in production")
	}
	if _, err := game.MotionByName(cfg.Motion); err != nil {
		return nil, fmt.Errorf("MOTION: %w", err)
	}
	return cfg, nil
}

// Game returns the challenge configuration. An explicit motion name
// overrides the configured default.
func (c *Config) Game(motion string) (game.Config, error) {
	if strings.TrimSpace(motion) == "" {
		motion = c.Motion
	}
	m, err := game.MotionByName(motion)
	if err != nil {
		return game.Config{}, err
	}
	return game.Config{
		MaxLevel:      c.MaxLevel,
		MaxLives:      c.MaxLives,
		RoundSeconds:  c.RoundSeconds,
		BaseInterval:  c.BaseInterval,
		BoostInterval: c.BoostInterval,
		BoostWindow:   c.BoostWindow,
		WinDelay:      c.WinDelay,
		HitRadius:     c.HitRadius,
		Field:         game.Field{Width: c.FieldWidth, Height: c.FieldHeight},
		Motion:        m,
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
		log.Warn().Str("key", key).Str("value", value).Msg("ignoring non-integer setting")
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
		log.Warn().Str("key", key).Str("value", value).Msg("ignoring non-numeric setting")
	}
	return defaultValue
}

func getEnvAsMillis(key string, defaultValue int) time.Duration {
	return time.Duration(getEnvAsInt(key, defaultValue)) * time.Millisecond
}
