package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config хранит все конфигурационные параметры обоих сервисов.
type Config struct {
	DatabaseURL string `env:"DATABASE_URL"`
	RedisURL    string `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`

	JWTSecretKey   string `env:"JWT_SECRET_KEY"`
	AdminRegNumber string `env:"ADMIN_REG_NUMBER" envDefault:"admin"`
	ServerPort     int    `env:"SERVER_PORT" envDefault:"8080"`

	// Соседние сервисы
	EventConfigurationURL  string        `env:"EVENT_CONFIGURATION_URL" envDefault:"http://localhost:8004"`
	SportsParticipationURL string        `env:"SPORTS_PARTICIPATION_URL" envDefault:"http://localhost:8005"`
	IdentityURL            string        `env:"IDENTITY_URL" envDefault:"http://localhost:8001"`
	SchedulingURL          string        `env:"SCHEDULING_URL" envDefault:"http://localhost:8006"`
	ScoringURL             string        `env:"SCORING_URL" envDefault:"http://localhost:8007"`
	HTTPClientTimeout      time.Duration `env:"HTTP_CLIENT_TIMEOUT" envDefault:"10s"`

	CacheTTL          time.Duration `env:"CACHE_TTL" envDefault:"5s"`
	EventYearCacheTTL time.Duration `env:"EVENT_YEAR_CACHE_TTL" envDefault:"10s"`

	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*"`
	Timezone           string `env:"TIMEZONE" envDefault:"Local"`

	// Cloudflare R2, опционально: снимки таблицы очков после backfill
	R2AccountID       string `env:"R2_ACCOUNT_ID"`
	R2AccessKeyID     string `env:"R2_ACCESS_KEY_ID"`
	R2SecretAccessKey string `env:"R2_SECRET_ACCESS_KEY"`
	R2BucketName      string `env:"R2_BUCKET_NAME"`
	R2PublicBaseURL   string `env:"R2_PUBLIC_BASE_URL"`
}

// Load загружает конфигурацию из переменных окружения.
// Опционально подгружает .env файл (полезно для локальной разработки).
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL environment variable is not set")
	}
	if c.JWTSecretKey == "" {
		return errors.New("JWT_SECRET_KEY environment variable is not set")
	}
	if c.ServerPort <= 0 || c.ServerPort > 65535 {
		return fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", c.ServerPort)
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("CACHE_TTL must be positive, got %s", c.CacheTTL)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location returns the zone calendar days are evaluated in.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// R2Enabled reports whether every Cloudflare R2 setting is present.
func (c *Config) R2Enabled() bool {
	return c.R2AccountID != "" && c.R2AccessKeyID != "" && c.R2SecretAccessKey != "" &&
		c.R2BucketName != "" && c.R2PublicBaseURL != ""
}

func (c *Config) AllowedOrigins() []string {
	parts := strings.Split(c.CORSAllowedOrigins, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			origins = append(origins, p)
		}
	}
	return origins
}
