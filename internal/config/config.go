package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v9"
	"github.com/shopspring/decimal"
)

// Config holds application configuration sourced from environment variables.
type Config struct {
	Env  string `env:"APP_ENV" envDefault:"development"`
	Port string `env:"PORT" envDefault:"8080"`

	DBDriver      string `env:"DB_DRIVER" envDefault:"sqlite"`
	DBDSN         string `env:"DB_DSN" envDefault:"./dev.db"`
	MigrationsDir string `env:"MIGRATIONS_DIR" envDefault:"migrations"`

	SessionSecret string `env:"SESSION_SECRET"`
	AdminEmail    string `env:"ADMIN_EMAIL"`
	AdminPassword string `env:"ADMIN_PASSWORD"`

	CartStore     string        `env:"CART_STORE" envDefault:"memory"`
	CartTTL       time.Duration `env:"CART_TTL" envDefault:"168h"`
	RedisAddr     string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0"`

	PublicBaseURL string `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:8080"`

	MollieAPIKey  string `env:"MOLLIE_API_KEY"`
	MollieBaseURL string `env:"MOLLIE_BASE_URL" envDefault:"https://api.mollie.com/v2"`

	ResendAPIKey   string `env:"RESEND_API_KEY"`
	ResendBaseURL  string `env:"RESEND_BASE_URL" envDefault:"https://api.resend.com"`
	MailFrom       string `env:"MAIL_FROM" envDefault:"BeletteringBestellen <noreply@beletteringbestellen.nl>"`
	ShopOwnerEmail string `env:"SHOP_OWNER_EMAIL" envDefault:"info@beletteringbestellen.nl"`

	TelegramToken  string `env:"TELEGRAM_TOKEN"`
	TelegramChatID int64  `env:"TELEGRAM_CHAT_ID"`

	MinimumOrderAmount string        `env:"MINIMUM_ORDER_AMOUNT" envDefault:"9.95"`
	HTTPTimeout        time.Duration `env:"HTTP_TIMEOUT" envDefault:"15s"`
}

// Load reads a local .env (if any) and then the environment.
func Load() (Config, error) {
	// Best-effort: production injects real environment variables.
	_ = loadDotEnv(".env")

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.DBDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("DB_DRIVER must be sqlite or postgres, got %q", c.DBDriver)
	}
	switch c.CartStore {
	case "memory", "redis":
	default:
		return fmt.Errorf("CART_STORE must be memory or redis, got %q", c.CartStore)
	}
	if _, err := c.MinimumOrder(); err != nil {
		return err
	}
	if !c.IsDev() && c.SessionSecret == "" {
		return errors.New("SESSION_SECRET is required outside development")
	}
	return nil
}

func (c Config) IsDev() bool {
	return c.Env == "development" || c.Env == "dev" || c.Env == "test"
}

// MinimumOrder is the order floor per text line. Zero disables it.
func (c Config) MinimumOrder() (decimal.Decimal, error) {
	if c.MinimumOrderAmount == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(c.MinimumOrderAmount)
	if err != nil || d.IsNegative() {
		return decimal.Zero, fmt.Errorf("MINIMUM_ORDER_AMOUNT must be a non-negative amount, got %q", c.MinimumOrderAmount)
	}
	return d, nil
}

// Warnings lists settings that are empty and disable a feature.
func (c Config) Warnings() []string {
	var out []string
	if c.AdminEmail == "" || c.AdminPassword == "" {
		out = append(out, "ADMIN_EMAIL/ADMIN_PASSWORD not set: no admin user is seeded")
	}
	if c.SessionSecret == "" {
		out = append(out, "SESSION_SECRET not set: using an insecure development secret")
	}
	if c.MollieAPIKey == "" {
		out = append(out, "MOLLIE_API_KEY not set: checkout will fail")
	}
	if c.ResendAPIKey == "" {
		out = append(out, "RESEND_API_KEY not set: emails will fail")
	}
	if c.TelegramToken == "" || c.TelegramChatID == 0 {
		out = append(out, "TELEGRAM_TOKEN/TELEGRAM_CHAT_ID not set: paid orders are not announced")
	}
	return out
}
