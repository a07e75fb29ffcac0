package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Provider client modes.
const (
	ModeAuto = "auto"
	ModeAPI  = "api"
	// ModeBrowser selects the browser-automation client; not shipped in
	// this build, rejected at provider construction.
	ModeBrowser = "browser"
)

type Config struct {
	DatabaseURL string `env:"DATABASE_URL,notEmpty"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// sniper
	PollIntervalSeconds  int  `env:"SNIPER_POLL_INTERVAL_SECONDS" envDefault:"5"`
	MaxAttempts          int  `env:"SNIPER_MAX_ATTEMPTS" envDefault:"60"`
	TimeWindowMinutes    int  `env:"SNIPER_DEFAULT_TIME_WINDOW_MINUTES" envDefault:"60"`
	DefaultPartySize     int  `env:"DEFAULT_PARTY_SIZE" envDefault:"2"`
	AutoResolveConflicts bool `env:"SNIPER_AUTO_RESOLVE_CONFLICTS" envDefault:"true"`

	// provider
	ClientMode          string `env:"RESY_CLIENT_MODE" envDefault:"auto"`
	ResyAPIKey          string `env:"RESY_API_KEY"`
	ResyAuthToken       string `env:"RESY_AUTH_TOKEN"`
	ResyPaymentMethodID string `env:"RESY_PAYMENT_METHOD_ID"`

	// notifications
	ResendAPIKey string `env:"RESEND_API_KEY"`
	EmailFrom    string `env:"EMAIL_FROM"`
	EmailTo      string `env:"EMAIL_TO"`
}

// Load reads .env (when present) and the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}

	switch cfg.ClientMode {
	case ModeAuto, ModeAPI, ModeBrowser:
	default:
		return Config{}, fmt.Errorf("invalid RESY_CLIENT_MODE %q (want auto, api, or browser)", cfg.ClientMode)
	}
	if cfg.PollIntervalSeconds < 1 {
		return Config{}, fmt.Errorf("SNIPER_POLL_INTERVAL_SECONDS must be >= 1")
	}
	if cfg.MaxAttempts < 1 {
		return Config{}, fmt.Errorf("SNIPER_MAX_ATTEMPTS must be >= 1")
	}
	if cfg.TimeWindowMinutes < 0 {
		return Config{}, fmt.Errorf("SNIPER_DEFAULT_TIME_WINDOW_MINUTES must be >= 0")
	}

	return cfg, nil
}

func (c Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

func (c Config) HasResyConfigured() bool {
	return c.ResyAPIKey != "" && c.ResyAuthToken != ""
}

func (c Config) HasEmailConfigured() bool {
	return c.ResendAPIKey != "" && c.EmailFrom != "" && c.EmailTo != ""
}
