// Package config loads application configuration from the environment,
// an optional .env file and an optional config.yaml.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Storage backends.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Target platforms for URL launching.
const (
	PlatformIOS     = "ios"
	PlatformAndroid = "android"
)

// Config holds all configuration values.
type Config struct {
	Addr      string `mapstructure:"APP_ADDR"`
	DataDir   string `mapstructure:"DATA_DIR"`
	StaticDir string `mapstructure:"STATIC_DIR"`
	Env       string `mapstructure:"ENV"`
	LogLevel  string `mapstructure:"LOG_LEVEL"`

	// Persistence.
	StorageBackend  string `mapstructure:"STORAGE_BACKEND"`
	RedisAddr       string `mapstructure:"REDIS_ADDR"`
	RedisPassword   string `mapstructure:"REDIS_PASSWORD"`
	RedisDB         int    `mapstructure:"REDIS_DB"`
	RedisNamespace  string `mapstructure:"REDIS_NAMESPACE"`
	SessionKey      string `mapstructure:"SESSION_KEY"`
	AppointmentsKey string `mapstructure:"APPOINTMENTS_KEY"`

	// Business contact details.
	SiteURL       string `mapstructure:"SITE_URL"`
	BookingAnchor string `mapstructure:"BOOKING_ANCHOR"`
	Phone         string `mapstructure:"PHONE"`
	Email         string `mapstructure:"EMAIL"`
	OfficeAddress string `mapstructure:"OFFICE_ADDRESS"`
	BusinessName  string `mapstructure:"BUSINESS_NAME"`
	Platform      string `mapstructure:"PLATFORM"`

	// Sign-in.
	OAuthClientID    string        `mapstructure:"OAUTH_CLIENT_ID"`
	OAuthAuthURL     string        `mapstructure:"OAUTH_AUTH_URL"`
	OAuthRedirectURL string        `mapstructure:"OAUTH_REDIRECT_URL"`
	SignInTimeout    time.Duration `mapstructure:"SIGNIN_TIMEOUT"`
	GuestEscapeHatch bool          `mapstructure:"GUEST_ESCAPE_HATCH"`
	SignInRatePerSec float64       `mapstructure:"SIGNIN_RATE_PER_SEC"`
	SignInRateBurst  int           `mapstructure:"SIGNIN_RATE_BURST"`
}

var defaults = map[string]any{
	"APP_ADDR":            ":8099",
	"DATA_DIR":            "/data",
	"STATIC_DIR":          "./static",
	"ENV":                 "development",
	"LOG_LEVEL":           "info",
	"STORAGE_BACKEND":     BackendSQLite,
	"REDIS_ADDR":          "localhost:6379",
	"REDIS_PASSWORD":      "",
	"REDIS_DB":            0,
	"REDIS_NAMESPACE":     "ppd",
	"SESSION_KEY":         "ppd.session",
	"APPOINTMENTS_KEY":    "ppd.appointments",
	"SITE_URL":            "https://www.parsonspestdetectives.com/",
	"BOOKING_ANCHOR":      "get-protected",
	"PHONE":               "+12052020818",
	"EMAIL":               "info@parsonspestdetectives.com",
	"OFFICE_ADDRESS":      "13040 Fisher Circle, McCalla, AL",
	"BUSINESS_NAME":       "Parsons Pest Detectives",
	"PLATFORM":            PlatformIOS,
	"OAUTH_CLIENT_ID":     "",
	"OAUTH_AUTH_URL":      "https://accounts.google.com/o/oauth2/v2/auth",
	"OAUTH_REDIRECT_URL":  "",
	"SIGNIN_TIMEOUT":      "2m",
	"GUEST_ESCAPE_HATCH":  true,
	"SIGNIN_RATE_PER_SEC": 1.0,
	"SIGNIN_RATE_BURST":   5,
}

// Load reads configuration. A .env file in the working directory is loaded
// first if present; config.yaml in "." or "./config" is optional.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	cfg.StorageBackend = strings.ToLower(strings.TrimSpace(cfg.StorageBackend))
	cfg.Platform = strings.ToLower(strings.TrimSpace(cfg.Platform))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that enumerated values and storage keys are usable.
func (c *Config) Validate() error {
	switch c.StorageBackend {
	case BackendSQLite, BackendRedis, BackendMemory:
	default:
		return fmt.Errorf("unknown storage backend %q", c.StorageBackend)
	}

	switch c.Platform {
	case PlatformIOS, PlatformAndroid:
	default:
		return fmt.Errorf("unknown platform %q", c.Platform)
	}

	if strings.TrimSpace(c.SessionKey) == "" || strings.TrimSpace(c.AppointmentsKey) == "" {
		return errors.New("storage keys must not be empty")
	}
	if c.SessionKey == c.AppointmentsKey {
		return errors.New("session and appointments keys must differ")
	}
	if c.SignInTimeout <= 0 {
		return errors.New("sign-in timeout must be positive")
	}
	return nil
}

// IsProduction reports whether the app runs with production settings.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// OAuthConfigured reports whether an external identity provider is set up.
func (c *Config) OAuthConfigured() bool {
	return strings.TrimSpace(c.OAuthClientID) != ""
}

// BookingURL returns the website URL pointing at the booking section.
func (c *Config) BookingURL() string {
	if c.BookingAnchor == "" {
		return c.SiteURL
	}
	return c.SiteURL + "#" + c.BookingAnchor
}
