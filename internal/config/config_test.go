package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.StorageBackend != BackendSQLite {
		t.Errorf("backend = %q, want %q", cfg.StorageBackend, BackendSQLite)
	}
	if cfg.OfficeAddress != "13040 Fisher Circle, McCalla, AL" {
		t.Errorf("office address = %q", cfg.OfficeAddress)
	}
	if cfg.SignInTimeout != 2*time.Minute {
		t.Errorf("sign-in timeout = %v, want 2m", cfg.SignInTimeout)
	}
	if !cfg.GuestEscapeHatch {
		t.Error("guest escape hatch should default to enabled")
	}
	if cfg.OAuthConfigured() {
		t.Error("oauth should not be configured by default")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "Memory")
	t.Setenv("PLATFORM", "android")
	t.Setenv("OAUTH_CLIENT_ID", "client-123")
	t.Setenv("SIGNIN_TIMEOUT", "45s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.StorageBackend != BackendMemory {
		t.Errorf("backend = %q, want %q", cfg.StorageBackend, BackendMemory)
	}
	if cfg.Platform != PlatformAndroid {
		t.Errorf("platform = %q, want %q", cfg.Platform, PlatformAndroid)
	}
	if !cfg.OAuthConfigured() {
		t.Error("expected oauth to be configured")
	}
	if cfg.SignInTimeout != 45*time.Second {
		t.Errorf("sign-in timeout = %v, want 45s", cfg.SignInTimeout)
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			StorageBackend:  BackendSQLite,
			Platform:        PlatformIOS,
			SessionKey:      "s",
			AppointmentsKey: "a",
			SignInTimeout:   time.Minute,
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown backend", func(c *Config) { c.StorageBackend = "etcd" }},
		{"unknown platform", func(c *Config) { c.Platform = "symbian" }},
		{"empty session key", func(c *Config) { c.SessionKey = " " }},
		{"shared keys", func(c *Config) { c.AppointmentsKey = c.SessionKey }},
		{"zero timeout", func(c *Config) { c.SignInTimeout = 0 }},
	}

	base := valid()
	if err := base.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			if err := c.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestBookingURL(t *testing.T) {
	c := Config{SiteURL: "https://example.com/", BookingAnchor: "book"}
	if got := c.BookingURL(); got != "https://example.com/#book" {
		t.Errorf("BookingURL() = %q", got)
	}
	c.BookingAnchor = ""
	if got := c.BookingURL(); got != "https://example.com/" {
		t.Errorf("BookingURL() without anchor = %q", got)
	}
}
