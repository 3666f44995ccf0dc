// Package launcher hands URLs to the device's external handlers (dialer,
// messages, mail, maps, calendar, browser).
package launcher

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/pest-detectives/backend/internal/config"
)

// Launcher errors.
var (
	ErrMalformedURL        = errors.New("malformed launch url")
	ErrUnsupportedPlatform = errors.New("unsupported platform")
)

// Launcher opens a URL with whatever handler the device has for it.
type Launcher interface {
	Open(ctx context.Context, rawURL string) error
}

// Platform builds the URLs that differ between device platforms.
type Platform interface {
	Name() string
	DirectionsURL(address string) string
}

type iosPlatform struct{}

func (iosPlatform) Name() string { return config.PlatformIOS }

func (iosPlatform) DirectionsURL(address string) string {
	return "http://maps.apple.com/?address=" + encodeComponent(address)
}

type androidPlatform struct{}

func (androidPlatform) Name() string { return config.PlatformAndroid }

func (androidPlatform) DirectionsURL(address string) string {
	return "geo:0,0?q=" + encodeComponent(address)
}

// PlatformFor returns the platform implementation for name.
func PlatformFor(name string) (Platform, error) {
	switch strings.ToLower(name) {
	case config.PlatformIOS:
		return iosPlatform{}, nil
	case config.PlatformAndroid:
		return androidPlatform{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedPlatform, name)
	}
}

// encodeComponent escapes s for use inside a query value, with spaces as %20.
func encodeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// LaunchBroadcaster delivers launch requests to the connected shell.
type LaunchBroadcaster interface {
	BroadcastLaunch(rawURL string)
}

// HubLauncher forwards launches over the websocket hub; the shell opens
// the URL. Delivery is fire-and-forget.
type HubLauncher struct {
	events LaunchBroadcaster
	log    *zap.Logger
}

// NewHubLauncher creates a launcher publishing to events.
func NewHubLauncher(events LaunchBroadcaster, log *zap.Logger) *HubLauncher {
	if log == nil {
		log = zap.NewNop()
	}
	return &HubLauncher{events: events, log: log}
}

// Open implements Launcher.
func (l *HubLauncher) Open(_ context.Context, rawURL string) error {
	if err := validate(rawURL); err != nil {
		return err
	}
	l.log.Info("launch requested", zap.String("url", rawURL))
	l.events.BroadcastLaunch(rawURL)
	return nil
}

func validate(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedURL, err)
	}
	if u.Scheme == "" {
		return fmt.Errorf("%w: missing scheme in %q", ErrMalformedURL, rawURL)
	}
	return nil
}

// InterceptSchemes are the schemes the in-app web view hands to the
// device instead of loading.
var InterceptSchemes = []string{"tel", "mailto", "sms"}

// ShouldIntercept reports whether a URL navigated to inside the web view
// must be launched externally.
func ShouldIntercept(rawURL string) bool {
	lower := strings.ToLower(strings.TrimSpace(rawURL))
	for _, scheme := range InterceptSchemes {
		if strings.HasPrefix(lower, scheme+":") {
			return true
		}
	}
	return false
}
