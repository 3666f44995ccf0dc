package launcher

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/pest-detectives/backend/internal/calendar"
	"github.com/pest-detectives/backend/internal/config"
	"github.com/pest-detectives/backend/internal/storage/models"
)

// Action is a Support panel button.
type Action string

// Action constants
const (
	ActionCall       Action = "call"
	ActionText       Action = "text"
	ActionEmail      Action = "email"
	ActionDirections Action = "directions"
	ActionBook       Action = "book"
	ActionWebsite    Action = "website"
)

// Actions lists the panel buttons in display order.
var Actions = []Action{ActionCall, ActionText, ActionEmail, ActionDirections, ActionBook, ActionWebsite}

// ErrUnknownAction is returned for actions outside Actions.
var ErrUnknownAction = errors.New("unknown support action")

// ParseAction converts an action name.
func ParseAction(s string) (Action, error) {
	for _, a := range Actions {
		if string(a) == s {
			return a, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAction, s)
}

// Contact holds the business details shown on the Support panel.
type Contact struct {
	BusinessName  string `json:"business_name"`
	Phone         string `json:"phone"`
	Email         string `json:"email"`
	OfficeAddress string `json:"office_address"`
	SiteURL       string `json:"site_url"`
	BookingURL    string `json:"booking_url"`
}

// ContactFromConfig reads the contact details from cfg.
func ContactFromConfig(cfg *config.Config) Contact {
	return Contact{
		BusinessName:  cfg.BusinessName,
		Phone:         cfg.Phone,
		Email:         cfg.Email,
		OfficeAddress: cfg.OfficeAddress,
		SiteURL:       cfg.SiteURL,
		BookingURL:    cfg.BookingURL(),
	}
}

// Support is the Support panel controller.
type Support struct {
	contact  Contact
	platform Platform
	launcher Launcher
	calendar *calendar.Exporter
	log      *zap.Logger
}

// NewSupport creates the panel controller.
func NewSupport(contact Contact, platform Platform, l Launcher, exporter *calendar.Exporter, log *zap.Logger) *Support {
	if log == nil {
		log = zap.NewNop()
	}
	return &Support{
		contact:  contact,
		platform: platform,
		launcher: l,
		calendar: exporter,
		log:      log,
	}
}

// Contact returns the business details.
func (s *Support) Contact() Contact {
	return s.contact
}

// Platform returns the platform URLs are built for.
func (s *Support) Platform() Platform {
	return s.platform
}

// URLFor returns the URL a panel action opens.
func (s *Support) URLFor(a Action) (string, error) {
	switch a {
	case ActionCall:
		return "tel:" + s.contact.Phone, nil
	case ActionText:
		return "sms:" + s.contact.Phone, nil
	case ActionEmail:
		return "mailto:" + s.contact.Email, nil
	case ActionDirections:
		return s.platform.DirectionsURL(s.contact.OfficeAddress), nil
	case ActionBook:
		return s.contact.BookingURL, nil
	case ActionWebsite:
		return s.contact.SiteURL, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownAction, a)
	}
}

// Do opens the URL for a and returns it.
func (s *Support) Do(ctx context.Context, a Action) (string, error) {
	u, err := s.URLFor(a)
	if err != nil {
		return "", err
	}
	s.open(ctx, u)
	return u, nil
}

// Call dials the office.
func (s *Support) Call(ctx context.Context) (string, error) { return s.Do(ctx, ActionCall) }

// Text opens a message to the office.
func (s *Support) Text(ctx context.Context) (string, error) { return s.Do(ctx, ActionText) }

// Email opens a mail draft to the office.
func (s *Support) Email(ctx context.Context) (string, error) { return s.Do(ctx, ActionEmail) }

// Directions opens the maps app at the office address.
func (s *Support) Directions(ctx context.Context) (string, error) { return s.Do(ctx, ActionDirections) }

// Book opens the website's booking section.
func (s *Support) Book(ctx context.Context) (string, error) { return s.Do(ctx, ActionBook) }

// Website opens the business website.
func (s *Support) Website(ctx context.Context) (string, error) { return s.Do(ctx, ActionWebsite) }

// AddToCalendar opens the add-to-calendar link for rec.
func (s *Support) AddToCalendar(ctx context.Context, rec models.AppointmentRecord) string {
	u := s.calendar.EventURL(rec)
	s.open(ctx, u)
	return u
}

// Intercept launches rawURL externally when the web view must not load
// it, and reports whether it did.
func (s *Support) Intercept(ctx context.Context, rawURL string) bool {
	if !ShouldIntercept(rawURL) {
		return false
	}
	s.open(ctx, rawURL)
	return true
}

// open launches u. Failures are logged and otherwise treated as success.
func (s *Support) open(ctx context.Context, u string) {
	if err := s.launcher.Open(ctx, u); err != nil {
		s.log.Warn("launch failed", zap.String("url", u), zap.Error(err))
	}
}
