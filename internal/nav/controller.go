// Package nav routes between the top-level tabs and enforces the session
// gate in front of them.
package nav

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/pest-detectives/backend/internal/session"
	"github.com/pest-detectives/backend/internal/storage/models"
)

// Tab is a top-level view.
type Tab string

// Tab constants
const (
	TabHome         Tab = "home"
	TabDiagnose     Tab = "diagnose"
	TabAppointments Tab = "appointments"
	TabSupport      Tab = "support"
)

// Tabs lists the tabs in display order.
var Tabs = []Tab{TabHome, TabDiagnose, TabAppointments, TabSupport}

// ErrUnknownTab is returned by ParseTab for names outside Tabs.
var ErrUnknownTab = errors.New("unknown tab")

// Gate errors.
var (
	ErrSessionLoading = errors.New("session is still loading")
	ErrSignInRequired = errors.New("sign in required")
)

// ParseTab converts a tab name.
func ParseTab(s string) (Tab, error) {
	for _, t := range Tabs {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTab, s)
}

// GateState is what the shell should show in front of the tabs.
type GateState string

// GateState constants
const (
	GateLoading GateState = "loading"
	GateSignIn  GateState = "signin"
	GateReady   GateState = "ready"
)

// SessionGate is the part of the session manager the controller needs.
type SessionGate interface {
	State() session.State
	Subscribe(session.Listener) (cancel func())
}

// AppointmentSource is the part of the appointment store the controller
// reloads on focus.
type AppointmentSource interface {
	Load(ctx context.Context) []models.AppointmentRecord
	Count(ctx context.Context) int
}

// View is the data a tab needs to render. Count is set for Home and
// Appointments (never nil) for the Appointments tab.
type View struct {
	Tab          Tab                        `json:"tab"`
	Count        *int                       `json:"count,omitempty"`
	Appointments []models.AppointmentRecord `json:"appointments"`
}

// Controller tracks the current tab.
type Controller struct {
	gate         SessionGate
	appointments AppointmentSource
	log          *zap.Logger
	unsubscribe  func()

	mu      sync.Mutex
	current Tab
}

// NewController creates a controller on the Home tab and subscribes it to
// session changes. Call Close to unsubscribe.
func NewController(gate SessionGate, appointments AppointmentSource, log *zap.Logger) *Controller {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Controller{
		gate:         gate,
		appointments: appointments,
		log:          log,
		current:      TabHome,
	}
	c.unsubscribe = gate.Subscribe(c.onSessionChange)
	return c
}

func (c *Controller) onSessionChange(state session.State, _ *models.SessionProfile) {
	if state != session.StateUnauthenticated {
		return
	}
	c.mu.Lock()
	prev := c.current
	c.current = TabHome
	c.mu.Unlock()
	if prev != TabHome {
		c.log.Debug("signed out, returning to home", zap.String("from", string(prev)))
	}
}

// Gate maps the session state to what the shell should display.
func (c *Controller) Gate() GateState {
	switch c.gate.State() {
	case session.StateAuthenticated:
		return GateReady
	case session.StateUnauthenticated:
		return GateSignIn
	default:
		return GateLoading
	}
}

// Current returns the active tab.
func (c *Controller) Current() Tab {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Navigate switches to tab. Tabs with a reload-on-focus contract read the
// store before the view is returned, so the view is never stale. Navigating
// to the current tab is how a focus event refreshes it.
func (c *Controller) Navigate(ctx context.Context, tab Tab) (View, error) {
	switch c.Gate() {
	case GateLoading:
		return View{}, ErrSessionLoading
	case GateSignIn:
		return View{}, ErrSignInRequired
	}

	v := View{Tab: tab}
	switch tab {
	case TabHome:
		n := c.appointments.Count(ctx)
		v.Count = &n
	case TabAppointments:
		v.Appointments = c.appointments.Load(ctx)
		if v.Appointments == nil {
			v.Appointments = []models.AppointmentRecord{}
		}
	case TabDiagnose, TabSupport:
	default:
		return View{}, fmt.Errorf("%w: %q", ErrUnknownTab, tab)
	}

	c.mu.Lock()
	c.current = tab
	c.mu.Unlock()
	return v, nil
}

// Close stops following session changes.
func (c *Controller) Close() {
	if c.unsubscribe != nil {
		c.unsubscribe()
	}
}
