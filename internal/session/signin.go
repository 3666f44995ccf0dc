package session

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pest-detectives/backend/internal/storage/models"
)

// Sign-in errors.
var (
	ErrOAuthNotConfigured = errors.New("sign-in provider is not configured")
	ErrGuestUnavailable   = errors.New("guest access is disabled")
	ErrUnknownAttempt     = errors.New("unknown sign-in attempt")
	ErrAttemptClosed      = errors.New("sign-in attempt is no longer pending")
	ErrSignInFailed       = errors.New("sign-in did not complete")
)

// AttemptStatus tracks an external browser sign-in.
type AttemptStatus string

// AttemptStatus constants
const (
	AttemptPending   AttemptStatus = "pending"
	AttemptSucceeded AttemptStatus = "succeeded"
	AttemptFailed    AttemptStatus = "failed"
	AttemptExpired   AttemptStatus = "expired"
)

// Attempt is one run of the external sign-in flow.
type Attempt struct {
	ID        string        `json:"id"`
	AuthURL   string        `json:"auth_url"`
	Status    AttemptStatus `json:"status"`
	StartedAt time.Time     `json:"started_at"`
	Reason    string        `json:"reason,omitempty"`
}

// Outcome is what the external flow reports back. Anything other than
// Success, including the user closing the browser, is a non-success.
type Outcome struct {
	Success bool   `json:"success"`
	IDToken string `json:"id_token,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// SignInOptions configures a SignIn coordinator.
type SignInOptions struct {
	Manager     *Manager
	ClientID    string
	AuthURL     string
	RedirectURL string
	Timeout     time.Duration

	// GuestEscapeHatch keeps guest access available even when the
	// identity provider is configured.
	GuestEscapeHatch bool

	Now    func() time.Time
	Logger *zap.Logger
}

// SignIn drives the sign-in gate: the external provider flow with a
// timeout, and the guest fallback.
type SignIn struct {
	manager     *Manager
	clientID    string
	authURL     string
	redirectURL string
	timeout     time.Duration
	guestHatch  bool
	now         func() time.Time
	log         *zap.Logger

	mu       sync.Mutex
	attempts map[string]*Attempt
}

// NewSignIn creates a sign-in coordinator.
func NewSignIn(opts SignInOptions) *SignIn {
	s := &SignIn{
		manager:     opts.Manager,
		clientID:    opts.ClientID,
		authURL:     opts.AuthURL,
		redirectURL: opts.RedirectURL,
		timeout:     opts.Timeout,
		guestHatch:  opts.GuestEscapeHatch,
		now:         opts.Now,
		log:         opts.Logger,
		attempts:    make(map[string]*Attempt),
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.timeout <= 0 {
		s.timeout = 2 * time.Minute
	}
	return s
}

// OAuthConfigured reports whether the external provider can be used.
func (s *SignIn) OAuthConfigured() bool {
	return s.clientID != ""
}

// GuestAvailable reports whether the guest fallback may be used.
func (s *SignIn) GuestAvailable() bool {
	return !s.OAuthConfigured() || s.guestHatch
}

// Start opens a new pending attempt and returns the URL the shell should
// open in the external browser.
func (s *SignIn) Start(ctx context.Context) (Attempt, error) {
	if !s.OAuthConfigured() {
		return Attempt{}, ErrOAuthNotConfigured
	}

	id := uuid.NewString()
	a := &Attempt{
		ID:        id,
		AuthURL:   s.buildAuthURL(id),
		Status:    AttemptPending,
		StartedAt: s.now(),
	}

	s.mu.Lock()
	s.attempts[id] = a
	s.mu.Unlock()

	s.log.Info("sign-in started", zap.String("attempt", id))
	return *a, nil
}

func (s *SignIn) buildAuthURL(state string) string {
	q := url.Values{}
	q.Set("client_id", s.clientID)
	q.Set("response_type", "id_token")
	q.Set("scope", "openid email profile")
	q.Set("state", state)
	q.Set("nonce", state)
	if s.redirectURL != "" {
		q.Set("redirect_uri", s.redirectURL)
	}
	return s.authURL + "?" + q.Encode()
}

// Complete records the result of the external flow. On success a google
// session is established; otherwise the gate stays where it is.
func (s *SignIn) Complete(ctx context.Context, attemptID string, out Outcome) (*models.SessionProfile, error) {
	s.mu.Lock()
	a, ok := s.attempts[attemptID]
	if !ok {
		s.mu.Unlock()
		return nil, ErrUnknownAttempt
	}
	if a.Status != AttemptPending {
		s.mu.Unlock()
		return nil, ErrAttemptClosed
	}
	if !out.Success {
		a.Status = AttemptFailed
		a.Reason = out.Reason
		s.mu.Unlock()
		s.log.Info("sign-in not completed", zap.String("attempt", attemptID), zap.String("reason", out.Reason))
		return nil, ErrSignInFailed
	}
	a.Status = AttemptSucceeded
	s.mu.Unlock()

	return s.manager.EstablishSession(ctx, models.ProviderGoogle, decodeClaims(out.IDToken, s.log))
}

// decodeClaims reads identity details from the provider's token. The token
// is treated as an opaque profile claim: it is not verified and a token
// that cannot be decoded simply yields no claims.
func decodeClaims(raw string, log *zap.Logger) *Claims {
	if raw == "" {
		return nil
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		log.Debug("ignoring undecodable id token", zap.Error(err))
		return nil
	}

	c := &Claims{}
	c.Subject, _ = claims.GetSubject()
	c.Email, _ = claims["email"].(string)
	c.Name, _ = claims["name"].(string)
	return c
}

// Guest establishes a guest session when the fallback is available.
func (s *SignIn) Guest(ctx context.Context) (*models.SessionProfile, error) {
	if !s.GuestAvailable() {
		return nil, ErrGuestUnavailable
	}
	return s.manager.EstablishSession(ctx, models.ProviderGuest, nil)
}

// Attempt returns a copy of the attempt with the given id.
func (s *SignIn) Attempt(id string) (Attempt, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.attempts[id]
	if !ok {
		return Attempt{}, false
	}
	return *a, true
}

// ExpireStale marks pending attempts older than the timeout as expired and
// returns them, so the shell can offer a retry. Finished attempts older
// than twice the timeout are forgotten.
func (s *SignIn) ExpireStale() []Attempt {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	var expired []Attempt
	for id, a := range s.attempts {
		age := now.Sub(a.StartedAt)
		switch {
		case a.Status == AttemptPending && age >= s.timeout:
			a.Status = AttemptExpired
			a.Reason = "timed out"
			expired = append(expired, *a)
		case a.Status != AttemptPending && age >= 2*s.timeout:
			delete(s.attempts, id)
		}
	}
	return expired
}
