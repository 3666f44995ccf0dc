package session

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/pest-detectives/backend/internal/storage"
	"github.com/pest-detectives/backend/internal/storage/models"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestSignIn(clientID string, hatch bool) (*SignIn, *Manager, *clock) {
	clk := &clock{now: fixedNow}
	m := NewManager(Options{KV: storage.NewMemoryKV(), Key: testKey, Now: clk.Now})
	m.LoadSession(context.Background())
	s := NewSignIn(SignInOptions{
		Manager:          m,
		ClientID:         clientID,
		AuthURL:          "https://accounts.example.com/auth",
		RedirectURL:      "ppd://signin",
		Timeout:          time.Minute,
		GuestEscapeHatch: hatch,
		Now:              clk.Now,
	})
	return s, m, clk
}

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("not-verified"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return tok
}

func TestGuestAvailability(t *testing.T) {
	tests := []struct {
		name     string
		clientID string
		hatch    bool
		want     bool
	}{
		{"no oauth config", "", false, true},
		{"oauth with escape hatch", "cid", true, true},
		{"oauth without escape hatch", "cid", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, m, _ := newTestSignIn(tt.clientID, tt.hatch)
			if got := s.GuestAvailable(); got != tt.want {
				t.Fatalf("GuestAvailable() = %v, want %v", got, tt.want)
			}

			p, err := s.Guest(context.Background())
			if tt.want {
				if err != nil || p.Provider != models.ProviderGuest {
					t.Fatalf("guest: %+v, %v", p, err)
				}
				if m.State() != StateAuthenticated {
					t.Errorf("state = %s", m.State())
				}
				return
			}
			if !errors.Is(err, ErrGuestUnavailable) {
				t.Errorf("err = %v, want ErrGuestUnavailable", err)
			}
			if m.State() != StateUnauthenticated {
				t.Errorf("state = %s", m.State())
			}
		})
	}
}

func TestStartWithoutOAuth(t *testing.T) {
	s, _, _ := newTestSignIn("", true)
	if _, err := s.Start(context.Background()); !errors.Is(err, ErrOAuthNotConfigured) {
		t.Errorf("err = %v, want ErrOAuthNotConfigured", err)
	}
}

func TestStartBuildsAuthURL(t *testing.T) {
	s, _, _ := newTestSignIn("client-1", true)
	a, err := s.Start(context.Background())
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if a.Status != AttemptPending {
		t.Errorf("status = %s", a.Status)
	}

	u, err := url.Parse(a.AuthURL)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !strings.HasPrefix(a.AuthURL, "https://accounts.example.com/auth?") {
		t.Errorf("auth url = %s", a.AuthURL)
	}
	q := u.Query()
	if q.Get("client_id") != "client-1" || q.Get("state") != a.ID || q.Get("redirect_uri") != "ppd://signin" {
		t.Errorf("query = %v", q)
	}
}

func TestCompleteSuccess(t *testing.T) {
	ctx := context.Background()
	s, m, _ := newTestSignIn("client-1", false)
	a, _ := s.Start(ctx)

	tok := signedToken(t, jwt.MapClaims{"sub": "1234", "email": "pat@example.com", "name": "Pat"})
	p, err := s.Complete(ctx, a.ID, Outcome{Success: true, IDToken: tok})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if p.Provider != models.ProviderGoogle || !p.SignedIn {
		t.Errorf("profile = %+v", p)
	}
	if p.Subject != "1234" || p.Email != "pat@example.com" || p.Name != "Pat" {
		t.Errorf("claims = %+v", p)
	}
	if m.State() != StateAuthenticated {
		t.Errorf("state = %s", m.State())
	}

	if _, err := s.Complete(ctx, a.ID, Outcome{Success: true}); !errors.Is(err, ErrAttemptClosed) {
		t.Errorf("second complete err = %v, want ErrAttemptClosed", err)
	}
}

func TestCompleteOpaqueToken(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestSignIn("client-1", false)
	a, _ := s.Start(ctx)

	p, err := s.Complete(ctx, a.ID, Outcome{Success: true, IDToken: "opaque-blob"})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if p.Provider != models.ProviderGoogle || p.Email != "" {
		t.Errorf("profile = %+v", p)
	}
}

func TestCompleteNonSuccess(t *testing.T) {
	ctx := context.Background()
	s, m, _ := newTestSignIn("client-1", false)
	a, _ := s.Start(ctx)

	if _, err := s.Complete(ctx, a.ID, Outcome{Reason: "cancelled"}); !errors.Is(err, ErrSignInFailed) {
		t.Errorf("err = %v, want ErrSignInFailed", err)
	}
	if m.State() != StateUnauthenticated {
		t.Errorf("state = %s", m.State())
	}
	got, _ := s.Attempt(a.ID)
	if got.Status != AttemptFailed || got.Reason != "cancelled" {
		t.Errorf("attempt = %+v", got)
	}

	if _, err := s.Complete(ctx, "nope", Outcome{Success: true}); !errors.Is(err, ErrUnknownAttempt) {
		t.Errorf("err = %v, want ErrUnknownAttempt", err)
	}
}

func TestExpireStale(t *testing.T) {
	ctx := context.Background()
	s, m, clk := newTestSignIn("client-1", false)
	old, _ := s.Start(ctx)
	clk.Advance(30 * time.Second)
	fresh, _ := s.Start(ctx)
	clk.Advance(30 * time.Second)

	expired := s.ExpireStale()
	if len(expired) != 1 || expired[0].ID != old.ID {
		t.Fatalf("expired = %+v", expired)
	}
	if _, err := s.Complete(ctx, old.ID, Outcome{Success: true}); !errors.Is(err, ErrAttemptClosed) {
		t.Errorf("complete expired: err = %v", err)
	}
	if m.State() != StateUnauthenticated {
		t.Errorf("state = %s", m.State())
	}

	if a, _ := s.Attempt(fresh.ID); a.Status != AttemptPending {
		t.Errorf("fresh attempt = %s", a.Status)
	}

	// Finished attempts are forgotten after twice the timeout.
	clk.Advance(time.Minute)
	s.ExpireStale()
	if _, ok := s.Attempt(old.ID); ok {
		t.Error("old attempt not pruned")
	}
}

func TestSweeper(t *testing.T) {
	ctx := context.Background()
	s, _, clk := newTestSignIn("client-1", false)
	a, _ := s.Start(ctx)
	clk.Advance(2 * time.Minute)

	var got []Attempt
	sw := NewSweeper(s, "@every 1h", func(a Attempt) { got = append(got, a) }, nil)
	if err := sw.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer sw.Stop()

	sw.Sweep()
	if len(got) != 1 || got[0].ID != a.ID || got[0].Status != AttemptExpired {
		t.Errorf("expired = %+v", got)
	}
}

func TestSweeperBadSpec(t *testing.T) {
	s, _, _ := newTestSignIn("client-1", false)
	if err := NewSweeper(s, "whenever", nil, nil).Start(); err == nil {
		t.Error("expected error for bad spec")
	}
}
