package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pest-detectives/backend/internal/storage"
	"github.com/pest-detectives/backend/internal/storage/models"
	"github.com/pest-detectives/backend/internal/storage/storagetest"
)

const testKey = "ppd.session"

var fixedNow = time.Date(2026, 10, 15, 14, 0, 0, 0, time.UTC)

func newTestManager(kv storage.KV) *Manager {
	return NewManager(Options{KV: kv, Key: testKey, Now: func() time.Time { return fixedNow }})
}

func TestInitialStateIsLoading(t *testing.T) {
	m := newTestManager(storage.NewMemoryKV())
	if m.State() != StateLoading {
		t.Errorf("state = %s, want loading", m.State())
	}
	if m.Profile() != nil {
		t.Error("profile before load")
	}
}

func TestGuestSessionSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryKV()

	m := newTestManager(kv)
	m.LoadSession(ctx)
	p, err := m.EstablishSession(ctx, models.ProviderGuest, nil)
	if err != nil {
		t.Fatalf("establish: %v", err)
	}
	if p.TS != fixedNow.UnixMilli() {
		t.Errorf("ts = %d, want %d", p.TS, fixedNow.UnixMilli())
	}

	restarted := newTestManager(kv)
	loaded := restarted.LoadSession(ctx)
	if loaded == nil {
		t.Fatal("no session after restart")
	}
	if loaded.Provider != models.ProviderGuest || !loaded.SignedIn {
		t.Errorf("loaded = %+v", loaded)
	}
	if restarted.State() != StateAuthenticated {
		t.Errorf("state = %s, want authenticated", restarted.State())
	}
}

func TestClearSession(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryKV()

	m := newTestManager(kv)
	m.EstablishSession(ctx, models.ProviderGoogle, &Claims{Email: "a@b.c"})
	m.ClearSession(ctx)

	if m.State() != StateUnauthenticated {
		t.Errorf("state = %s, want unauthenticated", m.State())
	}
	if p := newTestManager(kv).LoadSession(ctx); p != nil {
		t.Errorf("profile after clear: %+v", p)
	}
}

func TestLoadSessionToleratesBadData(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		raw  string
	}{
		{"garbage", "not-json"},
		{"signed out", `{"signedIn":false,"provider":"guest","ts":1}`},
		{"unknown provider", `{"signedIn":true,"provider":"facebook","ts":1}`},
		{"wrong type", `{"signedIn":"yes"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kv := storage.NewMemoryKV()
			kv.Set(ctx, testKey, tt.raw)
			m := newTestManager(kv)
			if p := m.LoadSession(ctx); p != nil {
				t.Errorf("profile = %+v, want nil", p)
			}
			if m.State() != StateUnauthenticated {
				t.Errorf("state = %s, want unauthenticated", m.State())
			}
		})
	}

	t.Run("read failure", func(t *testing.T) {
		kv := storagetest.NewFlakyKV()
		kv.FailReads(true)
		m := newTestManager(kv)
		if p := m.LoadSession(ctx); p != nil {
			t.Errorf("profile = %+v, want nil", p)
		}
		if m.State() != StateUnauthenticated {
			t.Errorf("state = %s", m.State())
		}
	})
}

func TestEstablishSessionWriteFailure(t *testing.T) {
	ctx := context.Background()
	kv := storagetest.NewFlakyKV()
	kv.FailWrites(true)

	m := newTestManager(kv)
	p, err := m.EstablishSession(ctx, models.ProviderGuest, nil)
	if err != nil {
		t.Fatalf("establish: %v", err)
	}
	if p == nil || m.State() != StateAuthenticated {
		t.Fatal("session not held in memory after failed write")
	}

	m.ClearSession(ctx)
	if m.State() != StateUnauthenticated {
		t.Error("clear did not change state when remove failed")
	}
}

func TestEstablishSessionInvalidProvider(t *testing.T) {
	m := newTestManager(storage.NewMemoryKV())
	if _, err := m.EstablishSession(context.Background(), "myspace", nil); !errors.Is(err, ErrInvalidProvider) {
		t.Errorf("err = %v, want ErrInvalidProvider", err)
	}
	if m.State() != StateLoading {
		t.Error("state changed on invalid provider")
	}
}

func TestSubscribe(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(storage.NewMemoryKV())

	var seen []State
	cancel := m.Subscribe(func(s State, p *models.SessionProfile) {
		seen = append(seen, s)
		if s == StateAuthenticated && p == nil {
			t.Error("authenticated without profile")
		}
	})

	m.LoadSession(ctx)
	m.EstablishSession(ctx, models.ProviderGuest, nil)
	m.ClearSession(ctx)
	cancel()
	m.EstablishSession(ctx, models.ProviderGuest, nil)

	want := []State{StateUnauthenticated, StateAuthenticated, StateUnauthenticated}
	if len(seen) != len(want) {
		t.Fatalf("seen = %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("seen[%d] = %s, want %s", i, seen[i], want[i])
		}
	}
}

func TestProfileIsACopy(t *testing.T) {
	m := newTestManager(storage.NewMemoryKV())
	m.EstablishSession(context.Background(), models.ProviderGuest, nil)

	p := m.Profile()
	p.Provider = models.ProviderGoogle
	if m.Profile().Provider != models.ProviderGuest {
		t.Error("caller mutated manager state")
	}
}
