// Package session owns the signed-in identity that gates the app.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pest-detectives/backend/internal/storage"
	"github.com/pest-detectives/backend/internal/storage/models"
)

// State is the session gate state.
type State string

// State constants
const (
	// StateLoading means the persisted profile has not been read yet.
	StateLoading         State = "loading"
	StateUnauthenticated State = "unauthenticated"
	StateAuthenticated   State = "authenticated"
)

// ErrInvalidProvider is returned for providers other than google or guest.
var ErrInvalidProvider = errors.New("invalid session provider")

// Claims are optional identity details attached to a google session.
type Claims struct {
	Subject string
	Email   string
	Name    string
}

// Listener is notified after every state change.
type Listener func(state State, profile *models.SessionProfile)

// Options configures a Manager.
type Options struct {
	KV     storage.KV
	Key    string
	Now    func() time.Time
	Logger *zap.Logger
}

// Manager persists and exposes the single session profile.
type Manager struct {
	kv  storage.KV
	key string
	now func() time.Time
	log *zap.Logger

	mu        sync.RWMutex
	state     State
	profile   *models.SessionProfile
	listeners map[int]Listener
	nextID    int
}

// NewManager creates a manager in the loading state.
func NewManager(opts Options) *Manager {
	m := &Manager{
		kv:        opts.KV,
		key:       opts.Key,
		now:       opts.Now,
		log:       opts.Logger,
		state:     StateLoading,
		listeners: make(map[int]Listener),
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.log == nil {
		m.log = zap.NewNop()
	}
	return m
}

// LoadSession reads the persisted profile and resolves the gate. Any read
// or decode problem is treated as "no session" and yields nil.
func (m *Manager) LoadSession(ctx context.Context) *models.SessionProfile {
	profile := m.read(ctx)
	if profile == nil {
		m.transition(StateUnauthenticated, nil)
		return nil
	}
	m.transition(StateAuthenticated, profile)
	return clone(profile)
}

func (m *Manager) read(ctx context.Context) *models.SessionProfile {
	raw, ok, err := m.kv.Get(ctx, m.key)
	if err != nil {
		m.log.Warn("reading session failed", zap.String("key", m.key), zap.Error(err))
		return nil
	}
	if !ok {
		return nil
	}

	var p models.SessionProfile
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		m.log.Warn("discarding unreadable session", zap.String("key", m.key), zap.Error(err))
		return nil
	}
	if !p.SignedIn || !p.Provider.Valid() {
		return nil
	}
	return &p
}

// EstablishSession creates, persists and returns a new profile. A failed
// write is logged; the session still holds for this process.
func (m *Manager) EstablishSession(ctx context.Context, provider models.Provider, claims *Claims) (*models.SessionProfile, error) {
	if !provider.Valid() {
		return nil, ErrInvalidProvider
	}

	p := &models.SessionProfile{
		SignedIn: true,
		Provider: provider,
		TS:       m.now().UnixMilli(),
	}
	if claims != nil {
		p.Subject = claims.Subject
		p.Email = claims.Email
		p.Name = claims.Name
	}

	data, err := json.Marshal(p)
	if err == nil {
		err = m.kv.Set(ctx, m.key, string(data))
	}
	if err != nil {
		m.log.Warn("persisting session failed", zap.String("key", m.key), zap.Error(err))
	}

	m.log.Info("session established", zap.String("provider", string(provider)))
	m.transition(StateAuthenticated, p)
	return clone(p), nil
}

// ClearSession removes the persisted profile and moves the gate back to
// unauthenticated right away; subscribers see the change immediately.
func (m *Manager) ClearSession(ctx context.Context) {
	if err := m.kv.Remove(ctx, m.key); err != nil {
		m.log.Warn("removing session failed", zap.String("key", m.key), zap.Error(err))
	}
	m.log.Info("session cleared")
	m.transition(StateUnauthenticated, nil)
}

// State returns the current gate state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Profile returns the active profile, or nil when not signed in.
func (m *Manager) Profile() *models.SessionProfile {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return clone(m.profile)
}

// Subscribe registers l for state changes and returns a function that
// removes it.
func (m *Manager) Subscribe(l Listener) (cancel func()) {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = l
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}

func (m *Manager) transition(state State, profile *models.SessionProfile) {
	m.mu.Lock()
	m.state = state
	m.profile = profile
	listeners := make([]Listener, 0, len(m.listeners))
	for _, l := range m.listeners {
		listeners = append(listeners, l)
	}
	m.mu.Unlock()

	for _, l := range listeners {
		l(state, clone(profile))
	}
}

func clone(p *models.SessionProfile) *models.SessionProfile {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}
