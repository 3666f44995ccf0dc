// Package appointment keeps the on-device log of appointment requests.
//
// The whole collection is written as one JSON snapshot under a fixed key on
// every mutation. Writes are best-effort: a failed write is logged and the
// in-memory collection stays authoritative for the rest of the session.
package appointment

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pest-detectives/backend/internal/storage"
	"github.com/pest-detectives/backend/internal/storage/models"
)

// ErrWhenRequired is returned by Add when the requested date/time is blank.
var ErrWhenRequired = errors.New("please enter a preferred date and time")

// Form holds the three input fields of the request form. Add clears them
// after a successful submission.
type Form struct {
	When  string `json:"when"`
	Where string `json:"where"`
	Note  string `json:"note"`
}

// Reset clears all fields.
func (f *Form) Reset() {
	*f = Form{}
}

// Options configures a Store.
type Options struct {
	KV            storage.KV
	Key           string
	OfficeAddress string

	// NewID generates record ids. Ids must sort in creation order.
	// Defaults to time-ordered UUIDv7.
	NewID func() string

	// OnChange, if set, is called with a copy of the collection after every
	// successful in-memory mutation and after Load.
	OnChange func([]models.AppointmentRecord)

	Logger *zap.Logger
}

// Store owns the ordered, newest-first collection of appointment records.
type Store struct {
	kv            storage.KV
	key           string
	officeAddress string
	newID         func() string
	onChange      func([]models.AppointmentRecord)
	log           *zap.Logger

	mu      sync.Mutex
	records []models.AppointmentRecord
}

// NewStore creates a store with an empty in-memory collection. Call Load to
// populate it from the persisted snapshot.
func NewStore(opts Options) *Store {
	s := &Store{
		kv:            opts.KV,
		key:           opts.Key,
		officeAddress: opts.OfficeAddress,
		newID:         opts.NewID,
		onChange:      opts.OnChange,
		log:           opts.Logger,
	}
	if s.newID == nil {
		s.newID = newUUIDv7
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	return s
}

func newUUIDv7() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Load replaces the in-memory collection with the persisted snapshot and
// returns it. A missing or unreadable snapshot yields an empty collection.
func (s *Store) Load(ctx context.Context) []models.AppointmentRecord {
	records := s.readSnapshot(ctx)

	s.mu.Lock()
	s.records = records
	out := s.copyLocked()
	s.mu.Unlock()

	s.notify(out)
	return out
}

// Add validates the form, prepends a new Requested record, persists the
// collection and clears the form. On a blank When nothing changes and
// ErrWhenRequired is returned.
func (s *Store) Add(ctx context.Context, form *Form) (models.AppointmentRecord, error) {
	when := strings.TrimSpace(form.When)
	if when == "" {
		return models.AppointmentRecord{}, ErrWhenRequired
	}

	where := strings.TrimSpace(form.Where)
	if where == "" {
		where = s.officeAddress
	}

	rec := models.AppointmentRecord{
		ID:     s.newID(),
		When:   when,
		Where:  where,
		Note:   strings.TrimSpace(form.Note),
		Status: models.StatusRequested,
	}

	s.mu.Lock()
	s.records = append([]models.AppointmentRecord{rec}, s.records...)
	s.persistLocked(ctx)
	out := s.copyLocked()
	s.mu.Unlock()

	form.Reset()
	s.notify(out)
	return rec, nil
}

// Remove drops the record with the given id and persists the result.
// An unknown id is a no-op and nothing is written.
func (s *Store) Remove(ctx context.Context, id string) {
	s.mu.Lock()
	kept := s.records[:0:0]
	for _, r := range s.records {
		if r.ID != id {
			kept = append(kept, r)
		}
	}
	if len(kept) == len(s.records) {
		s.mu.Unlock()
		return
	}
	s.records = kept
	s.persistLocked(ctx)
	out := s.copyLocked()
	s.mu.Unlock()

	s.notify(out)
}

// Count returns the length of the persisted collection without touching
// the in-memory state.
func (s *Store) Count(ctx context.Context) int {
	return len(s.readSnapshot(ctx))
}

// List returns a copy of the in-memory collection, newest first.
func (s *Store) List() []models.AppointmentRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyLocked()
}

// Get looks up a record in the in-memory collection.
func (s *Store) Get(id string) (models.AppointmentRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.records {
		if r.ID == id {
			return r, true
		}
	}
	return models.AppointmentRecord{}, false
}

func (s *Store) readSnapshot(ctx context.Context) []models.AppointmentRecord {
	raw, ok, err := s.kv.Get(ctx, s.key)
	if err != nil {
		s.log.Warn("reading appointments failed", zap.String("key", s.key), zap.Error(err))
		return []models.AppointmentRecord{}
	}
	if !ok || raw == "" {
		return []models.AppointmentRecord{}
	}

	var records []models.AppointmentRecord
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		s.log.Warn("discarding unreadable appointments snapshot", zap.String("key", s.key), zap.Error(err))
		return []models.AppointmentRecord{}
	}
	return sanitize(records)
}

// sanitize drops records that break the collection invariants: blank When
// or a duplicate id. The first occurrence of an id wins.
func sanitize(records []models.AppointmentRecord) []models.AppointmentRecord {
	out := make([]models.AppointmentRecord, 0, len(records))
	seen := make(map[string]bool, len(records))
	for _, r := range records {
		if strings.TrimSpace(r.When) == "" || seen[r.ID] {
			continue
		}
		if !r.Status.Valid() {
			r.Status = models.StatusRequested
		}
		seen[r.ID] = true
		out = append(out, r)
	}
	return out
}

// persistLocked writes the whole collection. Failures are logged only.
func (s *Store) persistLocked(ctx context.Context) {
	data, err := json.Marshal(s.records)
	if err != nil {
		s.log.Warn("encoding appointments failed", zap.Error(err))
		return
	}
	if err := s.kv.Set(ctx, s.key, string(data)); err != nil {
		s.log.Warn("persisting appointments failed", zap.String("key", s.key), zap.Error(err))
	}
}

func (s *Store) copyLocked() []models.AppointmentRecord {
	out := make([]models.AppointmentRecord, len(s.records))
	copy(out, s.records)
	return out
}

func (s *Store) notify(records []models.AppointmentRecord) {
	if s.onChange != nil {
		s.onChange(records)
	}
}
