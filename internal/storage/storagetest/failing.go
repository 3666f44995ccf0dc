// Package storagetest provides key-value store doubles for tests.
package storagetest

import (
	"context"
	"errors"
	"sync"

	"github.com/pest-detectives/backend/internal/storage"
)

// ErrInjected is returned by FlakyKV operations that are set to fail.
var ErrInjected = errors.New("storagetest: injected failure")

// FlakyKV wraps an in-memory store and fails reads and/or writes on demand.
type FlakyKV struct {
	*storage.MemoryKV

	mu        sync.Mutex
	failRead  bool
	failWrite bool
	writes    int
}

// NewFlakyKV creates a store that succeeds until told otherwise.
func NewFlakyKV() *FlakyKV {
	return &FlakyKV{MemoryKV: storage.NewMemoryKV()}
}

// FailReads makes Get return ErrInjected.
func (f *FlakyKV) FailReads(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failRead = fail
}

// FailWrites makes Set and Remove return ErrInjected.
func (f *FlakyKV) FailWrites(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failWrite = fail
}

// Writes returns the number of Set and Remove calls seen, including failed ones.
func (f *FlakyKV) Writes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writes
}

// Get returns ErrInjected when reads are failing.
func (f *FlakyKV) Get(ctx context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	fail := f.failRead
	f.mu.Unlock()
	if fail {
		return "", false, ErrInjected
	}
	return f.MemoryKV.Get(ctx, key)
}

// Set returns ErrInjected when writes are failing.
func (f *FlakyKV) Set(ctx context.Context, key, value string) error {
	if f.countWrite() {
		return ErrInjected
	}
	return f.MemoryKV.Set(ctx, key, value)
}

// Remove returns ErrInjected when writes are failing.
func (f *FlakyKV) Remove(ctx context.Context, key string) error {
	if f.countWrite() {
		return ErrInjected
	}
	return f.MemoryKV.Remove(ctx, key)
}

func (f *FlakyKV) countWrite() (fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	return f.failWrite
}
