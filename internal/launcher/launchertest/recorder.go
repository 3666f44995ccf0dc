// Package launchertest provides a Launcher that records what it was asked
// to open.
package launchertest

import (
	"context"
	"sync"
)

// Recorder records every Open call and returns Err.
type Recorder struct {
	Err error

	mu     sync.Mutex
	opened []string
}

// Open implements launcher.Launcher.
func (r *Recorder) Open(_ context.Context, rawURL string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.opened = append(r.opened, rawURL)
	return r.Err
}

// Opened returns the URLs opened so far.
func (r *Recorder) Opened() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.opened...)
}
