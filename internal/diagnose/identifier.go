// Package diagnose provides the pest identification stub. It picks from a
// fixed set of results and never looks at the photo.
package diagnose

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"

	"go.uber.org/zap"
)

// ErrNoInput is returned when identification is requested without a photo.
var ErrNoInput = errors.New("please choose a photo first")

// Result is one identification outcome.
type Result struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Candidates is the fixed set of results the stub can return.
var Candidates = []Result{
	{Label: "Subterranean Termites", Confidence: 0.82},
	{Label: "German Cockroach", Confidence: 0.77},
	{Label: "Carpenter Ants", Confidence: 0.74},
	{Label: "Bed Bugs", Confidence: 0.69},
	{Label: "Brown Recluse Spider", Confidence: 0.63},
}

// Source picks an index in [0, n).
type Source interface {
	IntN(n int) int
}

type globalSource struct{}

func (globalSource) IntN(n int) int { return rand.IntN(n) }

// Identifier returns a candidate for any non-empty photo reference and
// remembers the last result.
type Identifier struct {
	src Source
	log *zap.Logger

	mu       sync.Mutex
	photoRef string
	last     *Result
}

// NewIdentifier creates an identifier. A nil src uses the global generator.
func NewIdentifier(src Source, log *zap.Logger) *Identifier {
	if src == nil {
		src = globalSource{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Identifier{src: src, log: log}
}

// Identify picks a result for photoRef. An empty reference returns
// ErrNoInput and leaves the last result untouched.
func (i *Identifier) Identify(photoRef string) (Result, error) {
	if photoRef == "" {
		return Result{}, ErrNoInput
	}

	r := Candidates[i.src.IntN(len(Candidates))]

	i.mu.Lock()
	i.photoRef = photoRef
	i.last = &r
	i.mu.Unlock()

	i.log.Debug("identified photo", zap.String("label", r.Label), zap.Float64("confidence", r.Confidence))
	return r, nil
}

// Last returns the most recent result and the photo it was made for.
func (i *Identifier) Last() (Result, string, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.last == nil {
		return Result{}, "", false
	}
	return *i.last, i.photoRef, true
}

// Picker errors.
var (
	ErrPermissionNeeded = errors.New("photo library permission is needed")
	ErrPickCancelled    = errors.New("photo selection was cancelled")
)

// Picker acquires a photo reference from the device.
type Picker interface {
	Pick(ctx context.Context) (ref string, err error)
}

// Screen is the Diagnose tab: pick a photo, then identify it.
type Screen struct {
	picker     Picker
	identifier *Identifier
}

// NewScreen creates the Diagnose screen controller.
func NewScreen(picker Picker, identifier *Identifier) *Screen {
	return &Screen{picker: picker, identifier: identifier}
}

// Identifier returns the screen's identifier.
func (s *Screen) Identifier() *Identifier {
	return s.identifier
}

// PickAndIdentify runs the picker and identifies the result. A cancelled
// pick is treated as no input.
func (s *Screen) PickAndIdentify(ctx context.Context) (Result, error) {
	ref, err := s.picker.Pick(ctx)
	switch {
	case errors.Is(err, ErrPickCancelled):
		return Result{}, ErrNoInput
	case err != nil:
		return Result{}, err
	}
	return s.identifier.Identify(ref)
}

// StaticPicker returns a preset reference. It stands in for the device
// picker when the photo reference arrives with the request.
type StaticPicker struct {
	Ref     string
	Granted bool
}

// Pick implements Picker.
func (p StaticPicker) Pick(context.Context) (string, error) {
	if !p.Granted {
		return "", ErrPermissionNeeded
	}
	if p.Ref == "" {
		return "", ErrPickCancelled
	}
	return p.Ref, nil
}
