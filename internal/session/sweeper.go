package session

import (
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Sweeper periodically expires sign-in attempts the external browser flow
// never reported back on.
type Sweeper struct {
	cron      *cron.Cron
	signIn    *SignIn
	spec      string
	onExpired func(Attempt)
	log       *zap.Logger
}

// NewSweeper creates a sweeper running on the given cron spec
// (for example "@every 15s"). onExpired may be nil.
func NewSweeper(signIn *SignIn, spec string, onExpired func(Attempt), log *zap.Logger) *Sweeper {
	if log == nil {
		log = zap.NewNop()
	}
	return &Sweeper{
		cron:      cron.New(cron.WithSeconds()),
		signIn:    signIn,
		spec:      spec,
		onExpired: onExpired,
		log:       log,
	}
}

// Start begins the sweep schedule.
func (s *Sweeper) Start() error {
	if _, err := s.cron.AddFunc(s.spec, s.Sweep); err != nil {
		return fmt.Errorf("scheduling sign-in sweep: %w", err)
	}
	s.cron.Start()
	s.log.Info("sign-in sweeper started", zap.String("spec", s.spec))
	return nil
}

// Stop gracefully shuts down the scheduler.
func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info("sign-in sweeper stopped")
}

// Sweep expires stale attempts once.
func (s *Sweeper) Sweep() {
	for _, a := range s.signIn.ExpireStale() {
		s.log.Info("sign-in attempt expired", zap.String("attempt", a.ID))
		if s.onExpired != nil {
			s.onExpired(a)
		}
	}
}
