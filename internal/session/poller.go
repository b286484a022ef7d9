package session

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"relay/internal/apperr"
)

// Poller periodically refreshes every live session and evicts idle ones.
type Poller struct {
	Registry *Registry
	Interval time.Duration
	Log      *zap.Logger
}

// Run blocks until ctx is done. A failed refresh is logged and waits for the next tick.
func (p *Poller) Run(ctx context.Context) {
	log := p.Log
	if log == nil {
		log = zap.NewNop()
	}

	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := p.Registry.EvictIdle(); n > 0 {
				log.Info("evicted idle sessions", zap.Int("count", n))
			}
			p.tick(ctx, log)
		}
	}
}

func (p *Poller) tick(ctx context.Context, log *zap.Logger) {
	for _, s := range p.Registry.Sessions() {
		if ctx.Err() != nil {
			return
		}
		err := s.Refresh(ctx)
		if err != nil && !errors.Is(err, apperr.ErrDisposed) {
			log.Warn("session refresh failed", zap.String("user_id", s.UserID), zap.Error(err))
		}
	}
}
