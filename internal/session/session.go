// Package session keeps the per-user entity stores the HTTP surface serves from.
package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"relay/internal/gateway"
	"relay/internal/memory"
	"relay/internal/points"
	"relay/internal/template"
	"relay/internal/valuetag"
)

// Session holds one user's stores, all bound to a gateway acting for that user.
type Session struct {
	UserID string

	Memories  *memory.Store
	Timeline  *memory.Store
	Templates *template.Store
	ValueTags *valuetag.Store
	Points    *points.Store

	mu       sync.Mutex
	lastUsed time.Time
}

func New(userID string, gw gateway.Gateway, log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("user_id", userID))
	return &Session{
		UserID:    userID,
		Memories:  memory.NewStore(gw, memory.ModeOwn, log),
		Timeline:  memory.NewStore(gw, memory.ModeTimeline, log),
		Templates: template.NewStore(gw, log),
		ValueTags: valuetag.NewStore(gw, log),
		Points:    points.NewStore(gw, log),
		lastUsed:  time.Now(),
	}
}

// Initialize runs every store's first fetch concurrently.
func (s *Session) Initialize(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.Memories.Initialize(gCtx) })
	g.Go(func() error { return s.Timeline.Initialize(gCtx) })
	g.Go(func() error { return s.Templates.Initialize(gCtx) })
	g.Go(func() error { return s.ValueTags.Initialize(gCtx) })
	g.Go(func() error { return s.Points.Initialize(gCtx) })
	return g.Wait()
}

// Refresh refetches every store. Unlike Initialize it does not stop at the first
// failure: each store keeps its previous rows when its own fetch fails.
func (s *Session) Refresh(ctx context.Context) error {
	var g errgroup.Group
	g.Go(func() error { return s.Memories.Refresh(ctx) })
	g.Go(func() error { return s.Timeline.Refresh(ctx) })
	g.Go(func() error { return s.Templates.Fetch(ctx) })
	g.Go(func() error { return s.ValueTags.Fetch(ctx) })
	g.Go(func() error { return s.Points.Initialize(ctx) })
	return g.Wait()
}

func (s *Session) Dispose() {
	s.Memories.Dispose()
	s.Timeline.Dispose()
	s.Templates.Dispose()
	s.ValueTags.Dispose()
	s.Points.Dispose()
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastUsed = now
	s.mu.Unlock()
}

func (s *Session) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastUsed)
}
