package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"relay/internal/gateway"
)

var ErrClosed = errors.New("session registry closed")

// GatewayFor returns a gateway acting for userID.
type GatewayFor func(userID string) gateway.Gateway

// Registry owns one Session per user. Sessions are created and initialized on first
// use and evicted after IdleTTL without use.
type Registry struct {
	gatewayFor GatewayFor
	log        *zap.Logger
	idleTTL    time.Duration
	now        func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
	opening  singleflight.Group
	closed   bool
}

func NewRegistry(gatewayFor GatewayFor, idleTTL time.Duration, log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{
		gatewayFor: gatewayFor,
		log:        log.With(zap.String("component", "sessions")),
		idleTTL:    idleTTL,
		now:        time.Now,
		sessions:   map[string]*Session{},
	}
}

// Get returns userID's session, opening it if needed. Concurrent first calls for the
// same user share one initialization, which is not cut short when the caller that
// started it goes away. A failed initialization is not kept.
func (r *Registry) Get(ctx context.Context, userID string) (*Session, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, ErrClosed
	}
	if s, ok := r.sessions[userID]; ok {
		r.mu.Unlock()
		s.touch(r.now())
		return s, nil
	}
	r.mu.Unlock()

	shared := context.WithoutCancel(ctx)
	v, err, _ := r.opening.Do(userID, func() (any, error) {
		s := New(userID, r.gatewayFor(userID), r.log)
		if err := s.Initialize(shared); err != nil {
			s.Dispose()
			return nil, err
		}

		r.mu.Lock()
		defer r.mu.Unlock()
		if r.closed {
			s.Dispose()
			return nil, ErrClosed
		}
		r.sessions[userID] = s
		r.log.Debug("session opened", zap.String("user_id", userID))
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Session), nil
}

// Sessions returns the live sessions.
func (r *Registry) Sessions() []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}

// EvictIdle disposes the sessions unused for longer than the idle TTL and returns
// how many it dropped.
func (r *Registry) EvictIdle() int {
	now := r.now()

	r.mu.Lock()
	var idle []*Session
	for id, s := range r.sessions {
		if s.idleSince(now) > r.idleTTL {
			idle = append(idle, s)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, s := range idle {
		s.Dispose()
		r.log.Debug("session evicted", zap.String("user_id", s.UserID))
	}
	return len(idle)
}

// Close disposes every session; later Gets fail with ErrClosed.
func (r *Registry) Close() {
	r.mu.Lock()
	r.closed = true
	sessions := r.sessions
	r.sessions = map[string]*Session{}
	r.mu.Unlock()

	for _, s := range sessions {
		s.Dispose()
	}
}
