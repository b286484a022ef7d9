// Package points mirrors the current user's point total and history. It is read-only.
package points

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"relay/internal/apperr"
	"relay/internal/gateway"
	"relay/internal/mirror"
)

type Store struct {
	gw  gateway.Gateway
	log *zap.Logger

	mu       sync.RWMutex
	points   UserPoints
	pointGen uint64

	history *mirror.Collection[HistoryEntry]
}

func NewStore(gw gateway.Gateway, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{
		gw:      gw,
		log:     log.With(zap.String("store", "points")),
		points:  Default,
		history: mirror.New(func(h HistoryEntry) string { return h.ID }),
	}
}

func (s *Store) Points() UserPoints {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.points
}

func (s *Store) History() []HistoryEntry { return s.history.Snapshot() }

func (s *Store) Loading() bool { return s.history.Loading() }

// Initialize fetches the total and the history concurrently.
func (s *Store) Initialize(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.FetchUserPoints(gCtx) })
	g.Go(func() error { return s.FetchHistory(gCtx) })
	return g.Wait()
}

func (s *Store) Dispose() {
	s.mu.Lock()
	s.pointGen++
	s.points = Default
	s.mu.Unlock()
	s.history.Dispose()
}

// FetchUserPoints loads the current user's row. A user without one has Default.
func (s *Store) FetchUserPoints(ctx context.Context) error {
	if s.history.Disposed() {
		return apperr.ErrDisposed
	}
	uid, err := s.gw.CurrentUserID(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.pointGen++
	gen := s.pointGen
	s.mu.Unlock()

	var row UserPoints
	err = s.gw.SelectOne(ctx, gateway.UserPoints, gateway.Query{
		Filter: gateway.Filter{"user_id": uid},
	}, &row)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		row = Default
	case err != nil:
		s.log.Error("fetch user points failed", zap.Error(err))
		return apperr.Remote("fetch user points", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen == s.pointGen {
		s.points = row
	}
	return nil
}

// FetchHistory replaces the history, newest first.
func (s *Store) FetchHistory(ctx context.Context) error {
	if s.history.Disposed() {
		return apperr.ErrDisposed
	}
	uid, err := s.gw.CurrentUserID(ctx)
	if err != nil {
		return err
	}
	gen := s.history.Begin()

	var rows []HistoryEntry
	err = s.gw.Select(ctx, gateway.PointHistory, gateway.Query{
		Filter: gateway.Filter{"user_id": uid},
		Order:  []gateway.Order{{Column: "created_at", Desc: true}},
	}, &rows)
	if err != nil {
		s.history.Abort(gen)
		s.log.Error("fetch point history failed", zap.Error(err))
		return apperr.Remote("fetch point history", err)
	}
	s.history.Commit(gen, rows)
	return nil
}
