package memory

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"relay/internal/apperr"
	"relay/internal/gateway"
	"relay/internal/mirror"
)

// Mode selects what Refresh mirrors.
type Mode int

const (
	// ModeOwn mirrors the current user's memories.
	ModeOwn Mode = iota
	// ModeTimeline mirrors every public memory.
	ModeTimeline
)

var fetchJoins = []gateway.Join{
	{Relation: "Comments", OrderBy: "created_at"},
	{Relation: "Comments.User"},
	{Relation: "Stamps", OrderBy: "created_at"},
	{Relation: "Stamps.User"},
}

var newestFirst = []gateway.Order{{Column: "created_at", Desc: true}}

// Store mirrors memories from the gateway and performs every memory-scoped mutation.
// All mutations wait for the gateway to confirm before touching the local rows.
type Store struct {
	gw    gateway.Gateway
	log   *zap.Logger
	mode  Mode
	items *mirror.Collection[Memory]

	toggles singleflight.Group
}

// NewStore returns a store mirroring the memories selected by mode.
func NewStore(gw gateway.Gateway, mode Mode, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{
		gw:    gw,
		log:   log.With(zap.String("store", "memories")),
		mode:  mode,
		items: mirror.New(func(m Memory) string { return m.ID }),
	}
}

func (s *Store) Mode() Mode { return s.mode }

// Memories returns the current snapshot.
func (s *Store) Memories() []Memory { return s.items.Snapshot() }

func (s *Store) Loading() bool { return s.items.Loading() }

// Get returns the local memory with id.
func (s *Store) Get(id string) (Memory, bool) { return s.items.Get(id) }

// Initialize performs the first fetch for the store's mode.
func (s *Store) Initialize(ctx context.Context) error {
	return s.Refresh(ctx)
}

// Dispose drops the rows and discards in-flight fetches.
func (s *Store) Dispose() { s.items.Dispose() }

// Refresh refetches whatever the store's mode mirrors.
func (s *Store) Refresh(ctx context.Context) error {
	if s.mode == ModeTimeline {
		return s.FetchPublicTimeline(ctx)
	}
	return s.FetchAll(ctx)
}

// FetchAll replaces the rows with the current user's memories, newest first.
func (s *Store) FetchAll(ctx context.Context) error {
	uid, err := s.gw.CurrentUserID(ctx)
	if err != nil {
		return err
	}
	return s.fetch(ctx, "fetch memories", gateway.Filter{"user_id": uid})
}

// FetchPublicTimeline replaces the rows with every public memory, newest first.
func (s *Store) FetchPublicTimeline(ctx context.Context) error {
	return s.fetch(ctx, "fetch timeline", gateway.Filter{"is_public": true})
}

// fetch keeps the previous rows when the gateway fails.
func (s *Store) fetch(ctx context.Context, op string, f gateway.Filter) error {
	if s.items.Disposed() {
		return apperr.ErrDisposed
	}
	gen := s.items.Begin()

	var rows []Memory
	err := s.gw.Select(ctx, gateway.Memories, gateway.Query{
		Filter: f,
		Order:  newestFirst,
		Joins:  fetchJoins,
	}, &rows)
	if err != nil {
		s.items.Abort(gen)
		s.log.Error(op+" failed", zap.Error(err))
		return apperr.Remote(op, err)
	}

	for i := range rows {
		normalize(&rows[i])
	}
	if !s.items.Commit(gen, rows) {
		s.log.Debug(op+" superseded", zap.Uint64("generation", gen))
	}
	return nil
}

// Create inserts a memory and prepends the server's row. Status is scheduled when a
// scheduled date is set and sent otherwise.
func (s *Store) Create(ctx context.Context, d Draft) (Memory, error) {
	if err := d.Validate(); err != nil {
		return Memory{}, apperr.Invalid(err)
	}
	uid, err := s.gw.CurrentUserID(ctx)
	if err != nil {
		return Memory{}, err
	}

	m := Memory{
		Recipient:     d.Recipient,
		Message:       d.Message,
		Date:          d.Date,
		ScheduledDate: d.ScheduledDate,
		ImageURL:      d.ImageURL,
		TemplateID:    d.TemplateID,
		ValueTags:     d.ValueTags,
		IsPublic:      d.IsPublic,
		UserID:        uid,
		Status:        statusFor(d.ScheduledDate),
	}
	if err := s.gw.Insert(ctx, gateway.Memories, &m); err != nil {
		s.log.Error("create memory failed", zap.Error(err))
		return Memory{}, apperr.Remote("create memory", err)
	}

	normalize(&m)
	if s.includes(m, uid) {
		s.items.Prepend(m)
	}
	return m, nil
}

// Update applies p to memory id and merges the server's row into the local one.
func (s *Store) Update(ctx context.Context, id string, p Patch) (Memory, error) {
	if err := p.Validate(); err != nil {
		return Memory{}, apperr.Invalid(err)
	}
	cols, err := p.columns()
	if err != nil {
		return Memory{}, apperr.Invalid(err)
	}
	if len(cols) == 0 {
		return Memory{}, apperr.Invalid(errors.New("empty patch"))
	}

	var m Memory
	if err := s.gw.Update(ctx, gateway.Memories, gateway.Filter{"id": id}, cols, &m); err != nil {
		s.log.Error("update memory failed", zap.String("memory_id", id), zap.Error(err))
		return Memory{}, apperr.Remote("update memory", err)
	}

	var merged Memory
	found := s.items.Update(id, func(local Memory) Memory {
		merged = mergeRow(local, m)
		return merged
	})
	if !found {
		normalize(&m)
		merged = m
	}
	return merged, nil
}

// Delete removes memory id remotely, then locally.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.gw.Delete(ctx, gateway.Memories, gateway.Filter{"id": id}); err != nil {
		s.log.Error("delete memory failed", zap.String("memory_id", id), zap.Error(err))
		return apperr.Remote("delete memory", err)
	}
	s.items.Remove(id)
	return nil
}

// Scheduled returns the scheduled memories, restricted to those due on day's date
// when day is non-nil.
func (s *Store) Scheduled(day *time.Time) []Memory {
	var out []Memory
	for _, m := range s.items.Snapshot() {
		if m.Status != StatusScheduled {
			continue
		}
		if day != nil && (m.ScheduledDate == nil || !sameDay(*m.ScheduledDate, *day)) {
			continue
		}
		out = append(out, m)
	}
	return out
}

// Public returns the public memories in the snapshot.
func (s *Store) Public() []Memory {
	var out []Memory
	for _, m := range s.items.Snapshot() {
		if m.IsPublic {
			out = append(out, m)
		}
	}
	return out
}

// includes reports whether m belongs in this store's mode.
func (s *Store) includes(m Memory, uid string) bool {
	if s.mode == ModeTimeline {
		return m.IsPublic
	}
	return m.UserID == uid
}

func statusFor(scheduled *time.Time) Status {
	if scheduled != nil {
		return StatusScheduled
	}
	return StatusSent
}

// mergeRow lays the server's scalar fields over local and keeps the nested
// collections the update response does not carry.
func mergeRow(local, server Memory) Memory {
	comments, stamps := local.Comments, local.Stamps
	if server.Comments != nil {
		comments = server.Comments
	}
	if server.Stamps != nil {
		stamps = server.Stamps
	}
	server.Comments, server.Stamps = comments, stamps
	normalize(&server)
	return server
}

func normalize(m *Memory) {
	if m.Comments == nil {
		m.Comments = []Comment{}
	}
	if m.Stamps == nil {
		m.Stamps = []Stamp{}
	}
	if m.ValueTags == nil {
		m.ValueTags = []string{}
	}
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
