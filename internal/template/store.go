// Package template mirrors the reusable message templates visible to the current user.
package template

import (
	"context"
	"errors"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"go.uber.org/zap"

	"relay/internal/apperr"
	"relay/internal/gateway"
	"relay/internal/mirror"
)

var categoryRule = validation.In(
	CategoryGeneral, CategoryBusiness, CategoryPersonal, CategoryCelebration, CategoryGratitude,
)

func (d *Draft) Validate() error {
	return validation.ValidateStruct(d,
		validation.Field(&d.Title, validation.Required, validation.Length(1, 120)),
		validation.Field(&d.Message, validation.Required),
		validation.Field(&d.Category, validation.Required, categoryRule),
	)
}

func (p *Patch) Validate() error {
	return validation.ValidateStruct(p,
		validation.Field(&p.Title, validation.NilOrNotEmpty, validation.Length(1, 120)),
		validation.Field(&p.Message, validation.NilOrNotEmpty),
		validation.Field(&p.Category, validation.NilOrNotEmpty, categoryRule),
	)
}

// Store mirrors templates. Which templates are visible and who may change them is
// decided by the gateway.
type Store struct {
	gw    gateway.Gateway
	log   *zap.Logger
	items *mirror.Collection[Template]
}

func NewStore(gw gateway.Gateway, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{
		gw:    gw,
		log:   log.With(zap.String("store", "templates")),
		items: mirror.New(func(t Template) string { return t.ID }),
	}
}

func (s *Store) Templates() []Template { return s.items.Snapshot() }

func (s *Store) Loading() bool { return s.items.Loading() }

func (s *Store) Get(id string) (Template, bool) { return s.items.Get(id) }

func (s *Store) Initialize(ctx context.Context) error { return s.Fetch(ctx) }

func (s *Store) Dispose() { s.items.Dispose() }

// Fetch replaces the rows with the visible templates, newest first. On failure the
// previous rows stay.
func (s *Store) Fetch(ctx context.Context) error {
	if s.items.Disposed() {
		return apperr.ErrDisposed
	}
	gen := s.items.Begin()

	var rows []Template
	err := s.gw.Select(ctx, gateway.Templates, gateway.Query{
		Order: []gateway.Order{{Column: "created_at", Desc: true}},
	}, &rows)
	if err != nil {
		s.items.Abort(gen)
		s.log.Error("fetch templates failed", zap.Error(err))
		return apperr.Remote("fetch templates", err)
	}
	for i := range rows {
		normalize(&rows[i])
	}
	s.items.Commit(gen, rows)
	return nil
}

func (s *Store) Create(ctx context.Context, d Draft) (Template, error) {
	if err := d.Validate(); err != nil {
		return Template{}, apperr.Invalid(err)
	}
	uid, err := s.gw.CurrentUserID(ctx)
	if err != nil {
		return Template{}, err
	}

	t := Template{
		Title:    d.Title,
		Message:  d.Message,
		Category: d.Category,
		Tags:     NormalizeTags(d.Tags),
		IsPublic: d.IsPublic,
		UserID:   uid,
	}
	if err := s.gw.Insert(ctx, gateway.Templates, &t); err != nil {
		s.log.Error("create template failed", zap.Error(err))
		return Template{}, apperr.Remote("create template", err)
	}
	normalize(&t)
	s.items.Prepend(t)
	return t, nil
}

// Update applies p to template id; the server's row replaces the local one.
func (s *Store) Update(ctx context.Context, id string, p Patch) (Template, error) {
	if err := p.Validate(); err != nil {
		return Template{}, apperr.Invalid(err)
	}
	cols, err := p.columns()
	if err != nil {
		return Template{}, apperr.Invalid(err)
	}
	if len(cols) == 0 {
		return Template{}, apperr.Invalid(errors.New("empty patch"))
	}

	var t Template
	if err := s.gw.Update(ctx, gateway.Templates, gateway.Filter{"id": id}, cols, &t); err != nil {
		s.log.Error("update template failed", zap.String("template_id", id), zap.Error(err))
		return Template{}, apperr.Remote("update template", err)
	}
	normalize(&t)
	s.items.Update(id, func(Template) Template { return t })
	return t, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.gw.Delete(ctx, gateway.Templates, gateway.Filter{"id": id}); err != nil {
		s.log.Error("delete template failed", zap.String("template_id", id), zap.Error(err))
		return apperr.Remote("delete template", err)
	}
	s.items.Remove(id)
	return nil
}

func normalize(t *Template) {
	if t.Tags == nil {
		t.Tags = []string{}
	}
}
