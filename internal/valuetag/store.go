// Package valuetag mirrors the global value-tag catalog.
package valuetag

import (
	"context"
	"errors"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"go.uber.org/zap"

	"relay/internal/apperr"
	"relay/internal/gateway"
	"relay/internal/mirror"
)

var categoryRule = validation.In(CategoryCulture, CategoryPrinciple, CategoryBehavior)

func (d *Draft) Validate() error {
	return validation.ValidateStruct(d,
		validation.Field(&d.Name, validation.Required, validation.Length(1, 80)),
		validation.Field(&d.PointValue, validation.Min(0)),
		validation.Field(&d.Category, validation.Required, categoryRule),
	)
}

func (p *Patch) Validate() error {
	return validation.ValidateStruct(p,
		validation.Field(&p.Name, validation.NilOrNotEmpty, validation.Length(1, 80)),
		validation.Field(&p.PointValue, validation.Min(0)),
		validation.Field(&p.Category, validation.NilOrNotEmpty, categoryRule),
	)
}

// Store mirrors value tags. The catalog has no owner; administrative rights are the
// gateway's business.
type Store struct {
	gw    gateway.Gateway
	log   *zap.Logger
	items *mirror.Collection[ValueTag]
}

func NewStore(gw gateway.Gateway, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{
		gw:    gw,
		log:   log.With(zap.String("store", "value_tags")),
		items: mirror.New(func(t ValueTag) string { return t.ID }),
	}
}

func (s *Store) Tags() []ValueTag { return s.items.Snapshot() }

func (s *Store) Loading() bool { return s.items.Loading() }

func (s *Store) Initialize(ctx context.Context) error { return s.Fetch(ctx) }

func (s *Store) Dispose() { s.items.Dispose() }

// Fetch replaces the rows with the catalog ordered by category, then name.
func (s *Store) Fetch(ctx context.Context) error {
	if s.items.Disposed() {
		return apperr.ErrDisposed
	}
	gen := s.items.Begin()

	var rows []ValueTag
	err := s.gw.Select(ctx, gateway.ValueTags, gateway.Query{
		Order: []gateway.Order{{Column: "category"}, {Column: "name"}},
	}, &rows)
	if err != nil {
		s.items.Abort(gen)
		s.log.Error("fetch value tags failed", zap.Error(err))
		return apperr.Remote("fetch value tags", err)
	}
	s.items.Commit(gen, rows)
	return nil
}

// Create appends the new tag; the next fetch puts it in category order.
func (s *Store) Create(ctx context.Context, d Draft) (ValueTag, error) {
	if err := d.Validate(); err != nil {
		return ValueTag{}, apperr.Invalid(err)
	}
	t := ValueTag{
		Name:        d.Name,
		Description: d.Description,
		PointValue:  d.PointValue,
		Category:    d.Category,
		Icon:        d.Icon,
	}
	if err := s.gw.Insert(ctx, gateway.ValueTags, &t); err != nil {
		s.log.Error("create value tag failed", zap.Error(err))
		return ValueTag{}, apperr.Remote("create value tag", err)
	}
	s.items.Append(t)
	return t, nil
}

func (s *Store) Update(ctx context.Context, id string, p Patch) (ValueTag, error) {
	if err := p.Validate(); err != nil {
		return ValueTag{}, apperr.Invalid(err)
	}
	cols := p.columns()
	if len(cols) == 0 {
		return ValueTag{}, apperr.Invalid(errors.New("empty patch"))
	}

	var t ValueTag
	if err := s.gw.Update(ctx, gateway.ValueTags, gateway.Filter{"id": id}, cols, &t); err != nil {
		s.log.Error("update value tag failed", zap.String("value_tag_id", id), zap.Error(err))
		return ValueTag{}, apperr.Remote("update value tag", err)
	}
	s.items.Update(id, func(ValueTag) ValueTag { return t })
	return t, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.gw.Delete(ctx, gateway.ValueTags, gateway.Filter{"id": id}); err != nil {
		s.log.Error("delete value tag failed", zap.String("value_tag_id", id), zap.Error(err))
		return apperr.Remote("delete value tag", err)
	}
	s.items.Remove(id)
	return nil
}

// Group is the tags of one category.
type Group struct {
	Category Category   `json:"category"`
	Tags     []ValueTag `json:"tags"`
}

// Grouped returns the non-empty categories in presentation order.
func (s *Store) Grouped() []Group {
	by := map[Category][]ValueTag{}
	for _, t := range s.items.Snapshot() {
		by[t.Category] = append(by[t.Category], t)
	}
	out := make([]Group, 0, len(Categories))
	for _, c := range Categories {
		if tags := by[c]; len(tags) > 0 {
			out = append(out, Group{Category: c, Tags: tags})
		}
	}
	return out
}
