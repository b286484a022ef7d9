package db

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"relay/internal/apperr"
	"relay/internal/gateway"
)

// views are the read shapes of collections whose rows carry computed columns.
var views = map[gateway.Collection]string{
	gateway.Memories: `memories.*,
		(SELECT COUNT(*) FROM memory_likes WHERE memory_likes.memory_id = memories.id) AS likes_count,
		(SELECT COUNT(*) FROM memory_comments WHERE memory_comments.memory_id = memories.id) AS comments_count`,
}

// Gateway implements gateway.Gateway on GORM. The zero user id is unbound: reads see
// public rows only and every write to an owned collection fails its policy.
type Gateway struct {
	DB     *gorm.DB
	userID string
}

var _ gateway.Gateway = (*Gateway)(nil)

func NewGateway(gdb *gorm.DB) *Gateway {
	return &Gateway{DB: gdb}
}

// As returns a gateway acting for userID.
func (g *Gateway) As(userID string) *Gateway {
	return &Gateway{DB: g.DB, userID: userID}
}

func (g *Gateway) CurrentUserID(context.Context) (string, error) {
	if g.userID == "" {
		return "", apperr.ErrUnauthenticated
	}
	return g.userID, nil
}

func (g *Gateway) Select(ctx context.Context, c gateway.Collection, q gateway.Query, dest any) error {
	tx := g.read(ctx, c, q)
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}
	return translate(tx.Find(dest).Error)
}

func (g *Gateway) SelectOne(ctx context.Context, c gateway.Collection, q gateway.Query, dest any) error {
	return translate(g.read(ctx, c, q).Take(dest).Error)
}

func (g *Gateway) Insert(ctx context.Context, c gateway.Collection, row any, joins ...gateway.Join) error {
	err := g.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := g.checkInsert(tx, c, row); err != nil {
			return err
		}
		return tx.Table(string(c)).Omit(clause.Associations).Create(row).Error
	})
	if err != nil {
		return translate(err)
	}
	if len(joins) == 0 {
		return nil
	}
	// row carries its primary key now, which Take uses as the condition.
	return translate(g.read(ctx, c, gateway.Query{Joins: joins}).Take(row).Error)
}

func (g *Gateway) Update(ctx context.Context, c gateway.Collection, f gateway.Filter, patch map[string]any, dest any) error {
	err := g.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Table(string(c)).Scopes(g.writable(c)).Where(qualify(c, f)).Updates(patch)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.ErrNotFound
		}
		sub := &Gateway{DB: tx, userID: g.userID}
		return sub.read(ctx, c, gateway.Query{Filter: f}).Take(dest).Error
	})
	return translate(err)
}

func (g *Gateway) Delete(ctx context.Context, c gateway.Collection, f gateway.Filter) error {
	if len(f) == 0 {
		return fmt.Errorf("delete %s: empty filter", c)
	}
	err := g.DB.WithContext(ctx).Table(string(c)).
		Scopes(g.writable(c)).
		Where(qualify(c, f)).
		Delete(map[string]any{}).Error
	return translate(err)
}

func (g *Gateway) read(ctx context.Context, c gateway.Collection, q gateway.Query) *gorm.DB {
	tx := g.DB.WithContext(ctx).Table(string(c))
	if v, ok := views[c]; ok {
		tx = tx.Select(v)
	}
	tx = tx.Scopes(g.readable(c))
	if len(q.Filter) > 0 {
		tx = tx.Where(qualify(c, q.Filter))
	}
	for _, o := range q.Order {
		tx = tx.Order(clause.OrderByColumn{
			Column: clause.Column{Table: string(c), Name: o.Column},
			Desc:   o.Desc,
		})
	}
	for _, j := range q.Joins {
		if j.OrderBy == "" {
			tx = tx.Preload(j.Relation)
			continue
		}
		orderBy := j.OrderBy
		tx = tx.Preload(j.Relation, func(db *gorm.DB) *gorm.DB {
			return db.Order(clause.OrderByColumn{Column: clause.Column{Name: orderBy}})
		})
	}
	return tx
}

// qualify prefixes filter columns with the collection so they stay unambiguous
// next to view subqueries.
func qualify(c gateway.Collection, f gateway.Filter) map[string]any {
	out := make(map[string]any, len(f))
	for k, v := range f {
		out[string(c)+"."+k] = v
	}
	return out
}

// translate maps driver errors onto the apperr taxonomy.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %v", apperr.ErrConflict, err)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return fmt.Errorf("%w: %v", apperr.ErrConflict, err)
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) && liteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		return fmt.Errorf("%w: %v", apperr.ErrConflict, err)
	}
	return err
}

// registerCallbacks makes the store assign ids: an empty string primary key gets a
// UUID before insert.
func registerCallbacks(gdb *gorm.DB) error {
	return gdb.Callback().Create().Before("gorm:create").Register("relay:assign_id", assignID)
}

func assignID(tx *gorm.DB) {
	sch := tx.Statement.Schema
	if sch == nil || sch.PrioritizedPrimaryField == nil {
		return
	}
	field := sch.PrioritizedPrimaryField
	if field.FieldType.Kind() != reflect.String {
		return
	}
	ctx := tx.Statement.Context
	set := func(rv reflect.Value) {
		if _, zero := field.ValueOf(ctx, rv); zero {
			if err := field.Set(ctx, rv, uuid.NewString()); err != nil {
				_ = tx.AddError(err)
			}
		}
	}

	rv := reflect.Indirect(tx.Statement.ReflectValue)
	switch rv.Kind() {
	case reflect.Struct:
		set(rv)
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			set(reflect.Indirect(rv.Index(i)))
		}
	}
}
