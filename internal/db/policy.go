package db

import (
	"context"
	"fmt"
	"reflect"

	"gorm.io/gorm"

	"relay/internal/apperr"
	"relay/internal/gateway"
)

// Row-level policies. Ownership is enforced here, next to the data; the stores never
// rely on their own checks.
//
//	memories, templates      read: owner or public   write: owner
//	memory_comments/_stamps  read: all               write: author, on a visible memory
//	memory_likes             read/write: owner, on a visible memory
//	user_points, point_history  read/write: owner
//	value_tags, profiles     global

// ErrPolicy is returned for an insert of a row owned by someone other than the caller.
var ErrPolicy = fmt.Errorf("row-level policy violation: %w", apperr.ErrForbidden)

type policy struct {
	owner  string // owning user column, empty for global collections
	public string // column that opens a row to every reader

	// parent, when set, must be readable by the caller for an insert to pass.
	parent    gateway.Collection
	parentKey string
}

var policies = map[gateway.Collection]policy{
	gateway.Memories:       {owner: "user_id", public: "is_public"},
	gateway.Templates:      {owner: "user_id", public: "is_public"},
	gateway.MemoryComments: {owner: "user_id", public: "*", parent: gateway.Memories, parentKey: "memory_id"},
	gateway.MemoryStamps:   {owner: "user_id", public: "*", parent: gateway.Memories, parentKey: "memory_id"},
	gateway.MemoryLikes:    {owner: "user_id", parent: gateway.Memories, parentKey: "memory_id"},
	gateway.UserPoints:     {owner: "user_id"},
	gateway.PointHistory:   {owner: "user_id"},
}

func (g *Gateway) readable(c gateway.Collection) func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		p, ok := policies[c]
		if !ok || p.owner == "" || p.public == "*" {
			return tx
		}
		owner := string(c) + "." + p.owner
		if p.public == "" {
			return tx.Where(owner+" = ?", g.userID)
		}
		return tx.Where(owner+" = ? OR "+string(c)+"."+p.public+" = ?", g.userID, true)
	}
}

func (g *Gateway) writable(c gateway.Collection) func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		p, ok := policies[c]
		if !ok || p.owner == "" {
			return tx
		}
		return tx.Where(string(c)+"."+p.owner+" = ?", g.userID)
	}
}

// checkInsert rejects inserting an owned row on behalf of another user, and a child
// row whose parent the caller cannot read. A hidden or missing parent is
// apperr.ErrNotFound.
func (g *Gateway) checkInsert(tx *gorm.DB, c gateway.Collection, row any) error {
	p, ok := policies[c]
	if !ok || p.owner == "" {
		return nil
	}
	if g.userID == "" {
		return apperr.ErrUnauthenticated
	}

	ctx := tx.Statement.Context
	if v, ok, err := columnValue(ctx, tx, row, p.owner); err != nil {
		return err
	} else if ok && v != g.userID {
		return fmt.Errorf("%w: insert into %s", ErrPolicy, c)
	}

	if p.parent == "" {
		return nil
	}
	parentID, ok, err := columnValue(ctx, tx, row, p.parentKey)
	if err != nil || !ok {
		return err
	}
	var n int64
	err = tx.Table(string(p.parent)).
		Scopes(g.readable(p.parent)).
		Where(string(p.parent)+".id = ?", parentID).
		Count(&n).Error
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s %v", apperr.ErrNotFound, p.parent, parentID)
	}
	return nil
}

// columnValue reads the field mapped to column from row, a pointer to a model.
func columnValue(ctx context.Context, tx *gorm.DB, row any, column string) (any, bool, error) {
	stmt := &gorm.Statement{DB: tx}
	if err := stmt.Parse(row); err != nil {
		return nil, false, err
	}
	field := stmt.Schema.LookUpField(column)
	if field == nil {
		return nil, false, nil
	}
	v, _ := field.ValueOf(ctx, reflect.Indirect(reflect.ValueOf(row)))
	return v, true, nil
}
