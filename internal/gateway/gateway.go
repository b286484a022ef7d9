// Package gateway defines the contract of the remote relational store that the entity
// stores mirror. The store is the single source of truth; implementations live in
// internal/db.
package gateway

import "context"

// Collection names a remote table.
type Collection string

const (
	Memories       Collection = "memories"
	MemoryComments Collection = "memory_comments"
	MemoryStamps   Collection = "memory_stamps"
	MemoryLikes    Collection = "memory_likes"
	Templates      Collection = "templates"
	ValueTags      Collection = "value_tags"
	UserPoints     Collection = "user_points"
	PointHistory   Collection = "point_history"
	Profiles       Collection = "profiles"
)

// Filter is a conjunction of column equality predicates.
type Filter map[string]any

// Order sorts by one column.
type Order struct {
	Column string
	Desc   bool
}

// Join embeds a related collection into each row, e.g. "Comments" or "Comments.User".
// OrderBy, when set, orders the embedded rows.
type Join struct {
	Relation string
	OrderBy  string
}

// Query selects rows of a collection.
type Query struct {
	Filter Filter
	Order  []Order
	Joins  []Join
	Limit  int
}

// Gateway is the capability set the stores consume.
//
// dest and row arguments are pointers to the collection's row type (or a slice of it
// for Select). Implementations report a missing row as apperr.ErrNotFound, a unique
// violation as apperr.ErrConflict and an unbound identity as apperr.ErrUnauthenticated.
type Gateway interface {
	Select(ctx context.Context, c Collection, q Query, dest any) error
	SelectOne(ctx context.Context, c Collection, q Query, dest any) error
	// Insert writes row and fills it with the server-assigned id and defaults.
	Insert(ctx context.Context, c Collection, row any, joins ...Join) error
	// Update applies patch to the rows matching f and reads the updated row into dest.
	Update(ctx context.Context, c Collection, f Filter, patch map[string]any, dest any) error
	// Delete removes the rows matching f. Matching nothing is not an error.
	Delete(ctx context.Context, c Collection, f Filter) error
	CurrentUserID(ctx context.Context) (string, error)
}
