package db_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relay/internal/apperr"
	"relay/internal/db"
	"relay/internal/gateway"
	"relay/internal/memory"
	"relay/internal/testutil"
)

func TestInsertAssignsID(t *testing.T) {
	gdb := testutil.DB(t)
	uid := testutil.SeedUser(t, gdb, "ana")
	gw := db.NewGateway(gdb).As(uid)

	m := memory.Memory{Recipient: "A", Message: "m", Date: time.Now(), UserID: uid, Status: memory.StatusSent}
	require.NoError(t, gw.Insert(context.Background(), gateway.Memories, &m))
	assert.Len(t, m.ID, 36)
	assert.False(t, m.CreatedAt.IsZero())
}

func TestInsertForAnotherUserIsRejected(t *testing.T) {
	gdb := testutil.DB(t)
	ana := testutil.SeedUser(t, gdb, "ana")
	bo := testutil.SeedUser(t, gdb, "bo")

	m := memory.Memory{Recipient: "A", Message: "m", Date: time.Now(), UserID: bo, Status: memory.StatusSent}
	err := db.NewGateway(gdb).As(ana).Insert(context.Background(), gateway.Memories, &m)
	assert.ErrorIs(t, err, db.ErrPolicy)

	err = db.NewGateway(gdb).Insert(context.Background(), gateway.Memories, &m)
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
}

func TestDuplicateLikeIsConflict(t *testing.T) {
	gdb := testutil.DB(t)
	uid := testutil.SeedUser(t, gdb, "ana")
	gw := db.NewGateway(gdb).As(uid)
	ctx := context.Background()

	m := memory.Memory{Recipient: "A", Message: "m", Date: time.Now(), UserID: uid, Status: memory.StatusSent}
	require.NoError(t, gw.Insert(ctx, gateway.Memories, &m))

	require.NoError(t, gw.Insert(ctx, gateway.MemoryLikes, &memory.Like{MemoryID: m.ID, UserID: uid}))
	err := gw.Insert(ctx, gateway.MemoryLikes, &memory.Like{MemoryID: m.ID, UserID: uid})
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestSelectOneNotFound(t *testing.T) {
	gdb := testutil.DB(t)
	uid := testutil.SeedUser(t, gdb, "ana")

	var m memory.Memory
	err := db.NewGateway(gdb).As(uid).SelectOne(context.Background(), gateway.Memories,
		gateway.Query{Filter: gateway.Filter{"id": "nope"}}, &m)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestReadPolicies(t *testing.T) {
	gdb := testutil.DB(t)
	base := db.NewGateway(gdb)
	ana := testutil.SeedUser(t, gdb, "ana")
	bo := testutil.SeedUser(t, gdb, "bo")
	ctx := context.Background()

	insert := func(uid string, public bool) memory.Memory {
		m := memory.Memory{Recipient: "r", Message: "m", Date: time.Now(), UserID: uid, IsPublic: public, Status: memory.StatusSent}
		require.NoError(t, base.As(uid).Insert(ctx, gateway.Memories, &m))
		return m
	}
	insert(ana, false)
	insert(bo, true)
	hidden := insert(bo, false)

	var rows []memory.Memory
	require.NoError(t, base.As(ana).Select(ctx, gateway.Memories, gateway.Query{}, &rows))
	assert.Len(t, rows, 2)
	for _, r := range rows {
		assert.NotEqual(t, hidden.ID, r.ID)
	}

	rows = nil
	require.NoError(t, base.Select(ctx, gateway.Memories, gateway.Query{}, &rows))
	assert.Len(t, rows, 1)

	var like memory.Like
	require.NoError(t, base.As(bo).Insert(ctx, gateway.MemoryLikes, &memory.Like{MemoryID: hidden.ID, UserID: bo}))
	err := base.As(ana).SelectOne(ctx, gateway.MemoryLikes, gateway.Query{Filter: gateway.Filter{"memory_id": hidden.ID}}, &like)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestViewCountsAndLimit(t *testing.T) {
	gdb := testutil.DB(t)
	base := db.NewGateway(gdb)
	ana := testutil.SeedUser(t, gdb, "ana")
	bo := testutil.SeedUser(t, gdb, "bo")
	ctx := context.Background()

	m := memory.Memory{Recipient: "r", Message: "m", Date: time.Now(), UserID: ana, IsPublic: true, Status: memory.StatusSent}
	require.NoError(t, base.As(ana).Insert(ctx, gateway.Memories, &m))
	for _, uid := range []string{ana, bo} {
		require.NoError(t, base.As(uid).Insert(ctx, gateway.MemoryLikes, &memory.Like{MemoryID: m.ID, UserID: uid}))
		require.NoError(t, base.As(uid).Insert(ctx, gateway.MemoryComments, &memory.Comment{MemoryID: m.ID, UserID: uid, Content: "c"}))
	}
	other := memory.Memory{Recipient: "r", Message: "m", Date: time.Now(), UserID: ana, Status: memory.StatusSent}
	require.NoError(t, base.As(ana).Insert(ctx, gateway.Memories, &other))

	var got memory.Memory
	require.NoError(t, base.As(bo).SelectOne(ctx, gateway.Memories, gateway.Query{
		Filter: gateway.Filter{"id": m.ID},
		Joins:  []gateway.Join{{Relation: "Comments", OrderBy: "created_at"}, {Relation: "Comments.User"}},
	}, &got))
	assert.Equal(t, 2, got.LikesCount)
	assert.Equal(t, 2, got.CommentsCount)
	require.Len(t, got.Comments, 2)
	assert.Equal(t, "ana", got.Comments[0].User.Username)

	var rows []memory.Memory
	require.NoError(t, base.As(ana).Select(ctx, gateway.Memories, gateway.Query{Limit: 1}, &rows))
	assert.Len(t, rows, 1)
}

func TestUpdateAndDeleteRespectOwnership(t *testing.T) {
	gdb := testutil.DB(t)
	base := db.NewGateway(gdb)
	ana := testutil.SeedUser(t, gdb, "ana")
	bo := testutil.SeedUser(t, gdb, "bo")
	ctx := context.Background()

	m := memory.Memory{Recipient: "r", Message: "m", Date: time.Now(), UserID: ana, IsPublic: true, Status: memory.StatusSent}
	require.NoError(t, base.As(ana).Insert(ctx, gateway.Memories, &m))

	var out memory.Memory
	err := base.As(bo).Update(ctx, gateway.Memories, gateway.Filter{"id": m.ID}, map[string]any{"message": "x"}, &out)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	require.NoError(t, base.As(bo).Delete(ctx, gateway.Memories, gateway.Filter{"id": m.ID}))
	require.NoError(t, base.As(ana).SelectOne(ctx, gateway.Memories, gateway.Query{Filter: gateway.Filter{"id": m.ID}}, &out))

	require.NoError(t, base.As(ana).Update(ctx, gateway.Memories, gateway.Filter{"id": m.ID}, map[string]any{"message": "x"}, &out))
	assert.Equal(t, "x", out.Message)

	require.NoError(t, base.As(ana).Delete(ctx, gateway.Memories, gateway.Filter{"id": m.ID}))
	err = base.As(ana).SelectOne(ctx, gateway.Memories, gateway.Query{Filter: gateway.Filter{"id": m.ID}}, &out)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	assert.Error(t, base.As(ana).Delete(ctx, gateway.Memories, gateway.Filter{}))
}

func TestConnectUnknownDriver(t *testing.T) {
	_, err := db.Connect("oracle", "dsn")
	assert.Error(t, err)
}

func TestChildInsertRequiresVisibleMemory(t *testing.T) {
	gdb := testutil.DB(t)
	base := db.NewGateway(gdb)
	ana := testutil.SeedUser(t, gdb, "ana")
	bo := testutil.SeedUser(t, gdb, "bo")
	ctx := context.Background()

	private := memory.Memory{Recipient: "r", Message: "m", Date: time.Now(), UserID: ana, Status: memory.StatusSent}
	require.NoError(t, base.As(ana).Insert(ctx, gateway.Memories, &private))
	public := memory.Memory{Recipient: "r", Message: "m", Date: time.Now(), UserID: ana, IsPublic: true, Status: memory.StatusSent}
	require.NoError(t, base.As(ana).Insert(ctx, gateway.Memories, &public))

	for _, memoryID := range []string{private.ID, "no-such-memory"} {
		err := base.As(bo).Insert(ctx, gateway.MemoryLikes, &memory.Like{MemoryID: memoryID, UserID: bo})
		assert.ErrorIs(t, err, apperr.ErrNotFound, memoryID)
		err = base.As(bo).Insert(ctx, gateway.MemoryComments, &memory.Comment{MemoryID: memoryID, UserID: bo, Content: "c"})
		assert.ErrorIs(t, err, apperr.ErrNotFound, memoryID)
		err = base.As(bo).Insert(ctx, gateway.MemoryStamps, &memory.Stamp{MemoryID: memoryID, StampID: "1", UserID: bo})
		assert.ErrorIs(t, err, apperr.ErrNotFound, memoryID)
	}

	// the owner may still react to their own private memory
	require.NoError(t, base.As(ana).Insert(ctx, gateway.MemoryLikes, &memory.Like{MemoryID: private.ID, UserID: ana}))
	require.NoError(t, base.As(bo).Insert(ctx, gateway.MemoryLikes, &memory.Like{MemoryID: public.ID, UserID: bo}))

	var n int64
	require.NoError(t, gdb.Model(&memory.Like{}).Count(&n).Error)
	assert.EqualValues(t, 2, n)
	require.NoError(t, gdb.Model(&memory.Comment{}).Count(&n).Error)
	assert.Zero(t, n)
	require.NoError(t, gdb.Model(&memory.Stamp{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestDeletingMemoryRemovesItsLikes(t *testing.T) {
	gdb := testutil.DB(t)
	base := db.NewGateway(gdb)
	ana := testutil.SeedUser(t, gdb, "ana")
	bo := testutil.SeedUser(t, gdb, "bo")
	ctx := context.Background()

	m := memory.Memory{Recipient: "r", Message: "m", Date: time.Now(), UserID: ana, IsPublic: true, Status: memory.StatusSent}
	require.NoError(t, base.As(ana).Insert(ctx, gateway.Memories, &m))
	require.NoError(t, base.As(bo).Insert(ctx, gateway.MemoryLikes, &memory.Like{MemoryID: m.ID, UserID: bo}))

	require.NoError(t, base.As(ana).Delete(ctx, gateway.Memories, gateway.Filter{"id": m.ID}))

	var n int64
	require.NoError(t, gdb.Model(&memory.Like{}).Where("memory_id = ?", m.ID).Count(&n).Error)
	assert.Zero(t, n)
}

func TestPolicyErrorIsForbidden(t *testing.T) {
	gdb := testutil.DB(t)
	ana := testutil.SeedUser(t, gdb, "ana")
	bo := testutil.SeedUser(t, gdb, "bo")

	m := memory.Memory{Recipient: "A", Message: "m", Date: time.Now(), UserID: bo, Status: memory.StatusSent}
	err := db.NewGateway(gdb).As(ana).Insert(context.Background(), gateway.Memories, &m)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	assert.Empty(t, m.ID)
}
