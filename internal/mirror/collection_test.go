package mirror

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct {
	ID string
	N  int
}

func newRows() *Collection[row] {
	return New(func(r row) string { return r.ID })
}

func TestCommitReplacesRows(t *testing.T) {
	c := newRows()
	gen := c.Begin()
	assert.True(t, c.Loading())

	require.True(t, c.Commit(gen, []row{{ID: "a"}, {ID: "b"}}))
	assert.False(t, c.Loading())
	assert.Equal(t, []row{{ID: "a"}, {ID: "b"}}, c.Snapshot())
}

func TestStaleGenerationDiscarded(t *testing.T) {
	c := newRows()
	first := c.Begin()
	second := c.Begin()

	require.True(t, c.Commit(second, []row{{ID: "new"}}))
	assert.False(t, c.Commit(first, []row{{ID: "old"}}), "superseded fetch must not apply")
	assert.Equal(t, []row{{ID: "new"}}, c.Snapshot())
}

func TestLoadingStaysUntilLatestFinishes(t *testing.T) {
	c := newRows()
	first := c.Begin()
	second := c.Begin()

	c.Abort(first)
	assert.True(t, c.Loading())
	c.Abort(second)
	assert.False(t, c.Loading())
}

func TestAbortKeepsRows(t *testing.T) {
	c := newRows()
	c.Commit(c.Begin(), []row{{ID: "a"}})

	c.Abort(c.Begin())
	assert.Equal(t, 1, c.Len())
}

func TestPrependAppendUpdateRemove(t *testing.T) {
	c := newRows()
	c.Append(row{ID: "b"})
	c.Prepend(row{ID: "a"})
	c.Append(row{ID: "c"})

	assert.True(t, c.Update("b", func(r row) row { r.N = 7; return r }))
	assert.False(t, c.Update("zz", func(r row) row { return r }))

	got, ok := c.Get("b")
	require.True(t, ok)
	assert.Equal(t, 7, got.N)

	assert.True(t, c.Remove("a"))
	assert.False(t, c.Remove("a"))
	assert.Equal(t, []row{{ID: "b", N: 7}, {ID: "c"}}, c.Snapshot())
}

func TestSnapshotIsACopy(t *testing.T) {
	c := newRows()
	c.Append(row{ID: "a"})
	snap := c.Snapshot()
	snap[0].N = 99

	got, _ := c.Get("a")
	assert.Zero(t, got.N)
}

func TestDisposeDiscardsInflightFetch(t *testing.T) {
	c := newRows()
	c.Append(row{ID: "a"})
	gen := c.Begin()

	c.Dispose()
	assert.False(t, c.Commit(gen, []row{{ID: "b"}}))
	assert.Zero(t, c.Len())
	assert.True(t, c.Disposed())

	c.Append(row{ID: "c"})
	assert.Zero(t, c.Len())
}
