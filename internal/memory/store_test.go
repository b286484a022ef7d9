package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"relay/internal/apperr"
	"relay/internal/db"
	"relay/internal/gateway"
	"relay/internal/memory"
	"relay/internal/testutil"
)

type env struct {
	gdb   *gorm.DB
	base  *db.Gateway
	uid   string
	gw    *testutil.Gateway
	store *memory.Store
}

func setup(t *testing.T, mode memory.Mode) *env {
	t.Helper()
	gdb := testutil.DB(t)
	base := db.NewGateway(gdb)
	uid := testutil.SeedUser(t, gdb, "ana")
	gw := testutil.Wrap(base.As(uid))
	s := memory.NewStore(gw, mode, nil)
	t.Cleanup(s.Dispose)
	return &env{gdb: gdb, base: base, uid: uid, gw: gw, store: s}
}

// seed writes a memory for uid through a separate store.
func (e *env) seed(t *testing.T, uid string, d memory.Draft) memory.Memory {
	t.Helper()
	m, err := memory.NewStore(e.base.As(uid), memory.ModeOwn, nil).Create(context.Background(), d)
	require.NoError(t, err)
	return m
}

func day(s string) time.Time {
	d, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestCreateSent(t *testing.T) {
	e := setup(t, memory.ModeOwn)
	ctx := context.Background()

	m, err := e.store.Create(ctx, memory.Draft{Recipient: "Alice", Message: "Thanks!", Date: day("2024-01-01")})
	require.NoError(t, err)
	assert.NotEmpty(t, m.ID)
	assert.Equal(t, memory.StatusSent, m.Status)
	assert.Equal(t, e.uid, m.UserID)

	require.Equal(t, []string{m.ID}, ids(e.store.Memories()))
}

func TestCreateScheduled(t *testing.T) {
	e := setup(t, memory.ModeOwn)
	ctx := context.Background()
	due := day("2024-06-01")

	m, err := e.store.Create(ctx, memory.Draft{Recipient: "Alice", Message: "Soon", Date: day("2024-01-01"), ScheduledDate: &due})
	require.NoError(t, err)
	assert.Equal(t, memory.StatusScheduled, m.Status)

	assert.Len(t, e.store.Scheduled(nil), 1)
	assert.Len(t, e.store.Scheduled(&due), 1)
	other := day("2024-06-02")
	assert.Empty(t, e.store.Scheduled(&other))

	timeline := memory.NewStore(e.base.As(e.uid), memory.ModeTimeline, nil)
	require.NoError(t, timeline.FetchPublicTimeline(ctx))
	assert.Empty(t, timeline.Memories())
}

func TestCreateThenFetchRoundTrip(t *testing.T) {
	e := setup(t, memory.ModeOwn)
	ctx := context.Background()
	due := day("2024-06-01")

	drafts := []memory.Draft{
		{Recipient: "Alice", Message: "one", Date: day("2024-01-01")},
		{Recipient: "Bob", Message: "two", Date: day("2024-01-02"), ScheduledDate: &due, ValueTags: []string{"vt-1"}},
	}
	for _, d := range drafts {
		_, err := e.store.Create(ctx, d)
		require.NoError(t, err)
	}

	require.NoError(t, e.store.FetchAll(ctx))
	got := e.store.Memories()
	require.Len(t, got, 2)

	byRecipient := map[string]memory.Memory{}
	for _, m := range got {
		byRecipient[m.Recipient] = m
	}
	for _, d := range drafts {
		m := byRecipient[d.Recipient]
		assert.Equal(t, d.Message, m.Message)
		assert.True(t, d.Date.Equal(m.Date))
		assert.Equal(t, d.ScheduledDate != nil, m.Status == memory.StatusScheduled)
	}
	assert.Equal(t, []string{"vt-1"}, byRecipient["Bob"].ValueTags)
	assert.Equal(t, []string{}, byRecipient["Alice"].ValueTags)
}

func TestCreateInvalidDoesNotCallGateway(t *testing.T) {
	e := setup(t, memory.ModeOwn)

	_, err := e.store.Create(context.Background(), memory.Draft{Message: "no recipient", Date: time.Now()})
	require.ErrorIs(t, err, apperr.ErrInvalid)
	assert.Zero(t, e.gw.Total())
}

func TestCreateFailureLeavesRows(t *testing.T) {
	e := setup(t, memory.ModeOwn)
	e.gw.Fail(testutil.OpInsert, errors.New("offline"))

	_, err := e.store.Create(context.Background(), memory.Draft{Recipient: "A", Message: "m", Date: time.Now()})
	require.ErrorIs(t, err, apperr.ErrRemote)
	assert.Empty(t, e.store.Memories())
}

func TestFetchOrdersNewestFirst(t *testing.T) {
	e := setup(t, memory.ModeOwn)
	first := e.seed(t, e.uid, memory.Draft{Recipient: "A", Message: "1", Date: time.Now()})
	second := e.seed(t, e.uid, memory.Draft{Recipient: "B", Message: "2", Date: time.Now()})
	require.NoError(t, e.gdb.Table("memories").Where("id = ?", first.ID).
		Update("created_at", time.Now().Add(-time.Hour)).Error)

	require.NoError(t, e.store.FetchAll(context.Background()))
	assert.Equal(t, []string{second.ID, first.ID}, ids(e.store.Memories()))
}

func TestFetchFailurePreservesRows(t *testing.T) {
	e := setup(t, memory.ModeOwn)
	ctx := context.Background()
	e.seed(t, e.uid, memory.Draft{Recipient: "A", Message: "1", Date: time.Now()})
	require.NoError(t, e.store.FetchAll(ctx))

	e.gw.Fail(testutil.OpSelect, errors.New("offline"))
	err := e.store.FetchAll(ctx)
	require.ErrorIs(t, err, apperr.ErrRemote)
	assert.Len(t, e.store.Memories(), 1)
	assert.False(t, e.store.Loading())
}

func TestFetchOwnExcludesOthers(t *testing.T) {
	e := setup(t, memory.ModeOwn)
	other := testutil.SeedUser(t, e.gdb, "bo")
	e.seed(t, other, memory.Draft{Recipient: "A", Message: "public", Date: time.Now(), IsPublic: true})
	mine := e.seed(t, e.uid, memory.Draft{Recipient: "B", Message: "mine", Date: time.Now()})

	require.NoError(t, e.store.FetchAll(context.Background()))
	assert.Equal(t, []string{mine.ID}, ids(e.store.Memories()))
}

func TestTimelineShowsPublicOnly(t *testing.T) {
	e := setup(t, memory.ModeTimeline)
	other := testutil.SeedUser(t, e.gdb, "bo")
	pub := e.seed(t, other, memory.Draft{Recipient: "A", Message: "public", Date: time.Now(), IsPublic: true})
	e.seed(t, other, memory.Draft{Recipient: "A", Message: "private", Date: time.Now()})
	e.seed(t, e.uid, memory.Draft{Recipient: "B", Message: "mine, private", Date: time.Now()})

	require.NoError(t, e.store.Refresh(context.Background()))
	assert.Equal(t, []string{pub.ID}, ids(e.store.Memories()))

	// private memories never enter the timeline locally either
	_, err := e.store.Create(context.Background(), memory.Draft{Recipient: "C", Message: "x", Date: time.Now()})
	require.NoError(t, err)
	assert.Len(t, e.store.Memories(), 1)
}

func TestSupersededFetchIsDiscarded(t *testing.T) {
	e := setup(t, memory.ModeOwn)
	ctx := context.Background()
	a := e.seed(t, e.uid, memory.Draft{Recipient: "A", Message: "1", Date: time.Now()})

	entered := make(chan struct{})
	release := make(chan struct{})
	calls := 0
	e.gw.Before = func(op testutil.Op, _ gateway.Collection) {
		if op != testutil.OpSelect {
			return
		}
		calls++
		if calls == 1 {
			close(entered)
			<-release
		}
	}

	slow := make(chan error, 1)
	go func() { slow <- e.store.FetchAll(ctx) }()
	<-entered

	b := e.seed(t, e.uid, memory.Draft{Recipient: "B", Message: "2", Date: time.Now()})
	require.NoError(t, e.store.FetchAll(ctx))
	require.ElementsMatch(t, []string{a.ID, b.ID}, ids(e.store.Memories()))

	// the slow fetch now reads a different server state, which must not land
	require.NoError(t, e.gdb.Exec("DELETE FROM memories WHERE id = ?", b.ID).Error)
	close(release)
	require.NoError(t, <-slow)

	assert.ElementsMatch(t, []string{a.ID, b.ID}, ids(e.store.Memories()))
	assert.False(t, e.store.Loading())
}

func TestUpdateMergesServerRow(t *testing.T) {
	e := setup(t, memory.ModeOwn)
	ctx := context.Background()
	m, err := e.store.Create(ctx, memory.Draft{Recipient: "A", Message: "old", Date: time.Now()})
	require.NoError(t, err)
	_, err = e.store.AddComment(ctx, m.ID, "nice")
	require.NoError(t, err)

	msg, public := "new", true
	got, err := e.store.Update(ctx, m.ID, memory.Patch{Message: &msg, IsPublic: &public})
	require.NoError(t, err)
	assert.Equal(t, "new", got.Message)
	assert.True(t, got.IsPublic)
	assert.Equal(t, "A", got.Recipient)
	assert.Len(t, got.Comments, 1)
	assert.Equal(t, 1, got.CommentsCount)

	local, ok := e.store.Get(m.ID)
	require.True(t, ok)
	assert.Equal(t, got, local)
}

func TestUpdateRejectsEmptyPatch(t *testing.T) {
	e := setup(t, memory.ModeOwn)
	_, err := e.store.Update(context.Background(), "x", memory.Patch{})
	require.ErrorIs(t, err, apperr.ErrInvalid)
	assert.Zero(t, e.gw.Total())
}

func TestUpdateForeignMemoryIsNotFound(t *testing.T) {
	e := setup(t, memory.ModeTimeline)
	other := testutil.SeedUser(t, e.gdb, "bo")
	theirs := e.seed(t, other, memory.Draft{Recipient: "A", Message: "public", Date: time.Now(), IsPublic: true})
	require.NoError(t, e.store.Refresh(context.Background()))

	msg := "hijacked"
	_, err := e.store.Update(context.Background(), theirs.ID, memory.Patch{Message: &msg})
	require.ErrorIs(t, err, apperr.ErrNotFound)

	local, _ := e.store.Get(theirs.ID)
	assert.Equal(t, "public", local.Message)
}

func TestDelete(t *testing.T) {
	e := setup(t, memory.ModeOwn)
	ctx := context.Background()
	m := e.seed(t, e.uid, memory.Draft{Recipient: "A", Message: "1", Date: time.Now()})
	require.NoError(t, e.store.FetchAll(ctx))

	require.NoError(t, e.store.Delete(ctx, m.ID))
	assert.Empty(t, e.store.Memories())

	require.NoError(t, e.store.FetchAll(ctx))
	assert.Empty(t, e.store.Memories())
}

func TestDeleteMissingLocallyWithRemoteFailure(t *testing.T) {
	e := setup(t, memory.ModeOwn)
	ctx := context.Background()
	kept := e.seed(t, e.uid, memory.Draft{Recipient: "A", Message: "1", Date: time.Now()})
	require.NoError(t, e.store.FetchAll(ctx))

	e.gw.Fail(testutil.OpDelete, errors.New("offline"))
	err := e.store.Delete(ctx, "already-gone")
	require.ErrorIs(t, err, apperr.ErrRemote)
	assert.Equal(t, []string{kept.ID}, ids(e.store.Memories()))
}

func TestDisposedStoreRefusesFetch(t *testing.T) {
	e := setup(t, memory.ModeOwn)
	e.store.Dispose()
	assert.ErrorIs(t, e.store.FetchAll(context.Background()), apperr.ErrDisposed)
}

func ids(ms []memory.Memory) []string {
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = m.ID
	}
	return out
}

func TestUpdateClearsScheduledDate(t *testing.T) {
	e := setup(t, memory.ModeOwn)
	ctx := context.Background()
	due := day("2024-06-01")
	m, err := e.store.Create(ctx, memory.Draft{Recipient: "A", Message: "later", Date: day("2024-01-01"), ScheduledDate: &due})
	require.NoError(t, err)
	require.Len(t, e.store.Scheduled(nil), 1)

	got, err := e.store.Update(ctx, m.ID, memory.Patch{ClearScheduledDate: true})
	require.NoError(t, err)
	assert.Nil(t, got.ScheduledDate)
	assert.Equal(t, memory.StatusSent, got.Status)
	assert.Empty(t, e.store.Scheduled(nil))

	got, err = e.store.Update(ctx, m.ID, memory.Patch{ScheduledDate: &due})
	require.NoError(t, err)
	assert.Equal(t, memory.StatusScheduled, got.Status)

	_, err = e.store.Update(ctx, m.ID, memory.Patch{ScheduledDate: &due, ClearScheduledDate: true})
	require.ErrorIs(t, err, apperr.ErrInvalid)
}

func TestUpdateClearsImageURL(t *testing.T) {
	e := setup(t, memory.ModeOwn)
	ctx := context.Background()
	url := "https://img.relay.test/a.png"
	m, err := e.store.Create(ctx, memory.Draft{Recipient: "A", Message: "pic", Date: time.Now(), ImageURL: &url})
	require.NoError(t, err)
	require.NotNil(t, m.ImageURL)

	got, err := e.store.Update(ctx, m.ID, memory.Patch{ClearImageURL: true})
	require.NoError(t, err)
	assert.Nil(t, got.ImageURL)

	require.NoError(t, e.store.FetchAll(ctx))
	fetched, ok := e.store.Get(m.ID)
	require.True(t, ok)
	assert.Nil(t, fetched.ImageURL)
}
