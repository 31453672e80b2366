package feed

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/dmitrijs2005/notekeeper/internal/client/client"
	"github.com/dmitrijs2005/notekeeper/internal/client/models"
	"github.com/dmitrijs2005/notekeeper/internal/client/repositories/notes"
	"github.com/dmitrijs2005/notekeeper/internal/client/services"
	"github.com/dmitrijs2005/notekeeper/internal/logging"
	mock_client "github.com/dmitrijs2005/notekeeper/internal/mocks/client"
)

type owner string

func (o owner) Username() string { return string(o) }

type fakeSync struct {
	calls int
	err   error
}

func (f *fakeSync) PushCreations(context.Context) (services.PassResult, error) {
	return services.PassResult{}, nil
}
func (f *fakeSync) PushDeletes(context.Context) (services.PassResult, error) {
	return services.PassResult{}, nil
}
func (f *fakeSync) PushUpdates(context.Context) (services.PassResult, error) {
	return services.PassResult{}, nil
}
func (f *fakeSync) SyncAll(context.Context) (*services.SyncReport, error) {
	f.calls++
	return &services.SyncReport{}, f.err
}

type fixture struct {
	api  *mock_client.MockNoteAPI
	db   *sql.DB
	sync *fakeSync
	feed *Controller
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	db, err := client.InitDatabase(context.Background(), filepath.Join(t.TempDir(), "feed.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	f := &fixture{api: mock_client.NewMockNoteAPI(ctrl), db: db, sync: &fakeSync{}}
	svc := services.NewNoteService(f.api, db, owner("bob"), logging.NewNop())
	f.feed = NewController(f.api, svc, f.sync)
	return f
}

func (f *fixture) seedLocal(t *testing.T, n int) {
	t.Helper()
	repo := notes.NewSQLiteRepository(f.db)
	for i := 0; i < n; i++ {
		ts := fmt.Sprintf("2024-01-01T00:00:%02d.000Z", i)
		_, err := repo.Insert(context.Background(), &models.LocalNote{
			Title:           fmt.Sprintf("local %d", i),
			Description:     "x",
			CreatedAt:       &ts,
			UpdatedAt:       &ts,
			CreatorUsername: "bob",
		})
		require.NoError(t, err)
	}
}

func remotePage(from, n int, next *string) *models.NotesPage {
	p := &models.NotesPage{Count: 100, Next: next}
	for i := 0; i < n; i++ {
		id := int64(from + i)
		p.Results = append(p.Results, models.Note{
			ID:              id,
			Title:           fmt.Sprintf("remote %d", id),
			Description:     "y",
			CreatedAt:       "2024-01-01T00:00:00.000Z",
			CreatorUsername: "bob",
		})
	}
	return p
}

func strptr(s string) *string { return &s }

func TestLoad_RemoteFirstPage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.api.EXPECT().ListNotes(gomock.Any(), 1, DefaultPageSize).Return(remotePage(1, 6, strptr("http://srv/api/notes/?page=2")), nil)

	require.NoError(t, f.feed.Load(ctx))
	st := f.feed.Snapshot()
	assert.Len(t, st.Items, 6)
	assert.Equal(t, SourceRemote, st.Source)
	assert.False(t, st.HasError)
	assert.True(t, st.HasMore())
	assert.Equal(t, models.Remote(1), st.Items[0].Ref)

	// Fetched notes are kept for offline use.
	stored, err := notes.NewSQLiteRepository(f.db).CountByOwner(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, 6, stored)
}

func TestOnScroll_AppendsByCursor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	next := strptr("http://srv/api/notes/?page=2&page_size=6")

	f.api.EXPECT().ListNotes(gomock.Any(), 1, 6).Return(remotePage(1, 6, next), nil)
	f.api.EXPECT().ListNotesByURL(gomock.Any(), *next).Return(remotePage(7, 2, nil), nil)

	require.NoError(t, f.feed.Load(ctx))

	// Not near the end yet.
	require.NoError(t, f.feed.OnScroll(ctx, 2))

	require.NoError(t, f.feed.OnScroll(ctx, 5))
	st := f.feed.Snapshot()
	assert.Len(t, st.Items, 8)
	assert.Equal(t, 1, st.PageIndex)
	assert.False(t, st.HasMore())

	// Last server page reached.
	require.NoError(t, f.feed.OnScroll(ctx, 7))
	assert.Len(t, f.feed.Snapshot().Items, 8)
}

func TestOnScroll_ShortFirstPageDoesNotFollowCursor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.api.EXPECT().ListNotes(gomock.Any(), 1, 6).Return(remotePage(1, 3, strptr("http://srv/next")), nil)
	require.NoError(t, f.feed.Load(ctx))

	require.NoError(t, f.feed.OnScroll(ctx, 2))
	assert.Len(t, f.feed.Snapshot().Items, 3)
}

func TestOffline_PagesThroughLocalStore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedLocal(t, 8)

	f.api.EXPECT().ListNotes(gomock.Any(), 1, 6).Return(nil, client.ErrUnavailable).Times(2)

	require.NoError(t, f.feed.Load(ctx))
	st := f.feed.Snapshot()
	require.Len(t, st.Items, 6)
	assert.Equal(t, SourceLocal, st.Source)
	assert.False(t, st.HasError)

	want, err := notes.NewSQLiteRepository(f.db).GetActivePage(ctx, "bob", 6, 0)
	require.NoError(t, err)
	for i, rec := range want {
		assert.Equal(t, rec.Item(), st.Items[i])
	}

	require.NoError(t, f.feed.OnScroll(ctx, 5))
	st = f.feed.Snapshot()
	assert.Len(t, st.Items, 8)
	assert.Equal(t, 1, st.PageIndex)
	assert.True(t, st.EndReached)

	// Nothing left locally: no further request.
	require.NoError(t, f.feed.OnScroll(ctx, 7))
}

func TestOffline_EmptyStoreIsErrorState(t *testing.T) {
	f := newFixture(t)

	f.api.EXPECT().ListNotes(gomock.Any(), 1, 6).Return(nil, client.ErrUnavailable)

	err := f.feed.Load(context.Background())
	require.ErrorIs(t, err, ErrNothingToShow)
	st := f.feed.Snapshot()
	assert.True(t, st.HasError)
	assert.Empty(t, st.Items)
}

func TestRejection_DoesNotFallBack(t *testing.T) {
	f := newFixture(t)
	f.seedLocal(t, 3)
	rejection := &client.APIError{Status: 500, Message: client.DefaultErrorMessage}

	f.api.EXPECT().ListNotes(gomock.Any(), 1, 6).Return(nil, rejection)

	err := f.feed.Load(context.Background())
	require.ErrorIs(t, err, rejection)
	st := f.feed.Snapshot()
	assert.True(t, st.HasError)
	assert.Empty(t, st.Items)
}

func TestSearch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	gomock.InOrder(
		f.api.EXPECT().ListNotes(gomock.Any(), 1, 6).Return(remotePage(1, 6, strptr("http://srv/next")), nil),
		f.api.EXPECT().FilterNotes(gomock.Any(), 1, 6, "milk").Return(remotePage(50, 1, nil), nil),
		f.api.EXPECT().ListNotes(gomock.Any(), 1, 6).Return(remotePage(1, 6, nil), nil),
	)

	require.NoError(t, f.feed.Load(ctx))

	require.NoError(t, f.feed.SubmitQuery(ctx, "milk"))
	st := f.feed.Snapshot()
	assert.Equal(t, "milk", st.Filter)
	require.Len(t, st.Items, 1)
	assert.Equal(t, models.Remote(50), st.Items[0].Ref)
	assert.Nil(t, st.Next)

	// Typing without submitting does nothing.
	require.NoError(t, f.feed.QueryChanged(ctx, "mil"))
	assert.Len(t, f.feed.Snapshot().Items, 1)

	require.NoError(t, f.feed.QueryChanged(ctx, ""))
	st = f.feed.Snapshot()
	assert.Empty(t, st.Filter)
	assert.Len(t, st.Items, 6)
}

func TestSearch_OfflineUsesLocalFilter(t *testing.T) {
	f := newFixture(t)
	f.seedLocal(t, 4)

	f.api.EXPECT().FilterNotes(gomock.Any(), 1, 6, "local 2").Return(nil, client.ErrUnavailable)

	require.NoError(t, f.feed.SubmitQuery(context.Background(), "local 2"))
	st := f.feed.Snapshot()
	require.Len(t, st.Items, 1)
	assert.Equal(t, "local 2", st.Items[0].Title)
}

func TestFetch_AtMostOneInFlight(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	started := make(chan struct{})
	release := make(chan struct{})
	f.api.EXPECT().ListNotes(gomock.Any(), 1, 6).
		DoAndReturn(func(context.Context, int, int) (*models.NotesPage, error) {
			close(started)
			<-release
			return remotePage(1, 2, nil), nil
		})

	done := make(chan error, 1)
	go func() { done <- f.feed.Load(ctx) }()

	<-started
	assert.True(t, f.feed.Snapshot().Loading)
	require.ErrorIs(t, f.feed.Load(ctx), ErrFetchInProgress)

	close(release)
	require.NoError(t, <-done)
	st := f.feed.Snapshot()
	assert.False(t, st.Loading)
	assert.Len(t, st.Items, 2)
}

func TestClose_DiscardsLateResults(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	started := make(chan struct{})
	release := make(chan struct{})
	f.api.EXPECT().ListNotes(gomock.Any(), 1, 6).
		DoAndReturn(func(context.Context, int, int) (*models.NotesPage, error) {
			close(started)
			<-release
			return remotePage(1, 2, nil), nil
		})

	done := make(chan error, 1)
	go func() { done <- f.feed.Load(ctx) }()

	<-started
	f.feed.Close()
	close(release)
	require.NoError(t, <-done)

	assert.Empty(t, f.feed.Snapshot().Items)
	require.ErrorIs(t, f.feed.Load(ctx), ErrClosed)
}

func TestRefresh(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	gomock.InOrder(
		f.api.EXPECT().ListNotes(gomock.Any(), 1, 6).Return(nil, client.ErrUnavailable),
		f.api.EXPECT().ListNotes(gomock.Any(), 1, 6).Return(remotePage(1, 2, nil), nil),
	)

	require.ErrorIs(t, f.feed.Load(ctx), ErrNothingToShow)

	_, err := f.feed.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, f.sync.calls)
	st := f.feed.Snapshot()
	assert.False(t, st.HasError)
	assert.Len(t, st.Items, 2)

	// Healthy feed: sync only.
	_, err = f.feed.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, f.sync.calls)
}

func TestWithPageSize(t *testing.T) {
	c := NewController(nil, nil, nil, WithPageSize(10), WithLogger(logging.NewNop()))
	assert.Equal(t, 10, c.PageSize())

	c = NewController(nil, nil, nil, WithPageSize(0))
	assert.Equal(t, DefaultPageSize, c.PageSize())
}
