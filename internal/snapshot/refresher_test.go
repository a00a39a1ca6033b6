package snapshot

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/visitor-insights/internal/company"
	"github.com/ignite/visitor-insights/internal/datanorm"
	"github.com/ignite/visitor-insights/internal/engagement"
	"github.com/ignite/visitor-insights/internal/pkg/distlock"
	"github.com/ignite/visitor-insights/internal/source"
	"github.com/ignite/visitor-insights/internal/storage"
)

var fixedNow = time.Date(2024, 1, 16, 9, 30, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return mr, rdb
}

type failingSource struct{}

func (failingSource) Name() string { return "broken" }
func (failingSource) Fetch(context.Context) ([]datanorm.Row, error) {
	return nil, errors.New("connection refused")
}

func TestRefresher_Refresh(t *testing.T) {
	ctx := context.Background()
	_, rdb := newRedis(t)
	store := NewRedisStore(rdb, "")
	resolver := company.NewDirectoryResolver(company.NewStaticDirectory(company.DefaultCompanies))

	rf := NewRefresher(source.Demo(), nil, store, WithResolver(resolver), WithClock(clock))
	b, ran, err := rf.Refresh(ctx)
	require.NoError(t, err)
	require.True(t, ran)
	require.Len(t, b.Records, 7)
	assert.Equal(t, "demo", b.Source)
	assert.Empty(t, b.Issues)
	assert.Equal(t, fixedNow, b.RefreshedAt)

	assert.Equal(t, "Fastly CDN", b.Records[5].Company())
	assert.Equal(t, company.Unknown, b.Records[6].Company())
	assert.Equal(t, engagement.High, b.Records[0].EngagementTier())
	assert.Equal(t, engagement.Low, b.Records[5].EngagementTier())

	saved, err := store.Latest(ctx)
	require.NoError(t, err)
	require.Len(t, saved.Records, 7)
	assert.Equal(t, b.Records[3].EngagementTier(), saved.Records[3].EngagementTier())
	assert.Equal(t, "Deutsche Bank AG", saved.Records[3].Company())
}

func TestRefresher_Summary(t *testing.T) {
	rf := NewRefresher(source.Demo(), nil, NewMemoryStore(), WithClock(clock))

	// no snapshot yet, so Summary refreshes first
	s, err := rf.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, s.TotalVisitors)
	assert.Equal(t, 4, s.TierCount(engagement.High))
	assert.Equal(t, 1, s.TierCount(engagement.Medium))
	assert.Equal(t, 2, s.TierCount(engagement.Low))
	assert.Equal(t, fixedNow, s.GeneratedAt)
	require.NotEmpty(t, s.RecentVisits)
	assert.Equal(t, "/integrations", s.RecentVisits[0].Page)
}

func TestRefresher_Sessionize(t *testing.T) {
	rows := []datanorm.Row{
		datanorm.StoreShapedRow(0, datanorm.StoreRow{VisitorIP: "10.0.0.1", DateTimeUTC: "2024-01-15T10:00:00Z", PageURL: strPtr("/pricing")}),
		datanorm.StoreShapedRow(1, datanorm.StoreRow{VisitorIP: "10.0.0.1", DateTimeUTC: "2024-01-15T10:02:00Z", PageURL: strPtr("/demo")}),
		datanorm.StoreShapedRow(2, datanorm.StoreRow{VisitorIP: "10.0.0.2", DateTimeUTC: "2024-01-15T11:00:00Z", PageURL: strPtr("/about")}),
	}
	rf := NewRefresher(source.NewStatic("rows", rows), nil, NewMemoryStore(), WithSessionize(true), WithClock(clock))

	b, _, err := rf.Refresh(context.Background())
	require.NoError(t, err)
	require.Len(t, b.Records, 3)
	assert.Equal(t, 2, b.Records[0].PageViewCount())
	assert.Equal(t, 2, b.Records[1].PageViewCount())
	assert.Equal(t, 1, b.Records[2].PageViewCount())
}

func TestRefresher_LockHeldElsewhere(t *testing.T) {
	ctx := context.Background()
	_, rdb := newRedis(t)

	other := distlock.NewRedisLock(rdb, "snapshot-refresh", time.Minute)
	ok, err := other.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	store := NewRedisStore(rdb, "")
	rf := NewRefresher(source.Demo(), nil, store,
		WithLock(distlock.NewRedisLock(rdb, "snapshot-refresh", time.Minute)), WithClock(clock))

	b, ran, err := rf.Refresh(ctx)
	require.NoError(t, err)
	assert.False(t, ran)
	assert.Nil(t, b)

	_, err = store.Latest(ctx)
	assert.ErrorIs(t, err, ErrNoSnapshot)

	require.NoError(t, other.Release(ctx))
	b, ran, err = rf.Refresh(ctx)
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Len(t, b.Records, 7)
}

func TestRefresher_Archive(t *testing.T) {
	ctx := context.Background()
	archive, err := storage.NewLocal(t.TempDir())
	require.NoError(t, err)

	rf := NewRefresher(source.Demo(), nil, NewMemoryStore(), WithArchive(archive), WithClock(clock))
	_, _, err = rf.Refresh(ctx)
	require.NoError(t, err)

	assert.Equal(t, "snapshots/2024/01/16/093000.json", ArchiveKey(fixedNow))
	var archived Batch
	require.NoError(t, storage.LoadJSON(ctx, archive, ArchiveKey(fixedNow), &archived))
	assert.Equal(t, "demo", archived.Source)
	assert.Len(t, archived.Records, 7)
}

func TestRefresher_FetchError(t *testing.T) {
	store := NewMemoryStore()
	rf := NewRefresher(failingSource{}, nil, store)

	_, ran, err := rf.Refresh(context.Background())
	assert.ErrorContains(t, err, "connection refused")
	assert.False(t, ran)

	_, err = rf.Summary(context.Background())
	assert.Error(t, err)
}

func TestRefresher_StartStops(t *testing.T) {
	store := NewMemoryStore()
	rf := NewRefresher(source.Demo(), nil, store, WithInterval(10*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		rf.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		_, err := store.Latest(context.Background())
		return err == nil
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("refresher did not stop")
	}
}

func TestRedisStore_Corrupt(t *testing.T) {
	mr, rdb := newRedis(t)
	require.NoError(t, mr.Set("snapshot:latest", "{not json"))

	_, err := NewRedisStore(rdb, "").Latest(context.Background())
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoSnapshot)
}

func strPtr(s string) *string { return &s }
