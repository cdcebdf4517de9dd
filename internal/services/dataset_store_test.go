package services

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"survdash/internal/dataprocessing"
	"survdash/internal/shared/testutil"
	"survdash/pkg/contracts/domain"
	"survdash/pkg/contracts/events"
)

func newTestStore(t *testing.T, cfg StoreConfig) *DatasetStore {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	store := NewDatasetStore(cfg, logger, nil)
	t.Cleanup(store.Stop)
	return store
}

func TestDatasetStore_PutGetList(t *testing.T) {
	clock := newFakeClock()
	store := newTestStore(t, StoreConfig{TTL: time.Hour, MaxDatasets: 5, Now: clock.Now})
	ctx := context.Background()
	ds := lineListDataset(t)

	first, err := store.Put(ctx, "week1.xlsx", ds)
	require.NoError(t, err)
	clock.Advance(time.Minute)
	second, err := store.Put(ctx, "week2.xlsx", ds)
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, "week1.xlsx", first.Filename)
	assert.Equal(t, 7, first.RawRows)
	assert.Equal(t, 5, first.CleanedRows)
	assert.Equal(t, 2, first.HeaderRow)
	assert.Equal(t, 1, first.UnparsedAges)
	assert.Equal(t, 1, first.UnparsedDates)
	assert.Equal(t, first.UploadedAt.Add(time.Hour), first.ExpiresAt)
	assert.Empty(t, first.MissingColumns)

	snap, err := store.Get(first.ID)
	require.NoError(t, err)
	assert.Equal(t, first, snap.Info())
	assert.Same(t, ds, snap.Dataset())

	list := store.List()
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID, "newest first")
	assert.Equal(t, first.ID, list[1].ID)
	assert.Equal(t, 2, store.Len())
}

func TestDatasetStore_GetUnknown(t *testing.T) {
	store := newTestStore(t, StoreConfig{})

	_, err := store.Get("missing")
	assert.ErrorIs(t, err, ErrDatasetNotFound)

	_, err = store.Delete(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrDatasetNotFound)
}

func TestDatasetStore_Delete(t *testing.T) {
	store := newTestStore(t, StoreConfig{})
	ctx := context.Background()

	var evicted int
	store.OnEvict(func(context.Context, []domain.DatasetInfo, string) { evicted++ })

	info, err := store.Put(ctx, "cases.xlsx", lineListDataset(t))
	require.NoError(t, err)

	deleted, err := store.Delete(ctx, info.ID)
	require.NoError(t, err)
	assert.Equal(t, info.ID, deleted.ID)

	_, err = store.Get(info.ID)
	assert.ErrorIs(t, err, ErrDatasetNotFound)
	assert.Zero(t, store.Len())
	assert.Zero(t, evicted, "explicit deletes are not evictions")
}

func TestDatasetStore_CapacityEviction(t *testing.T) {
	clock := newFakeClock()
	store := newTestStore(t, StoreConfig{MaxDatasets: 2, Now: clock.Now})
	ctx := context.Background()
	ds := lineListDataset(t)

	var gotReason string
	var gotEvicted []domain.DatasetInfo
	store.OnEvict(func(_ context.Context, evicted []domain.DatasetInfo, reason string) {
		gotEvicted = append(gotEvicted, evicted...)
		gotReason = reason
	})

	oldest, err := store.Put(ctx, "a.xlsx", ds)
	require.NoError(t, err)
	_, err = store.Put(ctx, "b.xlsx", ds)
	require.NoError(t, err)
	assert.Empty(t, gotEvicted)

	_, err = store.Put(ctx, "c.xlsx", ds)
	require.NoError(t, err)

	assert.Equal(t, 2, store.Len())
	require.Len(t, gotEvicted, 1)
	assert.Equal(t, oldest.ID, gotEvicted[0].ID)
	assert.Equal(t, events.ReasonCapacity, gotReason)

	_, err = store.Get(oldest.ID)
	assert.ErrorIs(t, err, ErrDatasetNotFound)
}

func TestDatasetStore_TTL(t *testing.T) {
	clock := newFakeClock()
	store := newTestStore(t, StoreConfig{TTL: 10 * time.Minute, Now: clock.Now})
	ctx := context.Background()

	var reasons []string
	store.OnEvict(func(_ context.Context, evicted []domain.DatasetInfo, reason string) {
		for range evicted {
			reasons = append(reasons, reason)
		}
	})

	old, err := store.Put(ctx, "old.xlsx", lineListDataset(t))
	require.NoError(t, err)
	clock.Advance(6 * time.Minute)
	fresh, err := store.Put(ctx, "fresh.xlsx", lineListDataset(t))
	require.NoError(t, err)

	clock.Advance(5 * time.Minute)

	_, err = store.Get(old.ID)
	assert.ErrorIs(t, err, ErrDatasetNotFound, "expired snapshots are hidden before the sweep")
	assert.Equal(t, 2, store.Len())

	list := store.List()
	require.Len(t, list, 1)
	assert.Equal(t, fresh.ID, list[0].ID)

	assert.Equal(t, 1, store.Sweep(ctx))
	assert.Equal(t, 1, store.Len())
	assert.Equal(t, []string{events.ReasonTTL}, reasons)

	assert.Zero(t, store.Sweep(ctx), "second sweep finds nothing")
}

func TestDatasetStore_NoTTL(t *testing.T) {
	clock := newFakeClock()
	store := newTestStore(t, StoreConfig{Now: clock.Now})

	info, err := store.Put(context.Background(), "cases.xlsx", lineListDataset(t))
	require.NoError(t, err)
	assert.True(t, info.ExpiresAt.IsZero())

	clock.Advance(1000 * time.Hour)
	_, err = store.Get(info.ID)
	assert.NoError(t, err)
	assert.Zero(t, store.Sweep(context.Background()))
}

func TestDatasetStore_DashboardBuiltOnce(t *testing.T) {
	store := newTestStore(t, StoreConfig{})
	ctx := context.Background()

	info, err := store.Put(ctx, "cases.xlsx", lineListDataset(t))
	require.NoError(t, err)

	var builds atomic.Int32
	build := func(ctx context.Context, ds *dataprocessing.Dataset) *domain.Dashboard {
		builds.Add(1)
		time.Sleep(20 * time.Millisecond)
		return dataprocessing.NewSummarizer(nil, dataprocessing.DefaultSummarizerConfig()).Dashboard(ctx, ds)
	}

	const callers = 8
	results := make([]*domain.Dashboard, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			d, err := store.Dashboard(ctx, info.ID, build)
			assert.NoError(t, err)
			results[i] = d
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), builds.Load())
	for _, d := range results {
		assert.Same(t, results[0], d)
	}
	assert.Equal(t, info.ID, results[0].DatasetID)
	assert.Equal(t, 5, results[0].Overview.TotalCases)

	_, err = store.Dashboard(ctx, "missing", build)
	assert.ErrorIs(t, err, ErrDatasetNotFound)
}

func TestDatasetStore_StartStop(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	logger, _ := testutil.NewTestLogger(t)
	store := NewDatasetStore(StoreConfig{
		TTL:           time.Minute,
		SweepSchedule: "@every 1s",
	}, logger, nil)

	require.NoError(t, store.Start())
	require.NoError(t, store.Start(), "second start is a no-op")
	store.Stop()
	store.Stop()

	_, err := store.Put(context.Background(), "late.xlsx", lineListDataset(t))
	assert.ErrorIs(t, err, ErrStoreClosed)
	assert.ErrorIs(t, store.Start(), ErrStoreClosed)
}

func TestDatasetStore_StartSkipped(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	store := newTestStore(t, StoreConfig{SweepSchedule: "@every 1s"})
	assert.NoError(t, store.Start(), "no TTL means nothing to sweep")

	store = newTestStore(t, StoreConfig{TTL: time.Minute})
	assert.NoError(t, store.Start(), "no schedule")
}

func TestDatasetStore_StartInvalidSchedule(t *testing.T) {
	store := newTestStore(t, StoreConfig{TTL: time.Minute, SweepSchedule: "every tuesday"})

	err := store.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid sweep schedule")
}
