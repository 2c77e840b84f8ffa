package index

import (
	"Gallery_Manager/internal/models"
	"Gallery_Manager/pkg/database/memory"
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const coll = "travel_entries"

type countingStore struct {
	*memory.Store
	lists atomic.Int32
	fail  error
}

func (c *countingStore) ListDocuments(ctx context.Context, collection string) ([]models.Document, error) {
	c.lists.Add(1)
	if c.fail != nil {
		return nil, c.fail
	}
	return c.Store.ListDocuments(ctx, collection)
}

func newTestService(t *testing.T, staleAfter time.Duration) (*Service, *countingStore, *time.Time) {
	t.Helper()
	store := &countingStore{Store: memory.NewStore()}
	store.Seed(coll, entry("a", image("/travel_media/a.jpg", 200, 100)))
	svc := NewService(store, coll, staleAfter)
	clock := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return clock }
	return svc, store, &clock
}

func TestSnapshotIsCachedUntilStale(t *testing.T) {
	ctx := context.Background()
	svc, store, clock := newTestService(t, time.Minute)

	first, err := svc.Snapshot(ctx)
	require.NoError(t, err)
	second, err := svc.Snapshot(ctx)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.EqualValues(t, 1, store.lists.Load())

	*clock = clock.Add(2 * time.Minute)
	third, err := svc.Snapshot(ctx)
	require.NoError(t, err)
	assert.NotSame(t, first, third)
	assert.EqualValues(t, 2, store.lists.Load())
}

func TestInvalidateForcesRefresh(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newTestService(t, 0)

	_, err := svc.Items(ctx)
	require.NoError(t, err)
	store.Seed(coll, entry("b", image("/travel_media/b.jpg", 100, 100)))

	items, err := svc.Items(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 1, "zero staleAfter never expires on its own")

	svc.Invalidate()
	items, err = svc.Items(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.EqualValues(t, 2, store.lists.Load())
}

func TestRefreshErrorKeepsPreviousSnapshot(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newTestService(t, time.Minute)

	prev, err := svc.Refresh(ctx)
	require.NoError(t, err)

	store.fail = errors.New("boom")
	_, err = svc.Refresh(ctx)
	require.Error(t, err)

	cur, err := svc.Snapshot(ctx)
	require.NoError(t, err)
	assert.Same(t, prev, cur)
}

func TestSnapshotLookup(t *testing.T) {
	svc, _, _ := newTestService(t, time.Minute)
	snap, err := svc.Refresh(context.Background())
	require.NoError(t, err)

	it, ok := snap.Lookup("a-/travel_media/a.jpg")
	require.True(t, ok)
	assert.Equal(t, 2.0, it.Ratio)

	_, ok = snap.Lookup("a-/travel_media/missing.jpg")
	assert.False(t, ok)

	var nilSnap *Snapshot
	_, ok = nilSnap.Lookup("anything")
	assert.False(t, ok)
}
