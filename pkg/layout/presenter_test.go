package layout

import (
	"Gallery_Manager/internal/testutil"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSurface struct {
	mu       sync.Mutex
	applied  []Grid
	releases int
}

func (f *fakeSurface) Apply(g Grid) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.applied = append(f.applied, g)
}

func (f *fakeSurface) Release() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.releases++
	return nil
}

func (f *fakeSurface) grids() []Grid {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Grid(nil), f.applied...)
}

func newTestPresenter(t *testing.T, debounce time.Duration) (*Presenter, *fakeSurface, *int) {
	t.Helper()
	surface := &fakeSurface{}
	acquired := 0
	p, err := NewPresenter(newTestEngine(), func() (Surface, error) {
		acquired++
		return surface, nil
	}, testutil.ItemsWithRatios(1, 1, 1), 900, debounce)
	require.NoError(t, err)
	return p, surface, &acquired
}

func TestPresenterRendersOnCreate(t *testing.T) {
	p, surface, acquired := newTestPresenter(t, time.Hour)
	defer p.Close()

	assert.Equal(t, 1, *acquired)
	grids := surface.grids()
	require.Len(t, grids, 1)
	assert.Equal(t, 3, grids[0].Columns)
	assert.Equal(t, grids[0], p.Last())
}

func TestPresenterSetItemsReusesSurface(t *testing.T) {
	p, surface, acquired := newTestPresenter(t, time.Hour)
	defer p.Close()

	require.NoError(t, p.SetItems(testutil.ItemsWithRatios(1)))

	assert.Equal(t, 1, *acquired)
	assert.Len(t, surface.grids(), 2)
	assert.Len(t, p.Last().Placements, 1)
}

func TestPresenterResizeIsDebouncedAndSuperseded(t *testing.T) {
	p, surface, _ := newTestPresenter(t, 20*time.Millisecond)
	defer p.Close()

	require.NoError(t, p.Resize(300))
	require.NoError(t, p.Resize(600))

	assert.Eventually(t, func() bool { return p.Last().Columns == 2 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)

	grids := surface.grids()
	require.Len(t, grids, 2, "only the latest resize is applied")
	assert.Equal(t, 2, grids[1].Columns)
}

func TestPresenterFlushAppliesPendingResize(t *testing.T) {
	p, surface, _ := newTestPresenter(t, time.Hour)
	defer p.Close()

	require.NoError(t, p.Resize(300))
	assert.Len(t, surface.grids(), 1)

	require.NoError(t, p.Flush())
	assert.Equal(t, 1, p.Last().Columns)
	assert.Len(t, surface.grids(), 2)
}

func TestPresenterCloseReleasesOnce(t *testing.T) {
	p, surface, _ := newTestPresenter(t, 10*time.Millisecond)
	require.NoError(t, p.Resize(300))

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	time.Sleep(30 * time.Millisecond)

	assert.Equal(t, 1, surface.releases)
	assert.Len(t, surface.grids(), 1, "pending resize is dropped on close")
	assert.ErrorIs(t, p.Resize(600), ErrClosed)
	assert.ErrorIs(t, p.SetItems(nil), ErrClosed)
	assert.ErrorIs(t, p.Flush(), ErrClosed)
}

func TestPresenterAcquireError(t *testing.T) {
	boom := errors.New("no surface")
	_, err := NewPresenter(newTestEngine(), func() (Surface, error) { return nil, boom }, nil, 900, time.Millisecond)
	assert.ErrorIs(t, err, boom)
}
