package maintenance

import (
	"Gallery_Manager/internal/testutil"
	"Gallery_Manager/pkg/database/memory"
	"Gallery_Manager/pkg/storage"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMaintenance(t *testing.T) (Maintenance, *storage.MemoryStore, string) {
	t.Helper()
	docs := memory.NewStore()
	docs.Seed("travel_entries", testutil.Doc("a", "/travel_media/a1.jpg", "travel_media/a2.jpg"))
	assets := storage.NewMemoryStore()
	assets.Put("travel_media", "/travel_media/a1.jpg", "/travel_media/a2.jpg", "/travel_media/orphan1.jpg", "/travel_media/orphan2.jpg")

	dir := t.TempDir()
	m, err := NewMaintenance(dir, 2, docs, assets, "travel_entries", "travel_media")
	require.NoError(t, err)
	t.Cleanup(m.Close)
	return m, assets, dir
}

func TestSweepOrphanAssetsDryRun(t *testing.T) {
	m, assets, dir := newTestMaintenance(t)

	report, err := m.SweepOrphanAssets(context.Background(), true)
	require.NoError(t, err)

	assert.True(t, report.DryRun)
	assert.Equal(t, 4, report.Scanned)
	assert.Equal(t, 2, report.Referenced)
	assert.ElementsMatch(t, []string{"/travel_media/orphan1.jpg", "/travel_media/orphan2.jpg"}, report.Orphans)
	assert.Zero(t, report.Deleted)
	assert.True(t, assets.Has("travel_media", "/travel_media/orphan1.jpg"))

	_, err = os.Stat(filepath.Join(dir, "maintenance.log"))
	assert.NoError(t, err)
}

func TestSweepOrphanAssetsDeletes(t *testing.T) {
	m, assets, _ := newTestMaintenance(t)

	report, err := m.SweepOrphanAssets(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Deleted)
	assert.Zero(t, report.Failed)
	assert.False(t, assets.Has("travel_media", "/travel_media/orphan1.jpg"))
	assert.False(t, assets.Has("travel_media", "/travel_media/orphan2.jpg"))
	assert.True(t, assets.Has("travel_media", "/travel_media/a1.jpg"))
	assert.True(t, assets.Has("travel_media", "/travel_media/a2.jpg"))
}
