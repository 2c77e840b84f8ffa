package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePath(t *testing.T) {
	assert.Equal(t, "/travel_media/a.jpg", NormalizePath("travel_media", "/travel_media/a.jpg"))
	assert.Equal(t, "/travel_media/a.jpg", NormalizePath("travel_media", "travel_media/a.jpg"))
	assert.Equal(t, "/travel_media/a.jpg", NormalizePath("travel_media", "a.jpg"))
	assert.Equal(t, "/a.jpg", NormalizePath("", "/a.jpg"))
}

func TestPathErrorsSplitsJoinedErrors(t *testing.T) {
	denied := errors.New("denied")
	err := errors.Join(
		&PathError{FullPath: "/x/1.jpg", Err: ErrAssetNotFound},
		&PathError{FullPath: "/x/2.jpg", Err: denied},
	)

	pes := PathErrors(err)

	require.Len(t, pes, 2)
	assert.Equal(t, "/x/1.jpg", pes[0].FullPath)
	assert.ErrorIs(t, pes[0], ErrAssetNotFound)
	assert.ErrorIs(t, pes[1].Err, denied)
	assert.Nil(t, PathErrors(nil))

	plain := PathErrors(denied)
	require.Len(t, plain, 1)
	assert.Empty(t, plain[0].FullPath)
}

func TestMemoryStoreDeleteAssets(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	m.Put("travel_media", "/travel_media/a.jpg", "/travel_media/b.jpg")

	err := m.DeleteAssets(ctx, "travel_media", []string{"/travel_media/a.jpg", "/travel_media/missing.jpg"})

	pes := PathErrors(err)
	require.Len(t, pes, 1)
	assert.Equal(t, "/travel_media/missing.jpg", pes[0].FullPath)
	assert.ErrorIs(t, pes[0].Err, ErrAssetNotFound)
	assert.False(t, m.Has("travel_media", "/travel_media/a.jpg"))
	assert.True(t, m.Has("travel_media", "/travel_media/b.jpg"))
}

func TestMemoryStoreListAssetsByCollection(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	m.Put("travel_media", "/travel_media/b.jpg", "/travel_media/a.jpg")
	m.Put("avatars", "/avatars/me.png")

	paths, err := m.ListAssets(ctx, "travel_media")
	require.NoError(t, err)
	assert.Equal(t, []string{"/travel_media/a.jpg", "/travel_media/b.jpg"}, paths)
}
