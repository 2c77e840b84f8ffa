package index

import (
	"Gallery_Manager/internal/models"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(key string, refs ...models.MediaRef) models.Document {
	return models.Document{Key: key, Version: 1, Data: models.EntryData{Media: models.NewMedia(refs...)}}
}

func image(path string, w, h float64) models.MediaRef {
	return models.MediaRef{FullPath: path, Type: "image/jpeg", Width: w, Height: h}
}

func TestBuildKeepsDocumentThenMediaOrder(t *testing.T) {
	docs := []models.Document{
		entry("b", image("/travel_media/b1.jpg", 400, 300), image("/travel_media/b2.jpg", 300, 400)),
		entry("a", image("/travel_media/a1.jpg", 100, 100)),
	}

	items := Build(docs)

	require.Len(t, items, 3)
	assert.Equal(t, "b-/travel_media/b1.jpg", items[0].Identity)
	assert.Equal(t, "b-/travel_media/b2.jpg", items[1].Identity)
	assert.Equal(t, "a-/travel_media/a1.jpg", items[2].Identity)
	assert.Equal(t, "b", items[1].EntryKey)
	assert.InDelta(t, 0.75, items[1].Ratio, 1e-9)
}

func TestBuildSkipsDocumentsWithoutMediaList(t *testing.T) {
	missing := models.Document{Key: "missing"}
	malformed := models.Document{Key: "malformed", Data: models.EntryData{Media: models.MediaField{State: models.MediaMalformed}}}
	ok := entry("ok", image("/travel_media/ok.jpg", 10, 10))

	items := Build([]models.Document{missing, malformed, ok})

	require.Len(t, items, 1)
	assert.Equal(t, "ok", items[0].EntryKey)
}

func TestBuildDropsRefsWithoutFullPath(t *testing.T) {
	doc := entry("e", image("", 10, 10), image("/travel_media/x.jpg", 10, 10))

	items := Build([]models.Document{doc})

	require.Len(t, items, 1)
	assert.Equal(t, "/travel_media/x.jpg", items[0].FullPath)
}

func TestBuildOutputNeverExceedsRefCount(t *testing.T) {
	docs := []models.Document{
		entry("a", image("/travel_media/1.jpg", 1, 1), image("", 1, 1)),
		entry("b"),
		{Key: "c"},
	}
	assert.LessOrEqual(t, len(Build(docs)), countRefs(docs))
	assert.Empty(t, Build(nil))
}

func TestBuildPlaceholderColor(t *testing.T) {
	colored := image("/travel_media/c.jpg", 10, 10)
	colored.DominantColors = []models.Color{{R: 12, G: 34, B: 56}, {R: 1, G: 1, B: 1}}
	plain := image("/travel_media/p.jpg", 10, 10)

	items := Build([]models.Document{entry("e", colored, plain)})

	require.Len(t, items, 2)
	assert.Equal(t, "rgb(12, 34, 56)", items[0].PlaceholderColor)
	assert.Equal(t, models.DefaultPlaceholderColor, items[1].PlaceholderColor)
}

func TestRatioDegenerateDimensions(t *testing.T) {
	tests := []struct {
		name string
		w, h float64
		want float64
	}{
		{"landscape", 400, 200, 2},
		{"zero height", 400, 0, 1},
		{"zero width", 0, 300, 1},
		{"negative", -10, 20, 1},
		{"nan", math.NaN(), 10, 1},
		{"inf", math.Inf(1), 10, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Ratio(tt.w, tt.h))
		})
	}
}
