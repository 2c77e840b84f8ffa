package index

import (
	"Gallery_Manager/internal/models"
	"log/slog"
	"math"
)

// Build 把文档快照展开为有序的媒体列表：先按文档顺序，再按文档内的媒体顺序。
// 纯函数，不访问网络。media 字段缺失或不是数组的文档会被跳过。
func Build(docs []models.Document) []models.MediaItem {
	items := make([]models.MediaItem, 0, countRefs(docs))
	for _, doc := range docs {
		if !doc.Data.Media.IsList() {
			slog.Warn("跳过 media 字段无效的文档", "entry", doc.Key, "state", doc.Data.Media.State)
			continue
		}
		if doc.Data.Media.Dropped > 0 {
			slog.Warn("文档中有无法解码的媒体记录", "entry", doc.Key, "dropped", doc.Data.Media.Dropped)
		}
		for _, ref := range doc.Data.Media.Refs {
			item, ok := newItem(doc, ref)
			if !ok {
				slog.Warn("丢弃缺少 fullPath 的媒体记录", "entry", doc.Key)
				continue
			}
			items = append(items, item)
		}
	}
	return items
}

func newItem(doc models.Document, ref models.MediaRef) (models.MediaItem, bool) {
	if ref.FullPath == "" {
		return models.MediaItem{}, false
	}
	return models.MediaItem{
		MediaRef:         ref,
		EntryKey:         doc.Key,
		EntryTitle:       doc.Data.Title,
		Location:         doc.Data.Location,
		Identity:         models.IdentityOf(doc.Key, ref.FullPath),
		Ratio:            Ratio(ref.Width, ref.Height),
		PlaceholderColor: placeholderColor(ref),
	}, true
}

// Ratio 返回宽高比。高度为 0 或数值异常时返回 1，调用方应当把它当作可渲染的退化值。
func Ratio(width, height float64) float64 {
	if height <= 0 || width <= 0 {
		return 1
	}
	r := width / height
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 1
	}
	return r
}

func placeholderColor(ref models.MediaRef) string {
	if len(ref.DominantColors) > 0 {
		return ref.DominantColors[0].CSS()
	}
	return models.DefaultPlaceholderColor
}

func countRefs(docs []models.Document) int {
	n := 0
	for _, d := range docs {
		if d.Data.Media.IsList() {
			n += len(d.Data.Media.Refs)
		}
	}
	return n
}
