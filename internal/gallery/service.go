// Package gallery 是外部画廊视图使用的入口：读取媒体索引、发起删除、计算布局。
package gallery

import (
	"Gallery_Manager/internal/models"
	"Gallery_Manager/pkg/deletion"
	"Gallery_Manager/pkg/index"
	"Gallery_Manager/pkg/layout"
	"context"
	"strings"

	"github.com/mozillazg/go-unidecode"
)

type Service struct {
	index       *index.Service
	coordinator *deletion.Coordinator
	engine      *layout.Engine
}

func NewService(idx *index.Service, coord *deletion.Coordinator, engine *layout.Engine) *Service {
	return &Service{index: idx, coordinator: coord, engine: engine}
}

// GetMediaIndex 返回当前快照，快照过期时会先刷新。
func (s *Service) GetMediaIndex(ctx context.Context) ([]models.MediaItem, error) {
	return s.index.Items(ctx)
}

// Refresh 强制重新拉取文档并重建索引。
func (s *Service) Refresh(ctx context.Context) ([]models.MediaItem, error) {
	snap, err := s.index.Refresh(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Items, nil
}

// RequestDeletion 删除选中的媒体，结束后索引已经被重建。n 可以为 nil。
func (s *Service) RequestDeletion(ctx context.Context, items []models.MediaItem, n deletion.Notifier) models.BatchOutcome {
	return s.coordinator.DeleteItems(ctx, items, n)
}

// Search 在当前快照中按文档标题、地点和原始文件名过滤媒体，
// 比较前统一转写为 ASCII 小写，"Zürich" 可以用 "zurich" 搜到。空查询返回全部媒体。
func (s *Service) Search(ctx context.Context, query string) ([]models.MediaItem, error) {
	items, err := s.index.Items(ctx)
	if err != nil {
		return nil, err
	}
	q := fold(query)
	if q == "" {
		return items, nil
	}
	matched := make([]models.MediaItem, 0)
	for _, it := range items {
		if strings.Contains(fold(it.EntryTitle), q) ||
			strings.Contains(fold(it.Location), q) ||
			strings.Contains(fold(it.OriginalName), q) {
			matched = append(matched, it)
		}
	}
	return matched, nil
}

func fold(s string) string {
	return strings.ToLower(strings.TrimSpace(unidecode.Unidecode(s)))
}

func (s *Service) ComputeLayout(items []models.MediaItem, viewportWidth int) []models.Placement {
	return s.engine.Layout(items, viewportWidth)
}

func (s *Service) LayoutGrid(items []models.MediaItem, viewportWidth int) layout.Grid {
	return s.engine.Grid(items, viewportWidth)
}

// ResolveSelection 把视图提交的复合标识解析为当前快照中的媒体。
// 找不到的标识原样返回，由调用方决定如何提示。
func (s *Service) ResolveSelection(ctx context.Context, identities []string) ([]models.MediaItem, []string, error) {
	snap, err := s.index.Snapshot(ctx)
	if err != nil {
		return nil, nil, err
	}
	items := make([]models.MediaItem, 0, len(identities))
	var unresolved []string
	seen := make(map[string]struct{}, len(identities))
	for _, id := range identities {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		it, ok := snap.Lookup(id)
		if !ok {
			unresolved = append(unresolved, id)
			continue
		}
		items = append(items, it)
	}
	return items, unresolved, nil
}
