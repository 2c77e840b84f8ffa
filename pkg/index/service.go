package index

import (
	"Gallery_Manager/internal/models"
	"Gallery_Manager/pkg/database"
	"Gallery_Manager/pkg/metrics"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot 是某一时刻的不可变索引，新的快照整体替换旧的。
type Snapshot struct {
	Items   []models.MediaItem
	BuiltAt time.Time

	byIdentity map[string]int
}

func newSnapshot(items []models.MediaItem, at time.Time) *Snapshot {
	byID := make(map[string]int, len(items))
	for i, it := range items {
		byID[it.Identity] = i
	}
	return &Snapshot{Items: items, BuiltAt: at, byIdentity: byID}
}

// Lookup 按复合标识查找媒体。
func (s *Snapshot) Lookup(identity string) (models.MediaItem, bool) {
	if s == nil {
		return models.MediaItem{}, false
	}
	i, ok := s.byIdentity[identity]
	if !ok {
		return models.MediaItem{}, false
	}
	return s.Items[i], true
}

// Service 持有当前索引快照，并在过期时从文档存储重建。
type Service struct {
	store      database.DocumentStore
	collection string
	staleAfter time.Duration
	now        func() time.Time

	current atomic.Pointer[Snapshot]
	stale   atomic.Bool
	// refreshMu 让并发的刷新串行执行
	refreshMu sync.Mutex
}

func NewService(store database.DocumentStore, collection string, staleAfter time.Duration) *Service {
	return &Service{
		store:      store,
		collection: collection,
		staleAfter: staleAfter,
		now:        time.Now,
	}
}

// Refresh 重新拉取全部文档并替换快照。
func (s *Service) Refresh(ctx context.Context) (*Snapshot, error) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()
	return s.refreshLocked(ctx)
}

func (s *Service) refreshLocked(ctx context.Context) (*Snapshot, error) {
	docs, err := s.store.ListDocuments(ctx, s.collection)
	if err != nil {
		metrics.IndexRefreshes.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("无法拉取文档列表: %w", err)
	}
	metrics.IndexRefreshes.WithLabelValues("ok").Inc()
	snap := newSnapshot(Build(docs), s.now())
	s.current.Store(snap)
	s.stale.Store(false)
	slog.Debug("媒体索引已重建", "documents", len(docs), "items", len(snap.Items))
	return snap, nil
}

// Snapshot 返回当前快照，过期时先刷新。
func (s *Service) Snapshot(ctx context.Context) (*Snapshot, error) {
	if snap := s.current.Load(); snap != nil && !s.isStale(snap) {
		return snap, nil
	}

	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()
	// 等锁期间可能已经有人刷新过
	if snap := s.current.Load(); snap != nil && !s.isStale(snap) {
		return snap, nil
	}
	return s.refreshLocked(ctx)
}

// Items 即 getMediaIndex。
func (s *Service) Items(ctx context.Context) ([]models.MediaItem, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Items, nil
}

// Invalidate 标记快照过期，下一次读取会触发刷新。
func (s *Service) Invalidate() {
	s.stale.Store(true)
}

func (s *Service) isStale(snap *Snapshot) bool {
	if s.stale.Load() {
		return true
	}
	return s.staleAfter > 0 && s.now().Sub(snap.BuiltAt) > s.staleAfter
}
