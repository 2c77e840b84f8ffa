// Package memory 提供 database.Store 的内存实现，用于测试和不依赖 MongoDB 的本地运行。
package memory

import (
	"Gallery_Manager/internal/models"
	"Gallery_Manager/pkg/database"
	"context"
	"fmt"
	"maps"
	"sort"
	"sync"
	"time"
)

type Store struct {
	mu          sync.RWMutex
	collections map[string]map[string]models.Document
}

var _ database.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{collections: make(map[string]map[string]models.Document)}
}

// Seed 直接写入文档，版本号为 0 时置为 1。只用于准备测试数据。
func (s *Store) Seed(collection string, docs ...models.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	coll := s.collection(collection)
	for _, d := range docs {
		if d.Version == 0 {
			d.Version = 1
		}
		coll[d.Key] = clone(d)
	}
}

func (s *Store) EnsureIndexes(ctx context.Context, collections ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, name := range collections {
		s.collection(name)
	}
	return nil
}

func (s *Store) Close(ctx context.Context) error {
	return nil
}

func (s *Store) ListDocuments(ctx context.Context, collection string) ([]models.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	coll := s.collections[collection]
	keys := make([]string, 0, len(coll))
	for k := range coll {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	docs := make([]models.Document, 0, len(keys))
	for _, k := range keys {
		docs = append(docs, clone(coll[k]))
	}
	return docs, nil
}

func (s *Store) GetDocument(ctx context.Context, collection, key string) (*models.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.collections[collection][key]
	if !ok {
		return nil, nil
	}
	c := clone(doc)
	return &c, nil
}

func (s *Store) SetDocument(ctx context.Context, collection string, doc *models.Document) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	coll := s.collection(collection)
	current, exists := coll[doc.Key]
	switch {
	case doc.Version == 0 && exists:
		return 0, fmt.Errorf("文档 %s 已存在: %w", doc.Key, database.ErrVersionConflict)
	case doc.Version != 0 && (!exists || current.Version != doc.Version):
		return 0, fmt.Errorf("文档 %s 版本 %d 已过期: %w", doc.Key, doc.Version, database.ErrVersionConflict)
	}

	next := clone(*doc)
	next.Version = doc.Version + 1
	next.UpdatedAt = time.Now()
	coll[doc.Key] = next
	return next.Version, nil
}

func (s *Store) DeleteDocument(ctx context.Context, collection, key string, version int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	coll := s.collection(collection)
	current, ok := coll[key]
	if !ok {
		return fmt.Errorf("文档 %s: %w", key, database.ErrNotFound)
	}
	if current.Version != version {
		return fmt.Errorf("文档 %s 版本 %d 已过期: %w", key, version, database.ErrVersionConflict)
	}
	delete(coll, key)
	return nil
}

// collection 调用方必须持有写锁。
func (s *Store) collection(name string) map[string]models.Document {
	coll, ok := s.collections[name]
	if !ok {
		coll = make(map[string]models.Document)
		s.collections[name] = coll
	}
	return coll
}

// clone 复制 media 切片与 Extra，调用方对返回值的修改不会影响存储。
func clone(d models.Document) models.Document {
	if d.Data.Extra != nil {
		d.Data.Extra = maps.Clone(d.Data.Extra)
	}
	if d.Data.Media.Refs != nil {
		refs := make([]models.MediaRef, len(d.Data.Media.Refs))
		for i, r := range d.Data.Media.Refs {
			if r.DominantColors != nil {
				r.DominantColors = append([]models.Color(nil), r.DominantColors...)
			}
			refs[i] = r
		}
		d.Data.Media.Refs = refs
	}
	return d
}
