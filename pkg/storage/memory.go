package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
)

// MemoryStore 是 AssetStore 的内存实现，资源以规范化后的路径保存。
type MemoryStore struct {
	mu     sync.Mutex
	assets map[string][]byte
}

var _ AssetStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{assets: make(map[string][]byte)}
}

// Put 登记一个资源，供测试和本地模式准备数据。
func (m *MemoryStore) Put(collection string, fullPaths ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range fullPaths {
		m.assets[NormalizePath(collection, p)] = nil
	}
}

// PutData 登记一个带内容的资源。
func (m *MemoryStore) PutData(collection, fullPath string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assets[NormalizePath(collection, fullPath)] = data
}

// Has 报告资源是否仍然存在。
func (m *MemoryStore) Has(collection, fullPath string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.assets[NormalizePath(collection, fullPath)]
	return ok
}

func (m *MemoryStore) DeleteAsset(ctx context.Context, collection, fullPath string) error {
	if err := ctx.Err(); err != nil {
		return &PathError{FullPath: fullPath, Err: err}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	key := NormalizePath(collection, fullPath)
	if _, ok := m.assets[key]; !ok {
		return &PathError{FullPath: fullPath, Err: ErrAssetNotFound}
	}
	delete(m.assets, key)
	return nil
}

func (m *MemoryStore) DeleteAssets(ctx context.Context, collection string, fullPaths []string) error {
	var errs []error
	for _, p := range fullPaths {
		if err := m.DeleteAsset(ctx, collection, p); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *MemoryStore) ListAssets(ctx context.Context, collection string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	prefix := "/" + collection + "/"
	var out []string
	for k := range m.assets {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (m *MemoryStore) OpenAsset(ctx context.Context, collection, fullPath string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	data, ok := m.assets[NormalizePath(collection, fullPath)]
	if !ok {
		return nil, fmt.Errorf("%s: %w", fullPath, ErrAssetNotFound)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}
