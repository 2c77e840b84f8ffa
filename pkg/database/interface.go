package database

import (
	"Gallery_Manager/internal/models"
	"context"
	"errors"
)

var (
	// ErrNotFound 表示文档已经不存在，调用方不应重试。
	ErrNotFound = errors.New("document not found")
	// ErrVersionConflict 表示写入时携带的版本已经过期，需要重新读取后再写。
	ErrVersionConflict = errors.New("version conflict")
)

// DocumentStore 定义了对带版本号文档集合的所有操作。
type DocumentStore interface {
	// ListDocuments 按 key 升序返回集合内的全部文档。
	ListDocuments(ctx context.Context, collection string) ([]models.Document, error)

	// GetDocument 在文档不存在时返回 (nil, nil)。
	GetDocument(ctx context.Context, collection, key string) (*models.Document, error)

	// SetDocument 创建 (Version == 0) 或更新文档，返回新的版本号。
	// 版本不匹配时返回 ErrVersionConflict。
	SetDocument(ctx context.Context, collection string, doc *models.Document) (int64, error)

	// DeleteDocument 删除指定版本的文档。文档不存在返回 ErrNotFound，
	// 版本不匹配返回 ErrVersionConflict。
	DeleteDocument(ctx context.Context, collection, key string, version int64) error
}

// Store 是顶层接口，在文档操作之外负责连接生命周期与索引。
type Store interface {
	DocumentStore
	EnsureIndexes(ctx context.Context, collections ...string) error
	Close(ctx context.Context) error
}
