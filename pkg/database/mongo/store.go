package mongo

import (
	"Gallery_Manager/config"
	"Gallery_Manager/internal/models"
	"Gallery_Manager/pkg/database"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store 是 database.Store 接口的MongoDB实现。
// 每个逻辑集合对应一个同名的 MongoDB 集合，版本号保存在文档的 version 字段中。
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// 确保 Store 实现了 database.Store 接口 (编译时检查)
var _ database.Store = (*Store)(nil)

// NewStore 创建并返回一个新的 Store 实例，并建立与MongoDB的连接。
func NewStore(ctx context.Context, cfg *config.Config) (*Store, error) {
	slog.Info("正在连接到 MongoDB...", "uri", cfg.Database.URI)
	clientCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	clientOpts := options.Client().ApplyURI(cfg.Database.URI)
	client, err := mongo.Connect(clientCtx, clientOpts)
	if err != nil {
		return nil, err
	}

	if err := client.Ping(clientCtx, nil); err != nil {
		return nil, err
	}
	slog.Info("MongoDB 连接成功")

	return &Store{
		client: client,
		db:     client.Database(cfg.Database.Name),
	}, nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// EnsureIndexes 为每个集合的 key 字段建立唯一索引。
func (s *Store) EnsureIndexes(ctx context.Context, collections ...string) error {
	slog.Info("正在确保数据库索引存在...")
	for _, name := range collections {
		idx := mongo.IndexModel{
			Keys:    bson.D{{Key: "key", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("idx_key_unique"),
		}
		if _, err := s.db.Collection(name).Indexes().CreateOne(ctx, idx); err != nil {
			slog.Error("创建索引失败", "collection", name, "error", err)
			return err
		}
		slog.Info("集合索引已验证/创建。", "collection", name)
	}
	return nil
}

// ListDocuments 逐条解码，单条文档损坏只记录日志并跳过。
func (s *Store) ListDocuments(ctx context.Context, collection string) ([]models.Document, error) {
	findOpts := options.Find().SetSort(bson.D{{Key: "key", Value: 1}})
	cursor, err := s.db.Collection(collection).Find(ctx, bson.D{}, findOpts)
	if err != nil {
		return nil, fmt.Errorf("查询集合 %s 失败: %w", collection, err)
	}
	defer cursor.Close(ctx)

	var docs []models.Document
	for cursor.Next(ctx) {
		var doc models.Document
		if err := cursor.Decode(&doc); err != nil {
			slog.Warn("无法解码文档，已跳过", "collection", collection, "error", err)
			continue
		}
		docs = append(docs, doc)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("遍历集合 %s 失败: %w", collection, err)
	}
	return docs, nil
}

func (s *Store) GetDocument(ctx context.Context, collection, key string) (*models.Document, error) {
	var doc models.Document
	err := s.db.Collection(collection).FindOne(ctx, bson.M{"key": key}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &doc, nil
}

// SetDocument 以 {key, version} 作为更新条件，版本号在同一个原子操作中自增。
func (s *Store) SetDocument(ctx context.Context, collection string, doc *models.Document) (int64, error) {
	coll := s.db.Collection(collection)
	now := time.Now()

	if doc.Version == 0 {
		created := *doc
		created.Version = 1
		created.UpdatedAt = now
		if _, err := coll.InsertOne(ctx, &created); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return 0, fmt.Errorf("文档 %s 已存在: %w", doc.Key, database.ErrVersionConflict)
			}
			return 0, err
		}
		return created.Version, nil
	}

	filter := bson.M{"key": doc.Key, "version": doc.Version}
	update := bson.M{
		"$set": bson.M{
			"owner":       doc.Owner,
			"description": doc.Description,
			"data":        doc.Data,
			"updatedAt":   now,
		},
		"$inc": bson.M{"version": 1},
	}
	res, err := coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return 0, err
	}
	// 没有匹配说明版本已过期（或文档已被删除），由调用方重新读取后判断
	if res.MatchedCount == 0 {
		return 0, fmt.Errorf("文档 %s 版本 %d 已过期: %w", doc.Key, doc.Version, database.ErrVersionConflict)
	}
	return doc.Version + 1, nil
}

func (s *Store) DeleteDocument(ctx context.Context, collection, key string, version int64) error {
	coll := s.db.Collection(collection)
	res, err := coll.DeleteOne(ctx, bson.M{"key": key, "version": version})
	if err != nil {
		return err
	}
	if res.DeletedCount > 0 {
		return nil
	}

	n, err := coll.CountDocuments(ctx, bson.M{"key": key})
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("文档 %s: %w", key, database.ErrNotFound)
	}
	return fmt.Errorf("文档 %s 版本 %d 已过期: %w", key, version, database.ErrVersionConflict)
}
