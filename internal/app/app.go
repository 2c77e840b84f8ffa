// Package app 按配置组装各个组件，供服务端和命令行共用。
package app

import (
	"Gallery_Manager/config"
	"Gallery_Manager/internal/gallery"
	"Gallery_Manager/pkg/database"
	"Gallery_Manager/pkg/database/memory"
	"Gallery_Manager/pkg/database/mongo"
	"Gallery_Manager/pkg/deletion"
	"Gallery_Manager/pkg/index"
	"Gallery_Manager/pkg/layout"
	"Gallery_Manager/pkg/storage"
	"context"
	"fmt"
	"log/slog"
)

type App struct {
	Config      *config.Config
	Store       database.Store
	Assets      storage.AssetStore
	Index       *index.Service
	Coordinator *deletion.Coordinator
	Engine      *layout.Engine
	Gallery     *gallery.Service
}

// New 根据 database.driver 与 storage.driver 选择存储实现并完成组装。
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	var store database.Store
	switch cfg.Database.Driver {
	case "mongo":
		s, err := mongo.NewStore(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("无法连接到数据库: %w", err)
		}
		store = s
	case "memory":
		slog.Warn("使用内存文档存储，数据不会持久化")
		store = memory.NewStore()
	default:
		return nil, fmt.Errorf("未知的 database.driver: %s", cfg.Database.Driver)
	}
	if err := store.EnsureIndexes(ctx, cfg.Gallery.DocumentCollection); err != nil {
		return nil, fmt.Errorf("无法创建/验证数据库索引: %w", err)
	}

	var assets storage.AssetStore
	switch cfg.Storage.Driver {
	case "s3":
		s, err := storage.NewS3Store(ctx, cfg.Storage.Region, cfg.Storage.Bucket, cfg.Storage.Endpoint)
		if err != nil {
			store.Close(ctx)
			return nil, fmt.Errorf("无法初始化资源存储: %w", err)
		}
		assets = s
	case "memory":
		assets = storage.NewMemoryStore()
	default:
		store.Close(ctx)
		return nil, fmt.Errorf("未知的 storage.driver: %s", cfg.Storage.Driver)
	}

	idx := index.NewService(store, cfg.Gallery.DocumentCollection, cfg.Index.StaleAfter)
	coord := deletion.NewCoordinator(store, assets, idx, deletion.OptionsFromConfig(cfg.Gallery))
	engine := layout.NewEngine(cfg.Layout)

	return &App{
		Config:      cfg,
		Store:       store,
		Assets:      assets,
		Index:       idx,
		Coordinator: coord,
		Engine:      engine,
		Gallery:     gallery.NewService(idx, coord, engine),
	}, nil
}

func (a *App) Close(ctx context.Context) error {
	return a.Store.Close(ctx)
}
