// 文件: cmd/gallery-server/main.go
package main

import (
	"Gallery_Manager/config"
	"Gallery_Manager/internal/api"
	"Gallery_Manager/internal/app"
	"Gallery_Manager/internal/task"
	"Gallery_Manager/pkg/logger"
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"
)

func main() {
	// --- 1. 初始化 ---
	if err := config.LoadConfig("."); err != nil {
		log.Fatalf("FATAL: 无法加载配置: %v", err)
	}
	if err := logger.InitLogger(); err != nil {
		log.Fatalf("FATAL: 无法初始化日志: %v", err)
	}
	slog.Info("应用启动")
	defer slog.Info("应用关闭")

	// --- 2. 组装存储与核心服务 ---
	ctx := context.Background()
	a, err := app.New(ctx, config.C)
	if err != nil {
		slog.Error("FATAL: 无法初始化应用", "error", err)
		os.Exit(1)
	}
	defer a.Close(ctx)

	if _, err := a.Index.Refresh(ctx); err != nil {
		// 首次加载失败不致命，第一次请求时会再次尝试
		slog.Warn("首次加载媒体索引失败", "error", err)
	}

	taskManager := task.NewManager(a.Gallery)
	slog.Info("任务管理器创建成功")

	// --- 3. 设置并启动HTTP服务器 ---
	handlers := api.NewAPIHandlers(a.Gallery, taskManager, filepath.Join(".", "config.yaml"))
	router := api.RegisterRoutes(handlers, nil)

	server := &http.Server{
		Addr:         config.C.Server.Port,
		Handler:      router,
		ReadTimeout:  config.C.Server.Timeout,
		WriteTimeout: config.C.Server.Timeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("HTTP服务器正在启动...", "地址", config.C.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("无法启动HTTP服务器", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP服务器关闭失败", "error", err)
	}
	// 正在进行的删除不可取消，等它们各自结束
	taskManager.Wait()
}
