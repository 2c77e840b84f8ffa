package maintenance

import (
	"Gallery_Manager/pkg/database"
	"Gallery_Manager/pkg/storage"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sync"
)

// Maintenance 定义了维护工具的接口
type Maintenance interface {
	SweepOrphanAssets(ctx context.Context, dryRun bool) (*SweepReport, error)
	BackfillMetadata(ctx context.Context, dryRun bool) (*BackfillReport, error)
	FindDuplicates(ctx context.Context) (*DuplicateReport, error)
	Close()
}

// SweepReport 是一次孤儿资源清理的结果。
type SweepReport struct {
	Scanned    int      `json:"scanned"`
	Referenced int      `json:"referenced"`
	Orphans    []string `json:"orphans"`
	Deleted    int      `json:"deleted"`
	Failed     int      `json:"failed"`
	DryRun     bool     `json:"dryRun"`
}

type defaultMaintenance struct {
	docs         database.DocumentStore
	assets       storage.AssetStore
	documentColl string
	assetColl    string
	logger       *log.Logger
	logFile      *os.File
	numWorkers   int
}

// NewMaintenance 创建一个新的维护模块实例，日志写入 logDir/maintenance.log。
func NewMaintenance(logDir string, workerCount int, docs database.DocumentStore, assets storage.AssetStore, documentColl, assetColl string) (Maintenance, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("无法创建日志目录: %w", err)
	}
	logFilePath := filepath.Join(logDir, "maintenance.log")
	file, err := os.OpenFile(logFilePath, os.O_TRUNC|os.O_CREATE|os.O_WRONLY, 0666)
	if err != nil {
		return nil, fmt.Errorf("无法初始化维护模块日志: %w", err)
	}
	logger := log.New(file, "MAINTENANCE: ", log.LstdFlags|log.Lshortfile)
	if workerCount <= 0 {
		workerCount = runtime.NumCPU()
	}
	return &defaultMaintenance{
		docs:         docs,
		assets:       assets,
		documentColl: documentColl,
		assetColl:    assetColl,
		logger:       logger,
		logFile:      file,
		numWorkers:   workerCount,
	}, nil
}

func (m *defaultMaintenance) Close() {
	if m.logFile != nil {
		m.logFile.Close()
	}
}

// SweepOrphanAssets 找出没有任何文档引用的资源并并发删除。
// 删除媒体时资源删除失败不会回滚文档，这些资源就留在这里清理。
func (m *defaultMaintenance) SweepOrphanAssets(ctx context.Context, dryRun bool) (*SweepReport, error) {
	m.logger.Println("--- 开始清理孤儿资源 ---")

	// 1. 收集所有文档引用的资源路径
	docs, err := m.docs.ListDocuments(ctx, m.documentColl)
	if err != nil {
		return nil, fmt.Errorf("无法拉取文档列表: %w", err)
	}
	referenced := make(map[string]struct{})
	for _, d := range docs {
		if !d.Data.Media.IsList() {
			continue
		}
		for _, ref := range d.Data.Media.Refs {
			if ref.FullPath != "" {
				referenced[storage.NormalizePath(m.assetColl, ref.FullPath)] = struct{}{}
			}
		}
	}

	// 2. 列出存储中的全部资源并求差集
	paths, err := m.assets.ListAssets(ctx, m.assetColl)
	if err != nil {
		return nil, fmt.Errorf("无法列出资源: %w", err)
	}
	report := &SweepReport{Scanned: len(paths), Referenced: len(referenced), DryRun: dryRun}
	for _, p := range paths {
		if _, ok := referenced[storage.NormalizePath(m.assetColl, p)]; !ok {
			report.Orphans = append(report.Orphans, p)
		}
	}
	m.logger.Printf("扫描 %d 个资源，发现 %d 个孤儿资源", len(paths), len(report.Orphans))

	if dryRun || len(report.Orphans) == 0 {
		return report, nil
	}

	// 3. 设置并发工作池
	var wg sync.WaitGroup
	tasks := make(chan string, m.numWorkers)
	results := make(chan error, m.numWorkers)

	for i := 0; i < m.numWorkers; i++ {
		wg.Add(1)
		go m.deleteWorker(ctx, &wg, tasks, results)
	}

	var collectWg sync.WaitGroup
	collectWg.Add(1)
	go func() {
		defer collectWg.Done()
		for err := range results {
			if err == nil || errors.Is(err, storage.ErrAssetNotFound) {
				report.Deleted++
				continue
			}
			report.Failed++
		}
	}()

	for _, p := range report.Orphans {
		tasks <- p
	}
	close(tasks)
	wg.Wait()
	close(results)
	collectWg.Wait()

	m.logger.Printf("--- 孤儿资源清理完毕: 删除 %d 个，失败 %d 个 ---", report.Deleted, report.Failed)
	return report, nil
}

func (m *defaultMaintenance) deleteWorker(ctx context.Context, wg *sync.WaitGroup, tasks <-chan string, results chan<- error) {
	defer wg.Done()
	for p := range tasks {
		err := m.assets.DeleteAsset(ctx, m.assetColl, p)
		if err != nil && !errors.Is(err, storage.ErrAssetNotFound) {
			m.logger.Printf("警告: 删除资源 %s 失败: %v", p, err)
		}
		results <- err
	}
}
