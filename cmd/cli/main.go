package main

import (
	"Gallery_Manager/config"
	"Gallery_Manager/internal/app"
	"Gallery_Manager/pkg/deletion"
	"Gallery_Manager/pkg/layout"
	"Gallery_Manager/pkg/maintenance"
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
)

func main() {
	// --- 1. 定义命令行参数 ---
	action := flag.String("action", "", "要执行的操作: list-media, layout, delete, sweep-orphans, backfill-metadata, find-duplicates")
	width := flag.Int("width", 1200, "layout 使用的视口宽度（像素）")
	identities := flag.String("identities", "", "delete 操作要删除的媒体标识，逗号分隔")
	query := flag.String("q", "", "list-media 的搜索关键字，匹配标题、地点和文件名")
	dryRun := flag.Bool("dry-run", false, "sweep-orphans / backfill-metadata 只统计，不修改")

	flag.Parse()

	if *action == "" {
		fmt.Println("错误: 必须提供 -action 参数。")
		flag.Usage()
		os.Exit(1)
	}

	// --- 2. 初始化应用核心组件 ---
	if err := config.LoadConfig("."); err != nil {
		log.Fatalf("FATAL: 无法加载配置: %v", err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	ctx := context.Background()
	a, err := app.New(ctx, config.C)
	if err != nil {
		slog.Error("FATAL: 无法初始化应用", "error", err)
		os.Exit(1)
	}
	defer a.Close(ctx)

	// --- 3. 根据 action 参数执行相应的功能 ---
	switch *action {
	case "list-media":
		items, err := a.Gallery.Search(ctx, *query)
		if err != nil {
			slog.Error("获取媒体列表失败", "error", err)
			return
		}
		fmt.Printf("总共找到 %d 个媒体:\n", len(items))
		for _, it := range items {
			fmt.Printf("  %s\n    Type: %s  Size: %.0fx%.0f  Ratio: %.3f  Color: %s\n",
				it.Identity, it.Type, it.Width, it.Height, it.Ratio, it.PlaceholderColor)
		}

	case "layout":
		items, err := a.Gallery.GetMediaIndex(ctx)
		if err != nil {
			slog.Error("获取媒体列表失败", "error", err)
			return
		}
		p, err := layout.NewPresenter(a.Engine, func() (layout.Surface, error) {
			return &textSurface{}, nil
		}, items, *width, config.C.Layout.ResizeDebounce)
		if err != nil {
			slog.Error("无法创建布局", "error", err)
			return
		}
		p.Close()

	case "delete":
		if *identities == "" {
			fmt.Println("错误: delete 操作需要提供 -identities 参数。")
			return
		}
		items, unresolved, err := a.Gallery.ResolveSelection(ctx, strings.Split(*identities, ","))
		if err != nil {
			slog.Error("解析选中的媒体失败", "error", err)
			return
		}
		for _, id := range unresolved {
			fmt.Printf("警告: 当前索引中没有 %s，已忽略\n", id)
		}
		outcome := a.Gallery.RequestDeletion(ctx, items, deletion.NotifierFunc(func(ev deletion.Event) {
			if ev.Kind == deletion.EventProgress {
				fmt.Printf("进度: %d/%d 个文档\n", ev.GroupsDone, ev.GroupsTotal)
			}
		}))
		fmt.Printf("删除完成: 成功 %d，失败 %d，共 %d\n", outcome.Processed, outcome.Failed, outcome.Total)
		for _, g := range outcome.Groups {
			if !g.Succeeded {
				fmt.Printf("  %s: %s\n", g.EntryKey, g.Error)
			}
		}

	case "sweep-orphans":
		m := newMaintenance(a)
		defer m.Close()
		report, err := m.SweepOrphanAssets(ctx, *dryRun)
		if err != nil {
			slog.Error("清理孤儿资源失败", "error", err)
			return
		}
		fmt.Printf("扫描 %d 个资源，被引用 %d 个，孤儿 %d 个\n", report.Scanned, report.Referenced, len(report.Orphans))
		for _, p := range report.Orphans {
			fmt.Printf("  %s\n", p)
		}
		if !report.DryRun {
			fmt.Printf("已删除 %d 个，失败 %d 个\n", report.Deleted, report.Failed)
		}

	case "backfill-metadata":
		m := newMaintenance(a)
		defer m.Close()
		report, err := m.BackfillMetadata(ctx, *dryRun)
		if err != nil {
			slog.Error("补全媒体元数据失败", "error", err)
			return
		}
		fmt.Printf("需要补全 %d 个媒体\n", report.Candidates)
		if !report.DryRun {
			fmt.Printf("探测 %d 个，更新 %d 个文档，失败 %d 个\n", report.Probed, report.Updated, report.Failed)
		}

	case "find-duplicates":
		m := newMaintenance(a)
		defer m.Close()
		report, err := m.FindDuplicates(ctx)
		if err != nil {
			slog.Error("查找重复图片失败", "error", err)
			return
		}
		fmt.Printf("探测 %d 张图片，发现 %d 组重复:\n", report.Probed, len(report.Groups))
		for _, g := range report.Groups {
			fmt.Printf("  pHash %s\n", g.PHash)
			for _, id := range g.Identities {
				fmt.Printf("    %s\n", id)
			}
		}

	default:
		fmt.Printf("错误: 未知的 action '%s'\n", *action)
		flag.Usage()
	}
}

func newMaintenance(a *app.App) maintenance.Maintenance {
	m, err := maintenance.NewMaintenance(config.C.Logger.Path, config.C.Maintenance.WorkerCount,
		a.Store, a.Assets, config.C.Gallery.DocumentCollection, config.C.Gallery.AssetCollection)
	if err != nil {
		slog.Error("FATAL: 无法创建维护模块", "error", err)
		os.Exit(1)
	}
	return m
}

// textSurface 把布局打印到终端。
type textSurface struct{}

func (s *textSurface) Apply(g layout.Grid) {
	fmt.Printf("%d 列，列宽 %d，总高度 %.0f\n", g.Columns, g.ColumnWidth, g.Height)
	for _, p := range g.Placements {
		fmt.Printf("  [%d] x=%-5d y=%-8.0f %dx%-6.0f %s\n", p.Column, p.X, p.Y, p.Width, p.Height, p.Item.Identity)
	}
}

func (s *textSurface) Release() error {
	return nil
}
