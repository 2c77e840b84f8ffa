package deletion

import (
	"Gallery_Manager/config"
	"Gallery_Manager/internal/models"
	"Gallery_Manager/pkg/database"
	"Gallery_Manager/pkg/index"
	"Gallery_Manager/pkg/logger"
	"Gallery_Manager/pkg/metrics"
	"Gallery_Manager/pkg/storage"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// ErrWriteFailed 表示重试预算耗尽后文档仍然没有写成功。
var ErrWriteFailed = errors.New("write failed")

// Refresher 在整批删除结束后重建媒体索引。
type Refresher interface {
	Refresh(ctx context.Context) (*index.Snapshot, error)
}

type Options struct {
	DocumentCollection string
	AssetCollection    string
	RetryBudget        int
	BackoffBase        time.Duration
	Concurrency        int
}

func OptionsFromConfig(cfg config.GalleryConfig) Options {
	return Options{
		DocumentCollection: cfg.DocumentCollection,
		AssetCollection:    cfg.AssetCollection,
		RetryBudget:        cfg.RetryBudget,
		BackoffBase:        cfg.BackoffBase,
		Concurrency:        cfg.Concurrency,
	}
}

// Coordinator 按所属文档分组删除媒体，每个文档独立地走乐观并发写入流程。
type Coordinator struct {
	docs      database.DocumentStore
	assets    storage.AssetStore
	refresher Refresher
	opts      Options
}

// NewCoordinator 创建删除协调器。refresher 可以为 nil，此时删除后不重建索引。
func NewCoordinator(docs database.DocumentStore, assets storage.AssetStore, refresher Refresher, opts Options) *Coordinator {
	if opts.RetryBudget <= 0 {
		opts.RetryBudget = 3
	}
	if opts.BackoffBase <= 0 {
		opts.BackoffBase = time.Second
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	return &Coordinator{docs: docs, assets: assets, refresher: refresher, opts: opts}
}

type group struct {
	entryKey string
	paths    []string
	size     int
}

// groupByEntry 按 entryKey 分组，保持首次出现的顺序；同一组内重复的 fullPath 只保留一次。
func groupByEntry(items []models.MediaItem) []*group {
	var groups []*group
	byKey := make(map[string]*group)
	seen := make(map[string]struct{})
	for _, it := range items {
		g, ok := byKey[it.EntryKey]
		if !ok {
			g = &group{entryKey: it.EntryKey}
			byKey[it.EntryKey] = g
			groups = append(groups, g)
		}
		g.size++
		id := models.IdentityOf(it.EntryKey, it.FullPath)
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		g.paths = append(g.paths, it.FullPath)
	}
	return groups
}

// DeleteItems 删除选中的媒体并返回汇总结果。它从不返回错误：
// 每个组的失败都记录在该组的结果里。批量删除一旦开始就不可取消，
// 调用方 ctx 的取消不会中断正在进行的组。n 可以为 nil。
func (c *Coordinator) DeleteItems(ctx context.Context, items []models.MediaItem, n Notifier) models.BatchOutcome {
	if n == nil {
		n = nopNotifier{}
	}
	batchID := uuid.NewString()
	if len(items) == 0 {
		n.Notify(Event{Kind: EventCompleted, BatchID: batchID})
		return models.BatchOutcome{}
	}

	ctx = logger.CtxWithLogger(context.WithoutCancel(ctx), slog.String("batch", batchID))
	log := logger.FromCtx(ctx)

	groups := groupByEntry(items)
	log.Info("开始批量删除", "items", len(items), "groups", len(groups))

	outcomes := make([]models.DeletionOutcome, len(groups))
	var (
		mu       sync.Mutex
		progress = Event{Kind: EventProgress, BatchID: batchID, GroupsTotal: len(groups), Total: len(items)}
	)

	var eg errgroup.Group
	eg.SetLimit(c.opts.Concurrency)
	for i, g := range groups {
		eg.Go(func() error {
			out := c.processGroup(ctx, g)
			outcomes[i] = out
			recordOutcome(out)

			mu.Lock()
			defer mu.Unlock()
			progress.GroupsDone++
			if out.Succeeded {
				progress.Processed += out.ItemsRemoved
			} else {
				progress.Failed += out.GroupSize
			}
			ev := progress
			ev.Group = &out
			n.Notify(ev)
			return nil
		})
	}
	// 所有组都有结果之后才重建索引
	_ = eg.Wait()

	batch := aggregate(outcomes, len(items))

	if c.refresher != nil {
		if _, err := c.refresher.Refresh(ctx); err != nil {
			log.Error("删除后重建媒体索引失败", "error", err)
		}
	}

	log.Info("批量删除结束", "processed", batch.Processed, "failed", batch.Failed, "total", batch.Total, "assetFailures", batch.AssetFailures)
	n.Notify(Event{
		Kind:        EventCompleted,
		BatchID:     batchID,
		GroupsDone:  len(groups),
		GroupsTotal: len(groups),
		Processed:   batch.Processed,
		Failed:      batch.Failed,
		Total:       batch.Total,
	})
	return batch
}

func aggregate(outcomes []models.DeletionOutcome, total int) models.BatchOutcome {
	batch := models.BatchOutcome{Total: total, Groups: outcomes}
	for _, o := range outcomes {
		if o.Succeeded {
			batch.Processed += o.ItemsRemoved
		} else {
			batch.Failed += o.GroupSize
		}
		batch.AssetFailures += o.AssetFailures
	}
	return batch
}

func recordOutcome(out models.DeletionOutcome) {
	result := "succeeded"
	switch {
	case errors.Is(out.Err, database.ErrNotFound):
		result = "not_found"
	case !out.Succeeded:
		result = "failed"
	case out.ItemsRemoved == 0:
		result = "noop"
	}
	metrics.DeletionGroups.WithLabelValues(result).Inc()
	metrics.ItemsRemoved.Add(float64(out.ItemsRemoved))
	metrics.AssetFailures.Add(float64(out.AssetFailures))
}

// processGroup 对单个文档执行：读取 → 计算剩余 → 写入或删除 → 必要时重试。
// 每次尝试都重新读取文档，因此版本冲突后自然使用最新版本重新计算。
func (c *Coordinator) processGroup(ctx context.Context, g *group) models.DeletionOutcome {
	log := logger.FromCtx(ctx).With("entry", g.entryKey)
	out := models.DeletionOutcome{EntryKey: g.entryKey, GroupSize: g.size}
	coll := c.opts.DocumentCollection
	policy := newRetryPolicy(c.opts.RetryBudget, c.opts.BackoffBase)

	var removed []string
	op := func() error {
		out.Attempts++
		removed = nil

		doc, err := c.docs.GetDocument(ctx, coll, g.entryKey)
		if err != nil {
			policy.observe(err)
			return fmt.Errorf("读取文档失败: %w", err)
		}
		if doc == nil {
			return backoff.Permanent(database.ErrNotFound)
		}

		remaining, matched := partition(doc.Data.Media.Refs, g.paths)
		if len(matched) == 0 {
			log.Info("当前文档中没有要删除的媒体，跳过写入", "version", doc.Version)
			return nil
		}

		if len(remaining) == 0 {
			err = c.docs.DeleteDocument(ctx, coll, doc.Key, doc.Version)
		} else {
			doc.Data.Media = models.NewMedia(remaining...)
			_, err = c.docs.SetDocument(ctx, coll, doc)
		}
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				return backoff.Permanent(err)
			}
			if errors.Is(err, database.ErrVersionConflict) {
				metrics.VersionConflicts.Inc()
			}
			policy.observe(err)
			return err
		}

		removed = matched
		if len(remaining) == 0 {
			log.Info("文档中的媒体已全部删除，已删除整个文档", "removed", len(matched))
		} else {
			log.Info("文档已更新", "removed", len(matched), "remaining", len(remaining))
		}
		return nil
	}

	notify := func(err error, wait time.Duration) {
		log.Warn("文档写入失败，准备重试", "attempt", out.Attempts, "wait", wait, "error", err)
	}

	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		if !errors.Is(err, database.ErrNotFound) {
			err = fmt.Errorf("%w: %w", ErrWriteFailed, err)
		}
		log.Error("文档组删除失败", "attempts", out.Attempts, "error", err)
		out.Err = err
		out.Error = err.Error()
		return out
	}

	out.Succeeded = true
	out.ItemsRemoved = len(removed)
	if len(removed) > 0 {
		out.AssetFailures = c.deleteAssets(ctx, log, removed)
	}
	return out
}

// deleteAssets 在文档写入成功之后删除二进制资源。资源删除失败只记录并计数，
// 已经不存在的资源视为删除成功。
func (c *Coordinator) deleteAssets(ctx context.Context, log *slog.Logger, paths []string) int {
	err := c.assets.DeleteAssets(ctx, c.opts.AssetCollection, paths)
	failures := 0
	for _, pe := range storage.PathErrors(err) {
		if errors.Is(pe.Err, storage.ErrAssetNotFound) {
			log.Info("资源已经不存在", "path", pe.FullPath)
			continue
		}
		failures++
		log.Warn("资源删除失败", "path", pe.FullPath, "error", pe.Err)
	}
	return failures
}

// partition 按 fullPath 把当前媒体分成保留和删除两部分，保持原有顺序。
func partition(current []models.MediaRef, paths []string) (remaining []models.MediaRef, matched []string) {
	drop := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		drop[p] = struct{}{}
	}
	remaining = make([]models.MediaRef, 0, len(current))
	for _, m := range current {
		if _, ok := drop[m.FullPath]; ok {
			matched = append(matched, m.FullPath)
			continue
		}
		remaining = append(remaining, m)
	}
	return remaining, matched
}
