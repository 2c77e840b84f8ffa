package maintenance

import (
	"Gallery_Manager/internal/models"
	"Gallery_Manager/pkg/database"
	"Gallery_Manager/pkg/imageprobe"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
)

// BackfillReport 是一次元数据补全的结果。
type BackfillReport struct {
	Candidates int  `json:"candidates"`
	Probed     int  `json:"probed"`
	Updated    int  `json:"updated"`
	Failed     int  `json:"failed"`
	DryRun     bool `json:"dryRun"`
}

// DuplicateGroup 是感知哈希相同的一组媒体。
type DuplicateGroup struct {
	PHash      string   `json:"phash"`
	Identities []string `json:"identities"`
}

type DuplicateReport struct {
	Probed int              `json:"probed"`
	Failed int              `json:"failed"`
	Groups []DuplicateGroup `json:"groups"`
}

type probeJob struct {
	entryKey string
	fullPath string
}

type probeResult struct {
	probeJob
	info *imageprobe.Info
	err  error
}

// needsBackfill 报告图片是否缺少宽高或主色。视频不在这里处理。
func needsBackfill(ref models.MediaRef) bool {
	if ref.FullPath == "" || ref.IsVideo() {
		return false
	}
	return ref.Width <= 0 || ref.Height <= 0 || len(ref.DominantColors) == 0
}

// BackfillMetadata 读取缺少宽高或主色的图片内容，探测后写回所属文档。
// 写回走与删除相同的版本校验，冲突时重新读取文档再合并。
func (m *defaultMaintenance) BackfillMetadata(ctx context.Context, dryRun bool) (*BackfillReport, error) {
	m.logger.Println("--- 开始补全媒体元数据 ---")

	docs, err := m.docs.ListDocuments(ctx, m.documentColl)
	if err != nil {
		return nil, fmt.Errorf("无法拉取文档列表: %w", err)
	}
	var jobs []probeJob
	for _, d := range docs {
		if !d.Data.Media.IsList() {
			continue
		}
		for _, ref := range d.Data.Media.Refs {
			if needsBackfill(ref) {
				jobs = append(jobs, probeJob{entryKey: d.Key, fullPath: ref.FullPath})
			}
		}
	}
	report := &BackfillReport{Candidates: len(jobs), DryRun: dryRun}
	m.logger.Printf("发现 %d 个需要补全的媒体", len(jobs))
	if dryRun || len(jobs) == 0 {
		return report, nil
	}

	patches := make(map[string]map[string]*imageprobe.Info)
	for _, r := range m.probeAll(ctx, jobs) {
		if r.err != nil {
			report.Failed++
			continue
		}
		report.Probed++
		if patches[r.entryKey] == nil {
			patches[r.entryKey] = make(map[string]*imageprobe.Info)
		}
		patches[r.entryKey][r.fullPath] = r.info
	}

	keys := make([]string, 0, len(patches))
	for k := range patches {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, key := range keys {
		written, err := m.patchDocument(ctx, key, patches[key])
		if err != nil {
			m.logger.Printf("警告: 写回文档 %s 失败: %v", key, err)
			report.Failed += len(patches[key])
			continue
		}
		if written {
			report.Updated++
		}
	}

	m.logger.Printf("--- 元数据补全完毕: 探测 %d 个，更新 %d 个文档，失败 %d 个 ---", report.Probed, report.Updated, report.Failed)
	return report, nil
}

// patchDocument 返回文档是否真的被写回。media 不是数组或没有需要补全的字段时不写。
func (m *defaultMaintenance) patchDocument(ctx context.Context, key string, patch map[string]*imageprobe.Info) (bool, error) {
	written := false
	op := func() error {
		written = false
		doc, err := m.docs.GetDocument(ctx, m.documentColl, key)
		if err != nil {
			return err
		}
		if doc == nil {
			return backoff.Permanent(database.ErrNotFound)
		}
		if !doc.Data.Media.IsList() {
			return nil
		}

		changed := false
		refs := doc.Data.Media.Refs
		for i := range refs {
			info, ok := patch[refs[i].FullPath]
			if !ok {
				continue
			}
			if refs[i].Width <= 0 || refs[i].Height <= 0 {
				refs[i].Width = float64(info.Width)
				refs[i].Height = float64(info.Height)
				changed = true
			}
			if len(refs[i].DominantColors) == 0 {
				refs[i].DominantColors = []models.Color{info.Color}
				changed = true
			}
		}
		if !changed {
			return nil
		}
		doc.Data.Media = models.NewMedia(refs...)
		if _, err := m.docs.SetDocument(ctx, m.documentColl, doc); err != nil {
			return err
		}
		written = true
		return nil
	}

	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(100*time.Millisecond), 2), ctx)
	if err := backoff.Retry(op, b); err != nil {
		return false, err
	}
	return written, nil
}

// FindDuplicates 按感知哈希给全部图片分组，返回包含两个及以上媒体的组。
func (m *defaultMaintenance) FindDuplicates(ctx context.Context) (*DuplicateReport, error) {
	m.logger.Println("--- 开始查找重复图片 ---")

	docs, err := m.docs.ListDocuments(ctx, m.documentColl)
	if err != nil {
		return nil, fmt.Errorf("无法拉取文档列表: %w", err)
	}
	var jobs []probeJob
	for _, d := range docs {
		if !d.Data.Media.IsList() {
			continue
		}
		for _, ref := range d.Data.Media.Refs {
			if ref.FullPath != "" && !ref.IsVideo() {
				jobs = append(jobs, probeJob{entryKey: d.Key, fullPath: ref.FullPath})
			}
		}
	}

	report := &DuplicateReport{}
	byHash := make(map[string][]string)
	for _, r := range m.probeAll(ctx, jobs) {
		if r.err != nil {
			report.Failed++
			continue
		}
		report.Probed++
		byHash[r.info.PHash] = append(byHash[r.info.PHash], models.IdentityOf(r.entryKey, r.fullPath))
	}
	for hash, ids := range byHash {
		if len(ids) < 2 {
			continue
		}
		slices.Sort(ids)
		report.Groups = append(report.Groups, DuplicateGroup{PHash: hash, Identities: ids})
	}
	slices.SortFunc(report.Groups, func(a, b DuplicateGroup) int {
		return strings.Compare(a.Identities[0], b.Identities[0])
	})

	m.logger.Printf("--- 查找完毕: 探测 %d 个，%d 组重复，失败 %d 个 ---", report.Probed, len(report.Groups), report.Failed)
	return report, nil
}

// probeAll 用工作池并发读取并探测资源，结果顺序与输入无关。
func (m *defaultMaintenance) probeAll(ctx context.Context, jobs []probeJob) []probeResult {
	var wg sync.WaitGroup
	tasks := make(chan probeJob, m.numWorkers)
	results := make(chan probeResult, m.numWorkers)

	for i := 0; i < m.numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range tasks {
				info, err := m.probe(ctx, job.fullPath)
				if err != nil {
					m.logger.Printf("警告: 探测资源 %s 失败: %v", job.fullPath, err)
				}
				results <- probeResult{probeJob: job, info: info, err: err}
			}
		}()
	}

	var out []probeResult
	var collectWg sync.WaitGroup
	collectWg.Add(1)
	go func() {
		defer collectWg.Done()
		for r := range results {
			out = append(out, r)
		}
	}()

	for _, job := range jobs {
		tasks <- job
	}
	close(tasks)
	wg.Wait()
	close(results)
	collectWg.Wait()
	return out
}

func (m *defaultMaintenance) probe(ctx context.Context, fullPath string) (*imageprobe.Info, error) {
	rc, err := m.assets.OpenAsset(ctx, m.assetColl, fullPath)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	info, err := imageprobe.Probe(rc)
	if err != nil {
		return nil, fmt.Errorf("资源 %s: %w", fullPath, err)
	}
	return info, nil
}
