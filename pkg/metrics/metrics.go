package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry 是本服务专用的注册表，避免和默认注册表里的其它采集器混在一起。
var Registry = prometheus.NewRegistry()

var (
	DeletionGroups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gallery",
		Subsystem: "deletion",
		Name:      "groups_total",
		Help:      "按结果统计的文档组删除次数。",
	}, []string{"result"})

	ItemsRemoved = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "gallery",
		Subsystem: "deletion",
		Name:      "items_removed_total",
		Help:      "从文档中移除的媒体数量。",
	})

	VersionConflicts = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "gallery",
		Subsystem: "deletion",
		Name:      "version_conflicts_total",
		Help:      "写入时遇到的版本冲突次数。",
	})

	AssetFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "gallery",
		Subsystem: "deletion",
		Name:      "asset_failures_total",
		Help:      "资源删除失败的路径数量（不影响文档删除结果）。",
	})

	IndexRefreshes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gallery",
		Subsystem: "index",
		Name:      "refreshes_total",
		Help:      "媒体索引重建次数。",
	}, []string{"result"})
)

func init() {
	Registry.MustRegister(
		DeletionGroups,
		ItemsRemoved,
		VersionConflicts,
		AssetFailures,
		IndexRefreshes,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// Handler 返回供 Prometheus 抓取的 http.Handler。
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
