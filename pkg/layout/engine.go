package layout

import (
	"Gallery_Manager/config"
	"Gallery_Manager/internal/models"
	"math"
)

// epsilon 以下的宽高比按 1 处理，避免除以零。
const epsilon = 1e-6

// standardRatios 是吸附模式下可用的标准宽高比。
var standardRatios = []float64{1.0 / 6, 1.0 / 5, 1.0 / 4, 1.0 / 3, 1.0 / 2, 1, 2, 3, 4, 5, 6}

// Engine 计算等宽多列的平衡布局。它是无状态的纯计算，可以被并发使用。
type Engine struct {
	minColumnWidth int
	maxColumns     int
	snapRatios     bool
}

func NewEngine(cfg config.LayoutConfig) *Engine {
	e := &Engine{
		minColumnWidth: cfg.MinColumnWidth,
		maxColumns:     cfg.MaxColumns,
		snapRatios:     cfg.SnapRatios,
	}
	if e.minColumnWidth <= 0 {
		e.minColumnWidth = 300
	}
	if e.maxColumns < 0 {
		e.maxColumns = 0
	}
	return e
}

// Grid 是一次布局计算的完整结果。
type Grid struct {
	Columns      int                `json:"columns"`
	ColumnWidth  int                `json:"columnWidth"`
	ColumnHeight []float64          `json:"columnHeights"`
	Height       float64            `json:"height"`
	Placements   []models.Placement `json:"placements"`
}

// Columns 返回给定视口宽度下的列数：max(1, floor(w / minColumnWidth))，并受 maxColumns 限制。
func (e *Engine) Columns(viewportWidth int) int {
	cols := 1
	if viewportWidth > 0 {
		cols = max(1, viewportWidth/e.minColumnWidth)
	}
	if e.maxColumns > 0 && cols > e.maxColumns {
		cols = e.maxColumns
	}
	return cols
}

// Layout 即 computeLayout，只返回每个媒体的位置。
func (e *Engine) Layout(items []models.MediaItem, viewportWidth int) []models.Placement {
	return e.Grid(items, viewportWidth).Placements
}

// Grid 按顺序把每个媒体放进当前累计高度最小的列（并列时取下标最小的列）。
// 这是贪心启发式而不是最优装箱；对相同的 (items 顺序, 视口宽度) 结果完全确定。
func (e *Engine) Grid(items []models.MediaItem, viewportWidth int) Grid {
	cols := e.Columns(viewportWidth)
	colWidth := 0
	if viewportWidth > 0 {
		// 向下取整，最后几个像素的误差不会导致溢出
		colWidth = viewportWidth / cols
	}

	heights := make([]float64, cols)
	placements := make([]models.Placement, 0, len(items))
	for _, it := range items {
		col := shortestColumn(heights)
		h := float64(colWidth) / e.effectiveRatio(it.Ratio)
		placements = append(placements, models.Placement{
			Item:   it,
			Column: col,
			X:      col * colWidth,
			Y:      heights[col],
			Width:  colWidth,
			Height: h,
		})
		heights[col] += h
	}

	total := 0.0
	for _, h := range heights {
		total = math.Max(total, h)
	}
	return Grid{
		Columns:      cols,
		ColumnWidth:  colWidth,
		ColumnHeight: heights,
		Height:       total,
		Placements:   placements,
	}
}

func (e *Engine) effectiveRatio(r float64) float64 {
	r = clampRatio(r)
	if e.snapRatios {
		r = snap(r)
	}
	return r
}

func clampRatio(r float64) float64 {
	if math.IsNaN(r) || math.IsInf(r, 0) || r <= epsilon {
		return 1
	}
	return r
}

// snap 返回距离 r 最近的标准宽高比，距离相同时取较小的一个。
func snap(r float64) float64 {
	best := standardRatios[0]
	for _, s := range standardRatios[1:] {
		if math.Abs(s-r) < math.Abs(best-r) {
			best = s
		}
	}
	return best
}

func shortestColumn(heights []float64) int {
	best := 0
	for i := 1; i < len(heights); i++ {
		if heights[i] < heights[best] {
			best = i
		}
	}
	return best
}
