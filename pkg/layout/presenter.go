package layout

import (
	"Gallery_Manager/internal/models"
	"errors"
	"sync"
	"time"
)

// ErrClosed 表示 Presenter 已经释放了它的展示句柄。
var ErrClosed = errors.New("presenter closed")

// Surface 是布局的展示端，例如一个渲染网格的命令式句柄。
// 它在 Presenter 创建时获取一次，Close 时释放一次；数据变化只会重新排版，不会重建。
type Surface interface {
	Apply(g Grid)
	Release() error
}

// Presenter 持有 Surface 的生命周期，把布局计算结果推送给它。
// 尺寸变化经过防抖，更新的 Resize 会让尚未生效的旧计算作废。
type Presenter struct {
	engine   *Engine
	surface  Surface
	debounce time.Duration

	mu         sync.Mutex
	items      []models.MediaItem
	width      int
	generation uint64
	timer      *time.Timer
	last       Grid
	closed     bool
	closeOnce  sync.Once
	closeErr   error
}

// NewPresenter 调用 acquire 获取展示句柄，并按初始的媒体和宽度立即排版一次。
func NewPresenter(engine *Engine, acquire func() (Surface, error), items []models.MediaItem, width int, debounce time.Duration) (*Presenter, error) {
	s, err := acquire()
	if err != nil {
		return nil, err
	}
	p := &Presenter{engine: engine, surface: s, items: items, width: width, debounce: debounce}
	p.mu.Lock()
	gen := p.bumpLocked()
	p.mu.Unlock()
	p.render(gen)
	return p, nil
}

// SetItems 在媒体集合变化（新增或删除）后立即全量重算。
func (p *Presenter) SetItems(items []models.MediaItem) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	p.items = items
	gen := p.bumpLocked()
	p.mu.Unlock()

	p.render(gen)
	return nil
}

// Resize 记录新的视口宽度，在防抖时间之后重算。
func (p *Presenter) Resize(width int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	p.width = width
	gen := p.bumpLocked()
	p.timer = time.AfterFunc(p.debounce, func() { p.render(gen) })
	return nil
}

// Flush 立即执行尚未生效的 Resize。
func (p *Presenter) Flush() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	gen := p.bumpLocked()
	p.mu.Unlock()

	p.render(gen)
	return nil
}

// Last 返回最近一次推送给 Surface 的布局。
func (p *Presenter) Last() Grid {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

// Close 停止挂起的重算并释放 Surface，多次调用只释放一次。
func (p *Presenter) Close() error {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.closed = true
		if p.timer != nil {
			p.timer.Stop()
		}
		p.closeErr = p.surface.Release()
	})
	return p.closeErr
}

// bumpLocked 让所有挂起的计算作废并返回新的代号，调用方必须持有锁。
func (p *Presenter) bumpLocked() uint64 {
	p.generation++
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	return p.generation
}

func (p *Presenter) render(gen uint64) {
	p.mu.Lock()
	if p.closed || gen != p.generation {
		p.mu.Unlock()
		return
	}
	items, width := p.items, p.width
	p.mu.Unlock()

	grid := p.engine.Grid(items, width)

	p.mu.Lock()
	defer p.mu.Unlock()
	// 计算期间有更新的请求到达，丢弃这次结果
	if p.closed || gen != p.generation {
		return
	}
	p.last = grid
	p.surface.Apply(grid)
}
