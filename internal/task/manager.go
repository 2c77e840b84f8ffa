package task

import (
	"Gallery_Manager/internal/models"
	"Gallery_Manager/pkg/deletion"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// TaskStatus 定义了任务可能的状态。
type TaskStatus string

const (
	StatusPending   TaskStatus = "pending"
	StatusRunning   TaskStatus = "running"
	StatusCompleted TaskStatus = "completed"
)

// Task 代表一次后台批量删除。
type Task struct {
	ID        string     `json:"id"`
	Status    TaskStatus `json:"status"`
	Progress  float64    `json:"progress"`
	Processed int        `json:"processed"`
	Failed    int        `json:"failed"`
	Total     int        `json:"total"`
	StartTime time.Time  `json:"startTime"`
	EndTime   *time.Time `json:"endTime,omitempty"`

	Outcome *models.BatchOutcome `json:"outcome,omitempty"`

	items []models.MediaItem
}

// Deleter 是任务管理器依赖的删除入口。
type Deleter interface {
	RequestDeletion(ctx context.Context, items []models.MediaItem, n deletion.Notifier) models.BatchOutcome
}

// Manager 结构体是任务管理器。
type Manager struct {
	tasks map[string]*Task
	mu    sync.RWMutex

	deleter Deleter
	wg      sync.WaitGroup
}

// NewManager 创建并返回一个新的任务管理器实例。
func NewManager(d Deleter) *Manager {
	return &Manager{
		tasks:   make(map[string]*Task),
		deleter: d,
	}
}

// StartDeletionTask 创建一个新的删除任务，并立即在后台启动它。
func (m *Manager) StartDeletionTask(items []models.MediaItem) (string, error) {
	if len(items) == 0 {
		return "", fmt.Errorf("没有需要删除的媒体")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	taskID := uuid.New().String()
	newTask := &Task{
		ID:        taskID,
		Status:    StatusPending,
		Total:     len(items),
		StartTime: time.Now(),
		items:     items,
	}
	m.tasks[taskID] = newTask

	m.wg.Add(1)
	go m.runDeletion(newTask)

	return taskID, nil
}

// GetTaskStatus 根据任务ID返回任务当前状态的副本。
func (m *Manager) GetTaskStatus(taskID string) (Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	task, exists := m.tasks[taskID]
	if !exists {
		return Task{}, fmt.Errorf("找不到任务ID: %s", taskID)
	}
	snapshot := *task
	snapshot.items = nil
	return snapshot, nil
}

// Wait 等待所有已启动的任务结束，用于优雅退出和测试。
func (m *Manager) Wait() {
	m.wg.Wait()
}

// notifier 把协调器的进度事件同步到任务状态上。
func (m *Manager) notifier(task *Task) deletion.Notifier {
	return deletion.NotifierFunc(func(ev deletion.Event) {
		if ev.Kind != deletion.EventProgress {
			return
		}
		m.mu.Lock()
		defer m.mu.Unlock()
		task.Processed = ev.Processed
		task.Failed = ev.Failed
		if ev.GroupsTotal > 0 {
			task.Progress = float64(ev.GroupsDone) / float64(ev.GroupsTotal) * 100
		}
	})
}

// runDeletion 是执行具体删除工作的内部函数。删除一旦开始不可取消。
func (m *Manager) runDeletion(task *Task) {
	defer m.wg.Done()

	m.mu.Lock()
	task.Status = StatusRunning
	items := task.items
	m.mu.Unlock()

	slog.Info("删除任务启动", "task", task.ID, "items", len(items))
	outcome := m.deleter.RequestDeletion(context.Background(), items, m.notifier(task))

	m.mu.Lock()
	defer m.mu.Unlock()

	task.Status = StatusCompleted
	task.Progress = 100
	task.Processed = outcome.Processed
	task.Failed = outcome.Failed
	task.Outcome = &outcome
	task.items = nil
	endTime := time.Now()
	task.EndTime = &endTime
	slog.Info("删除任务完成", "task", task.ID, "processed", outcome.Processed, "failed", outcome.Failed)
}
