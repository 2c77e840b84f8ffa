package deletion

import "Gallery_Manager/internal/models"

type EventKind string

const (
	EventProgress  EventKind = "progress"
	EventCompleted EventKind = "completed"
)

// Event 是删除过程对外发出的消息。每个组结束时发出一条 progress，
// 全部组结束并刷新索引后发出一条 completed。
type Event struct {
	Kind    EventKind
	BatchID string

	// 仅 progress 事件携带
	Group *models.DeletionOutcome

	GroupsDone  int
	GroupsTotal int
	Processed   int
	Failed      int
	Total       int
}

// Notifier 接收删除事件。实现必须可以被多个 goroutine 并发调用。
type Notifier interface {
	Notify(Event)
}

type NotifierFunc func(Event)

func (f NotifierFunc) Notify(e Event) {
	f(e)
}

// ChannelNotifier 把事件投递到通道；通道满时丢弃 progress 事件，
// completed 事件总是阻塞投递，保证调用方一定能收到结束信号。
type ChannelNotifier chan<- Event

func (c ChannelNotifier) Notify(e Event) {
	if e.Kind == EventCompleted {
		c <- e
		return
	}
	select {
	case c <- e:
	default:
	}
}

type nopNotifier struct{}

func (nopNotifier) Notify(Event) {}
