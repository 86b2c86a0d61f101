package events

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Type 事件类型
type Type string

const (
	TypeLineUpdated    Type = "line_updated"    // 单行状态变化
	TypeSessionUpdated Type = "session_updated" // 凭证会话变化
	TypeBatchStarted   Type = "batch_started"   // 批处理开始
	TypeBatchFinished  Type = "batch_finished"  // 批处理结束（完成/暂停）
	TypeAligned        Type = "aligned"         // 时间轴已生成
	TypeRenderProgress Type = "render_progress" // 渲染进度
	TypeRenderFinished Type = "render_finished" // 渲染完成
	TypeError          Type = "error"           // 可展示的错误
)

// Event 推送给观察者的事件
type Event struct {
	Type      Type      `json:"type"`
	ProjectID string    `json:"project_id"`
	Payload   any       `json:"payload,omitempty"`
	Time      time.Time `json:"time"`
}

// Sink 事件的外部镜像（如 Redis 发布）
type Sink interface {
	Publish(ctx context.Context, event Event) error
}

const (
	subscriberBuffer = 64
	mirrorBuffer     = 256
	// 单个事件写入外部镜像的超时
	sinkTimeout = 2 * time.Second
)

// Hub 进程内事件分发
// 慢订阅者的事件会被丢弃，不阻塞发布方；外部镜像在后台 goroutine 中写入
type Hub struct {
	mu     sync.RWMutex
	subs   map[chan Event]struct{}
	sinks  []Sink
	mirror chan Event
	done   chan struct{}
	nowFn  func() time.Time
	closed bool
}

// NewHub 创建事件分发器
func NewHub(sinks ...Sink) *Hub {
	h := &Hub{
		subs:  make(map[chan Event]struct{}),
		sinks: sinks,
		nowFn: time.Now,
	}
	if len(sinks) > 0 {
		h.mirror = make(chan Event, mirrorBuffer)
		h.done = make(chan struct{})
		go h.runMirror()
	}
	return h
}

// runMirror 按顺序把事件写入所有外部镜像，直到 Close
func (h *Hub) runMirror() {
	defer close(h.done)
	for event := range h.mirror {
		for _, sink := range h.sinks {
			ctx, cancel := context.WithTimeout(context.Background(), sinkTimeout)
			if err := sink.Publish(ctx, event); err != nil {
				log.Warn().Err(err).Str("type", string(event.Type)).Msg("failed to mirror event")
			}
			cancel()
		}
	}
}

// Subscribe 订阅事件，返回只读通道与取消函数
func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			if _, ok := h.subs[ch]; ok {
				delete(h.subs, ch)
				close(ch)
			}
			h.mu.Unlock()
		})
	}
	return ch, cancel
}

// Publish 发布事件给所有订阅者，并排队写入外部镜像
// 不等待镜像写入；镜像队列满时丢弃
func (h *Hub) Publish(ctx context.Context, event Event) {
	if event.Time.IsZero() {
		event.Time = h.nowFn()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return
	}
	for ch := range h.subs {
		select {
		case ch <- event:
		default:
			log.Warn().Str("type", string(event.Type)).Msg("event subscriber too slow, dropping event")
		}
	}
	if h.mirror != nil {
		select {
		case h.mirror <- event:
		default:
			log.Warn().Str("type", string(event.Type)).Msg("event mirror queue full, dropping event")
		}
	}
}

// SubscriberCount 当前订阅者数量
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close 关闭所有订阅通道，并等待镜像队列写完
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	for ch := range h.subs {
		close(ch)
		delete(h.subs, ch)
	}
	if h.mirror != nil {
		close(h.mirror)
	}
	h.mu.Unlock()

	if h.done != nil {
		<-h.done
	}
}
