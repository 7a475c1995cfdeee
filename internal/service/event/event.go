// Package event 分类标签变更事件：发布、订阅和最近事件查询
package event

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EventType 事件类型
type EventType string

const (
	EventTagCreated      EventType = "tag.created"
	EventTagRenamed      EventType = "tag.renamed"
	EventTagInactivated  EventType = "tag.inactivated"
	EventTagDeleted      EventType = "tag.deleted"
	EventTagReactivated  EventType = "tag.reactivated"
	EventQuestionTagsSet EventType = "question.tags_set"
)

// Event 变更事件，只在事务提交后发布
type Event struct {
	ID        string            `json:"id"`
	EventType EventType         `json:"event_type"`
	TagID     string            `json:"tag_id,omitempty"`
	Code      string            `json:"code,omitempty"`
	Name      string            `json:"name,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// New 创建事件
func New(eventType EventType, tagID, code, name string) *Event {
	return &Event{
		ID:        "evt_" + uuid.New().String(),
		EventType: eventType,
		TagID:     tagID,
		Code:      code,
		Name:      name,
		Timestamp: time.Now().UTC(),
	}
}

// Publisher 事件发布接口
type Publisher interface {
	Publish(ctx context.Context, evt *Event) error
}

// Store 事件存储接口
type Store interface {
	SaveEvent(ctx context.Context, evt *Event) error
	Recent(ctx context.Context, limit int) ([]*Event, error)
	RecentByTag(ctx context.Context, tagID string, limit int) ([]*Event, error)
}

// Handler 事件处理器接口
type Handler interface {
	Handle(ctx context.Context, evt *Event) error
}

// HandlerFunc 函数类型的事件处理器
type HandlerFunc func(ctx context.Context, evt *Event) error

// Handle 实现 Handler 接口
func (f HandlerFunc) Handle(ctx context.Context, evt *Event) error {
	return f(ctx, evt)
}

// ========== MemoryStore ==========

// MemoryStore 固定容量的环形事件存储，写满后覆盖最旧的事件
type MemoryStore struct {
	mu     sync.RWMutex
	events []*Event
	next   int
	full   bool
}

// NewMemoryStore 创建内存存储
func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = 256
	}
	return &MemoryStore{events: make([]*Event, capacity)}
}

// SaveEvent 保存事件
func (m *MemoryStore) SaveEvent(ctx context.Context, evt *Event) error {
	if evt == nil {
		return fmt.Errorf("event cannot be nil")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.events[m.next] = evt
	m.next = (m.next + 1) % len(m.events)
	if m.next == 0 {
		m.full = true
	}
	return nil
}

// Recent 最近的事件，新的在前
func (m *MemoryStore) Recent(ctx context.Context, limit int) ([]*Event, error) {
	return m.collect(limit, func(*Event) bool { return true }), nil
}

// RecentByTag 某个标签最近的事件
func (m *MemoryStore) RecentByTag(ctx context.Context, tagID string, limit int) ([]*Event, error) {
	return m.collect(limit, func(e *Event) bool { return e.TagID == tagID }), nil
}

func (m *MemoryStore) collect(limit int, match func(*Event) bool) []*Event {
	m.mu.RLock()
	defer m.mu.RUnlock()

	size := m.next
	if m.full {
		size = len(m.events)
	}
	if limit <= 0 || limit > size {
		limit = size
	}

	result := make([]*Event, 0, limit)
	for i := 1; i <= size && len(result) < limit; i++ {
		idx := (m.next - i + len(m.events)) % len(m.events)
		if evt := m.events[idx]; match(evt) {
			result = append(result, evt)
		}
	}
	return result
}

// ========== EventBus ==========

// EventBus 事件总线
// 订阅者在发布方的 goroutine 中按订阅顺序同步调用，单个订阅者失败不影响其他订阅者
type EventBus struct {
	store       Store
	subscribers []Handler
	mu          sync.RWMutex
	logger      *zap.Logger
}

// NewEventBus 创建事件总线
func NewEventBus(store Store, logger *zap.Logger) *EventBus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventBus{store: store, logger: logger}
}

// Subscribe 订阅事件
func (b *EventBus) Subscribe(handler Handler) error {
	if handler == nil {
		return fmt.Errorf("handler cannot be nil")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.subscribers = append(b.subscribers, handler)
	return nil
}

// Publish 发布事件
func (b *EventBus) Publish(ctx context.Context, evt *Event) error {
	// 1. 保存事件
	if b.store != nil {
		if err := b.store.SaveEvent(ctx, evt); err != nil {
			return fmt.Errorf("failed to save event: %w", err)
		}
	}

	// 2. 通知订阅者
	b.mu.RLock()
	handlers := append([]Handler(nil), b.subscribers...)
	b.mu.RUnlock()

	for _, h := range handlers {
		if err := h.Handle(ctx, evt); err != nil {
			b.logger.Warn("event handler failed",
				zap.String("event_type", string(evt.EventType)),
				zap.String("event_id", evt.ID),
				zap.Error(err))
		}
	}
	return nil
}

// Recent 最近的事件
func (b *EventBus) Recent(ctx context.Context, tagID string, limit int) ([]*Event, error) {
	if b.store == nil {
		return []*Event{}, nil
	}
	if tagID != "" {
		return b.store.RecentByTag(ctx, tagID, limit)
	}
	return b.store.Recent(ctx, limit)
}

// LogHandler 将事件写入日志的订阅者
func LogHandler(logger *zap.Logger) Handler {
	return HandlerFunc(func(ctx context.Context, evt *Event) error {
		logger.Info("taxonomy event",
			zap.String("event_type", string(evt.EventType)),
			zap.String("tag_id", evt.TagID),
			zap.String("code", evt.Code),
			zap.String("name", evt.Name))
		return nil
	})
}
