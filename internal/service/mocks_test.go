package service

import (
	"context"
	"time"

	cachepkg "ProjectHub/pkg/cache"

	"ProjectHub/internal/model"
)

// mockCache симулирует кэш Redis с настраиваемым поведением методов:
// - set: сохраняет данные
// - get: получает данные (по умолчанию кэш-промах)
// - inval: инвалидирует ключ
type mockCache struct {
	set   func(ctx context.Context, key string, value []byte, ttl time.Duration) error
	get   func(ctx context.Context, key string) ([]byte, error)
	inval func(ctx context.Context, key string) error
}

func (m *mockCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if m.set == nil {
		return nil
	}
	return m.set(ctx, key, value, ttl)
}
func (m *mockCache) Get(ctx context.Context, key string) ([]byte, error) {
	if m.get == nil {
		return nil, cachepkg.ErrCacheMiss
	}
	return m.get(ctx, key)
}
func (m *mockCache) Invalidate(ctx context.Context, key string) error {
	if m.inval == nil {
		return nil
	}
	return m.inval(ctx, key)
}

// recordingCache накапливает инвалидированные ключи для проверок
type recordingCache struct {
	mockCache
	invalidated []string
}

func newRecordingCache() *recordingCache {
	c := &recordingCache{}
	c.inval = func(ctx context.Context, key string) error {
		c.invalidated = append(c.invalidated, key)
		return nil
	}
	return c
}

func (c *recordingCache) has(key string) bool {
	for _, k := range c.invalidated {
		if k == key {
			return true
		}
	}
	return false
}

// mockPublisher симулирует публикацию событий в NATS, накапливая сообщения
type mockPublisher struct {
	published [][]byte
	err       error
}

func (m *mockPublisher) PublishEvent(data []byte) error {
	m.published = append(m.published, data)
	return m.err
}

// emittedNotification фиксирует параметры эмиссии записи ленты
type emittedNotification struct {
	ntype     string
	title     string
	message   string
	projectID *int
	taskID    *int
}

// mockNotifier симулирует ленту уведомлений, накапливая эмиссии
type mockNotifier struct {
	emitted []emittedNotification
	err     error
}

func (m *mockNotifier) Emit(ctx context.Context, ntype, title, message string, projectID, taskID *int) (*model.Notification, error) {
	m.emitted = append(m.emitted, emittedNotification{ntype, title, message, projectID, taskID})
	if m.err != nil {
		return nil, m.err
	}
	return &model.Notification{ID: len(m.emitted), Type: ntype, Title: title, Message: message}, nil
}
