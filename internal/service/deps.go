package service

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"ProjectHub/internal/model"
)

// Cache определяет интерфейс кэширования результатов чтения (Redis)
// Методы позволяют записывать, читать и инвалидировать кэш по ключу
type Cache interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
	Invalidate(ctx context.Context, key string) error
}

// Publisher определяет интерфейс публикации доменных событий (NATS)
// Каждая мутация публикует событие для аудит-лога в ClickHouse
type Publisher interface {
	PublishEvent(data []byte) error
}

// Notifier определяет эмиссию записей ленты уведомлений.
// Реализуется NotificationService; создание проекта, создание задачи,
// приглашение участника и удаления пишут в ленту, частичные обновления — нет
type Notifier interface {
	Emit(ctx context.Context, ntype, title, message string, projectID, taskID *int) (*model.Notification, error)
}

// cacheTTL задаёт время жизни записей в кэше, по умолчанию 1 минута или из REDIS_TTL
var cacheTTL = time.Minute

func init() {
	if v := os.Getenv("REDIS_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cacheTTL = d
		}
	}
}

// publishEvent сериализует и публикует событие мутации; доставка best-effort,
// отказ брокера не откатывает уже зафиксированную запись
func publishEvent(p Publisher, entity, action string, entityID, projectID int, payload interface{}) {
	body, _ := json.Marshal(payload)
	ev := model.Event{
		Entity:     entity,
		Action:     action,
		EntityID:   entityID,
		ProjectID:  projectID,
		Payload:    string(body),
		OccurredAt: time.Now(),
	}
	data, _ := json.Marshal(ev)
	_ = p.PublishEvent(data)
}
