package consumer

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"ProjectHub/internal/model"
)

// Repo описывает интерфейс репозитория ClickHouse для пакетной записи событий аудита
type Repo interface {
	BatchInsertEvents(ctx context.Context, events []model.Event) error
}

// Consumer буферизует события мутаций и отправляет их пакетно в ClickHouse.
// batchSize определяет макс. количество событий до отправки,
// mutex защищает доступ к буферу events
type Consumer struct {
	repo      Repo
	batchSize int
	events    []model.Event
	mu        sync.Mutex
}

// NewConsumer создаёт Consumer с указанным репозиторием и размером пакета
func NewConsumer(repo Repo, batchSize int) *Consumer {
	return &Consumer{repo: repo, batchSize: batchSize, events: make([]model.Event, 0, batchSize)}
}

// HandleMessage обрабатывает сообщение из NATS: парсит JSON события,
// добавляет его в буфер и при достижении batchSize отправляет пакет в ClickHouse
func (c *Consumer) HandleMessage(ctx context.Context, data []byte) error {
	var ev model.Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return err
	}
	log.Printf("Получено событие аудита: %s.%s id=%d", ev.Entity, ev.Action, ev.EntityID)
	c.mu.Lock()
	c.events = append(c.events, ev)
	if len(c.events) >= c.batchSize {
		eventsCopy := make([]model.Event, len(c.events))
		copy(eventsCopy, c.events)
		c.events = c.events[:0]
		c.mu.Unlock()
		return c.repo.BatchInsertEvents(ctx, eventsCopy)
	}
	c.mu.Unlock()
	return nil
}

// Flush отправляет все накопленные события, если они есть
func (c *Consumer) Flush(ctx context.Context) error {
	c.mu.Lock()
	if len(c.events) == 0 {
		c.mu.Unlock()
		return nil
	}
	eventsCopy := make([]model.Event, len(c.events))
	copy(eventsCopy, c.events)
	c.events = c.events[:0]
	c.mu.Unlock()
	return c.repo.BatchInsertEvents(ctx, eventsCopy)
}
