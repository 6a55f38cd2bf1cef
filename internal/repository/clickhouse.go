package repository

import (
	"context"
	"database/sql"
	"log"
	"time"

	"ProjectHub/internal/model"
)

// ClickhouseRepo реализует пакетную запись событий аудита в ClickHouse
type ClickhouseRepo struct {
	db *sql.DB
}

// NewClickhouseRepo создаёт новый репозиторий для ClickHouse
func NewClickhouseRepo(db *sql.DB) *ClickhouseRepo {
	return &ClickhouseRepo{db: db}
}

// BatchInsertEvents записывает пакет событий мутаций в таблицу events_log.
// Событие несет сущность, действие, идентификаторы и JSON-снимок записи
func (r *ClickhouseRepo) BatchInsertEvents(ctx context.Context, events []model.Event) error {
	// начинаем 'транзакцию' для batch insert (clickhouse-go собирает блок при PrepareContext)
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	log.Printf("Начало пакетной вставки %d событий в ClickHouse", len(events))
	// PrepareContext для одной строки; clickhouse-go соберет несколько Exec в один блок
	query := `INSERT INTO events_log (Entity, Action, EntityId, ProjectId, Payload, EventTime) VALUES (?, ?, ?, ?, ?, ?)`
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer func() { _ = stmt.Close() }()
	for _, e := range events {
		occurredAt := e.OccurredAt
		if occurredAt.IsZero() {
			occurredAt = time.Now()
		}
		_, err := stmt.ExecContext(ctx,
			e.Entity, e.Action, e.EntityID, e.ProjectID, e.Payload, occurredAt)
		if err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	log.Printf("Успешно вставлено %d событий в ClickHouse", len(events))
	return nil
}
