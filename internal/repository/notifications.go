package repository

import (
	"context"
	"database/sql"
	"fmt"

	"ProjectHub/internal/model"
)

// NotificationRepository реализует доступ к таблице notifications (лента уведомлений)
type NotificationRepository struct {
	db *sql.DB
}

// NewNotificationRepository создает новый репозиторий уведомлений
func NewNotificationRepository(db *sql.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// InsertNotification добавляет запись ленты: read=false, отметка времени выставляется БД
func (r *NotificationRepository) InsertNotification(ctx context.Context, ntype, title, message string, projectID, taskID *int) (*model.Notification, error) {
	query := `INSERT INTO notifications(type, title, message, project_id, task_id)
		VALUES($1, $2, $3, $4, $5) RETURNING id, read, created_at`
	var n model.Notification
	err := r.db.QueryRowContext(ctx, query, ntype, title, message, projectID, taskID).
		Scan(&n.ID, &n.Read, &n.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert notification: %w", err)
	}
	n.Type = ntype
	n.Title = title
	n.Message = message
	n.ProjectID = projectID
	n.TaskID = taskID
	return &n, nil
}

// ListNotifications возвращает ленту от новых к старым с пагинацией,
// а также общее число записей и число непрочитанных
func (r *NotificationRepository) ListNotifications(ctx context.Context, limit, offset int) ([]model.Notification, int, int, error) {
	var total, unread int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM notifications`).Scan(&total); err != nil {
		return nil, 0, 0, fmt.Errorf("failed to count notifications: %w", err)
	}
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM notifications WHERE read=false`).Scan(&unread); err != nil {
		return nil, 0, 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	query := `SELECT id, type, title, message, read, project_id, task_id, created_at
		FROM notifications ORDER BY id DESC LIMIT $1 OFFSET $2`
	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to select notifications list: %w", err)
	}
	defer rows.Close()
	var list []model.Notification
	for rows.Next() {
		var n model.Notification
		var projectID, taskID sql.NullInt64
		err := rows.Scan(&n.ID, &n.Type, &n.Title, &n.Message, &n.Read, &projectID, &taskID, &n.CreatedAt)
		if err != nil {
			return nil, 0, 0, fmt.Errorf("failed to scan notification: %w", err)
		}
		if projectID.Valid {
			pid := int(projectID.Int64)
			n.ProjectID = &pid
		}
		if taskID.Valid {
			tid := int(taskID.Int64)
			n.TaskID = &tid
		}
		list = append(list, n)
	}
	return list, total, unread, nil
}

// MarkRead помечает уведомление прочитанным; идемпотентно,
// отсутствующий или уже прочитанный id — no-op без ошибки
func (r *NotificationRepository) MarkRead(ctx context.Context, id int) error {
	_, err := r.db.ExecContext(ctx, `UPDATE notifications SET read=true WHERE id=$1 AND read=false`, id)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	return nil
}

// MarkAllRead помечает прочитанными все уведомления; идемпотентно
func (r *NotificationRepository) MarkAllRead(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `UPDATE notifications SET read=true WHERE read=false`)
	if err != nil {
		return fmt.Errorf("failed to mark all notifications read: %w", err)
	}
	return nil
}

// UnreadCount возвращает число непрочитанных уведомлений;
// запрос накрыт частичным индексом по read=false и не сканирует всю ленту
func (r *NotificationRepository) UnreadCount(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM notifications WHERE read=false`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}
