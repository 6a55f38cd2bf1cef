package service

import (
	"context"

	"ProjectHub/internal/model"
)

// NotificationRepo определяет интерфейс репозитория ленты уведомлений
type NotificationRepo interface {
	InsertNotification(ctx context.Context, ntype, title, message string, projectID, taskID *int) (*model.Notification, error)
	ListNotifications(ctx context.Context, limit, offset int) ([]model.Notification, int, int, error)
	MarkRead(ctx context.Context, id int) error
	MarkAllRead(ctx context.Context) error
	UnreadCount(ctx context.Context) (int, error)
}

// NotificationService реализует ленту уведомлений.
// Лента не кэшируется: каждая мутация других сервисов в нее пишет,
// и счетчик непрочитанного обязан быть согласован с чтением после записи
type NotificationService struct {
	repo NotificationRepo
}

// NewNotificationService создаёт новый сервис уведомлений
func NewNotificationService(r NotificationRepo) *NotificationService {
	return &NotificationService{repo: r}
}

// Emit добавляет запись ленты с read=false и серверной отметкой времени.
// projectID и taskID — слабые ссылки для корреляции, без проверки целостности
func (s *NotificationService) Emit(ctx context.Context, ntype, title, message string, projectID, taskID *int) (*model.Notification, error) {
	return s.repo.InsertNotification(ctx, ntype, title, message, projectID, taskID)
}

// List возвращает ленту от новых к старым с пагинацией и счетчиками
func (s *NotificationService) List(ctx context.Context, limit, offset int) ([]model.Notification, int, int, error) {
	return s.repo.ListNotifications(ctx, limit, offset)
}

// MarkRead помечает уведомление прочитанным; идемпотентно
func (s *NotificationService) MarkRead(ctx context.Context, id int) error {
	return s.repo.MarkRead(ctx, id)
}

// MarkAllRead помечает прочитанной всю ленту; идемпотентно
func (s *NotificationService) MarkAllRead(ctx context.Context) error {
	return s.repo.MarkAllRead(ctx)
}

// UnreadCount возвращает число непрочитанных уведомлений
func (s *NotificationService) UnreadCount(ctx context.Context) (int, error) {
	return s.repo.UnreadCount(ctx)
}
