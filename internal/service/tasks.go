package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ProjectHub/internal/model"
	"ProjectHub/internal/repository"
)

// TaskRepo определяет интерфейс репозитория задач (доска)
type TaskRepo interface {
	CreateTask(ctx context.Context, projectID int, title string, description *string, priority string, dueDate *time.Time) (*model.Task, error)
	GetTask(ctx context.Context, id int) (*model.Task, error)
	ListTasksByProject(ctx context.Context, projectID int) ([]model.Task, error)
	ListTasksByAssignee(ctx context.Context, memberID int) ([]model.Task, error)
	UpdateTask(ctx context.Context, id int, patch repository.TaskPatch, version int) (*model.Task, error)
	MoveTask(ctx context.Context, id int, newStatus string, newPosition, version int) ([]model.PositionUpdate, error)
	AssignTask(ctx context.Context, taskID, memberID int) (*model.Task, error)
	UnassignTask(ctx context.Context, taskID int) (*model.Task, error)
	DeleteTask(ctx context.Context, id int) error
}

// TaskService реализует бизнес-логику доски задач:
// создание и удаление пишут запись типа task в ленту;
// правки, переносы и назначения отдельно не уведомляются,
// но каждая мутация публикует событие аудита и инвалидирует кэш
type TaskService struct {
	repo      TaskRepo
	cache     Cache
	publisher Publisher
	notifier  Notifier
}

// NewTaskService создаёт новый сервис доски задач
func NewTaskService(r TaskRepo, c Cache, p Publisher, n Notifier) *TaskService {
	return &TaskService{repo: r, cache: c, publisher: p, notifier: n}
}

// invalidateTask сбрасывает кэш задачи и производных чтений;
// кэш проекта сбрасывается тоже, поскольку tasksCount считается при чтении
func (s *TaskService) invalidateTask(ctx context.Context, taskID, projectID int) {
	_ = s.cache.Invalidate(ctx, fmt.Sprintf("task:%d", taskID))
	_ = s.cache.Invalidate(ctx, fmt.Sprintf("tasks:project:%d", projectID))
	_ = s.cache.Invalidate(ctx, fmt.Sprintf("project:%d", projectID))
	_ = s.cache.Invalidate(ctx, "projects:list")
}

// Create создаёт задачу в колонке todo с приоритетом medium по умолчанию;
// projectID обязан разрешаться в существующий проект.
// Эмитится ровно одна запись ленты с taskId и projectId новой задачи
func (s *TaskService) Create(ctx context.Context, projectID int, title string, description *string, priority string, dueDate *time.Time) (*model.Task, error) {
	task, err := s.repo.CreateTask(ctx, projectID, title, description, priority, dueDate)
	if err != nil {
		return nil, err
	}
	s.invalidateTask(ctx, task.ID, projectID)
	_, _ = s.notifier.Emit(ctx, model.NotificationTask, "Task created",
		fmt.Sprintf("Task %q was added to project %d", task.Title, projectID), &projectID, &task.ID)
	publishEvent(s.publisher, "task", "created", task.ID, projectID, task)
	return task, nil
}

// Get возвращает задачу через кэш
func (s *TaskService) Get(ctx context.Context, id int) (*model.Task, error) {
	key := fmt.Sprintf("task:%d", id)
	if bytes, err := s.cache.Get(ctx, key); err == nil {
		var t model.Task
		_ = json.Unmarshal(bytes, &t)
		return &t, nil
	}
	task, err := s.repo.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	data, _ := json.Marshal(task)
	_ = s.cache.Set(ctx, key, data, cacheTTL)
	return task, nil
}

// ListByProject возвращает задачи проекта по колонкам и позициям, через кэш
func (s *TaskService) ListByProject(ctx context.Context, projectID int) ([]model.Task, error) {
	key := fmt.Sprintf("tasks:project:%d", projectID)
	if bytes, err := s.cache.Get(ctx, key); err == nil {
		var tasks []model.Task
		_ = json.Unmarshal(bytes, &tasks)
		return tasks, nil
	}
	tasks, err := s.repo.ListTasksByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	data, _ := json.Marshal(tasks)
	_ = s.cache.Set(ctx, key, data, cacheTTL)
	return tasks, nil
}

// ListByAssignee возвращает задачи участника; фильтрация идет по assigned_to_id,
// а не по снимку имени, поэтому переименование участника на выборку не влияет
func (s *TaskService) ListByAssignee(ctx context.Context, memberID int) ([]model.Task, error) {
	key := fmt.Sprintf("tasks:assignee:%d", memberID)
	if bytes, err := s.cache.Get(ctx, key); err == nil {
		var tasks []model.Task
		_ = json.Unmarshal(bytes, &tasks)
		return tasks, nil
	}
	tasks, err := s.repo.ListTasksByAssignee(ctx, memberID)
	if err != nil {
		return nil, err
	}
	data, _ := json.Marshal(tasks)
	_ = s.cache.Set(ctx, key, data, cacheTTL)
	return tasks, nil
}

// Update применяет частичное обновление; любая из четырех колонок достижима
// из любой другой за один шаг, отдельной валидации переходов нет
func (s *TaskService) Update(ctx context.Context, id int, patch repository.TaskPatch, version int) (*model.Task, error) {
	task, err := s.repo.UpdateTask(ctx, id, patch, version)
	if err != nil {
		return nil, err
	}
	s.invalidateTask(ctx, id, task.ProjectID)
	if task.AssignedTo != nil {
		_ = s.cache.Invalidate(ctx, fmt.Sprintf("tasks:assignee:%d", task.AssignedTo.ID))
	}
	publishEvent(s.publisher, "task", "updated", id, task.ProjectID, task)
	return task, nil
}

// Move переносит задачу в колонку newStatus на позицию newPosition одной
// атомарной операцией (путь drag-and-drop, без read-modify-write на клиенте)
// и возвращает все изменившиеся позиции
func (s *TaskService) Move(ctx context.Context, id int, newStatus string, newPosition, version int) ([]model.PositionUpdate, error) {
	updates, err := s.repo.MoveTask(ctx, id, newStatus, newPosition, version)
	if err != nil {
		return nil, err
	}
	task, err := s.repo.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	s.invalidateTask(ctx, id, task.ProjectID)
	publishEvent(s.publisher, "task", "moved", id, task.ProjectID, updates)
	return updates, nil
}

// Assign сохраняет на задаче снимок участника {id, имя, аватар}.
// Повторное назначение того же участника обновляет устаревший снимок
func (s *TaskService) Assign(ctx context.Context, taskID, memberID int) (*model.Task, error) {
	task, err := s.repo.AssignTask(ctx, taskID, memberID)
	if err != nil {
		return nil, err
	}
	s.invalidateTask(ctx, taskID, task.ProjectID)
	_ = s.cache.Invalidate(ctx, fmt.Sprintf("tasks:assignee:%d", memberID))
	publishEvent(s.publisher, "task", "assigned", taskID, task.ProjectID, task)
	return task, nil
}

// Unassign очищает исполнителя задачи
func (s *TaskService) Unassign(ctx context.Context, taskID int) (*model.Task, error) {
	// прежний исполнитель нужен для инвалидирования его выборки
	prev, err := s.repo.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	task, err := s.repo.UnassignTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	s.invalidateTask(ctx, taskID, task.ProjectID)
	if prev.AssignedTo != nil {
		_ = s.cache.Invalidate(ctx, fmt.Sprintf("tasks:assignee:%d", prev.AssignedTo.ID))
	}
	publishEvent(s.publisher, "task", "unassigned", taskID, task.ProjectID, task)
	return task, nil
}

// Remove удаляет задачу, эмитит запись ленты и событие аудита с полным снимком
func (s *TaskService) Remove(ctx context.Context, id int) error {
	task, err := s.repo.GetTask(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteTask(ctx, id); err != nil {
		return err
	}
	s.invalidateTask(ctx, id, task.ProjectID)
	if task.AssignedTo != nil {
		_ = s.cache.Invalidate(ctx, fmt.Sprintf("tasks:assignee:%d", task.AssignedTo.ID))
	}
	_, _ = s.notifier.Emit(ctx, model.NotificationTask, "Task deleted",
		fmt.Sprintf("Task %q was removed from project %d", task.Title, task.ProjectID), &task.ProjectID, &task.ID)
	publishEvent(s.publisher, "task", "deleted", id, task.ProjectID, task)
	return nil
}
