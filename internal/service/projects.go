package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ProjectHub/internal/model"
	"ProjectHub/internal/repository"
)

// ProjectRepo определяет интерфейс репозитория проектов
type ProjectRepo interface {
	CreateProject(ctx context.Context, name string, description *string, startDate, endDate *time.Time, ownerID int) (*model.Project, error)
	GetProject(ctx context.Context, id int) (*model.Project, error)
	ListProjects(ctx context.Context, limit, offset int) ([]model.Project, int, error)
	UpdateProject(ctx context.Context, id int, patch repository.ProjectPatch, version int) (*model.Project, error)
	DeleteProject(ctx context.Context, id int) ([]int, error)
}

// ProjectService реализует бизнес-логику каталога проектов:
// - валидация входных данных на уровне репозитория до записи
// - кэширование чтений и инвалидирование при мутациях
// - эмиссия записей ленты на создание и удаление
// - публикация событий аудита на каждую мутацию
type ProjectService struct {
	repo      ProjectRepo
	cache     Cache
	publisher Publisher
	notifier  Notifier
}

// NewProjectService создаёт новый сервис проектов
func NewProjectService(r ProjectRepo, c Cache, p Publisher, n Notifier) *ProjectService {
	return &ProjectService{repo: r, cache: c, publisher: p, notifier: n}
}

// Create создаёт проект со статусом draft и progress=0,
// пишет запись типа project в ленту и событие project.created в аудит
func (s *ProjectService) Create(ctx context.Context, name string, description *string, startDate, endDate *time.Time, ownerID int) (*model.Project, error) {
	project, err := s.repo.CreateProject(ctx, name, description, startDate, endDate, ownerID)
	if err != nil {
		return nil, err
	}
	_ = s.cache.Invalidate(ctx, "projects:list")
	_ = s.cache.Invalidate(ctx, fmt.Sprintf("project:%d", project.ID))
	_, _ = s.notifier.Emit(ctx, model.NotificationProject, "Project created",
		fmt.Sprintf("Project %q was created", project.Name), &project.ID, nil)
	publishEvent(s.publisher, "project", "created", project.ID, project.ID, project)
	return project, nil
}

// Get возвращает проект:
// 1. Пытается получить из кэша Redis
// 2. При промахе запрашивает из репозитория (счетчики считаются подзапросами)
// 3. Сохраняет результат в кэш
func (s *ProjectService) Get(ctx context.Context, id int) (*model.Project, error) {
	key := fmt.Sprintf("project:%d", id)
	if bytes, err := s.cache.Get(ctx, key); err == nil {
		var p model.Project
		_ = json.Unmarshal(bytes, &p)
		return &p, nil
	}
	project, err := s.repo.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}
	data, _ := json.Marshal(project)
	_ = s.cache.Set(ctx, key, data, cacheTTL)
	return project, nil
}

// ProjectListResponse — кэшируемый ответ списка проектов
type ProjectListResponse struct {
	Projects []model.Project `json:"projects"`
	Meta     struct {
		Total  int `json:"total"`
		Limit  int `json:"limit"`
		Offset int `json:"offset"`
	} `json:"meta"`
}

// List возвращает проекты в порядке создания с пагинацией, через кэш.
// Ключ один на весь список; страница с другими limit/offset — кэш-промах
func (s *ProjectService) List(ctx context.Context, limit, offset int) ([]model.Project, int, error) {
	const key = "projects:list"
	if bytes, err := s.cache.Get(ctx, key); err == nil {
		var resp ProjectListResponse
		if json.Unmarshal(bytes, &resp) == nil && resp.Meta.Limit == limit && resp.Meta.Offset == offset {
			return resp.Projects, resp.Meta.Total, nil
		}
	}
	projects, total, err := s.repo.ListProjects(ctx, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	var resp ProjectListResponse
	resp.Projects = projects
	resp.Meta.Total = total
	resp.Meta.Limit = limit
	resp.Meta.Offset = offset
	data, _ := json.Marshal(resp)
	_ = s.cache.Set(ctx, key, data, cacheTTL)
	return projects, total, nil
}

// Update применяет частичное обновление; несовпадение версии — repository.ErrConflict.
// Запись в ленту не эмитится, событие аудита публикуется
func (s *ProjectService) Update(ctx context.Context, id int, patch repository.ProjectPatch, version int) (*model.Project, error) {
	project, err := s.repo.UpdateProject(ctx, id, patch, version)
	if err != nil {
		return nil, err
	}
	_ = s.cache.Invalidate(ctx, "projects:list")
	_ = s.cache.Invalidate(ctx, fmt.Sprintf("project:%d", id))
	publishEvent(s.publisher, "project", "updated", id, id, project)
	return project, nil
}

// Delete удаляет проект; задачи проекта удаляются каскадом,
// их кэш инвалидируется по списку идентификаторов из репозитория
func (s *ProjectService) Delete(ctx context.Context, id int) error {
	taskIDs, err := s.repo.DeleteProject(ctx, id)
	if err != nil {
		return err
	}
	_ = s.cache.Invalidate(ctx, "projects:list")
	_ = s.cache.Invalidate(ctx, fmt.Sprintf("project:%d", id))
	_ = s.cache.Invalidate(ctx, fmt.Sprintf("tasks:project:%d", id))
	for _, tid := range taskIDs {
		_ = s.cache.Invalidate(ctx, fmt.Sprintf("task:%d", tid))
	}
	_, _ = s.notifier.Emit(ctx, model.NotificationProject, "Project deleted",
		fmt.Sprintf("Project %d and its %d tasks were removed", id, len(taskIDs)), &id, nil)
	publishEvent(s.publisher, "project", "deleted", id, id, map[string]interface{}{"id": id, "cascadedTasks": taskIDs})
	return nil
}
