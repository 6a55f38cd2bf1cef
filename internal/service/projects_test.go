package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"ProjectHub/internal/model"
	"ProjectHub/internal/repository"
)

// mockProjectRepo симулирует репозиторий проектов с настраиваемым поведением методов
type mockProjectRepo struct {
	create func(ctx context.Context, name string, description *string, startDate, endDate *time.Time, ownerID int) (*model.Project, error)
	get    func(ctx context.Context, id int) (*model.Project, error)
	list   func(ctx context.Context, limit, offset int) ([]model.Project, int, error)
	update func(ctx context.Context, id int, patch repository.ProjectPatch, version int) (*model.Project, error)
	delete func(ctx context.Context, id int) ([]int, error)
}

func (m *mockProjectRepo) CreateProject(ctx context.Context, name string, description *string, startDate, endDate *time.Time, ownerID int) (*model.Project, error) {
	return m.create(ctx, name, description, startDate, endDate, ownerID)
}
func (m *mockProjectRepo) GetProject(ctx context.Context, id int) (*model.Project, error) {
	return m.get(ctx, id)
}
func (m *mockProjectRepo) ListProjects(ctx context.Context, limit, offset int) ([]model.Project, int, error) {
	return m.list(ctx, limit, offset)
}
func (m *mockProjectRepo) UpdateProject(ctx context.Context, id int, patch repository.ProjectPatch, version int) (*model.Project, error) {
	return m.update(ctx, id, patch, version)
}
func (m *mockProjectRepo) DeleteProject(ctx context.Context, id int) ([]int, error) {
	return m.delete(ctx, id)
}

// Тест создания проекта: инвалидация кэша, одна запись ленты, одно событие аудита
func TestProjectService_Create(t *testing.T) {
	repo := &mockProjectRepo{
		create: func(ctx context.Context, name string, description *string, startDate, endDate *time.Time, ownerID int) (*model.Project, error) {
			return &model.Project{ID: 1, Name: name, Status: model.ProjectStatusDraft, OwnerID: ownerID, OwnerName: "Alice Martin"}, nil
		},
	}
	cache := newRecordingCache()
	pub := &mockPublisher{}
	notif := &mockNotifier{}
	svc := NewProjectService(repo, cache, pub, notif)

	project, err := svc.Create(context.Background(), "Refonte site web", nil, nil, nil, 201)
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if project.ID != 1 || project.Status != model.ProjectStatusDraft {
		t.Error("unexpected project result")
	}
	if !cache.has("projects:list") || !cache.has("project:1") {
		t.Errorf("expected list and project keys invalidated, got %v", cache.invalidated)
	}
	if len(notif.emitted) != 1 {
		t.Fatalf("expected exactly one feed entry, got %d", len(notif.emitted))
	}
	n := notif.emitted[0]
	if n.ntype != model.NotificationProject || n.projectID == nil || *n.projectID != 1 || n.taskID != nil {
		t.Error("feed entry must reference the new project and no task")
	}
	if len(pub.published) != 1 {
		t.Fatalf("expected one audit event, got %d", len(pub.published))
	}
	var ev model.Event
	if err := json.Unmarshal(pub.published[0], &ev); err != nil {
		t.Fatalf("audit event is not valid JSON: %v", err)
	}
	if ev.Entity != "project" || ev.Action != "created" || ev.EntityID != 1 {
		t.Errorf("unexpected audit event: %+v", ev)
	}
}

// Тест прокидывания ошибки репозитория: ни ленты, ни аудита, ни инвалидации
func TestProjectService_Create_RepoError(t *testing.T) {
	wantErr := repository.ErrNotFound
	repo := &mockProjectRepo{
		create: func(ctx context.Context, name string, description *string, startDate, endDate *time.Time, ownerID int) (*model.Project, error) {
			return nil, wantErr
		},
	}
	cache := newRecordingCache()
	pub := &mockPublisher{}
	notif := &mockNotifier{}
	svc := NewProjectService(repo, cache, pub, notif)

	if _, err := svc.Create(context.Background(), "X", nil, nil, nil, 999); !errors.Is(err, wantErr) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if len(cache.invalidated) != 0 || len(notif.emitted) != 0 || len(pub.published) != 0 {
		t.Error("failed create must not touch cache, feed or audit")
	}
}

// Тест чтения проекта через кэш: промах идёт в репозиторий и пишет кэш, попадание — нет
func TestProjectService_Get_Cache(t *testing.T) {
	calls := 0
	repo := &mockProjectRepo{
		get: func(ctx context.Context, id int) (*model.Project, error) {
			calls++
			return &model.Project{ID: id, Name: "Refonte site web", TasksCount: 4, MembersCount: 2}, nil
		},
	}
	stored := map[string][]byte{}
	cache := &mockCache{
		set: func(ctx context.Context, key string, value []byte, ttl time.Duration) error {
			stored[key] = value
			return nil
		},
		get: func(ctx context.Context, key string) ([]byte, error) {
			if v, ok := stored[key]; ok {
				return v, nil
			}
			return nil, errors.New("cache miss")
		},
	}
	svc := NewProjectService(repo, cache, &mockPublisher{}, &mockNotifier{})

	first, err := svc.Get(context.Background(), 1)
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	second, err := svc.Get(context.Background(), 1)
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected a single repository read, got %d", calls)
	}
	if first.TasksCount != second.TasksCount || second.Name != "Refonte site web" {
		t.Error("cached read must match the original")
	}
}

// Тест списка: ответ кэшируется целиком, страница с другим offset — промах
func TestProjectService_List_Cache(t *testing.T) {
	calls := 0
	repo := &mockProjectRepo{
		list: func(ctx context.Context, limit, offset int) ([]model.Project, int, error) {
			calls++
			return []model.Project{{ID: 1}, {ID: 2}}, 5, nil
		},
	}
	stored := map[string][]byte{}
	cache := &mockCache{
		set: func(ctx context.Context, key string, value []byte, ttl time.Duration) error {
			stored[key] = value
			return nil
		},
		get: func(ctx context.Context, key string) ([]byte, error) {
			if v, ok := stored[key]; ok {
				return v, nil
			}
			return nil, errors.New("cache miss")
		},
	}
	svc := NewProjectService(repo, cache, &mockPublisher{}, &mockNotifier{})

	if _, total, err := svc.List(context.Background(), 20, 0); err != nil || total != 5 {
		t.Errorf("unexpected list result: total=%d err=%v", total, err)
	}
	if _, _, err := svc.List(context.Background(), 20, 0); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected a single repository read for the same page, got %d", calls)
	}
	// другая страница не должна отдаваться из чужого кэша
	if _, _, err := svc.List(context.Background(), 20, 2); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if calls != 2 {
		t.Errorf("expected a repository read for the new page, got %d calls", calls)
	}
}

// Тест обновления: лента молчит, аудит публикуется, конфликт версии прокидывается
func TestProjectService_Update(t *testing.T) {
	repo := &mockProjectRepo{
		update: func(ctx context.Context, id int, patch repository.ProjectPatch, version int) (*model.Project, error) {
			if version == 1 {
				return nil, repository.ErrConflict
			}
			return &model.Project{ID: id, Name: "Renamed", Version: version + 1}, nil
		},
	}
	cache := newRecordingCache()
	pub := &mockPublisher{}
	notif := &mockNotifier{}
	svc := NewProjectService(repo, cache, pub, notif)

	name := "Renamed"
	project, err := svc.Update(context.Background(), 1, repository.ProjectPatch{Name: &name}, 2)
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if project.Name != "Renamed" {
		t.Error("unexpected update result")
	}
	if len(notif.emitted) != 0 {
		t.Error("partial update must not write to the feed")
	}
	if len(pub.published) != 1 {
		t.Error("update must publish an audit event")
	}
	if !cache.has("project:1") || !cache.has("projects:list") {
		t.Errorf("expected cache invalidation, got %v", cache.invalidated)
	}

	if _, err := svc.Update(context.Background(), 1, repository.ProjectPatch{Name: &name}, 1); !errors.Is(err, repository.ErrConflict) {
		t.Errorf("expected ErrConflict, got %v", err)
	}
}

// Тест удаления: кэш каскадных задач инвалидируется, лента получает одну запись
func TestProjectService_Delete(t *testing.T) {
	repo := &mockProjectRepo{
		delete: func(ctx context.Context, id int) ([]int, error) {
			return []int{101, 102}, nil
		},
	}
	cache := newRecordingCache()
	pub := &mockPublisher{}
	notif := &mockNotifier{}
	svc := NewProjectService(repo, cache, pub, notif)

	if err := svc.Delete(context.Background(), 1); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	for _, key := range []string{"projects:list", "project:1", "tasks:project:1", "task:101", "task:102"} {
		if !cache.has(key) {
			t.Errorf("expected key %q invalidated, got %v", key, cache.invalidated)
		}
	}
	if len(notif.emitted) != 1 || notif.emitted[0].ntype != model.NotificationProject {
		t.Error("expected exactly one project feed entry")
	}
	if len(pub.published) != 1 {
		t.Error("expected one audit event")
	}
}
