package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"ProjectHub/internal/model"
	"ProjectHub/internal/repository"
)

// mockTeamRepo симулирует репозиторий команды с настраиваемым поведением методов
type mockTeamRepo struct {
	invite func(ctx context.Context, firstName, lastName, email, role, avatar string) (*model.TeamMember, error)
	get    func(ctx context.Context, id int) (*model.TeamMember, error)
	byProj func(ctx context.Context, projectID int) ([]model.TeamMember, error)
	add    func(ctx context.Context, memberID, projectID int) error
}

func (m *mockTeamRepo) InviteMember(ctx context.Context, firstName, lastName, email, role, avatar string) (*model.TeamMember, error) {
	return m.invite(ctx, firstName, lastName, email, role, avatar)
}
func (m *mockTeamRepo) GetMember(ctx context.Context, id int) (*model.TeamMember, error) {
	return m.get(ctx, id)
}
func (m *mockTeamRepo) ListMembersByProject(ctx context.Context, projectID int) ([]model.TeamMember, error) {
	return m.byProj(ctx, projectID)
}
func (m *mockTeamRepo) AddMemberToProject(ctx context.Context, memberID, projectID int) error {
	return m.add(ctx, memberID, projectID)
}

// Тест приглашения: одна запись ленты типа info без корреляций
func TestTeamService_Invite(t *testing.T) {
	repo := &mockTeamRepo{
		invite: func(ctx context.Context, firstName, lastName, email, role, avatar string) (*model.TeamMember, error) {
			return &model.TeamMember{ID: 201, FirstName: firstName, LastName: lastName, Email: email, Avatar: "🦊", ProjectIDs: []int{}}, nil
		},
	}
	cache := newRecordingCache()
	pub := &mockPublisher{}
	notif := &mockNotifier{}
	svc := NewTeamService(repo, cache, pub, notif)

	member, err := svc.Invite(context.Background(), "Alice", "Martin", "alice@x.com", "Chef de projet", "")
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if member.ID != 201 {
		t.Error("unexpected member result")
	}
	if len(notif.emitted) != 1 {
		t.Fatalf("expected exactly one feed entry, got %d", len(notif.emitted))
	}
	n := notif.emitted[0]
	if n.ntype != model.NotificationInfo || n.projectID != nil || n.taskID != nil {
		t.Error("invite feed entry must be of type info with no correlation")
	}
	if len(pub.published) != 1 {
		t.Error("expected one audit event")
	}
}

// Тест дубликата e-mail: ошибка прокидывается, лента молчит
func TestTeamService_Invite_DuplicateEmail(t *testing.T) {
	repo := &mockTeamRepo{
		invite: func(ctx context.Context, firstName, lastName, email, role, avatar string) (*model.TeamMember, error) {
			return nil, repository.ErrDuplicateEmail
		},
	}
	notif := &mockNotifier{}
	svc := NewTeamService(repo, newRecordingCache(), &mockPublisher{}, notif)

	if _, err := svc.Invite(context.Background(), "Alice", "Martin", "alice@x.com", "", ""); !errors.Is(err, repository.ErrDuplicateEmail) {
		t.Errorf("expected ErrDuplicateEmail, got %v", err)
	}
	if len(notif.emitted) != 0 {
		t.Error("failed invite must not write to the feed")
	}
}

// Тест чтения участника через кэш
func TestTeamService_Get_Cache(t *testing.T) {
	calls := 0
	repo := &mockTeamRepo{
		get: func(ctx context.Context, id int) (*model.TeamMember, error) {
			calls++
			return &model.TeamMember{ID: id, FirstName: "Alice", ProjectIDs: []int{1, 3}}, nil
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
	svc := NewTeamService(repo, cache, &mockPublisher{}, &mockNotifier{})

	if _, err := svc.Get(context.Background(), 201); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	member, err := svc.Get(context.Background(), 201)
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected a single repository read, got %d", calls)
	}
	if len(member.ProjectIDs) != 2 {
		t.Error("cached read must keep the project list")
	}
}

// Тест связывания с проектом: сбрасываются кэши участника, пикера и проекта
func TestTeamService_AddToProject(t *testing.T) {
	repo := &mockTeamRepo{
		add: func(ctx context.Context, memberID, projectID int) error { return nil },
	}
	cache := newRecordingCache()
	pub := &mockPublisher{}
	notif := &mockNotifier{}
	svc := NewTeamService(repo, cache, pub, notif)

	if err := svc.AddToProject(context.Background(), 201, 1); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	for _, key := range []string{"member:201", "members:project:1", "project:1", "projects:list"} {
		if !cache.has(key) {
			t.Errorf("expected key %q invalidated, got %v", key, cache.invalidated)
		}
	}
	if len(notif.emitted) != 0 {
		t.Error("membership change must not write to the feed")
	}
	if len(pub.published) != 1 {
		t.Error("expected one audit event")
	}

	repo.add = func(ctx context.Context, memberID, projectID int) error {
		return repository.ErrNotFound
	}
	if err := svc.AddToProject(context.Background(), 999, 1); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
