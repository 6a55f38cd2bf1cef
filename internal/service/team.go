package service

import (
	"context"
	"encoding/json"
	"fmt"

	"ProjectHub/internal/model"
)

// TeamRepo определяет интерфейс репозитория команды
type TeamRepo interface {
	InviteMember(ctx context.Context, firstName, lastName, email, role, avatar string) (*model.TeamMember, error)
	GetMember(ctx context.Context, id int) (*model.TeamMember, error)
	ListMembersByProject(ctx context.Context, projectID int) ([]model.TeamMember, error)
	AddMemberToProject(ctx context.Context, memberID, projectID int) error
}

// TeamService реализует бизнес-логику каталога участников
type TeamService struct {
	repo      TeamRepo
	cache     Cache
	publisher Publisher
	notifier  Notifier
}

// NewTeamService создаёт новый сервис команды
func NewTeamService(r TeamRepo, c Cache, p Publisher, n Notifier) *TeamService {
	return &TeamService{repo: r, cache: c, publisher: p, notifier: n}
}

// Invite приглашает участника; при пустом avatar репозиторий выберет
// случайный глиф из палитры. Эмитится одна запись типа info
func (s *TeamService) Invite(ctx context.Context, firstName, lastName, email, role, avatar string) (*model.TeamMember, error) {
	member, err := s.repo.InviteMember(ctx, firstName, lastName, email, role, avatar)
	if err != nil {
		return nil, err
	}
	_ = s.cache.Invalidate(ctx, fmt.Sprintf("member:%d", member.ID))
	_, _ = s.notifier.Emit(ctx, model.NotificationInfo, "New team member",
		fmt.Sprintf("%s %s joined the team", member.FirstName, member.LastName), nil, nil)
	publishEvent(s.publisher, "member", "invited", member.ID, 0, member)
	return member, nil
}

// Get возвращает участника через кэш
func (s *TeamService) Get(ctx context.Context, id int) (*model.TeamMember, error) {
	key := fmt.Sprintf("member:%d", id)
	if bytes, err := s.cache.Get(ctx, key); err == nil {
		var m model.TeamMember
		_ = json.Unmarshal(bytes, &m)
		return &m, nil
	}
	member, err := s.repo.GetMember(ctx, id)
	if err != nil {
		return nil, err
	}
	data, _ := json.Marshal(member)
	_ = s.cache.Set(ctx, key, data, cacheTTL)
	return member, nil
}

// ListByProject возвращает участников проекта (наполнение пикера назначений), через кэш
func (s *TeamService) ListByProject(ctx context.Context, projectID int) ([]model.TeamMember, error) {
	key := fmt.Sprintf("members:project:%d", projectID)
	if bytes, err := s.cache.Get(ctx, key); err == nil {
		var members []model.TeamMember
		_ = json.Unmarshal(bytes, &members)
		return members, nil
	}
	members, err := s.repo.ListMembersByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	data, _ := json.Marshal(members)
	_ = s.cache.Set(ctx, key, data, cacheTTL)
	return members, nil
}

// AddToProject связывает участника с проектом; инвалидируется и кэш проекта,
// поскольку membersCount считается при чтении
func (s *TeamService) AddToProject(ctx context.Context, memberID, projectID int) error {
	if err := s.repo.AddMemberToProject(ctx, memberID, projectID); err != nil {
		return err
	}
	_ = s.cache.Invalidate(ctx, fmt.Sprintf("member:%d", memberID))
	_ = s.cache.Invalidate(ctx, fmt.Sprintf("members:project:%d", projectID))
	_ = s.cache.Invalidate(ctx, fmt.Sprintf("project:%d", projectID))
	_ = s.cache.Invalidate(ctx, "projects:list")
	publishEvent(s.publisher, "member", "addedToProject", memberID, projectID,
		map[string]interface{}{"memberId": memberID, "projectId": projectID})
	return nil
}
