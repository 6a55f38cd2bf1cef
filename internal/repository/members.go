package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"ProjectHub/internal/model"
)

// TeamRepository реализует доступ к таблицам team_members и project_members
type TeamRepository struct {
	db *sql.DB
}

// NewTeamRepository создает новый репозиторий команды
func NewTeamRepository(db *sql.DB) *TeamRepository {
	return &TeamRepository{db: db}
}

// uniqueViolation — код ошибки Postgres для нарушения уникального индекса
const uniqueViolation = "23505"

// InviteMember добавляет нового участника:
// имя, фамилия и email обязательны, email проверяется на форму local@domain.tld,
// дубликат email отклоняется уникальным индексом (ErrDuplicateEmail),
// пустой avatar заменяется случайным глифом из фиксированной палитры.
// Валидация выполняется до записи, при ошибке id не выделяется
func (r *TeamRepository) InviteMember(ctx context.Context, firstName, lastName, email, role, avatar string) (*model.TeamMember, error) {
	if firstName == "" {
		return nil, errValidation("firstName", "cannot be empty")
	}
	if lastName == "" {
		return nil, errValidation("lastName", "cannot be empty")
	}
	if !model.ValidEmail(email) {
		return nil, errValidation("email", "must look like local@domain.tld")
	}
	if avatar == "" {
		avatar = model.RandomAvatar()
	}
	query := `INSERT INTO team_members(first_name, last_name, email, role, avatar)
		VALUES($1, $2, $3, $4, $5) RETURNING id, created_at`
	var m model.TeamMember
	err := r.db.QueryRowContext(ctx, query, firstName, lastName, email, role, avatar).
		Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to insert team member: %w", err)
	}
	m.FirstName = firstName
	m.LastName = lastName
	m.Email = email
	m.Role = role
	m.Avatar = avatar
	// новый участник начинает без проектов
	m.ProjectIDs = []int{}
	return &m, nil
}

// GetMember возвращает участника по id вместе со списком его проектов
func (r *TeamRepository) GetMember(ctx context.Context, id int) (*model.TeamMember, error) {
	query := `SELECT id, first_name, last_name, email, role, avatar, created_at
		FROM team_members WHERE id=$1`
	row := r.db.QueryRowContext(ctx, query, id)
	var m model.TeamMember
	err := row.Scan(&m.ID, &m.FirstName, &m.LastName, &m.Email, &m.Role, &m.Avatar, &m.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get team member: %w", err)
	}
	if m.ProjectIDs, err = r.memberProjects(ctx, id); err != nil {
		return nil, err
	}
	return &m, nil
}

// ListMembersByProject возвращает участников, связанных с проектом через project_members
func (r *TeamRepository) ListMembersByProject(ctx context.Context, projectID int) ([]model.TeamMember, error) {
	query := `SELECT m.id, m.first_name, m.last_name, m.email, m.role, m.avatar, m.created_at
		FROM team_members m
		JOIN project_members pm ON pm.member_id = m.id
		WHERE pm.project_id = $1 ORDER BY m.id`
	rows, err := r.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to select project members: %w", err)
	}
	defer rows.Close()
	var members []model.TeamMember
	for rows.Next() {
		var m model.TeamMember
		err := rows.Scan(&m.ID, &m.FirstName, &m.LastName, &m.Email, &m.Role, &m.Avatar, &m.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan team member: %w", err)
		}
		members = append(members, m)
	}
	for i := range members {
		if members[i].ProjectIDs, err = r.memberProjects(ctx, members[i].ID); err != nil {
			return nil, err
		}
	}
	return members, nil
}

// AddMemberToProject связывает участника с проектом; повторное добавление — no-op
func (r *TeamRepository) AddMemberToProject(ctx context.Context, memberID, projectID int) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()
	var existingID int
	row := tx.QueryRowContext(ctx, `SELECT id FROM team_members WHERE id=$1`, memberID)
	if err := row.Scan(&existingID); err != nil {
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		return fmt.Errorf("failed to resolve member: %w", err)
	}
	row = tx.QueryRowContext(ctx, `SELECT id FROM projects WHERE id=$1`, projectID)
	if err := row.Scan(&existingID); err != nil {
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		return fmt.Errorf("failed to resolve project: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO project_members(project_id, member_id) VALUES($1, $2) ON CONFLICT DO NOTHING`,
		projectID, memberID)
	if err != nil {
		return fmt.Errorf("failed to add member to project: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// memberProjects возвращает идентификаторы проектов участника
func (r *TeamRepository) memberProjects(ctx context.Context, memberID int) ([]int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT project_id FROM project_members WHERE member_id=$1 ORDER BY project_id`, memberID)
	if err != nil {
		return nil, fmt.Errorf("failed to select member projects: %w", err)
	}
	defer rows.Close()
	ids := []int{}
	for rows.Next() {
		var pid int
		if err := rows.Scan(&pid); err != nil {
			return nil, fmt.Errorf("failed to scan member project id: %w", err)
		}
		ids = append(ids, pid)
	}
	return ids, nil
}
