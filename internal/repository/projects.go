package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"ProjectHub/internal/model"
)

// ProjectRepository реализует доступ к таблице projects
type ProjectRepository struct {
	db *sql.DB
}

// NewProjectRepository создает новый репозиторий проектов
func NewProjectRepository(db *sql.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// projectColumns — список колонок проекта вместе с подзапросами счетчиков;
// tasks_count и members_count не хранятся, а считаются при каждом чтении
const projectColumns = `p.id, p.name, p.description, p.status, p.progress, p.start_date, p.end_date,
	p.owner_id, p.owner_name, p.version, p.created_at,
	(SELECT COUNT(*) FROM tasks t WHERE t.project_id = p.id) AS tasks_count,
	(SELECT COUNT(*) FROM project_members pm WHERE pm.project_id = p.id) AS members_count`

// scanProject читает одну строку проекта в модель
func scanProject(row interface{ Scan(...interface{}) error }) (*model.Project, error) {
	var p model.Project
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Status, &p.Progress, &p.StartDate, &p.EndDate,
		&p.OwnerID, &p.OwnerName, &p.Version, &p.CreatedAt, &p.TasksCount, &p.MembersCount)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateProject добавляет новый проект:
// имя обязательно, владелец должен существовать в team_members,
// status, progress, version и created_at выставляются дефолтами БД
func (r *ProjectRepository) CreateProject(ctx context.Context, name string, description *string, startDate, endDate *time.Time, ownerID int) (*model.Project, error) {
	if name == "" {
		return nil, errValidation("name", "cannot be empty")
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()
	// снимок имени владельца сохраняется на момент создания
	var ownerName string
	row := tx.QueryRowContext(ctx, `SELECT first_name || ' ' || last_name FROM team_members WHERE id=$1`, ownerID)
	if err := row.Scan(&ownerName); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to resolve project owner: %w", err)
	}
	query := `INSERT INTO projects(name, description, start_date, end_date, owner_id, owner_name)
		VALUES($1, $2, $3, $4, $5, $6)
		RETURNING id, status, progress, version, created_at`
	var p model.Project
	err = tx.QueryRowContext(ctx, query, name, description, startDate, endDate, ownerID, ownerName).
		Scan(&p.ID, &p.Status, &p.Progress, &p.Version, &p.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert project: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	p.Name = name
	p.Description = description
	p.StartDate = startDate
	p.EndDate = endDate
	p.OwnerID = ownerID
	p.OwnerName = ownerName
	return &p, nil
}

// GetProject возвращает проект по id вместе со счетчиками задач и участников
func (r *ProjectRepository) GetProject(ctx context.Context, id int) (*model.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects p WHERE p.id=$1`
	p, err := scanProject(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return p, nil
}

// ListProjects возвращает проекты в порядке создания с пагинацией и общее число записей
func (r *ProjectRepository) ListProjects(ctx context.Context, limit, offset int) ([]model.Project, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM projects`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count projects: %w", err)
	}
	query := `SELECT ` + projectColumns + ` FROM projects p ORDER BY p.id LIMIT $1 OFFSET $2`
	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to select projects list: %w", err)
	}
	defer rows.Close()
	var projects []model.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, *p)
	}
	return projects, total, nil
}

// ProjectPatch описывает частичное обновление проекта; nil-поля не трогаются
type ProjectPatch struct {
	Name        *string
	Description *string
	Status      *string
	Progress    *int
	StartDate   *time.Time
	EndDate     *time.Time
}

// UpdateProject применяет частичное обновление с блокировкой и проверкой версии:
// version > 0 сравнивается с текущей версией записи, несовпадение — ErrConflict;
// version == 0 пропускает проверку (одиночный клиент)
func (r *ProjectRepository) UpdateProject(ctx context.Context, id int, patch ProjectPatch, version int) (*model.Project, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()
	selectQuery := `SELECT name, description, status, progress, start_date, end_date, version
		FROM projects WHERE id=$1 FOR UPDATE`
	var cur struct {
		name        string
		description *string
		status      string
		progress    int
		startDate   *time.Time
		endDate     *time.Time
		version     int
	}
	row := tx.QueryRowContext(ctx, selectQuery, id)
	err = row.Scan(&cur.name, &cur.description, &cur.status, &cur.progress, &cur.startDate, &cur.endDate, &cur.version)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to select project for update: %w", err)
	}
	if version > 0 && version != cur.version {
		return nil, ErrConflict
	}
	// накладываем патч поверх текущих значений
	if patch.Name != nil {
		cur.name = *patch.Name
	}
	if patch.Description != nil {
		cur.description = patch.Description
	}
	if patch.Status != nil {
		cur.status = *patch.Status
	}
	if patch.Progress != nil {
		cur.progress = *patch.Progress
	}
	if patch.StartDate != nil {
		cur.startDate = patch.StartDate
	}
	if patch.EndDate != nil {
		cur.endDate = patch.EndDate
	}
	// валидация итогового состояния до записи
	if cur.name == "" {
		return nil, errValidation("name", "cannot be empty")
	}
	if !model.ValidProjectStatus(cur.status) {
		return nil, errValidation("status", "is not a valid project status")
	}
	if cur.progress < 0 || cur.progress > 100 {
		return nil, errValidation("progress", "must be within [0,100]")
	}
	updateQuery := `UPDATE projects SET name=$1, description=$2, status=$3, progress=$4,
		start_date=$5, end_date=$6, version=version+1 WHERE id=$7`
	_, err = tx.ExecContext(ctx, updateQuery, cur.name, cur.description, cur.status, cur.progress,
		cur.startDate, cur.endDate, id)
	if err != nil {
		return nil, fmt.Errorf("failed to update project: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return r.GetProject(ctx, id)
}

// DeleteProject удаляет проект; задачи проекта удаляются каскадом по внешнему ключу.
// Возвращает идентификаторы удаленных задач для инвалидирования кэша и аудита
func (r *ProjectRepository) DeleteProject(ctx context.Context, id int) ([]int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()
	var existingID int
	row := tx.QueryRowContext(ctx, `SELECT id FROM projects WHERE id=$1 FOR UPDATE`, id)
	if err := row.Scan(&existingID); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to select project for delete: %w", err)
	}
	rows, err := tx.QueryContext(ctx, `SELECT id FROM tasks WHERE project_id=$1 ORDER BY id`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to select cascading tasks: %w", err)
	}
	defer rows.Close()
	var taskIDs []int
	for rows.Next() {
		var tid int
		if err := rows.Scan(&tid); err != nil {
			return nil, fmt.Errorf("failed to scan cascading task id: %w", err)
		}
		taskIDs = append(taskIDs, tid)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM projects WHERE id=$1`, id); err != nil {
		return nil, fmt.Errorf("failed to delete project: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return taskIDs, nil
}
