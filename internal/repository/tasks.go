package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"ProjectHub/internal/model"
)

// TaskRepository реализует доступ к таблице tasks (доска задач)
type TaskRepository struct {
	db *sql.DB
}

// NewTaskRepository создает новый репозиторий задач
func NewTaskRepository(db *sql.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

const taskColumns = `id, project_id, title, description, status, priority,
	assigned_to_id, assigned_to_name, assigned_to_avatar, due_date, position, version, created_at`

// scanTask читает одну строку задачи в модель, собирая снимок исполнителя из nullable-колонок
func scanTask(row interface{ Scan(...interface{}) error }) (*model.Task, error) {
	var t model.Task
	var assigneeID sql.NullInt64
	var assigneeName sql.NullString
	var assigneeAvatar sql.NullString
	err := row.Scan(&t.ID, &t.ProjectID, &t.Title, &t.Description, &t.Status, &t.Priority,
		&assigneeID, &assigneeName, &assigneeAvatar, &t.DueDate, &t.Position, &t.Version, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	if assigneeID.Valid {
		a := &model.Assignee{ID: int(assigneeID.Int64), Name: assigneeName.String}
		if assigneeAvatar.Valid {
			avatar := assigneeAvatar.String
			a.Avatar = &avatar
		}
		t.AssignedTo = a
	}
	return &t, nil
}

// CreateTask добавляет новую задачу:
// заголовок обязателен, projectID обязан разрешаться в существующий проект
// (строгий вариант: несуществующий проект — ошибка валидации, а не тихая запись),
// status, position, version и created_at выставляются дефолтами и триггером БД
func (r *TaskRepository) CreateTask(ctx context.Context, projectID int, title string, description *string, priority string, dueDate *time.Time) (*model.Task, error) {
	if title == "" {
		return nil, errValidation("title", "cannot be empty")
	}
	if priority == "" {
		priority = model.TaskPriorityMedium
	}
	if !model.ValidTaskPriority(priority) {
		return nil, errValidation("priority", "is not a valid task priority")
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()
	var existingID int
	row := tx.QueryRowContext(ctx, `SELECT id FROM projects WHERE id=$1`, projectID)
	if err := row.Scan(&existingID); err != nil {
		if err == sql.ErrNoRows {
			return nil, errValidation("projectId", "does not reference an existing project")
		}
		return nil, fmt.Errorf("failed to resolve project: %w", err)
	}
	query := `INSERT INTO tasks(project_id, title, description, priority, due_date)
		VALUES($1, $2, $3, $4, $5)
		RETURNING id, status, position, version, created_at`
	var t model.Task
	err = tx.QueryRowContext(ctx, query, projectID, title, description, priority, dueDate).
		Scan(&t.ID, &t.Status, &t.Position, &t.Version, &t.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert task: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	t.ProjectID = projectID
	t.Title = title
	t.Description = description
	t.Priority = priority
	t.DueDate = dueDate
	return &t, nil
}

// GetTask возвращает задачу по id
func (r *TaskRepository) GetTask(ctx context.Context, id int) (*model.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id=$1`
	t, err := scanTask(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return t, nil
}

// ListTasksByProject возвращает задачи проекта, упорядоченные по колонке и позиции внутри нее
func (r *TaskRepository) ListTasksByProject(ctx context.Context, projectID int) ([]model.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE project_id=$1 ORDER BY status, position`
	return r.listTasks(ctx, query, projectID)
}

// ListTasksByAssignee возвращает задачи, назначенные на участника
func (r *TaskRepository) ListTasksByAssignee(ctx context.Context, memberID int) ([]model.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE assigned_to_id=$1 ORDER BY id`
	return r.listTasks(ctx, query, memberID)
}

func (r *TaskRepository) listTasks(ctx context.Context, query string, arg interface{}) ([]model.Task, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to select tasks: %w", err)
	}
	defer rows.Close()
	var tasks []model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	return tasks, nil
}

// TaskPatch описывает частичное обновление задачи; nil-поля не трогаются.
// Смена статуса через патч ставит задачу в конец целевой колонки;
// точное позиционирование выполняет MoveTask
type TaskPatch struct {
	Title       *string
	Description *string
	Status      *string
	Priority    *string
	DueDate     *time.Time
}

// UpdateTask применяет частичное обновление с блокировкой и проверкой версии
func (r *TaskRepository) UpdateTask(ctx context.Context, id int, patch TaskPatch, version int) (*model.Task, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()
	selectQuery := `SELECT project_id, title, description, status, priority, due_date, position, version
		FROM tasks WHERE id=$1 FOR UPDATE`
	var cur struct {
		projectID   int
		title       string
		description *string
		status      string
		priority    string
		dueDate     *time.Time
		position    int
		version     int
	}
	row := tx.QueryRowContext(ctx, selectQuery, id)
	err = row.Scan(&cur.projectID, &cur.title, &cur.description, &cur.status, &cur.priority,
		&cur.dueDate, &cur.position, &cur.version)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to select task for update: %w", err)
	}
	if version > 0 && version != cur.version {
		return nil, ErrConflict
	}
	oldStatus, oldPosition := cur.status, cur.position
	if patch.Title != nil {
		cur.title = *patch.Title
	}
	if patch.Description != nil {
		cur.description = patch.Description
	}
	if patch.Status != nil {
		cur.status = *patch.Status
	}
	if patch.Priority != nil {
		cur.priority = *patch.Priority
	}
	if patch.DueDate != nil {
		cur.dueDate = patch.DueDate
	}
	if cur.title == "" {
		return nil, errValidation("title", "cannot be empty")
	}
	if !model.ValidTaskStatus(cur.status) {
		return nil, errValidation("status", "is not a valid task status")
	}
	if !model.ValidTaskPriority(cur.priority) {
		return nil, errValidation("priority", "is not a valid task priority")
	}
	if cur.status != oldStatus {
		// задача покидает колонку: закрываем разрыв в исходной
		// и встаем в конец целевой
		_, err = tx.ExecContext(ctx,
			`UPDATE tasks SET position = position - 1 WHERE project_id=$1 AND status=$2 AND position > $3`,
			cur.projectID, oldStatus, oldPosition)
		if err != nil {
			return nil, fmt.Errorf("failed to close source column gap: %w", err)
		}
		row := tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(position) + 1, 0) FROM tasks WHERE project_id=$1 AND status=$2 AND id <> $3`,
			cur.projectID, cur.status, id)
		if err := row.Scan(&cur.position); err != nil {
			return nil, fmt.Errorf("failed to compute target column position: %w", err)
		}
	}
	updateQuery := `UPDATE tasks SET title=$1, description=$2, status=$3, priority=$4, due_date=$5,
		position=$6, version=version+1 WHERE id=$7`
	_, err = tx.ExecContext(ctx, updateQuery, cur.title, cur.description, cur.status, cur.priority,
		cur.dueDate, cur.position, id)
	if err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return r.GetTask(ctx, id)
}

// MoveTask переносит задачу в колонку newStatus на позицию newPosition одной транзакцией
// (путь drag-and-drop) и возвращает все изменившиеся позиции.
// Позиции внутри каждой колонки (project_id, status) остаются плотными:
// при переносе внутри колонки сдвигается промежуток между старой и новой позициями,
// при переносе между колонками закрывается разрыв в исходной и раздвигается целевая
func (r *TaskRepository) MoveTask(ctx context.Context, id int, newStatus string, newPosition, version int) ([]model.PositionUpdate, error) {
	if !model.ValidTaskStatus(newStatus) {
		return nil, errValidation("status", "is not a valid task status")
	}
	if newPosition < 0 {
		return nil, errValidation("position", "cannot be negative")
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()
	var projectID, currPosition, currVersion int
	var currStatus string
	row := tx.QueryRowContext(ctx,
		`SELECT project_id, status, position, version FROM tasks WHERE id=$1 FOR UPDATE`, id)
	if err := row.Scan(&projectID, &currStatus, &currPosition, &currVersion); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to select task for move: %w", err)
	}
	if version > 0 && version != currVersion {
		return nil, ErrConflict
	}
	var updates []model.PositionUpdate
	collect := func(rows *sql.Rows, err error, what string) error {
		if err != nil {
			return fmt.Errorf("failed to %s: %w", what, err)
		}
		defer rows.Close()
		for rows.Next() {
			var pu model.PositionUpdate
			if err := rows.Scan(&pu.ID, &pu.Status, &pu.Position); err != nil {
				return fmt.Errorf("failed to scan shifted position: %w", err)
			}
			updates = append(updates, pu)
		}
		return nil
	}
	if newStatus == currStatus {
		// перенос внутри колонки: сдвигаем только промежуток
		if newPosition < currPosition {
			rows, err := tx.QueryContext(ctx,
				`UPDATE tasks SET position = position + 1
				 WHERE project_id=$1 AND status=$2 AND position >= $3 AND position < $4
				 RETURNING id, status, position`,
				projectID, currStatus, newPosition, currPosition)
			if err := collect(rows, err, "shift positions up"); err != nil {
				return nil, err
			}
		} else if newPosition > currPosition {
			rows, err := tx.QueryContext(ctx,
				`UPDATE tasks SET position = position - 1
				 WHERE project_id=$1 AND status=$2 AND position > $3 AND position <= $4
				 RETURNING id, status, position`,
				projectID, currStatus, currPosition, newPosition)
			if err := collect(rows, err, "shift positions down"); err != nil {
				return nil, err
			}
		}
	} else {
		// перенос между колонками: закрываем разрыв в исходной
		rows, err := tx.QueryContext(ctx,
			`UPDATE tasks SET position = position - 1
			 WHERE project_id=$1 AND status=$2 AND position > $3
			 RETURNING id, status, position`,
			projectID, currStatus, currPosition)
		if err := collect(rows, err, "close source column gap"); err != nil {
			return nil, err
		}
		// и раздвигаем целевую под новую позицию
		rows, err = tx.QueryContext(ctx,
			`UPDATE tasks SET position = position + 1
			 WHERE project_id=$1 AND status=$2 AND position >= $3
			 RETURNING id, status, position`,
			projectID, newStatus, newPosition)
		if err := collect(rows, err, "open target column gap"); err != nil {
			return nil, err
		}
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE tasks SET status=$1, position=$2, version=version+1 WHERE id=$3`,
		newStatus, newPosition, id)
	if err != nil {
		return nil, fmt.Errorf("failed to move task: %w", err)
	}
	updates = append(updates, model.PositionUpdate{ID: id, Status: newStatus, Position: newPosition})
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return updates, nil
}

// AssignTask сохраняет на задаче денормализованный снимок участника {id, имя, аватар}.
// Участник обязан существовать; принадлежность к проекту задачи не проверяется —
// членство носит рекомендательный характер и используется только для фильтрации
func (r *TaskRepository) AssignTask(ctx context.Context, taskID, memberID int) (*model.Task, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()
	var existingID int
	row := tx.QueryRowContext(ctx, `SELECT id FROM tasks WHERE id=$1 FOR UPDATE`, taskID)
	if err := row.Scan(&existingID); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to select task for assign: %w", err)
	}
	var name, avatar string
	row = tx.QueryRowContext(ctx,
		`SELECT first_name || ' ' || last_name, avatar FROM team_members WHERE id=$1`, memberID)
	if err := row.Scan(&name, &avatar); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to resolve assignee: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE tasks SET assigned_to_id=$1, assigned_to_name=$2, assigned_to_avatar=$3, version=version+1 WHERE id=$4`,
		memberID, name, avatar, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to assign task: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return r.GetTask(ctx, taskID)
}

// UnassignTask очищает снимок исполнителя задачи
func (r *TaskRepository) UnassignTask(ctx context.Context, taskID int) (*model.Task, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE tasks SET assigned_to_id=NULL, assigned_to_name=NULL, assigned_to_avatar=NULL, version=version+1 WHERE id=$1`,
		taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to unassign task: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to check unassign result: %w", err)
	}
	if affected == 0 {
		return nil, ErrNotFound
	}
	return r.GetTask(ctx, taskID)
}

// DeleteTask удаляет задачу и закрывает разрыв позиций в ее колонке
func (r *TaskRepository) DeleteTask(ctx context.Context, id int) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()
	var projectID, position int
	var status string
	row := tx.QueryRowContext(ctx,
		`SELECT project_id, status, position FROM tasks WHERE id=$1 FOR UPDATE`, id)
	if err := row.Scan(&projectID, &status, &position); err != nil {
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		return fmt.Errorf("failed to select task for delete: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id=$1`, id); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE tasks SET position = position - 1 WHERE project_id=$1 AND status=$2 AND position > $3`,
		projectID, status, position)
	if err != nil {
		return fmt.Errorf("failed to close column gap: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
