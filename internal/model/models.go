package model

import (
	"math/rand"
	"regexp"
	"time"
)

// Статусы проекта (таблица projects)
const (
	ProjectStatusDraft     = "draft"
	ProjectStatusActive    = "active"
	ProjectStatusCompleted = "completed"
	ProjectStatusArchived  = "archived"
)

// Статусы задачи (колонки доски)
const (
	TaskStatusTodo       = "todo"
	TaskStatusInProgress = "in-progress"
	TaskStatusReview     = "review"
	TaskStatusDone       = "done"
)

// Приоритеты задачи
const (
	TaskPriorityLow    = "low"
	TaskPriorityMedium = "medium"
	TaskPriorityHigh   = "high"
	TaskPriorityUrgent = "urgent"
)

// Типы уведомлений; словарь открытый, это базовый набор
const (
	NotificationInfo    = "info"
	NotificationSuccess = "success"
	NotificationWarning = "warning"
	NotificationProject = "project"
	NotificationTask    = "task"
)

// Project представляет проект (таблица projects)
// TasksCount и MembersCount считаются подзапросами при чтении и не хранятся
type Project struct {
	ID           int        `db:"id" json:"id"`
	Name         string     `db:"name" json:"name"`
	Description  *string    `db:"description" json:"description,omitempty"`
	Status       string     `db:"status" json:"status"`
	Progress     int        `db:"progress" json:"progress"`
	StartDate    *time.Time `db:"start_date" json:"startDate,omitempty"`
	EndDate      *time.Time `db:"end_date" json:"endDate,omitempty"`
	OwnerID      int        `db:"owner_id" json:"ownerId"`
	OwnerName    string     `db:"owner_name" json:"ownerName"`
	TasksCount   int        `db:"tasks_count" json:"tasksCount"`
	MembersCount int        `db:"members_count" json:"membersCount"`
	Version      int        `db:"version" json:"version"`
	CreatedAt    time.Time  `db:"created_at" json:"createdAt"`
}

// Assignee представляет денормализованный снимок исполнителя задачи,
// сохранённый на момент назначения; переименование участника его не меняет
type Assignee struct {
	ID     int     `json:"id"`
	Name   string  `json:"name"`
	Avatar *string `json:"avatar,omitempty"`
}

// Task представляет задачу на доске (таблица tasks)
type Task struct {
	ID          int        `db:"id" json:"id"`
	ProjectID   int        `db:"project_id" json:"projectId"`
	Title       string     `db:"title" json:"title"`
	Description *string    `db:"description" json:"description,omitempty"`
	Status      string     `db:"status" json:"status"`
	Priority    string     `db:"priority" json:"priority"`
	AssignedTo  *Assignee  `json:"assignedTo,omitempty"`
	DueDate     *time.Time `db:"due_date" json:"dueDate,omitempty"`
	Position    int        `db:"position" json:"position"`
	Version     int        `db:"version" json:"version"`
	CreatedAt   time.Time  `db:"created_at" json:"createdAt"`
}

// TeamMember представляет участника команды (таблица team_members)
// ProjectIDs заполняется из таблицы связей project_members
type TeamMember struct {
	ID         int       `db:"id" json:"id"`
	FirstName  string    `db:"first_name" json:"firstName"`
	LastName   string    `db:"last_name" json:"lastName"`
	Email      string    `db:"email" json:"email"`
	Role       string    `db:"role" json:"role"`
	Avatar     string    `db:"avatar" json:"avatar"`
	ProjectIDs []int     `json:"projectIds"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}

// Notification представляет запись ленты уведомлений (таблица notifications)
type Notification struct {
	ID        int       `db:"id" json:"id"`
	Type      string    `db:"type" json:"type"`
	Title     string    `db:"title" json:"title"`
	Message   string    `db:"message" json:"message"`
	Read      bool      `db:"read" json:"read"`
	ProjectID *int      `db:"project_id" json:"projectId,omitempty"`
	TaskID    *int      `db:"task_id" json:"taskId,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"timestamp"`
}

// PositionUpdate представляет изменение позиции задачи на доске
// ID — идентификатор задачи, Status — колонка, Position — новая позиция
type PositionUpdate struct {
	ID       int    `db:"id" json:"id"`
	Status   string `db:"status" json:"status"`
	Position int    `db:"position" json:"position"`
}

// Event представляет событие мутации для аудит-лога: публикуется в NATS,
// складывается консьюмером в ClickHouse
type Event struct {
	Entity     string    `json:"entity"`
	Action     string    `json:"action"`
	EntityID   int       `json:"entityId"`
	ProjectID  int       `json:"projectId"`
	Payload    string    `json:"payload"`
	OccurredAt time.Time `json:"occurredAt"`
}

// ValidTaskStatus проверяет, что статус входит в словарь колонок доски
func ValidTaskStatus(s string) bool {
	switch s {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusReview, TaskStatusDone:
		return true
	}
	return false
}

// ValidTaskPriority проверяет приоритет задачи
func ValidTaskPriority(p string) bool {
	switch p {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh, TaskPriorityUrgent:
		return true
	}
	return false
}

// ValidProjectStatus проверяет статус проекта
func ValidProjectStatus(s string) bool {
	switch s {
	case ProjectStatusDraft, ProjectStatusActive, ProjectStatusCompleted, ProjectStatusArchived:
		return true
	}
	return false
}

// emailRe задаёт базовую форму local@domain.tld, без попытки полного RFC
var emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// ValidEmail проверяет адрес на форму local@domain.tld
func ValidEmail(email string) bool {
	return emailRe.MatchString(email)
}

// avatarPalette — фиксированная палитра из 10 глифов для новых участников
var avatarPalette = []string{
	"👨‍💻", "👩‍💻", "👨‍💼", "👩‍💼", "👨‍🎨", "👩‍🎨", "👨‍🔬", "👩‍🔬", "🧑‍💻", "🧑‍💼",
}

// RandomAvatar возвращает случайный глиф из палитры;
// используется, когда аватар не указан при приглашении
func RandomAvatar() string {
	return avatarPalette[rand.Intn(len(avatarPalette))]
}
