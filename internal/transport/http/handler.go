package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"ProjectHub/internal/model"
	"ProjectHub/internal/repository"
)

// ProjectService задаёт интерфейс каталога проектов для HTTP-слоя
type ProjectService interface {
	Create(ctx context.Context, name string, description *string, startDate, endDate *time.Time, ownerID int) (*model.Project, error)
	Get(ctx context.Context, id int) (*model.Project, error)
	List(ctx context.Context, limit, offset int) ([]model.Project, int, error)
	Update(ctx context.Context, id int, patch repository.ProjectPatch, version int) (*model.Project, error)
	Delete(ctx context.Context, id int) error
}

// TaskService задаёт интерфейс доски задач для HTTP-слоя
type TaskService interface {
	Create(ctx context.Context, projectID int, title string, description *string, priority string, dueDate *time.Time) (*model.Task, error)
	Get(ctx context.Context, id int) (*model.Task, error)
	ListByProject(ctx context.Context, projectID int) ([]model.Task, error)
	ListByAssignee(ctx context.Context, memberID int) ([]model.Task, error)
	Update(ctx context.Context, id int, patch repository.TaskPatch, version int) (*model.Task, error)
	Move(ctx context.Context, id int, newStatus string, newPosition, version int) ([]model.PositionUpdate, error)
	Assign(ctx context.Context, taskID, memberID int) (*model.Task, error)
	Unassign(ctx context.Context, taskID int) (*model.Task, error)
	Remove(ctx context.Context, id int) error
}

// TeamService задаёт интерфейс каталога участников для HTTP-слоя
type TeamService interface {
	Invite(ctx context.Context, firstName, lastName, email, role, avatar string) (*model.TeamMember, error)
	Get(ctx context.Context, id int) (*model.TeamMember, error)
	ListByProject(ctx context.Context, projectID int) ([]model.TeamMember, error)
	AddToProject(ctx context.Context, memberID, projectID int) error
}

// NotificationService задаёт интерфейс ленты уведомлений для HTTP-слоя
type NotificationService interface {
	List(ctx context.Context, limit, offset int) ([]model.Notification, int, int, error)
	MarkRead(ctx context.Context, id int) error
	MarkAllRead(ctx context.Context) error
	UnreadCount(ctx context.Context) (int, error)
}

// Handler содержит зависимости и реализует HTTP-эндпоинты приложения
type Handler struct {
	projects      ProjectService
	tasks         TaskService
	team          TeamService
	notifications NotificationService
}

// NewHandler создаёт новый HTTP Handler
func NewHandler(projects ProjectService, tasks TaskService, team TeamService, notifications NotificationService) *Handler {
	return &Handler{projects: projects, tasks: tasks, team: team, notifications: notifications}
}

// RegisterRoutes регистрирует маршруты API
func (h *Handler) RegisterRoutes(r *mux.Router) {
	// Эндпоинты для проверки здоровья и готовности сервиса
	r.HandleFunc("/healthz", h.Healthz).Methods("GET")
	r.HandleFunc("/readyz", h.Readyz).Methods("GET")

	r.HandleFunc("/project/create", h.ProjectCreate).Methods("POST")
	r.HandleFunc("/project/get", h.ProjectGet).Methods("GET")
	r.HandleFunc("/projects/list", h.ProjectList).Methods("GET")
	r.HandleFunc("/project/update", h.ProjectUpdate).Methods("PATCH")
	r.HandleFunc("/project/remove", h.ProjectRemove).Methods("DELETE")

	r.HandleFunc("/task/create", h.TaskCreate).Methods("POST")
	r.HandleFunc("/task/get", h.TaskGet).Methods("GET")
	r.HandleFunc("/tasks/listByProject", h.TasksByProject).Methods("GET")
	r.HandleFunc("/tasks/listByAssignee", h.TasksByAssignee).Methods("GET")
	r.HandleFunc("/task/update", h.TaskUpdate).Methods("PATCH")
	r.HandleFunc("/task/move", h.TaskMove).Methods("PATCH")
	r.HandleFunc("/task/assign", h.TaskAssign).Methods("PATCH")
	r.HandleFunc("/task/unassign", h.TaskUnassign).Methods("PATCH")
	r.HandleFunc("/task/remove", h.TaskRemove).Methods("DELETE")

	r.HandleFunc("/member/invite", h.MemberInvite).Methods("POST")
	r.HandleFunc("/member/get", h.MemberGet).Methods("GET")
	r.HandleFunc("/members/listByProject", h.MembersByProject).Methods("GET")
	r.HandleFunc("/member/addToProject", h.MemberAddToProject).Methods("PATCH")

	r.HandleFunc("/notifications/list", h.NotificationsList).Methods("GET")
	r.HandleFunc("/notification/markRead", h.NotificationMarkRead).Methods("PATCH")
	r.HandleFunc("/notifications/markAllRead", h.NotificationsMarkAllRead).Methods("PATCH")
	r.HandleFunc("/notifications/unreadCount", h.NotificationsUnreadCount).Methods("GET")
}

// ErrorResponse модель ошибки API
type ErrorResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details"`
}

func writeError(w http.ResponseWriter, status int, resp ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// writeServiceError транслирует таксономию ошибок ядра в HTTP-статусы:
// валидация — 400, отсутствующий id — 404, несовпадение версии — 409, прочее — 500
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, ErrorResponse{3, "errors.common.notFound", map[string]interface{}{}})
	case errors.Is(err, repository.ErrConflict):
		writeError(w, http.StatusConflict, ErrorResponse{4, "errors.common.versionConflict", map[string]interface{}{}})
	case errors.Is(err, repository.ErrDuplicateEmail):
		writeError(w, http.StatusBadRequest, ErrorResponse{2, "errors.member.duplicateEmail", map[string]interface{}{}})
	case repository.IsValidation(err):
		writeError(w, http.StatusBadRequest, ErrorResponse{2, err.Error(), map[string]interface{}{}})
	default:
		writeError(w, http.StatusInternalServerError, ErrorResponse{1, err.Error(), map[string]interface{}{}})
	}
}

// parseIntParam извлекает и валидирует положительный целый query-параметр
func parseIntParam(r *http.Request, name string) (int, bool) {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}

// parseLimitOffset читает опциональные limit и offset (по умолчанию 20 и 0)
func parseLimitOffset(r *http.Request) (int, int) {
	limit, offset := 20, 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			limit = i
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			offset = i
		}
	}
	return limit, offset
}

// parseDate разбирает календарную дату "2006-01-02", затем RFC3339
func parseDate(s *string) (*time.Time, bool) {
	if s == nil || *s == "" {
		return nil, true
	}
	if t, err := time.Parse("2006-01-02", *s); err == nil {
		return &t, true
	}
	if t, err := time.Parse(time.RFC3339, *s); err == nil {
		return &t, true
	}
	return nil, false
}

// ProjectCreate обрабатывает POST /project/create
func (h *Handler) ProjectCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string  `json:"name"`
		Description *string `json:"description"`
		StartDate   *string `json:"startDate"`
		EndDate     *string `json:"endDate"`
		OwnerID     int     `json:"ownerId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponse{1, "invalid request body", map[string]interface{}{}})
		return
	}
	startDate, ok := parseDate(req.StartDate)
	if !ok {
		writeError(w, http.StatusBadRequest, ErrorResponse{2, "invalid startDate", map[string]interface{}{}})
		return
	}
	endDate, ok := parseDate(req.EndDate)
	if !ok {
		writeError(w, http.StatusBadRequest, ErrorResponse{2, "invalid endDate", map[string]interface{}{}})
		return
	}
	project, err := h.projects.Create(r.Context(), req.Name, req.Description, startDate, endDate, req.OwnerID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, project)
}

// ProjectGet обрабатывает GET /project/get
func (h *Handler) ProjectGet(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIntParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, ErrorResponse{1, "invalid id", map[string]interface{}{}})
		return
	}
	project, err := h.projects.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, project)
}

// ProjectList обрабатывает GET /projects/list
func (h *Handler) ProjectList(w http.ResponseWriter, r *http.Request) {
	limit, offset := parseLimitOffset(r)
	projects, total, err := h.projects.List(r.Context(), limit, offset)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, map[string]interface{}{
		"meta":     map[string]int{"total": total, "limit": limit, "offset": offset},
		"projects": projects,
	})
}

// ProjectUpdate обрабатывает PATCH /project/update; непереданные поля не трогаются
func (h *Handler) ProjectUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIntParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, ErrorResponse{1, "invalid id", map[string]interface{}{}})
		return
	}
	var req struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
		Status      *string `json:"status"`
		Progress    *int    `json:"progress"`
		StartDate   *string `json:"startDate"`
		EndDate     *string `json:"endDate"`
		Version     int     `json:"version"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponse{1, "invalid request body", map[string]interface{}{}})
		return
	}
	startDate, ok := parseDate(req.StartDate)
	if !ok {
		writeError(w, http.StatusBadRequest, ErrorResponse{2, "invalid startDate", map[string]interface{}{}})
		return
	}
	endDate, ok := parseDate(req.EndDate)
	if !ok {
		writeError(w, http.StatusBadRequest, ErrorResponse{2, "invalid endDate", map[string]interface{}{}})
		return
	}
	patch := repository.ProjectPatch{
		Name:        req.Name,
		Description: req.Description,
		Status:      req.Status,
		Progress:    req.Progress,
		StartDate:   startDate,
		EndDate:     endDate,
	}
	project, err := h.projects.Update(r.Context(), id, patch, req.Version)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, project)
}

// ProjectRemove обрабатывает DELETE /project/remove; задачи проекта удаляются каскадом
func (h *Handler) ProjectRemove(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIntParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, ErrorResponse{1, "invalid id", map[string]interface{}{}})
		return
	}
	if err := h.projects.Delete(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, map[string]interface{}{"id": id, "removed": true})
}

// TaskCreate обрабатывает POST /task/create
func (h *Handler) TaskCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProjectID   int     `json:"projectId"`
		Title       string  `json:"title"`
		Description *string `json:"description"`
		Priority    string  `json:"priority"`
		DueDate     *string `json:"dueDate"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponse{1, "invalid request body", map[string]interface{}{}})
		return
	}
	if req.ProjectID <= 0 {
		writeError(w, http.StatusBadRequest, ErrorResponse{1, "invalid projectId", map[string]interface{}{}})
		return
	}
	dueDate, ok := parseDate(req.DueDate)
	if !ok {
		writeError(w, http.StatusBadRequest, ErrorResponse{2, "invalid dueDate", map[string]interface{}{}})
		return
	}
	task, err := h.tasks.Create(r.Context(), req.ProjectID, req.Title, req.Description, req.Priority, dueDate)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, task)
}

// TaskGet обрабатывает GET /task/get
func (h *Handler) TaskGet(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIntParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, ErrorResponse{1, "invalid id", map[string]interface{}{}})
		return
	}
	task, err := h.tasks.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, task)
}

// TasksByProject обрабатывает GET /tasks/listByProject
func (h *Handler) TasksByProject(w http.ResponseWriter, r *http.Request) {
	projectID, ok := parseIntParam(r, "projectId")
	if !ok {
		writeError(w, http.StatusBadRequest, ErrorResponse{1, "invalid projectId", map[string]interface{}{}})
		return
	}
	tasks, err := h.tasks.ListByProject(r.Context(), projectID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, map[string]interface{}{"tasks": tasks})
}

// TasksByAssignee обрабатывает GET /tasks/listByAssignee
func (h *Handler) TasksByAssignee(w http.ResponseWriter, r *http.Request) {
	memberID, ok := parseIntParam(r, "memberId")
	if !ok {
		writeError(w, http.StatusBadRequest, ErrorResponse{1, "invalid memberId", map[string]interface{}{}})
		return
	}
	tasks, err := h.tasks.ListByAssignee(r.Context(), memberID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, map[string]interface{}{"tasks": tasks})
}

// TaskUpdate обрабатывает PATCH /task/update
func (h *Handler) TaskUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIntParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, ErrorResponse{1, "invalid id", map[string]interface{}{}})
		return
	}
	var req struct {
		Title       *string `json:"title"`
		Description *string `json:"description"`
		Status      *string `json:"status"`
		Priority    *string `json:"priority"`
		DueDate     *string `json:"dueDate"`
		Version     int     `json:"version"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponse{1, "invalid request body", map[string]interface{}{}})
		return
	}
	dueDate, ok := parseDate(req.DueDate)
	if !ok {
		writeError(w, http.StatusBadRequest, ErrorResponse{2, "invalid dueDate", map[string]interface{}{}})
		return
	}
	patch := repository.TaskPatch{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		DueDate:     dueDate,
	}
	task, err := h.tasks.Update(r.Context(), id, patch, req.Version)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, task)
}

// TaskMove обрабатывает PATCH /task/move (перенос drag-and-drop одной операцией)
// и возвращает поле positions — массив всех изменившихся позиций
func (h *Handler) TaskMove(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIntParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, ErrorResponse{1, "invalid id", map[string]interface{}{}})
		return
	}
	var req struct {
		NewStatus   string `json:"newStatus"`
		NewPosition int    `json:"newPosition"`
		Version     int    `json:"version"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponse{1, "invalid request body", map[string]interface{}{}})
		return
	}
	updates, err := h.tasks.Move(r.Context(), id, req.NewStatus, req.NewPosition, req.Version)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, map[string]interface{}{"positions": updates})
}

// TaskAssign обрабатывает PATCH /task/assign: кладет на задачу снимок участника
func (h *Handler) TaskAssign(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIntParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, ErrorResponse{1, "invalid id", map[string]interface{}{}})
		return
	}
	memberID, ok := parseIntParam(r, "memberId")
	if !ok {
		writeError(w, http.StatusBadRequest, ErrorResponse{1, "invalid memberId", map[string]interface{}{}})
		return
	}
	task, err := h.tasks.Assign(r.Context(), id, memberID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, task)
}

// TaskUnassign обрабатывает PATCH /task/unassign
func (h *Handler) TaskUnassign(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIntParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, ErrorResponse{1, "invalid id", map[string]interface{}{}})
		return
	}
	task, err := h.tasks.Unassign(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, task)
}

// TaskRemove обрабатывает DELETE /task/remove
func (h *Handler) TaskRemove(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIntParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, ErrorResponse{1, "invalid id", map[string]interface{}{}})
		return
	}
	if err := h.tasks.Remove(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, map[string]interface{}{"id": id, "removed": true})
}

// MemberInvite обрабатывает POST /member/invite
func (h *Handler) MemberInvite(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
		Email     string `json:"email"`
		Role      string `json:"role"`
		Avatar    string `json:"avatar"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponse{1, "invalid request body", map[string]interface{}{}})
		return
	}
	member, err := h.team.Invite(r.Context(), req.FirstName, req.LastName, req.Email, req.Role, req.Avatar)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, member)
}

// MemberGet обрабатывает GET /member/get
func (h *Handler) MemberGet(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIntParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, ErrorResponse{1, "invalid id", map[string]interface{}{}})
		return
	}
	member, err := h.team.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, member)
}

// MembersByProject обрабатывает GET /members/listByProject (наполнение пикера назначений)
func (h *Handler) MembersByProject(w http.ResponseWriter, r *http.Request) {
	projectID, ok := parseIntParam(r, "projectId")
	if !ok {
		writeError(w, http.StatusBadRequest, ErrorResponse{1, "invalid projectId", map[string]interface{}{}})
		return
	}
	members, err := h.team.ListByProject(r.Context(), projectID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, map[string]interface{}{"members": members})
}

// MemberAddToProject обрабатывает PATCH /member/addToProject
func (h *Handler) MemberAddToProject(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIntParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, ErrorResponse{1, "invalid id", map[string]interface{}{}})
		return
	}
	projectID, ok := parseIntParam(r, "projectId")
	if !ok {
		writeError(w, http.StatusBadRequest, ErrorResponse{1, "invalid projectId", map[string]interface{}{}})
		return
	}
	if err := h.team.AddToProject(r.Context(), id, projectID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, map[string]interface{}{"memberId": id, "projectId": projectID, "added": true})
}

// NotificationsList обрабатывает GET /notifications/list
func (h *Handler) NotificationsList(w http.ResponseWriter, r *http.Request) {
	limit, offset := parseLimitOffset(r)
	list, total, unread, err := h.notifications.List(r.Context(), limit, offset)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, map[string]interface{}{
		"meta":          map[string]int{"total": total, "unread": unread, "limit": limit, "offset": offset},
		"notifications": list,
	})
}

// NotificationMarkRead обрабатывает PATCH /notification/markRead;
// отсутствующий или уже прочитанный id — успешный no-op
func (h *Handler) NotificationMarkRead(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIntParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, ErrorResponse{1, "invalid id", map[string]interface{}{}})
		return
	}
	if err := h.notifications.MarkRead(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, map[string]interface{}{"id": id, "read": true})
}

// NotificationsMarkAllRead обрабатывает PATCH /notifications/markAllRead
func (h *Handler) NotificationsMarkAllRead(w http.ResponseWriter, r *http.Request) {
	if err := h.notifications.MarkAllRead(r.Context()); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, map[string]interface{}{"read": true})
}

// NotificationsUnreadCount обрабатывает GET /notifications/unreadCount
func (h *Handler) NotificationsUnreadCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.notifications.UnreadCount(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, map[string]interface{}{"unread": count})
}

// Healthz возвращает статус работы сервиса
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// Readyz возвращает готовность сервиса
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ready"}`))
}
