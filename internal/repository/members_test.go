package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
)

// Тест приглашения участника: запись с явным аватаром и пустым списком проектов
func TestInviteMember(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()
	repo := NewTeamRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO team_members(first_name, last_name, email, role, avatar)")).
		WithArgs("Alice", "Martin", "alice@x.com", "Chef de projet", "👩‍💼").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(201, time.Now()))

	member, err := repo.InviteMember(context.Background(), "Alice", "Martin", "alice@x.com", "Chef de projet", "👩‍💼")
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if member.ID != 201 || member.Email != "alice@x.com" {
		t.Error("unexpected member result")
	}
	if member.ProjectIDs == nil || len(member.ProjectIDs) != 0 {
		t.Error("new member must start with an empty project list")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

// TestInviteMember_RandomAvatar: пустой аватар заменяется глифом из палитры до записи
func TestInviteMember_RandomAvatar(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer db.Close()
	repo := NewTeamRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO team_members(first_name, last_name, email, role, avatar)")).
		WithArgs("Bob", "Durant", "bob@x.com", "", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(202, time.Now()))

	member, err := repo.InviteMember(context.Background(), "Bob", "Durant", "bob@x.com", "", "")
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if member.Avatar == "" {
		t.Error("expected a palette avatar to be drawn")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

// TestInviteMember_Validation: при ошибке валидации каталог не меняется и id не выделяется
func TestInviteMember_Validation(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer db.Close()
	repo := NewTeamRepository(db)
	ctx := context.Background()

	if _, err := repo.InviteMember(ctx, "", "Martin", "alice@x.com", "", ""); !IsValidation(err) {
		t.Errorf("expected validation error for empty firstName, got %v", err)
	}
	if _, err := repo.InviteMember(ctx, "Alice", "", "alice@x.com", "", ""); !IsValidation(err) {
		t.Errorf("expected validation error for empty lastName, got %v", err)
	}
	if _, err := repo.InviteMember(ctx, "Alice", "Martin", "not-an-email", "", ""); !IsValidation(err) {
		t.Errorf("expected validation error for malformed email, got %v", err)
	}
	// ни одного обращения к БД не ожидалось
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

// TestInviteMember_DuplicateEmail: нарушение уникального индекса — ErrDuplicateEmail
func TestInviteMember_DuplicateEmail(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer db.Close()
	repo := NewTeamRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO team_members(first_name, last_name, email, role, avatar)")).
		WithArgs("Alice", "Martin", "alice@x.com", "", sqlmock.AnyArg()).
		WillReturnError(&pq.Error{Code: "23505"})

	_, err := repo.InviteMember(context.Background(), "Alice", "Martin", "alice@x.com", "", "")
	if !errors.Is(err, ErrDuplicateEmail) {
		t.Errorf("expected ErrDuplicateEmail, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

// Тест чтения участника вместе со списком его проектов
func TestGetMember(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer db.Close()
	repo := NewTeamRepository(db)

	mock.ExpectQuery("SELECT id, first_name, last_name, email, role, avatar, created_at").
		WithArgs(201).
		WillReturnRows(sqlmock.NewRows([]string{"id", "first_name", "last_name", "email", "role", "avatar", "created_at"}).
			AddRow(201, "Alice", "Martin", "alice@x.com", "Chef de projet", "👩‍💼", time.Now()))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT project_id FROM project_members WHERE member_id=$1")).
		WithArgs(201).
		WillReturnRows(sqlmock.NewRows([]string{"project_id"}).AddRow(1).AddRow(3))

	member, err := repo.GetMember(context.Background(), 201)
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if len(member.ProjectIDs) != 2 || member.ProjectIDs[0] != 1 || member.ProjectIDs[1] != 3 {
		t.Errorf("unexpected project ids: %v", member.ProjectIDs)
	}

	mock.ExpectQuery("SELECT id, first_name, last_name, email, role, avatar, created_at").
		WithArgs(999).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	if _, err := repo.GetMember(context.Background(), 999); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

// Тест выборки участников проекта через таблицу связей
func TestListMembersByProject(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer db.Close()
	repo := NewTeamRepository(db)

	mock.ExpectQuery("SELECT m.id, m.first_name, m.last_name, m.email, m.role, m.avatar, m.created_at").
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "first_name", "last_name", "email", "role", "avatar", "created_at"}).
			AddRow(201, "Alice", "Martin", "alice@x.com", "Chef de projet", "👩‍💼", time.Now()))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT project_id FROM project_members WHERE member_id=$1")).
		WithArgs(201).
		WillReturnRows(sqlmock.NewRows([]string{"project_id"}).AddRow(1))

	members, err := repo.ListMembersByProject(context.Background(), 1)
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if len(members) != 1 || members[0].ID != 201 {
		t.Error("unexpected project members")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

// Тест связывания участника с проектом; повторное добавление — no-op по ON CONFLICT
func TestAddMemberToProject(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer db.Close()
	repo := NewTeamRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM team_members WHERE id=$1")).
		WithArgs(201).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(201))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM projects WHERE id=$1")).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO project_members(project_id, member_id)")).
		WithArgs(1, 201).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := repo.AddMemberToProject(context.Background(), 201, 1); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	// несуществующий участник
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM team_members WHERE id=$1")).
		WithArgs(999).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()
	if err := repo.AddMemberToProject(context.Background(), 999, 1); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}
