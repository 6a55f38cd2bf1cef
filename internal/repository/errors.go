package repository

import (
	"errors"
	"fmt"
)

// ErrNotFound возвращается при отсутствии записи
var ErrNotFound = errors.New("record not found")

// ErrConflict возвращается при несовпадении версии записи (оптимистическая блокировка)
var ErrConflict = errors.New("version conflict")

// ErrDuplicateEmail возвращается при попытке пригласить участника с уже занятым email
var ErrDuplicateEmail = errors.New("email already registered")

// ValidationError возвращается при отсутствующем или некорректном обязательном поле.
// Валидация выполняется до какой-либо записи в БД, частичных записей не бывает
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// errValidation собирает ValidationError для поля field с причиной reason
func errValidation(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidation сообщает, является ли ошибка ошибкой валидации
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
