package models

import (
	"errors"
	"fmt"
	"net/http"
)

// Типы ошибок бизнес-логики
type ErrorKind string

const (
	ErrValidation        ErrorKind = "validation_error"
	ErrInvalidTransition ErrorKind = "invalid_state_transition"
	ErrScopeViolation    ErrorKind = "scope_violation"
	ErrNotFound          ErrorKind = "not_found"
)

// AppError — ошибка ядра с типом для маппинга в HTTP-статус
type AppError struct {
	Kind    ErrorKind
	Message string
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func Validationf(format string, args ...interface{}) *AppError {
	return &AppError{Kind: ErrValidation, Message: fmt.Sprintf(format, args...)}
}

func InvalidTransitionf(format string, args ...interface{}) *AppError {
	return &AppError{Kind: ErrInvalidTransition, Message: fmt.Sprintf(format, args...)}
}

func ScopeViolationf(format string, args ...interface{}) *AppError {
	return &AppError{Kind: ErrScopeViolation, Message: fmt.Sprintf(format, args...)}
}

func NotFoundf(format string, args ...interface{}) *AppError {
	return &AppError{Kind: ErrNotFound, Message: fmt.Sprintf(format, args...)}
}

// KindOf возвращает тип ошибки (пустая строка для неизвестных)
func KindOf(err error) ErrorKind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}

// HTTPStatus подбирает HTTP-статус под тип ошибки
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case ErrValidation:
		return http.StatusBadRequest
	case ErrInvalidTransition:
		return http.StatusConflict
	case ErrScopeViolation:
		return http.StatusForbidden
	case ErrNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
