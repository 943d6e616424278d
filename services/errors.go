package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	// Аутентификация и авторизация
	ErrUnauthenticated    = errors.New("authentication required")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrForbidden          = errors.New("operation not allowed for the current user")

	// Ресурс не найден
	ErrNotFound        = errors.New("requested resource not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrTeamNotFound    = errors.New("team not found, please register your team first")
	ErrPaymentNotFound = errors.New("no payment found for this team")
	ErrContactNotFound = errors.New("contact not found")

	// Конфликты уникальности
	ErrEmailTaken            = errors.New("email already registered")
	ErrTeamAlreadyRegistered = errors.New("you have already registered a team")
	ErrTeamNameTaken         = errors.New("team name already taken")
	ErrTransactionIDTaken    = errors.New("transaction id has already been submitted")
	ErrOrderIDTaken          = errors.New("order id has already been used")

	// Бизнес-правила
	ErrValidationFailed   = errors.New("validation failed")
	ErrDeadlinePassed     = errors.New("registration deadline has passed")
	ErrTeamLocked         = errors.New("cannot edit team after payment verification")
	ErrStorageUnavailable = errors.New("receipt storage is not configured")
)

// ValidationError carries per-field messages and matches ErrValidationFailed.
type ValidationError struct {
	Fields map[string]string
}

func newValidationError(fields map[string]string) *ValidationError {
	return &ValidationError{Fields: fields}
}

func fieldError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return ErrValidationFailed.Error() + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrValidationFailed
}
