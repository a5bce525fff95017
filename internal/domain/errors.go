package domain

import (
	"errors"
	"fmt"
)

// Бизнес-ошибки (маппятся на HTTP коды в transport/web)
var (
	ErrBadParams          = errors.New("bad_params")           // 400
	ErrUnauth             = errors.New("unauthorized")         // 401
	ErrNotFound           = errors.New("not_found")            // 404
	ErrMethodNotAllowed   = errors.New("method_not_allowed")   // 405
	ErrTooLarge           = errors.New("too_large")            // 413
	ErrStorageUnavailable = errors.New("storage_unavailable")  // 503
	ErrMetaUnavailable    = errors.New("metadata_unavailable") // 503
	ErrUnexpected         = errors.New("unexpected")           // 500
)

// Коды ошибок в конверте ответа
const (
	ErrCodeBadParams          = 1000
	ErrCodeUnauth             = 1001
	ErrCodeNotFound           = 1002
	ErrCodeMethodNotAllowed   = 1003
	ErrCodeDuplicate          = 1004
	ErrCodeTooLarge           = 1005
	ErrCodeStorageUnavailable = 1006
	ErrCodeMetaUnavailable    = 1007
	ErrCodeUnexpected         = 1100
)

// ConflictError — нарушение уникальности на уровне БД.
// Field — какое именно ограничение сработало ("content_hash" | "storage_key").
type ConflictError struct {
	Field string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict: %s already exists", e.Field)
}

// DuplicateError — контент с таким хэшем уже загружен.
// Не сбой, а ожидаемый бизнес-исход: наружу уходит существующая запись.
type DuplicateError struct {
	Existing Image
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("duplicate content: image %s already exists (hash %s)", e.Existing.ID, e.Existing.ContentHash)
}

func AsDuplicate(err error) (*DuplicateError, bool) {
	var d *DuplicateError
	if errors.As(err, &d) {
		return d, true
	}
	return nil, false
}

func AsConflict(err error) (*ConflictError, bool) {
	var c *ConflictError
	if errors.As(err, &c) {
		return c, true
	}
	return nil, false
}
