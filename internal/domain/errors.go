package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrOrderNotFound возвращается, если заказ не найден в репозитории.
	ErrOrderNotFound = errors.New("order not found")
	// ErrOutboxPublish: ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")
)

// PersistenceError оборачивает сбой хранилища вместе с названием операции.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	if e.Err == nil {
		return e.Op
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Cause возвращает текст исходной ошибки хранилища.
func (e *PersistenceError) Cause() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

// ErrorKind классифицирует результат операции сервиса.
type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindValidation
	KindNotFound
	KindPersistence
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	default:
		return "persistence"
	}
}

// KindOf определяет вид ошибки. Всё, что не распознано, считается сбоем хранилища.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	var verr ValidationErrors
	if errors.As(err, &verr) {
		return KindValidation
	}
	if errors.Is(err, ErrOrderNotFound) {
		return KindNotFound
	}
	return KindPersistence
}
