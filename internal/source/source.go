// Package source returns the most recent sensor reading from a data store.
package source

import (
	"context"
	"errors"

	"predictive-maintenance/internal/models"
)

const (
	KindCSV   = "csv"
	KindRedis = "redis"
)

var (
	// ErrNotFound хранилище показаний отсутствует
	ErrNotFound = errors.New("data source not found")
	// ErrEmpty хранилище есть, но в нем нет ни одной записи
	ErrEmpty = errors.New("data source is empty")
	// ErrMalformed последняя запись не приводится к SensorReading
	ErrMalformed = errors.New("malformed reading")
)

// Source источник последнего показания. Результат не кэшируется.
type Source interface {
	Latest(ctx context.Context) (models.SensorReading, error)
	Name() string
}

// Error ошибка источника с сообщением для клиента
type Error struct {
	Kind   error
	Detail string
}

func (e *Error) Error() string { return e.Detail }

func (e *Error) Is(target error) bool { return target == e.Kind }

func newError(kind error, detail string) *Error {
	return &Error{Kind: kind, Detail: detail}
}
