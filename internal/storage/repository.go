package storage

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("storage: not found")

type Repository interface {
	CreateTask(ctx context.Context, in Task) error
	GetTask(ctx context.Context, id string) (Task, error)
	UpdateTask(ctx context.Context, in Task) error
	DeleteTask(ctx context.Context, id string) error
	ListTasks(ctx context.Context, filter TaskListFilter) ([]Task, error)

	AppendLog(ctx context.Context, in LogEntry) error
	ListLogs(ctx context.Context, filter LogListFilter) ([]LogEntry, error)
	CountLogs(ctx context.Context) (int, error)
	DeleteOldestLogs(ctx context.Context, n int) error
	ClearLogs(ctx context.Context) error
}
