// Package activity owns the append-only audit trail of task lifecycle
// events. The log survives deletion of the tasks it mentions; entries relate
// to tasks by id value only.
package activity

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/LuizAGDomingues/task-scheduler/internal/model"
	"github.com/LuizAGDomingues/task-scheduler/internal/storage"
)

// DefaultCapacity bounds the log so the store cannot grow without limit.
const DefaultCapacity = 1000

type Log struct {
	repo     storage.Repository
	capacity int
	now      func() time.Time
	newID    func() string
}

func NewLog(repo storage.Repository, capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Log{
		repo:     repo,
		capacity: capacity,
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
	}
}

func (l *Log) WithClock(now func() time.Time) *Log {
	l.now = now
	return l
}

// Append stamps and persists a new entry, then evicts the oldest entries
// once the capacity is exceeded.
func (l *Log) Append(ctx context.Context, action model.Action, details model.Details) (model.LogEntry, error) {
	entry := model.NewLogEntry(l.newID(), l.now(), action, details)
	if err := entry.Validate(); err != nil {
		return model.LogEntry{}, err
	}

	raw, err := model.EncodeDetails(details)
	if err != nil {
		return model.LogEntry{}, err
	}

	row := storage.LogEntry{
		ID:        entry.ID,
		Timestamp: entry.Timestamp,
		Action:    string(entry.Action),
		TaskID:    entry.TaskID,
		TaskTitle: entry.TaskTitle,
		Details:   raw,
	}
	if err := l.repo.AppendLog(ctx, row); err != nil {
		return model.LogEntry{}, fmt.Errorf("append log: %w", err)
	}

	count, err := l.repo.CountLogs(ctx)
	if err != nil {
		return model.LogEntry{}, fmt.Errorf("count logs: %w", err)
	}
	if over := count - l.capacity; over > 0 {
		if err := l.repo.DeleteOldestLogs(ctx, over); err != nil {
			return model.LogEntry{}, fmt.Errorf("evict logs: %w", err)
		}
	}
	return entry, nil
}

func (l *Log) All(ctx context.Context) ([]model.LogEntry, error) {
	return l.list(ctx, storage.LogListFilter{})
}

func (l *Log) ByTask(ctx context.Context, taskID string) ([]model.LogEntry, error) {
	return l.list(ctx, storage.LogListFilter{TaskID: taskID})
}

func (l *Log) ByAction(ctx context.Context, action model.Action) ([]model.LogEntry, error) {
	return l.list(ctx, storage.LogListFilter{Action: string(action)})
}

func (l *Log) InRange(ctx context.Context, start, end time.Time) ([]model.LogEntry, error) {
	return l.list(ctx, storage.LogListFilter{From: &start, To: &end})
}

func (l *Log) Clear(ctx context.Context) error {
	return l.repo.ClearLogs(ctx)
}

func (l *Log) list(ctx context.Context, filter storage.LogListFilter) ([]model.LogEntry, error) {
	rows, err := l.repo.ListLogs(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list logs: %w", err)
	}
	out := make([]model.LogEntry, 0, len(rows))
	for _, row := range rows {
		entry, decodeErr := fromRow(row)
		if decodeErr != nil {
			return nil, decodeErr
		}
		out = append(out, entry)
	}
	return out, nil
}

func fromRow(row storage.LogEntry) (model.LogEntry, error) {
	details, err := model.DecodeDetails(model.Action(row.Action), row.Details)
	if err != nil {
		return model.LogEntry{}, err
	}
	return model.LogEntry{
		ID:        row.ID,
		Timestamp: row.Timestamp,
		Action:    model.Action(row.Action),
		TaskID:    row.TaskID,
		TaskTitle: row.TaskTitle,
		Details:   details,
	}, nil
}
