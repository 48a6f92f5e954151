// Package tasks owns the durable task collection. All mutation of tasks goes
// through the Store; every mutating call is written through to the repository
// before it returns.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/LuizAGDomingues/task-scheduler/internal/model"
	"github.com/LuizAGDomingues/task-scheduler/internal/storage"
)

type Store struct {
	repo  storage.Repository
	now   func() time.Time
	newID func() string
}

func NewStore(repo storage.Repository) *Store {
	return &Store{
		repo:  repo,
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
}

// WithClock replaces the wall clock. Tests use this for deterministic stamps.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) List(ctx context.Context) ([]model.Task, error) {
	return s.list(ctx, storage.TaskListFilter{})
}

func (s *Store) ListByStatus(ctx context.Context, completed bool) ([]model.Task, error) {
	return s.list(ctx, storage.TaskListFilter{Completed: &completed})
}

func (s *Store) ListByScheduledTime(ctx context.Context) ([]model.Task, error) {
	return s.list(ctx, storage.TaskListFilter{OrderByScheduled: true})
}

func (s *Store) list(ctx context.Context, filter storage.TaskListFilter) ([]model.Task, error) {
	rows, err := s.repo.ListTasks(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	out := make([]model.Task, 0, len(rows))
	for _, row := range rows {
		out = append(out, fromRow(row))
	}
	return out, nil
}

func (s *Store) Get(ctx context.Context, id string) (model.Task, error) {
	row, err := s.repo.GetTask(ctx, id)
	if err != nil {
		return model.Task{}, err
	}
	return fromRow(row), nil
}

// Add validates the draft, assigns identity and timestamps, and persists the
// task before returning the canonical copy.
func (s *Store) Add(ctx context.Context, draft model.Draft) (model.Task, error) {
	if draft.Recurring == "" {
		draft.Recurring = model.RecurrenceNone
	}
	if err := draft.Validate(); err != nil {
		return model.Task{}, err
	}

	now := s.now()
	task := model.Task{
		ID:             s.newID(),
		Title:          draft.Title,
		ScheduledAt:    draft.ScheduledAt,
		Completed:      false,
		Recurring:      draft.Recurring,
		ElapsedSeconds: draft.ElapsedSeconds,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if draft.ReminderMinutes != nil {
		v := *draft.ReminderMinutes
		task.ReminderMinutes = &v
	}

	if err := s.repo.CreateTask(ctx, toRow(task)); err != nil {
		return model.Task{}, fmt.Errorf("persist task: %w", err)
	}
	return task, nil
}

// Update merges the patch onto the stored task, refreshes UpdatedAt and
// persists. Returns storage.ErrNotFound when no task has the id.
func (s *Store) Update(ctx context.Context, id string, patch model.Patch) (model.Task, error) {
	row, err := s.repo.GetTask(ctx, id)
	if err != nil {
		return model.Task{}, err
	}

	task := patch.Apply(fromRow(row))
	task.UpdatedAt = s.now()
	if err := task.Validate(); err != nil {
		return model.Task{}, err
	}

	if err := s.repo.UpdateTask(ctx, toRow(task)); err != nil {
		return model.Task{}, err
	}
	return task, nil
}

// ToggleCompletion flips the completed flag. Returns storage.ErrNotFound when
// no task has the id.
func (s *Store) ToggleCompletion(ctx context.Context, id string) (model.Task, error) {
	row, err := s.repo.GetTask(ctx, id)
	if err != nil {
		return model.Task{}, err
	}

	task := fromRow(row)
	task.Completed = !task.Completed
	task.UpdatedAt = s.now()

	if err := s.repo.UpdateTask(ctx, toRow(task)); err != nil {
		return model.Task{}, err
	}
	return task, nil
}

// Delete removes the task if present and reports whether a removal happened.
// Deleting a missing task is a no-op, not an error.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	err := s.repo.DeleteTask(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("delete task: %w", err)
	}
	return true, nil
}

func toRow(t model.Task) storage.Task {
	row := storage.Task{
		ID:             t.ID,
		Title:          t.Title,
		ScheduledAt:    t.ScheduledAt,
		Completed:      t.Completed,
		Recurring:      string(t.Recurring),
		ElapsedSeconds: t.ElapsedSeconds,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
	}
	if t.ReminderMinutes != nil {
		v := *t.ReminderMinutes
		row.ReminderMinutes = &v
	}
	return row
}

func fromRow(row storage.Task) model.Task {
	task := model.Task{
		ID:             row.ID,
		Title:          row.Title,
		ScheduledAt:    row.ScheduledAt,
		Completed:      row.Completed,
		Recurring:      model.Recurrence(row.Recurring),
		ElapsedSeconds: row.ElapsedSeconds,
		CreatedAt:      row.CreatedAt,
		UpdatedAt:      row.UpdatedAt,
	}
	if row.ReminderMinutes != nil {
		v := *row.ReminderMinutes
		task.ReminderMinutes = &v
	}
	return task
}
