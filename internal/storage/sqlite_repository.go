package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const sqliteTimeLayout = time.RFC3339Nano

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(db *sql.DB) (*SQLiteRepository, error) {
	if db == nil {
		return nil, errors.New("storage: nil db")
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	return &SQLiteRepository{db: db}, nil
}

func OpenSQLite(path string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	repo, err := NewSQLiteRepository(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

func (r *SQLiteRepository) DB() *sql.DB {
	return r.db
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

func (r *SQLiteRepository) CreateTask(ctx context.Context, in Task) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tasks (id, title, scheduled_at, completed, recurring, reminder_minutes, elapsed_seconds, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.ID, in.Title, mustTime(in.ScheduledAt), boolInt(in.Completed), in.Recurring,
		nullInt(in.ReminderMinutes), in.ElapsedSeconds, mustTime(in.CreatedAt), mustTime(in.UpdatedAt),
	)
	return err
}

func (r *SQLiteRepository) GetTask(ctx context.Context, id string) (Task, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, title, scheduled_at, completed, recurring, reminder_minutes, elapsed_seconds, created_at, updated_at
		FROM tasks WHERE id = ?`, id)
	task, err := scanTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Task{}, ErrNotFound
		}
		return Task{}, err
	}
	return task, nil
}

func (r *SQLiteRepository) UpdateTask(ctx context.Context, in Task) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE tasks
		SET title = ?, scheduled_at = ?, completed = ?, recurring = ?, reminder_minutes = ?, elapsed_seconds = ?, updated_at = ?
		WHERE id = ?`,
		in.Title, mustTime(in.ScheduledAt), boolInt(in.Completed), in.Recurring,
		nullInt(in.ReminderMinutes), in.ElapsedSeconds, mustTime(in.UpdatedAt), in.ID,
	)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (r *SQLiteRepository) DeleteTask(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (r *SQLiteRepository) ListTasks(ctx context.Context, filter TaskListFilter) ([]Task, error) {
	query := `SELECT id, title, scheduled_at, completed, recurring, reminder_minutes, elapsed_seconds, created_at, updated_at FROM tasks`
	args := make([]any, 0, 3)
	if filter.Completed != nil {
		query += ` WHERE completed = ?`
		args = append(args, boolInt(*filter.Completed))
	}
	if filter.OrderByScheduled {
		query += ` ORDER BY scheduled_at ASC`
	} else {
		query += ` ORDER BY created_at ASC`
	}
	query += applyPagination(&args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Task, 0)
	for rows.Next() {
		task, scanErr := scanTask(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, task)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) AppendLog(ctx context.Context, in LogEntry) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO activity_logs (id, timestamp, action, task_id, task_title, details)
		VALUES (?, ?, ?, ?, ?, ?)`,
		in.ID, mustTime(in.Timestamp), in.Action, in.TaskID, in.TaskTitle, string(in.Details),
	)
	return err
}

func (r *SQLiteRepository) ListLogs(ctx context.Context, filter LogListFilter) ([]LogEntry, error) {
	query := `SELECT id, timestamp, action, task_id, task_title, details FROM activity_logs`
	clauses := make([]string, 0, 2)
	args := make([]any, 0, 4)
	if filter.TaskID != "" {
		clauses = append(clauses, "task_id = ?")
		args = append(args, filter.TaskID)
	}
	if filter.Action != "" {
		clauses = append(clauses, "action = ?")
		args = append(args, filter.Action)
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	// Insertion order, oldest first. rowid is the append sequence.
	query += ` ORDER BY rowid ASC`
	query += applyPagination(&args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]LogEntry, 0)
	for rows.Next() {
		entry, scanErr := scanLogEntry(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		if filter.From != nil && entry.Timestamp.Before(*filter.From) {
			continue
		}
		if filter.To != nil && entry.Timestamp.After(*filter.To) {
			continue
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) CountLogs(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM activity_logs`).Scan(&count)
	return count, err
}

func (r *SQLiteRepository) DeleteOldestLogs(ctx context.Context, n int) error {
	if n <= 0 {
		return nil
	}
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM activity_logs
		WHERE rowid IN (SELECT rowid FROM activity_logs ORDER BY rowid ASC LIMIT ?)`, n)
	return err
}

func (r *SQLiteRepository) ClearLogs(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM activity_logs`)
	return err
}

func mustTime(v time.Time) string {
	return v.UTC().Format(sqliteTimeLayout)
}

func parseRequiredTime(v string) (time.Time, error) {
	return time.Parse(sqliteTimeLayout, v)
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func nullInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func applyPagination(args *[]any, limit, offset int) string {
	sql := ""
	if limit > 0 {
		sql += " LIMIT ?"
		*args = append(*args, limit)
	}
	if offset > 0 {
		sql += " OFFSET ?"
		*args = append(*args, offset)
	}
	return sql
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(s scanner) (Task, error) {
	var out Task
	var scheduled string
	var completed int
	var reminder sql.NullInt64
	var created string
	var updated string
	if err := s.Scan(&out.ID, &out.Title, &scheduled, &completed, &out.Recurring, &reminder, &out.ElapsedSeconds, &created, &updated); err != nil {
		return Task{}, err
	}
	scheduledAt, err := parseRequiredTime(scheduled)
	if err != nil {
		return Task{}, err
	}
	createdAt, err := parseRequiredTime(created)
	if err != nil {
		return Task{}, err
	}
	updatedAt, err := parseRequiredTime(updated)
	if err != nil {
		return Task{}, err
	}
	out.ScheduledAt = scheduledAt
	out.Completed = completed == 1
	out.CreatedAt = createdAt
	out.UpdatedAt = updatedAt
	if reminder.Valid {
		v := int(reminder.Int64)
		out.ReminderMinutes = &v
	}
	return out, nil
}

func scanLogEntry(s scanner) (LogEntry, error) {
	var out LogEntry
	var stamp string
	var taskID sql.NullString
	var taskTitle sql.NullString
	var details string
	if err := s.Scan(&out.ID, &stamp, &out.Action, &taskID, &taskTitle, &details); err != nil {
		return LogEntry{}, err
	}
	timestamp, err := parseRequiredTime(stamp)
	if err != nil {
		return LogEntry{}, err
	}
	out.Timestamp = timestamp
	out.TaskID = taskID.String
	out.TaskTitle = taskTitle.String
	out.Details = []byte(details)
	return out, nil
}

func checkRowsAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
