package storage

import "time"

type Task struct {
	ID              string
	Title           string
	ScheduledAt     time.Time
	Completed       bool
	Recurring       string
	ReminderMinutes *int
	ElapsedSeconds  int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type LogEntry struct {
	ID        string
	Timestamp time.Time
	Action    string
	TaskID    string
	TaskTitle string
	Details   []byte
}

type TaskListFilter struct {
	Completed        *bool
	OrderByScheduled bool
	Limit            int
	Offset           int
}

type LogListFilter struct {
	TaskID string
	Action string
	From   *time.Time
	To     *time.Time
	Limit  int
	Offset int
}
