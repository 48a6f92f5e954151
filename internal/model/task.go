package model

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrInvalidTitle         = errors.New("model: task title is required")
	ErrInvalidScheduledTime = errors.New("model: task scheduled time is required")
	ErrNegativeElapsed      = errors.New("model: task elapsed seconds must be non-negative")
)

type Task struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	ScheduledAt     time.Time  `json:"scheduled_at"`
	Completed       bool       `json:"completed"`
	Recurring       Recurrence `json:"recurring"`
	ReminderMinutes *int       `json:"reminder_minutes,omitempty"`
	ElapsedSeconds  int        `json:"elapsed_seconds"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func (t Task) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return errors.New("model: task id is required")
	}
	if strings.TrimSpace(t.Title) == "" {
		return ErrInvalidTitle
	}
	if t.ScheduledAt.IsZero() {
		return ErrInvalidScheduledTime
	}
	if !t.Recurring.IsValid() {
		return ErrInvalidRecurrence
	}
	if t.ElapsedSeconds < 0 {
		return ErrNegativeElapsed
	}
	if t.CreatedAt.IsZero() {
		return errors.New("model: task created_at is required")
	}
	return nil
}

// ReminderAt returns the instant the reminder notification should fire,
// or false when the task carries no reminder offset.
func (t Task) ReminderAt() (time.Time, bool) {
	if t.ReminderMinutes == nil {
		return time.Time{}, false
	}
	return t.ScheduledAt.Add(-time.Duration(*t.ReminderMinutes) * time.Minute), true
}

// Draft is the caller-supplied shape for creating a task. The store assigns
// identity and timestamps.
type Draft struct {
	Title           string
	ScheduledAt     time.Time
	Recurring       Recurrence
	ReminderMinutes *int
	ElapsedSeconds  int
}

func (d Draft) Validate() error {
	if strings.TrimSpace(d.Title) == "" {
		return ErrInvalidTitle
	}
	if d.ScheduledAt.IsZero() {
		return ErrInvalidScheduledTime
	}
	if !d.Recurring.IsValid() {
		return ErrInvalidRecurrence
	}
	if d.ElapsedSeconds < 0 {
		return ErrNegativeElapsed
	}
	return nil
}

// Patch carries a partial update. Nil fields keep the stored value.
// ClearReminder removes the reminder offset and wins over ReminderMinutes.
type Patch struct {
	Title           *string
	ScheduledAt     *time.Time
	Completed       *bool
	Recurring       *Recurrence
	ReminderMinutes *int
	ClearReminder   bool
	ElapsedSeconds  *int
}

// Apply merges the patch onto a stored task and returns the result.
func (p Patch) Apply(t Task) Task {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.ScheduledAt != nil {
		t.ScheduledAt = *p.ScheduledAt
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
	if p.Recurring != nil {
		t.Recurring = *p.Recurring
	}
	if p.ClearReminder {
		t.ReminderMinutes = nil
	} else if p.ReminderMinutes != nil {
		v := *p.ReminderMinutes
		t.ReminderMinutes = &v
	}
	if p.ElapsedSeconds != nil {
		t.ElapsedSeconds = *p.ElapsedSeconds
	}
	return t
}
