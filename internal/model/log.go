package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var ErrInvalidAction = errors.New("model: invalid log action")

type Action string

const (
	ActionCreate          Action = "create"
	ActionCreateRecurring Action = "create_recurring"
	ActionUpdate          Action = "update"
	ActionDelete          Action = "delete"
	ActionComplete        Action = "complete"
	ActionUncomplete      Action = "uncomplete"
	ActionTimerStarted    Action = "timer_started"
	ActionTimerPaused     Action = "timer_paused"
)

func (a Action) IsValid() bool {
	switch a {
	case ActionCreate, ActionCreateRecurring, ActionUpdate, ActionDelete,
		ActionComplete, ActionUncomplete, ActionTimerStarted, ActionTimerPaused:
		return true
	default:
		return false
	}
}

// Details is the action-specific payload of a log entry. The action tag on
// the entry decides which concrete shape the payload has.
type Details interface {
	logTask() Task
}

// TaskDetails snapshots the task as it was when the action happened. Used by
// create, create_recurring, delete, complete and uncomplete entries.
type TaskDetails struct {
	Task Task `json:"task"`
}

func (d TaskDetails) logTask() Task { return d.Task }

// UpdateDetails captures the task before and after an edit.
type UpdateDetails struct {
	Before Task `json:"before"`
	After  Task `json:"after"`
}

func (d UpdateDetails) logTask() Task { return d.After }

// TimerDetails records a timer edge together with the accumulated total.
type TimerDetails struct {
	Task           Task `json:"task"`
	ElapsedSeconds int  `json:"elapsed_seconds"`
}

func (d TimerDetails) logTask() Task { return d.Task }

type LogEntry struct {
	ID        string
	Timestamp time.Time
	Action    Action
	TaskID    string
	TaskTitle string
	Details   Details
}

func (e LogEntry) Validate() error {
	if e.Timestamp.IsZero() {
		return errors.New("model: log timestamp is required")
	}
	if !e.Action.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidAction, e.Action)
	}
	if e.Details == nil {
		return errors.New("model: log details are required")
	}
	return nil
}

// NewLogEntry stamps an entry and lifts the task id and title out of the
// details for cheap lookup.
func NewLogEntry(id string, at time.Time, action Action, details Details) LogEntry {
	entry := LogEntry{
		ID:        id,
		Timestamp: at,
		Action:    action,
		Details:   details,
	}
	if details != nil {
		task := details.logTask()
		entry.TaskID = task.ID
		entry.TaskTitle = task.Title
	}
	return entry
}

func EncodeDetails(d Details) ([]byte, error) {
	if d == nil {
		return nil, errors.New("model: nil log details")
	}
	return json.Marshal(d)
}

// DecodeDetails picks the payload shape from the action tag.
func DecodeDetails(action Action, raw []byte) (Details, error) {
	switch action {
	case ActionUpdate:
		var d UpdateDetails
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, fmt.Errorf("decode update details: %w", err)
		}
		return d, nil
	case ActionTimerStarted, ActionTimerPaused:
		var d TimerDetails
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, fmt.Errorf("decode timer details: %w", err)
		}
		return d, nil
	case ActionCreate, ActionCreateRecurring, ActionDelete, ActionComplete, ActionUncomplete:
		var d TaskDetails
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, fmt.Errorf("decode task details: %w", err)
		}
		return d, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidAction, action)
	}
}
