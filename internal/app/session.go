package app

import (
	"context"
	"time"

	"github.com/LuizAGDomingues/task-scheduler/internal/model"
)

// Log-keyed work sessions. Short-lived callers cannot keep an open interval
// in memory, so the activity log doubles as the session record: a
// timer_started entry with no later timer_paused entry marks the task as
// tracking. The in-memory timer methods write the same edges, so both
// mechanisms agree on what is open.

// StartSession opens a work interval recorded in the activity log. Unlike
// the quiet audit appends, the entry write surfaces errors because the
// matching StopSession depends on it.
func (a *App) StartSession(ctx context.Context, id string) (model.Task, error) {
	task, err := a.store.Get(ctx, id)
	if err != nil {
		return model.Task{}, err
	}

	if _, open, err := a.openSession(ctx, id); err != nil {
		return model.Task{}, err
	} else if open {
		return model.Task{}, ErrTimerRunning
	}

	_, err = a.logbook.Append(ctx, model.ActionTimerStarted, model.TimerDetails{Task: task, ElapsedSeconds: task.ElapsedSeconds})
	if err != nil {
		return model.Task{}, err
	}
	return task, nil
}

// StopSession closes the interval opened by StartSession, measuring against
// the logged edge.
func (a *App) StopSession(ctx context.Context, id string) (model.Task, error) {
	started, open, err := a.openSession(ctx, id)
	if err != nil {
		return model.Task{}, err
	}
	if !open {
		return model.Task{}, ErrTimerNotRunning
	}
	return a.foldElapsed(ctx, id, a.now().Sub(started.Timestamp))
}

// SessionOpen reports whether the activity log shows an unclosed work
// interval for the task.
func (a *App) SessionOpen(ctx context.Context, id string) (bool, error) {
	_, open, err := a.openSession(ctx, id)
	return open, err
}

// openSession returns the latest timer_started entry that no later
// timer_paused entry has closed.
func (a *App) openSession(ctx context.Context, id string) (model.LogEntry, bool, error) {
	logs, err := a.logbook.ByTask(ctx, id)
	if err != nil {
		return model.LogEntry{}, false, err
	}
	var last model.LogEntry
	open := false
	for _, entry := range logs {
		switch entry.Action {
		case model.ActionTimerStarted:
			last = entry
			open = true
		case model.ActionTimerPaused:
			open = false
		}
	}
	return last, open, nil
}

// foldElapsed is the single place elapsed time reaches the store: clamp the
// interval, fold it in through a silent update and record the closing edge
// with the new total.
func (a *App) foldElapsed(ctx context.Context, id string, interval time.Duration) (model.Task, error) {
	task, err := a.store.Get(ctx, id)
	if err != nil {
		return model.Task{}, err
	}

	delta := int(interval / time.Second)
	if delta < 0 {
		delta = 0
	}
	total := task.ElapsedSeconds + delta

	updated, err := a.UpdateTask(ctx, id, model.Patch{ElapsedSeconds: &total}, UpdateKindSilent)
	if err != nil {
		return model.Task{}, err
	}

	a.appendQuiet(ctx, model.ActionTimerPaused, model.TimerDetails{Task: updated, ElapsedSeconds: updated.ElapsedSeconds})
	return updated, nil
}
