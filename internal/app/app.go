// Package app exposes the command surface callers use to drive the
// scheduler. It owns the wiring between the task store, the activity log,
// the timer table and the notification sink; callers never touch those
// directly.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/LuizAGDomingues/task-scheduler/internal/activity"
	"github.com/LuizAGDomingues/task-scheduler/internal/model"
	"github.com/LuizAGDomingues/task-scheduler/internal/notify"
	"github.com/LuizAGDomingues/task-scheduler/internal/scheduler"
	"github.com/LuizAGDomingues/task-scheduler/internal/storage"
	"github.com/LuizAGDomingues/task-scheduler/internal/tasks"
)

var (
	ErrTimerRunning    = errors.New("app: timer already running for task")
	ErrTimerNotRunning = errors.New("app: no running timer for task")
)

type UpdateKind string

const (
	UpdateKindDefault    UpdateKind = "update"
	UpdateKindSilent     UpdateKind = "silent_update"
	UpdateKindComplete   UpdateKind = "complete"
	UpdateKindUncomplete UpdateKind = "uncomplete"
)

type App struct {
	store    *tasks.Store
	logbook  *activity.Log
	sched    *scheduler.Scheduler
	notifier notify.Notifier
	now      func() time.Time
	errlog   *log.Logger

	mu      sync.Mutex
	running map[string]time.Time
}

func New(store *tasks.Store, logbook *activity.Log, sched *scheduler.Scheduler, notifier notify.Notifier) *App {
	if notifier == nil {
		notifier = notify.NoopNotifier{}
	}
	return &App{
		store:    store,
		logbook:  logbook,
		sched:    sched,
		notifier: notifier,
		now:      func() time.Time { return time.Now().UTC() },
		errlog:   log.New(os.Stderr, "taskscheduler: ", log.LstdFlags),
		running:  make(map[string]time.Time),
	}
}

// WithClock replaces the wall clock. Tests use this for deterministic
// recurrence and reminder math.
func (a *App) WithClock(now func() time.Time) *App {
	a.now = now
	return a
}

// Start arms timers for every pending task and begins draining fired
// notices toward the notification sink.
func (a *App) Start(ctx context.Context) error {
	a.sched.Start()
	if err := a.Reschedule(ctx); err != nil {
		return err
	}
	go a.deliver()
	return nil
}

// Reschedule runs the full pass: drop every armed timer, then re-arm each
// non-completed task from the current time.
func (a *App) Reschedule(ctx context.Context) error {
	a.sched.CancelAll()
	pending, err := a.store.ListByStatus(ctx, false)
	if err != nil {
		return fmt.Errorf("reschedule: %w", err)
	}
	for _, task := range pending {
		a.armTask(task)
	}
	return nil
}

// Close pauses every running work timer so accumulated seconds reach the
// store, then tears down the timer table.
func (a *App) Close(ctx context.Context) error {
	a.mu.Lock()
	ids := make([]string, 0, len(a.running))
	for id := range a.running {
		ids = append(ids, id)
	}
	a.mu.Unlock()

	var firstErr error
	for _, id := range ids {
		if _, err := a.PauseTimer(ctx, id); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	a.sched.Stop()
	return firstErr
}

func (a *App) GetTasks(ctx context.Context) ([]model.Task, error) {
	return a.store.List(ctx)
}

func (a *App) GetTasksByStatus(ctx context.Context, completed bool) ([]model.Task, error) {
	return a.store.ListByStatus(ctx, completed)
}

func (a *App) GetTasksBySchedule(ctx context.Context) ([]model.Task, error) {
	return a.store.ListByScheduledTime(ctx)
}

func (a *App) GetTask(ctx context.Context, id string) (model.Task, error) {
	return a.store.Get(ctx, id)
}

// AddTask persists a user-authored task, arms its timers and records the
// creation.
func (a *App) AddTask(ctx context.Context, draft model.Draft) (model.Task, error) {
	task, err := a.store.Add(ctx, draft)
	if err != nil {
		return model.Task{}, err
	}
	a.armTask(task)
	a.appendQuiet(ctx, model.ActionCreate, model.TaskDetails{Task: task})
	return task, nil
}

// UpdateTask merges the patch onto the stored task. The kind decides the
// audit treatment: silent_update suppresses logging entirely, complete and
// uncomplete force the matching transition and log under that action, and
// plain updates log a before/after pair. Timers are re-armed in every case.
func (a *App) UpdateTask(ctx context.Context, id string, patch model.Patch, kind UpdateKind) (model.Task, error) {
	before, err := a.store.Get(ctx, id)
	if err != nil {
		return model.Task{}, err
	}

	switch kind {
	case UpdateKindComplete:
		v := true
		patch.Completed = &v
	case UpdateKindUncomplete:
		v := false
		patch.Completed = &v
	}

	after, err := a.store.Update(ctx, id, patch)
	if err != nil {
		return model.Task{}, err
	}
	a.armTask(after)

	switch kind {
	case UpdateKindSilent:
	case UpdateKindComplete, UpdateKindUncomplete:
		if err := a.applyCompletionChange(ctx, before, after); err != nil {
			return after, err
		}
	default:
		a.appendQuiet(ctx, model.ActionUpdate, model.UpdateDetails{Before: before, After: after})
	}
	return after, nil
}

// DeleteTask removes the task, disarms its timers and records a snapshot of
// the task as it was before deletion. Deleting a missing task reports false.
func (a *App) DeleteTask(ctx context.Context, id string) (bool, error) {
	snapshot, err := a.store.Get(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	removed, err := a.store.Delete(ctx, id)
	if err != nil || !removed {
		return removed, err
	}

	a.sched.CancelTask(id)
	a.mu.Lock()
	delete(a.running, id)
	a.mu.Unlock()

	a.appendQuiet(ctx, model.ActionDelete, model.TaskDetails{Task: snapshot})
	return true, nil
}

// ToggleTaskCompletion flips the completed flag and routes the transition
// through the same path UpdateTask uses, so recurrence spawns exactly once
// per completion no matter which entry point observed it.
func (a *App) ToggleTaskCompletion(ctx context.Context, id string) (model.Task, error) {
	before, err := a.store.Get(ctx, id)
	if err != nil {
		return model.Task{}, err
	}

	after, err := a.store.ToggleCompletion(ctx, id)
	if err != nil {
		return model.Task{}, err
	}
	a.armTask(after)

	if err := a.applyCompletionChange(ctx, before, after); err != nil {
		return after, err
	}
	return after, nil
}

// applyCompletionChange handles a completed-flag edge. Spawning the
// recurrence successor lives only here, keyed on the observed false->true
// transition, so a later reschedule pass can never duplicate it.
func (a *App) applyCompletionChange(ctx context.Context, before, after model.Task) error {
	switch {
	case !before.Completed && after.Completed:
		a.appendQuiet(ctx, model.ActionComplete, model.TaskDetails{Task: after})
		if after.Recurring.Repeats() {
			if _, err := a.spawnSuccessor(ctx, after); err != nil {
				return err
			}
		}
	case before.Completed && !after.Completed:
		a.appendQuiet(ctx, model.ActionUncomplete, model.TaskDetails{Task: after})
	}
	return nil
}

// spawnSuccessor creates the next occurrence of a recurring task: same
// title, rule and reminder offset, fresh identity, zeroed work clock, due
// strictly in the future.
func (a *App) spawnSuccessor(ctx context.Context, completed model.Task) (model.Task, error) {
	next, err := completed.Recurring.NextAfter(completed.ScheduledAt, a.now())
	if err != nil {
		return model.Task{}, fmt.Errorf("advance recurrence: %w", err)
	}

	draft := model.Draft{
		Title:       completed.Title,
		ScheduledAt: next,
		Recurring:   completed.Recurring,
	}
	if completed.ReminderMinutes != nil {
		v := *completed.ReminderMinutes
		draft.ReminderMinutes = &v
	}

	successor, err := a.store.Add(ctx, draft)
	if err != nil {
		return model.Task{}, fmt.Errorf("create successor: %w", err)
	}
	a.armTask(successor)
	a.appendQuiet(ctx, model.ActionCreateRecurring, model.TaskDetails{Task: successor})
	return successor, nil
}

// StartTimer opens a work interval for the task and records the edge.
func (a *App) StartTimer(ctx context.Context, id string) (model.Task, error) {
	task, err := a.store.Get(ctx, id)
	if err != nil {
		return model.Task{}, err
	}

	a.mu.Lock()
	if _, ok := a.running[id]; ok {
		a.mu.Unlock()
		return model.Task{}, ErrTimerRunning
	}
	a.running[id] = a.now()
	a.mu.Unlock()

	a.appendQuiet(ctx, model.ActionTimerStarted, model.TimerDetails{Task: task, ElapsedSeconds: task.ElapsedSeconds})
	return task, nil
}

// PauseTimer closes the work interval and folds the elapsed seconds into
// the task.
func (a *App) PauseTimer(ctx context.Context, id string) (model.Task, error) {
	a.mu.Lock()
	startedAt, ok := a.running[id]
	if ok {
		delete(a.running, id)
	}
	a.mu.Unlock()
	if !ok {
		return model.Task{}, ErrTimerNotRunning
	}

	return a.foldElapsed(ctx, id, a.now().Sub(startedAt))
}

// ToggleTimer starts the task's work timer, or pauses it when running.
func (a *App) ToggleTimer(ctx context.Context, id string) (model.Task, error) {
	a.mu.Lock()
	_, ok := a.running[id]
	a.mu.Unlock()
	if ok {
		return a.PauseTimer(ctx, id)
	}
	return a.StartTimer(ctx, id)
}

// TimerRunning reports whether the task has an open work interval.
func (a *App) TimerRunning(id string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.running[id]
	return ok
}

func (a *App) GetLogs(ctx context.Context) ([]model.LogEntry, error) {
	return a.logbook.All(ctx)
}

func (a *App) GetTaskLogs(ctx context.Context, taskID string) ([]model.LogEntry, error) {
	return a.logbook.ByTask(ctx, taskID)
}

func (a *App) GetActionLogs(ctx context.Context, action model.Action) ([]model.LogEntry, error) {
	return a.logbook.ByAction(ctx, action)
}

func (a *App) GetLogsInRange(ctx context.Context, start, end time.Time) ([]model.LogEntry, error) {
	return a.logbook.InRange(ctx, start, end)
}

// AddLog injects an entry for events the command surface does not record on
// its own. Unlike the internal audit path, failures surface to the caller.
func (a *App) AddLog(ctx context.Context, action model.Action, details model.Details) (model.LogEntry, error) {
	return a.logbook.Append(ctx, action, details)
}

func (a *App) ClearLogs(ctx context.Context) error {
	return a.logbook.Clear(ctx)
}

// armTask replaces the task's timers. Completed tasks and instants already
// in the past receive no timer; there is no catch-up firing.
func (a *App) armTask(task model.Task) {
	a.sched.CancelTask(task.ID)
	if task.Completed {
		return
	}

	now := a.now()
	if task.ScheduledAt.After(now) {
		err := a.sched.Arm(scheduler.Notice{
			TaskID:    task.ID,
			Kind:      scheduler.KindDue,
			Title:     task.Title,
			Body:      "Task is due now",
			Sound:     true,
			TriggerAt: task.ScheduledAt,
		})
		if err != nil {
			a.errlog.Printf("arm due timer for %s: %v", task.ID, err)
		}
	}
	if at, ok := task.ReminderAt(); ok && at.After(now) {
		err := a.sched.Arm(scheduler.Notice{
			TaskID:    task.ID,
			Kind:      scheduler.KindReminder,
			Title:     task.Title,
			Body:      fmt.Sprintf("Due in %d minutes", *task.ReminderMinutes),
			Sound:     false,
			TriggerAt: at,
		})
		if err != nil {
			a.errlog.Printf("arm reminder timer for %s: %v", task.ID, err)
		}
	}
}

// appendQuiet records an audit entry. The task mutation is the source of
// truth; a failed append is reported and swallowed.
func (a *App) appendQuiet(ctx context.Context, action model.Action, details model.Details) {
	if _, err := a.logbook.Append(ctx, action, details); err != nil {
		a.errlog.Printf("append %s log entry: %v", action, err)
	}
}

func (a *App) deliver() {
	for n := range a.sched.C() {
		err := a.notifier.Send(notify.Notification{
			Title: n.Title,
			Body:  n.Body,
			Sound: n.Sound,
		})
		if err != nil {
			a.errlog.Printf("deliver notification for %s: %v", n.TaskID, err)
		}
	}
}
