package app

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/LuizAGDomingues/task-scheduler/internal/activity"
	"github.com/LuizAGDomingues/task-scheduler/internal/model"
	"github.com/LuizAGDomingues/task-scheduler/internal/notify"
	"github.com/LuizAGDomingues/task-scheduler/internal/scheduler"
	"github.com/LuizAGDomingues/task-scheduler/internal/tasks"

	"github.com/LuizAGDomingues/task-scheduler/internal/storage"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(at time.Time) *fakeClock {
	return &fakeClock{now: at}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type captureNotifier struct {
	mu   sync.Mutex
	sent []notify.Notification
	ch   chan notify.Notification
}

func newCaptureNotifier() *captureNotifier {
	return &captureNotifier{ch: make(chan notify.Notification, 16)}
}

func (n *captureNotifier) Send(notification notify.Notification) error {
	n.mu.Lock()
	n.sent = append(n.sent, notification)
	n.mu.Unlock()
	n.ch <- notification
	return nil
}

func setupApp(t *testing.T, clock *fakeClock) (*App, *scheduler.Scheduler, *captureNotifier) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "app-test.db")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if _, err := storage.MigrateUp(db); err != nil {
		t.Fatalf("migrate up: %v", err)
	}
	repo, err := storage.NewSQLiteRepository(db)
	if err != nil {
		t.Fatalf("new repo: %v", err)
	}

	store := tasks.NewStore(repo).WithClock(clock.Now)
	logbook := activity.NewLog(repo, 100).WithClock(clock.Now)
	sched := scheduler.New(16)
	notifier := newCaptureNotifier()
	application := New(store, logbook, sched, notifier).WithClock(clock.Now)
	t.Cleanup(func() { sched.Stop() })
	return application, sched, notifier
}

func countByAction(t *testing.T, entries []model.LogEntry, action model.Action) int {
	t.Helper()
	count := 0
	for _, entry := range entries {
		if entry.Action == action {
			count++
		}
	}
	return count
}

func TestAddTaskArmsTimersAndLogsCreation(t *testing.T) {
	clock := newFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	application, sched, _ := setupApp(t, clock)
	ctx := context.Background()

	offset := 15
	task, err := application.AddTask(ctx, model.Draft{
		Title:           "Dentist appointment",
		ScheduledAt:     clock.Now().Add(2 * time.Hour),
		ReminderMinutes: &offset,
	})
	if err != nil {
		t.Fatalf("add task: %v", err)
	}

	if !sched.Armed(task.ID, scheduler.KindDue) {
		t.Fatal("due timer not armed")
	}
	if !sched.Armed(task.ID, scheduler.KindReminder) {
		t.Fatal("reminder timer not armed")
	}

	logs, err := application.GetLogs(ctx)
	if err != nil {
		t.Fatalf("get logs: %v", err)
	}
	if len(logs) != 1 || logs[0].Action != model.ActionCreate || logs[0].TaskID != task.ID {
		t.Fatalf("unexpected audit trail: %#v", logs)
	}
}

func TestAddTaskInThePastArmsNothing(t *testing.T) {
	clock := newFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	application, sched, _ := setupApp(t, clock)
	ctx := context.Background()

	task, err := application.AddTask(ctx, model.Draft{
		Title:       "Missed it",
		ScheduledAt: clock.Now().Add(-time.Hour),
	})
	if err != nil {
		t.Fatalf("add task: %v", err)
	}

	if sched.Armed(task.ID, scheduler.KindDue) || sched.Armed(task.ID, scheduler.KindReminder) {
		t.Fatal("past task must receive no timer")
	}
}

func TestSilentUpdateProducesNoLogEntry(t *testing.T) {
	clock := newFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	application, _, _ := setupApp(t, clock)
	ctx := context.Background()

	task, err := application.AddTask(ctx, model.Draft{
		Title:       "Quiet work",
		ScheduledAt: clock.Now().Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("add task: %v", err)
	}

	elapsed := 300
	updated, err := application.UpdateTask(ctx, task.ID, model.Patch{ElapsedSeconds: &elapsed}, UpdateKindSilent)
	if err != nil {
		t.Fatalf("silent update: %v", err)
	}
	if updated.ElapsedSeconds != 300 {
		t.Fatalf("elapsed not applied: %#v", updated)
	}

	logs, err := application.GetTaskLogs(ctx, task.ID)
	if err != nil {
		t.Fatalf("get task logs: %v", err)
	}
	if countByAction(t, logs, model.ActionUpdate) != 0 {
		t.Fatalf("silent update leaked into the audit trail: %#v", logs)
	}
}

func TestUpdateRearmsAndLogsBeforeAfter(t *testing.T) {
	clock := newFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	application, sched, _ := setupApp(t, clock)
	ctx := context.Background()

	task, err := application.AddTask(ctx, model.Draft{
		Title:       "Movable feast",
		ScheduledAt: clock.Now().Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("add task: %v", err)
	}

	newTime := clock.Now().Add(3 * time.Hour)
	updated, err := application.UpdateTask(ctx, task.ID, model.Patch{ScheduledAt: &newTime}, UpdateKindDefault)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !sched.Armed(updated.ID, scheduler.KindDue) {
		t.Fatal("due timer not re-armed after reschedule")
	}

	logs, err := application.GetTaskLogs(ctx, task.ID)
	if err != nil {
		t.Fatalf("get task logs: %v", err)
	}
	if countByAction(t, logs, model.ActionUpdate) != 1 {
		t.Fatalf("expected one update entry: %#v", logs)
	}
	for _, entry := range logs {
		if entry.Action != model.ActionUpdate {
			continue
		}
		details, ok := entry.Details.(model.UpdateDetails)
		if !ok {
			t.Fatalf("update entry has wrong details shape: %#v", entry.Details)
		}
		if !details.Before.ScheduledAt.Equal(task.ScheduledAt) || !details.After.ScheduledAt.Equal(newTime) {
			t.Fatalf("before/after mismatch: %#v", details)
		}
	}
}

func TestUpdateMissingTaskReturnsNotFound(t *testing.T) {
	clock := newFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	application, _, _ := setupApp(t, clock)

	title := "Ghost"
	_, err := application.UpdateTask(context.Background(), "missing", model.Patch{Title: &title}, UpdateKindDefault)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCompletionSpawnsExactlyOneSuccessor(t *testing.T) {
	clock := newFakeClock(time.Date(2024, 1, 4, 9, 0, 0, 0, time.UTC))
	application, sched, _ := setupApp(t, clock)
	ctx := context.Background()

	offset := 10
	task, err := application.AddTask(ctx, model.Draft{
		Title:           "Daily standup notes",
		ScheduledAt:     time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
		Recurring:       model.RecurrenceDaily,
		ReminderMinutes: &offset,
	})
	if err != nil {
		t.Fatalf("add task: %v", err)
	}

	completed, err := application.ToggleTaskCompletion(ctx, task.ID)
	if err != nil {
		t.Fatalf("toggle completion: %v", err)
	}
	if !completed.Completed {
		t.Fatalf("expected completed: %#v", completed)
	}
	if sched.Armed(task.ID, scheduler.KindDue) {
		t.Fatal("completed task still has an armed timer")
	}

	all, err := application.GetTasks(ctx)
	if err != nil {
		t.Fatalf("get tasks: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected original plus successor, got %d tasks", len(all))
	}

	var successor model.Task
	for _, item := range all {
		if item.ID != task.ID {
			successor = item
		}
	}
	// Completed 2024-01-04 09:00, original due 2024-01-01 10:00: the next
	// daily occurrence strictly in the future is 2024-01-05 10:00.
	if successor.ScheduledAt.Format("2006-01-02 15:04") != "2024-01-05 10:00" {
		t.Fatalf("unexpected successor schedule: %s", successor.ScheduledAt.Format(time.RFC3339))
	}
	if successor.Completed || successor.ElapsedSeconds != 0 {
		t.Fatalf("successor must start fresh: %#v", successor)
	}
	if successor.Title != task.Title || successor.Recurring != model.RecurrenceDaily {
		t.Fatalf("successor lost copied fields: %#v", successor)
	}
	if successor.ReminderMinutes == nil || *successor.ReminderMinutes != 10 {
		t.Fatalf("successor lost reminder offset: %#v", successor.ReminderMinutes)
	}
	if !sched.Armed(successor.ID, scheduler.KindDue) {
		t.Fatal("successor due timer not armed")
	}

	logs, err := application.GetLogs(ctx)
	if err != nil {
		t.Fatalf("get logs: %v", err)
	}
	if countByAction(t, logs, model.ActionComplete) != 1 {
		t.Fatalf("expected one complete entry: %#v", logs)
	}
	if countByAction(t, logs, model.ActionCreateRecurring) != 1 {
		t.Fatalf("expected one create_recurring entry: %#v", logs)
	}

	// A later full reschedule pass must not mint another successor.
	if err := application.Reschedule(ctx); err != nil {
		t.Fatalf("reschedule: %v", err)
	}
	all, err = application.GetTasks(ctx)
	if err != nil {
		t.Fatalf("get tasks after reschedule: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("reschedule pass duplicated the successor: %d tasks", len(all))
	}
}

func TestUncompleteLogsAndRearms(t *testing.T) {
	clock := newFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	application, sched, _ := setupApp(t, clock)
	ctx := context.Background()

	task, err := application.AddTask(ctx, model.Draft{
		Title:       "Flip flop",
		ScheduledAt: clock.Now().Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("add task: %v", err)
	}

	if _, err := application.ToggleTaskCompletion(ctx, task.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if sched.Armed(task.ID, scheduler.KindDue) {
		t.Fatal("completed task must have no timer")
	}

	reopened, err := application.ToggleTaskCompletion(ctx, task.ID)
	if err != nil {
		t.Fatalf("uncomplete: %v", err)
	}
	if reopened.Completed {
		t.Fatalf("expected pending task: %#v", reopened)
	}
	if !sched.Armed(task.ID, scheduler.KindDue) {
		t.Fatal("uncompleted task must be re-armed")
	}

	logs, err := application.GetTaskLogs(ctx, task.ID)
	if err != nil {
		t.Fatalf("get task logs: %v", err)
	}
	if countByAction(t, logs, model.ActionUncomplete) != 1 {
		t.Fatalf("expected one uncomplete entry: %#v", logs)
	}
}

func TestDeleteTaskCancelsTimersAndLogsSnapshot(t *testing.T) {
	clock := newFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	application, sched, _ := setupApp(t, clock)
	ctx := context.Background()

	task, err := application.AddTask(ctx, model.Draft{
		Title:       "Doomed",
		ScheduledAt: clock.Now().Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("add task: %v", err)
	}

	removed, err := application.DeleteTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !removed {
		t.Fatal("first delete must report removal")
	}
	if sched.Armed(task.ID, scheduler.KindDue) {
		t.Fatal("deleted task still has an armed timer")
	}

	removed, err = application.DeleteTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("second delete: %v", err)
	}
	if removed {
		t.Fatal("second delete must be a no-op")
	}

	logs, err := application.GetTaskLogs(ctx, task.ID)
	if err != nil {
		t.Fatalf("get task logs: %v", err)
	}
	if countByAction(t, logs, model.ActionDelete) != 1 {
		t.Fatalf("expected exactly one delete entry: %#v", logs)
	}
	for _, entry := range logs {
		if entry.Action != model.ActionDelete {
			continue
		}
		details, ok := entry.Details.(model.TaskDetails)
		if !ok || details.Task.Title != "Doomed" {
			t.Fatalf("delete entry missing pre-deletion snapshot: %#v", entry.Details)
		}
	}
}

func TestTimerAccumulatesElapsedAndLogsEdges(t *testing.T) {
	clock := newFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	application, _, _ := setupApp(t, clock)
	ctx := context.Background()

	task, err := application.AddTask(ctx, model.Draft{
		Title:       "Deep work",
		ScheduledAt: clock.Now().Add(8 * time.Hour),
	})
	if err != nil {
		t.Fatalf("add task: %v", err)
	}

	if _, err := application.StartTimer(ctx, task.ID); err != nil {
		t.Fatalf("start timer: %v", err)
	}
	if _, err := application.StartTimer(ctx, task.ID); !errors.Is(err, ErrTimerRunning) {
		t.Fatalf("expected ErrTimerRunning, got %v", err)
	}
	if !application.TimerRunning(task.ID) {
		t.Fatal("timer should be running")
	}

	clock.Advance(125 * time.Second)
	paused, err := application.PauseTimer(ctx, task.ID)
	if err != nil {
		t.Fatalf("pause timer: %v", err)
	}
	if paused.ElapsedSeconds != 125 {
		t.Fatalf("unexpected elapsed total: %d", paused.ElapsedSeconds)
	}
	if _, err := application.PauseTimer(ctx, task.ID); !errors.Is(err, ErrTimerNotRunning) {
		t.Fatalf("expected ErrTimerNotRunning, got %v", err)
	}

	logs, err := application.GetTaskLogs(ctx, task.ID)
	if err != nil {
		t.Fatalf("get task logs: %v", err)
	}
	if countByAction(t, logs, model.ActionTimerStarted) != 1 || countByAction(t, logs, model.ActionTimerPaused) != 1 {
		t.Fatalf("expected one started and one paused entry: %#v", logs)
	}
	if countByAction(t, logs, model.ActionUpdate) != 0 {
		t.Fatalf("elapsed bookkeeping must not log update entries: %#v", logs)
	}
	for _, entry := range logs {
		if entry.Action != model.ActionTimerPaused {
			continue
		}
		details, ok := entry.Details.(model.TimerDetails)
		if !ok || details.ElapsedSeconds != 125 {
			t.Fatalf("paused entry missing total: %#v", entry.Details)
		}
	}
}

func TestCloseFlushesRunningTimers(t *testing.T) {
	clock := newFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	application, _, _ := setupApp(t, clock)
	ctx := context.Background()

	task, err := application.AddTask(ctx, model.Draft{
		Title:       "Interrupted work",
		ScheduledAt: clock.Now().Add(8 * time.Hour),
	})
	if err != nil {
		t.Fatalf("add task: %v", err)
	}
	if _, err := application.StartTimer(ctx, task.ID); err != nil {
		t.Fatalf("start timer: %v", err)
	}

	clock.Advance(40 * time.Second)
	if err := application.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}

	got, err := application.store.Get(ctx, task.ID)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if got.ElapsedSeconds != 40 {
		t.Fatalf("elapsed not flushed on close: %d", got.ElapsedSeconds)
	}
	if application.TimerRunning(task.ID) {
		t.Fatal("timer still running after close")
	}
}

func TestStartDeliversDueNotifications(t *testing.T) {
	clock := newFakeClock(time.Now().UTC())
	application, _, notifier := setupApp(t, clock)
	ctx := context.Background()

	// The timer table runs on the wall clock; keep the app clock on real
	// time for this test so delivery actually happens.
	application.WithClock(func() time.Time { return time.Now().UTC() })

	if err := application.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer func() { _ = application.Close(ctx) }()

	if _, err := application.AddTask(ctx, model.Draft{
		Title:       "Ping me",
		ScheduledAt: time.Now().UTC().Add(60 * time.Millisecond),
	}); err != nil {
		t.Fatalf("add task: %v", err)
	}

	select {
	case n := <-notifier.ch:
		if n.Title != "Ping me" || !n.Sound {
			t.Fatalf("unexpected notification: %#v", n)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for delivery")
	}
}
