package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/LuizAGDomingues/task-scheduler/internal/activity"
	"github.com/LuizAGDomingues/task-scheduler/internal/app"
	"github.com/LuizAGDomingues/task-scheduler/internal/config"
	"github.com/LuizAGDomingues/task-scheduler/internal/model"
	"github.com/LuizAGDomingues/task-scheduler/internal/notify"
	"github.com/LuizAGDomingues/task-scheduler/internal/scheduler"
	"github.com/LuizAGDomingues/task-scheduler/internal/storage"
	"github.com/LuizAGDomingues/task-scheduler/internal/tasks"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "taskscheduler",
	Short: "A personal task scheduler with reminders and time tracking",
	Long: `taskscheduler keeps your tasks in a local store, fires desktop
notifications when they come due, tracks time spent per task and records an
audit trail of everything that happened to them.`,
}

// SetVersion sets the version information injected at build time.
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// openApp builds the full stack from environment configuration. The caller
// must invoke the returned cleanup when done.
func openApp() (*app.App, func(), error) {
	cfg := config.RuntimeConfigFromEnv(config.DefaultRuntimeConfig())

	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create data directory: %w", err)
		}
	}

	repo, err := storage.OpenSQLite(cfg.DBPath)
	if err != nil {
		return nil, nil, err
	}
	if _, err := storage.MigrateUp(repo.DB()); err != nil {
		_ = repo.Close()
		return nil, nil, err
	}

	store := tasks.NewStore(repo)
	logbook := activity.NewLog(repo, cfg.LogCapacity)
	sched := scheduler.New(cfg.SchedulerBuffer)

	var notifier notify.Notifier = notify.NoopNotifier{}
	if cfg.DesktopNotifications {
		notifier = notify.ExecNotifier{}
	}

	application := app.New(store, logbook, sched, notifier)
	cleanup := func() {
		sched.Stop()
		_ = repo.Close()
	}
	return application, cleanup, nil
}

// resolveTaskID expands a unique id prefix to the full task id.
func resolveTaskID(ctx context.Context, application *app.App, arg string) (string, error) {
	all, err := application.GetTasks(ctx)
	if err != nil {
		return "", err
	}

	matches := make([]string, 0, 1)
	for _, task := range all {
		if task.ID == arg {
			return task.ID, nil
		}
		if strings.HasPrefix(task.ID, arg) {
			matches = append(matches, task.ID)
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return "", fmt.Errorf("no task matches %q", arg)
	default:
		return "", fmt.Errorf("%q is ambiguous, %d tasks match", arg, len(matches))
	}
}

var errUnrecognizedTime = errors.New("unrecognized time format")

// parseWhen accepts a handful of common timestamp shapes in local time.
func parseWhen(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	layouts := []string{
		time.RFC3339,
		"2006-01-02 15:04",
		"2006-01-02T15:04",
		"2006-01-02",
	}
	for _, layout := range layouts {
		if parsed, err := time.ParseInLocation(layout, raw, time.Local); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", errUnrecognizedTime, raw)
}

func parseRecurrence(raw string) (model.Recurrence, error) {
	if strings.TrimSpace(raw) == "" {
		return model.RecurrenceNone, nil
	}
	rec := model.Recurrence(strings.ToLower(strings.TrimSpace(raw)))
	if !rec.IsValid() {
		return "", fmt.Errorf("invalid recurrence %q (none, daily, weekly or monthly)", raw)
	}
	return rec, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func init() {
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(doneCmd)
	rootCmd.AddCommand(undoneCmd)
	rootCmd.AddCommand(rmCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(logsCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(versionCmd)
}
