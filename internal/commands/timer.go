package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/LuizAGDomingues/task-scheduler/internal/app"
)

// The CLI is a fresh process on every invocation, so open work sessions
// cannot live in memory here. start and stop use the log-keyed session API,
// which records the interval edges in the activity log.

var startCmd = &cobra.Command{
	Use:   "start [task-id]",
	Short: "Start tracking time on a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		application, cleanup, err := openApp()
		if err != nil {
			return err
		}
		defer cleanup()

		ctx := cmd.Context()
		id, err := resolveTaskID(ctx, application, args[0])
		if err != nil {
			return err
		}

		task, err := application.StartSession(ctx, id)
		if errors.Is(err, app.ErrTimerRunning) {
			return fmt.Errorf("already tracking %s", shortID(id))
		}
		if err != nil {
			return err
		}

		fmt.Printf("Tracking %s: %s (%s so far)\n", shortID(task.ID), task.Title, trackedMark(task.ElapsedSeconds))
		return nil
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop [task-id]",
	Short: "Stop tracking and record the elapsed time",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		application, cleanup, err := openApp()
		if err != nil {
			return err
		}
		defer cleanup()

		ctx := cmd.Context()
		id, err := resolveTaskID(ctx, application, args[0])
		if err != nil {
			return err
		}

		task, err := application.StopSession(ctx, id)
		if errors.Is(err, app.ErrTimerNotRunning) {
			return fmt.Errorf("no running session for %s", shortID(id))
		}
		if err != nil {
			return err
		}

		fmt.Printf("Paused %s: %s, total tracked %s\n", shortID(task.ID), task.Title, trackedMark(task.ElapsedSeconds))
		return nil
	},
}
