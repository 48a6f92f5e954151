package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/LuizAGDomingues/task-scheduler/internal/app"
	"github.com/LuizAGDomingues/task-scheduler/internal/model"
)

var doneCmd = &cobra.Command{
	Use:   "done [task-id]",
	Short: "Mark a task as completed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		application, cleanup, err := openApp()
		if err != nil {
			return err
		}
		defer cleanup()

		id, err := resolveTaskID(cmd.Context(), application, args[0])
		if err != nil {
			return err
		}

		task, err := application.UpdateTask(cmd.Context(), id, model.Patch{}, app.UpdateKindComplete)
		if err != nil {
			return err
		}

		fmt.Printf("Completed %s: %s\n", shortID(task.ID), task.Title)
		if task.Recurring.Repeats() {
			fmt.Printf("Next %s occurrence was scheduled.\n", task.Recurring)
		}
		return nil
	},
}

var undoneCmd = &cobra.Command{
	Use:   "undone [task-id]",
	Short: "Mark a completed task as pending again",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		application, cleanup, err := openApp()
		if err != nil {
			return err
		}
		defer cleanup()

		id, err := resolveTaskID(cmd.Context(), application, args[0])
		if err != nil {
			return err
		}

		task, err := application.UpdateTask(cmd.Context(), id, model.Patch{}, app.UpdateKindUncomplete)
		if err != nil {
			return err
		}

		fmt.Printf("Reopened %s: %s (due %s)\n", shortID(task.ID), task.Title, task.ScheduledAt.Local().Format("2006-01-02 15:04"))
		return nil
	},
}
