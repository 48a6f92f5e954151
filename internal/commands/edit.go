package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/LuizAGDomingues/task-scheduler/internal/app"
	"github.com/LuizAGDomingues/task-scheduler/internal/model"
)

var editCmd = &cobra.Command{
	Use:   "edit [task-id]",
	Short: "Edit a task",
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

		var patch model.Patch
		changed := false

		if cmd.Flags().Changed("title") {
			title, _ := cmd.Flags().GetString("title")
			patch.Title = &title
			changed = true
		}
		if cmd.Flags().Changed("at") {
			at, _ := cmd.Flags().GetString("at")
			scheduled, parseErr := parseWhen(at)
			if parseErr != nil {
				return parseErr
			}
			patch.ScheduledAt = &scheduled
			changed = true
		}
		if cmd.Flags().Changed("recurring") {
			raw, _ := cmd.Flags().GetString("recurring")
			rec, parseErr := parseRecurrence(raw)
			if parseErr != nil {
				return parseErr
			}
			patch.Recurring = &rec
			changed = true
		}
		if cmd.Flags().Changed("remind") {
			remind, _ := cmd.Flags().GetInt("remind")
			if remind <= 0 {
				patch.ClearReminder = true
			} else {
				patch.ReminderMinutes = &remind
			}
			changed = true
		}

		if !changed {
			return fmt.Errorf("nothing to change, pass at least one of --title, --at, --recurring, --remind")
		}

		task, err := application.UpdateTask(cmd.Context(), id, patch, app.UpdateKindDefault)
		if err != nil {
			return err
		}

		fmt.Printf("Updated %s: %s (due %s)\n", shortID(task.ID), task.Title, task.ScheduledAt.Local().Format("2006-01-02 15:04"))
		return nil
	},
}

func init() {
	editCmd.Flags().StringP("title", "t", "", "New title")
	editCmd.Flags().StringP("at", "a", "", "New due time")
	editCmd.Flags().StringP("recurring", "r", "", "New recurrence: none, daily, weekly or monthly")
	editCmd.Flags().IntP("remind", "m", 0, "Reminder minutes before due; 0 removes the reminder")
}
