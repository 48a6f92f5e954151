package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/LuizAGDomingues/task-scheduler/internal/model"
)

var addCmd = &cobra.Command{
	Use:   "add [title]",
	Short: "Create a task",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		application, cleanup, err := openApp()
		if err != nil {
			return err
		}
		defer cleanup()

		at, _ := cmd.Flags().GetString("at")
		recurring, _ := cmd.Flags().GetString("recurring")
		remind, _ := cmd.Flags().GetInt("remind")

		scheduled, err := parseWhen(at)
		if err != nil {
			return err
		}
		rec, err := parseRecurrence(recurring)
		if err != nil {
			return err
		}

		draft := model.Draft{
			Title:       strings.Join(args, " "),
			ScheduledAt: scheduled,
			Recurring:   rec,
		}
		if remind > 0 {
			draft.ReminderMinutes = &remind
		}

		task, err := application.AddTask(cmd.Context(), draft)
		if err != nil {
			return err
		}

		fmt.Printf("Added task %s: %s (due %s)\n", shortID(task.ID), task.Title, task.ScheduledAt.Local().Format("2006-01-02 15:04"))
		if task.Recurring.Repeats() {
			fmt.Printf("Repeats %s\n", task.Recurring)
		}
		return nil
	},
}

func init() {
	addCmd.Flags().StringP("at", "a", "", "When the task is due (e.g. '2026-03-10 09:00')")
	addCmd.Flags().StringP("recurring", "r", "", "Recurrence: daily, weekly or monthly")
	addCmd.Flags().IntP("remind", "m", 0, "Reminder this many minutes before the due time")
	_ = addCmd.MarkFlagRequired("at")
}
