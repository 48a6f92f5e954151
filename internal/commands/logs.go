package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/LuizAGDomingues/task-scheduler/internal/model"
)

var (
	logsAction string
	logsLimit  int
)

var logsCmd = &cobra.Command{
	Use:   "logs [task-id]",
	Short: "Show the activity trail, optionally for a single task",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		application, cleanup, err := openApp()
		if err != nil {
			return err
		}
		defer cleanup()

		ctx := cmd.Context()

		var entries []model.LogEntry
		switch {
		case len(args) == 1:
			id, err := resolveTaskID(ctx, application, args[0])
			if err != nil {
				return err
			}
			entries, err = application.GetTaskLogs(ctx, id)
			if err != nil {
				return err
			}
		case logsAction != "":
			action := model.Action(logsAction)
			if !action.IsValid() {
				return fmt.Errorf("unknown action %q", logsAction)
			}
			entries, err = application.GetActionLogs(ctx, action)
			if err != nil {
				return err
			}
		default:
			entries, err = application.GetLogs(ctx)
			if err != nil {
				return err
			}
		}

		if logsAction != "" && len(args) == 1 {
			entries = filterByAction(entries, model.Action(logsAction))
		}
		if logsLimit > 0 && len(entries) > logsLimit {
			entries = entries[len(entries)-logsLimit:]
		}

		if len(entries) == 0 {
			fmt.Println("No activity recorded.")
			return nil
		}

		fmt.Println(headerStyle.Render(fmt.Sprintf("%-17s %-16s %-10s %s", "WHEN", "ACTION", "TASK", "DETAIL")))
		for _, entry := range entries {
			fmt.Printf("%-17s %-16s %-10s %s\n",
				entry.Timestamp.Local().Format("2006-01-02 15:04"),
				entry.Action,
				shortID(entry.TaskID),
				entryDetail(entry),
			)
		}
		return nil
	},
}

func init() {
	logsCmd.Flags().StringVarP(&logsAction, "action", "a", "", "Only entries with this action (create, update, complete, ...)")
	logsCmd.Flags().IntVarP(&logsLimit, "limit", "n", 0, "Only the newest N entries")
}

func filterByAction(entries []model.LogEntry, action model.Action) []model.LogEntry {
	kept := entries[:0]
	for _, entry := range entries {
		if entry.Action == action {
			kept = append(kept, entry)
		}
	}
	return kept
}

// entryDetail renders a one-line summary of the entry payload.
func entryDetail(entry model.LogEntry) string {
	switch details := entry.Details.(type) {
	case model.UpdateDetails:
		return fmt.Sprintf("%s -> %s", summarize(details.Before), summarize(details.After))
	case model.TimerDetails:
		return fmt.Sprintf("%s, %s tracked", entry.TaskTitle, trackedMark(details.ElapsedSeconds))
	case model.TaskDetails:
		return summarize(details.Task)
	default:
		return entry.TaskTitle
	}
}

func summarize(task model.Task) string {
	s := fmt.Sprintf("%q @ %s", truncate(task.Title, 24), task.ScheduledAt.Local().Format("2006-01-02 15:04"))
	if task.Recurring.Repeats() {
		s += " " + repeatMark(task.Recurring)
	}
	return s
}
