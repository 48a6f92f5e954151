package commands

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/LuizAGDomingues/task-scheduler/internal/model"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	doneStyle    = lipgloss.NewStyle().Faint(true)
	overdueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

var listCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List tasks ordered by due time",
	RunE: func(cmd *cobra.Command, args []string) error {
		application, cleanup, err := openApp()
		if err != nil {
			return err
		}
		defer cleanup()

		pendingOnly, _ := cmd.Flags().GetBool("pending")

		var items []model.Task
		if pendingOnly {
			items, err = application.GetTasksByStatus(cmd.Context(), false)
		} else {
			items, err = application.GetTasksBySchedule(cmd.Context())
		}
		if err != nil {
			return err
		}

		if len(items) == 0 {
			fmt.Println("No tasks. Use 'taskscheduler add \"title\" --at ...' to create one.")
			return nil
		}

		fmt.Println(headerStyle.Render(fmt.Sprintf("%-10s %-3s %-40s %-17s %-8s %-8s", "ID", "", "TITLE", "DUE", "REPEAT", "TRACKED")))
		now := time.Now()
		for _, task := range items {
			line := fmt.Sprintf("%-10s %-3s %-40s %-17s %-8s %-8s",
				shortID(task.ID),
				statusMark(task),
				truncate(task.Title, 38),
				task.ScheduledAt.Local().Format("2006-01-02 15:04"),
				repeatMark(task.Recurring),
				trackedMark(task.ElapsedSeconds),
			)
			switch {
			case task.Completed:
				fmt.Println(doneStyle.Render(line))
			case task.ScheduledAt.Before(now):
				fmt.Println(overdueStyle.Render(line))
			default:
				fmt.Println(line)
			}
		}
		return nil
	},
}

func statusMark(task model.Task) string {
	if task.Completed {
		return "[x]"
	}
	return "[ ]"
}

func repeatMark(rec model.Recurrence) string {
	if !rec.Repeats() {
		return "-"
	}
	return string(rec)
}

func trackedMark(totalSec int) string {
	if totalSec <= 0 {
		return "-"
	}
	return fmt.Sprintf("%dh%02dm", totalSec/3600, totalSec%3600/60)
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}

func init() {
	listCmd.Flags().BoolP("pending", "p", false, "Show only tasks that are not completed")
}
