package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var rmCmd = &cobra.Command{
	Use:     "rm [task-id]",
	Aliases: []string{"delete"},
	Short:   "Delete a task",
	Args:    cobra.ExactArgs(1),
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

		removed, err := application.DeleteTask(cmd.Context(), id)
		if err != nil {
			return err
		}
		if !removed {
			fmt.Printf("Task %s was already gone.\n", shortID(id))
			return nil
		}

		fmt.Printf("Deleted %s.\n", shortID(id))
		return nil
	},
}
