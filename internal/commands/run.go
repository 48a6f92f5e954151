package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the notification daemon in the foreground",
	Long: `run keeps the scheduler resident so due and reminder notifications
actually fire. One-shot commands only arm timers for the lifetime of their
own process; leave run going in the background to get notified.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		application, cleanup, err := openApp()
		if err != nil {
			return err
		}
		defer cleanup()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := application.Start(ctx); err != nil {
			return err
		}

		fmt.Println("taskscheduler daemon running, press Ctrl+C to stop")
		<-ctx.Done()

		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return application.Close(closeCtx)
	},
}
