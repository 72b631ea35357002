package commands

import (
	"github.com/spf13/cobra"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run incremental passes on the configured cron expression",
	Long: `Starts the scheduler and blocks until interrupted (Ctrl+C).
Uses scheduler.cronExpression and scheduler.timezone from the config file.`,
	Args: cobra.NoArgs,
	RunE: runSchedule,
}

func init() {
	rootCmd.AddCommand(scheduleCmd)
}

func runSchedule(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	application := newApplication()
	defer application.Close()

	return application.Schedule(ctx)
}
