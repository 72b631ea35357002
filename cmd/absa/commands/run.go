package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one incremental labeling pass",
	Long: `Fetches the source reviews, labels those not yet present in the target
table and appends them. Running again without new reviews does nothing.`,
	Args: cobra.NoArgs,
	RunE: runOnce,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runOnce(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	application := newApplication()
	defer application.Close()

	report, err := application.RunOnce(ctx)
	if report.RunID != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "run %s: %s (source=%d delta=%d labeled=%d loaded=%d)\n",
			report.RunID, report.Status, report.SourceRows, report.DeltaRows, report.LabeledRows, report.LoadedRows)
		if report.Artifact != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "artifact: %s\n", report.Artifact)
		}
	}
	return err
}
