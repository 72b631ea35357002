package commands

import (
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"ReviewAspects/internal/domain"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent incremental passes from the run ledger",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntVar(&historyLimit, "limit", 10, "number of runs to show")
}

func runHistory(cmd *cobra.Command, _ []string) error {
	application := newApplication()
	defer application.Close()

	runs, err := application.History(cmd.Context(), historyLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no runs recorded")
		return nil
	}

	fmt.Fprintln(cmd.OutOrStdout(), historyTable(runs))
	return nil
}

func historyTable(runs []domain.RunReport) string {
	t := table.New().Headers("RUN", "STARTED", "STATUS", "DELTA", "LOADED", "DURATION", "ERROR")
	for _, r := range runs {
		t.Row(
			shortRunID(r.RunID),
			r.StartedAt.Local().Format(time.DateTime),
			string(r.Status),
			strconv.Itoa(r.DeltaRows),
			strconv.FormatInt(r.LoadedRows, 10),
			r.Duration().Round(time.Millisecond).String(),
			r.Error,
		)
	}
	return t.String()
}

func shortRunID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
