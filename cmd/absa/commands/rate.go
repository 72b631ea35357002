package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"ReviewAspects/internal/infrastructure/chat"
)

var rateCmd = &cobra.Command{
	Use:   "rate <review>",
	Short: "Rate a single review and print the result",
	Long: `Rates one review and prints the aspect sentiments as a JSON code block.

Example:
  absa rate "Cosy place, the soup was cold."`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRate,
}

func init() {
	rootCmd.AddCommand(rateCmd)
}

func runRate(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	application := newApplication()
	defer application.Close()

	rating, err := application.Rate(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}

	block, err := chat.CodeBlock(rating)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), block)
	return nil
}
