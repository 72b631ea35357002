package commands

import (
	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Serve the interactive rating front-end",
	Long: `Serves GET /health, POST /api/rate and the GET /ws chat session on chat.addr.

Example:
  CHAT_ADDR=:9000 absa chat`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	application := newApplication()
	defer application.Close()

	return application.ServeChat(ctx)
}
