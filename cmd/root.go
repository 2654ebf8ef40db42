package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "feedback-bot",
	Short:         "Telegram support bot: ticket intake, moderation and admin notifications",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runBot,
}

func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(ticketsCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(migrateCmd)
}
