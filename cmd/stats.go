package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/flor-ldlse/feedback-bot/internal/services/stats"
	"github.com/flor-ldlse/feedback-bot/internal/ui"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print ticket counts per topic",
	RunE:  runStats,
}

func runStats(cmd *cobra.Command, _ []string) error {
	storage, log, err := openStorage(cmd.Context())
	if err != nil {
		return err
	}
	defer func() {
		storage.Close()
		_ = log.Sync()
	}()

	items, err := stats.NewService(storage.Stats).Ranked(cmd.Context())
	if err != nil {
		return fmt.Errorf("load stats: %w", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), ui.StatsReport(items))
	return err
}
