package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/flor-ldlse/feedback-bot/internal/domain/enums"
	"github.com/flor-ldlse/feedback-bot/internal/services/tickets"
)

var ticketsStatus string

var ticketsCmd = &cobra.Command{
	Use:   "tickets",
	Short: "Print stored tickets",
	RunE:  runTickets,
}

func init() {
	ticketsCmd.Flags().StringVar(&ticketsStatus, "status", "", "only tickets with this status (received, in_progress, closed)")
}

func runTickets(cmd *cobra.Command, _ []string) error {
	var status enums.TicketStatus
	if ticketsStatus != "" {
		parsed, ok := enums.ParseTicketStatus(ticketsStatus)
		if !ok {
			return fmt.Errorf("unknown status %q", ticketsStatus)
		}
		status = parsed
	}

	storage, log, err := openStorage(cmd.Context())
	if err != nil {
		return err
	}
	defer func() {
		storage.Close()
		_ = log.Sync()
	}()

	service := tickets.NewService(tickets.Dependencies{Repo: storage.Tickets, Logger: log})
	items, err := service.ListByStatus(cmd.Context(), status)
	if err != nil {
		return fmt.Errorf("list tickets: %w", err)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tUSER\tPRIORITY\tSTATUS\tTOPIC\tCREATED")
	for _, ticket := range items {
		fmt.Fprintf(w, "%d\t%s (%d)\t%s\t%s\t%s\t%s\n",
			ticket.ID,
			ticket.UserName,
			ticket.UserID,
			ticket.Priority.Label(),
			ticket.Status.Label(),
			ticket.Topic,
			ticket.CreatedAt.UTC().Format("2006-01-02 15:04"),
		)
	}
	return w.Flush()
}
