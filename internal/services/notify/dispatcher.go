package notify

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"go.uber.org/zap"

	"github.com/flor-ldlse/feedback-bot/internal/domain/enums"
	"github.com/flor-ldlse/feedback-bot/internal/domain/model"
	"github.com/flor-ldlse/feedback-bot/internal/infra/telegram"
	"github.com/flor-ldlse/feedback-bot/internal/ui"
)

type Gateway interface {
	SendText(ctx context.Context, chatID int64, text string, keyboard [][]telegram.InlineButton) error
	SendDocument(ctx context.Context, chatID int64, fileID, caption string) error
	SendPhoto(ctx context.Context, chatID int64, fileID, caption string) error
}

type AdminFailure struct {
	AdminID int64
	Err     error
}

// Report describes one fan-out. Delivered counts administrators that got
// both the summary and the controls.
type Report struct {
	Delivered int
	Failed    []AdminFailure
}

func (r Report) Err() error {
	if len(r.Failed) == 0 {
		return nil
	}
	joined := make([]error, 0, len(r.Failed))
	for _, failure := range r.Failed {
		joined = append(joined, fmt.Errorf("admin %d: %w", failure.AdminID, failure.Err))
	}
	return errors.Join(joined...)
}

type Dispatcher struct {
	gateway Gateway
	admins  []int64
	logger  *zap.Logger
	pick    func(n int) int
}

func NewDispatcher(gateway Gateway, admins []int64, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		gateway: gateway,
		admins:  append([]int64(nil), admins...),
		logger:  logger,
		pick:    rand.Intn,
	}
}

// NotifyAdmins sends the ticket summary and the status controls to every
// administrator. A failure for one administrator does not stop the others.
func (d *Dispatcher) NotifyAdmins(ctx context.Context, ticket model.Ticket) Report {
	report := Report{}
	for _, adminID := range d.admins {
		if err := d.notifyAdmin(ctx, adminID, ticket); err != nil {
			d.logger.Error("notify admin about ticket",
				zap.Error(err),
				zap.Int64("admin_id", adminID),
				zap.Int64("ticket_id", ticket.ID),
			)
			report.Failed = append(report.Failed, AdminFailure{AdminID: adminID, Err: err})
			continue
		}
		report.Delivered++
	}
	return report
}

func (d *Dispatcher) notifyAdmin(ctx context.Context, adminID int64, ticket model.Ticket) error {
	summary := ui.TicketSummary(ticket)

	var err error
	attachment, ok := ticket.Attachment()
	switch {
	case ok && attachment.Kind == enums.AttachmentDocument:
		err = d.gateway.SendDocument(ctx, adminID, attachment.FileID, summary)
	case ok && attachment.Kind == enums.AttachmentPhoto:
		err = d.gateway.SendPhoto(ctx, adminID, attachment.FileID, summary)
	default:
		err = d.gateway.SendText(ctx, adminID, summary, nil)
	}
	if err != nil {
		return fmt.Errorf("send summary: %w", err)
	}

	if err := d.gateway.SendText(ctx, adminID, ui.TicketControls, ui.TicketControlsKeyboard(ticket.ID)); err != nil {
		return fmt.Errorf("send controls: %w", err)
	}
	return nil
}

// NotifyOwner tells the submitter about the ticket's current status.
func (d *Dispatcher) NotifyOwner(ctx context.Context, ticket model.Ticket) error {
	text := ui.StatusChangedNotice(ticket)
	if ticket.Status == enums.TicketStatusInProgress {
		indicator := ui.ProcessingIndicators[d.pick(len(ui.ProcessingIndicators))]
		text = ui.ProcessingNotice(ticket, indicator)
	}

	if err := d.gateway.SendText(ctx, ticket.UserID, text, nil); err != nil {
		d.logger.Warn("notify ticket owner", zap.Error(err), zap.Int64("ticket_id", ticket.ID), zap.Int64("user_id", ticket.UserID))
		return err
	}
	return nil
}

// DeliverAnswer forwards an administrator's reply to the submitter.
func (d *Dispatcher) DeliverAnswer(ctx context.Context, ticket model.Ticket, text string) error {
	if err := d.gateway.SendText(ctx, ticket.UserID, ui.AnswerToUser(ticket.ID, text), nil); err != nil {
		d.logger.Warn("deliver ticket answer", zap.Error(err), zap.Int64("ticket_id", ticket.ID))
		return err
	}
	return nil
}
