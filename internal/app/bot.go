package app

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/flor-ldlse/feedback-bot/internal/domain/enums"
	"github.com/flor-ldlse/feedback-bot/internal/domain/model"
	"github.com/flor-ldlse/feedback-bot/internal/errs"
	"github.com/flor-ldlse/feedback-bot/internal/infra/telegram"
	"github.com/flor-ldlse/feedback-bot/internal/services/conversation"
	"github.com/flor-ldlse/feedback-bot/internal/services/stats"
	"github.com/flor-ldlse/feedback-bot/internal/ui"
)

type Gateway interface {
	SendText(ctx context.Context, chatID int64, text string, keyboard [][]telegram.InlineButton) error
	EditText(ctx context.Context, chatID int64, messageID int, text string, keyboard [][]telegram.InlineButton) error
	AnswerCallback(ctx context.Context, callbackID, text string) error
}

type TicketService interface {
	List(ctx context.Context) ([]model.Ticket, error)
	ChangeStatus(ctx context.Context, id int64, status enums.TicketStatus) (model.Ticket, error)
}

type StatsReader interface {
	Ranked(ctx context.Context) ([]stats.TopicCount, error)
}

// Bot turns telegram updates into conversation steps and renders replies.
type Bot struct {
	gateway Gateway
	machine *conversation.Machine
	tickets TicketService
	stats   StatsReader
	admins  map[int64]struct{}
	logger  *zap.Logger
}

func NewBot(gateway Gateway, machine *conversation.Machine, tickets TicketService, stats StatsReader, admins []int64, logger *zap.Logger) *Bot {
	if logger == nil {
		logger = zap.NewNop()
	}
	set := make(map[int64]struct{}, len(admins))
	for _, id := range admins {
		set[id] = struct{}{}
	}
	return &Bot{
		gateway: gateway,
		machine: machine,
		tickets: tickets,
		stats:   stats,
		admins:  set,
		logger:  logger,
	}
}

func (b *Bot) Handlers() telegram.Handlers {
	return telegram.Handlers{
		OnCommand:  b.HandleCommand,
		OnMessage:  b.HandleMessage,
		OnCallback: b.HandleCallback,
	}
}

func (b *Bot) isAdmin(userID int64) bool {
	_, ok := b.admins[userID]
	return ok
}

func (b *Bot) HandleCommand(ctx context.Context, cmd telegram.CommandUpdate) error {
	switch cmd.Command {
	case "start":
		if b.isAdmin(cmd.User.ID) {
			return b.gateway.SendText(ctx, cmd.ChatID, ui.AdminGreeting, ui.AdminPanelKeyboard())
		}
		return b.gateway.SendText(ctx, cmd.ChatID, ui.UserGreeting, ui.StartKeyboard())
	case "cancel":
		b.machine.Cancel(cmd.User.ID)
		return b.gateway.SendText(ctx, cmd.ChatID, ui.ActionCancelled, nil)
	default:
		return b.gateway.SendText(ctx, cmd.ChatID, ui.UnknownCommand, nil)
	}
}

func (b *Bot) HandleMessage(ctx context.Context, msg telegram.MessageUpdate) error {
	userID := msg.User.ID

	switch b.machine.Step(userID) {
	case conversation.StepAwaitingTopic:
		if _, err := b.machine.SubmitTopic(userID, msg.Text); err != nil {
			return b.replyError(ctx, msg.ChatID, err, ui.TopicTooShort)
		}
		return b.gateway.SendText(ctx, msg.ChatID, ui.AskPriority, ui.PriorityKeyboard())

	case conversation.StepAwaitingFile:
		attachment := attachmentOf(msg)
		if err := b.machine.SubmitAttachment(userID, attachment); err != nil {
			return b.replyError(ctx, msg.ChatID, err, ui.FileRequired)
		}
		return b.gateway.SendText(ctx, msg.ChatID, ui.AskMessageChoice, ui.MessageChoiceKeyboard())

	case conversation.StepAwaitingMessage:
		ticket, err := b.machine.SubmitMessage(ctx, msg.User, msg.Text)
		if err != nil {
			return b.replyError(ctx, msg.ChatID, err, ui.InvalidData)
		}
		return b.gateway.SendText(ctx, msg.ChatID, ui.TicketAccepted(ticket), nil)

	case conversation.StepAwaitingModerationInput:
		outcome, err := b.machine.SubmitModeration(userID, msg.Text)
		if err != nil {
			return b.replyError(ctx, msg.ChatID, err, ui.InvalidData)
		}
		if outcome.Action == enums.ModerationActionUnban {
			return b.gateway.SendText(ctx, msg.ChatID, ui.ModerationLifted(outcome.UserID), nil)
		}
		return b.gateway.SendText(ctx, msg.ChatID, ui.ModerationApplied(outcome.Entry), nil)

	case conversation.StepAwaitingTicketAnswer:
		_, err := b.machine.SubmitAnswer(ctx, userID, msg.Text)
		if errors.Is(err, errs.ErrDelivery) {
			b.logger.Warn("answer not delivered", zap.Error(err), zap.Int64("admin_id", userID))
			return b.gateway.SendText(ctx, msg.ChatID, ui.AnswerFailed, nil)
		}
		if err != nil {
			return b.replyError(ctx, msg.ChatID, err, ui.InvalidData)
		}
		return b.gateway.SendText(ctx, msg.ChatID, ui.AnswerDelivered, nil)

	case conversation.StepAwaitingPriority:
		return b.gateway.SendText(ctx, msg.ChatID, ui.AskPriority, ui.PriorityKeyboard())
	case conversation.StepAwaitingFileChoice:
		return b.gateway.SendText(ctx, msg.ChatID, ui.AskFileChoice, ui.FileChoiceKeyboard())
	case conversation.StepAwaitingMessageChoice:
		return b.gateway.SendText(ctx, msg.ChatID, ui.AskMessageChoice, ui.MessageChoiceKeyboard())
	}

	return b.gateway.SendText(ctx, msg.ChatID, ui.UnknownCommand, nil)
}

func (b *Bot) HandleCallback(ctx context.Context, cb telegram.CallbackUpdate) error {
	notice, err := b.routeCallback(ctx, cb)
	if answerErr := b.gateway.AnswerCallback(ctx, cb.CallbackID, notice); answerErr != nil {
		b.logger.Debug("answer callback", zap.Error(answerErr))
	}
	return err
}

// routeCallback returns the short notice shown on the pressed button.
func (b *Bot) routeCallback(ctx context.Context, cb telegram.CallbackUpdate) (string, error) {
	user := cb.User
	data := strings.TrimSpace(cb.Data)

	if strings.HasPrefix(data, "adm:") || strings.HasPrefix(data, "status:") {
		if !b.isAdmin(user.ID) {
			return ui.AdminsOnly, nil
		}
		return b.routeAdminCallback(ctx, cb, data)
	}

	switch data {
	case ui.CallbackSubmitTicket:
		if err := b.machine.BeginSubmission(user); err != nil {
			return b.callbackError(ctx, cb.ChatID, err)
		}
		return "", b.gateway.SendText(ctx, cb.ChatID, ui.AskTopic, nil)

	case ui.CallbackFileYes, ui.CallbackFileNo:
		wantsFile := data == ui.CallbackFileYes
		if err := b.machine.ChooseFileOption(user.ID, wantsFile); err != nil {
			return b.callbackError(ctx, cb.ChatID, err)
		}
		if wantsFile {
			return "", b.gateway.SendText(ctx, cb.ChatID, ui.AskFile, nil)
		}
		return "", b.gateway.SendText(ctx, cb.ChatID, ui.AskMessageChoice, ui.MessageChoiceKeyboard())

	case ui.CallbackMessageYes:
		if _, err := b.machine.ChooseMessageOption(ctx, user, true); err != nil {
			return b.callbackError(ctx, cb.ChatID, err)
		}
		return "", b.gateway.SendText(ctx, cb.ChatID, ui.AskMessage, nil)

	case ui.CallbackMessageNo:
		ticket, err := b.machine.ChooseMessageOption(ctx, user, false)
		if err != nil {
			return b.callbackError(ctx, cb.ChatID, err)
		}
		return "", b.gateway.SendText(ctx, cb.ChatID, ui.TicketAccepted(*ticket), nil)
	}

	if value, ok := ui.ParsePriorityCallback(data); ok {
		priority, err := b.machine.ChoosePriority(user.ID, value)
		if err != nil {
			return b.callbackError(ctx, cb.ChatID, err)
		}
		return "", b.gateway.SendText(ctx, cb.ChatID, ui.PriorityChosen(priority), ui.FileChoiceKeyboard())
	}

	return ui.InvalidData, nil
}

func (b *Bot) routeAdminCallback(ctx context.Context, cb telegram.CallbackUpdate, data string) (string, error) {
	adminID := cb.User.ID

	switch data {
	case ui.CallbackAdminBan:
		_ = b.machine.BeginModeration(adminID, enums.ModerationActionBan)
		return "", b.gateway.SendText(ctx, cb.ChatID, ui.AskBanPayload, nil)
	case ui.CallbackAdminMute:
		_ = b.machine.BeginModeration(adminID, enums.ModerationActionMute)
		return "", b.gateway.SendText(ctx, cb.ChatID, ui.AskMutePayload, nil)
	case ui.CallbackAdminUnban:
		_ = b.machine.BeginModeration(adminID, enums.ModerationActionUnban)
		return "", b.gateway.SendText(ctx, cb.ChatID, ui.AskUnbanPayload, nil)
	case ui.CallbackAdminTickets:
		return b.sendTicketList(ctx, cb.ChatID)
	case ui.CallbackAdminStats:
		return b.sendStats(ctx, cb.ChatID)
	case ui.CallbackAdminCancel:
		b.machine.Cancel(adminID)
		return ui.ActionCancelled, b.gateway.SendText(ctx, cb.ChatID, ui.ActionCancelled, nil)
	}

	if ticketID, ok := ui.ParseAnswerCallback(data); ok {
		ticket, err := b.machine.BeginAnswer(ctx, adminID, ticketID)
		if err != nil {
			return b.callbackError(ctx, cb.ChatID, err)
		}
		return "", b.gateway.SendText(ctx, cb.ChatID, ui.AnswerPrompt(ticket), nil)
	}

	if ticketID, rawStatus, ok := ui.ParseStatusCallback(data); ok {
		status, valid := enums.ParseTicketStatus(rawStatus)
		if !valid {
			return ui.InvalidData, nil
		}
		ticket, err := b.tickets.ChangeStatus(ctx, ticketID, status)
		if err != nil {
			return b.callbackError(ctx, cb.ChatID, err)
		}
		return "", b.gateway.EditText(ctx, cb.ChatID, cb.MessageID, ui.StatusChangedAdmin(ticket), nil)
	}

	return ui.InvalidData, nil
}

func (b *Bot) sendTicketList(ctx context.Context, chatID int64) (string, error) {
	items, err := b.tickets.List(ctx)
	if err != nil {
		b.logger.Error("list tickets", zap.Error(err))
		return ui.StoreUnavailable, nil
	}
	if len(items) == 0 {
		return "", b.gateway.SendText(ctx, chatID, ui.NoTickets, nil)
	}
	return "", b.gateway.SendText(ctx, chatID, ui.ChooseTicket, ui.TicketListKeyboard(items))
}

func (b *Bot) sendStats(ctx context.Context, chatID int64) (string, error) {
	items, err := b.stats.Ranked(ctx)
	if err != nil {
		b.logger.Error("load stats", zap.Error(err))
		return ui.StoreUnavailable, nil
	}
	return "", b.gateway.SendText(ctx, chatID, ui.StatsReport(items), nil)
}

// replyError maps a conversation error to a chat reply. invalid is the text
// used for validation failures of the current step.
func (b *Bot) replyError(ctx context.Context, chatID int64, err error, invalid string) error {
	var restricted *conversation.RestrictedError
	switch {
	case errors.As(err, &restricted):
		return b.gateway.SendText(ctx, chatID, restrictionNotice(restricted.Kind), nil)
	case errors.Is(err, errs.ErrValidation):
		return b.gateway.SendText(ctx, chatID, invalid, nil)
	case errors.Is(err, errs.ErrNotFound):
		return b.gateway.SendText(ctx, chatID, ui.TicketNotFound, nil)
	case errors.Is(err, conversation.ErrUnexpectedStep):
		return b.gateway.SendText(ctx, chatID, ui.NoActiveFlow, nil)
	default:
		b.logger.Error("handle message", zap.Error(err), zap.Int64("chat_id", chatID))
		return b.gateway.SendText(ctx, chatID, ui.SubmitFailed, nil)
	}
}

func (b *Bot) callbackError(ctx context.Context, chatID int64, err error) (string, error) {
	var restricted *conversation.RestrictedError
	switch {
	case errors.As(err, &restricted):
		return "", b.gateway.SendText(ctx, chatID, restrictionNotice(restricted.Kind), nil)
	case errors.Is(err, conversation.ErrUnexpectedStep):
		return ui.NoActiveFlow, nil
	case errors.Is(err, errs.ErrNotFound):
		return ui.TicketNotFound, nil
	case errors.Is(err, errs.ErrValidation):
		return ui.InvalidData, nil
	default:
		b.logger.Error("handle callback", zap.Error(err), zap.Int64("chat_id", chatID))
		return "", b.gateway.SendText(ctx, chatID, ui.SubmitFailed, nil)
	}
}

func restrictionNotice(kind enums.ModerationKind) string {
	switch kind {
	case enums.ModerationBan:
		return ui.BannedNotice
	case enums.ModerationMute:
		return ui.MutedNotice
	default:
		return ui.SubmissionBlocked
	}
}

func attachmentOf(msg telegram.MessageUpdate) model.Attachment {
	switch {
	case msg.DocumentFileID != "":
		return model.Attachment{FileID: msg.DocumentFileID, Kind: enums.AttachmentDocument}
	case msg.PhotoFileID != "":
		return model.Attachment{FileID: msg.PhotoFileID, Kind: enums.AttachmentPhoto}
	default:
		return model.Attachment{}
	}
}
