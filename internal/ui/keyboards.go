package ui

import (
	"fmt"

	"github.com/flor-ldlse/feedback-bot/internal/domain/enums"
	"github.com/flor-ldlse/feedback-bot/internal/domain/model"
	"github.com/flor-ldlse/feedback-bot/internal/infra/telegram"
)

func StartKeyboard() [][]telegram.InlineButton {
	return [][]telegram.InlineButton{{{Text: "Submit a ticket", Data: CallbackSubmitTicket}}}
}

func PriorityKeyboard() [][]telegram.InlineButton {
	return [][]telegram.InlineButton{
		{{Text: "🔴 High", Data: CallbackPriorityHigh}},
		{{Text: "⚪ Low", Data: CallbackPriorityLow}},
	}
}

func FileChoiceKeyboard() [][]telegram.InlineButton {
	return [][]telegram.InlineButton{
		{{Text: "📎 Attach a file or photo", Data: CallbackFileYes}},
		{{Text: "🚫 No file", Data: CallbackFileNo}},
	}
}

func MessageChoiceKeyboard() [][]telegram.InlineButton {
	return [][]telegram.InlineButton{
		{{Text: "✍️ Write a message", Data: CallbackMessageYes}},
		{{Text: "🚫 No message", Data: CallbackMessageNo}},
	}
}

func AdminPanelKeyboard() [][]telegram.InlineButton {
	return [][]telegram.InlineButton{
		{{Text: "Ban", Data: CallbackAdminBan}},
		{{Text: "Mute", Data: CallbackAdminMute}},
		{{Text: "Unban / Unmute", Data: CallbackAdminUnban}},
		{{Text: "View tickets", Data: CallbackAdminTickets}},
		{{Text: "Stats", Data: CallbackAdminStats}},
	}
}

func TicketControlsKeyboard(ticketID int64) [][]telegram.InlineButton {
	return [][]telegram.InlineButton{
		{{Text: enums.TicketStatusInProgress.Label(), Data: StatusCallback(ticketID, enums.TicketStatusInProgress)}},
		{{Text: enums.TicketStatusClosed.Label(), Data: StatusCallback(ticketID, enums.TicketStatusClosed)}},
		{{Text: "Cancel", Data: CallbackAdminCancel}},
	}
}

// TicketListKeyboard has one button per ticket and a trailing Cancel.
func TicketListKeyboard(tickets []model.Ticket) [][]telegram.InlineButton {
	rows := make([][]telegram.InlineButton, 0, len(tickets)+1)
	for _, ticket := range tickets {
		label := fmt.Sprintf("#%d %s (%s) [%s]", ticket.ID, ticket.Topic, ticket.Priority.Label(), ticket.Status.Label())
		rows = append(rows, []telegram.InlineButton{{Text: label, Data: AnswerCallback(ticket.ID)}})
	}
	rows = append(rows, []telegram.InlineButton{{Text: "Cancel", Data: CallbackAdminCancel}})
	return rows
}
