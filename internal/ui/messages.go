package ui

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/flor-ldlse/feedback-bot/internal/domain/enums"
	"github.com/flor-ldlse/feedback-bot/internal/domain/model"
	"github.com/flor-ldlse/feedback-bot/internal/services/stats"
)

const (
	UserGreeting      = "Hi! Press the button to submit a support request."
	AdminGreeting     = "Hi, admin! Choose an action:"
	AskTopic          = "Please enter the topic of your request (briefly)."
	TopicTooShort     = "The topic is too short, please try again."
	AskPriority       = "Choose a priority:"
	AskFileChoice     = "Would you like to attach a file or a photo?"
	AskFile           = "Send a file or a photo."
	FileRequired      = "Please send a file or a photo."
	AskMessageChoice  = "Would you like to add a text message to your request?"
	AskMessage        = "Please write the message for your request."
	ActionCancelled   = "Action cancelled."
	SubmissionBlocked = "You cannot submit requests."
	BannedNotice      = "You are banned and cannot submit requests."
	MutedNotice       = "You are muted and cannot submit requests."
	NoActiveFlow      = "This action is no longer available. Use /start to begin again."
	UnknownCommand    = "Unknown command. Use /start"
	SubmitFailed      = "Sorry, your request could not be saved. Please try again later."
	TicketNotFound    = "Ticket not found."
	NoTickets         = "There are no tickets."
	ChooseTicket      = "Choose a ticket to answer:"
	NoStats           = "No statistics yet."
	AnswerDelivered   = "The answer was sent to the user."
	AnswerFailed      = "Failed to send the answer."
	TicketControls    = "Ticket controls:"
	InvalidData       = "Invalid data"
	AdminsOnly        = "This action is available to administrators only."
	StoreUnavailable  = "Ticket store is unavailable, try again later."
	AskBanPayload     = "Enter the user id and ban length in minutes separated by a space, or perm.\n/cancel to abort"
	AskMutePayload    = "Enter the user id and mute length in minutes separated by a space, or perm.\n/cancel to abort"
	AskUnbanPayload   = "Enter the user id to lift the ban and mute.\n/cancel to abort"
	AttachmentMarker  = "(attachment present)"
	answerPreviewSize = 100
)

var ProcessingIndicators = []string{"⌛", "🔄", "🛠️", "⏳", "⚙️"}

func PriorityChosen(priority enums.Priority) string {
	return fmt.Sprintf("Priority selected: %s.\nWould you like to attach a file or a photo?", priority.Label())
}

func TicketAccepted(ticket model.Ticket) string {
	return fmt.Sprintf("Thank you! Your ticket #%d was accepted with priority: %s.", ticket.ID, ticket.Priority.Label())
}

// TicketSummary is what administrators receive for a new ticket.
func TicketSummary(ticket model.Ticket) string {
	body := strings.TrimSpace(ticket.Message)
	if body == "" {
		body = AttachmentMarker
	}
	return fmt.Sprintf(
		"📩 New ticket #%d\nUser: %s (ID: %d)\nPriority: %s\nTopic: %s\nStatus: %s\n\nMessage:\n%s",
		ticket.ID,
		ticket.UserName,
		ticket.UserID,
		ticket.Priority.Label(),
		ticket.Topic,
		ticket.Status.Label(),
		body,
	)
}

func ProcessingNotice(ticket model.Ticket, indicator string) string {
	return fmt.Sprintf("Your ticket #%d is being processed %s", ticket.ID, indicator)
}

func StatusChangedNotice(ticket model.Ticket) string {
	return fmt.Sprintf("Your ticket #%d status changed to: %s.", ticket.ID, ticket.Status.Label())
}

func StatusChangedAdmin(ticket model.Ticket) string {
	return fmt.Sprintf("Ticket #%d status changed to: %s", ticket.ID, ticket.Status.Label())
}

func AnswerToUser(ticketID int64, text string) string {
	return fmt.Sprintf("Answer to your ticket #%d:\n%s", ticketID, text)
}

// AnswerPrompt shows the first characters of the ticket message so the
// administrator knows what they are answering.
func AnswerPrompt(ticket model.Ticket) string {
	preview := strings.TrimSpace(ticket.Message)
	if preview == "" {
		preview = "(no text)"
	} else if utf8.RuneCountInString(preview) > answerPreviewSize {
		preview = string([]rune(preview)[:answerPreviewSize])
	}
	return fmt.Sprintf("Enter the answer for ticket #%d (topic: %s):\n%q", ticket.ID, ticket.Topic, preview)
}

func ModerationApplied(entry model.ModerationEntry) string {
	verb := "banned"
	if entry.Kind == enums.ModerationMute {
		verb = "muted"
	}
	if entry.Permanent {
		return fmt.Sprintf("User %d is %s permanently.", entry.UserID, verb)
	}
	return fmt.Sprintf("User %d is %s until %s UTC.", entry.UserID, verb, entry.ExpiresAt.UTC().Format("2006-01-02 15:04"))
}

func ModerationLifted(userID int64) string {
	return fmt.Sprintf("Ban and mute lifted for user %d.", userID)
}

func StatsReport(items []stats.TopicCount) string {
	if len(items) == 0 {
		return NoStats
	}
	lines := make([]string, 0, len(items)+1)
	lines = append(lines, "Tickets by topic:")
	for _, item := range items {
		lines = append(lines, fmt.Sprintf("- %s: %d", item.Topic, item.Count))
	}
	return strings.Join(lines, "\n")
}
