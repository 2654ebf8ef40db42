package conversation

import (
	"github.com/flor-ldlse/feedback-bot/internal/domain/enums"
	"github.com/flor-ldlse/feedback-bot/internal/domain/model"
)

type Step string

const (
	StepIdle                    Step = "idle"
	StepAwaitingTopic           Step = "awaiting_topic"
	StepAwaitingPriority        Step = "awaiting_priority"
	StepAwaitingFileChoice      Step = "awaiting_file_choice"
	StepAwaitingFile            Step = "awaiting_file"
	StepAwaitingMessageChoice   Step = "awaiting_message_choice"
	StepAwaitingMessage         Step = "awaiting_message"
	StepAwaitingModerationInput Step = "awaiting_moderation_input"
	StepAwaitingTicketAnswer    Step = "awaiting_ticket_answer"
)

// Session is one of the state structs below. Idle has no struct: an idle
// user simply has no stored session.
type Session interface {
	Step() Step
	session()
}

type AwaitingTopic struct{}

type AwaitingPriority struct {
	Topic string
}

type AwaitingFileChoice struct {
	Topic    string
	Priority enums.Priority
}

type AwaitingFile struct {
	Topic    string
	Priority enums.Priority
}

type AwaitingMessageChoice struct {
	Topic      string
	Priority   enums.Priority
	Attachment *model.Attachment
}

type AwaitingMessage struct {
	Topic      string
	Priority   enums.Priority
	Attachment *model.Attachment
}

type AwaitingModerationInput struct {
	Action enums.ModerationAction
}

type AwaitingTicketAnswer struct {
	TicketID int64
}

func (AwaitingTopic) Step() Step           { return StepAwaitingTopic }
func (AwaitingPriority) Step() Step        { return StepAwaitingPriority }
func (AwaitingFileChoice) Step() Step      { return StepAwaitingFileChoice }
func (AwaitingFile) Step() Step            { return StepAwaitingFile }
func (AwaitingMessageChoice) Step() Step   { return StepAwaitingMessageChoice }
func (AwaitingMessage) Step() Step         { return StepAwaitingMessage }
func (AwaitingModerationInput) Step() Step { return StepAwaitingModerationInput }
func (AwaitingTicketAnswer) Step() Step    { return StepAwaitingTicketAnswer }

func (AwaitingTopic) session()           {}
func (AwaitingPriority) session()        {}
func (AwaitingFileChoice) session()      {}
func (AwaitingFile) session()            {}
func (AwaitingMessageChoice) session()   {}
func (AwaitingMessage) session()         {}
func (AwaitingModerationInput) session() {}
func (AwaitingTicketAnswer) session()    {}

func (s AwaitingMessage) draft(user model.User, message string) model.TicketDraft {
	return model.TicketDraft{
		User:       user,
		Topic:      s.Topic,
		Priority:   s.Priority,
		Attachment: s.Attachment,
		Message:    message,
	}
}
