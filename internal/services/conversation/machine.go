package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/flor-ldlse/feedback-bot/internal/domain/enums"
	"github.com/flor-ldlse/feedback-bot/internal/domain/model"
	"github.com/flor-ldlse/feedback-bot/internal/errs"
	"github.com/flor-ldlse/feedback-bot/internal/services/moderation"
	"github.com/flor-ldlse/feedback-bot/internal/services/tickets"
)

// ErrUnexpectedStep is returned when an operation does not apply to the
// user's current step, usually a stale button press.
var ErrUnexpectedStep = errors.New("unexpected conversation step")

// RestrictedError reports a banned or muted user.
type RestrictedError struct {
	Kind enums.ModerationKind
}

func (e *RestrictedError) Error() string {
	return fmt.Sprintf("user is restricted: %s", e.Kind)
}

func (e *RestrictedError) Unwrap() error {
	return errs.ErrPermissionDenied
}

type Guard interface {
	Restricted(userID int64) (enums.ModerationKind, bool)
}

type Moderator interface {
	Ban(userID int64, term moderation.Term) (model.ModerationEntry, error)
	Mute(userID int64, term moderation.Term) (model.ModerationEntry, error)
	Unban(userID int64)
	Unmute(userID int64)
}

type Submitter interface {
	Submit(ctx context.Context, draft model.TicketDraft) (model.Ticket, error)
}

type TicketLookup interface {
	Get(ctx context.Context, id int64) (model.Ticket, error)
}

type Replier interface {
	DeliverAnswer(ctx context.Context, ticket model.Ticket, text string) error
}

type Dependencies struct {
	Guard     Guard
	Moderator Moderator
	Submitter Submitter
	Tickets   TicketLookup
	Replier   Replier
	Logger    *zap.Logger
}

// ModerationOutcome describes an applied administrator action. Entry is
// zero for unban.
type ModerationOutcome struct {
	Action enums.ModerationAction
	UserID int64
	Entry  model.ModerationEntry
}

// Machine keeps one session per user id. The mutex only guards the map;
// collaborators that do I/O are called after it is released.
type Machine struct {
	mu       sync.Mutex
	sessions map[int64]Session

	guard     Guard
	moderator Moderator
	submitter Submitter
	tickets   TicketLookup
	replier   Replier
	logger    *zap.Logger
}

func NewMachine(deps Dependencies) *Machine {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Machine{
		sessions:  make(map[int64]Session),
		guard:     deps.Guard,
		moderator: deps.Moderator,
		submitter: deps.Submitter,
		tickets:   deps.Tickets,
		replier:   deps.Replier,
		logger:    logger,
	}
}

func (m *Machine) Step(userID int64) Step {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.sessions[userID]
	if !ok {
		return StepIdle
	}
	return current.Step()
}

// Session returns the stored session, if any.
func (m *Machine) Session(userID int64) (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.sessions[userID]
	return current, ok
}

func (m *Machine) BeginSubmission(user model.User) error {
	if err := m.checkAllowed(user.ID); err != nil {
		return err
	}
	m.set(user.ID, AwaitingTopic{})
	return nil
}

func (m *Machine) SubmitTopic(userID int64, text string) (string, error) {
	var topic string
	err := m.transition(userID, func(current Session) (Session, error) {
		if _, ok := current.(AwaitingTopic); !ok {
			return nil, ErrUnexpectedStep
		}
		validated, err := tickets.ValidateTopic(text)
		if err != nil {
			return nil, err
		}
		topic = validated
		return AwaitingPriority{Topic: validated}, nil
	})
	return topic, err
}

func (m *Machine) ChoosePriority(userID int64, value string) (enums.Priority, error) {
	var priority enums.Priority
	err := m.transition(userID, func(current Session) (Session, error) {
		state, ok := current.(AwaitingPriority)
		if !ok {
			return nil, ErrUnexpectedStep
		}
		parsed, ok := enums.ParsePriority(value)
		if !ok {
			return nil, fmt.Errorf("%w: unknown priority %q", errs.ErrValidation, value)
		}
		priority = parsed
		return AwaitingFileChoice{Topic: state.Topic, Priority: parsed}, nil
	})
	return priority, err
}

func (m *Machine) ChooseFileOption(userID int64, wantsFile bool) error {
	return m.transition(userID, func(current Session) (Session, error) {
		state, ok := current.(AwaitingFileChoice)
		if !ok {
			return nil, ErrUnexpectedStep
		}
		if wantsFile {
			return AwaitingFile{Topic: state.Topic, Priority: state.Priority}, nil
		}
		return AwaitingMessageChoice{Topic: state.Topic, Priority: state.Priority}, nil
	})
}

// SubmitAttachment records the file reference of a document or photo
// message. A restricted user loses the session.
func (m *Machine) SubmitAttachment(userID int64, attachment model.Attachment) error {
	if m.Step(userID) != StepAwaitingFile {
		return ErrUnexpectedStep
	}
	if err := m.checkAllowed(userID); err != nil {
		m.clear(userID)
		return err
	}
	return m.transition(userID, func(current Session) (Session, error) {
		state, ok := current.(AwaitingFile)
		if !ok {
			return nil, ErrUnexpectedStep
		}
		if strings.TrimSpace(attachment.FileID) == "" {
			return nil, fmt.Errorf("%w: a document or photo is required", errs.ErrValidation)
		}
		switch attachment.Kind {
		case enums.AttachmentDocument, enums.AttachmentPhoto:
		default:
			return nil, fmt.Errorf("%w: unsupported attachment kind %q", errs.ErrValidation, attachment.Kind)
		}
		stored := attachment
		return AwaitingMessageChoice{Topic: state.Topic, Priority: state.Priority, Attachment: &stored}, nil
	})
}

// ChooseMessageOption either moves to the message step or finalizes the
// ticket without a message. The returned ticket is nil in the first case.
func (m *Machine) ChooseMessageOption(ctx context.Context, user model.User, wantsMessage bool) (*model.Ticket, error) {
	var pending AwaitingMessage
	err := m.transition(user.ID, func(current Session) (Session, error) {
		state, ok := current.(AwaitingMessageChoice)
		if !ok {
			return nil, ErrUnexpectedStep
		}
		pending = AwaitingMessage(state)
		if wantsMessage {
			return pending, nil
		}
		return nil, nil
	})
	if err != nil || wantsMessage {
		return nil, err
	}

	ticket, err := m.finalize(ctx, user, pending, "")
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (m *Machine) SubmitMessage(ctx context.Context, user model.User, text string) (model.Ticket, error) {
	var pending AwaitingMessage
	err := m.transition(user.ID, func(current Session) (Session, error) {
		state, ok := current.(AwaitingMessage)
		if !ok {
			return nil, ErrUnexpectedStep
		}
		pending = state
		return nil, nil
	})
	if err != nil {
		return model.Ticket{}, err
	}
	return m.finalize(ctx, user, pending, text)
}

// Cancel drops any session and reports whether one existed.
func (m *Machine) Cancel(userID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[userID]
	delete(m.sessions, userID)
	return ok
}

func (m *Machine) BeginModeration(adminID int64, action enums.ModerationAction) error {
	switch action {
	case enums.ModerationActionBan, enums.ModerationActionMute, enums.ModerationActionUnban:
	default:
		return fmt.Errorf("%w: unknown moderation action %q", errs.ErrValidation, action)
	}
	m.set(adminID, AwaitingModerationInput{Action: action})
	return nil
}

func (m *Machine) BeginAnswer(ctx context.Context, adminID, ticketID int64) (model.Ticket, error) {
	if m.tickets == nil {
		return model.Ticket{}, tickets.ErrTicketNotFound
	}
	ticket, err := m.tickets.Get(ctx, ticketID)
	if err != nil {
		return model.Ticket{}, err
	}
	m.set(adminID, AwaitingTicketAnswer{TicketID: ticket.ID})
	return ticket, nil
}

// SubmitModeration parses the payload for the pending action and applies it.
// A malformed payload keeps the session so the administrator can retry.
func (m *Machine) SubmitModeration(adminID int64, text string) (ModerationOutcome, error) {
	if m.moderator == nil {
		return ModerationOutcome{}, fmt.Errorf("%w: moderation is not configured", errs.ErrValidation)
	}
	var outcome ModerationOutcome
	err := m.transition(adminID, func(current Session) (Session, error) {
		state, ok := current.(AwaitingModerationInput)
		if !ok {
			return nil, ErrUnexpectedStep
		}
		applied, err := m.applyModeration(state.Action, text)
		if err != nil {
			return nil, err
		}
		outcome = applied
		return nil, nil
	})
	if err != nil {
		return ModerationOutcome{}, err
	}
	m.logger.Info("moderation applied",
		zap.Int64("admin_id", adminID),
		zap.Int64("user_id", outcome.UserID),
		zap.String("action", string(outcome.Action)),
	)
	return outcome, nil
}

// SubmitAnswer sends the administrator's reply to the ticket owner. The
// session is consumed whatever the delivery outcome.
func (m *Machine) SubmitAnswer(ctx context.Context, adminID int64, text string) (model.Ticket, error) {
	if strings.TrimSpace(text) == "" {
		if m.Step(adminID) != StepAwaitingTicketAnswer {
			return model.Ticket{}, ErrUnexpectedStep
		}
		return model.Ticket{}, fmt.Errorf("%w: answer text is empty", errs.ErrValidation)
	}

	var ticketID int64
	err := m.transition(adminID, func(current Session) (Session, error) {
		state, ok := current.(AwaitingTicketAnswer)
		if !ok {
			return nil, ErrUnexpectedStep
		}
		ticketID = state.TicketID
		return nil, nil
	})
	if err != nil {
		return model.Ticket{}, err
	}

	if m.tickets == nil {
		return model.Ticket{}, tickets.ErrTicketNotFound
	}
	ticket, err := m.tickets.Get(ctx, ticketID)
	if err != nil {
		return model.Ticket{}, err
	}
	if m.replier == nil {
		return ticket, fmt.Errorf("%w: no reply channel", errs.ErrDelivery)
	}
	if err := m.replier.DeliverAnswer(ctx, ticket, text); err != nil {
		if !errors.Is(err, errs.ErrDelivery) {
			err = fmt.Errorf("%w: %w", errs.ErrDelivery, err)
		}
		return ticket, err
	}
	m.logger.Info("ticket answered", zap.Int64("admin_id", adminID), zap.Int64("ticket_id", ticket.ID))
	return ticket, nil
}

func (m *Machine) applyModeration(action enums.ModerationAction, text string) (ModerationOutcome, error) {
	if action == enums.ModerationActionUnban {
		userID, err := ParseUnbanPayload(text)
		if err != nil {
			return ModerationOutcome{}, err
		}
		m.moderator.Unban(userID)
		m.moderator.Unmute(userID)
		return ModerationOutcome{Action: action, UserID: userID}, nil
	}

	payload, err := ParseRestrictionPayload(text)
	if err != nil {
		return ModerationOutcome{}, err
	}
	var entry model.ModerationEntry
	switch action {
	case enums.ModerationActionBan:
		entry, err = m.moderator.Ban(payload.UserID, payload.Term)
	case enums.ModerationActionMute:
		entry, err = m.moderator.Mute(payload.UserID, payload.Term)
	default:
		return ModerationOutcome{}, fmt.Errorf("%w: unknown moderation action %q", errs.ErrValidation, action)
	}
	if err != nil {
		return ModerationOutcome{}, err
	}
	return ModerationOutcome{Action: action, UserID: payload.UserID, Entry: entry}, nil
}

// finalize runs after the session was removed, so a repeated press finds
// no session.
func (m *Machine) finalize(ctx context.Context, user model.User, pending AwaitingMessage, message string) (model.Ticket, error) {
	if err := m.checkAllowed(user.ID); err != nil {
		return model.Ticket{}, err
	}
	if m.submitter == nil {
		return model.Ticket{}, fmt.Errorf("%w: ticket service is not configured", errs.ErrPersistence)
	}
	ticket, err := m.submitter.Submit(ctx, pending.draft(user, message))
	if err != nil {
		m.logger.Error("submit ticket", zap.Error(err), zap.Int64("user_id", user.ID))
		return model.Ticket{}, err
	}
	return ticket, nil
}

func (m *Machine) checkAllowed(userID int64) error {
	if m.guard == nil {
		return nil
	}
	if kind, restricted := m.guard.Restricted(userID); restricted {
		return &RestrictedError{Kind: kind}
	}
	return nil
}

// transition applies fn to the current session under the lock. A nil next
// session removes the entry; an error leaves it untouched.
func (m *Machine) transition(userID int64, fn func(current Session) (Session, error)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.sessions[userID]
	if !ok {
		return ErrUnexpectedStep
	}
	next, err := fn(current)
	if err != nil {
		return err
	}
	if next == nil {
		delete(m.sessions, userID)
		return nil
	}
	m.sessions[userID] = next
	return nil
}

func (m *Machine) set(userID int64, next Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[userID] = next
}

func (m *Machine) clear(userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
}
