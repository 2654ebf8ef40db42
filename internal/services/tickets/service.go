package tickets

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/flor-ldlse/feedback-bot/internal/domain/enums"
	"github.com/flor-ldlse/feedback-bot/internal/domain/model"
	"github.com/flor-ldlse/feedback-bot/internal/errs"
	"github.com/flor-ldlse/feedback-bot/internal/services/notify"
)

const MinTopicLength = 3

const (
	EventTicketCreated       = "ticket.created"
	EventTicketStatusChanged = "ticket.status_changed"
)

var ErrTicketNotFound = fmt.Errorf("ticket %w", errs.ErrNotFound)

// Repo implementations must serialize id assignment in Create.
type Repo interface {
	Create(ctx context.Context, draft model.TicketDraft, createdAt time.Time) (model.Ticket, error)
	FindByID(ctx context.Context, id int64) (model.Ticket, error)
	SetStatus(ctx context.Context, id int64, status enums.TicketStatus) (model.Ticket, error)
	ListAll(ctx context.Context) ([]model.Ticket, error)
}

type StatsRecorder interface {
	Increment(ctx context.Context, topic string) error
}

type Notifier interface {
	NotifyAdmins(ctx context.Context, ticket model.Ticket) notify.Report
	NotifyOwner(ctx context.Context, ticket model.Ticket) error
}

type EventPublisher interface {
	PublishTicketEvent(ctx context.Context, event string, ticket model.Ticket)
}

type Dependencies struct {
	Repo     Repo
	Stats    StatsRecorder
	Notifier Notifier
	Events   EventPublisher
	Logger   *zap.Logger
}

type Service struct {
	repo     Repo
	stats    StatsRecorder
	notifier Notifier
	events   EventPublisher
	logger   *zap.Logger
	now      func() time.Time
}

func NewService(deps Dependencies) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:     deps.Repo,
		stats:    deps.Stats,
		notifier: deps.Notifier,
		events:   deps.Events,
		logger:   logger,
		now:      time.Now,
	}
}

// ValidateTopic trims the topic and checks its length in characters.
func ValidateTopic(raw string) (string, error) {
	topic := strings.TrimSpace(raw)
	if utf8.RuneCountInString(topic) < MinTopicLength {
		return "", fmt.Errorf("%w: topic must have at least %d characters", errs.ErrValidation, MinTopicLength)
	}
	return topic, nil
}

// Submit persists a finished draft, then counts its topic and tells the
// administrators. Only the persistence step can fail the call.
func (s *Service) Submit(ctx context.Context, draft model.TicketDraft) (model.Ticket, error) {
	if s.repo == nil {
		return model.Ticket{}, fmt.Errorf("%w: ticket repo is not configured", errs.ErrPersistence)
	}
	if draft.User.ID == 0 {
		return model.Ticket{}, fmt.Errorf("%w: submitter is unknown", errs.ErrValidation)
	}
	topic, err := ValidateTopic(draft.Topic)
	if err != nil {
		return model.Ticket{}, err
	}
	draft.Topic = topic
	if _, ok := enums.ParsePriority(string(draft.Priority)); !ok {
		return model.Ticket{}, fmt.Errorf("%w: unknown priority %q", errs.ErrValidation, draft.Priority)
	}

	ticket, err := s.repo.Create(ctx, draft, s.now().UTC())
	if err != nil {
		return model.Ticket{}, fmt.Errorf("create ticket: %w", err)
	}
	s.logger.Info("ticket created",
		zap.Int64("ticket_id", ticket.ID),
		zap.Int64("user_id", ticket.UserID),
		zap.String("priority", string(ticket.Priority)),
	)

	if s.stats != nil {
		if err := s.stats.Increment(ctx, ticket.Topic); err != nil {
			s.logger.Error("increment topic stats", zap.Error(err), zap.Int64("ticket_id", ticket.ID))
		}
	}

	if s.events != nil {
		s.events.PublishTicketEvent(ctx, EventTicketCreated, ticket)
	}

	if s.notifier != nil {
		report := s.notifier.NotifyAdmins(ctx, ticket)
		if len(report.Failed) > 0 {
			s.logger.Warn("ticket fan-out incomplete",
				zap.Int64("ticket_id", ticket.ID),
				zap.Int("delivered", report.Delivered),
				zap.Int("failed", len(report.Failed)),
			)
		}
	}

	return ticket, nil
}

// ChangeStatus stores the new status and notifies the owner. A failed
// notification never reverts the stored status.
func (s *Service) ChangeStatus(ctx context.Context, id int64, status enums.TicketStatus) (model.Ticket, error) {
	if s.repo == nil {
		return model.Ticket{}, fmt.Errorf("%w: ticket repo is not configured", errs.ErrPersistence)
	}
	if _, ok := enums.ParseTicketStatus(string(status)); !ok {
		return model.Ticket{}, fmt.Errorf("%w: unknown status %q", errs.ErrValidation, status)
	}

	ticket, err := s.repo.SetStatus(ctx, id, status)
	if err != nil {
		return model.Ticket{}, err
	}
	s.logger.Info("ticket status changed", zap.Int64("ticket_id", id), zap.String("status", string(status)))

	if s.events != nil {
		s.events.PublishTicketEvent(ctx, EventTicketStatusChanged, ticket)
	}

	if s.notifier != nil {
		if err := s.notifier.NotifyOwner(ctx, ticket); err != nil {
			s.logger.Warn("notify ticket owner", zap.Error(err), zap.Int64("ticket_id", id))
		}
	}

	return ticket, nil
}

func (s *Service) Get(ctx context.Context, id int64) (model.Ticket, error) {
	if s.repo == nil {
		return model.Ticket{}, ErrTicketNotFound
	}
	return s.repo.FindByID(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]model.Ticket, error) {
	if s.repo == nil {
		return []model.Ticket{}, nil
	}
	return s.repo.ListAll(ctx)
}

// ListByStatus keeps id order. An empty status returns everything.
func (s *Service) ListByStatus(ctx context.Context, status enums.TicketStatus) ([]model.Ticket, error) {
	all, err := s.List(ctx)
	if err != nil || status == "" {
		return all, err
	}
	out := make([]model.Ticket, 0, len(all))
	for _, ticket := range all {
		if ticket.Status == status {
			out = append(out, ticket)
		}
	}
	return out, nil
}
