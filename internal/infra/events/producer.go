package events

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/flor-ldlse/feedback-bot/internal/domain/model"
)

type writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// TicketEvent is the JSON body of every published message.
type TicketEvent struct {
	EventID    string       `json:"event_id"`
	Event      string       `json:"event"`
	OccurredAt time.Time    `json:"occurred_at"`
	Ticket     model.Ticket `json:"ticket"`
}

// Producer publishes ticket events best-effort. Without brokers or a topic
// every call is a no-op.
type Producer struct {
	writer writer
	logger *zap.Logger
	now    func() time.Time
	newID  func() string
}

func NewProducer(brokers []string, topic string, logger *zap.Logger) *Producer {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Producer{
		logger: logger,
		now:    time.Now,
		newID:  func() string { return uuid.NewString() },
	}
	if len(brokers) == 0 || strings.TrimSpace(topic) == "" {
		return p
	}
	p.writer = &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
	}
	return p
}

func (p *Producer) Enabled() bool {
	return p.writer != nil
}

func (p *Producer) PublishTicketEvent(ctx context.Context, event string, ticket model.Ticket) {
	if p.writer == nil {
		return
	}
	body, err := json.Marshal(TicketEvent{
		EventID:    p.newID(),
		Event:      event,
		OccurredAt: p.now().UTC(),
		Ticket:     ticket,
	})
	if err != nil {
		p.logger.Warn("marshal ticket event", zap.Error(err), zap.String("event", event))
		return
	}
	msg := kafka.Message{
		Key:   []byte(ticketKey(ticket.ID)),
		Value: body,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Warn("write ticket event", zap.Error(err), zap.String("event", event), zap.Int64("ticket_id", ticket.ID))
	}
}

func (p *Producer) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}

// ParseBrokers splits "host1:9092,host2:9092".
func ParseBrokers(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func ticketKey(id int64) string {
	return "ticket-" + strconv.FormatInt(id, 10)
}
