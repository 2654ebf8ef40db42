package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/flor-ldlse/feedback-bot/internal/domain/enums"
	"github.com/flor-ldlse/feedback-bot/internal/domain/model"
	"github.com/flor-ldlse/feedback-bot/internal/errs"
	"github.com/flor-ldlse/feedback-bot/internal/services/tickets"
)

const setStatusAttempts = 5

// TicketRepo stores each ticket as a JSON string and keeps a sorted set of
// ids for ordered listing. Ids come from INCR on a sequence key.
type TicketRepo struct {
	client *goredis.Client
	keys   keys
}

func NewTicketRepo(client *goredis.Client, prefix string) *TicketRepo {
	return &TicketRepo{client: client, keys: newKeys(prefix)}
}

func (r *TicketRepo) Create(ctx context.Context, draft model.TicketDraft, createdAt time.Time) (model.Ticket, error) {
	if r.client == nil {
		return model.Ticket{}, fmt.Errorf("%w: redis client is nil", errs.ErrPersistence)
	}

	id, err := r.client.Incr(ctx, r.keys.ticketSeq()).Result()
	if err != nil {
		return model.Ticket{}, fmt.Errorf("%w: next ticket id: %w", errs.ErrPersistence, err)
	}

	ticket := model.NewTicket(id, draft, createdAt)
	payload, err := json.Marshal(ticket)
	if err != nil {
		return model.Ticket{}, fmt.Errorf("%w: encode ticket: %w", errs.ErrPersistence, err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.keys.ticket(id), payload, 0)
	pipe.ZAdd(ctx, r.keys.ticketIndex(), goredis.Z{Score: float64(id), Member: strconv.FormatInt(id, 10)})
	if _, err := pipe.Exec(ctx); err != nil {
		return model.Ticket{}, fmt.Errorf("%w: store ticket %d: %w", errs.ErrPersistence, id, err)
	}
	return ticket, nil
}

func (r *TicketRepo) FindByID(ctx context.Context, id int64) (model.Ticket, error) {
	if r.client == nil {
		return model.Ticket{}, fmt.Errorf("%w: redis client is nil", errs.ErrPersistence)
	}

	raw, err := r.client.Get(ctx, r.keys.ticket(id)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return model.Ticket{}, tickets.ErrTicketNotFound
	}
	if err != nil {
		return model.Ticket{}, fmt.Errorf("%w: get ticket %d: %w", errs.ErrPersistence, id, err)
	}
	return decodeTicket(raw)
}

// SetStatus rewrites the ticket inside WATCH so concurrent status changes
// do not overwrite each other.
func (r *TicketRepo) SetStatus(ctx context.Context, id int64, status enums.TicketStatus) (model.Ticket, error) {
	if r.client == nil {
		return model.Ticket{}, fmt.Errorf("%w: redis client is nil", errs.ErrPersistence)
	}

	key := r.keys.ticket(id)
	var updated model.Ticket
	txf := func(tx *goredis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, goredis.Nil) {
			return tickets.ErrTicketNotFound
		}
		if err != nil {
			return fmt.Errorf("%w: get ticket %d: %w", errs.ErrPersistence, id, err)
		}
		ticket, err := decodeTicket(raw)
		if err != nil {
			return err
		}
		ticket.Status = status
		payload, err := json.Marshal(ticket)
		if err != nil {
			return fmt.Errorf("%w: encode ticket: %w", errs.ErrPersistence, err)
		}
		if _, err := tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Set(ctx, key, payload, 0)
			return nil
		}); err != nil {
			return err
		}
		updated = ticket
		return nil
	}

	for attempt := 0; attempt < setStatusAttempts; attempt++ {
		err := r.client.Watch(ctx, txf, key)
		if errors.Is(err, goredis.TxFailedErr) {
			continue
		}
		if err != nil {
			if errors.Is(err, errs.ErrNotFound) || errors.Is(err, errs.ErrPersistence) {
				return model.Ticket{}, err
			}
			return model.Ticket{}, fmt.Errorf("%w: update ticket %d: %w", errs.ErrPersistence, id, err)
		}
		return updated, nil
	}
	return model.Ticket{}, fmt.Errorf("%w: update ticket %d: too many concurrent updates", errs.ErrPersistence, id)
}

func (r *TicketRepo) ListAll(ctx context.Context) ([]model.Ticket, error) {
	if r.client == nil {
		return nil, fmt.Errorf("%w: redis client is nil", errs.ErrPersistence)
	}

	members, err := r.client.ZRange(ctx, r.keys.ticketIndex(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: list ticket ids: %w", errs.ErrPersistence, err)
	}
	if len(members) == 0 {
		return []model.Ticket{}, nil
	}

	ticketKeys := make([]string, 0, len(members))
	for _, member := range members {
		id, err := strconv.ParseInt(member, 10, 64)
		if err != nil {
			continue
		}
		ticketKeys = append(ticketKeys, r.keys.ticket(id))
	}

	values, err := r.client.MGet(ctx, ticketKeys...).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: load tickets: %w", errs.ErrPersistence, err)
	}
	out := make([]model.Ticket, 0, len(values))
	for _, value := range values {
		raw, ok := value.(string)
		if !ok {
			continue
		}
		ticket, err := decodeTicket([]byte(raw))
		if err != nil {
			return nil, err
		}
		out = append(out, ticket)
	}
	return out, nil
}

func decodeTicket(raw []byte) (model.Ticket, error) {
	var ticket model.Ticket
	if err := json.Unmarshal(raw, &ticket); err != nil {
		return model.Ticket{}, fmt.Errorf("%w: decode ticket: %w", errs.ErrPersistence, err)
	}
	return ticket, nil
}
