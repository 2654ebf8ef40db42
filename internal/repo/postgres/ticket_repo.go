package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flor-ldlse/feedback-bot/internal/domain/enums"
	"github.com/flor-ldlse/feedback-bot/internal/domain/model"
	"github.com/flor-ldlse/feedback-bot/internal/errs"
	"github.com/flor-ldlse/feedback-bot/internal/services/tickets"
)

const ticketColumns = `id, user_id, user_name, message, file_id, file_type, priority, topic, status, created_at`

type TicketRepo struct {
	pool *pgxpool.Pool
}

func NewTicketRepo(pool *pgxpool.Pool) *TicketRepo {
	return &TicketRepo{pool: pool}
}

func (r *TicketRepo) Create(ctx context.Context, draft model.TicketDraft, createdAt time.Time) (model.Ticket, error) {
	if r.pool == nil {
		return model.Ticket{}, fmt.Errorf("%w: postgres pool is nil", errs.ErrPersistence)
	}

	pending := model.NewTicket(0, draft, createdAt)
	var fileType *string
	if pending.FileType != nil {
		kind := string(*pending.FileType)
		fileType = &kind
	}

	row := r.pool.QueryRow(ctx, `
INSERT INTO tickets (
	user_id,
	user_name,
	message,
	file_id,
	file_type,
	priority,
	topic,
	status,
	created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING `+ticketColumns,
		pending.UserID,
		pending.UserName,
		pending.Message,
		pending.FileID,
		fileType,
		string(pending.Priority),
		pending.Topic,
		string(pending.Status),
		pending.CreatedAt,
	)
	ticket, err := scanTicket(row)
	if err != nil {
		return model.Ticket{}, fmt.Errorf("%w: create ticket: %w", errs.ErrPersistence, err)
	}
	return ticket, nil
}

func (r *TicketRepo) FindByID(ctx context.Context, id int64) (model.Ticket, error) {
	if r.pool == nil {
		return model.Ticket{}, fmt.Errorf("%w: postgres pool is nil", errs.ErrPersistence)
	}

	ticket, err := scanTicket(r.pool.QueryRow(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Ticket{}, tickets.ErrTicketNotFound
	}
	if err != nil {
		return model.Ticket{}, fmt.Errorf("%w: get ticket %d: %w", errs.ErrPersistence, id, err)
	}
	return ticket, nil
}

func (r *TicketRepo) SetStatus(ctx context.Context, id int64, status enums.TicketStatus) (model.Ticket, error) {
	if r.pool == nil {
		return model.Ticket{}, fmt.Errorf("%w: postgres pool is nil", errs.ErrPersistence)
	}

	ticket, err := scanTicket(r.pool.QueryRow(ctx, `
UPDATE tickets
SET status = $2
WHERE id = $1
RETURNING `+ticketColumns, id, string(status)))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Ticket{}, tickets.ErrTicketNotFound
	}
	if err != nil {
		return model.Ticket{}, fmt.Errorf("%w: update ticket %d: %w", errs.ErrPersistence, id, err)
	}
	return ticket, nil
}

func (r *TicketRepo) ListAll(ctx context.Context) ([]model.Ticket, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("%w: postgres pool is nil", errs.ErrPersistence)
	}

	rows, err := r.pool.Query(ctx, `SELECT `+ticketColumns+` FROM tickets ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("%w: list tickets: %w", errs.ErrPersistence, err)
	}
	defer rows.Close()

	out := make([]model.Ticket, 0)
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan ticket: %w", errs.ErrPersistence, err)
		}
		out = append(out, ticket)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate tickets: %w", errs.ErrPersistence, err)
	}
	return out, nil
}

func scanTicket(row pgx.Row) (model.Ticket, error) {
	var (
		ticket   model.Ticket
		fileType *string
		priority string
		status   string
	)
	if err := row.Scan(
		&ticket.ID,
		&ticket.UserID,
		&ticket.UserName,
		&ticket.Message,
		&ticket.FileID,
		&fileType,
		&priority,
		&ticket.Topic,
		&status,
		&ticket.CreatedAt,
	); err != nil {
		return model.Ticket{}, err
	}
	if fileType != nil {
		kind := enums.AttachmentKind(*fileType)
		ticket.FileType = &kind
	}
	ticket.Priority = enums.Priority(priority)
	ticket.Status = enums.TicketStatus(status)
	ticket.CreatedAt = ticket.CreatedAt.UTC()
	return ticket, nil
}
