package document

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/flor-ldlse/feedback-bot/internal/domain/enums"
	"github.com/flor-ldlse/feedback-bot/internal/domain/model"
	"github.com/flor-ldlse/feedback-bot/internal/services/tickets"
)

// TicketRepo keeps tickets.json as a JSON array. The file is read once and
// every mutation rewrites the whole document.
type TicketRepo struct {
	path   string
	logger *zap.Logger

	mu      sync.Mutex
	loaded  bool
	tickets []model.Ticket
	nextID  int64
}

func NewTicketRepo(path string, logger *zap.Logger) *TicketRepo {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketRepo{path: path, logger: logger}
}

func (r *TicketRepo) Create(_ context.Context, draft model.TicketDraft, createdAt time.Time) (model.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ensureLoaded()

	ticket := model.NewTicket(r.nextID, draft, createdAt)
	previous := r.tickets
	r.tickets = append(append(make([]model.Ticket, 0, len(previous)+1), previous...), ticket)
	if err := writeDocument(r.path, r.tickets); err != nil {
		r.tickets = previous
		return model.Ticket{}, err
	}
	r.nextID++
	return ticket, nil
}

func (r *TicketRepo) FindByID(_ context.Context, id int64) (model.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ensureLoaded()

	idx := r.indexOf(id)
	if idx < 0 {
		return model.Ticket{}, tickets.ErrTicketNotFound
	}
	return r.tickets[idx], nil
}

func (r *TicketRepo) SetStatus(_ context.Context, id int64, status enums.TicketStatus) (model.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ensureLoaded()

	idx := r.indexOf(id)
	if idx < 0 {
		return model.Ticket{}, tickets.ErrTicketNotFound
	}
	previous := r.tickets[idx].Status
	r.tickets[idx].Status = status
	if err := writeDocument(r.path, r.tickets); err != nil {
		r.tickets[idx].Status = previous
		return model.Ticket{}, err
	}
	return r.tickets[idx], nil
}

func (r *TicketRepo) ListAll(_ context.Context) ([]model.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ensureLoaded()

	out := append([]model.Ticket(nil), r.tickets...)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *TicketRepo) ensureLoaded() {
	if r.loaded {
		return
	}
	r.loaded = true

	var stored []model.Ticket
	if _, err := readDocument(r.path, &stored); err != nil {
		r.logger.Error("load tickets, starting from an empty collection", zap.Error(err), zap.String("path", r.path))
		stored = nil
	}
	r.tickets = stored

	var maxID int64
	for _, ticket := range stored {
		if ticket.ID > maxID {
			maxID = ticket.ID
		}
	}
	r.nextID = maxID + 1
}

func (r *TicketRepo) indexOf(id int64) int {
	for i := range r.tickets {
		if r.tickets[i].ID == id {
			return i
		}
	}
	return -1
}
