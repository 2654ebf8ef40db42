package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/flor-ldlse/feedback-bot/internal/domain/enums"
	"github.com/flor-ldlse/feedback-bot/internal/domain/model"
	"github.com/flor-ldlse/feedback-bot/internal/errs"
	"github.com/flor-ldlse/feedback-bot/internal/services/stats"
	httperrors "github.com/flor-ldlse/feedback-bot/internal/transport/http/errors"
)

type TicketReader interface {
	Get(ctx context.Context, id int64) (model.Ticket, error)
	ListByStatus(ctx context.Context, status enums.TicketStatus) ([]model.Ticket, error)
}

type StatsReader interface {
	Ranked(ctx context.Context) ([]stats.TopicCount, error)
}

type ModerationReader interface {
	Entries(kind enums.ModerationKind) []model.ModerationEntry
}

type ticketsResponse struct {
	Items []model.Ticket `json:"items"`
	Total int            `json:"total"`
}

type statsResponse struct {
	Items []stats.TopicCount `json:"items"`
}

type moderationResponse struct {
	Bans  []model.ModerationEntry `json:"bans"`
	Mutes []model.ModerationEntry `json:"mutes"`
}

// StatusHandler serves the read-only status API.
type StatusHandler struct {
	tickets    TicketReader
	stats      StatsReader
	moderation ModerationReader
	logger     *zap.Logger
}

func NewStatusHandler(tickets TicketReader, stats StatsReader, moderation ModerationReader, logger *zap.Logger) *StatusHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatusHandler{tickets: tickets, stats: stats, moderation: moderation, logger: logger}
}

func (h *StatusHandler) Health(w http.ResponseWriter, _ *http.Request) {
	httperrors.Write(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *StatusHandler) ListTickets(w http.ResponseWriter, r *http.Request) {
	var status enums.TicketStatus
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		parsed, ok := enums.ParseTicketStatus(raw)
		if !ok {
			httperrors.WriteError(w, http.StatusBadRequest, "VALIDATION_ERROR", "unknown status")
			return
		}
		status = parsed
	}

	items, err := h.tickets.ListByStatus(r.Context(), status)
	if err != nil {
		h.logger.Error("list tickets", zap.Error(err))
		httperrors.WriteError(w, http.StatusInternalServerError, "STORE_UNAVAILABLE", "ticket store is unavailable")
		return
	}
	if items == nil {
		items = []model.Ticket{}
	}
	httperrors.Write(w, http.StatusOK, ticketsResponse{Items: items, Total: len(items)})
}

func (h *StatusHandler) GetTicket(w http.ResponseWriter, r *http.Request) {
	rawID := strings.TrimSpace(chi.URLParam(r, "id"))
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || id <= 0 {
		httperrors.WriteError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid ticket id")
		return
	}

	ticket, err := h.tickets.Get(r.Context(), id)
	if errors.Is(err, errs.ErrNotFound) {
		httperrors.WriteError(w, http.StatusNotFound, "NOT_FOUND", "ticket not found")
		return
	}
	if err != nil {
		h.logger.Error("get ticket", zap.Error(err), zap.Int64("ticket_id", id))
		httperrors.WriteError(w, http.StatusInternalServerError, "STORE_UNAVAILABLE", "ticket store is unavailable")
		return
	}
	httperrors.Write(w, http.StatusOK, ticket)
}

func (h *StatusHandler) Stats(w http.ResponseWriter, r *http.Request) {
	items, err := h.stats.Ranked(r.Context())
	if err != nil {
		h.logger.Error("load stats", zap.Error(err))
		httperrors.WriteError(w, http.StatusInternalServerError, "STORE_UNAVAILABLE", "stats store is unavailable")
		return
	}
	if items == nil {
		items = []stats.TopicCount{}
	}
	httperrors.Write(w, http.StatusOK, statsResponse{Items: items})
}

func (h *StatusHandler) Moderation(w http.ResponseWriter, _ *http.Request) {
	resp := moderationResponse{
		Bans:  h.moderation.Entries(enums.ModerationBan),
		Mutes: h.moderation.Entries(enums.ModerationMute),
	}
	if resp.Bans == nil {
		resp.Bans = []model.ModerationEntry{}
	}
	if resp.Mutes == nil {
		resp.Mutes = []model.ModerationEntry{}
	}
	httperrors.Write(w, http.StatusOK, resp)
}

// Register mounts the handler on r.
func (h *StatusHandler) Register(r chi.Router) {
	r.Get("/healthz", h.Health)
	r.Route("/tickets", func(r chi.Router) {
		r.Get("/", h.ListTickets)
		r.Get("/{id}", h.GetTicket)
	})
	r.Get("/stats", h.Stats)
	r.Get("/moderation", h.Moderation)
}
