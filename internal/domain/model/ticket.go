package model

import (
	"time"

	"github.com/flor-ldlse/feedback-bot/internal/domain/enums"
)

type Attachment struct {
	FileID string
	Kind   enums.AttachmentKind
}

// Ticket keeps the flat document shape of tickets.json: file_id and
// file_type are both null when nothing is attached.
type Ticket struct {
	ID        int64                 `json:"id"`
	UserID    int64                 `json:"user_id"`
	UserName  string                `json:"user_name"`
	Message   string                `json:"message"`
	FileID    *string               `json:"file_id"`
	FileType  *enums.AttachmentKind `json:"file_type"`
	Priority  enums.Priority        `json:"priority"`
	Topic     string                `json:"topic"`
	Status    enums.TicketStatus    `json:"status"`
	CreatedAt time.Time             `json:"created_at"`
}

func (t Ticket) Attachment() (Attachment, bool) {
	if t.FileID == nil || *t.FileID == "" || t.FileType == nil {
		return Attachment{}, false
	}
	return Attachment{FileID: *t.FileID, Kind: *t.FileType}, true
}

// TicketDraft is everything a finished submission flow hands over.
type TicketDraft struct {
	User       User
	Topic      string
	Priority   enums.Priority
	Attachment *Attachment
	Message    string
}

// NewTicket materializes a draft once the store has assigned an id.
func NewTicket(id int64, draft TicketDraft, createdAt time.Time) Ticket {
	ticket := Ticket{
		ID:        id,
		UserID:    draft.User.ID,
		UserName:  draft.User.DisplayName(),
		Message:   draft.Message,
		Priority:  draft.Priority,
		Topic:     draft.Topic,
		Status:    enums.TicketStatusReceived,
		CreatedAt: createdAt.UTC(),
	}
	if draft.Attachment != nil && draft.Attachment.FileID != "" {
		fileID := draft.Attachment.FileID
		kind := draft.Attachment.Kind
		ticket.FileID = &fileID
		ticket.FileType = &kind
	}
	return ticket
}
