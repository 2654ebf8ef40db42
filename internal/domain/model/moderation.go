package model

import (
	"time"

	"github.com/flor-ldlse/feedback-bot/internal/domain/enums"
)

// ModerationEntry with a zero ExpiresAt is permanent.
type ModerationEntry struct {
	UserID    int64                `json:"user_id"`
	Kind      enums.ModerationKind `json:"kind"`
	Permanent bool                 `json:"permanent"`
	ExpiresAt time.Time            `json:"expires_at,omitempty"`
}

func (e ModerationEntry) ExpiredAt(now time.Time) bool {
	if e.Permanent {
		return false
	}
	return now.After(e.ExpiresAt)
}
