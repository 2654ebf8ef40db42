package moderation

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/flor-ldlse/feedback-bot/internal/domain/enums"
	"github.com/flor-ldlse/feedback-bot/internal/domain/model"
	"github.com/flor-ldlse/feedback-bot/internal/errs"
)

// Term is how long a ban or mute lasts.
type Term struct {
	Permanent bool
	Length    time.Duration
}

func Permanent() Term {
	return Term{Permanent: true}
}

func For(length time.Duration) Term {
	return Term{Length: length}
}

func (t Term) String() string {
	if t.Permanent {
		return "permanently"
	}
	return "for " + t.Length.String()
}

// Registry holds ban and mute entries in memory. Expired entries are
// evicted by the first check that observes them; nothing sweeps in the
// background.
type Registry struct {
	mu      sync.Mutex
	entries map[enums.ModerationKind]map[int64]model.ModerationEntry
	nowFn   func() time.Time
}

func NewRegistry() *Registry {
	return newRegistry(time.Now)
}

func newRegistry(nowFn func() time.Time) *Registry {
	if nowFn == nil {
		nowFn = time.Now
	}
	return &Registry{
		entries: map[enums.ModerationKind]map[int64]model.ModerationEntry{
			enums.ModerationBan:  make(map[int64]model.ModerationEntry),
			enums.ModerationMute: make(map[int64]model.ModerationEntry),
		},
		nowFn: nowFn,
	}
}

func (r *Registry) Ban(userID int64, term Term) (model.ModerationEntry, error) {
	return r.put(enums.ModerationBan, userID, term)
}

func (r *Registry) Mute(userID int64, term Term) (model.ModerationEntry, error) {
	return r.put(enums.ModerationMute, userID, term)
}

func (r *Registry) Unban(userID int64) {
	r.remove(enums.ModerationBan, userID)
}

func (r *Registry) Unmute(userID int64) {
	r.remove(enums.ModerationMute, userID)
}

func (r *Registry) IsBanned(userID int64) bool {
	return r.active(enums.ModerationBan, userID)
}

func (r *Registry) IsMuted(userID int64) bool {
	return r.active(enums.ModerationMute, userID)
}

// Restricted reports whether the user may not submit tickets right now and
// which kind of entry blocks them. Bans take precedence over mutes.
func (r *Registry) Restricted(userID int64) (enums.ModerationKind, bool) {
	if r.IsBanned(userID) {
		return enums.ModerationBan, true
	}
	if r.IsMuted(userID) {
		return enums.ModerationMute, true
	}
	return "", false
}

// Entries lists the stored entries of one kind ordered by user id. It does
// not evict anything.
func (r *Registry) Entries(kind enums.ModerationKind) []model.ModerationEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	bucket := r.entries[kind]
	out := make([]model.ModerationEntry, 0, len(bucket))
	for _, entry := range bucket {
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

func (r *Registry) put(kind enums.ModerationKind, userID int64, term Term) (model.ModerationEntry, error) {
	if userID <= 0 {
		return model.ModerationEntry{}, fmt.Errorf("%w: user id must be positive", errs.ErrValidation)
	}
	if !term.Permanent && term.Length <= 0 {
		return model.ModerationEntry{}, fmt.Errorf("%w: %s duration must be positive", errs.ErrValidation, kind)
	}

	entry := model.ModerationEntry{
		UserID:    userID,
		Kind:      kind,
		Permanent: term.Permanent,
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if !term.Permanent {
		entry.ExpiresAt = r.nowFn().UTC().Add(term.Length)
	}
	r.entries[kind][userID] = entry
	return entry, nil
}

func (r *Registry) remove(kind enums.ModerationKind, userID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries[kind], userID)
}

func (r *Registry) active(kind enums.ModerationKind, userID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[kind][userID]
	if !ok {
		return false
	}
	if entry.ExpiredAt(r.nowFn().UTC()) {
		delete(r.entries[kind], userID)
		return false
	}
	return true
}
