package moderation

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/flor-ldlse/feedback-bot/internal/domain/enums"
	"github.com/flor-ldlse/feedback-bot/internal/errs"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestRegistry() (*Registry, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)}
	return newRegistry(clock.Now), clock
}

func TestTimedBanExpiresAndIsEvicted(t *testing.T) {
	registry, clock := newTestRegistry()

	if _, err := registry.Ban(100, For(10*time.Minute)); err != nil {
		t.Fatalf("ban: %v", err)
	}
	if !registry.IsBanned(100) {
		t.Fatal("expected user banned before expiry")
	}

	clock.Advance(10 * time.Minute)
	if !registry.IsBanned(100) {
		t.Fatal("expected user still banned exactly at expiry")
	}
	if got := len(registry.Entries(enums.ModerationBan)); got != 1 {
		t.Fatalf("expected entry to stay before expiry, got %d entries", got)
	}

	clock.Advance(time.Second)
	if registry.IsBanned(100) {
		t.Fatal("expected ban to be over strictly after expiry")
	}
	if got := len(registry.Entries(enums.ModerationBan)); got != 0 {
		t.Fatalf("expected expired entry evicted, got %d entries", got)
	}
}

func TestExpiredEntryStaysUntilChecked(t *testing.T) {
	registry, clock := newTestRegistry()

	if _, err := registry.Mute(5, For(time.Minute)); err != nil {
		t.Fatalf("mute: %v", err)
	}
	clock.Advance(time.Hour)

	if got := len(registry.Entries(enums.ModerationMute)); got != 1 {
		t.Fatalf("expected no background eviction, got %d entries", got)
	}
	if registry.IsMuted(5) {
		t.Fatal("expected mute over")
	}
	if got := len(registry.Entries(enums.ModerationMute)); got != 0 {
		t.Fatalf("expected eviction after check, got %d entries", got)
	}
}

func TestPermanentEntriesNeverExpire(t *testing.T) {
	registry, clock := newTestRegistry()

	if _, err := registry.Ban(1, Permanent()); err != nil {
		t.Fatalf("ban: %v", err)
	}
	if _, err := registry.Mute(2, Permanent()); err != nil {
		t.Fatalf("mute: %v", err)
	}

	clock.Advance(100 * 365 * 24 * time.Hour)
	if !registry.IsBanned(1) || !registry.IsMuted(2) {
		t.Fatal("permanent entries must stay active")
	}
	if len(registry.Entries(enums.ModerationBan)) != 1 || len(registry.Entries(enums.ModerationMute)) != 1 {
		t.Fatal("permanent entries must not be evicted")
	}
}

func TestBanOverwritesPreviousEntry(t *testing.T) {
	registry, clock := newTestRegistry()

	if _, err := registry.Ban(9, Permanent()); err != nil {
		t.Fatalf("ban: %v", err)
	}
	entry, err := registry.Ban(9, For(time.Minute))
	if err != nil {
		t.Fatalf("re-ban: %v", err)
	}
	if entry.Permanent {
		t.Fatal("expected timed entry after overwrite")
	}

	clock.Advance(2 * time.Minute)
	if registry.IsBanned(9) {
		t.Fatal("expected overwritten timed ban to expire")
	}
}

func TestUnbanIsIdempotent(t *testing.T) {
	registry, _ := newTestRegistry()

	if _, err := registry.Ban(3, Permanent()); err != nil {
		t.Fatalf("ban: %v", err)
	}
	before := registry.Entries(enums.ModerationBan)

	registry.Unban(77)
	registry.Unmute(77)

	after := registry.Entries(enums.ModerationBan)
	if len(before) != len(after) || after[0] != before[0] {
		t.Fatalf("registry changed by unban of absent user: before=%v after=%v", before, after)
	}

	registry.Unban(3)
	registry.Unban(3)
	if registry.IsBanned(3) {
		t.Fatal("expected user unbanned")
	}
}

func TestRestrictedPrefersBan(t *testing.T) {
	registry, _ := newTestRegistry()

	if _, ok := registry.Restricted(11); ok {
		t.Fatal("did not expect restriction for clean user")
	}

	if _, err := registry.Mute(11, Permanent()); err != nil {
		t.Fatalf("mute: %v", err)
	}
	if kind, ok := registry.Restricted(11); !ok || kind != enums.ModerationMute {
		t.Fatalf("expected mute restriction, got %q %v", kind, ok)
	}

	if _, err := registry.Ban(11, Permanent()); err != nil {
		t.Fatalf("ban: %v", err)
	}
	if kind, ok := registry.Restricted(11); !ok || kind != enums.ModerationBan {
		t.Fatalf("expected ban restriction, got %q %v", kind, ok)
	}
}

func TestRejectsInvalidTerms(t *testing.T) {
	registry, _ := newTestRegistry()

	tests := []struct {
		name   string
		userID int64
		term   Term
	}{
		{name: "zero duration", userID: 1, term: For(0)},
		{name: "negative duration", userID: 1, term: For(-time.Minute)},
		{name: "zero user", userID: 0, term: Permanent()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := registry.Ban(tt.userID, tt.term)
			if !errors.Is(err, errs.ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
		})
	}
	if len(registry.Entries(enums.ModerationBan)) != 0 {
		t.Fatal("invalid terms must not create entries")
	}
}

func TestConcurrentAccess(t *testing.T) {
	registry, _ := newTestRegistry()

	var wg sync.WaitGroup
	for i := 1; i <= 50; i++ {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()
			_, _ = registry.Mute(userID, For(time.Hour))
			_ = registry.IsMuted(userID)
			_ = registry.IsBanned(userID)
			registry.Unban(userID)
		}(int64(i))
	}
	wg.Wait()

	if got := len(registry.Entries(enums.ModerationMute)); got != 50 {
		t.Fatalf("expected 50 mutes, got %d", got)
	}
}
