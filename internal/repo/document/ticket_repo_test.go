package document

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/flor-ldlse/feedback-bot/internal/domain/enums"
	"github.com/flor-ldlse/feedback-bot/internal/domain/model"
	"github.com/flor-ldlse/feedback-bot/internal/errs"
)

func testDraft(topic string) model.TicketDraft {
	return model.TicketDraft{
		User:     model.User{ID: 42, FirstName: "Ann"},
		Topic:    topic,
		Priority: enums.PriorityLow,
	}
}

func TestCreateWritesIndentedDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tickets.json")
	repo := NewTicketRepo(path, nil)

	created, err := repo.Create(context.Background(), model.TicketDraft{
		User:       model.User{ID: 42, FirstName: "Ann"},
		Topic:      "Billing issue",
		Priority:   enums.PriorityHigh,
		Attachment: &model.Attachment{FileID: "doc-1", Kind: enums.AttachmentDocument},
	}, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID != 1 {
		t.Fatalf("expected first id to be 1, got %d", created.ID)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	if !strings.Contains(string(raw), "\n        \"topic\": \"Billing issue\"") {
		t.Fatalf("expected 4-space indented document, got:\n%s", raw)
	}

	var stored []map[string]any
	if err := json.Unmarshal(raw, &stored); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(stored) != 1 || stored[0]["file_type"] != "document" || stored[0]["status"] != "received" {
		t.Fatalf("unexpected document: %v", stored)
	}
}

func TestIDsSurviveReloadAndGaps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tickets.json")
	seed := `[
    {"id": 7, "user_id": 1, "user_name": "A", "message": "", "file_id": null, "file_type": null, "priority": "low", "topic": "Old", "status": "closed", "created_at": "2024-01-01T00:00:00Z"},
    {"id": 3, "user_id": 1, "user_name": "A", "message": "", "file_id": null, "file_type": null, "priority": "low", "topic": "Older", "status": "received", "created_at": "2023-01-01T00:00:00Z"}
]`
	if err := os.WriteFile(path, []byte(seed), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}

	repo := NewTicketRepo(path, nil)
	created, err := repo.Create(context.Background(), testDraft("New"), time.Now())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID != 8 {
		t.Fatalf("expected id after the maximum, got %d", created.ID)
	}

	reopened := NewTicketRepo(path, nil)
	next, err := reopened.Create(context.Background(), testDraft("Next"), time.Now())
	if err != nil {
		t.Fatalf("create after reload: %v", err)
	}
	if next.ID != 9 {
		t.Fatalf("expected id 9 after reload, got %d", next.ID)
	}

	all, _ := reopened.ListAll(context.Background())
	ids := make([]int64, 0, len(all))
	for _, ticket := range all {
		ids = append(ids, ticket.ID)
	}
	if !sort.SliceIsSorted(ids, func(i, j int) bool { return ids[i] < ids[j] }) || len(ids) != 4 {
		t.Fatalf("expected ordered ids, got %v", ids)
	}
}

func TestMalformedFileReadsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tickets.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}

	repo := NewTicketRepo(path, nil)
	all, err := repo.ListAll(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 0 {
		t.Fatalf("expected empty collection, got %d", len(all))
	}

	created, err := repo.Create(context.Background(), testDraft("Recovered"), time.Now())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID != 1 {
		t.Fatalf("expected id 1, got %d", created.ID)
	}
}

func TestConcurrentCreatesGetUniqueIncreasingIDs(t *testing.T) {
	repo := NewTicketRepo(filepath.Join(t.TempDir(), "tickets.json"), nil)

	const total = 40
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		ids []int64
	)
	for i := 0; i < total; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ticket, err := repo.Create(context.Background(), testDraft("Concurrent"), time.Now())
			if err != nil {
				t.Errorf("create: %v", err)
				return
			}
			mu.Lock()
			ids = append(ids, ticket.ID)
			mu.Unlock()
		}()
	}
	wg.Wait()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for i, id := range ids {
		if id != int64(i+1) {
			t.Fatalf("expected ids 1..%d, got %v", total, ids)
		}
	}
}

func TestSetStatusPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tickets.json")
	repo := NewTicketRepo(path, nil)
	ctx := context.Background()

	created, _ := repo.Create(ctx, testDraft("Login"), time.Now())
	if _, err := repo.SetStatus(ctx, created.ID, enums.TicketStatusInProgress); err != nil {
		t.Fatalf("set status: %v", err)
	}

	reopened := NewTicketRepo(path, nil)
	found, err := reopened.FindByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if found.Status != enums.TicketStatusInProgress {
		t.Fatalf("expected in_progress, got %q", found.Status)
	}

	if _, err := reopened.SetStatus(ctx, 404, enums.TicketStatusClosed); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFailedWriteRollsBack(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}
	repo := NewTicketRepo(filepath.Join(blocker, "tickets.json"), nil)

	_, err := repo.Create(context.Background(), testDraft("Lost"), time.Now())
	if !errors.Is(err, errs.ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
	all, _ := repo.ListAll(context.Background())
	if len(all) != 0 {
		t.Fatalf("failed create must not stay in memory, got %d", len(all))
	}
}
