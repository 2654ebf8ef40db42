package app

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/flor-ldlse/feedback-bot/internal/domain/enums"
	"github.com/flor-ldlse/feedback-bot/internal/domain/model"
	"github.com/flor-ldlse/feedback-bot/internal/infra/telegram"
	docrepo "github.com/flor-ldlse/feedback-bot/internal/repo/document"
	"github.com/flor-ldlse/feedback-bot/internal/services/conversation"
	"github.com/flor-ldlse/feedback-bot/internal/services/moderation"
	"github.com/flor-ldlse/feedback-bot/internal/services/notify"
	"github.com/flor-ldlse/feedback-bot/internal/services/stats"
	"github.com/flor-ldlse/feedback-bot/internal/services/tickets"
	"github.com/flor-ldlse/feedback-bot/internal/ui"
)

const adminID int64 = 1000

type sentMessage struct {
	chatID   int64
	text     string
	keyboard [][]telegram.InlineButton
	fileID   string
}

type recordingGateway struct {
	mu       sync.Mutex
	sent     []sentMessage
	edited   []sentMessage
	answered []string
}

func (g *recordingGateway) SendText(_ context.Context, chatID int64, text string, keyboard [][]telegram.InlineButton) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sent = append(g.sent, sentMessage{chatID: chatID, text: text, keyboard: keyboard})
	return nil
}

func (g *recordingGateway) SendDocument(_ context.Context, chatID int64, fileID, caption string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sent = append(g.sent, sentMessage{chatID: chatID, text: caption, fileID: fileID})
	return nil
}

func (g *recordingGateway) SendPhoto(ctx context.Context, chatID int64, fileID, caption string) error {
	return g.SendDocument(ctx, chatID, fileID, caption)
}

func (g *recordingGateway) EditText(_ context.Context, chatID int64, _ int, text string, keyboard [][]telegram.InlineButton) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.edited = append(g.edited, sentMessage{chatID: chatID, text: text, keyboard: keyboard})
	return nil
}

func (g *recordingGateway) AnswerCallback(_ context.Context, _ string, text string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.answered = append(g.answered, text)
	return nil
}

func (g *recordingGateway) lastTo(chatID int64) sentMessage {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i := len(g.sent) - 1; i >= 0; i-- {
		if g.sent[i].chatID == chatID {
			return g.sent[i]
		}
	}
	return sentMessage{}
}

func (g *recordingGateway) countTo(chatID int64) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, msg := range g.sent {
		if msg.chatID == chatID {
			n++
		}
	}
	return n
}

func (g *recordingGateway) lastAnswer() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.answered) == 0 {
		return ""
	}
	return g.answered[len(g.answered)-1]
}

type botFixture struct {
	bot      *Bot
	gateway  *recordingGateway
	registry *moderation.Registry
	tickets  *tickets.Service
	stats    *stats.Service
}

func newBotFixture(t *testing.T) botFixture {
	t.Helper()
	dir := t.TempDir()

	gateway := &recordingGateway{}
	registry := moderation.NewRegistry()
	dispatcher := notify.NewDispatcher(gateway, []int64{adminID}, nil)
	statsService := stats.NewService(docrepo.NewStatsRepo(filepath.Join(dir, "stats.json"), nil))
	ticketService := tickets.NewService(tickets.Dependencies{
		Repo:     docrepo.NewTicketRepo(filepath.Join(dir, "tickets.json"), nil),
		Stats:    statsService,
		Notifier: dispatcher,
	})
	machine := conversation.NewMachine(conversation.Dependencies{
		Guard:     registry,
		Moderator: registry,
		Submitter: ticketService,
		Tickets:   ticketService,
		Replier:   dispatcher,
	})

	return botFixture{
		bot:      NewBot(gateway, machine, ticketService, statsService, []int64{adminID}, nil),
		gateway:  gateway,
		registry: registry,
		tickets:  ticketService,
		stats:    statsService,
	}
}

func (f botFixture) press(t *testing.T, user model.User, data string) {
	t.Helper()
	if err := f.bot.HandleCallback(context.Background(), telegram.CallbackUpdate{
		CallbackID: "cb",
		ChatID:     user.ID,
		MessageID:  7,
		User:       user,
		Data:       data,
	}); err != nil {
		t.Fatalf("callback %s: %v", data, err)
	}
}

func (f botFixture) say(t *testing.T, user model.User, text string) {
	t.Helper()
	if err := f.bot.HandleMessage(context.Background(), telegram.MessageUpdate{
		ChatID: user.ID,
		User:   user,
		Text:   text,
	}); err != nil {
		t.Fatalf("message %q: %v", text, err)
	}
}

var customer = model.User{ID: 42, FirstName: "Ann", LastName: "Lee"}

func TestStartShowsPanelByRole(t *testing.T) {
	f := newBotFixture(t)
	ctx := context.Background()

	_ = f.bot.HandleCommand(ctx, telegram.CommandUpdate{ChatID: customer.ID, User: customer, Command: "start"})
	if got := f.gateway.lastTo(customer.ID); got.text != ui.UserGreeting {
		t.Fatalf("unexpected user greeting: %q", got.text)
	}

	admin := model.User{ID: adminID}
	_ = f.bot.HandleCommand(ctx, telegram.CommandUpdate{ChatID: adminID, User: admin, Command: "start"})
	got := f.gateway.lastTo(adminID)
	if got.text != ui.AdminGreeting || len(got.keyboard) != 5 {
		t.Fatalf("unexpected admin panel: %+v", got)
	}
}

func TestSubmissionFlowNotifiesAdmin(t *testing.T) {
	f := newBotFixture(t)

	f.press(t, customer, ui.CallbackSubmitTicket)
	if got := f.gateway.lastTo(customer.ID).text; got != ui.AskTopic {
		t.Fatalf("expected topic prompt, got %q", got)
	}

	f.say(t, customer, "ab")
	if got := f.gateway.lastTo(customer.ID).text; got != ui.TopicTooShort {
		t.Fatalf("expected short topic reply, got %q", got)
	}

	f.say(t, customer, "Billing issue")
	f.press(t, customer, ui.CallbackPriorityLow)
	f.press(t, customer, ui.CallbackFileNo)
	f.press(t, customer, ui.CallbackMessageNo)

	if got := f.gateway.lastTo(customer.ID).text; !strings.HasPrefix(got, "Thank you! Your ticket #1") {
		t.Fatalf("expected acceptance, got %q", got)
	}

	controls := f.gateway.lastTo(adminID)
	if controls.text != ui.TicketControls || len(controls.keyboard) != 3 {
		t.Fatalf("expected ticket controls for admin, got %+v", controls)
	}
	if f.gateway.countTo(adminID) != 2 {
		t.Fatalf("expected summary and controls, got %d messages", f.gateway.countTo(adminID))
	}

	ranked, _ := f.stats.Ranked(context.Background())
	if len(ranked) != 1 || ranked[0].Topic != "Billing issue" || ranked[0].Count != 1 {
		t.Fatalf("unexpected stats: %+v", ranked)
	}

	f.press(t, customer, ui.CallbackMessageNo)
	if got := f.gateway.lastAnswer(); got != ui.NoActiveFlow {
		t.Fatalf("expected stale press notice, got %q", got)
	}
}

func TestAttachmentFlow(t *testing.T) {
	f := newBotFixture(t)

	f.press(t, customer, ui.CallbackSubmitTicket)
	f.say(t, customer, "Crash")
	f.press(t, customer, ui.CallbackPriorityHigh)
	f.press(t, customer, ui.CallbackFileYes)

	f.say(t, customer, "no file here")
	if got := f.gateway.lastTo(customer.ID).text; got != ui.FileRequired {
		t.Fatalf("expected file required, got %q", got)
	}

	if err := f.bot.HandleMessage(context.Background(), telegram.MessageUpdate{
		ChatID:         customer.ID,
		User:           customer,
		DocumentFileID: "doc-9",
	}); err != nil {
		t.Fatalf("document: %v", err)
	}
	f.press(t, customer, ui.CallbackMessageYes)
	f.say(t, customer, "Stack trace attached")

	all, _ := f.tickets.List(context.Background())
	if len(all) != 1 {
		t.Fatalf("expected one ticket, got %d", len(all))
	}
	attachment, ok := all[0].Attachment()
	if !ok || attachment.FileID != "doc-9" || all[0].Message != "Stack trace attached" {
		t.Fatalf("unexpected ticket: %+v", all[0])
	}

	f.gateway.mu.Lock()
	var summary sentMessage
	for _, msg := range f.gateway.sent {
		if msg.chatID == adminID && msg.fileID != "" {
			summary = msg
		}
	}
	f.gateway.mu.Unlock()
	if summary.fileID != "doc-9" || !strings.Contains(summary.text, "New ticket #1") {
		t.Fatalf("expected document summary for admin, got %+v", summary)
	}
}

func TestBannedUserIsTold(t *testing.T) {
	f := newBotFixture(t)
	_, _ = f.registry.Ban(customer.ID, moderation.Permanent())

	f.press(t, customer, ui.CallbackSubmitTicket)
	if got := f.gateway.lastTo(customer.ID).text; got != ui.BannedNotice {
		t.Fatalf("expected banned notice, got %q", got)
	}
	all, _ := f.tickets.List(context.Background())
	if len(all) != 0 {
		t.Fatal("no ticket may be created")
	}
}

func TestAdminCallbacksRequireAdmin(t *testing.T) {
	f := newBotFixture(t)

	f.press(t, customer, ui.CallbackAdminBan)
	if got := f.gateway.lastAnswer(); got != ui.AdminsOnly {
		t.Fatalf("expected admins only notice, got %q", got)
	}
	f.press(t, customer, ui.StatusCallback(1, enums.TicketStatusClosed))
	if got := f.gateway.lastAnswer(); got != ui.AdminsOnly {
		t.Fatalf("expected admins only notice, got %q", got)
	}
}

func TestAdminBanFlow(t *testing.T) {
	f := newBotFixture(t)
	admin := model.User{ID: adminID}

	f.press(t, admin, ui.CallbackAdminBan)
	f.say(t, admin, "42 forever")
	if got := f.gateway.lastTo(adminID).text; got != ui.InvalidData {
		t.Fatalf("expected invalid data, got %q", got)
	}
	f.say(t, admin, "42 perm")
	if got := f.gateway.lastTo(adminID).text; got != "User 42 is banned permanently." {
		t.Fatalf("unexpected confirmation: %q", got)
	}
	if !f.registry.IsBanned(42) {
		t.Fatal("expected user banned")
	}

	f.press(t, admin, ui.CallbackAdminUnban)
	f.say(t, admin, "42")
	if f.registry.IsBanned(42) {
		t.Fatal("expected ban lifted")
	}
}

func TestStatusChangeNotifiesOwnerAndEditsControls(t *testing.T) {
	f := newBotFixture(t)
	admin := model.User{ID: adminID}

	f.press(t, customer, ui.CallbackSubmitTicket)
	f.say(t, customer, "Login")
	f.press(t, customer, ui.CallbackPriorityHigh)
	f.press(t, customer, ui.CallbackFileNo)
	f.press(t, customer, ui.CallbackMessageNo)
	before := f.gateway.countTo(customer.ID)

	f.press(t, admin, ui.StatusCallback(1, enums.TicketStatusInProgress))

	if f.gateway.countTo(customer.ID) != before+1 {
		t.Fatal("owner must get exactly one notification")
	}
	notice := f.gateway.lastTo(customer.ID).text
	matched := false
	for _, indicator := range ui.ProcessingIndicators {
		if notice == "Your ticket #1 is being processed "+indicator {
			matched = true
		}
	}
	if !matched {
		t.Fatalf("unexpected owner notice: %q", notice)
	}

	f.gateway.mu.Lock()
	edited := f.gateway.edited
	f.gateway.mu.Unlock()
	if len(edited) != 1 || edited[0].text != "Ticket #1 status changed to: In progress" {
		t.Fatalf("unexpected edit: %+v", edited)
	}

	f.press(t, admin, ui.StatusCallback(99, enums.TicketStatusClosed))
	if got := f.gateway.lastAnswer(); got != ui.TicketNotFound {
		t.Fatalf("expected not found notice, got %q", got)
	}
}

func TestAdminAnswerFlow(t *testing.T) {
	f := newBotFixture(t)
	admin := model.User{ID: adminID}

	f.press(t, customer, ui.CallbackSubmitTicket)
	f.say(t, customer, "Refund")
	f.press(t, customer, ui.CallbackPriorityLow)
	f.press(t, customer, ui.CallbackFileNo)
	f.press(t, customer, ui.CallbackMessageYes)
	f.say(t, customer, "Please refund my order")

	f.press(t, admin, ui.CallbackAdminTickets)
	list := f.gateway.lastTo(adminID)
	if list.text != ui.ChooseTicket || len(list.keyboard) != 2 {
		t.Fatalf("unexpected ticket list: %+v", list)
	}

	f.press(t, admin, list.keyboard[0][0].Data)
	if got := f.gateway.lastTo(adminID).text; !strings.Contains(got, "Please refund my order") {
		t.Fatalf("expected answer prompt with preview, got %q", got)
	}

	f.say(t, admin, "Refund issued")
	if got := f.gateway.lastTo(customer.ID).text; got != "Answer to your ticket #1:\nRefund issued" {
		t.Fatalf("unexpected answer: %q", got)
	}
	if got := f.gateway.lastTo(adminID).text; got != ui.AnswerDelivered {
		t.Fatalf("expected delivery confirmation, got %q", got)
	}
}

func TestCancelCommand(t *testing.T) {
	f := newBotFixture(t)
	f.press(t, customer, ui.CallbackSubmitTicket)

	_ = f.bot.HandleCommand(context.Background(), telegram.CommandUpdate{ChatID: customer.ID, User: customer, Command: "cancel"})
	if got := f.gateway.lastTo(customer.ID).text; got != ui.ActionCancelled {
		t.Fatalf("expected cancellation, got %q", got)
	}

	f.say(t, customer, "Billing")
	if got := f.gateway.lastTo(customer.ID).text; got != ui.UnknownCommand {
		t.Fatalf("expected idle reply, got %q", got)
	}
}

func TestAdminStats(t *testing.T) {
	f := newBotFixture(t)
	admin := model.User{ID: adminID}

	f.press(t, admin, ui.CallbackAdminStats)
	if got := f.gateway.lastTo(adminID).text; got != ui.NoStats {
		t.Fatalf("expected empty stats, got %q", got)
	}
}
