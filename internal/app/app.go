package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/flor-ldlse/feedback-bot/internal/config"
	"github.com/flor-ldlse/feedback-bot/internal/infra/events"
	"github.com/flor-ldlse/feedback-bot/internal/infra/telegram"
	"github.com/flor-ldlse/feedback-bot/internal/services/conversation"
	"github.com/flor-ldlse/feedback-bot/internal/services/moderation"
	"github.com/flor-ldlse/feedback-bot/internal/services/notify"
	"github.com/flor-ldlse/feedback-bot/internal/services/stats"
	"github.com/flor-ldlse/feedback-bot/internal/services/tickets"
	"github.com/flor-ldlse/feedback-bot/internal/transport/http/handlers"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	cfg     config.Config
	logger  *zap.Logger
	tg      *telegram.Client
	storage *Storage
	events  *events.Producer
	bot     *Bot
	server  *http.Server
}

func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	storage, err := OpenStorage(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	tg, err := telegram.NewClient(cfg.Bot.Token, cfg.Bot.PollTimeout, cfg.Bot.MaxInFlight, log.Named("telegram"))
	if err != nil {
		storage.Close()
		return nil, err
	}

	producer := events.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, log.Named("events"))
	if producer.Enabled() {
		log.Info("ticket events enabled", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	}

	registry := moderation.NewRegistry()
	dispatcher := notify.NewDispatcher(tg, cfg.Admins, log.Named("notify"))
	statsService := stats.NewService(storage.Stats)
	ticketService := tickets.NewService(tickets.Dependencies{
		Repo:     storage.Tickets,
		Stats:    statsService,
		Notifier: dispatcher,
		Events:   producer,
		Logger:   log.Named("tickets"),
	})
	machine := conversation.NewMachine(conversation.Dependencies{
		Guard:     registry,
		Moderator: registry,
		Submitter: ticketService,
		Tickets:   ticketService,
		Replier:   dispatcher,
		Logger:    log.Named("conversation"),
	})

	a := &App{
		cfg:     cfg,
		logger:  log,
		tg:      tg,
		storage: storage,
		events:  producer,
		bot:     NewBot(tg, machine, ticketService, statsService, cfg.Admins, log.Named("bot")),
	}

	if cfg.HTTP.Addr != "" {
		status := handlers.NewStatusHandler(ticketService, statsService, registry, log.Named("http"))
		a.server = newHTTPServer(cfg.HTTP, NewHTTPRouter(status, log))
	}

	return a, nil
}

// Run serves updates and the optional status API until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		a.logger.Info("bot started", zap.Int("admins", len(a.cfg.Admins)))
		return a.tg.Listen(groupCtx, a.bot.Handlers())
	})

	if a.server != nil {
		group.Go(func() error {
			a.logger.Info("status api started", zap.String("addr", a.server.Addr))
			if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("status api: %w", err)
			}
			return nil
		})
		group.Go(func() error {
			<-groupCtx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return a.server.Shutdown(shutdownCtx)
		})
	}

	err := group.Wait()
	a.logger.Info("bot stopped")
	return err
}

func (a *App) Close() {
	if err := a.events.Close(); err != nil {
		a.logger.Warn("close ticket events", zap.Error(err))
	}
	a.storage.Close()
}
