package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/flor-ldlse/feedback-bot/internal/config"
	docrepo "github.com/flor-ldlse/feedback-bot/internal/repo/document"
	pgrepo "github.com/flor-ldlse/feedback-bot/internal/repo/postgres"
	redrepo "github.com/flor-ldlse/feedback-bot/internal/repo/redis"
	"github.com/flor-ldlse/feedback-bot/internal/services/stats"
	"github.com/flor-ldlse/feedback-bot/internal/services/tickets"
)

// Storage is the ticket and stats persistence selected by storage.driver.
type Storage struct {
	Tickets tickets.Repo
	Stats   stats.Repo
	close   func()
}

func (s *Storage) Close() {
	if s != nil && s.close != nil {
		s.close()
	}
}

func OpenStorage(ctx context.Context, cfg config.Config, log *zap.Logger) (*Storage, error) {
	if log == nil {
		log = zap.NewNop()
	}

	switch cfg.Storage.Driver {
	case config.DriverFile:
		log.Info("using file storage",
			zap.String("tickets", cfg.Storage.TicketsFile()),
			zap.String("stats", cfg.Storage.StatsFile()),
		)
		return &Storage{
			Tickets: docrepo.NewTicketRepo(cfg.Storage.TicketsFile(), log),
			Stats:   docrepo.NewStatsRepo(cfg.Storage.StatsFile(), log),
		}, nil

	case config.DriverRedis:
		client, err := redrepo.NewClient(ctx, redrepo.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, err
		}
		log.Info("using redis storage", zap.String("addr", cfg.Redis.Addr), zap.String("prefix", cfg.Redis.Prefix))
		return &Storage{
			Tickets: redrepo.NewTicketRepo(client, cfg.Redis.Prefix),
			Stats:   redrepo.NewStatsRepo(client, cfg.Redis.Prefix),
			close:   func() { _ = client.Close() },
		}, nil

	case config.DriverPostgres:
		pool, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN)
		if err != nil {
			return nil, err
		}
		if err := pgrepo.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		log.Info("using postgres storage")
		return &Storage{
			Tickets: pgrepo.NewTicketRepo(pool),
			Stats:   pgrepo.NewStatsRepo(pool),
			close:   pool.Close,
		}, nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}
