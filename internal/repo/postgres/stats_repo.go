package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flor-ldlse/feedback-bot/internal/errs"
)

type StatsRepo struct {
	pool *pgxpool.Pool
}

func NewStatsRepo(pool *pgxpool.Pool) *StatsRepo {
	return &StatsRepo{pool: pool}
}

func (r *StatsRepo) Increment(ctx context.Context, topic string) error {
	if r.pool == nil {
		return fmt.Errorf("%w: postgres pool is nil", errs.ErrPersistence)
	}
	if _, err := r.pool.Exec(ctx, `
INSERT INTO topic_stats (topic, count) VALUES ($1, 1)
ON CONFLICT (topic) DO UPDATE SET
	count = topic_stats.count + 1
`, topic); err != nil {
		return fmt.Errorf("%w: increment topic %q: %w", errs.ErrPersistence, topic, err)
	}
	return nil
}

func (r *StatsRepo) Snapshot(ctx context.Context) (map[string]int64, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("%w: postgres pool is nil", errs.ErrPersistence)
	}

	rows, err := r.pool.Query(ctx, `SELECT topic, count FROM topic_stats`)
	if err != nil {
		return nil, fmt.Errorf("%w: load stats: %w", errs.ErrPersistence, err)
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var (
			topic string
			count int64
		)
		if err := rows.Scan(&topic, &count); err != nil {
			return nil, fmt.Errorf("%w: scan stats: %w", errs.ErrPersistence, err)
		}
		out[topic] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate stats: %w", errs.ErrPersistence, err)
	}
	return out, nil
}
