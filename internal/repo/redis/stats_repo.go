package redis

import (
	"context"
	"fmt"
	"strconv"

	goredis "github.com/redis/go-redis/v9"

	"github.com/flor-ldlse/feedback-bot/internal/errs"
)

type StatsRepo struct {
	client *goredis.Client
	keys   keys
}

func NewStatsRepo(client *goredis.Client, prefix string) *StatsRepo {
	return &StatsRepo{client: client, keys: newKeys(prefix)}
}

func (r *StatsRepo) Increment(ctx context.Context, topic string) error {
	if r.client == nil {
		return fmt.Errorf("%w: redis client is nil", errs.ErrPersistence)
	}
	if err := r.client.HIncrBy(ctx, r.keys.stats(), topic, 1).Err(); err != nil {
		return fmt.Errorf("%w: increment topic %q: %w", errs.ErrPersistence, topic, err)
	}
	return nil
}

func (r *StatsRepo) Snapshot(ctx context.Context) (map[string]int64, error) {
	if r.client == nil {
		return nil, fmt.Errorf("%w: redis client is nil", errs.ErrPersistence)
	}
	values, err := r.client.HGetAll(ctx, r.keys.stats()).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: load stats: %w", errs.ErrPersistence, err)
	}
	out := make(map[string]int64, len(values))
	for topic, raw := range values {
		count, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}
		out[topic] = count
	}
	return out, nil
}
