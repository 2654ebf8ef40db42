package document

import (
	"context"
	"maps"
	"sync"

	"go.uber.org/zap"
)

// StatsRepo keeps stats.json as a topic to count object.
type StatsRepo struct {
	path   string
	logger *zap.Logger

	mu     sync.Mutex
	loaded bool
	counts map[string]int64
}

func NewStatsRepo(path string, logger *zap.Logger) *StatsRepo {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatsRepo{path: path, logger: logger}
}

func (r *StatsRepo) Increment(_ context.Context, topic string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ensureLoaded()

	r.counts[topic]++
	if err := writeDocument(r.path, r.counts); err != nil {
		r.counts[topic]--
		if r.counts[topic] == 0 {
			delete(r.counts, topic)
		}
		return err
	}
	return nil
}

func (r *StatsRepo) Snapshot(_ context.Context) (map[string]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ensureLoaded()
	return maps.Clone(r.counts), nil
}

func (r *StatsRepo) ensureLoaded() {
	if r.loaded {
		return
	}
	r.loaded = true

	stored := make(map[string]int64)
	if _, err := readDocument(r.path, &stored); err != nil {
		r.logger.Error("load stats, starting from empty counters", zap.Error(err), zap.String("path", r.path))
		stored = make(map[string]int64)
	}
	if stored == nil {
		stored = make(map[string]int64)
	}
	r.counts = stored
}
