package stats

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/flor-ldlse/feedback-bot/internal/errs"
)

type Repo interface {
	Increment(ctx context.Context, topic string) error
	Snapshot(ctx context.Context) (map[string]int64, error)
}

type TopicCount struct {
	Topic string `json:"topic"`
	Count int64  `json:"count"`
}

type Service struct {
	repo Repo
}

func NewService(repo Repo) *Service {
	return &Service{repo: repo}
}

func (s *Service) Increment(ctx context.Context, topic string) error {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return fmt.Errorf("%w: topic is empty", errs.ErrValidation)
	}
	if s.repo == nil {
		return nil
	}
	return s.repo.Increment(ctx, topic)
}

func (s *Service) Snapshot(ctx context.Context) (map[string]int64, error) {
	if s.repo == nil {
		return map[string]int64{}, nil
	}
	return s.repo.Snapshot(ctx)
}

// Ranked orders topics by count, then by name.
func (s *Service) Ranked(ctx context.Context) ([]TopicCount, error) {
	counters, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]TopicCount, 0, len(counters))
	for topic, count := range counters {
		out = append(out, TopicCount{Topic: topic, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Topic < out[j].Topic
	})
	return out, nil
}
