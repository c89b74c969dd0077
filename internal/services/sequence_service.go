package services

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/go-redis/redis/v8"
)

const (
	sequenceKeyPrefix = "camt053:seq:"
	maxSequence       = 999

	// DefaultSequenceTTL keeps counters long enough to cover late corrections
	DefaultSequenceTTL = 400 * 24 * time.Hour
)

// RedisSequence numbers repeated generations of the same account and period
// so that each regenerated statement carries a distinct message id.
type RedisSequence struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewRedisSequence(client *redis.Client, ttl time.Duration) *RedisSequence {
	if ttl <= 0 {
		ttl = DefaultSequenceTTL
	}
	return &RedisSequence{redis: client, ttl: ttl}
}

// Next increments and returns the sequence of iban for the period, starting at 1
func (s *RedisSequence) Next(ctx context.Context, iban string, from, to civil.Date) (int, error) {
	key := sequenceKey(iban, from, to)

	pipe := s.redis.Pipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to increment sequence %s: %w", key, err)
	}

	seq := incr.Val()
	if seq > maxSequence {
		return 0, fmt.Errorf("sequence %s exhausted at %d", key, seq)
	}
	return int(seq), nil
}

func sequenceKey(iban string, from, to civil.Date) string {
	return sequenceKeyPrefix + NormalizeIBAN(iban) + ":" + periodKey(from, to)
}
