package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mmynk/budgetwise/internal/metrics"
	"github.com/mmynk/budgetwise/internal/models"
)

const keyPrefix = "budgetwise:"

// Redis is a SummaryCache backed by a Redis server.
type Redis struct {
	client redis.Cmdable
	ttl    time.Duration
}

var _ SummaryCache = (*Redis)(nil)

// NewRedis wraps client. Entries expire after ttl; 0 disables expiry.
func NewRedis(client redis.Cmdable, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

// Dial connects to addr and verifies the connection with PING.
func Dial(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return client, nil
}

func genKey(scope string) string {
	return keyPrefix + "gen:" + scope
}

func entryKey(key Key, gen int64) string {
	return fmt.Sprintf("%ssummary:%s:%d:%d:%d", keyPrefix, key.Scope, gen, key.Year, key.Month)
}

func (r *Redis) generation(ctx context.Context, scope string) (int64, error) {
	gen, err := r.client.Get(ctx, genKey(scope)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get generation: %w", err)
	}
	return gen, nil
}

func (r *Redis) Get(ctx context.Context, key Key) (*models.Summary, int64, error) {
	gen, err := r.generation(ctx, key.Scope)
	if err != nil {
		metrics.SummaryCacheLookups.WithLabelValues("error").Inc()
		return nil, 0, err
	}

	data, err := r.client.Get(ctx, entryKey(key, gen)).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.SummaryCacheLookups.WithLabelValues("miss").Inc()
		return nil, gen, nil
	}
	if err != nil {
		metrics.SummaryCacheLookups.WithLabelValues("error").Inc()
		return nil, gen, fmt.Errorf("redis get: %w", err)
	}

	var summary models.Summary
	if err := json.Unmarshal(data, &summary); err != nil {
		metrics.SummaryCacheLookups.WithLabelValues("error").Inc()
		return nil, gen, fmt.Errorf("decoding cached summary: %w", err)
	}
	metrics.SummaryCacheLookups.WithLabelValues("hit").Inc()
	return &summary, gen, nil
}

func (r *Redis) Set(ctx context.Context, key Key, gen int64, summary *models.Summary) error {
	if summary == nil {
		return nil
	}
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("encoding summary: %w", err)
	}
	if err := r.client.Set(ctx, entryKey(key, gen), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (r *Redis) Invalidate(ctx context.Context, scopes ...string) error {
	if len(scopes) == 0 {
		return nil
	}
	pipe := r.client.TxPipeline()
	for _, scope := range scopes {
		pipe.Incr(ctx, genKey(scope))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis invalidate: %w", err)
	}
	return nil
}
