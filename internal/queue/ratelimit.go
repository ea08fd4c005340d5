package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var incrWithTTLScript = redis.NewScript(`
local c = redis.call("INCR", KEYS[1])
if c == 1 then
  redis.call("EXPIRE", KEYS[1], ARGV[1])
end
return c
`)

// RateLimiter caps model calls per interview per hourly window.
type RateLimiter struct {
	redis *redis.Client
	limit int64
}

func NewRateLimiter(rdb *redis.Client, limit int64) *RateLimiter {
	return &RateLimiter{redis: rdb, limit: limit}
}

func (r *RateLimiter) Allow(ctx context.Context, interviewID string, now time.Time) (allowed bool, used int64, resetAt time.Time, err error) {
	windowStart := now.UTC().Truncate(time.Hour)
	windowEnd := windowStart.Add(time.Hour)
	ttl := int64(windowEnd.Sub(now.UTC()).Seconds())
	if ttl < 1 {
		ttl = 1
	}

	key := fmt.Sprintf("quint:ratelimit:%s:%s", interviewID, windowStart.Format("2006010215"))
	res, err := incrWithTTLScript.Run(ctx, r.redis, []string{key}, ttl).Int64()
	if err != nil {
		return false, 0, time.Time{}, fmt.Errorf("rate limit script: %w", err)
	}
	return res <= r.limit, res, windowEnd, nil
}

// SynthesisDeduplicator prevents double-enqueue of the same interview while
// a synthesis attempt is in flight.
type SynthesisDeduplicator struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewSynthesisDeduplicator(rdb *redis.Client, ttl time.Duration) *SynthesisDeduplicator {
	return &SynthesisDeduplicator{redis: rdb, ttl: ttl}
}

func (d *SynthesisDeduplicator) MarkFirst(ctx context.Context, interviewID string) (bool, error) {
	key := fmt.Sprintf("quint:synthesis:%s", interviewID)
	ok, err := d.redis.SetNX(ctx, key, "1", d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("dedupe setnx: %w", err)
	}
	return ok, nil
}

// Clear releases the dedupe mark so a failed interview can be re-enqueued.
func (d *SynthesisDeduplicator) Clear(ctx context.Context, interviewID string) error {
	key := fmt.Sprintf("quint:synthesis:%s", interviewID)
	if err := d.redis.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("dedupe clear: %w", err)
	}
	return nil
}
