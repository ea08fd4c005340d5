package queue

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestRateLimiterAllow(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	rl := NewRateLimiter(rdb, 2)
	now := time.Date(2026, 2, 13, 10, 0, 0, 0, time.UTC)

	allowed, used, _, err := rl.Allow(context.Background(), "iv-1", now)
	if err != nil {
		t.Fatalf("allow#1: %v", err)
	}
	if !allowed || used != 1 {
		t.Fatalf("expected first call allowed with used=1, got allowed=%v used=%d", allowed, used)
	}

	allowed, used, _, err = rl.Allow(context.Background(), "iv-1", now)
	if err != nil {
		t.Fatalf("allow#2: %v", err)
	}
	if !allowed || used != 2 {
		t.Fatalf("expected second call allowed with used=2, got allowed=%v used=%d", allowed, used)
	}

	allowed, used, _, err = rl.Allow(context.Background(), "iv-1", now)
	if err != nil {
		t.Fatalf("allow#3: %v", err)
	}
	if allowed || used != 3 {
		t.Fatalf("expected third call denied with used=3, got allowed=%v used=%d", allowed, used)
	}
}

func TestRateLimiterIsolatesInterviews(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	rl := NewRateLimiter(rdb, 1)
	now := time.Date(2026, 2, 13, 10, 0, 0, 0, time.UTC)

	if allowed, _, _, err := rl.Allow(context.Background(), "iv-1", now); err != nil || !allowed {
		t.Fatalf("iv-1 first call: allowed=%v err=%v", allowed, err)
	}
	if allowed, _, _, err := rl.Allow(context.Background(), "iv-1", now); err != nil || allowed {
		t.Fatalf("iv-1 second call should be denied: allowed=%v err=%v", allowed, err)
	}
	if allowed, _, _, err := rl.Allow(context.Background(), "iv-2", now); err != nil || !allowed {
		t.Fatalf("iv-2 must have its own window: allowed=%v err=%v", allowed, err)
	}
}

func TestSynthesisDeduplicator(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	d := NewSynthesisDeduplicator(rdb, time.Minute)

	first, err := d.MarkFirst(context.Background(), "iv-1")
	if err != nil {
		t.Fatalf("mark#1: %v", err)
	}
	if !first {
		t.Fatal("first mark should win")
	}

	second, err := d.MarkFirst(context.Background(), "iv-1")
	if err != nil {
		t.Fatalf("mark#2: %v", err)
	}
	if second {
		t.Fatal("second mark should be rejected")
	}

	if err := d.Clear(context.Background(), "iv-1"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	again, err := d.MarkFirst(context.Background(), "iv-1")
	if err != nil {
		t.Fatalf("mark#3: %v", err)
	}
	if !again {
		t.Fatal("mark after clear should win")
	}
}
