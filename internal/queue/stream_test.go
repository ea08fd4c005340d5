package queue

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"quint/internal/interview"
)

func newTestQueue(t *testing.T) *StreamQueue {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	q := NewStreamQueue(rdb, "quint:synthesis", "synthesis-workers", "worker-test", 50*time.Millisecond)
	if err := q.EnsureGroup(context.Background()); err != nil {
		t.Fatalf("ensure group: %v", err)
	}
	return q
}

func TestStreamQueueRoundTrip(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	job := SynthesisJob{
		InterviewID: "iv-42",
		Objective:   "coffee habits",
		Transcript: []interview.Exchange{
			{Question: "How do you brew?", Answer: "French press."},
		},
	}
	if _, err := q.Enqueue(ctx, job); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	msgs, err := q.Read(ctx, 10)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1", len(msgs))
	}
	got := msgs[0].Job
	if got.InterviewID != "iv-42" || got.Objective != "coffee habits" {
		t.Fatalf("job round-trip mismatch: %+v", got)
	}
	if got.JobID == "" {
		t.Fatal("job id was not assigned on enqueue")
	}
	if got.EnqueuedAt.IsZero() {
		t.Fatal("enqueue timestamp was not assigned")
	}
	if len(got.Transcript) != 1 || got.Transcript[0].Answer != "French press." {
		t.Fatalf("transcript mismatch: %+v", got.Transcript)
	}

	if err := q.Ack(ctx, msgs[0].ID); err != nil {
		t.Fatalf("ack: %v", err)
	}
}

func TestStreamQueueRejectsEmptyInterviewID(t *testing.T) {
	q := newTestQueue(t)

	if _, err := q.Enqueue(context.Background(), SynthesisJob{Objective: "x"}); err == nil {
		t.Fatal("expected error for empty interview id")
	}
}
