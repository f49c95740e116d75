package queue

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestStreamQueueRoundTrip(t *testing.T) {
	_, rdb := newTestRedis(t)
	ctx := context.Background()

	q := NewStreamQueue(rdb, "feestplanner:turns", "workers", "w1", 10*time.Millisecond)
	if err := q.EnsureGroup(ctx); err != nil {
		t.Fatalf("ensure group: %v", err)
	}
	if err := q.EnsureGroup(ctx); err != nil {
		t.Fatalf("ensure group must be idempotent: %v", err)
	}

	job, err := q.Enqueue(ctx, TurnJob{ClientID: "tg:9", ChatID: 9, UserID: 9, Text: "Welke zaal past bij 200 gasten?"})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if job.JobID == "" || job.EnqueuedAt.IsZero() {
		t.Fatalf("expected job id and timestamp, got %+v", job)
	}

	msgs, err := q.Read(ctx, 10)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("expected one message, got %d", len(msgs))
	}
	got := msgs[0].Job
	if got.JobID != job.JobID || got.ClientID != "tg:9" || got.Text != job.Text {
		t.Fatalf("unexpected job %+v", got)
	}

	if err := q.Ack(ctx, msgs[0].ID); err != nil {
		t.Fatalf("ack: %v", err)
	}
	n, err := q.Len(ctx)
	if err != nil {
		t.Fatalf("len: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected empty stream after ack, got %d", n)
	}
}

func TestStreamQueueDropsUnreadableEntries(t *testing.T) {
	_, rdb := newTestRedis(t)
	ctx := context.Background()

	q := NewStreamQueue(rdb, "feestplanner:turns", "workers", "w1", 10*time.Millisecond)
	if err := q.EnsureGroup(ctx); err != nil {
		t.Fatalf("ensure group: %v", err)
	}
	if err := rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: "feestplanner:turns",
		Values: map[string]any{"payload": "{broken"},
	}).Err(); err != nil {
		t.Fatalf("xadd: %v", err)
	}
	msgs, err := q.Read(ctx, 10)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(msgs) != 0 {
		t.Fatalf("expected broken entry skipped, got %+v", msgs)
	}
}
