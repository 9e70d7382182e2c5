package queue

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newQueue(t *testing.T) (*RedisQueue, *miniredis.Miniredis) {
	t.Helper()
	s := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisQueue(rdb, ""), s
}

func TestRedisQueue_FIFO(t *testing.T) {
	q, _ := newQueue(t)
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		if err := q.Push(ctx, id); err != nil {
			t.Fatalf("push: %v", err)
		}
	}
	if n, _ := q.Len(ctx); n != 3 {
		t.Fatalf("len = %d", n)
	}
	for _, want := range []string{"a", "b", "c"} {
		got, err := q.Pop(ctx, time.Second)
		if err != nil || got != want {
			t.Fatalf("pop = %q, %v; want %q", got, err, want)
		}
	}
}

func TestRedisQueue_PopTimeoutIsEmpty(t *testing.T) {
	q, _ := newQueue(t)
	start := time.Now()
	got, err := q.Pop(context.Background(), time.Second)
	if err != nil || got != "" {
		t.Fatalf("pop = %q, %v; want empty", got, err)
	}
	if time.Since(start) > 5*time.Second {
		t.Fatalf("pop blocked for %s", time.Since(start))
	}
}
