package lock_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"bizbiller/internal/lock"
)

func TestKey(t *testing.T) {
	if got := lock.Key(42); got != "business:42" {
		t.Errorf("Key(42) = %q", got)
	}
}

func setupRedis(t *testing.T) *lock.RedisLocker {
	t.Helper()
	_ = godotenv.Load("../../.env")

	addr := os.Getenv("TEST_REDIS_ADDRESS")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDRESS not set — skipping redis lock test")
	}
	rdb, err := lock.Connect(context.Background(), addr, os.Getenv("TEST_REDIS_PASSWORD"))
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { rdb.Close() })
	return lock.NewRedisLocker(rdb, 5*time.Second, zerolog.Nop())
}

func TestRedisLocker_ExcludesSecondHolder(t *testing.T) {
	l := setupRedis(t)
	bid := time.Now().UnixNano()

	unlock, err := l.Lock(context.Background(), bid)
	if err != nil {
		t.Fatalf("first Lock: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	if _, err := l.Lock(ctx, bid); !errors.Is(err, lock.ErrNotObtained) {
		t.Fatalf("expected ErrNotObtained while held, got %v", err)
	}

	unlock()
	unlock2, err := l.Lock(context.Background(), bid)
	if err != nil {
		t.Fatalf("Lock after release: %v", err)
	}
	unlock2()
}
