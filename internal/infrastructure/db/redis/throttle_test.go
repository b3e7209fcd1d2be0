package redis

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestLoginThrottle_LimitAndReset(t *testing.T) {
	ctx := context.Background()
	_, client := newTestClient(t)
	th := NewLoginThrottle(client, 3, time.Minute)

	for i := 0; i < 3; i++ {
		ok, err := th.Attempt(ctx, "a@x.com")
		if err != nil || !ok {
			t.Fatalf("attempt %d should be allowed: ok=%v err=%v", i, ok, err)
		}
	}

	if ok, _ := th.Attempt(ctx, "a@x.com"); ok {
		t.Fatalf("fourth attempt should be blocked")
	}
	if ok, _ := th.Attempt(ctx, "b@x.com"); !ok {
		t.Fatalf("other accounts must not be affected")
	}

	if err := th.Reset(ctx, "a@x.com"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if ok, _ := th.Attempt(ctx, "a@x.com"); !ok {
		t.Fatalf("reset should unblock")
	}
}

func TestLoginThrottle_WindowExpires(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestClient(t)
	th := NewLoginThrottle(client, 1, time.Minute)

	if ok, _ := th.Attempt(ctx, "a@x.com"); !ok {
		t.Fatalf("first attempt should be allowed")
	}
	if ok, _ := th.Attempt(ctx, "a@x.com"); ok {
		t.Fatalf("expected block")
	}
	if ttl := mr.TTL("login_attempts:a@x.com"); ttl != time.Minute {
		t.Fatalf("expected 1m ttl, got %v", ttl)
	}

	mr.FastForward(time.Minute + time.Second)
	if ok, _ := th.Attempt(ctx, "a@x.com"); !ok {
		t.Fatalf("expected window to expire")
	}
}

func TestLoginThrottle_Concurrent(t *testing.T) {
	ctx := context.Background()
	_, client := newTestClient(t)
	th := NewLoginThrottle(client, 3, time.Minute)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := th.Attempt(ctx, "a@x.com")
			if err != nil {
				t.Errorf("attempt: %v", err)
				return
			}
			if ok {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if allowed != 3 {
		t.Fatalf("expected exactly 3 allowed attempts, got %d", allowed)
	}
}

func TestLoginThrottle_RedisDown(t *testing.T) {
	mr, client := newTestClient(t)
	th := NewLoginThrottle(client, 3, time.Minute)
	mr.Close()

	if _, err := th.Attempt(context.Background(), "a@x.com"); err == nil {
		t.Fatalf("expected error when redis is unavailable")
	}
}
