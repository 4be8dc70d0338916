package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestNilLimiterAllows(t *testing.T) {
	var l *RedisLimiter
	if !l.Allow(context.Background(), ApplyKey("w1")) {
		t.Fatal("nil limiter should allow")
	}
	if NewRedisLimiter(nil, 1, time.Minute) != nil {
		t.Fatal("expected nil limiter for nil client")
	}
}

func TestUnreachableRedisFailsOpen(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	l := NewRedisLimiter(client, 1, time.Minute)
	for i := 0; i < 3; i++ {
		if !l.Allow(context.Background(), ApplyKey("w1")) {
			t.Fatalf("attempt %d: expected fail-open when redis is down", i)
		}
	}
}

func TestApplyKey(t *testing.T) {
	if got := ApplyKey("abc"); got != "laborbook:apply:abc" {
		t.Fatalf("unexpected key %q", got)
	}
}

func TestNop(t *testing.T) {
	var l Limiter = Nop{}
	if !l.Allow(context.Background(), "x") {
		t.Fatal("Nop should allow")
	}
}
