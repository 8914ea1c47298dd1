package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *RedisBackend) {
	t.Helper()

	srv := miniredis.RunT(t)
	b, err := NewRedisBackend(srv.Addr())
	if err != nil {
		t.Fatalf("NewRedisBackend: %v", err)
	}
	t.Cleanup(func() { b.Close() })
	return srv, b
}

func TestRedisBackend_SetGet(t *testing.T) {
	ctx := context.Background()
	_, b := newTestRedis(t)

	if b.Name() != "redis" {
		t.Errorf("Name: got %q, want %q", b.Name(), "redis")
	}

	if err := b.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, ok, err := b.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok || string(got) != "v" {
		t.Errorf("Get: got %q ok=%v, want %q ok=true", got, ok, "v")
	}

	if _, ok, err := b.Get(ctx, "absent"); err != nil || ok {
		t.Errorf("Get absent: got ok=%v err=%v, want miss without error", ok, err)
	}
}

func TestRedisBackend_TTLExpiry(t *testing.T) {
	ctx := context.Background()
	srv, b := newTestRedis(t)

	if err := b.Set(ctx, "short", []byte("v"), time.Second); err != nil {
		t.Fatalf("Set: %v", err)
	}

	// miniredis expires keys on simulated time, no real sleep needed.
	srv.FastForward(1100 * time.Millisecond)

	if _, ok, _ := b.Get(ctx, "short"); ok {
		t.Error("entry still visible after its TTL elapsed")
	}
}

func TestRedisBackend_DeleteAndClear(t *testing.T) {
	ctx := context.Background()
	_, b := newTestRedis(t)

	b.Set(ctx, "a", []byte("1"), time.Minute)
	b.Set(ctx, "b", []byte("2"), time.Minute)

	if err := b.Delete(ctx, "a"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := b.Get(ctx, "a"); ok {
		t.Error("a still present after Delete")
	}

	if err := b.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if n, _ := b.Len(ctx); n != 0 {
		t.Errorf("Len after Clear: got %d, want 0", n)
	}
}

func TestNewBackend_UsesRedisWhenReachable(t *testing.T) {
	srv := miniredis.RunT(t)

	b := NewBackend(Config{Backend: "redis", RedisAddr: srv.Addr()}, nil)
	if b.Name() != "redis" {
		t.Errorf("backend: got %q, want %q", b.Name(), "redis")
	}
}
