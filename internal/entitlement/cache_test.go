package entitlement

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
)

func TestRedisCache(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	cache := NewRedisCache(client)
	ctx := context.Background()

	if _, found, err := cache.Get(ctx, 42); err != nil || found {
		t.Fatalf("Expected miss for unknown user, found=%v err=%v", found, err)
	}

	if err := cache.Set(ctx, 42, true); err != nil {
		t.Fatalf("Failed to set entitlement: %v", err)
	}
	premium, found, err := cache.Get(ctx, 42)
	if err != nil {
		t.Fatalf("Failed to get entitlement: %v", err)
	}
	if !found || !premium {
		t.Errorf("Expected premium=true found=true, got premium=%v found=%v", premium, found)
	}

	if err := cache.Set(ctx, 7, false); err != nil {
		t.Fatalf("Failed to set entitlement: %v", err)
	}
	premium, found, _ = cache.Get(ctx, 7)
	if !found || premium {
		t.Errorf("Expected premium=false found=true, got premium=%v found=%v", premium, found)
	}

	// entries expire after the TTL
	mr.FastForward(TTL + time.Second)
	if _, found, _ := cache.Get(ctx, 42); found {
		t.Error("Expected entry to expire after TTL")
	}

	if err := cache.Set(ctx, 42, true); err != nil {
		t.Fatalf("Failed to set entitlement: %v", err)
	}
	if err := cache.Invalidate(ctx, 42); err != nil {
		t.Fatalf("Failed to invalidate: %v", err)
	}
	if _, found, _ := cache.Get(ctx, 42); found {
		t.Error("Expected entry gone after invalidation")
	}
}

func TestMemoryCache(t *testing.T) {
	cache := NewMemoryCache()
	ctx := context.Background()

	if _, found, err := cache.Get(ctx, 1); err != nil || found {
		t.Fatalf("Expected miss for unknown user, found=%v err=%v", found, err)
	}

	if err := cache.Set(ctx, 1, true); err != nil {
		t.Fatalf("Failed to set entitlement: %v", err)
	}
	premium, found, _ := cache.Get(ctx, 1)
	if !found || !premium {
		t.Errorf("Expected premium=true found=true, got premium=%v found=%v", premium, found)
	}

	if err := cache.Invalidate(ctx, 1); err != nil {
		t.Fatalf("Failed to invalidate: %v", err)
	}
	if _, found, _ := cache.Get(ctx, 1); found {
		t.Error("Expected entry gone after invalidation")
	}
}
