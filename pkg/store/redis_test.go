package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/TryMightyAI/rampart/pkg/ml"
)

func testCache(t *testing.T) (*VerdictCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	cache, err := NewVerdictCache(context.Background(), "redis://"+mr.Addr(), time.Minute)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { cache.Close() })
	return cache, mr
}

func sampleVerdict(id string) *ml.Verdict {
	return &ml.Verdict{
		ID:               id,
		IsHuman:          true,
		HumanProbability: 0.82,
		BotProbability:   0.18,
		Confidence:       0.82,
		RiskScore:        0.18,
		Timestamp:        time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC),
	}
}

func TestVerdictCacheRoundTrip(t *testing.T) {
	cache, _ := testCache(t)
	ctx := context.Background()

	want := sampleVerdict("v-1")
	if err := cache.Put(ctx, want); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := cache.Get(ctx, "v-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil {
		t.Fatalf("expected cached verdict, got nil")
	}
	if got.ID != want.ID || got.HumanProbability != want.HumanProbability || !got.Timestamp.Equal(want.Timestamp) {
		t.Fatalf("round trip mismatch: %+v vs %+v", got, want)
	}
}

func TestVerdictCacheMissIsNil(t *testing.T) {
	cache, _ := testCache(t)

	got, err := cache.Get(context.Background(), "no-such-id")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil on miss, got %+v", got)
	}
}

func TestVerdictCacheExpiry(t *testing.T) {
	cache, mr := testCache(t)
	ctx := context.Background()

	if err := cache.Put(ctx, sampleVerdict("v-exp")); err != nil {
		t.Fatalf("put: %v", err)
	}
	mr.FastForward(2 * time.Minute)

	got, err := cache.Get(ctx, "v-exp")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Fatalf("expected expired verdict to miss, got %+v", got)
	}
}

func TestVerdictCacheRecentIDsNewestFirst(t *testing.T) {
	cache, _ := testCache(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := cache.Put(ctx, sampleVerdict(fmt.Sprintf("v-%d", i))); err != nil {
			t.Fatalf("put %d: %v", i, err)
		}
	}

	ids, err := cache.RecentIDs(ctx, 3)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(ids) != 3 {
		t.Fatalf("expected 3 ids, got %d", len(ids))
	}
	if ids[0] != "v-4" || ids[1] != "v-3" || ids[2] != "v-2" {
		t.Fatalf("expected newest first, got %v", ids)
	}
}

func TestVerdictCacheRecentListBounded(t *testing.T) {
	cache, mr := testCache(t)
	ctx := context.Background()

	for i := 0; i < recentLimit+20; i++ {
		if err := cache.Put(ctx, sampleVerdict(fmt.Sprintf("v-%d", i))); err != nil {
			t.Fatalf("put %d: %v", i, err)
		}
	}

	ids, err := cache.RecentIDs(ctx, 0)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(ids) != recentLimit {
		t.Fatalf("expected recent list trimmed to %d, got %d", recentLimit, len(ids))
	}

	stored, err := mr.List(recentKey)
	if err != nil {
		t.Fatalf("inspect list: %v", err)
	}
	if len(stored) != recentLimit {
		t.Fatalf("expected stored list trimmed to %d, got %d", recentLimit, len(stored))
	}
}
