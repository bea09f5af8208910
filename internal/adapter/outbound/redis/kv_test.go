package redis

import (
	"bytes"
	"context"
	"os"
	"testing"
	"time"
)

// newIntegrationStore connects to the Redis instance named by
// OPSDECK_TEST_REDIS (e.g. "localhost:6379"). Tests are skipped when the
// variable is unset so the suite stays hermetic by default.
func newIntegrationStore(t *testing.T) *KVStore {
	t.Helper()
	addr := os.Getenv("OPSDECK_TEST_REDIS")
	if addr == "" {
		t.Skip("OPSDECK_TEST_REDIS not set; skipping Redis integration test")
	}

	store := NewKVStore(Config{Addr: addr, OpTimeout: 2 * time.Second})
	t.Cleanup(func() { store.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := store.Ping(ctx); err != nil {
		t.Fatalf("ping %s: %v", addr, err)
	}
	return store
}

func TestKVStore_SortedSetWindow(t *testing.T) {
	store := newIntegrationStore(t)
	ctx := context.Background()
	key := "opsdeck-test:window"
	defer store.Delete(ctx, key)

	now := time.Now().UnixMilli()
	for i := 0; i < 5; i++ {
		member := string(rune('a' + i))
		if err := store.SortedSetAdd(ctx, key, member, float64(now+int64(i))); err != nil {
			t.Fatalf("add %d: %v", i, err)
		}
	}

	// Remove the two oldest entries.
	if err := store.SortedSetRemoveRangeByScore(ctx, key, float64(now), float64(now+1)); err != nil {
		t.Fatalf("remove range: %v", err)
	}

	count, err := store.SortedSetCard(ctx, key)
	if err != nil {
		t.Fatalf("card: %v", err)
	}
	if count != 3 {
		t.Errorf("card = %d, want 3", count)
	}
}

func TestKVStore_GetSetDelete(t *testing.T) {
	store := newIntegrationStore(t)
	ctx := context.Background()
	key := "opsdeck-test:value"
	defer store.Delete(ctx, key)

	payload := []byte(`{"id":"1"}`)
	if err := store.SetWithTTL(ctx, key, payload, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}

	got, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("get = %q, want %q", got, payload)
	}

	if err := store.Delete(ctx, key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Get(ctx, key); err == nil {
		t.Error("get after delete succeeded, want ErrKeyNotFound")
	}
}

func TestKVStore_DeletePattern(t *testing.T) {
	store := newIntegrationStore(t)
	ctx := context.Background()

	keys := []string{"opsdeck-test:fam:1", "opsdeck-test:fam:2", "opsdeck-test:other:1"}
	for _, k := range keys {
		if err := store.SetWithTTL(ctx, k, []byte("v"), time.Minute); err != nil {
			t.Fatalf("seed %s: %v", k, err)
		}
	}
	defer store.Delete(ctx, keys...)

	if err := store.DeletePattern(ctx, "opsdeck-test:fam:*"); err != nil {
		t.Fatalf("delete pattern: %v", err)
	}

	if _, err := store.Get(ctx, "opsdeck-test:fam:1"); err == nil {
		t.Error("fam:1 survived pattern delete")
	}
	if _, err := store.Get(ctx, "opsdeck-test:other:1"); err != nil {
		t.Errorf("other:1 was deleted by unrelated pattern: %v", err)
	}
}

func TestFormatScore(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{1699999999000, "1699999999000"},
	}
	for _, tt := range tests {
		if got := formatScore(tt.in); got != tt.want {
			t.Errorf("formatScore(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
