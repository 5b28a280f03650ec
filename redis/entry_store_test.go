package redis

import (
	"bytes"
	"context"
	"slices"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/kbukum/hyperdata/logger"
	"github.com/kbukum/hyperdata/objectcache"
)

// newTestClient creates a redis.Client backed by miniredis for testing.
func newTestClient(t *testing.T, expiry time.Duration) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mini, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mini.Close)

	client, err := New(Config{Enabled: true, Addr: mini.Addr(), EntryExpiry: expiry}, logger.Nop())
	if err != nil {
		t.Fatalf("failed to create redis client: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client, mini
}

func TestNew_Disabled(t *testing.T) {
	if _, err := New(Config{}, nil); err == nil {
		t.Fatal("expected error for disabled redis")
	}
	if _, err := New(Config{Enabled: true}, nil); err == nil {
		t.Fatal("expected error for missing addr")
	}
}

func TestClient_PingAndClose(t *testing.T) {
	client, _ := newTestClient(t, 0)
	ctx := context.Background()
	if err := client.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if !client.IsAvailable(ctx) {
		t.Error("expected available")
	}
	if err := client.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := client.Close(); err != nil {
		t.Errorf("second Close should be a no-op: %v", err)
	}
	if client.IsAvailable(ctx) {
		t.Error("closed client should not be available")
	}
}

func TestEntryStore_RoundTripIsByteEqual(t *testing.T) {
	client, _ := newTestClient(t, 0)
	store := NewEntryStore(client, "test:")
	ctx := context.Background()

	body := []byte("{\n  \"type\" : \"item\",\n  \"name\": \"\\u00e9\"\n}")
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	err := store.Set(ctx, &objectcache.Entry{Key: "GET http://api/items/1", Representation: body, Types: []string{"item"}, Timestamp: ts})
	if err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, err := store.Get(ctx, "GET http://api/items/1")
	if err != nil || got == nil {
		t.Fatalf("Get: %v %v", got, err)
	}
	if !bytes.Equal(got.Representation, body) {
		t.Errorf("representation changed:\n got %q\nwant %q", got.Representation, body)
	}
	if !got.Timestamp.Equal(ts) || !slices.Equal(got.Types, []string{"item"}) {
		t.Errorf("unexpected entry: %+v", got)
	}
}

func TestEntryStore_GetMissing(t *testing.T) {
	client, _ := newTestClient(t, 0)
	store := NewEntryStore(client, "test:")
	got, err := store.Get(context.Background(), "nope")
	if err != nil || got != nil {
		t.Errorf("expected nil, nil; got %v, %v", got, err)
	}
}

func TestEntryStore_TypeIndex(t *testing.T) {
	client, mini := newTestClient(t, 0)
	store := NewEntryStore(client, "test:")
	ctx := context.Background()

	_ = store.Set(ctx, &objectcache.Entry{Key: "a", Types: []string{"item", "bundle"}})
	_ = store.Set(ctx, &objectcache.Entry{Key: "b", Types: []string{"item"}})
	_ = store.Set(ctx, &objectcache.Entry{Key: "a", Types: []string{"bundle"}})

	keys, err := store.KeysByType(ctx, "item")
	if err != nil {
		t.Fatalf("KeysByType: %v", err)
	}
	if !slices.Equal(keys, []string{"b"}) {
		t.Errorf("expected [b], got %v", keys)
	}

	if err := store.Delete(ctx, "a"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if mini.Exists("test:entry:a") {
		t.Error("entry key should be gone")
	}
	if keys, _ := store.KeysByType(ctx, "bundle"); len(keys) != 0 {
		t.Errorf("expected no bundle keys, got %v", keys)
	}
}

func TestEntryStore_ExpiredMembersArePruned(t *testing.T) {
	client, mini := newTestClient(t, time.Minute)
	store := NewEntryStore(client, "test:")
	ctx := context.Background()

	_ = store.Set(ctx, &objectcache.Entry{Key: "a", Types: []string{"item"}})
	mini.FastForward(2 * time.Minute)

	keys, err := store.KeysByType(ctx, "item")
	if err != nil {
		t.Fatalf("KeysByType: %v", err)
	}
	if len(keys) != 0 {
		t.Errorf("expected expired key to be pruned, got %v", keys)
	}
	if ok, _ := mini.SIsMember("test:type:item", "a"); ok {
		t.Error("expected set member to be removed")
	}
}

func TestEntryStore_WithObjectCache(t *testing.T) {
	client, _ := newTestClient(t, 0)
	cache := objectcache.New(NewEntryStore(client, "hd:"), time.Minute, logger.Nop())
	ctx := context.Background()

	if err := cache.Put(ctx, "k1", []byte(`{"type":"item"}`), "item"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := cache.Put(ctx, "k2", []byte(`{"type":"bitstream"}`), "bitstream"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	n, err := cache.InvalidateByType(ctx, "item")
	if err != nil || n != 1 {
		t.Fatalf("InvalidateByType = %d, %v", n, err)
	}
	e, _ := cache.Get(ctx, "k1")
	if e == nil || !cache.IsStale(e) {
		t.Errorf("expected k1 stale, got %+v", e)
	}
	e, _ = cache.Get(ctx, "k2")
	if e == nil || cache.IsStale(e) {
		t.Errorf("expected k2 fresh, got %+v", e)
	}
}
