package cache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/cruxrec/cruxrec/pkg/config"
)

func testCache(t *testing.T, ttl time.Duration) *Cache {
	t.Helper()
	c, err := Open(config.CacheConfig{
		Enabled: true,
		Path:    filepath.Join(t.TempDir(), "cache.db"),
		TTL:     config.Duration(ttl),
	})
	if err != nil {
		t.Fatalf("open cache: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestTranscriptRoundTrip(t *testing.T) {
	c := testCache(t, time.Hour)
	ctx := context.Background()

	if _, ok, err := c.GetTranscript(ctx, "https://youtu.be/xyz"); err != nil || ok {
		t.Fatalf("empty cache should miss, got ok=%v err=%v", ok, err)
	}

	if err := c.PutTranscript(ctx, "https://youtu.be/xyz", "the transcript"); err != nil {
		t.Fatalf("put transcript: %v", err)
	}

	got, ok, err := c.GetTranscript(ctx, "https://youtu.be/xyz")
	if err != nil {
		t.Fatalf("get transcript: %v", err)
	}
	if !ok || got != "the transcript" {
		t.Errorf("got (%q, %v), want cached transcript", got, ok)
	}

	// Replacing overwrites the previous entry.
	if err := c.PutTranscript(ctx, "https://youtu.be/xyz", "updated"); err != nil {
		t.Fatalf("replace transcript: %v", err)
	}
	got, _, _ = c.GetTranscript(ctx, "https://youtu.be/xyz")
	if got != "updated" {
		t.Errorf("got %q, want updated", got)
	}
}

func TestSummaryKeyedByPrompt(t *testing.T) {
	c := testCache(t, time.Hour)
	ctx := context.Background()

	if err := c.PutSummary(ctx, "url", "short summary", "a few bullets"); err != nil {
		t.Fatalf("put summary: %v", err)
	}

	got, ok, err := c.GetSummary(ctx, "url", "short summary")
	if err != nil || !ok {
		t.Fatalf("get summary: ok=%v err=%v", ok, err)
	}
	if got != "a few bullets" {
		t.Errorf("got %q, want cached summary", got)
	}

	// A different prompt is a different entry.
	if _, ok, _ := c.GetSummary(ctx, "url", "long essay"); ok {
		t.Errorf("different prompt should miss")
	}
}

func TestExpiredEntriesAreMisses(t *testing.T) {
	c := testCache(t, time.Nanosecond)
	ctx := context.Background()

	if err := c.PutTranscript(ctx, "url", "text"); err != nil {
		t.Fatalf("put transcript: %v", err)
	}

	// Timestamps have second resolution, so wait past the next boundary.
	time.Sleep(1100 * time.Millisecond)
	if _, ok, _ := c.GetTranscript(ctx, "url"); ok {
		t.Errorf("expired entry should miss")
	}
}

func TestPurge(t *testing.T) {
	c := testCache(t, time.Nanosecond)
	ctx := context.Background()

	if err := c.PutTranscript(ctx, "url", "text"); err != nil {
		t.Fatalf("put transcript: %v", err)
	}
	if err := c.PutSummary(ctx, "url", "prompt", "summary"); err != nil {
		t.Fatalf("put summary: %v", err)
	}

	time.Sleep(1100 * time.Millisecond)
	n, err := c.Purge(ctx)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if n != 2 {
		t.Errorf("purged %d rows, want 2", n)
	}
}

func TestDisabledCache(t *testing.T) {
	c, err := Open(config.CacheConfig{Enabled: false})
	if err != nil {
		t.Fatalf("open disabled cache: %v", err)
	}
	defer c.Close()

	if c.Enabled() {
		t.Errorf("cache should report disabled")
	}

	ctx := context.Background()
	if err := c.PutTranscript(ctx, "url", "text"); err != nil {
		t.Errorf("disabled put should be a no-op, got %v", err)
	}
	if _, ok, err := c.GetTranscript(ctx, "url"); err != nil || ok {
		t.Errorf("disabled get should miss, got ok=%v err=%v", ok, err)
	}
	if n, err := c.Purge(ctx); err != nil || n != 0 {
		t.Errorf("disabled purge should be a no-op, got n=%d err=%v", n, err)
	}
}
