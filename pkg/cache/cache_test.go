package cache

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNullCache(t *testing.T) {
	canceled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name string
		ctx  context.Context
		err  error
	}{
		{"live", context.Background(), nil},
		{"canceled", canceled, context.Canceled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewNullCache()
			defer c.Close()

			if err := c.Set(tt.ctx, "layout:abc", []byte(`{"x":1}`), LayoutTTL); err != tt.err {
				t.Errorf("Set err = %v, want %v", err, tt.err)
			}
			data, hit, err := c.Get(tt.ctx, "layout:abc")
			if err != tt.err {
				t.Errorf("Get err = %v, want %v", err, tt.err)
			}
			if hit || data != nil {
				t.Errorf("Get = %q, %t; want a miss", data, hit)
			}
			if err := c.Delete(tt.ctx, "layout:abc"); err != tt.err {
				t.Errorf("Delete err = %v, want %v", err, tt.err)
			}
		})
	}
}

func TestFileCache(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(filepath.Join(t.TempDir(), "cache"))
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	if _, hit, err := c.Get(ctx, "layout:a"); hit || err != nil {
		t.Fatalf("empty cache: hit=%v err=%v", hit, err)
	}

	if err := c.Set(ctx, "layout:a", []byte("positions"), 0); err != nil {
		t.Fatal(err)
	}
	data, hit, err := c.Get(ctx, "layout:a")
	if err != nil || !hit || string(data) != "positions" {
		t.Fatalf("Get = %q, %v, %v", data, hit, err)
	}

	if err := c.Delete(ctx, "layout:a"); err != nil {
		t.Fatal(err)
	}
	if _, hit, _ := c.Get(ctx, "layout:a"); hit {
		t.Error("entry survived Delete")
	}
	if err := c.Delete(ctx, "layout:a"); err != nil {
		t.Errorf("Delete of missing key: %v", err)
	}
}

func TestFileCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	if err := c.Set(ctx, "k", []byte("v"), time.Nanosecond); err != nil {
		t.Fatal(err)
	}
	time.Sleep(2 * time.Millisecond)
	if _, hit, _ := c.Get(ctx, "k"); hit {
		t.Error("expired entry returned")
	}
	if _, err := os.Stat(c.path("k")); !os.IsNotExist(err) {
		t.Error("expired entry not removed")
	}
}

func TestFileCacheCorruptEntry(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	path := c.path("k")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, hit, err := c.Get(ctx, "k"); hit || err != nil {
		t.Errorf("corrupt entry: hit=%v err=%v", hit, err)
	}
}

func TestFileCacheStatsAndClear(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	for _, k := range []string{"a", "b", "c"} {
		if err := c.Set(ctx, k, []byte(k), 0); err != nil {
			t.Fatal(err)
		}
	}
	n, size, err := c.Stats()
	if err != nil || n != 3 || size == 0 {
		t.Fatalf("Stats() = %d, %d, %v", n, size, err)
	}

	removed, err := c.Clear()
	if err != nil || removed != 3 {
		t.Fatalf("Clear() = %d, %v", removed, err)
	}
	if n, _, _ := c.Stats(); n != 0 {
		t.Errorf("%d entries after Clear", n)
	}
	entries, err := os.ReadDir(c.Dir())
	if err != nil || len(entries) != 0 {
		t.Errorf("cache dir not emptied: %v %v", entries, err)
	}
}

func TestFileCacheCanceled(t *testing.T) {
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := c.Set(ctx, "k", nil, 0); err != context.Canceled {
		t.Errorf("Set err = %v", err)
	}
	if _, _, err := c.Get(ctx, "k"); err != context.Canceled {
		t.Errorf("Get err = %v", err)
	}
}

func TestHash(t *testing.T) {
	// Test determinism
	h1 := Hash([]byte("hello"))
	h2 := Hash([]byte("hello"))
	if h1 != h2 {
		t.Error("Hash should be deterministic")
	}

	// Test different inputs produce different hashes
	h3 := Hash([]byte("world"))
	if h1 == h3 {
		t.Error("Different inputs should produce different hashes")
	}

	// Test hash length (SHA-256 produces 64 hex chars)
	if len(h1) != 64 {
		t.Errorf("Hash length should be 64, got %d", len(h1))
	}

	j1, err := HashJSON([][2]int{{0, 1}})
	if err != nil {
		t.Fatal(err)
	}
	if j2, _ := HashJSON([][2]int{{1, 0}}); j1 == j2 {
		t.Error("HashJSON should depend on content")
	}
}

func TestDefaultKeyer(t *testing.T) {
	k := NewDefaultKeyer()

	lk1 := k.LayoutKey("hash123", LayoutKeyOpts{Reverse: true, HGap: 2})
	lk2 := k.LayoutKey("hash123", LayoutKeyOpts{Reverse: false, HGap: 2})
	if lk1 == lk2 {
		t.Error("Different LayoutKeyOpts should produce different keys")
	}
	if !strings.HasPrefix(lk1, "layout:") {
		t.Errorf("LayoutKey unexpected: %s", lk1)
	}
	if lk1 != k.LayoutKey("hash123", LayoutKeyOpts{Reverse: true, HGap: 2}) {
		t.Error("LayoutKey should be deterministic")
	}

	rk1 := k.RenderKey("hash123", RenderKeyOpts{Format: "svg"})
	rk2 := k.RenderKey("hash123", RenderKeyOpts{Format: "svg", Positions: true})
	if rk1 == rk2 {
		t.Error("Different RenderKeyOpts should produce different keys")
	}
	if !strings.HasPrefix(rk1, "render:") {
		t.Errorf("RenderKey unexpected: %s", rk1)
	}
}

func TestScopedKeyer(t *testing.T) {
	tests := []struct {
		name  string
		inner Keyer
	}{
		{"default inner", NewDefaultKeyer()},
		{"nil inner", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scoped := NewScopedKeyer(tt.inner, "v1:")
			want := "v1:" + NewDefaultKeyer().LayoutKey("h", LayoutKeyOpts{})
			if got := scoped.LayoutKey("h", LayoutKeyOpts{}); got != want {
				t.Errorf("LayoutKey = %s, want %s", got, want)
			}
			if got := scoped.RenderKey("h", RenderKeyOpts{}); !strings.HasPrefix(got, "v1:render:") {
				t.Errorf("RenderKey = %s", got)
			}
		})
	}
}
