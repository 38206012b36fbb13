package cache

import (
	"context"
	"errors"
	"testing"
)

func TestKeyChangesWithEveryInput(t *testing.T) {
	base := Key([]byte{1, 2, 3}, "chair", "1024*1024", "wanx")
	variants := []string{
		Key([]byte{1, 2, 4}, "chair", "1024*1024", "wanx"),
		Key([]byte{1, 2, 3}, "table", "1024*1024", "wanx"),
		Key([]byte{1, 2, 3}, "chair", "1280*720", "wanx"),
		Key([]byte{1, 2, 3}, "chair", "1024*1024", "gemini"),
	}
	for i, v := range variants {
		if v == base {
			t.Fatalf("variant %d collided with base key", i)
		}
	}
	if again := Key([]byte{1, 2, 3}, "chair", "1024*1024", "wanx"); again != base {
		t.Fatalf("key not deterministic: %s vs %s", again, base)
	}
}

func TestNilCacheDegradesGracefully(t *testing.T) {
	var c *RenderCache
	if _, err := c.Get(context.Background(), "render:abc"); !errors.Is(err, ErrMiss) {
		t.Fatalf("err = %v, want ErrMiss", err)
	}
	if err := c.Set(context.Background(), "render:abc", []byte{1}); err != nil {
		t.Fatalf("set on nil cache: %v", err)
	}
}
