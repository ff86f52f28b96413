package contextcache

import (
	"fmt"
	"testing"
)

func TestBoundedCapacity(t *testing.T) {
	c, err := New(4)
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}
	for i := 0; i < 20; i++ {
		c.Put("conv-1", fmt.Sprintf("message %d", i), fmt.Sprintf("context %d", i))
	}
	if c.Len() > 4 {
		t.Fatalf("cache exceeded capacity: %d entries", c.Len())
	}
}

func TestMissForNeverInserted(t *testing.T) {
	c, _ := New(8)
	c.Put("conv-1", "what is the weather", "ctx")
	if _, ok := c.Get("conv-1", "completely different message"); ok {
		t.Fatalf("expected miss for never-inserted key")
	}
	if _, ok := c.Get("conv-2", "what is the weather"); ok {
		t.Fatalf("expected miss for different conversation")
	}
}

func TestLRUEviction(t *testing.T) {
	c, _ := New(2)
	c.Put("conv", "a", "ctx-a")
	c.Put("conv", "b", "ctx-b")
	// Touch "a" so "b" becomes least recently used.
	if _, ok := c.Get("conv", "a"); !ok {
		t.Fatalf("expected hit for a")
	}
	c.Put("conv", "c", "ctx-c")
	if _, ok := c.Get("conv", "b"); ok {
		t.Fatalf("expected b evicted as least recently used")
	}
	if v, ok := c.Get("conv", "a"); !ok || v != "ctx-a" {
		t.Fatalf("expected a retained, got %q ok=%v", v, ok)
	}
}
