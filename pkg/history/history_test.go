package history

import (
	"fmt"
	"testing"
)

func TestAppendKeepsMostRecentInOrder(t *testing.T) {
	h := New(3)
	for i := 0; i < 10; i++ {
		role := RoleUser
		if i%2 == 1 {
			role = RoleAssistant
		}
		h.Append(role, fmt.Sprintf("turn-%d", i))
	}
	turns := h.Turns()
	if len(turns) != 3 {
		t.Fatalf("expected 3 turns, got %d", len(turns))
	}
	for i, want := range []string{"turn-7", "turn-8", "turn-9"} {
		if turns[i].Content != want {
			t.Fatalf("turn %d: expected %q, got %q", i, want, turns[i].Content)
		}
	}
}

func TestDefaultCapacity(t *testing.T) {
	h := New(0)
	if h.Cap() != DefaultCapacity {
		t.Fatalf("expected default capacity %d, got %d", DefaultCapacity, h.Cap())
	}
}

func TestTurnsReturnsCopy(t *testing.T) {
	h := New(5)
	h.Append(RoleUser, "hello")
	turns := h.Turns()
	turns[0].Content = "mutated"
	if h.Turns()[0].Content != "hello" {
		t.Fatalf("history mutated through returned slice")
	}
}
