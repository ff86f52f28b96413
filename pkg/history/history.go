// Package history holds the bounded per-session turn history.
package history

// Role identifies the speaker of a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one exchanged message. Immutable once appended.
type Turn struct {
	Role    Role
	Content string
}

// History is a fixed-capacity FIFO of the most recent turns.
// It is owned by a single session goroutine and needs no locking.
type History struct {
	turns []Turn
	cap   int
}

const DefaultCapacity = 20

func New(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &History{cap: capacity}
}

// Append adds a turn, evicting the oldest when over capacity.
func (h *History) Append(role Role, content string) {
	h.turns = append(h.turns, Turn{Role: role, Content: content})
	if len(h.turns) > h.cap {
		h.turns = h.turns[len(h.turns)-h.cap:]
	}
}

func (h *History) Len() int { return len(h.turns) }

func (h *History) Cap() int { return h.cap }

// Turns returns a copy of the retained turns in arrival order.
func (h *History) Turns() []Turn {
	out := make([]Turn, len(h.turns))
	copy(out, h.turns)
	return out
}
