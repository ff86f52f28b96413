// Package llm defines the streaming completion contract.
package llm

import "context"

// Message is one entry of the completion request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Roles understood by completion providers.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Streamer opens a token-delta stream from a completion service.
// The returned channel yields text deltas in order and is closed when
// the upstream stream ends; cancelling ctx terminates it early.
type Streamer interface {
	// Name returns adapter name for logging.
	Name() string
	Stream(ctx context.Context, messages []Message) (<-chan string, error)
}
