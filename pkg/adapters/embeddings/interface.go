// Package embeddings defines the vector embedding contract.
package embeddings

import "context"

// Embedder turns text into a dense vector.
type Embedder interface {
	// Name returns adapter name for logging.
	Name() string
	Embed(ctx context.Context, text string) ([]float32, error)
}
