package tts

import "context"

// Synthesizer defines the contract for any TTS vendor implementation.
type Synthesizer interface {
	// Name returns adapter name for logging.
	Name() string
	// Synthesize converts text into a lazy stream of audio byte frames.
	// The channel is closed when synthesis completes; cancelling ctx
	// terminates the stream early.
	Synthesize(ctx context.Context, text string) (<-chan []byte, error)
}
