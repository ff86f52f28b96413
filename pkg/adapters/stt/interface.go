package stt

import "context"

// Transcriber defines the contract for any STT vendor implementation.
// One call transcribes one complete utterance; an empty string means no
// speech was detected.
type Transcriber interface {
	// Name returns adapter name for logging.
	Name() string
	// Transcribe converts raw audio bytes into text.
	Transcribe(ctx context.Context, audio []byte) (string, error)
}
