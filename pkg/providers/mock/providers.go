// Package mock provides fake providers for tests and offline runs.
package mock

import (
	"context"
	"errors"

	"github.com/harunnryd/voxa/pkg/llm"
)

// Transcriber returns a fixed transcript for any audio.
type Transcriber struct {
	Transcript string
	Err        error
}

func (t *Transcriber) Name() string { return "mock_stt" }

func (t *Transcriber) Transcribe(ctx context.Context, audio []byte) (string, error) {
	if t.Err != nil {
		return "", t.Err
	}
	return t.Transcript, nil
}

// Streamer replays its configured deltas as a completion stream.
type Streamer struct {
	Deltas []string
	Err    error

	// LastMessages records the most recent request for assertions.
	LastMessages []llm.Message
}

func (s *Streamer) Name() string { return "mock_llm" }

func (s *Streamer) Stream(ctx context.Context, messages []llm.Message) (<-chan string, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.LastMessages = append([]llm.Message(nil), messages...)
	out := make(chan string, len(s.Deltas)+1)
	for _, delta := range s.Deltas {
		out <- delta
	}
	close(out)
	return out, nil
}

// Embedder returns a fixed vector, or fails for texts registered in
// FailOn. Calls records every embedded text in order.
type Embedder struct {
	Vector []float32
	FailOn map[string]bool
	Err    error

	Calls []string
}

var ErrEmbedding = errors.New("mock embedding failure")

func (e *Embedder) Name() string { return "mock_embeddings" }

func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e.Err != nil {
		return nil, e.Err
	}
	if e.FailOn[text] {
		return nil, ErrEmbedding
	}
	e.Calls = append(e.Calls, text)
	if e.Vector == nil {
		return []float32{0.1, 0.2, 0.3}, nil
	}
	return append([]float32(nil), e.Vector...), nil
}

// Synthesizer yields its configured frames for every chunk, or fails
// for texts registered in FailOn.
type Synthesizer struct {
	Frames [][]byte
	FailOn map[string]bool
}

var ErrSynthesis = errors.New("mock synthesis failure")

func (s *Synthesizer) Name() string { return "mock_tts" }

func (s *Synthesizer) Synthesize(ctx context.Context, text string) (<-chan []byte, error) {
	if s.FailOn[text] {
		return nil, ErrSynthesis
	}
	frames := s.Frames
	if frames == nil {
		frames = [][]byte{[]byte(text)}
	}
	out := make(chan []byte, len(frames))
	for _, f := range frames {
		out <- append([]byte(nil), f...)
	}
	close(out)
	return out, nil
}
