package synth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/harunnryd/voxa/pkg/errorsx"
)

// slowSynth yields one frame per text after a configurable delay, so
// tests can force out-of-order synthesis completion.
type slowSynth struct {
	delay  map[string]time.Duration
	failOn map[string]bool
}

func (s *slowSynth) Name() string { return "slow_tts" }

func (s *slowSynth) Synthesize(ctx context.Context, text string) (<-chan []byte, error) {
	if s.failOn[text] {
		return nil, errors.New("synthesis refused")
	}
	out := make(chan []byte, 1)
	go func() {
		time.Sleep(s.delay[text])
		out <- []byte(text)
		close(out)
	}()
	return out, nil
}

// recordingSink appends one line per sink call, in call order, and
// keeps the error handed to each failed chunk.
type recordingSink struct {
	mu        sync.Mutex
	events    []string
	chunkErrs map[int]error
}

func (r *recordingSink) WriteAudioFrame(frame []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, "frame:"+string(frame))
	return nil
}

func (r *recordingSink) WriteAudioEnd(seq int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, fmt.Sprintf("end:%d", seq))
	return nil
}

func (r *recordingSink) WriteChunkError(seq int, err error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, fmt.Sprintf("error:%d", seq))
	if r.chunkErrs == nil {
		r.chunkErrs = make(map[int]error)
	}
	r.chunkErrs[seq] = err
	return nil
}

func TestDispatchDeliversInSequenceOrder(t *testing.T) {
	synth := &slowSynth{delay: map[string]time.Duration{
		"alpha": 80 * time.Millisecond,
		"beta":  10 * time.Millisecond,
		"gamma": 0,
	}}
	sink := &recordingSink{}
	d := NewDispatcher(synth, sink, 3, nil)

	ctx := context.Background()
	d.Dispatch(ctx, Chunk{Seq: 1, Text: "alpha"})
	d.Dispatch(ctx, Chunk{Seq: 2, Text: "beta"})
	d.Dispatch(ctx, Chunk{Seq: 3, Text: "gamma"})
	d.Wait()

	want := []string{
		"frame:alpha", "end:1",
		"frame:beta", "end:2",
		"frame:gamma", "end:3",
	}
	if len(sink.events) != len(want) {
		t.Fatalf("events = %v, want %v", sink.events, want)
	}
	for i, ev := range want {
		if sink.events[i] != ev {
			t.Fatalf("events[%d] = %q, want %q (all: %v)", i, sink.events[i], ev, sink.events)
		}
	}
}

func TestDispatchIsolatesFailedChunk(t *testing.T) {
	synth := &slowSynth{
		delay:  map[string]time.Duration{"alpha": 20 * time.Millisecond},
		failOn: map[string]bool{"beta": true},
	}
	sink := &recordingSink{}
	d := NewDispatcher(synth, sink, 3, nil)

	ctx := context.Background()
	d.Dispatch(ctx, Chunk{Seq: 1, Text: "alpha"})
	d.Dispatch(ctx, Chunk{Seq: 2, Text: "beta"})
	d.Dispatch(ctx, Chunk{Seq: 3, Text: "gamma"})
	d.Wait()

	want := []string{
		"frame:alpha", "end:1",
		"error:2",
		"frame:gamma", "end:3",
	}
	if len(sink.events) != len(want) {
		t.Fatalf("events = %v, want %v", sink.events, want)
	}
	for i, ev := range want {
		if sink.events[i] != ev {
			t.Fatalf("events[%d] = %q, want %q (all: %v)", i, sink.events[i], ev, sink.events)
		}
	}
}

func TestDispatchTagsSynthesisErrors(t *testing.T) {
	synth := &slowSynth{failOn: map[string]bool{"alpha": true}}
	sink := &recordingSink{}
	d := NewDispatcher(synth, sink, 1, nil)

	d.Dispatch(context.Background(), Chunk{Seq: 1, Text: "alpha"})
	d.Wait()

	sink.mu.Lock()
	defer sink.mu.Unlock()
	err := sink.chunkErrs[1]
	if err == nil {
		t.Fatalf("no error delivered for chunk 1: %v", sink.events)
	}
	if !errorsx.HasReason(err, errorsx.ReasonTTSStream) {
		t.Fatalf("reason = %q, want %q", errorsx.Reason(err), errorsx.ReasonTTSStream)
	}
}

func TestDispatchStopsAfterCancel(t *testing.T) {
	synth := &slowSynth{delay: map[string]time.Duration{"alpha": 50 * time.Millisecond}}
	sink := &recordingSink{}
	d := NewDispatcher(synth, sink, 1, nil)

	ctx, cancel := context.WithCancel(context.Background())
	d.Dispatch(ctx, Chunk{Seq: 1, Text: "alpha"})
	cancel()
	d.Wait()

	sink.mu.Lock()
	defer sink.mu.Unlock()
	for _, ev := range sink.events {
		if ev == "end:1" {
			return // delivery raced ahead of cancellation, still ordered
		}
	}
	if len(sink.events) > 1 {
		t.Fatalf("unexpected events after cancel: %v", sink.events)
	}
}
