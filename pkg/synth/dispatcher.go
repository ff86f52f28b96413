// Package synth dispatches per-chunk speech synthesis with bounded
// concurrency while keeping socket writes strictly ordered by chunk
// sequence number.
package synth

import (
	"context"
	"log/slog"
	"sync"

	"github.com/harunnryd/voxa/pkg/adapters/tts"
	"github.com/harunnryd/voxa/pkg/errorsx"
)

// Chunk is one unit of assistant text released to synthesis.
// Sequence numbers increase monotonically per session.
type Chunk struct {
	Seq  int
	Text string
}

// Sink receives ordered synthesis output. Implementations write to the
// client socket.
type Sink interface {
	WriteAudioFrame(frame []byte) error
	WriteAudioEnd(seq int) error
	WriteChunkError(seq int, err error) error
}

const DefaultConcurrency = 3

// Dispatcher runs one synthesis task per chunk. Tasks synthesize in
// parallel, but each task waits for its turn before touching the sink,
// so frames of different chunks never interleave on the wire.
type Dispatcher struct {
	sink        tts.Synthesizer
	out         Sink
	sem         chan struct{}
	logger      *slog.Logger
	mu          sync.Mutex
	cond        *sync.Cond
	next        int
	inFlight    int
	cancelled   bool
	cancelWatch sync.Once
}

func NewDispatcher(synthesizer tts.Synthesizer, out Sink, concurrency int, logger *slog.Logger) *Dispatcher {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dispatcher{
		sink:   synthesizer,
		out:    out,
		sem:    make(chan struct{}, concurrency),
		logger: logger,
		next:   1,
	}
	d.cond = sync.NewCond(&d.mu)
	return d
}

// Dispatch starts synthesis for one chunk. Chunks must be dispatched in
// ascending sequence order; the call blocks while the worker pool is
// full, which also keeps slot holders the lowest outstanding sequences.
func (d *Dispatcher) Dispatch(ctx context.Context, chunk Chunk) {
	d.watchCancel(ctx)
	select {
	case d.sem <- struct{}{}:
	case <-ctx.Done():
		return
	}
	d.mu.Lock()
	d.inFlight++
	d.mu.Unlock()

	go func() {
		defer func() {
			<-d.sem
			d.advance(chunk.Seq)
		}()
		stream, err := d.sink.Synthesize(ctx, chunk.Text)
		if !d.waitTurn(chunk.Seq) {
			return
		}
		if err != nil {
			wrapped := errorsx.Wrap(err, errorsx.ReasonTTSStream)
			d.logger.Warn("chunk_synthesis_failed",
				"seq", chunk.Seq, "reason", string(errorsx.ReasonTTSStream), "error", err.Error())
			_ = d.out.WriteChunkError(chunk.Seq, wrapped)
			return
		}
		for frame := range stream {
			if wErr := d.out.WriteAudioFrame(frame); wErr != nil {
				d.logger.Debug("audio_frame_write_failed",
					"seq", chunk.Seq, "error", wErr.Error())
				return
			}
		}
		_ = d.out.WriteAudioEnd(chunk.Seq)
	}()
}

// Wait blocks until every dispatched chunk has been delivered or the
// dispatcher was cancelled.
func (d *Dispatcher) Wait() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for d.inFlight > 0 {
		d.cond.Wait()
	}
}

// waitTurn blocks until all lower-sequence chunks finished writing.
// Returns false when the dispatcher was cancelled.
func (d *Dispatcher) waitTurn(seq int) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for d.next != seq && !d.cancelled {
		d.cond.Wait()
	}
	return !d.cancelled
}

func (d *Dispatcher) advance(seq int) {
	d.mu.Lock()
	if seq >= d.next {
		d.next = seq + 1
	}
	d.inFlight--
	d.mu.Unlock()
	d.cond.Broadcast()
}

func (d *Dispatcher) watchCancel(ctx context.Context) {
	d.cancelWatch.Do(func() {
		go func() {
			<-ctx.Done()
			d.mu.Lock()
			d.cancelled = true
			d.mu.Unlock()
			d.cond.Broadcast()
		}()
	})
}
