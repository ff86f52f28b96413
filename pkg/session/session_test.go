package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"

	"github.com/harunnryd/voxa/pkg/contextbuilder"
	"github.com/harunnryd/voxa/pkg/contextcache"
	"github.com/harunnryd/voxa/pkg/errorsx"
	"github.com/harunnryd/voxa/pkg/llm"
	"github.com/harunnryd/voxa/pkg/providers/mock"
	"github.com/harunnryd/voxa/pkg/store/memory"
	"github.com/harunnryd/voxa/pkg/synth"
)

type wireMessage struct {
	messageType int
	data        []byte
}

// fakeConn scripts inbound messages and records everything written.
type fakeConn struct {
	mu      sync.Mutex
	inbound []wireMessage
	writes  []wireMessage
	closed  bool
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.inbound) == 0 {
		return 0, nil, errors.New("connection reset")
	}
	msg := c.inbound[0]
	c.inbound = c.inbound[1:]
	return msg.messageType, msg.data, nil
}

func (c *fakeConn) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes = append(c.writes, wireMessage{messageType, append([]byte(nil), data...)})
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) events(t *testing.T) []Event {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []Event
	for _, msg := range c.writes {
		if msg.messageType != websocket.TextMessage {
			continue
		}
		var ev Event
		if err := json.Unmarshal(msg.data, &ev); err != nil {
			t.Fatalf("unmarshal event %q: %v", msg.data, err)
		}
		out = append(out, ev)
	}
	return out
}

func (c *fakeConn) binaryFrames() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for _, msg := range c.writes {
		if msg.messageType == websocket.BinaryMessage {
			out = append(out, string(msg.data))
		}
	}
	return out
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// logBuffer collects log output safely across session goroutines.
type logBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *logBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *logBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newTestSession(t *testing.T, deps Deps) (*Session, *fakeConn) {
	t.Helper()
	conn := &fakeConn{}
	if deps.Logger == nil {
		deps.Logger = testLogger()
	}
	if deps.Store == nil {
		deps.Store = memory.New()
	}
	if deps.Cache == nil {
		cache, err := contextcache.New(contextcache.DefaultCapacity)
		if err != nil {
			t.Fatalf("cache: %v", err)
		}
		deps.Cache = cache
	}
	if deps.Builder == nil {
		st := memory.New()
		builder := contextbuilder.New(st, st, deps.Logger)
		// A draw of 1.0 is never below any inclusion probability.
		builder.SetRandom(func() float64 { return 1.0 })
		deps.Builder = builder
	}
	if deps.Synthesizer == nil {
		deps.Synthesizer = &mock.Synthesizer{}
	}
	s := New(conn, Config{}, deps)
	s.dispatcher = synth.NewDispatcher(deps.Synthesizer, s, 1, s.logger)
	return s, conn
}

func TestEmptyTranscriptEmitsSingleError(t *testing.T) {
	s, conn := newTestSession(t, Deps{
		Transcriber: &mock.Transcriber{Transcript: "   "},
		Streamer:    &mock.Streamer{Deltas: []string{"should not run"}},
	})

	if err := s.handleUtterance(context.Background(), []byte("audio")); err != nil {
		t.Fatalf("handleUtterance: %v", err)
	}

	var errCount, chunkCount int
	for _, ev := range conn.events(t) {
		switch ev.Type {
		case EventError:
			errCount++
			if want := "No speech detected. Please try again."; ev.Message != want {
				t.Fatalf("error message = %q, want %q", ev.Message, want)
			}
		case EventResponseChunk, EventResponse:
			chunkCount++
		}
	}
	if errCount != 1 {
		t.Fatalf("error events = %d, want 1", errCount)
	}
	if chunkCount != 0 {
		t.Fatalf("unexpected response events after empty transcript")
	}
	if s.hist.Len() != 0 {
		t.Fatalf("history length = %d, want 0", s.hist.Len())
	}
}

func TestEmptyTranscriptLogsReason(t *testing.T) {
	logs := &logBuffer{}
	s, _ := newTestSession(t, Deps{
		Transcriber: &mock.Transcriber{Transcript: "   "},
		Streamer:    &mock.Streamer{},
		Logger:      slog.New(slog.NewTextHandler(logs, nil)),
	})

	if err := s.handleUtterance(context.Background(), []byte("audio")); err != nil {
		t.Fatalf("handleUtterance: %v", err)
	}
	if !strings.Contains(logs.String(), "transcription_empty") {
		t.Fatalf("empty transcript not logged with its reason: %s", logs.String())
	}
}

func TestTurnStreamsChunksAndAudioInOrder(t *testing.T) {
	streamer := &mock.Streamer{Deltas: []string{
		"Hello there. This is long eno",
		"ugh text to flush now.",
		" And a tail.",
	}}
	s, conn := newTestSession(t, Deps{
		Transcriber: &mock.Transcriber{Transcript: "tell me about the weather"},
		Streamer:    streamer,
	})

	if err := s.handleUtterance(context.Background(), []byte("audio")); err != nil {
		t.Fatalf("handleUtterance: %v", err)
	}

	events := conn.events(t)
	var chunks []string
	var sawTranscript, sawResponse, sawReady bool
	var audioEnds int
	for _, ev := range events {
		switch ev.Type {
		case EventTranscript:
			sawTranscript = true
			if ev.Text != "tell me about the weather" {
				t.Fatalf("transcript = %q", ev.Text)
			}
		case EventResponseChunk:
			chunks = append(chunks, ev.Text)
		case EventAudioEnd:
			audioEnds++
		case EventResponse:
			sawResponse = true
			if want := "Hello there. This is long enough text to flush now. And a tail."; ev.Text != want {
				t.Fatalf("response = %q, want %q", ev.Text, want)
			}
		case EventStatus:
			if ev.Message == "Ready" {
				sawReady = true
			}
		case EventError:
			t.Fatalf("unexpected error event: %+v", ev)
		}
	}
	if !sawTranscript || !sawResponse || !sawReady {
		t.Fatalf("missing events: transcript=%v response=%v ready=%v", sawTranscript, sawResponse, sawReady)
	}
	wantChunks := []string{
		"Hello there. This is long enough text to flush now.",
		" And a tail.",
	}
	if len(chunks) != len(wantChunks) || chunks[0] != wantChunks[0] || chunks[1] != wantChunks[1] {
		t.Fatalf("chunks = %q, want %q", chunks, wantChunks)
	}
	if audioEnds != 2 {
		t.Fatalf("audio_end events = %d, want 2", audioEnds)
	}
	frames := conn.binaryFrames()
	if len(frames) != 2 || frames[0] != wantChunks[0] || frames[1] != wantChunks[1] {
		t.Fatalf("audio frames = %q, want %q", frames, wantChunks)
	}
	if events[len(events)-1].Type != EventStatus || events[len(events)-1].Message != "Ready" {
		t.Fatalf("last event = %+v, want Ready status", events[len(events)-1])
	}

	if len(streamer.LastMessages) != 2 {
		t.Fatalf("messages sent = %d, want system + user", len(streamer.LastMessages))
	}
	if streamer.LastMessages[0].Role != llm.RoleSystem {
		t.Fatalf("first message role = %q", streamer.LastMessages[0].Role)
	}
	last := streamer.LastMessages[len(streamer.LastMessages)-1]
	if last.Role != llm.RoleUser || last.Content != "tell me about the weather" {
		t.Fatalf("last message = %+v", last)
	}
	if s.hist.Len() != 2 {
		t.Fatalf("history length = %d, want 2", s.hist.Len())
	}
}

func TestSynthesisFailureDoesNotEndTurn(t *testing.T) {
	first := "First sentence padded to exceed the threshold easily."
	second := "Second sentence padded well beyond fifty characters."
	third := "Third sentence likewise padded beyond fifty characters."
	s, conn := newTestSession(t, Deps{
		Transcriber: &mock.Transcriber{Transcript: "say three things"},
		Streamer:    &mock.Streamer{Deltas: []string{first, second, third}},
		Synthesizer: &mock.Synthesizer{FailOn: map[string]bool{second: true}},
	})

	if err := s.handleUtterance(context.Background(), []byte("audio")); err != nil {
		t.Fatalf("handleUtterance: %v", err)
	}

	frames := conn.binaryFrames()
	if len(frames) != 2 || frames[0] != first || frames[1] != third {
		t.Fatalf("audio frames = %q, want surviving chunks in order", frames)
	}
	var chunkErrors int
	var sawReady bool
	for _, ev := range conn.events(t) {
		if ev.Type == EventError {
			chunkErrors++
			if !strings.Contains(ev.Message, "chunk 2") {
				t.Fatalf("error message = %q, want reference to chunk 2", ev.Message)
			}
		}
		if ev.Type == EventStatus && ev.Message == "Ready" {
			sawReady = true
		}
	}
	if chunkErrors != 1 {
		t.Fatalf("error events = %d, want 1", chunkErrors)
	}
	if !sawReady {
		t.Fatalf("session did not return to Ready after chunk failure")
	}
}

func TestStreamFailureSurfacesReason(t *testing.T) {
	s, _ := newTestSession(t, Deps{
		Transcriber: &mock.Transcriber{Transcript: "hello out there"},
		Streamer:    &mock.Streamer{Err: errors.New("upstream hung up")},
	})

	err := s.handleUtterance(context.Background(), []byte("audio"))
	if err == nil {
		t.Fatalf("expected stream failure")
	}
	if !errorsx.HasReason(err, errorsx.ReasonLLMStream) {
		t.Fatalf("reason = %q, want %q", errorsx.Reason(err), errorsx.ReasonLLMStream)
	}
	if s.hist.Len() != 0 {
		t.Fatalf("history recorded a failed turn")
	}
}

func TestRunAcknowledgesAndIsolatesTurnErrors(t *testing.T) {
	conn := &fakeConn{inbound: []wireMessage{
		{websocket.BinaryMessage, []byte("audio")},
		{websocket.TextMessage, []byte("not allowed")},
	}}
	st := memory.New()
	cache, err := contextcache.New(contextcache.DefaultCapacity)
	if err != nil {
		t.Fatalf("cache: %v", err)
	}
	builder := contextbuilder.New(st, st, testLogger())
	builder.SetRandom(func() float64 { return 1.0 })
	logs := &logBuffer{}
	s := New(conn, Config{}, Deps{
		Store:       st,
		Cache:       cache,
		Builder:     builder,
		Transcriber: &mock.Transcriber{Err: errors.New("decoder offline")},
		Streamer:    &mock.Streamer{},
		Synthesizer: &mock.Synthesizer{},
		Logger:      slog.New(slog.NewTextHandler(logs, nil)),
	})

	s.Run(context.Background())

	events := conn.events(t)
	if len(events) == 0 {
		t.Fatalf("no events written")
	}
	conn.mu.Lock()
	var connected ConnectedEvent
	if err := json.Unmarshal(conn.writes[0].data, &connected); err != nil {
		t.Fatalf("unmarshal connected event: %v", err)
	}
	conn.mu.Unlock()
	if connected.Type != EventConnected || connected.ThreadID == "" {
		t.Fatalf("connected event = %+v", connected)
	}
	if connected.ConversationID == nil || *connected.ConversationID == "" {
		t.Fatalf("expected a conversation id from the store")
	}

	var errCount int
	for _, ev := range events {
		if ev.Type == EventError {
			errCount++
		}
	}
	// One per failed turn, one for the protocol violation.
	if errCount != 2 {
		t.Fatalf("error events = %d, want 2", errCount)
	}
	if !strings.Contains(logs.String(), "protocol") {
		t.Fatalf("text message not logged as a protocol violation: %s", logs.String())
	}
	if !conn.closed {
		t.Fatalf("connection not closed on teardown")
	}
}
