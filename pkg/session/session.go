// Package session owns one client connection: its dispatch loop, turn
// handling, and the ordered delivery of text and audio back to the
// client.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/harunnryd/voxa/pkg/adapters/stt"
	"github.com/harunnryd/voxa/pkg/adapters/tts"
	"github.com/harunnryd/voxa/pkg/contextbuilder"
	"github.com/harunnryd/voxa/pkg/contextcache"
	"github.com/harunnryd/voxa/pkg/errorsx"
	"github.com/harunnryd/voxa/pkg/history"
	"github.com/harunnryd/voxa/pkg/llm"
	"github.com/harunnryd/voxa/pkg/redact"
	"github.com/harunnryd/voxa/pkg/store"
	"github.com/harunnryd/voxa/pkg/synth"
)

// Conn is the message-oriented channel of one client. Satisfied by
// *websocket.Conn.
type Conn interface {
	ReadMessage() (messageType int, data []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Config tunes per-session behavior.
type Config struct {
	HistoryCapacity  int
	ChunkMinFlush    int
	SynthConcurrency int
	AssistantName    string
	BasePrompt       string
}

const defaultBasePrompt = "You are a helpful voice assistant. Keep spoken answers concise."

func (c Config) withDefaults() Config {
	if c.HistoryCapacity <= 0 {
		c.HistoryCapacity = history.DefaultCapacity
	}
	if c.ChunkMinFlush <= 0 {
		c.ChunkMinFlush = DefaultMinFlush
	}
	if c.SynthConcurrency <= 0 {
		c.SynthConcurrency = synth.DefaultConcurrency
	}
	if c.AssistantName == "" {
		c.AssistantName = "Assistant"
	}
	if c.BasePrompt == "" {
		c.BasePrompt = defaultBasePrompt
	}
	return c
}

// Deps are the shared collaborators of every session.
type Deps struct {
	Store       store.Store
	Cache       *contextcache.Cache
	Builder     *contextbuilder.Builder
	Transcriber stt.Transcriber
	Streamer    llm.Streamer
	Synthesizer tts.Synthesizer
	Logger      *slog.Logger
}

// Session is one live connection and its conversational state. All
// per-session state lives here; nothing is shared across sessions
// except the context cache and the store.
type Session struct {
	id             string
	conn           Conn
	cfg            Config
	deps           Deps
	conversationID string
	hist           *history.History
	dispatcher     *synth.Dispatcher
	logger         *slog.Logger
	startedAt      time.Time

	writeMu sync.Mutex
	seq     int
}

func New(conn Conn, cfg Config, deps Deps) *Session {
	cfg = cfg.withDefaults()
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	id := fmt.Sprintf("session_%s_%d", uuid.NewString(), time.Now().Unix())
	return &Session{
		id:        id,
		conn:      conn,
		cfg:       cfg,
		deps:      deps,
		hist:      history.New(cfg.HistoryCapacity),
		logger:    deps.Logger.With(slog.String("session_id", id)),
		startedAt: time.Now(),
	}
}

func (s *Session) ID() string { return s.id }

// Run drives the session until disconnect. It creates the conversation
// record, acknowledges the client, then handles one inbound utterance
// at a time. Per-turn failures are reported and do not end the session;
// only a transport failure does.
func (s *Session) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer s.teardown()

	s.createConversation(ctx)
	s.dispatcher = synth.NewDispatcher(s.deps.Synthesizer, s, s.cfg.SynthConcurrency, s.logger)

	if err := s.sendJSON(ConnectedEvent{
		Type:           EventConnected,
		ThreadID:       s.id,
		ConversationID: optional(s.conversationID),
	}); err != nil {
		return
	}
	s.logger.Info("session_connected", "conversation_id", s.conversationID)

	for {
		msgType, data, err := s.conn.ReadMessage()
		if err != nil {
			s.logger.Info("session_disconnected",
				"error", errorsx.Wrap(err, errorsx.ReasonConnectionLost).Error())
			return
		}
		switch msgType {
		case websocket.BinaryMessage:
			if err := s.handleUtterance(ctx, data); err != nil {
				s.logger.Error("turn_failed",
					"reason", string(errorsx.Reason(err)), "error", err.Error())
				if sendErr := s.sendEvent(EventError, "Error: "+err.Error(), ""); sendErr != nil {
					return
				}
			}
		default:
			// The protocol carries only binary utterances inbound.
			s.logger.Warn("unsupported_message_type",
				"reason", string(errorsx.ReasonProtocol), "message_type", msgType)
			if sendErr := s.sendEvent(EventError, "unsupported message type", ""); sendErr != nil {
				return
			}
		}
	}
}

// handleUtterance runs one turn: transcribe, stream the reply in
// chunks, synthesize audio in order, then record and persist the turn.
func (s *Session) handleUtterance(ctx context.Context, audio []byte) error {
	if err := s.sendEvent(EventStatus, "Transcribing...", ""); err != nil {
		return errorsx.Wrap(err, errorsx.ReasonConnectionLost)
	}

	transcript, err := s.deps.Transcriber.Transcribe(ctx, audio)
	if err != nil {
		return errorsx.Wrap(err, errorsx.ReasonTranscriptionFailed)
	}
	if strings.TrimSpace(transcript) == "" {
		s.logger.Info("transcript_empty",
			"reason", string(errorsx.ReasonTranscriptionEmpty), "audio_bytes", len(audio))
		return s.sendEvent(EventError, "No speech detected. Please try again.", "")
	}
	s.logger.Info("user_transcript", "text", redact.Text(transcript))

	if err := s.sendEvent(EventTranscript, "", transcript); err != nil {
		return errorsx.Wrap(err, errorsx.ReasonConnectionLost)
	}
	if err := s.sendEvent(EventStatus, s.cfg.AssistantName+" is thinking...", ""); err != nil {
		return errorsx.Wrap(err, errorsx.ReasonConnectionLost)
	}

	userContent := s.augmentWithContext(ctx, transcript)
	messages := s.buildMessages(ctx, userContent)

	replyText, err := s.streamReply(ctx, messages)
	s.dispatcher.Wait()
	if err != nil {
		return err
	}
	s.logger.Info("assistant_reply", "text", redact.Text(replyText))

	s.hist.Append(history.RoleUser, userContent)
	s.hist.Append(history.RoleAssistant, replyText)
	s.persistTurn(transcript, replyText)

	if err := s.sendEvent(EventResponse, "", replyText); err != nil {
		return errorsx.Wrap(err, errorsx.ReasonConnectionLost)
	}
	return s.sendEvent(EventStatus, "Ready", "")
}

// streamReply drives the completion stream through the chunk buffer,
// emitting each flushed chunk as text and queueing it for synthesis.
func (s *Session) streamReply(ctx context.Context, messages []llm.Message) (string, error) {
	deltas, err := s.deps.Streamer.Stream(ctx, messages)
	if err != nil {
		return "", errorsx.Wrap(err, errorsx.ReasonLLMStream)
	}

	var full strings.Builder
	ch := newChunker(s.cfg.ChunkMinFlush)
	for delta := range deltas {
		full.WriteString(delta)
		if text, ok := ch.add(delta); ok {
			if err := s.emitChunk(ctx, text); err != nil {
				return full.String(), err
			}
		}
	}
	if text, ok := ch.flushRemainder(); ok {
		if err := s.emitChunk(ctx, text); err != nil {
			return full.String(), err
		}
	}
	return full.String(), nil
}

func (s *Session) emitChunk(ctx context.Context, text string) error {
	s.seq++
	if err := s.sendEvent(EventResponseChunk, "", text); err != nil {
		return errorsx.Wrap(err, errorsx.ReasonConnectionLost)
	}
	s.dispatcher.Dispatch(ctx, synth.Chunk{Seq: s.seq, Text: text})
	return nil
}

// augmentWithContext prepends cached or freshly assembled
// past-conversation context. Sessions without a conversation record
// skip context entirely.
func (s *Session) augmentWithContext(ctx context.Context, transcript string) string {
	if s.conversationID == "" {
		return transcript
	}
	contextText, ok := s.deps.Cache.Get(s.conversationID, transcript)
	if !ok {
		maxConversations, err := s.deps.Store.MaxContextConversations(ctx)
		if err != nil {
			s.logger.Warn("max_context_lookup_failed",
				"reason", string(errorsx.ReasonStoreQuery), "error", err.Error())
			maxConversations = store.DefaultMaxContextConversations
		}
		contextText, err = s.deps.Builder.Build(ctx, s.conversationID, transcript, maxConversations)
		if err != nil {
			s.logger.Warn("context_build_failed",
				"reason", string(errorsx.ReasonStoreQuery), "error", err.Error())
			return transcript
		}
		s.deps.Cache.Put(s.conversationID, transcript, contextText)
	}
	if contextText == "" {
		return transcript
	}
	return contextText + "\n\nCurrent question: " + transcript
}

func (s *Session) buildMessages(ctx context.Context, userContent string) []llm.Message {
	system := s.cfg.BasePrompt
	if personality, ok, err := s.deps.Store.ActivePersonality(ctx); err != nil {
		s.logger.Warn("active_personality_lookup_failed", "error", err.Error())
	} else if ok {
		system = contextbuilder.Instructions(personality, s.cfg.BasePrompt)
	}

	turns := s.hist.Turns()
	messages := make([]llm.Message, 0, len(turns)+2)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: system})
	for _, turn := range turns {
		messages = append(messages, llm.Message{Role: string(turn.Role), Content: turn.Content})
	}
	return append(messages, llm.Message{Role: llm.RoleUser, Content: userContent})
}

// persistTurn writes both turns fire-and-forget; failures are logged,
// never surfaced to the client.
func (s *Session) persistTurn(transcript, replyText string) {
	if s.conversationID == "" {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if _, err := s.deps.Store.AddMessage(ctx, s.conversationID, "user", transcript); err != nil {
			s.logger.Error("persist_user_message_failed",
				"reason", string(errorsx.ReasonPersistence), "error", err.Error())
		}
		if _, err := s.deps.Store.AddMessage(ctx, s.conversationID, "assistant", replyText); err != nil {
			s.logger.Error("persist_assistant_message_failed",
				"reason", string(errorsx.ReasonPersistence), "error", err.Error())
		}
	}()
}

// createConversation requests a conversation record. Failure is
// non-fatal: the session continues without context or persistence.
func (s *Session) createConversation(ctx context.Context) {
	title := "Conversation " + time.Now().Format("2006-01-02 15:04")
	conv, err := s.deps.Store.CreateConversation(ctx, s.id, title, "")
	if err != nil {
		s.logger.Warn("conversation_create_failed",
			"reason", string(errorsx.ReasonPersistence), "error", err.Error())
		return
	}
	s.conversationID = conv.ID
}

func (s *Session) teardown() {
	if s.conversationID != "" {
		convID := s.conversationID
		duration := time.Since(s.startedAt)
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := s.deps.Store.EndConversation(ctx, convID, duration); err != nil {
				s.logger.Warn("conversation_end_failed", "error", err.Error())
			}
		}()
	}
	_ = s.conn.Close()
	s.logger.Info("session_closed", "duration", time.Since(s.startedAt).String())
}

// WriteAudioFrame implements synth.Sink.
func (s *Session) WriteAudioFrame(frame []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteMessage(websocket.BinaryMessage, frame)
}

// WriteAudioEnd implements synth.Sink.
func (s *Session) WriteAudioEnd(seq int) error {
	return s.sendJSON(Event{Type: EventAudioEnd})
}

// WriteChunkError implements synth.Sink.
func (s *Session) WriteChunkError(seq int, err error) error {
	return s.sendEvent(EventError,
		fmt.Sprintf("Speech synthesis failed for chunk %d", seq), "")
}

func (s *Session) sendEvent(eventType, message, text string) error {
	return s.sendJSON(Event{Type: eventType, Message: message, Text: text})
}

func (s *Session) sendJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
