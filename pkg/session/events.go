package session

// Server→client event types.
const (
	EventConnected     = "connected"
	EventStatus        = "status"
	EventTranscript    = "transcript"
	EventResponseChunk = "response_chunk"
	EventAudioEnd      = "audio_end"
	EventResponse      = "response"
	EventError         = "error"
)

// Event is one typed JSON message sent to the client. Binary audio
// frames travel out-of-band as raw websocket binary messages.
type Event struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
	Text    string `json:"text,omitempty"`
}

// ConnectedEvent acknowledges a new session. ConversationID is null
// when the conversation record could not be created; the session still
// runs, with context assembly and persistence skipped.
type ConnectedEvent struct {
	Type           string  `json:"type"`
	ThreadID       string  `json:"thread_id"`
	ConversationID *string `json:"conversation_id"`
}
