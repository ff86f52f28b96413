package errorsx

// ReasonCode is a short machine-readable error reason.
type ReasonCode string

const (
	ReasonUnknown ReasonCode = "unknown"

	ReasonTranscriptionEmpty  ReasonCode = "transcription_empty"
	ReasonTranscriptionFailed ReasonCode = "transcription_failed"

	ReasonLLMStream ReasonCode = "llm_stream"
	ReasonTTSStream ReasonCode = "tts_stream"

	ReasonPersistence ReasonCode = "persistence"
	ReasonStoreQuery  ReasonCode = "store_query"

	ReasonProtocol       ReasonCode = "protocol"
	ReasonConnectionLost ReasonCode = "connection_lost"
)
