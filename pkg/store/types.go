// Package store defines the persistence types and contracts for
// conversations, messages, personalities, reports, and system settings.
package store

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// Conversation is one recorded voice conversation.
type Conversation struct {
	ID              string
	ThreadID        string
	Title           string
	Description     string
	Tags            []string
	StartedAt       time.Time
	EndedAt         *time.Time
	DurationSeconds int
	Archived        bool
}

// Message is one persisted turn of a conversation, ordered by timestamp.
type Message struct {
	ID             string
	ConversationID string
	Role           string
	Content        string
	AudioURL       string
	Timestamp      time.Time
}

// SpeakingStyle tunes how an assistant personality talks.
type SpeakingStyle struct {
	Tone      string `json:"tone"`
	Pace      string `json:"pace"`
	Formality string `json:"formality"`
}

// Personality is a configurable assistant persona. At most one is active.
type Personality struct {
	ID               string
	Name             string
	Instructions     string
	SpeakingStyle    SpeakingStyle
	KnowledgeDomains []string
	Active           bool
	Version          int
	CreatedAt        time.Time
}

// Report is an uploaded document with its extracted plain text.
type Report struct {
	ID            string
	Title         string
	Description   string
	Tags          []string
	Status        string
	ContentText   string
	FileType      string
	FileSizeBytes int64
	CreatedAt     time.Time
}

// Report statuses.
const (
	ReportStatusPending   = "pending"
	ReportStatusProcessed = "processed"
	ReportStatusFailed    = "failed"
)

// ReportChunk is one embedded slice of a report, ordered by ChunkIndex.
// Metadata fields are best-effort extractions from the chunk text.
type ReportChunk struct {
	ID         string
	ReportID   string
	ChunkIndex int
	Content    string
	TokenCount int
	Company    string
	Section    string
	Abstract   string
	FastFacts  []string
	Quote      string
	Embedding  []float32
	CreatedAt  time.Time
}

// ReferenceFrequency controls how often past-conversation context is
// injected into a live turn.
type ReferenceFrequency struct {
	Level  string  `json:"level"`
	Weight float64 `json:"weight"`
}

// Reference frequency levels, in increasing inclusion probability.
const (
	LevelNever     = "never"
	LevelRarely    = "rarely"
	LevelSometimes = "sometimes"
	LevelOften     = "often"
	LevelAlways    = "always"
)

// DefaultReferenceFrequency is used until an operator changes it.
var DefaultReferenceFrequency = ReferenceFrequency{Level: LevelSometimes, Weight: 0.5}

// DefaultMaxContextConversations bounds how many recent conversations the
// context assembler considers.
const DefaultMaxContextConversations = 5

func (f ReferenceFrequency) Validate() error {
	switch f.Level {
	case LevelNever, LevelRarely, LevelSometimes, LevelOften, LevelAlways:
	default:
		return fmt.Errorf("invalid reference frequency level %q", f.Level)
	}
	if f.Weight < 0 || f.Weight > 1 {
		return fmt.Errorf("reference frequency weight must be in [0,1], got %v", f.Weight)
	}
	return nil
}
