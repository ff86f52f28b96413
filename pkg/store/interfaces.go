package store

import (
	"context"
	"time"
)

// Conversations persists conversations and their messages.
type Conversations interface {
	CreateConversation(ctx context.Context, threadID, title, description string) (Conversation, error)
	Conversation(ctx context.Context, id string) (Conversation, error)
	// RecentConversations returns up to limit conversations ordered by
	// started-at descending, optionally including archived ones.
	RecentConversations(ctx context.Context, limit int, includeArchived bool) ([]Conversation, error)
	SearchConversations(ctx context.Context, query string, limit int) ([]Conversation, error)
	ArchiveConversation(ctx context.Context, id string) error
	DeleteConversation(ctx context.Context, id string) error
	UpdateConversationTitle(ctx context.Context, id, title string) error
	SetConversationTags(ctx context.Context, id string, tags []string) error
	EndConversation(ctx context.Context, id string, duration time.Duration) error
	// ImportConversation records a conversation that happened elsewhere,
	// keeping the provided started-at and message timestamps.
	ImportConversation(ctx context.Context, conv Conversation, messages []Message) (Conversation, error)
	AddMessage(ctx context.Context, conversationID, role, content string) (Message, error)
	// Messages returns all messages of a conversation ordered by timestamp.
	Messages(ctx context.Context, conversationID string) ([]Message, error)
}

// Personalities persists assistant personas. Activation is exclusive.
type Personalities interface {
	CreatePersonality(ctx context.Context, p Personality) (Personality, error)
	Personalities(ctx context.Context) ([]Personality, error)
	Personality(ctx context.Context, id string) (Personality, error)
	UpdatePersonality(ctx context.Context, id string, p Personality) (Personality, error)
	ActivatePersonality(ctx context.Context, id string) error
	// ActivePersonality returns the active persona, or ok=false when none is.
	ActivePersonality(ctx context.Context) (Personality, bool, error)
}

// Reports persists uploaded documents and their embedded chunks.
// Deleting a report removes its chunks as well.
type Reports interface {
	CreateReport(ctx context.Context, r Report) (Report, error)
	Reports(ctx context.Context, limit int) ([]Report, error)
	Report(ctx context.Context, id string) (Report, error)
	DeleteReport(ctx context.Context, id string) error
	UpdateReportStatus(ctx context.Context, id, status string) error
	CreateReportChunk(ctx context.Context, c ReportChunk) (ReportChunk, error)
	// ReportChunks returns a report's chunks ordered by chunk index.
	ReportChunks(ctx context.Context, reportID string) ([]ReportChunk, error)
	DeleteReportChunks(ctx context.Context, reportID string) error
}

// Settings persists operator-tunable system settings.
type Settings interface {
	ReferenceFrequency(ctx context.Context) (ReferenceFrequency, error)
	SetReferenceFrequency(ctx context.Context, f ReferenceFrequency) error
	MaxContextConversations(ctx context.Context) (int, error)
	SetMaxContextConversations(ctx context.Context, count int) error
}

// Store is the full persistence surface.
type Store interface {
	Conversations
	Personalities
	Reports
	Settings
}
