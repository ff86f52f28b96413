// Package memory provides an in-memory store for development and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/harunnryd/voxa/pkg/store"
)

type Store struct {
	mu            sync.Mutex
	conversations map[string]store.Conversation
	messages      map[string][]store.Message
	personalities map[string]store.Personality
	reports       map[string]store.Report
	chunks        map[string][]store.ReportChunk
	refFrequency  store.ReferenceFrequency
	maxContext    int
	now           func() time.Time
}

func New() *Store {
	return &Store{
		conversations: make(map[string]store.Conversation),
		messages:      make(map[string][]store.Message),
		personalities: make(map[string]store.Personality),
		reports:       make(map[string]store.Report),
		chunks:        make(map[string][]store.ReportChunk),
		refFrequency:  store.DefaultReferenceFrequency,
		maxContext:    store.DefaultMaxContextConversations,
		now:           time.Now,
	}
}

// SetClock overrides the time source, for tests.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Store) CreateConversation(ctx context.Context, threadID, title, description string) (store.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv := store.Conversation{
		ID:          uuid.NewString(),
		ThreadID:    threadID,
		Title:       title,
		Description: description,
		StartedAt:   s.now(),
	}
	s.conversations[conv.ID] = conv
	return conv, nil
}

func (s *Store) Conversation(ctx context.Context, id string) (store.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.conversations[id]
	if !ok {
		return store.Conversation{}, store.ErrNotFound
	}
	return conv, nil
}

func (s *Store) RecentConversations(ctx context.Context, limit int, includeArchived bool) ([]store.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]store.Conversation, 0, len(s.conversations))
	for _, conv := range s.conversations {
		if !includeArchived && conv.Archived {
			continue
		}
		out = append(out, conv)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) SearchConversations(ctx context.Context, query string, limit int) ([]store.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	query = strings.ToLower(query)
	out := make([]store.Conversation, 0)
	for _, conv := range s.conversations {
		if conv.Archived {
			continue
		}
		if strings.Contains(strings.ToLower(conv.Title), query) {
			out = append(out, conv)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) ArchiveConversation(ctx context.Context, id string) error {
	return s.updateConversation(id, func(conv *store.Conversation) {
		conv.Archived = true
	})
}

func (s *Store) DeleteConversation(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.conversations[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.conversations, id)
	delete(s.messages, id)
	return nil
}

func (s *Store) UpdateConversationTitle(ctx context.Context, id, title string) error {
	return s.updateConversation(id, func(conv *store.Conversation) {
		conv.Title = title
	})
}

func (s *Store) SetConversationTags(ctx context.Context, id string, tags []string) error {
	return s.updateConversation(id, func(conv *store.Conversation) {
		conv.Tags = append([]string(nil), tags...)
	})
}

func (s *Store) EndConversation(ctx context.Context, id string, duration time.Duration) error {
	return s.updateConversation(id, func(conv *store.Conversation) {
		ended := s.now()
		conv.EndedAt = &ended
		conv.DurationSeconds = int(duration.Seconds())
	})
}

func (s *Store) ImportConversation(ctx context.Context, conv store.Conversation, messages []store.Message) (store.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv.ID = uuid.NewString()
	if conv.StartedAt.IsZero() {
		conv.StartedAt = s.now()
	}
	s.conversations[conv.ID] = conv
	for _, msg := range messages {
		msg.ID = uuid.NewString()
		msg.ConversationID = conv.ID
		if msg.Timestamp.IsZero() {
			msg.Timestamp = s.now()
		}
		s.messages[conv.ID] = append(s.messages[conv.ID], msg)
	}
	return conv, nil
}

func (s *Store) AddMessage(ctx context.Context, conversationID, role, content string) (store.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.conversations[conversationID]; !ok {
		return store.Message{}, store.ErrNotFound
	}
	msg := store.Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		Timestamp:      s.now(),
	}
	s.messages[conversationID] = append(s.messages[conversationID], msg)
	return msg, nil
}

func (s *Store) Messages(ctx context.Context, conversationID string) ([]store.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := s.messages[conversationID]
	out := make([]store.Message, len(msgs))
	copy(out, msgs)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out, nil
}

func (s *Store) CreatePersonality(ctx context.Context, p store.Personality) (store.Personality, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.Active {
		s.deactivateAllLocked()
	}
	p.ID = uuid.NewString()
	p.Version = 1
	p.CreatedAt = s.now()
	s.personalities[p.ID] = p
	return p, nil
}

func (s *Store) Personalities(ctx context.Context) ([]store.Personality, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]store.Personality, 0, len(s.personalities))
	for _, p := range s.personalities {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) Personality(ctx context.Context, id string) (store.Personality, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.personalities[id]
	if !ok {
		return store.Personality{}, store.ErrNotFound
	}
	return p, nil
}

func (s *Store) UpdatePersonality(ctx context.Context, id string, p store.Personality) (store.Personality, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.personalities[id]
	if !ok {
		return store.Personality{}, store.ErrNotFound
	}
	existing.Name = p.Name
	existing.Instructions = p.Instructions
	existing.SpeakingStyle = p.SpeakingStyle
	existing.KnowledgeDomains = append([]string(nil), p.KnowledgeDomains...)
	existing.Version++
	s.personalities[id] = existing
	return existing, nil
}

func (s *Store) ActivatePersonality(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.personalities[id]
	if !ok {
		return store.ErrNotFound
	}
	s.deactivateAllLocked()
	p.Active = true
	s.personalities[id] = p
	return nil
}

func (s *Store) ActivePersonality(ctx context.Context) (store.Personality, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.personalities {
		if p.Active {
			return p, true, nil
		}
	}
	return store.Personality{}, false, nil
}

func (s *Store) CreateReport(ctx context.Context, r store.Report) (store.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r.ID = uuid.NewString()
	r.CreatedAt = s.now()
	if r.Status == "" {
		r.Status = store.ReportStatusPending
	}
	s.reports[r.ID] = r
	return r, nil
}

func (s *Store) Reports(ctx context.Context, limit int) ([]store.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]store.Report, 0, len(s.reports))
	for _, r := range s.reports {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) Report(ctx context.Context, id string) (store.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reports[id]
	if !ok {
		return store.Report{}, store.ErrNotFound
	}
	return r, nil
}

func (s *Store) DeleteReport(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reports[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.reports, id)
	delete(s.chunks, id)
	return nil
}

func (s *Store) CreateReportChunk(ctx context.Context, c store.ReportChunk) (store.ReportChunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reports[c.ReportID]; !ok {
		return store.ReportChunk{}, store.ErrNotFound
	}
	c.ID = uuid.NewString()
	c.CreatedAt = s.now()
	s.chunks[c.ReportID] = append(s.chunks[c.ReportID], c)
	return c, nil
}

func (s *Store) ReportChunks(ctx context.Context, reportID string) ([]store.ReportChunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]store.ReportChunk(nil), s.chunks[reportID]...)
	sort.Slice(out, func(i, j int) bool {
		return out[i].ChunkIndex < out[j].ChunkIndex
	})
	return out, nil
}

func (s *Store) DeleteReportChunks(ctx context.Context, reportID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.chunks, reportID)
	return nil
}

func (s *Store) UpdateReportStatus(ctx context.Context, id, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reports[id]
	if !ok {
		return store.ErrNotFound
	}
	r.Status = status
	s.reports[id] = r
	return nil
}

func (s *Store) ReferenceFrequency(ctx context.Context) (store.ReferenceFrequency, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refFrequency, nil
}

func (s *Store) SetReferenceFrequency(ctx context.Context, f store.ReferenceFrequency) error {
	if err := f.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refFrequency = f
	return nil
}

func (s *Store) MaxContextConversations(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxContext, nil
}

func (s *Store) SetMaxContextConversations(ctx context.Context, count int) error {
	if count < 0 {
		return fmt.Errorf("max context count must be non-negative, got %d", count)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.maxContext = count
	return nil
}

func (s *Store) updateConversation(id string, apply func(*store.Conversation)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.conversations[id]
	if !ok {
		return store.ErrNotFound
	}
	apply(&conv)
	s.conversations[id] = conv
	return nil
}

func (s *Store) deactivateAllLocked() {
	for id, p := range s.personalities {
		if p.Active {
			p.Active = false
			s.personalities[id] = p
		}
	}
}

var _ store.Store = (*Store)(nil)
