package memory

import (
	"context"
	"testing"
	"time"

	"github.com/harunnryd/voxa/pkg/store"
)

func TestRecentConversationsOrderAndArchiveFilter(t *testing.T) {
	s := New()
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	tick := 0
	s.SetClock(func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	})

	first, _ := s.CreateConversation(ctx, "t-1", "first", "")
	second, _ := s.CreateConversation(ctx, "t-2", "second", "")
	third, _ := s.CreateConversation(ctx, "t-3", "third", "")

	if err := s.ArchiveConversation(ctx, second.ID); err != nil {
		t.Fatalf("archive: %v", err)
	}

	recent, err := s.RecentConversations(ctx, 10, false)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("expected 2 non-archived conversations, got %d", len(recent))
	}
	if recent[0].ID != third.ID || recent[1].ID != first.ID {
		t.Fatalf("expected newest-first ordering, got %s then %s", recent[0].Title, recent[1].Title)
	}
}

func TestMessagesOrderedByTimestamp(t *testing.T) {
	s := New()
	ctx := context.Background()
	conv, _ := s.CreateConversation(ctx, "t-1", "chat", "")

	if _, err := s.AddMessage(ctx, conv.ID, "user", "hello"); err != nil {
		t.Fatalf("add message: %v", err)
	}
	if _, err := s.AddMessage(ctx, conv.ID, "assistant", "hi there"); err != nil {
		t.Fatalf("add message: %v", err)
	}

	msgs, err := s.Messages(ctx, conv.ID)
	if err != nil {
		t.Fatalf("messages: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].Role != "user" || msgs[1].Role != "assistant" {
		t.Fatalf("expected timestamp ordering, got %s then %s", msgs[0].Role, msgs[1].Role)
	}
}

func TestImportConversationKeepsTimestamps(t *testing.T) {
	s := New()
	ctx := context.Background()

	started := time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)
	conv, err := s.ImportConversation(ctx, store.Conversation{
		ThreadID:  "imported_1",
		Title:     "Old chat",
		StartedAt: started,
	}, []store.Message{
		{Role: "user", Content: "hello", Timestamp: started.Add(time.Minute)},
		{Role: "assistant", Content: "hi", Timestamp: started.Add(2 * time.Minute)},
	})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if !conv.StartedAt.Equal(started) {
		t.Fatalf("started_at = %v, want %v", conv.StartedAt, started)
	}

	msgs, err := s.Messages(ctx, conv.ID)
	if err != nil {
		t.Fatalf("messages: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if !msgs[0].Timestamp.Equal(started.Add(time.Minute)) {
		t.Fatalf("first message timestamp = %v", msgs[0].Timestamp)
	}
	if msgs[0].Role != "user" || msgs[1].Role != "assistant" {
		t.Fatalf("message order lost: %s then %s", msgs[0].Role, msgs[1].Role)
	}
}

func TestReportChunksRoundTrip(t *testing.T) {
	s := New()
	ctx := context.Background()

	report, err := s.CreateReport(ctx, store.Report{Title: "Q2", ContentText: "body"})
	if err != nil {
		t.Fatalf("create report: %v", err)
	}
	for _, idx := range []int{1, 0} {
		if _, err := s.CreateReportChunk(ctx, store.ReportChunk{
			ReportID:   report.ID,
			ChunkIndex: idx,
			Content:    "chunk",
			Embedding:  []float32{0.1},
		}); err != nil {
			t.Fatalf("create chunk %d: %v", idx, err)
		}
	}

	chunks, err := s.ReportChunks(ctx, report.ID)
	if err != nil {
		t.Fatalf("chunks: %v", err)
	}
	if len(chunks) != 2 || chunks[0].ChunkIndex != 0 || chunks[1].ChunkIndex != 1 {
		t.Fatalf("expected chunks ordered by index, got %+v", chunks)
	}

	if err := s.DeleteReport(ctx, report.ID); err != nil {
		t.Fatalf("delete report: %v", err)
	}
	chunks, err = s.ReportChunks(ctx, report.ID)
	if err != nil {
		t.Fatalf("chunks after delete: %v", err)
	}
	if len(chunks) != 0 {
		t.Fatalf("chunks survived report deletion: %d", len(chunks))
	}

	if _, err := s.CreateReportChunk(ctx, store.ReportChunk{ReportID: "missing"}); err != store.ErrNotFound {
		t.Fatalf("expected ErrNotFound for missing report, got %v", err)
	}
}

func TestActivatePersonalityIsExclusive(t *testing.T) {
	s := New()
	ctx := context.Background()

	a, _ := s.CreatePersonality(ctx, store.Personality{Name: "calm", Active: true})
	b, _ := s.CreatePersonality(ctx, store.Personality{Name: "energetic"})

	if err := s.ActivatePersonality(ctx, b.ID); err != nil {
		t.Fatalf("activate: %v", err)
	}
	active, ok, err := s.ActivePersonality(ctx)
	if err != nil || !ok {
		t.Fatalf("active personality: ok=%v err=%v", ok, err)
	}
	if active.ID != b.ID {
		t.Fatalf("expected %s active, got %s", b.Name, active.Name)
	}
	refetched, _ := s.Personality(ctx, a.ID)
	if refetched.Active {
		t.Fatalf("expected previous personality deactivated")
	}
}

func TestSettingsValidation(t *testing.T) {
	s := New()
	ctx := context.Background()

	if err := s.SetReferenceFrequency(ctx, store.ReferenceFrequency{Level: "loud", Weight: 0.5}); err == nil {
		t.Fatalf("expected invalid level rejected")
	}
	if err := s.SetReferenceFrequency(ctx, store.ReferenceFrequency{Level: store.LevelOften, Weight: 1.5}); err == nil {
		t.Fatalf("expected out-of-range weight rejected")
	}
	if err := s.SetReferenceFrequency(ctx, store.ReferenceFrequency{Level: store.LevelAlways, Weight: 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, _ := s.ReferenceFrequency(ctx)
	if got.Level != store.LevelAlways || got.Weight != 1 {
		t.Fatalf("unexpected setting: %+v", got)
	}
}
