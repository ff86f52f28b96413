// Package contextbuilder assembles excerpts from past conversations to
// prepend to a live user turn. Inclusion is a sampling policy, not a
// retrieval ranker: a per-turn random draw decides whether any past
// context is injected at all.
package contextbuilder

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sort"
	"strings"

	"github.com/harunnryd/voxa/pkg/store"
)

// ConversationSource is the slice of the record store the builder reads.
type ConversationSource interface {
	RecentConversations(ctx context.Context, limit int, includeArchived bool) ([]store.Conversation, error)
	Messages(ctx context.Context, conversationID string) ([]store.Message, error)
}

// SettingsSource exposes the operator-tunable reference frequency.
type SettingsSource interface {
	ReferenceFrequency(ctx context.Context) (store.ReferenceFrequency, error)
}

const (
	headerBanner = "--- Context from Past Conversations ---"
	footerBanner = "--- End of Past Conversation Context ---"

	minMessageLen    = 10
	minKeywordLen    = 3
	maxRendered      = 3
	maxRelevant      = 5
	turnsPerExcerpt  = 4
	excerptCharLimit = 200
)

var levelProbabilities = map[string]float64{
	store.LevelNever:     0.0,
	store.LevelRarely:    0.2,
	store.LevelSometimes: 0.5,
	store.LevelOften:     0.8,
	store.LevelAlways:    1.0,
}

type Builder struct {
	conversations ConversationSource
	settings      SettingsSource
	random        func() float64
	logger        *slog.Logger
}

func New(conversations ConversationSource, settings SettingsSource, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{
		conversations: conversations,
		settings:      settings,
		random:        rand.Float64,
		logger:        logger,
	}
}

// SetRandom overrides the randomness source so tests can force
// deterministic inclusion or exclusion.
func (b *Builder) SetRandom(fn func() float64) {
	if fn != nil {
		b.random = fn
	}
}

// Build returns a context block excerpted from up to maxConversations
// recent conversations, or "" when the draw excludes context this turn.
func (b *Builder) Build(ctx context.Context, currentConversationID, userMessage string, maxConversations int) (string, error) {
	freq, err := b.settings.ReferenceFrequency(ctx)
	if err != nil {
		return "", err
	}
	if !b.shouldInclude(freq) {
		return "", nil
	}

	recent, err := b.conversations.RecentConversations(ctx, maxConversations, false)
	if err != nil {
		return "", err
	}
	candidates := recent[:0:0]
	for _, conv := range recent {
		if conv.ID != currentConversationID {
			candidates = append(candidates, conv)
		}
	}
	if len(candidates) == 0 {
		return "", nil
	}

	relevant := filterRelevant(candidates, userMessage)
	if len(relevant) == 0 {
		return "", nil
	}

	parts := []string{"\n" + headerBanner}
	for _, conv := range relevant[:min(maxRendered, len(relevant))] {
		msgs, err := b.conversations.Messages(ctx, conv.ID)
		if err != nil {
			b.logger.Warn("context_messages_fetch_failed",
				"conversation_id", conv.ID, "error", err.Error())
			continue
		}
		if len(msgs) == 0 {
			continue
		}
		title := conv.Title
		if title == "" {
			title = "Untitled"
		}
		parts = append(parts, fmt.Sprintf("\nPast conversation: '%s' (from %s)",
			title, conv.StartedAt.Format("2006-01-02")))
		start := len(msgs) - turnsPerExcerpt
		if start < 0 {
			start = 0
		}
		for _, msg := range msgs[start:] {
			speaker := "You"
			if msg.Role == "user" {
				speaker = "User"
			}
			parts = append(parts, fmt.Sprintf("  %s: %s", speaker, truncate(msg.Content, excerptCharLimit)))
		}
	}
	parts = append(parts, "\n"+footerBanner+"\n")
	return strings.Join(parts, "\n"), nil
}

func (b *Builder) shouldInclude(freq store.ReferenceFrequency) bool {
	if freq.Level == store.LevelNever || freq.Weight == 0 {
		return false
	}
	base, ok := levelProbabilities[freq.Level]
	if !ok {
		base = levelProbabilities[store.LevelSometimes]
	}
	return b.random() < base*freq.Weight
}

// filterRelevant scores candidates by keyword overlap with the user
// message: +3 per keyword in the title, +2 in the description, +2 per
// matching tag. Short or unscoreable messages fall back to recency.
func filterRelevant(candidates []store.Conversation, userMessage string) []store.Conversation {
	if len(userMessage) < minMessageLen {
		return head(candidates, maxRendered)
	}
	keywords := keywordSet(userMessage)
	if len(keywords) == 0 {
		return head(candidates, maxRendered)
	}

	type scored struct {
		score int
		conv  store.Conversation
	}
	scoredList := make([]scored, 0, len(candidates))
	for _, conv := range candidates {
		scoredList = append(scoredList, scored{score: scoreConversation(keywords, conv), conv: conv})
	}
	// Stable sort keeps recency order among equal scores.
	sort.SliceStable(scoredList, func(i, j int) bool {
		return scoredList[i].score > scoredList[j].score
	})

	relevant := make([]store.Conversation, 0, len(scoredList))
	for _, sc := range scoredList {
		if sc.score > 0 {
			relevant = append(relevant, sc.conv)
		}
	}
	if len(relevant) == 0 {
		return head(candidates, maxRendered)
	}
	return head(relevant, maxRelevant)
}

// Score exposes the keyword score of one conversation for a message.
func Score(conv store.Conversation, userMessage string) int {
	return scoreConversation(keywordSet(userMessage), conv)
}

func scoreConversation(keywords map[string]struct{}, conv store.Conversation) int {
	title := strings.ToLower(conv.Title)
	description := strings.ToLower(conv.Description)
	score := 0
	for kw := range keywords {
		if strings.Contains(title, kw) {
			score += 3
		}
		if strings.Contains(description, kw) {
			score += 2
		}
		for _, tag := range conv.Tags {
			if strings.Contains(strings.ToLower(tag), kw) {
				score += 2
			}
		}
	}
	return score
}

func keywordSet(message string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, word := range strings.Fields(strings.ToLower(message)) {
		if len(word) > minKeywordLen {
			out[word] = struct{}{}
		}
	}
	return out
}

func head(convs []store.Conversation, n int) []store.Conversation {
	if len(convs) > n {
		return convs[:n]
	}
	return convs
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
