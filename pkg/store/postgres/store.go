// Package postgres implements the record store on PostgreSQL via pgx.
package postgres

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/harunnryd/voxa/pkg/store"
)

//go:embed migrations/*.sql
var migrations embed.FS

type Store struct {
	pool *pgxpool.Pool
}

// New connects to the database and runs pending migrations.
func New(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := migrate(pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

func migrate(pool *pgxpool.Pool) error {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.Up(db, "migrations")
}

const conversationColumns = "id, thread_id, title, description, tags, started_at, ended_at, duration_seconds, archived"

func (s *Store) CreateConversation(ctx context.Context, threadID, title, description string) (store.Conversation, error) {
	conv := store.Conversation{
		ID:          uuid.NewString(),
		ThreadID:    threadID,
		Title:       title,
		Description: description,
		Tags:        []string{},
		StartedAt:   time.Now().UTC(),
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO conversations (id, thread_id, title, description, tags, started_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		conv.ID, conv.ThreadID, conv.Title, conv.Description, conv.Tags, conv.StartedAt)
	if err != nil {
		return store.Conversation{}, err
	}
	return conv, nil
}

func (s *Store) Conversation(ctx context.Context, id string) (store.Conversation, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+conversationColumns+` FROM conversations WHERE id = $1`, id)
	return scanConversation(row)
}

func (s *Store) RecentConversations(ctx context.Context, limit int, includeArchived bool) ([]store.Conversation, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+conversationColumns+` FROM conversations
		 WHERE ($1 OR NOT archived)
		 ORDER BY started_at DESC LIMIT $2`,
		includeArchived, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectConversations(rows)
}

func (s *Store) SearchConversations(ctx context.Context, query string, limit int) ([]store.Conversation, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+conversationColumns+` FROM conversations
		 WHERE NOT archived AND title ILIKE '%' || $1 || '%'
		 ORDER BY started_at DESC LIMIT $2`,
		query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectConversations(rows)
}

func (s *Store) ArchiveConversation(ctx context.Context, id string) error {
	return s.execOne(ctx, `UPDATE conversations SET archived = TRUE WHERE id = $1`, id)
}

func (s *Store) DeleteConversation(ctx context.Context, id string) error {
	return s.execOne(ctx, `DELETE FROM conversations WHERE id = $1`, id)
}

func (s *Store) UpdateConversationTitle(ctx context.Context, id, title string) error {
	return s.execOne(ctx, `UPDATE conversations SET title = $2 WHERE id = $1`, id, title)
}

func (s *Store) SetConversationTags(ctx context.Context, id string, tags []string) error {
	if tags == nil {
		tags = []string{}
	}
	return s.execOne(ctx, `UPDATE conversations SET tags = $2 WHERE id = $1`, id, tags)
}

func (s *Store) EndConversation(ctx context.Context, id string, duration time.Duration) error {
	return s.execOne(ctx,
		`UPDATE conversations SET ended_at = $2, duration_seconds = $3 WHERE id = $1`,
		id, time.Now().UTC(), int(duration.Seconds()))
}

func (s *Store) ImportConversation(ctx context.Context, conv store.Conversation, messages []store.Message) (store.Conversation, error) {
	conv.ID = uuid.NewString()
	if conv.StartedAt.IsZero() {
		conv.StartedAt = time.Now().UTC()
	}
	if conv.Tags == nil {
		conv.Tags = []string{}
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return store.Conversation{}, err
	}
	defer tx.Rollback(ctx)
	_, err = tx.Exec(ctx,
		`INSERT INTO conversations (id, thread_id, title, description, tags, started_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		conv.ID, conv.ThreadID, conv.Title, conv.Description, conv.Tags, conv.StartedAt)
	if err != nil {
		return store.Conversation{}, err
	}
	for _, msg := range messages {
		ts := msg.Timestamp
		if ts.IsZero() {
			ts = time.Now().UTC()
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO messages (id, conversation_id, role, content, ts)
			 VALUES ($1, $2, $3, $4, $5)`,
			uuid.NewString(), conv.ID, msg.Role, msg.Content, ts)
		if err != nil {
			return store.Conversation{}, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return store.Conversation{}, err
	}
	return conv, nil
}

func (s *Store) AddMessage(ctx context.Context, conversationID, role, content string) (store.Message, error) {
	msg := store.Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		Timestamp:      time.Now().UTC(),
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO messages (id, conversation_id, role, content, ts)
		 VALUES ($1, $2, $3, $4, $5)`,
		msg.ID, msg.ConversationID, msg.Role, msg.Content, msg.Timestamp)
	if err != nil {
		return store.Message{}, err
	}
	return msg, nil
}

func (s *Store) Messages(ctx context.Context, conversationID string) ([]store.Message, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, conversation_id, role, content, audio_url, ts
		 FROM messages WHERE conversation_id = $1 ORDER BY ts`,
		conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []store.Message
	for rows.Next() {
		var m store.Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &m.AudioURL, &m.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

const personalityColumns = "id, name, instructions, tone, pace, formality, knowledge_domains, active, version, created_at"

func (s *Store) CreatePersonality(ctx context.Context, p store.Personality) (store.Personality, error) {
	p.ID = uuid.NewString()
	p.Version = 1
	p.CreatedAt = time.Now().UTC()
	if p.KnowledgeDomains == nil {
		p.KnowledgeDomains = []string{}
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return store.Personality{}, err
	}
	defer tx.Rollback(ctx)
	if p.Active {
		if _, err := tx.Exec(ctx, `UPDATE personalities SET active = FALSE WHERE active`); err != nil {
			return store.Personality{}, err
		}
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO personalities (id, name, instructions, tone, pace, formality, knowledge_domains, active, version, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		p.ID, p.Name, p.Instructions, p.SpeakingStyle.Tone, p.SpeakingStyle.Pace, p.SpeakingStyle.Formality,
		p.KnowledgeDomains, p.Active, p.Version, p.CreatedAt)
	if err != nil {
		return store.Personality{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return store.Personality{}, err
	}
	return p, nil
}

func (s *Store) Personalities(ctx context.Context) ([]store.Personality, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+personalityColumns+` FROM personalities ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []store.Personality
	for rows.Next() {
		p, err := scanPersonality(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) Personality(ctx context.Context, id string) (store.Personality, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+personalityColumns+` FROM personalities WHERE id = $1`, id)
	return scanPersonality(row)
}

func (s *Store) UpdatePersonality(ctx context.Context, id string, p store.Personality) (store.Personality, error) {
	if p.KnowledgeDomains == nil {
		p.KnowledgeDomains = []string{}
	}
	row := s.pool.QueryRow(ctx,
		`UPDATE personalities
		 SET name = $2, instructions = $3, tone = $4, pace = $5, formality = $6,
		     knowledge_domains = $7, version = version + 1
		 WHERE id = $1
		 RETURNING `+personalityColumns,
		id, p.Name, p.Instructions, p.SpeakingStyle.Tone, p.SpeakingStyle.Pace,
		p.SpeakingStyle.Formality, p.KnowledgeDomains)
	return scanPersonality(row)
}

func (s *Store) ActivatePersonality(ctx context.Context, id string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)
	if _, err := tx.Exec(ctx, `UPDATE personalities SET active = FALSE WHERE active`); err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, `UPDATE personalities SET active = TRUE WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return tx.Commit(ctx)
}

func (s *Store) ActivePersonality(ctx context.Context) (store.Personality, bool, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+personalityColumns+` FROM personalities WHERE active LIMIT 1`)
	p, err := scanPersonality(row)
	if errors.Is(err, store.ErrNotFound) {
		return store.Personality{}, false, nil
	}
	if err != nil {
		return store.Personality{}, false, err
	}
	return p, true, nil
}

func (s *Store) CreateReport(ctx context.Context, r store.Report) (store.Report, error) {
	r.ID = uuid.NewString()
	r.CreatedAt = time.Now().UTC()
	if r.Status == "" {
		r.Status = store.ReportStatusPending
	}
	if r.Tags == nil {
		r.Tags = []string{}
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO reports (id, title, description, tags, status, content_text, file_type, file_size_bytes, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		r.ID, r.Title, r.Description, r.Tags, r.Status, r.ContentText, r.FileType, r.FileSizeBytes, r.CreatedAt)
	if err != nil {
		return store.Report{}, err
	}
	return r, nil
}

func (s *Store) Reports(ctx context.Context, limit int) ([]store.Report, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, title, description, tags, status, content_text, file_type, file_size_bytes, created_at
		 FROM reports ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []store.Report
	for rows.Next() {
		var r store.Report
		if err := rows.Scan(&r.ID, &r.Title, &r.Description, &r.Tags, &r.Status,
			&r.ContentText, &r.FileType, &r.FileSizeBytes, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) Report(ctx context.Context, id string) (store.Report, error) {
	var r store.Report
	err := s.pool.QueryRow(ctx,
		`SELECT id, title, description, tags, status, content_text, file_type, file_size_bytes, created_at
		 FROM reports WHERE id = $1`, id).
		Scan(&r.ID, &r.Title, &r.Description, &r.Tags, &r.Status,
			&r.ContentText, &r.FileType, &r.FileSizeBytes, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return store.Report{}, store.ErrNotFound
	}
	if err != nil {
		return store.Report{}, err
	}
	return r, nil
}

func (s *Store) DeleteReport(ctx context.Context, id string) error {
	return s.execOne(ctx, `DELETE FROM reports WHERE id = $1`, id)
}

func (s *Store) UpdateReportStatus(ctx context.Context, id, status string) error {
	return s.execOne(ctx, `UPDATE reports SET status = $2 WHERE id = $1`, id, status)
}

const chunkColumns = "id, report_id, chunk_index, content, token_count, company, section, abstract, fast_facts, quote, embedding, created_at"

func (s *Store) CreateReportChunk(ctx context.Context, c store.ReportChunk) (store.ReportChunk, error) {
	c.ID = uuid.NewString()
	c.CreatedAt = time.Now().UTC()
	if c.FastFacts == nil {
		c.FastFacts = []string{}
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO report_chunks (`+chunkColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		c.ID, c.ReportID, c.ChunkIndex, c.Content, c.TokenCount,
		c.Company, c.Section, c.Abstract, c.FastFacts, c.Quote, c.Embedding, c.CreatedAt)
	if err != nil {
		return store.ReportChunk{}, err
	}
	return c, nil
}

func (s *Store) ReportChunks(ctx context.Context, reportID string) ([]store.ReportChunk, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+chunkColumns+` FROM report_chunks WHERE report_id = $1 ORDER BY chunk_index`,
		reportID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []store.ReportChunk
	for rows.Next() {
		var c store.ReportChunk
		if err := rows.Scan(&c.ID, &c.ReportID, &c.ChunkIndex, &c.Content, &c.TokenCount,
			&c.Company, &c.Section, &c.Abstract, &c.FastFacts, &c.Quote, &c.Embedding, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) DeleteReportChunks(ctx context.Context, reportID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM report_chunks WHERE report_id = $1`, reportID)
	return err
}

const (
	settingReferenceFrequency = "reference_frequency"
	settingMaxContext         = "max_context_conversations"
)

func (s *Store) ReferenceFrequency(ctx context.Context) (store.ReferenceFrequency, error) {
	var f store.ReferenceFrequency
	ok, err := s.getSetting(ctx, settingReferenceFrequency, &f)
	if err != nil {
		return store.ReferenceFrequency{}, err
	}
	if !ok {
		return store.DefaultReferenceFrequency, nil
	}
	return f, nil
}

func (s *Store) SetReferenceFrequency(ctx context.Context, f store.ReferenceFrequency) error {
	if err := f.Validate(); err != nil {
		return err
	}
	return s.putSetting(ctx, settingReferenceFrequency, f)
}

func (s *Store) MaxContextConversations(ctx context.Context) (int, error) {
	var v struct {
		Count int `json:"count"`
	}
	ok, err := s.getSetting(ctx, settingMaxContext, &v)
	if err != nil {
		return 0, err
	}
	if !ok {
		return store.DefaultMaxContextConversations, nil
	}
	return v.Count, nil
}

func (s *Store) SetMaxContextConversations(ctx context.Context, count int) error {
	if count < 0 {
		return fmt.Errorf("max context count must be non-negative, got %d", count)
	}
	return s.putSetting(ctx, settingMaxContext, map[string]int{"count": count})
}

func (s *Store) getSetting(ctx context.Context, key string, out any) (bool, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT value FROM system_settings WHERE key = $1`, key).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, json.Unmarshal(raw, out)
}

func (s *Store) putSetting(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO system_settings (key, value) VALUES ($1, $2)
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`,
		key, raw)
	return err
}

func (s *Store) execOne(ctx context.Context, sql string, args ...any) error {
	tag, err := s.pool.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConversation(row rowScanner) (store.Conversation, error) {
	var c store.Conversation
	err := row.Scan(&c.ID, &c.ThreadID, &c.Title, &c.Description, &c.Tags,
		&c.StartedAt, &c.EndedAt, &c.DurationSeconds, &c.Archived)
	if errors.Is(err, pgx.ErrNoRows) {
		return store.Conversation{}, store.ErrNotFound
	}
	if err != nil {
		return store.Conversation{}, err
	}
	return c, nil
}

func collectConversations(rows pgx.Rows) ([]store.Conversation, error) {
	var out []store.Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanPersonality(row rowScanner) (store.Personality, error) {
	var p store.Personality
	err := row.Scan(&p.ID, &p.Name, &p.Instructions, &p.SpeakingStyle.Tone,
		&p.SpeakingStyle.Pace, &p.SpeakingStyle.Formality, &p.KnowledgeDomains,
		&p.Active, &p.Version, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return store.Personality{}, store.ErrNotFound
	}
	if err != nil {
		return store.Personality{}, err
	}
	return p, nil
}

var _ store.Store = (*Store)(nil)
