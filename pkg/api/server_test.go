package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/harunnryd/voxa/pkg/embed"
	"github.com/harunnryd/voxa/pkg/providers/mock"
	"github.com/harunnryd/voxa/pkg/session"
	"github.com/harunnryd/voxa/pkg/store"
	"github.com/harunnryd/voxa/pkg/store/memory"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(st store.Store, pipeline *embed.Pipeline) *Server {
	return NewServer("127.0.0.1:0", st, session.Config{}, session.Deps{}, pipeline, testLogger())
}

func TestImportConversationEndpoint(t *testing.T) {
	st := memory.New()
	srv := newTestServer(st, nil)

	body := `{
		"thread_id": "imported_42",
		"title": "Migrated chat",
		"started_at": "2024-03-15T09:30:00Z",
		"messages": [
			{"role": "user", "content": "hello", "timestamp": "2024-03-15T09:31:00Z"},
			{"role": "assistant", "content": "hi there", "timestamp": "2024-03-15T09:32:00Z"},
			{"content": ""}
		]
	}`
	req := httptest.NewRequest(http.MethodPost, "/api/conversations/import", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Conversation struct {
			ID        string    `json:"id"`
			ThreadID  string    `json:"thread_id"`
			Title     string    `json:"title"`
			StartedAt time.Time `json:"started_at"`
		} `json:"conversation"`
		ImportedMessages int `json:"imported_messages"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Conversation.ThreadID != "imported_42" || resp.Conversation.Title != "Migrated chat" {
		t.Fatalf("conversation = %+v", resp.Conversation)
	}
	wantStart := time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)
	if !resp.Conversation.StartedAt.Equal(wantStart) {
		t.Fatalf("started_at = %v, want %v", resp.Conversation.StartedAt, wantStart)
	}
	if resp.ImportedMessages != 2 {
		t.Fatalf("imported_messages = %d, want 2 (empty content skipped)", resp.ImportedMessages)
	}

	msgs, err := st.Messages(context.Background(), resp.Conversation.ID)
	if err != nil {
		t.Fatalf("messages: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("persisted messages = %d, want 2", len(msgs))
	}
	if !msgs[0].Timestamp.Equal(wantStart.Add(time.Minute)) {
		t.Fatalf("first message timestamp = %v", msgs[0].Timestamp)
	}
}

func TestImportConversationDefaults(t *testing.T) {
	st := memory.New()
	srv := newTestServer(st, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/conversations/import", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Conversation struct {
			ThreadID string `json:"thread_id"`
			Title    string `json:"title"`
		} `json:"conversation"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if !strings.HasPrefix(resp.Conversation.ThreadID, "imported_") {
		t.Fatalf("thread_id = %q", resp.Conversation.ThreadID)
	}
	if resp.Conversation.Title != "Imported Conversation" {
		t.Fatalf("title = %q", resp.Conversation.Title)
	}
}

func uploadRequest(t *testing.T, content string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", "quarterly.txt")
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := w.WriteField("title", "Acme - Quarterly"); err != nil {
		t.Fatalf("write field: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/reports", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestUploadReportRunsEmbeddingPipeline(t *testing.T) {
	st := memory.New()
	pipeline := embed.NewPipeline(&mock.Embedder{Vector: []float32{0.5}}, st, testLogger())
	srv := newTestServer(st, pipeline)

	content := "Acme Corp posted record results this quarter with revenue growth accelerating across every segment."
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, uploadRequest(t, content))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var created struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if created.Status != store.ReportStatusPending {
		t.Fatalf("status = %q, want %q", created.Status, store.ReportStatusPending)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		report, err := st.Report(context.Background(), created.ID)
		if err != nil {
			t.Fatalf("report: %v", err)
		}
		if report.Status == store.ReportStatusProcessed {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("report stuck in status %q", report.Status)
		}
		time.Sleep(10 * time.Millisecond)
	}

	chunksReq := httptest.NewRequest(http.MethodGet, "/api/reports/"+created.ID+"/chunks", nil)
	chunksRec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(chunksRec, chunksReq)
	if chunksRec.Code != http.StatusOK {
		t.Fatalf("chunks status = %d", chunksRec.Code)
	}
	var chunksResp struct {
		Chunks []struct {
			ChunkIndex int    `json:"chunk_index"`
			Content    string `json:"content"`
			Company    string `json:"company"`
		} `json:"chunks"`
	}
	if err := json.Unmarshal(chunksRec.Body.Bytes(), &chunksResp); err != nil {
		t.Fatalf("unmarshal chunks: %v", err)
	}
	if len(chunksResp.Chunks) != 1 {
		t.Fatalf("chunks = %d, want 1", len(chunksResp.Chunks))
	}
	if chunksResp.Chunks[0].Content != content {
		t.Fatalf("chunk content = %q", chunksResp.Chunks[0].Content)
	}
	if chunksResp.Chunks[0].Company != "Acme" {
		t.Fatalf("company = %q", chunksResp.Chunks[0].Company)
	}
}

func TestUploadReportWithoutPipelineCompletesImmediately(t *testing.T) {
	st := memory.New()
	srv := newTestServer(st, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, uploadRequest(t, "plain report text without embeddings configured at all"))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var created struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if created.Status != store.ReportStatusProcessed {
		t.Fatalf("status = %q, want %q", created.Status, store.ReportStatusProcessed)
	}
}
