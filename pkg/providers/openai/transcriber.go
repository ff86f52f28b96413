package openai

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

type TranscriberConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// Transcriber sends one utterance to the audio transcriptions endpoint
// and returns the plain-text transcript.
type Transcriber struct {
	cfg    TranscriberConfig
	client *http.Client
}

func NewTranscriber(cfg TranscriberConfig) *Transcriber {
	if cfg.Model == "" {
		cfg.Model = "whisper-1"
	}
	return &Transcriber{cfg: cfg, client: httpClient(nil, cfg.Timeout)}
}

func (t *Transcriber) Name() string { return "openai_transcriber" }

func (t *Transcriber) Transcribe(ctx context.Context, audio []byte) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "utterance.webm")
	if err != nil {
		return "", err
	}
	if _, err := part.Write(audio); err != nil {
		return "", err
	}
	if err := writer.WriteField("model", t.cfg.Model); err != nil {
		return "", err
	}
	if err := writer.WriteField("response_format", "text"); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		baseURL(t.cfg.BaseURL)+"/audio/transcriptions", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+t.cfg.APIKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := t.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", statusError(resp)
	}
	var sb strings.Builder
	if _, err := io.Copy(&sb, resp.Body); err != nil {
		return "", err
	}
	return strings.TrimSpace(sb.String()), nil
}
