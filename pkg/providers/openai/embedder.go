package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"
)

type EmbedderConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// Embedder calls the embeddings endpoint one text at a time.
type Embedder struct {
	cfg    EmbedderConfig
	client *http.Client
}

func NewEmbedder(cfg EmbedderConfig) *Embedder {
	if cfg.Model == "" {
		cfg.Model = "text-embedding-3-small"
	}
	return &Embedder{cfg: cfg, client: httpClient(nil, cfg.Timeout)}
}

func (e *Embedder) Name() string { return "openai_embeddings" }

func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	payload := map[string]any{
		"model": e.cfg.Model,
		"input": text,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		baseURL(e.cfg.BaseURL)+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.cfg.APIKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, statusError(resp)
	}

	var parsed struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	if len(parsed.Data) == 0 {
		return nil, errors.New("embeddings response carried no data")
	}
	return parsed.Data[0].Embedding, nil
}
