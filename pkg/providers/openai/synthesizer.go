package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"
)

type SynthesizerConfig struct {
	APIKey         string
	Model          string
	Voice          string
	ResponseFormat string
	BaseURL        string
	Timeout        time.Duration
}

// Synthesizer streams synthesized speech from the audio speech endpoint.
type Synthesizer struct {
	cfg    SynthesizerConfig
	client *http.Client
}

const speechFrameSize = 1024

func NewSynthesizer(cfg SynthesizerConfig) *Synthesizer {
	if cfg.Model == "" {
		cfg.Model = "tts-1"
	}
	if cfg.Voice == "" {
		cfg.Voice = "onyx"
	}
	if cfg.ResponseFormat == "" {
		cfg.ResponseFormat = "mp3"
	}
	return &Synthesizer{cfg: cfg, client: httpClient(nil, cfg.Timeout)}
}

func (s *Synthesizer) Name() string { return "openai_tts" }

func (s *Synthesizer) Synthesize(ctx context.Context, text string) (<-chan []byte, error) {
	payload := map[string]any{
		"model":           s.cfg.Model,
		"voice":           s.cfg.Voice,
		"input":           text,
		"response_format": s.cfg.ResponseFormat,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		baseURL(s.cfg.BaseURL)+"/audio/speech", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := statusError(resp)
		resp.Body.Close()
		return nil, err
	}

	out := make(chan []byte, 64)
	go func() {
		defer resp.Body.Close()
		defer close(out)
		for {
			buf := make([]byte, speechFrameSize)
			n, err := resp.Body.Read(buf)
			if n > 0 {
				select {
				case <-ctx.Done():
					return
				case out <- buf[:n]:
				}
			}
			if err != nil {
				return
			}
		}
	}()
	return out, nil
}
