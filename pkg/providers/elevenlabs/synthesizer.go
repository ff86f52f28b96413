// Package elevenlabs implements the TTS contract on the ElevenLabs
// streaming speech endpoint.
package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/harunnryd/voxa/pkg/logging"
)

const defaultBaseURL = "https://api.elevenlabs.io"

type Config struct {
	APIKey  string
	VoiceID string
	ModelID string
	BaseURL string
	Timeout time.Duration
}

type Synthesizer struct {
	cfg    Config
	client *http.Client
	logger *slog.Logger
}

const audioFrameSize = 1024

func New(cfg Config) (*Synthesizer, error) {
	if cfg.APIKey == "" || cfg.VoiceID == "" {
		return nil, errors.New("missing elevenlabs config")
	}
	if cfg.ModelID == "" {
		cfg.ModelID = "eleven_turbo_v2_5"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &Synthesizer{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logging.NewComponentLogger(slog.Default(), "elevenlabs_tts"),
	}, nil
}

func (s *Synthesizer) Name() string { return "elevenlabs_tts" }

func (s *Synthesizer) Synthesize(ctx context.Context, text string) (<-chan []byte, error) {
	payload := map[string]any{
		"text":     text,
		"model_id": s.cfg.ModelID,
		"voice_settings": map[string]any{
			"stability":        0.5,
			"similarity_boost": 0.8,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	url := s.cfg.BaseURL + "/v1/text-to-speech/" + s.cfg.VoiceID + "/stream"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", s.cfg.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		s.logger.Error("elevenlabs_synthesis_failed", "status", resp.Status)
		return nil, errors.New("elevenlabs: " + resp.Status)
	}

	out := make(chan []byte, 64)
	go func() {
		defer resp.Body.Close()
		defer close(out)
		for {
			buf := make([]byte, audioFrameSize)
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
