// Package deepgram implements the STT contract on the Deepgram
// prerecorded transcription API.
package deepgram

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"

	listenv1 "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/rest"
	interfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/interfaces"
	client "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/listen"

	"github.com/harunnryd/voxa/pkg/logging"
)

type Config struct {
	APIKey   string
	Model    string
	Language string
}

// Transcriber sends one complete utterance for prerecorded
// transcription; browser-recorded containers are detected server-side.
type Transcriber struct {
	cfg    Config
	api    *listenv1.Client
	logger *slog.Logger
}

func New(cfg Config) (*Transcriber, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("missing deepgram api key")
	}
	if cfg.Model == "" {
		cfg.Model = "nova-2"
	}
	rest := client.NewREST(cfg.APIKey, &interfaces.ClientOptions{})
	return &Transcriber{
		cfg:    cfg,
		api:    listenv1.New(rest),
		logger: logging.NewComponentLogger(slog.Default(), "deepgram_stt"),
	}, nil
}

func (t *Transcriber) Name() string { return "deepgram_prerecorded" }

func (t *Transcriber) Transcribe(ctx context.Context, audio []byte) (string, error) {
	options := &interfaces.PreRecordedTranscriptionOptions{
		Model:       t.cfg.Model,
		Language:    t.cfg.Language,
		SmartFormat: true,
	}
	res, err := t.api.FromStream(ctx, bytes.NewReader(audio), options)
	if err != nil {
		t.logger.Error("deepgram_transcription_failed", "error", err.Error())
		return "", err
	}
	if res == nil || len(res.Results.Channels) == 0 {
		return "", nil
	}
	alternatives := res.Results.Channels[0].Alternatives
	if len(alternatives) == 0 {
		return "", nil
	}
	return strings.TrimSpace(alternatives[0].Transcript), nil
}
