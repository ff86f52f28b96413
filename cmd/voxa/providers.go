package main

import (
	"time"

	"github.com/harunnryd/voxa/pkg/adapters/embeddings"
	"github.com/harunnryd/voxa/pkg/adapters/stt"
	"github.com/harunnryd/voxa/pkg/adapters/tts"
	"github.com/harunnryd/voxa/pkg/configutil"
	"github.com/harunnryd/voxa/pkg/llm"
	"github.com/harunnryd/voxa/pkg/providers/deepgram"
	"github.com/harunnryd/voxa/pkg/providers/elevenlabs"
	"github.com/harunnryd/voxa/pkg/providers/mock"
	"github.com/harunnryd/voxa/pkg/providers/openai"
	"github.com/harunnryd/voxa/pkg/voxa"
)

type openAISettings struct {
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	BaseURL     string  `mapstructure:"base_url"`
	Voice       string  `mapstructure:"voice"`
	Format      string  `mapstructure:"format"`
	MaxTokens   *int    `mapstructure:"max_tokens"`
	Temperature float64 `mapstructure:"temperature"`
	TimeoutMS   int     `mapstructure:"timeout_ms"`
}

type deepgramSettings struct {
	APIKey   string `mapstructure:"api_key"`
	Model    string `mapstructure:"model"`
	Language string `mapstructure:"language"`
}

type elevenlabsSettings struct {
	APIKey    string `mapstructure:"api_key"`
	VoiceID   string `mapstructure:"voice_id"`
	ModelID   string `mapstructure:"model_id"`
	TimeoutMS int    `mapstructure:"timeout_ms"`
}

type mockSettings struct {
	Transcript   string   `mapstructure:"transcript"`
	StreamChunks []string `mapstructure:"stream_chunks"`
}

func timeoutFromMS(ms int) time.Duration {
	if ms <= 0 {
		return 0
	}
	return time.Duration(ms) * time.Millisecond
}

func registerProviders(reg *voxa.ProviderRegistry) {
	reg.RegisterSTT("openai", func(cfg voxa.Config) (stt.Transcriber, error) {
		var settings openAISettings
		if err := configutil.DecodeSettings(cfg.Vendors.STT.Settings, &settings); err != nil {
			return nil, err
		}
		if err := configutil.RequireString(settings.APIKey, "vendors.stt.settings.api_key"); err != nil {
			return nil, err
		}
		return openai.NewTranscriber(openai.TranscriberConfig{
			APIKey:  settings.APIKey,
			Model:   settings.Model,
			BaseURL: settings.BaseURL,
			Timeout: timeoutFromMS(settings.TimeoutMS),
		}), nil
	})

	reg.RegisterSTT("deepgram", func(cfg voxa.Config) (stt.Transcriber, error) {
		var settings deepgramSettings
		if err := configutil.DecodeSettings(cfg.Vendors.STT.Settings, &settings); err != nil {
			return nil, err
		}
		if err := configutil.RequireString(settings.APIKey, "vendors.stt.settings.api_key"); err != nil {
			return nil, err
		}
		transcriber, err := deepgram.New(deepgram.Config{
			APIKey:   settings.APIKey,
			Model:    settings.Model,
			Language: settings.Language,
		})
		if err != nil {
			return nil, err
		}
		return transcriber, nil
	})

	reg.RegisterTTS("openai", func(cfg voxa.Config) (tts.Synthesizer, error) {
		var settings openAISettings
		if err := configutil.DecodeSettings(cfg.Vendors.TTS.Settings, &settings); err != nil {
			return nil, err
		}
		if err := configutil.RequireString(settings.APIKey, "vendors.tts.settings.api_key"); err != nil {
			return nil, err
		}
		return openai.NewSynthesizer(openai.SynthesizerConfig{
			APIKey:         settings.APIKey,
			Model:          settings.Model,
			Voice:          settings.Voice,
			ResponseFormat: settings.Format,
			BaseURL:        settings.BaseURL,
			Timeout:        timeoutFromMS(settings.TimeoutMS),
		}), nil
	})

	reg.RegisterTTS("elevenlabs", func(cfg voxa.Config) (tts.Synthesizer, error) {
		var settings elevenlabsSettings
		if err := configutil.DecodeSettings(cfg.Vendors.TTS.Settings, &settings); err != nil {
			return nil, err
		}
		if err := configutil.RequireString(settings.APIKey, "vendors.tts.settings.api_key"); err != nil {
			return nil, err
		}
		if err := configutil.RequireString(settings.VoiceID, "vendors.tts.settings.voice_id"); err != nil {
			return nil, err
		}
		synthesizer, err := elevenlabs.New(elevenlabs.Config{
			APIKey:  settings.APIKey,
			VoiceID: settings.VoiceID,
			ModelID: settings.ModelID,
			Timeout: timeoutFromMS(settings.TimeoutMS),
		})
		if err != nil {
			return nil, err
		}
		return synthesizer, nil
	})

	reg.RegisterLLM("openai", func(cfg voxa.Config) (llm.Streamer, error) {
		var settings openAISettings
		if err := configutil.DecodeSettings(cfg.Vendors.LLM.Settings, &settings); err != nil {
			return nil, err
		}
		if err := configutil.RequireString(settings.APIKey, "vendors.llm.settings.api_key"); err != nil {
			return nil, err
		}
		return openai.NewStreamer(openai.StreamerConfig{
			APIKey:      settings.APIKey,
			Model:       settings.Model,
			BaseURL:     settings.BaseURL,
			MaxTokens:   configutil.IntValue(settings.MaxTokens, 500),
			Temperature: settings.Temperature,
			Timeout:     timeoutFromMS(settings.TimeoutMS),
		}), nil
	})

	reg.RegisterEmbedder("openai", func(cfg voxa.Config) (embeddings.Embedder, error) {
		var settings openAISettings
		if err := configutil.DecodeSettings(cfg.Vendors.Embeddings.Settings, &settings); err != nil {
			return nil, err
		}
		if err := configutil.RequireString(settings.APIKey, "vendors.embeddings.settings.api_key"); err != nil {
			return nil, err
		}
		return openai.NewEmbedder(openai.EmbedderConfig{
			APIKey:  settings.APIKey,
			Model:   settings.Model,
			BaseURL: settings.BaseURL,
			Timeout: timeoutFromMS(settings.TimeoutMS),
		}), nil
	})

	reg.RegisterSTT("mock", func(cfg voxa.Config) (stt.Transcriber, error) {
		var settings mockSettings
		if err := configutil.DecodeSettings(cfg.Vendors.STT.Settings, &settings); err != nil {
			return nil, err
		}
		return &mock.Transcriber{Transcript: settings.Transcript}, nil
	})
	reg.RegisterTTS("mock", func(cfg voxa.Config) (tts.Synthesizer, error) {
		return &mock.Synthesizer{}, nil
	})
	reg.RegisterLLM("mock", func(cfg voxa.Config) (llm.Streamer, error) {
		var settings mockSettings
		if err := configutil.DecodeSettings(cfg.Vendors.LLM.Settings, &settings); err != nil {
			return nil, err
		}
		return &mock.Streamer{Deltas: settings.StreamChunks}, nil
	})
	reg.RegisterEmbedder("mock", func(cfg voxa.Config) (embeddings.Embedder, error) {
		return &mock.Embedder{}, nil
	})
}
