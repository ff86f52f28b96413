package voxa

import (
	"fmt"
	"strings"

	"github.com/harunnryd/voxa/pkg/adapters/embeddings"
	"github.com/harunnryd/voxa/pkg/adapters/stt"
	"github.com/harunnryd/voxa/pkg/adapters/tts"
	"github.com/harunnryd/voxa/pkg/llm"
)

type STTFactory func(cfg Config) (stt.Transcriber, error)
type TTSFactory func(cfg Config) (tts.Synthesizer, error)
type LLMFactory func(cfg Config) (llm.Streamer, error)
type EmbedderFactory func(cfg Config) (embeddings.Embedder, error)

type ProviderRegistry struct {
	stt      map[string]STTFactory
	tts      map[string]TTSFactory
	llm      map[string]LLMFactory
	embedder map[string]EmbedderFactory
}

func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{
		stt:      make(map[string]STTFactory),
		tts:      make(map[string]TTSFactory),
		llm:      make(map[string]LLMFactory),
		embedder: make(map[string]EmbedderFactory),
	}
}

func (r *ProviderRegistry) RegisterSTT(name string, factory STTFactory) {
	r.stt[strings.ToLower(strings.TrimSpace(name))] = factory
}

func (r *ProviderRegistry) RegisterTTS(name string, factory TTSFactory) {
	r.tts[strings.ToLower(strings.TrimSpace(name))] = factory
}

func (r *ProviderRegistry) RegisterLLM(name string, factory LLMFactory) {
	r.llm[strings.ToLower(strings.TrimSpace(name))] = factory
}

func (r *ProviderRegistry) RegisterEmbedder(name string, factory EmbedderFactory) {
	r.embedder[strings.ToLower(strings.TrimSpace(name))] = factory
}

func (r *ProviderRegistry) BuildSTT(provider string, cfg Config) (stt.Transcriber, error) {
	fn := r.stt[strings.ToLower(strings.TrimSpace(provider))]
	if fn == nil {
		return nil, fmt.Errorf("stt provider not registered: %s", provider)
	}
	return fn(cfg)
}

func (r *ProviderRegistry) BuildTTS(provider string, cfg Config) (tts.Synthesizer, error) {
	fn := r.tts[strings.ToLower(strings.TrimSpace(provider))]
	if fn == nil {
		return nil, fmt.Errorf("tts provider not registered: %s", provider)
	}
	return fn(cfg)
}

func (r *ProviderRegistry) BuildLLM(provider string, cfg Config) (llm.Streamer, error) {
	fn := r.llm[strings.ToLower(strings.TrimSpace(provider))]
	if fn == nil {
		return nil, fmt.Errorf("llm provider not registered: %s", provider)
	}
	return fn(cfg)
}

func (r *ProviderRegistry) BuildEmbedder(provider string, cfg Config) (embeddings.Embedder, error) {
	fn := r.embedder[strings.ToLower(strings.TrimSpace(provider))]
	if fn == nil {
		return nil, fmt.Errorf("embeddings provider not registered: %s", provider)
	}
	return fn(cfg)
}
