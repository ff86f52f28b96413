package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/harunnryd/voxa/pkg/api"
	"github.com/harunnryd/voxa/pkg/contextbuilder"
	"github.com/harunnryd/voxa/pkg/contextcache"
	"github.com/harunnryd/voxa/pkg/embed"
	"github.com/harunnryd/voxa/pkg/logging"
	"github.com/harunnryd/voxa/pkg/redact"
	"github.com/harunnryd/voxa/pkg/runner"
	"github.com/harunnryd/voxa/pkg/session"
	"github.com/harunnryd/voxa/pkg/store"
	"github.com/harunnryd/voxa/pkg/store/memory"
	"github.com/harunnryd/voxa/pkg/store/postgres"
	"github.com/harunnryd/voxa/pkg/voxa"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := voxa.LoadConfig(*configPath)
	if err != nil {
		slog.Error("config_load_failed", "path", *configPath, "error", err.Error())
		os.Exit(1)
	}

	logger := logging.Init(cfg.LogLevel, cfg.LogFormat)
	redact.SetEnabled(cfg.Privacy.RedactPII)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, cleanup, err := buildStore(ctx, cfg)
	if err != nil {
		logger.Error("store_init_failed", "driver", cfg.Store.Driver, "error", err.Error())
		os.Exit(1)
	}
	defer cleanup()

	cache, err := contextcache.New(cfg.Cache.Capacity)
	if err != nil {
		logger.Error("cache_init_failed", "error", err.Error())
		os.Exit(1)
	}
	builder := contextbuilder.New(st, st, logging.NewComponentLogger(logger, "contextbuilder"))

	providers := voxa.NewProviderRegistry()
	registerProviders(providers)

	transcriber, err := providers.BuildSTT(cfg.Vendors.STT.Provider, cfg)
	if err != nil {
		logger.Error("stt_provider_unavailable", "error", err.Error())
		os.Exit(1)
	}
	synthesizer, err := providers.BuildTTS(cfg.Vendors.TTS.Provider, cfg)
	if err != nil {
		logger.Error("tts_provider_unavailable", "error", err.Error())
		os.Exit(1)
	}
	streamer, err := providers.BuildLLM(cfg.Vendors.LLM.Provider, cfg)
	if err != nil {
		logger.Error("llm_provider_unavailable", "error", err.Error())
		os.Exit(1)
	}
	logger.Info("providers_ready",
		"stt", transcriber.Name(), "tts", synthesizer.Name(), "llm", streamer.Name())

	var pipeline *embed.Pipeline
	if provider := cfg.Vendors.Embeddings.Provider; provider != "" {
		embedder, err := providers.BuildEmbedder(provider, cfg)
		if err != nil {
			logger.Error("embeddings_provider_unavailable", "error", err.Error())
			os.Exit(1)
		}
		pipeline = embed.NewPipeline(embedder, st, logging.NewComponentLogger(logger, "embed"))
		logger.Info("embeddings_ready", "provider", embedder.Name())
	}

	sessionCfg := session.Config{
		HistoryCapacity:  cfg.Session.HistoryCapacity,
		ChunkMinFlush:    cfg.Session.ChunkMinFlush,
		SynthConcurrency: cfg.Session.SynthConcurrency,
		AssistantName:    cfg.Session.AssistantName,
		BasePrompt:       cfg.BasePrompt,
	}
	deps := session.Deps{
		Store:       st,
		Cache:       cache,
		Builder:     builder,
		Transcriber: transcriber,
		Streamer:    streamer,
		Synthesizer: synthesizer,
		Logger:      logging.NewComponentLogger(logger, "session"),
	}

	server := api.NewServer(cfg.Server.Addr, st, sessionCfg, deps, pipeline,
		logging.NewComponentLogger(logger, "api"))

	lifecycle := runner.New(server, runner.Hooks{
		OnStart: func() { logger.Info("voxa_starting", "addr", cfg.Server.Addr, "env", cfg.Environment) },
		OnStop:  func() { logger.Info("voxa_stopped") },
	})
	if err := lifecycle.Run(ctx); err != nil {
		logger.Error("server_exited", "error", err.Error())
		os.Exit(1)
	}
}

func buildStore(ctx context.Context, cfg voxa.Config) (store.Store, func(), error) {
	switch cfg.Store.Driver {
	case "postgres":
		initCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		pg, err := postgres.New(initCtx, cfg.Store.DSN)
		if err != nil {
			return nil, nil, err
		}
		return pg, pg.Close, nil
	default:
		return memory.New(), func() {}, nil
	}
}
