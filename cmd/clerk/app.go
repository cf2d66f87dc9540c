package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/MikeSquared-Agency/clerk/internal/anthropic"
	"github.com/MikeSquared-Agency/clerk/internal/config"
	"github.com/MikeSquared-Agency/clerk/internal/feedback"
	"github.com/MikeSquared-Agency/clerk/internal/gemini"
	"github.com/MikeSquared-Agency/clerk/internal/hermes"
	"github.com/MikeSquared-Agency/clerk/internal/llm"
	"github.com/MikeSquared-Agency/clerk/internal/localstore"
	"github.com/MikeSquared-Agency/clerk/internal/memory"
	"github.com/MikeSquared-Agency/clerk/internal/normalize"
	"github.com/MikeSquared-Agency/clerk/internal/openai"
	"github.com/MikeSquared-Agency/clerk/internal/processor"
	"github.com/MikeSquared-Agency/clerk/internal/prompt"
	"github.com/MikeSquared-Agency/clerk/internal/slack"
	"github.com/MikeSquared-Agency/clerk/internal/store"
)

// storage is what both database backends provide.
type storage interface {
	feedback.Repository
	processor.HistoryWriter
}

// app holds the wired components. Each command builds only the parts it
// needs; the rest stay nil.
type app struct {
	cfg    config.Config
	logger *slog.Logger

	storage     storage
	storageName string
	pg          *store.Store
	mem         *memory.Client
	events      *hermes.Client
	feedback    *feedback.Service
	provider    llm.Provider
	proc        *processor.Processor
	review      *feedback.ReviewLoop

	closers []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func (a *app) publisher() processor.Publisher {
	if a.events == nil {
		return nil
	}
	return a.events
}

// newBaseApp connects storage, memory and events. Model providers are
// added by withProcessor.
func newBaseApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	if err := a.openStorage(ctx); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.openMemory(ctx); err != nil {
		a.Close()
		return nil, err
	}

	if cfg.NatsURL != "" {
		events, err := hermes.NewClient(ctx, cfg.NatsURL, cfg.NatsToken, logger)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.events = events
		a.closers = append(a.closers, events.Close)
		logger.Info("NATS connected", "url", cfg.NatsURL)
	}

	var pub feedback.Publisher
	if p := a.publisher(); p != nil {
		pub = p
	}
	a.feedback = feedback.NewService(a.storage, a.mem, pub, logger)
	return a, nil
}

func (a *app) openStorage(ctx context.Context) error {
	if a.cfg.DatabaseURL != "" {
		db, err := store.New(ctx, a.cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		if err := db.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate database: %w", err)
		}
		a.pg = db
		a.storage = db
		a.storageName = "postgres"
		a.logger.Info("database connected")
		return nil
	}

	db, err := localstore.Open(a.cfg.SQLitePath)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, func() { _ = db.Close() })
	a.storage = db
	a.storageName = "sqlite"
	a.logger.Info("using local database", "path", db.Path())
	return nil
}

// openMemory wires retrieval. Without an embedding key memory is disabled
// and prompts carry no context.
func (a *app) openMemory(ctx context.Context) error {
	embedder, err := newEmbedder(ctx, a.cfg)
	if err != nil {
		a.logger.Warn("memory disabled", "error", err)
		a.mem = memory.NewClient(nil, a.logger)
		return nil
	}

	var index memory.Index
	if a.pg != nil {
		index = a.pg
	} else {
		index = memory.NewLocalIndex()
		a.logger.Warn("no DATABASE_URL, memory is kept in process only")
	}
	a.mem = memory.NewClient(memory.NewVectorStore(embedder, index, a.cfg.MemoryDedupDistance, a.logger), a.logger)
	return nil
}

// withProcessor adds the model provider and the analysis pipeline.
func (a *app) withProcessor(ctx context.Context) error {
	provider, err := newProvider(ctx, a.cfg)
	if err != nil {
		return err
	}
	if a.cfg.RedisURL != "" {
		cache, err := llm.NewRedisCache(ctx, a.cfg.RedisURL, a.cfg.CacheTTL)
		if err != nil {
			a.logger.Warn("completion cache disabled", "error", err)
		} else {
			a.closers = append(a.closers, func() { _ = cache.Close() })
			provider = llm.NewCachingProvider(provider, cache, a.logger)
			a.logger.Info("completion cache enabled", "ttl", a.cfg.CacheTTL)
		}
	}
	a.provider = provider
	a.logger.Info("model provider ready", "provider", a.cfg.LLMProvider, "model", provider.Model())

	inv := llm.NewInvoker(provider, llm.Policy{MaxRetries: a.cfg.MaxRetries, BackoffBase: a.cfg.BackoffBase}, a.logger)
	norm := normalize.New(normalize.NewModelRepairer(provider, a.cfg.MaxOutputTokens), a.logger)

	opts := processor.DefaultOptions()
	opts.MinClauseLength = a.cfg.MinClauseLength
	opts.TopK = a.cfg.MemoryTopK
	opts.Workers = a.cfg.Workers
	opts.Timeout = a.cfg.RequestTimeout
	opts.Temperature = a.cfg.Temperature
	opts.MaxTokens = a.cfg.MaxOutputTokens

	builder := prompt.New(prompt.JurisdictionFor(a.cfg.Jurisdiction))
	a.proc = processor.New(builder, a.mem, inv, norm, opts, a.logger)
	a.proc.SetHistory(a.storage)
	a.proc.SetPublisher(a.publisher())

	// Slack is optional; without it there is no review loop.
	if a.cfg.SlackBotToken != "" && a.cfg.SlackChannel != "" {
		poster := slack.NewPoster(a.cfg.SlackBotToken, a.cfg.SlackChannel, a.logger)
		a.review = feedback.NewReviewLoop(poster, a.feedback, a.logger)
		a.proc.SetNotifier(a.review)
		a.logger.Info("slack review loop ready", "channel", a.cfg.SlackChannel)
	}
	return nil
}

func newProvider(ctx context.Context, cfg config.Config) (llm.Provider, error) {
	switch cfg.LLMProvider {
	case "openai":
		return openai.New(openai.Config{APIKey: cfg.OpenAIAPIKey, BaseURL: cfg.OpenAIBaseURL, Model: cfg.OpenAIModel})
	case "anthropic":
		if cfg.AnthropicAPIKey == "" {
			return nil, errors.New("ANTHROPIC_API_KEY is required")
		}
		return anthropic.NewClient(cfg.AnthropicAPIKey, cfg.AnthropicModel), nil
	case "gemini":
		return gemini.New(ctx, gemini.Config{APIKey: cfg.GeminiAPIKey, Model: cfg.GeminiModel})
	default:
		return nil, fmt.Errorf("unknown CLERK_LLM_PROVIDER %q (use openai, anthropic or gemini)", cfg.LLMProvider)
	}
}

func newEmbedder(ctx context.Context, cfg config.Config) (memory.Embedder, error) {
	switch cfg.EmbeddingProvider {
	case "openai":
		return openai.New(openai.Config{APIKey: cfg.OpenAIAPIKey, BaseURL: cfg.OpenAIBaseURL, EmbeddingModel: cfg.EmbeddingModel})
	case "gemini":
		return gemini.New(ctx, gemini.Config{APIKey: cfg.GeminiAPIKey, EmbeddingModel: cfg.EmbeddingModel})
	default:
		return nil, fmt.Errorf("unknown CLERK_EMBEDDING_PROVIDER %q (use openai or gemini)", cfg.EmbeddingProvider)
	}
}
