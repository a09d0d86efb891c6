package main

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"helmsman/internal/adapter/llm"
	"helmsman/internal/adapter/vectorsearch"
	"helmsman/internal/adapter/websearch"
	"helmsman/internal/config"
	"helmsman/internal/domain"
	"helmsman/internal/guardrail"
	"helmsman/internal/router"
	"helmsman/internal/service"
	"helmsman/internal/store"
	"helmsman/internal/tool"
	"helmsman/policy"
)

// app holds the wired pipeline and everything that needs closing.
type app struct {
	orchestrator *service.Orchestrator
	registry     *prometheus.Registry
	store        store.Store
	logger       *zap.Logger
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		a.logger.Warn("store close failed", zap.Error(err))
	}
	a.logger.Sync() //nolint:errcheck
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if lvl, err := zapcore.ParseLevel(level); err == nil {
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	return cfg.Build()
}

// buildApp wires the full pipeline from configuration.
func buildApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	var st store.Store
	var err error
	switch cfg.SessionBackend {
	case "redis":
		st = store.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, store.WithTTL(cfg.SessionTTL))
	case "sqlite":
		st, err = store.NewSQLiteStore(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize store: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown session backend %q", cfg.SessionBackend)
	}

	engine, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to initialize policy engine: %w", err)
	}

	provider := llm.NewProvider(cfg.ProviderBaseURL, cfg.ProviderAPIKey, cfg.Model, cfg.ProviderTimeout, cfg.ProviderRetries, cfg.RetryBackoff)

	var index vectorsearch.Searcher
	if cfg.VectorIndexURL != "" {
		index = vectorsearch.NewClient(cfg.VectorIndexURL, 10*time.Second)
	}
	web := websearch.NewClient(cfg.SerpBaseURL, cfg.SerpAPIKey, 5, 10*time.Second)

	promReg := prometheus.NewRegistry()
	metrics := service.NewMetrics(promReg)

	registry := tool.NewRegistry(tool.NewDirect(provider, cfg.MaxTokens, cfg.RecentTurns, logger))
	registry.Register(domain.CategoryCalculator, tool.NewCalculator())
	registry.Register(domain.CategoryDatetime, tool.NewDatetime())
	if index != nil {
		registry.Register(domain.CategoryRAG, tool.NewKnowledge(index, provider, cfg.VectorTopK, cfg.MaxTokens, logger))
	}
	registry.Register(domain.CategoryWebSearch, tool.NewWebSearch(web, provider, cfg.MaxTokens, logger))

	orchestrator := service.New(
		st,
		guardrail.NewInput(engine, cfg.MaxInputLength, cfg.ExtraPatterns, logger),
		guardrail.NewOutput(cfg.MaxTokens),
		guardrail.NewConversation(cfg.LoopWindow, cfg.LoopThreshold, cfg.SummarizeAfter),
		router.New(provider, cfg.RouterRetries, cfg.RouterMaxTokens, cfg.RecentTurns, logger, metrics.ClassifierFallbacks),
		registry,
		provider,
		index,
		logger,
		metrics,
	)

	return &app{
		orchestrator: orchestrator,
		registry:     promReg,
		store:        st,
		logger:       logger,
	}, nil
}
