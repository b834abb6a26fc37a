package main

import (
	"context"
	"log/slog"
	"strings"

	"github.com/vinochelo/extractor/internal/common"
	"github.com/vinochelo/extractor/internal/directory"
	"github.com/vinochelo/extractor/internal/extract"
	"github.com/vinochelo/extractor/internal/live"
	"github.com/vinochelo/extractor/internal/llm"
	"github.com/vinochelo/extractor/internal/llm/anthropic"
	"github.com/vinochelo/extractor/internal/llm/openai"
	"github.com/vinochelo/extractor/internal/repository"
	"github.com/vinochelo/extractor/internal/retentions"
)

// app is the wired service plus the resources it owns.
type app struct {
	backend *repository.Backend
	hub     *live.Hub
	svc     *retentions.Service
}

func openApp(ctx context.Context) (*app, error) {
	backend, err := repository.OpenBackend(ctx, cfg.Store, logger)
	if err != nil {
		return nil, err
	}
	hub := live.NewHub(backend.Store, logger)
	ext := extract.New(newFieldExtractor(cfg, logger), logger,
		extract.WithTimeout(cfg.LLM.Timeout),
		extract.WithRateLimit(cfg.LLM.RatePerMinute),
	)
	svc := retentions.NewService(ext, backend.Store, hub, directory.New(backend.KV, logger), logger)
	return &app{backend: backend, hub: hub, svc: svc}, nil
}

func (a *app) Close() {
	a.hub.Close()
	if err := a.backend.Close(); err != nil {
		logger.Warn("store.close.failed", "error", err)
	}
}

// newFieldExtractor picks the configured provider. Without an API key every
// extraction fails with the configuration error; other commands still work.
func newFieldExtractor(c *common.Config, logger *slog.Logger) llm.FieldExtractor {
	if err := c.ValidateExtraction(); err != nil {
		return unconfigured{err: err}
	}
	switch c.LLM.Provider {
	case common.LLMProviderOpenAI:
		return openai.NewClient(openai.Config{
			APIKey:      c.LLM.APIKey,
			BaseURL:     c.LLM.BaseURL,
			Model:       c.LLM.Model,
			Temperature: c.LLM.Temperature,
			MaxTokens:   c.LLM.MaxTokens,
			Timeout:     c.LLM.Timeout,
		}, logger)
	default:
		return anthropic.NewClient(anthropic.Config{
			APIKey:      c.LLM.APIKey,
			BaseURL:     c.LLM.BaseURL,
			Model:       c.LLM.Model,
			MaxTokens:   c.LLM.MaxTokens,
			Temperature: c.LLM.Temperature,
			MaxRetries:  2,
		}, logger)
	}
}

type unconfigured struct{ err error }

func (u unconfigured) ExtractFields(context.Context, llm.ExtractRequest) ([]byte, error) {
	return nil, u.err
}

// ownerID returns --owner / RETENCIONES_OWNER, or an error naming both.
func ownerID() (string, error) {
	owner := strings.TrimSpace(cfg.Server.DefaultOwner)
	if owner == "" {
		return "", common.NewAppError(common.CodeUnauthorized, "an owner is required: pass --owner or set RETENCIONES_OWNER", nil)
	}
	return owner, nil
}
