// Package ai generates interpretive content: it renders a prompt template
// against a request context, memoizes results in the cache under a
// version-qualified key, and calls the completion API on a miss.
package ai

import (
	"context"
	"fmt"

	"github.com/astralume/astral-api/internal/cache"
	"github.com/astralume/astral-api/internal/models"
	"github.com/astralume/astral-api/internal/services/prompt"
	"go.uber.org/zap"
)

// Generator produces content for a (promptId, context, lang) triple.
type Generator struct {
	registry *prompt.Registry
	store    cache.Store
	client   CompletionClient
	logger   *zap.Logger
}

// NewGenerator wires a generator. All dependencies are required.
func NewGenerator(registry *prompt.Registry, store cache.Store, client CompletionClient, logger *zap.Logger) *Generator {
	return &Generator{
		registry: registry,
		store:    store,
		client:   client,
		logger:   logger,
	}
}

// Generate resolves the template, consults the cache, and on a miss issues a
// single completion call.
//
// Failure semantics: an unknown promptId or an unserializable context is a
// hard error (500-class); an unreachable upstream is *UnavailableError
// (503); upstream text that cannot be parsed as JSON degrades to empty
// content. Cache store failures are treated as a miss on read and logged on
// write; the cache is never a correctness dependency.
func (g *Generator) Generate(ctx context.Context, promptID string, rctx prompt.Context, lang models.Lang) (*models.GeneratedContent, error) {
	tmpl, err := g.registry.Get(promptID)
	if err != nil {
		return nil, err
	}

	key, err := CacheKey(promptID, tmpl.Version, lang, rctx)
	if err != nil {
		return nil, err
	}

	var cached models.GeneratedContent
	hit, err := g.store.Get(ctx, key, &cached)
	if err != nil {
		g.logger.Warn("content_cache_read_failed",
			zap.String("prompt_id", promptID),
			zap.Error(err),
		)
	}
	if hit {
		g.logger.Debug("content_cache_hit",
			zap.String("prompt_id", promptID),
			zap.String("version", tmpl.Version),
			zap.String("lang", string(lang)),
		)
		if cached.Meta != nil {
			cached.Meta.Cached = true
		}
		return &cached, nil
	}

	system := tmpl.System.Render(rctx)
	user := tmpl.User.Render(rctx) + langDirective(lang)

	raw, meta, err := g.client.Complete(ctx, system, user)
	if err != nil {
		return nil, fmt.Errorf("generate %s: %w", promptID, err)
	}

	content := ExtractJSON(raw)
	if len(content) == 0 && raw != "" {
		g.logger.Warn("llm_output_not_parseable",
			zap.String("prompt_id", promptID),
			zap.String("response_preview", SanitizeResponse(raw, false)),
		)
	}

	result := &models.GeneratedContent{
		Lang:    lang,
		Content: content,
		Meta:    meta,
	}

	if err := g.store.Set(ctx, key, result, tmpl.TTL); err != nil {
		g.logger.Warn("content_cache_write_failed",
			zap.String("prompt_id", promptID),
			zap.Error(err),
		)
	}

	return result, nil
}

func langDirective(lang models.Lang) string {
	if lang == models.LangEN {
		return "\n\nWrite all user-facing text in English."
	}
	return "\n\nWrite all user-facing text in Simplified Chinese."
}
