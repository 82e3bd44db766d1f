package cbt

import (
	"context"
	"errors"
	"fmt"

	"github.com/astralume/astral-api/internal/models"
	"github.com/astralume/astral-api/internal/services/ai"
	"github.com/astralume/astral-api/internal/services/prompt"
	"github.com/google/uuid"
)

// ErrNoRecords is returned by AnalyzeAggregate when the user has no live
// records to analyze.
var ErrNoRecords = errors.New("no records to analyze")

// Analyzer generates interpretive content for thought records.
type Analyzer struct {
	generator *ai.Generator
	store     *Store
}

// NewAnalyzer creates an analyzer over the given generator and record store.
func NewAnalyzer(generator *ai.Generator, store *Store) *Analyzer {
	return &Analyzer{generator: generator, store: store}
}

// Analyze produces an analysis of a single thought record.
func (a *Analyzer) Analyze(ctx context.Context, record models.CBTRecord, lang models.Lang) (*models.GeneratedContent, error) {
	return a.generator.Generate(ctx, "cbt_analysis", prompt.Context{"record": record}, lang)
}

// AnalyzeAggregate produces a cross-entry pattern analysis over all of the
// user's live records.
func (a *Analyzer) AnalyzeAggregate(ctx context.Context, userID uuid.UUID, lang models.Lang) (*models.GeneratedContent, error) {
	records, err := a.store.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("user %s: %w", userID, ErrNoRecords)
	}
	return a.generator.Generate(ctx, "cbt_aggregate", prompt.Context{"records": records}, lang)
}
