package prompt

import (
	"errors"
	"fmt"
	"time"

	"github.com/astralume/astral-api/internal/models"
)

// ErrTemplateNotFound is returned by Get for an unknown promptId. An unknown
// id is a programming or configuration error, not a user-facing condition.
var ErrTemplateNotFound = errors.New("prompt template not found")

// Registry is an immutable promptId -> Template mapping. It is constructed
// once at startup and passed by reference to the generator; there is no
// mutation after construction.
type Registry struct {
	templates map[string]*Template
}

// Get resolves a template by id.
func (r *Registry) Get(promptID string) (*Template, error) {
	t, ok := r.templates[promptID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrTemplateNotFound, promptID)
	}
	return t, nil
}

// IDs returns all registered template ids. Used by the configure CLI.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.templates))
	for id := range r.templates {
		ids = append(ids, id)
	}
	return ids
}

// NewRegistry builds the built-in template set.
func NewRegistry() *Registry {
	r := &Registry{templates: make(map[string]*Template)}
	for _, t := range builtinTemplates() {
		r.templates[t.ID] = t
	}
	return r
}

const systemAstrologer = "You are a professional astrologer writing for a wellness app. " +
	"Ground every statement in the chart data provided. Be warm but specific; avoid generic filler. " +
	"Respond with valid JSON only."

func builtinTemplates() []*Template {
	return []*Template{
		{
			ID:       "natal_overview",
			Version:  "v2",
			Scenario: models.ScenarioNatal,
			TTL:      7 * 24 * time.Hour,
			System:   Literal(systemAstrologer),
			User: Derived(func(ctx Context) string {
				return fmt.Sprintf(`Write a natal chart overview for this chart:
%s

Respond with a JSON object:
{
  "summary": "2-3 sentence portrait of the person",
  "sun": "one paragraph on the sun placement",
  "moon": "one paragraph on the moon placement",
  "rising": "one paragraph on the ascendant"
}`, jsonField(ctx, "chart"))
			}),
		},
		{
			ID:       "natal_core_themes",
			Version:  "v1",
			Scenario: models.ScenarioNatal,
			TTL:      7 * 24 * time.Hour,
			System:   Literal(systemAstrologer),
			User: Derived(func(ctx Context) string {
				return fmt.Sprintf(`Identify the three strongest themes in this natal chart:
%s

Respond with a JSON object:
{
  "themes": [
    {"title": "short theme name", "drivers": "placements/aspects behind it", "expression": "how it shows up in daily life"}
  ]
}
Exactly three entries.`, jsonField(ctx, "chart"))
			}),
		},
		{
			ID:       "natal_dimension",
			Version:  "v1",
			Scenario: models.ScenarioNatal,
			TTL:      7 * 24 * time.Hour,
			System: Derived(func(ctx Context) string {
				return systemAstrologer + " Focus exclusively on the " + strField(ctx, "dimension") + " dimension of the chart."
			}),
			User: Derived(func(ctx Context) string {
				return fmt.Sprintf(`Analyze the %s dimension of this natal chart:
%s

Respond with a JSON object:
{
  "strengths": ["..."],
  "challenges": ["..."],
  "advice": "one actionable paragraph"
}`, strField(ctx, "dimension"), jsonField(ctx, "chart"))
			}),
		},
		{
			ID:       "natal_technical",
			Version:  "v1",
			Scenario: models.ScenarioNatal,
			TTL:      7 * 24 * time.Hour,
			System:   Literal(systemAstrologer + " Write for a reader who knows astrological terminology."),
			User: Derived(func(ctx Context) string {
				return fmt.Sprintf(`Give a technical reading of this natal chart, covering element/modality balance, chart ruler, and the three tightest aspects:
%s

Respond with a JSON object:
{
  "balance": {"elements": "...", "modalities": "..."},
  "chart_ruler": "...",
  "aspects": [{"aspect": "...", "interpretation": "..."}]
}`, jsonField(ctx, "chart"))
			}),
		},
		{
			ID:       "daily_transit",
			Version:  "v3",
			Scenario: models.ScenarioDaily,
			TTL:      6 * time.Hour,
			System:   Literal(systemAstrologer + " Today's guidance should be practical and tied to the listed transits."),
			User: Derived(func(ctx Context) string {
				return fmt.Sprintf(`Natal chart:
%s

Today's transits:
%s

Respond with a JSON object:
{
  "headline": "one-line mood for the day",
  "guidance": "2-3 sentences of practical advice",
  "focus": {"love": "...", "career": "...", "wellbeing": "..."},
  "lucky_window": "a time range and why"
}`, jsonField(ctx, "chart"), jsonField(ctx, "transits"))
			}),
		},
		{
			ID:       "ask",
			Version:  "v2",
			Scenario: models.ScenarioAsk,
			TTL:      24 * time.Hour,
			System: Derived(func(ctx Context) string {
				s := systemAstrologer + " Answer the user's question directly before elaborating."
				if cat := strField(ctx, "category"); cat != "" {
					s += " The question falls in the " + cat + " category."
				}
				return s
			}),
			User: Derived(func(ctx Context) string {
				return fmt.Sprintf(`The user's natal chart:
%s

Their question: %q

Respond with a JSON object:
{
  "answer": "direct answer, 2-4 sentences",
  "reasoning": "which placements/transits support the answer",
  "caveat": "what the chart cannot decide for them"
}`, jsonField(ctx, "chart"), strField(ctx, "question"))
			}),
		},
		{
			ID:       "synastry",
			Version:  "v1",
			Scenario: models.ScenarioSynastry,
			TTL:      24 * time.Hour,
			System:   Literal(systemAstrologer + " Compare the two charts even-handedly; neither person is the protagonist."),
			User: Derived(func(ctx Context) string {
				return fmt.Sprintf(`Chart A:
%s

Chart B:
%s

Respond with a JSON object:
{
  "chemistry": "what draws them together",
  "friction": "the main recurring tension",
  "advice": "one paragraph for the pair",
  "score": 0-100
}`, jsonField(ctx, "chartA"), jsonField(ctx, "chartB"))
			}),
		},
		{
			ID:       "wiki",
			Version:  "v1",
			Scenario: models.ScenarioWiki,
			TTL:      30 * 24 * time.Hour,
			System:   Literal("You are an astrology educator. Explain concepts precisely and neutrally. Respond with valid JSON only."),
			User: Derived(func(ctx Context) string {
				return fmt.Sprintf(`Explain the astrological topic %q.

Respond with a JSON object:
{
  "definition": "1-2 sentence definition",
  "detail": "2-3 paragraphs of explanation",
  "related": ["related topic names"]
}`, strField(ctx, "topic"))
			}),
		},
		{
			ID:       "cbt_analysis",
			Version:  "v2",
			Scenario: models.ScenarioAsk,
			TTL:      24 * time.Hour,
			System: Literal("You are a CBT-informed wellness coach reviewing a thought record. " +
				"Be validating, never diagnostic, and keep suggestions small and concrete. Respond with valid JSON only."),
			User: Derived(func(ctx Context) string {
				return fmt.Sprintf(`Thought record:
%s

Respond with a JSON object:
{
  "reflection": "what the record shows about the thought pattern",
  "distortions": ["cognitive distortions present, if any"],
  "reframe": "a gentler, evidence-based restatement of the hot thought",
  "next_step": "one small concrete action"
}`, jsonField(ctx, "record"))
			}),
		},
		{
			ID:       "cbt_aggregate",
			Version:  "v1",
			Scenario: models.ScenarioAsk,
			TTL:      24 * time.Hour,
			System: Literal("You are a CBT-informed wellness coach reviewing a journal history. " +
				"Look for patterns across entries, not individual diagnoses. Respond with valid JSON only."),
			User: Derived(func(ctx Context) string {
				return fmt.Sprintf(`Recent thought records (newest last):
%s

Respond with a JSON object:
{
  "recurring_situations": ["..."],
  "recurring_thoughts": ["..."],
  "mood_trend": "how mood intensities have shifted across entries",
  "progress": "evidence of reframing skill improving or not",
  "suggestion": "one focus area for the coming weeks"
}`, jsonField(ctx, "records"))
			}),
		},
	}
}
