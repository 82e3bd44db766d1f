// Package prompt holds the registry of prompt templates used to drive LLM
// completion requests. The registry is built once at startup and read-only
// thereafter.
package prompt

import (
	"encoding/json"
	"time"

	"github.com/astralume/astral-api/internal/models"
)

// Context is the render context for a template: an open mapping from field
// name to structured value (chart data, question text, category, ...).
type Context map[string]any

// Text is either a fixed string or a function of the render context. Both
// sides are rendered uniformly via Render.
type Text struct {
	literal string
	derive  func(Context) string
}

// Literal returns a Text that always renders to s.
func Literal(s string) Text {
	return Text{literal: s}
}

// Derived returns a Text rendered by fn against the request context.
func Derived(fn func(Context) string) Text {
	return Text{derive: fn}
}

// Render evaluates the text against ctx.
func (t Text) Render(ctx Context) string {
	if t.derive != nil {
		return t.derive(ctx)
	}
	return t.literal
}

// IsLiteral reports whether the text is a fixed string. Override files can
// only replace literal texts.
func (t Text) IsLiteral() bool {
	return t.derive == nil
}

// Template is one prompt template. Version is bumped whenever the expected
// output shape changes; old cache entries are left to expire rather than
// deleted, a version bump simply stops matching them.
type Template struct {
	ID       string
	Version  string
	Scenario models.Scenario
	TTL      time.Duration
	System   Text
	User     Text
}

// jsonField renders a context field as compact JSON for embedding in a
// prompt. Missing or unencodable fields render as "null".
func jsonField(ctx Context, field string) string {
	v, ok := ctx[field]
	if !ok {
		return "null"
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(data)
}

// strField renders a context field as a plain string, empty when absent.
func strField(ctx Context, field string) string {
	v, ok := ctx[field]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}
