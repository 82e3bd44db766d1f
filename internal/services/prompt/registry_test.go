package prompt

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestRegistry_Get(t *testing.T) {
	t.Parallel()

	r := NewRegistry()

	tmpl, err := r.Get("natal_overview")
	if err != nil {
		t.Fatalf("Get(natal_overview) error: %v", err)
	}
	if tmpl.Version == "" {
		t.Error("template has no version")
	}
	if tmpl.TTL <= 0 {
		t.Error("template has no TTL")
	}
}

func TestRegistry_GetUnknown(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	_, err := r.Get("no_such_template")
	if !errors.Is(err, ErrTemplateNotFound) {
		t.Errorf("expected ErrTemplateNotFound, got %v", err)
	}
}

func TestRegistry_AllTemplatesComplete(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	want := []string{
		"natal_overview", "natal_core_themes", "natal_dimension", "natal_technical",
		"daily_transit", "ask", "synastry", "wiki", "cbt_analysis", "cbt_aggregate",
	}
	for _, id := range want {
		tmpl, err := r.Get(id)
		if err != nil {
			t.Errorf("missing template %q", id)
			continue
		}
		if tmpl.ID != id {
			t.Errorf("template %q has mismatched ID %q", id, tmpl.ID)
		}
		user := tmpl.User.Render(Context{})
		if !strings.Contains(user, "JSON") {
			t.Errorf("template %q user prompt does not request JSON", id)
		}
	}
}

func TestText_LiteralAndDerived(t *testing.T) {
	t.Parallel()

	lit := Literal("fixed")
	if got := lit.Render(Context{"x": 1}); got != "fixed" {
		t.Errorf("literal rendered %q", got)
	}
	if !lit.IsLiteral() {
		t.Error("Literal should report IsLiteral")
	}

	der := Derived(func(ctx Context) string { return "got:" + strField(ctx, "q") })
	if got := der.Render(Context{"q": "hello"}); got != "got:hello" {
		t.Errorf("derived rendered %q", got)
	}
	if der.IsLiteral() {
		t.Error("Derived should not report IsLiteral")
	}
}

func TestTemplate_RenderEmbedsContext(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	tmpl, err := r.Get("ask")
	if err != nil {
		t.Fatal(err)
	}

	ctx := Context{
		"chart":    map[string]any{"sun": "Leo"},
		"question": "Should I change jobs?",
		"category": "career",
	}
	user := tmpl.User.Render(ctx)
	if !strings.Contains(user, `"sun":"Leo"`) {
		t.Errorf("chart JSON missing from prompt:\n%s", user)
	}
	if !strings.Contains(user, "Should I change jobs?") {
		t.Error("question missing from prompt")
	}
	system := tmpl.System.Render(ctx)
	if !strings.Contains(system, "career") {
		t.Error("category missing from system prompt")
	}
}

func TestNewRegistryWithOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "prompts.yaml")
	content := `daily_transit:
  version: v9
  ttl_seconds: 60
wiki:
  system: "Custom wiki instructions. Respond with valid JSON only."
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	r, err := NewRegistryWithOverrides(path)
	if err != nil {
		t.Fatalf("NewRegistryWithOverrides error: %v", err)
	}

	daily, _ := r.Get("daily_transit")
	if daily.Version != "v9" {
		t.Errorf("version = %q, want v9", daily.Version)
	}
	if daily.TTL != time.Minute {
		t.Errorf("TTL = %v, want 1m", daily.TTL)
	}

	wiki, _ := r.Get("wiki")
	if got := wiki.System.Render(Context{}); !strings.Contains(got, "Custom wiki instructions") {
		t.Errorf("system override not applied: %q", got)
	}
}

func TestNewRegistryWithOverrides_UnknownTemplate(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "prompts.yaml")
	if err := os.WriteFile(path, []byte("nope:\n  version: v2\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := NewRegistryWithOverrides(path); err == nil {
		t.Error("expected error for unknown template override")
	}
}

func TestNewRegistryWithOverrides_DerivedSystemRejected(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "prompts.yaml")
	// natal_dimension has a derived system text
	if err := os.WriteFile(path, []byte("natal_dimension:\n  system: \"replacement\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := NewRegistryWithOverrides(path); err == nil {
		t.Error("expected error overriding a derived system text")
	}
}
