package ai

import (
	"testing"
)

func TestExtractJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		raw      string
		validate func(*testing.T, map[string]any)
	}{
		{
			name: "plain JSON object",
			raw:  `{"summary": "steady day"}`,
			validate: func(t *testing.T, got map[string]any) {
				if got["summary"] != "steady day" {
					t.Errorf("got %v", got)
				}
			},
		},
		{
			name: "fenced json block",
			raw:  "Here is your reading:\n```json\n{\"headline\": \"good\"}\n```\nHope that helps!",
			validate: func(t *testing.T, got map[string]any) {
				if got["headline"] != "good" {
					t.Errorf("got %v", got)
				}
			},
		},
		{
			name: "fenced block without language tag",
			raw:  "```\n{\"a\": 1}\n```",
			validate: func(t *testing.T, got map[string]any) {
				if got["a"] != float64(1) {
					t.Errorf("got %v", got)
				}
			},
		},
		{
			name: "object embedded in prose",
			raw:  `Sure! The answer is {"answer": "yes", "score": 72} based on the chart.`,
			validate: func(t *testing.T, got map[string]any) {
				if got["answer"] != "yes" {
					t.Errorf("got %v", got)
				}
			},
		},
		{
			name: "braces inside string values",
			raw:  `{"text": "use {placeholders} carefully", "n": 2} trailing prose`,
			validate: func(t *testing.T, got map[string]any) {
				if got["text"] != "use {placeholders} carefully" {
					t.Errorf("got %v", got)
				}
			},
		},
		{
			name: "nested objects",
			raw:  `{"focus": {"love": "warm", "career": "busy"}}`,
			validate: func(t *testing.T, got map[string]any) {
				focus, ok := got["focus"].(map[string]any)
				if !ok || focus["love"] != "warm" {
					t.Errorf("got %v", got)
				}
			},
		},
		{
			name: "almost-JSON repaired",
			raw:  `{"answer": "yes", "score": 72,}`,
			validate: func(t *testing.T, got map[string]any) {
				if got["answer"] != "yes" {
					t.Errorf("repair did not recover object: %v", got)
				}
			},
		},
		{
			name: "pure prose degrades to empty object",
			raw:  "The stars suggest a calm and reflective day ahead.",
			validate: func(t *testing.T, got map[string]any) {
				if len(got) != 0 {
					t.Errorf("want empty object, got %v", got)
				}
			},
		},
		{
			name: "empty input degrades to empty object",
			raw:  "",
			validate: func(t *testing.T, got map[string]any) {
				if len(got) != 0 {
					t.Errorf("want empty object, got %v", got)
				}
			},
		},
		{
			name: "unbalanced braces degrade to empty object",
			raw:  `{"answer": "yes"`,
			validate: func(t *testing.T, got map[string]any) {
				// jsonrepair may close the object; either a recovered object
				// or an empty one is acceptable, a panic or nil is not.
				if got == nil {
					t.Error("got nil map")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := ExtractJSON(tt.raw)
			if got == nil {
				t.Fatal("ExtractJSON returned nil")
			}
			tt.validate(t, got)
		})
	}
}

func TestBalancedBraceRegion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{`prefix {"a": 1} suffix`, `{"a": 1}`},
		{`{"a": {"b": 2}} extra`, `{"a": {"b": 2}}`},
		{`no braces here`, ""},
		{`{"unclosed": 1`, ""},
		{`{"s": "}"} tail`, `{"s": "}"}`},
		{`{"s": "\"}"}`, `{"s": "\"}"}`},
	}
	for _, tt := range tests {
		if got := balancedBraceRegion(tt.in); got != tt.want {
			t.Errorf("balancedBraceRegion(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
