package models

// Lang identifies the output language of generated content.
type Lang string

const (
	// LangZH is Simplified Chinese, the default.
	LangZH Lang = "zh"
	// LangEN is English.
	LangEN Lang = "en"
)

// ParseLang normalizes a request-supplied language tag, defaulting to Chinese.
func ParseLang(s string) Lang {
	switch Lang(s) {
	case LangEN:
		return LangEN
	default:
		return LangZH
	}
}

// Scenario is a coarse category tag on a prompt template. It is used for
// organization and logging, not for branching in the generator.
type Scenario string

const (
	ScenarioNatal    Scenario = "natal"
	ScenarioDaily    Scenario = "daily"
	ScenarioAsk      Scenario = "ask"
	ScenarioSynastry Scenario = "synastry"
	ScenarioWiki     Scenario = "wiki"
)

// GenerationMeta carries metadata about a single completion call.
type GenerationMeta struct {
	Model            string `json:"model,omitempty"`
	PromptTokens     int64  `json:"prompt_tokens,omitempty"`
	CompletionTokens int64  `json:"completion_tokens,omitempty"`
	Cached           bool   `json:"cached,omitempty"`
}

// GeneratedContent is the result of one generation: the structured content the
// model produced (or an empty object when its output was unusable), the
// language it was generated for, and optional generation metadata.
type GeneratedContent struct {
	Lang    Lang           `json:"lang"`
	Content map[string]any `json:"content"`
	Meta    *GenerationMeta `json:"meta,omitempty"`
}
