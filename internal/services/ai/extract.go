package ai

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

var fencedBlockRe = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

// ExtractJSON pulls a JSON object out of raw completion text. Fallback order:
// fenced code block, first balanced brace region, jsonrepair on the best
// candidate, then an empty object. Extraction failure and parse failure are
// the same soft-degrade outcome; neither is an error.
func ExtractJSON(raw string) map[string]any {
	candidate := strings.TrimSpace(raw)
	if m := fencedBlockRe.FindStringSubmatch(candidate); m != nil {
		candidate = strings.TrimSpace(m[1])
	}
	if region := balancedBraceRegion(candidate); region != "" {
		candidate = region
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(candidate), &obj); err == nil && obj != nil {
		return obj
	}

	if repaired, err := jsonrepair.JSONRepair(candidate); err == nil {
		if err := json.Unmarshal([]byte(repaired), &obj); err == nil && obj != nil {
			return obj
		}
	}

	return map[string]any{}
}

// balancedBraceRegion returns the first balanced {...} region of s, tracking
// string literals and escapes so braces inside strings don't count. Empty
// when no balanced region exists.
func balancedBraceRegion(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}
