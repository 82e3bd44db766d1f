package ai

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/astralume/astral-api/internal/models"
	"github.com/astralume/astral-api/internal/services/prompt"
)

// CacheKey derives the memoization key for one generation. The key combines
// promptId, template version, language, and a canonical digest of the render
// context; identical inputs always produce the same key and a version bump
// always produces a new one.
func CacheKey(promptID, version string, lang models.Lang, ctx prompt.Context) (string, error) {
	digest, err := contextDigest(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("ai:content:%s:%s:%s:%s", promptID, version, lang, digest), nil
}

// contextDigest hashes a canonical serialization of the context. The context
// is round-tripped through encoding/json so that map keys are sorted and raw
// JSON values are normalized; callers cannot affect the key via field order.
func contextDigest(ctx prompt.Context) (string, error) {
	encoded, err := json.Marshal(ctx)
	if err != nil {
		return "", fmt.Errorf("serialize render context: %w", err)
	}
	var normalized any
	if err := json.Unmarshal(encoded, &normalized); err != nil {
		return "", fmt.Errorf("normalize render context: %w", err)
	}
	canonical, err := json.Marshal(normalized)
	if err != nil {
		return "", fmt.Errorf("canonicalize render context: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:16]), nil
}
