package ai

import (
	"testing"

	"github.com/astralume/astral-api/internal/models"
	"github.com/astralume/astral-api/internal/services/prompt"
)

func TestCacheKey_Deterministic(t *testing.T) {
	t.Parallel()

	ctx := prompt.Context{"chart": map[string]any{"sun": "Leo", "moon": "Pisces"}, "question": "q"}

	k1, err := CacheKey("ask", "v2", models.LangZH, ctx)
	if err != nil {
		t.Fatalf("CacheKey error: %v", err)
	}
	k2, err := CacheKey("ask", "v2", models.LangZH, ctx)
	if err != nil {
		t.Fatalf("CacheKey error: %v", err)
	}
	if k1 != k2 {
		t.Errorf("identical inputs produced different keys:\n%s\n%s", k1, k2)
	}
}

func TestCacheKey_VersionBumpChangesKey(t *testing.T) {
	t.Parallel()

	ctx := prompt.Context{"topic": "retrograde"}
	k1, _ := CacheKey("wiki", "v1", models.LangZH, ctx)
	k2, _ := CacheKey("wiki", "v2", models.LangZH, ctx)
	if k1 == k2 {
		t.Error("version bump did not change the cache key")
	}
}

func TestCacheKey_LangChangesKey(t *testing.T) {
	t.Parallel()

	ctx := prompt.Context{"topic": "houses"}
	zh, _ := CacheKey("wiki", "v1", models.LangZH, ctx)
	en, _ := CacheKey("wiki", "v1", models.LangEN, ctx)
	if zh == en {
		t.Error("language did not change the cache key")
	}
}

func TestCacheKey_ContextChangesKey(t *testing.T) {
	t.Parallel()

	k1, _ := CacheKey("ask", "v2", models.LangZH, prompt.Context{"question": "a"})
	k2, _ := CacheKey("ask", "v2", models.LangZH, prompt.Context{"question": "b"})
	if k1 == k2 {
		t.Error("context change did not change the cache key")
	}
}

func TestCacheKey_OrderIndependent(t *testing.T) {
	t.Parallel()

	// Maps carry no order in Go, but raw JSON values do; the digest must
	// normalize them so byte-level ordering cannot split the cache.
	c1 := prompt.Context{"a": 1, "b": 2, "nested": map[string]any{"x": true, "y": false}}
	c2 := prompt.Context{"b": 2, "nested": map[string]any{"y": false, "x": true}, "a": 1}

	k1, _ := CacheKey("ask", "v2", models.LangZH, c1)
	k2, _ := CacheKey("ask", "v2", models.LangZH, c2)
	if k1 != k2 {
		t.Errorf("equivalent contexts produced different keys:\n%s\n%s", k1, k2)
	}
}

func TestCacheKey_UnserializableContext(t *testing.T) {
	t.Parallel()

	if _, err := CacheKey("ask", "v2", models.LangZH, prompt.Context{"bad": make(chan int)}); err == nil {
		t.Error("expected error for unserializable context")
	}
}
