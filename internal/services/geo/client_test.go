package geo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/astralume/astral-api/internal/cache"
	"go.uber.org/zap"
)

const shanghaiBody = `{"results": [
	{"name": "Shanghai", "country": "China", "latitude": 31.2304, "longitude": 121.4737, "timezone": "Asia/Shanghai"}
]}`

func TestSearch_ShortQuerySkipsUpstream(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(shanghaiBody))
	}))
	defer server.Close()

	c := NewClient(server.URL, cache.NewMemoryStore(), 0, zap.NewNop())

	got := c.Search(context.Background(), "S", 5)
	if len(got) != 0 {
		t.Errorf("short query returned %d results, want 0", len(got))
	}
	if calls.Load() != 0 {
		t.Error("short query must not contact the upstream")
	}
}

func TestSearch_ResultsAndCaching(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if got := r.URL.Query().Get("name"); got != "Shanghai" {
			t.Errorf("upstream query name = %q", got)
		}
		_, _ = w.Write([]byte(shanghaiBody))
	}))
	defer server.Close()

	c := NewClient(server.URL, cache.NewMemoryStore(), 0, zap.NewNop())
	ctx := context.Background()

	first := c.Search(ctx, "Shanghai", 5)
	if len(first) != 1 || first[0].Timezone != "Asia/Shanghai" {
		t.Fatalf("got %+v", first)
	}

	second := c.Search(ctx, "shanghai", 5) // case-insensitive cache key
	if len(second) != 1 {
		t.Fatalf("got %+v", second)
	}
	if calls.Load() != 1 {
		t.Errorf("upstream called %d times, want 1 (second search should hit cache)", calls.Load())
	}
}

func TestSearch_UpstreamErrorReturnsEmpty(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c := NewClient(server.URL, cache.NewMemoryStore(), 0, zap.NewNop())
	got := c.Search(context.Background(), "Paris", 5)
	if len(got) != 0 {
		t.Errorf("upstream failure returned %d results, want 0", len(got))
	}
}

func TestResolve_EmptyInputReturnsDefault(t *testing.T) {
	t.Parallel()

	c := NewClient("http://127.0.0.1:1", cache.NewMemoryStore(), 0, zap.NewNop())
	got := c.Resolve(context.Background(), "")
	if got.City != "Shanghai" || got.Timezone != "Asia/Shanghai" {
		t.Errorf("got %+v, want default location", got)
	}
}

func TestResolve_UpstreamFailureReturnsDefault(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	c := NewClient(server.URL, cache.NewMemoryStore(), 0, zap.NewNop())
	got := c.Resolve(context.Background(), "Atlantis")
	if got.Lat != 31.2304 || got.Lon != 121.4737 {
		t.Errorf("got %+v, want default location", got)
	}
}

func TestResolve_TimeoutReturnsDefault(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(shanghaiBody))
	}))
	defer server.Close()

	c := NewClient(server.URL, cache.NewMemoryStore(), 20*time.Millisecond, zap.NewNop())
	got := c.Resolve(context.Background(), "Berlin")
	if got.City != "Shanghai" {
		t.Errorf("timeout should return default location, got %+v", got)
	}
}

func TestResolve_SuccessIsCached(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(shanghaiBody))
	}))
	defer server.Close()

	c := NewClient(server.URL, cache.NewMemoryStore(), 0, zap.NewNop())
	ctx := context.Background()

	first := c.Resolve(ctx, "Shanghai")
	second := c.Resolve(ctx, "SHANGHAI")
	if first != second {
		t.Errorf("cached resolve differs: %+v vs %+v", first, second)
	}
	if calls.Load() != 1 {
		t.Errorf("upstream called %d times, want 1", calls.Load())
	}
}
