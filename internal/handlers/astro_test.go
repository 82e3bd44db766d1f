package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/astralume/astral-api/internal/cache"
	"github.com/astralume/astral-api/internal/models"
	"github.com/astralume/astral-api/internal/services/ai"
	"github.com/astralume/astral-api/internal/services/geo"
	"github.com/astralume/astral-api/internal/services/prompt"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type stubCompletion struct {
	response string
	err      error
	calls    int
}

func (s *stubCompletion) Complete(_ context.Context, _, _ string) (string, *models.GenerationMeta, error) {
	s.calls++
	if s.err != nil {
		return "", nil, s.err
	}
	return s.response, &models.GenerationMeta{Model: "test-model", PromptTokens: 10, CompletionTokens: 20}, nil
}

type stubEphemeris struct {
	natalErr error
}

func (s *stubEphemeris) NatalChart(_ context.Context, _ models.BirthData) (models.Chart, error) {
	if s.natalErr != nil {
		return models.Chart{}, s.natalErr
	}
	return models.Chart{Data: json.RawMessage(`{"sun":{"sign":"aries","degree":12.5}}`)}, nil
}

func (s *stubEphemeris) Transits(_ context.Context, _ models.BirthData, _ time.Time) (models.Chart, error) {
	return models.Chart{Data: json.RawMessage(`{"moon":{"sign":"libra"}}`)}, nil
}

func testGeoClient() *geo.Client {
	// Unroutable upstream; routes under test supply coordinates directly.
	return geo.NewClient("http://127.0.0.1:1", cache.NewMemoryStore(), 50*time.Millisecond, zap.NewNop())
}

func newAstroRouter(completion ai.CompletionClient, eph EphemerisClient) *mux.Router {
	generator := ai.NewGenerator(prompt.NewRegistry(), cache.NewMemoryStore(), completion, zap.NewNop())
	h := NewAstroHandler(generator, eph, testGeoClient(), zap.NewNop())
	r := mux.NewRouter()
	h.RegisterRoutes(r.PathPrefix("/api/v1/astro").Subrouter())
	return r
}

const birthQuery = "date=1990-05-17&time=14:30&lat=31.2&lon=121.5&tz=Asia/Shanghai"

func TestNatalOverview_Success(t *testing.T) {
	t.Parallel()

	router := newAstroRouter(&stubCompletion{response: `{"summary":"steady","sun":"x","moon":"y","rising":"z"}`}, &stubEphemeris{})

	req := httptest.NewRequest("GET", "/api/v1/astro/natal/overview?"+birthQuery+"&lang=en", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["lang"] != "en" {
		t.Errorf("lang = %v, want en", body["lang"])
	}
	content, ok := body["content"].(map[string]any)
	if !ok || content["summary"] != "steady" {
		t.Errorf("content = %v", body["content"])
	}
	if _, ok := body["meta"]; !ok {
		t.Error("meta missing from fresh generation")
	}
}

func TestNatalOverview_AIUnavailable(t *testing.T) {
	t.Parallel()

	router := newAstroRouter(&stubCompletion{err: &ai.UnavailableError{Reason: "connection refused"}}, &stubEphemeris{})

	req := httptest.NewRequest("GET", "/api/v1/astro/natal/overview?"+birthQuery, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["error"] != "AI unavailable" {
		t.Errorf("error = %v, want %q", body["error"], "AI unavailable")
	}
	if body["reason"] != "connection refused" {
		t.Errorf("reason = %v", body["reason"])
	}
}

func TestNatalOverview_SecondCallServedFromCache(t *testing.T) {
	t.Parallel()

	completion := &stubCompletion{response: `{"summary":"cached"}`}
	router := newAstroRouter(completion, &stubEphemeris{})

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest("GET", "/api/v1/astro/natal/overview?"+birthQuery, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("call %d: status = %d", i, w.Code)
		}
		var body struct {
			Meta *models.GenerationMeta `json:"meta"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatal(err)
		}
		wantCached := i == 1
		if body.Meta == nil || body.Meta.Cached != wantCached {
			t.Errorf("call %d: meta = %+v, want cached=%v", i, body.Meta, wantCached)
		}
	}
	if completion.calls != 1 {
		t.Errorf("completion calls = %d, want 1", completion.calls)
	}
}

func TestNatalDimension(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		dimension string
		want      int
	}{
		{"valid dimension", "love", http.StatusOK},
		{"unknown dimension", "fortune", http.StatusBadRequest},
		{"missing dimension", "", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			router := newAstroRouter(&stubCompletion{response: `{"strengths":["x"]}`}, &stubEphemeris{})
			url := "/api/v1/astro/natal/dimension?" + birthQuery
			if tt.dimension != "" {
				url += "&dimension=" + tt.dimension
			}
			req := httptest.NewRequest("GET", url, nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", w.Code, tt.want, w.Body.String())
			}
			if tt.want == http.StatusOK && !strings.Contains(w.Body.String(), `"dimension":"love"`) {
				t.Errorf("dimension missing from response: %s", w.Body.String())
			}
		})
	}
}

func TestNatalChart_ReturnsRawChart(t *testing.T) {
	t.Parallel()

	router := newAstroRouter(&stubCompletion{}, &stubEphemeris{})
	req := httptest.NewRequest("GET", "/api/v1/astro/natal/chart?"+birthQuery, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	chart, ok := body["chart"].(map[string]any)
	if !ok {
		t.Fatalf("chart = %v", body["chart"])
	}
	if _, ok := chart["sun"]; !ok {
		t.Error("chart payload not passed through")
	}
}

func TestNatalChart_MissingDate(t *testing.T) {
	t.Parallel()

	router := newAstroRouter(&stubCompletion{}, &stubEphemeris{})
	req := httptest.NewRequest("GET", "/api/v1/astro/natal/chart?lat=31.2&lon=121.5", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestAsk(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
		want int
	}{
		{
			"valid question",
			`{"birth":{"date":"1990-05-17","lat":31.2,"lon":121.5},"question":"should I change jobs?","category":"career"}`,
			http.StatusOK,
		},
		{
			"missing question",
			`{"birth":{"date":"1990-05-17","lat":31.2,"lon":121.5}}`,
			http.StatusBadRequest,
		},
		{
			"unknown field",
			`{"birth":{"date":"1990-05-17"},"question":"x","bogus":true}`,
			http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			router := newAstroRouter(&stubCompletion{response: `{"answer":"yes"}`}, &stubEphemeris{})
			req := httptest.NewRequest("POST", "/api/v1/astro/ask", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestSynastry(t *testing.T) {
	t.Parallel()

	router := newAstroRouter(&stubCompletion{response: `{"chemistry":"strong","score":72}`}, &stubEphemeris{})
	body := `{"birthA":{"date":"1990-05-17","lat":31.2,"lon":121.5},"birthB":{"date":"1992-01-03","lat":39.9,"lon":116.4}}`
	req := httptest.NewRequest("POST", "/api/v1/astro/synastry", strings.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
}

func TestWiki_MissingTopic(t *testing.T) {
	t.Parallel()

	router := newAstroRouter(&stubCompletion{response: `{"definition":"x"}`}, &stubEphemeris{})
	req := httptest.NewRequest("GET", "/api/v1/astro/wiki", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestDaily_UnusableOutputDegradesToEmptyContent(t *testing.T) {
	t.Parallel()

	router := newAstroRouter(&stubCompletion{response: "the stars are quiet today"}, &stubEphemeris{})
	req := httptest.NewRequest("GET", "/api/v1/astro/daily?"+birthQuery, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 soft degrade", w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	content, ok := body["content"].(map[string]any)
	if !ok || len(content) != 0 {
		t.Errorf("content = %v, want empty object", body["content"])
	}
}
