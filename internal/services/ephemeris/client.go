// Package ephemeris wraps the external chart-computation service. Chart
// payloads are opaque to this service and passed through to prompts and API
// responses unchanged.
package ephemeris

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/astralume/astral-api/internal/models"
)

// DefaultTimeout bounds ephemeris requests. The upstream computation is
// CPU-bound and fast; anything slower indicates a stuck service.
const DefaultTimeout = 10 * time.Second

// Client calls the ephemeris HTTP service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates an ephemeris client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
}

type transitRequest struct {
	models.BirthData
	Moment string `json:"moment"`
}

// NatalChart computes the chart for a birth moment and place.
func (c *Client) NatalChart(ctx context.Context, birth models.BirthData) (models.Chart, error) {
	return c.post(ctx, "/natal", birth)
}

// Transits computes current-moment positions relative to a natal chart.
func (c *Client) Transits(ctx context.Context, birth models.BirthData, moment time.Time) (models.Chart, error) {
	return c.post(ctx, "/transits", transitRequest{
		BirthData: birth,
		Moment:    moment.UTC().Format(time.RFC3339),
	})
}

func (c *Client) post(ctx context.Context, path string, payload any) (models.Chart, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return models.Chart{}, fmt.Errorf("encode ephemeris request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return models.Chart{}, fmt.Errorf("build ephemeris request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return models.Chart{}, fmt.Errorf("ephemeris request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		preview, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return models.Chart{}, fmt.Errorf("ephemeris upstream status %d: %s", resp.StatusCode, preview)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.Chart{}, fmt.Errorf("read ephemeris response: %w", err)
	}
	if !json.Valid(data) {
		return models.Chart{}, fmt.Errorf("ephemeris returned invalid JSON")
	}

	return models.Chart{Data: data}, nil
}
