// Package geo resolves free-text city names to coordinates and timezones via
// the Open-Meteo geocoding API, with cache-backed memoization and a fixed
// default location as the failure fallback.
package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/astralume/astral-api/internal/cache"
	"github.com/astralume/astral-api/internal/models"
	"go.uber.org/zap"
)

const (
	// DefaultTimeout bounds every upstream geocoding request.
	DefaultTimeout = 3500 * time.Millisecond
	// MinQueryLength is the shortest query sent upstream; shorter searches
	// return empty without a network call.
	MinQueryLength = 2
	// DefaultSearchLimit caps search results when the caller asks for none.
	DefaultSearchLimit = 5
	// MaxSearchLimit caps search results regardless of the caller.
	MaxSearchLimit = 20

	searchCacheTTL  = 24 * time.Hour
	resolveCacheTTL = 7 * 24 * time.Hour
)

// Client queries the geocoding API. Upstream failures never propagate:
// Search degrades to an empty slice and Resolve to the default location.
type Client struct {
	baseURL    string
	httpClient *http.Client
	store      cache.Store
	timeout    time.Duration
	logger     *zap.Logger
}

// NewClient creates a geocoding client. timeout <= 0 falls back to DefaultTimeout.
func NewClient(baseURL string, store cache.Store, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		store:      store,
		timeout:    timeout,
		logger:     logger,
	}
}

type searchResponse struct {
	Results []searchResult `json:"results"`
}

type searchResult struct {
	Name      string  `json:"name"`
	Country   string  `json:"country"`
	Admin1    string  `json:"admin1"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timezone  string  `json:"timezone"`
}

// Search returns candidate locations for a free-text query, newest-first as
// ranked by the upstream API. Queries shorter than two characters return
// empty without contacting the upstream.
func (c *Client) Search(ctx context.Context, query string, limit int) []models.GeoLocation {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < MinQueryLength {
		return []models.GeoLocation{}
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	if limit > MaxSearchLimit {
		limit = MaxSearchLimit
	}

	cacheKey := fmt.Sprintf("geo:search:%s:%d", strings.ToLower(query), limit)
	var cached []models.GeoLocation
	if hit, err := c.store.Get(ctx, cacheKey, &cached); err != nil {
		c.logger.Warn("geo_cache_read_failed", zap.Error(err))
	} else if hit {
		return cached
	}

	results, err := c.fetch(ctx, query, limit)
	if err != nil {
		c.logger.Warn("geo_search_failed",
			zap.String("query", query),
			zap.Error(err),
		)
		return []models.GeoLocation{}
	}

	if err := c.store.Set(ctx, cacheKey, results, searchCacheTTL); err != nil {
		c.logger.Warn("geo_cache_write_failed", zap.Error(err))
	}
	return results
}

// Resolve maps a city name to a single location. It never fails: empty
// input, timeouts, non-2xx responses, and empty result sets all return the
// fixed default location.
func (c *Client) Resolve(ctx context.Context, cityName string) models.GeoLocation {
	cityName = strings.TrimSpace(cityName)
	if cityName == "" {
		return models.DefaultLocation()
	}

	cacheKey := "geo:city:" + strings.ToLower(cityName)
	var cached models.GeoLocation
	if hit, err := c.store.Get(ctx, cacheKey, &cached); err != nil {
		c.logger.Warn("geo_cache_read_failed", zap.Error(err))
	} else if hit {
		return cached
	}

	results, err := c.fetch(ctx, cityName, 1)
	if err != nil || len(results) == 0 {
		if err != nil {
			c.logger.Warn("geo_resolve_failed",
				zap.String("city", cityName),
				zap.Error(err),
			)
		}
		return models.DefaultLocation()
	}

	loc := results[0]
	if err := c.store.Set(ctx, cacheKey, loc, resolveCacheTTL); err != nil {
		c.logger.Warn("geo_cache_write_failed", zap.Error(err))
	}
	return loc
}

func (c *Client) fetch(ctx context.Context, query string, limit int) ([]models.GeoLocation, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	u := fmt.Sprintf("%s/v1/search?name=%s&count=%d&format=json",
		c.baseURL, url.QueryEscape(query), limit)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build geocoding request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocoding request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocoding upstream status %d", resp.StatusCode)
	}

	var decoded searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode geocoding response: %w", err)
	}

	locations := make([]models.GeoLocation, 0, len(decoded.Results))
	for _, r := range decoded.Results {
		locations = append(locations, models.GeoLocation{
			City:     r.Name,
			Country:  r.Country,
			Admin1:   r.Admin1,
			Lat:      r.Latitude,
			Lon:      r.Longitude,
			Timezone: r.Timezone,
		})
	}
	return locations, nil
}
