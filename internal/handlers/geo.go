package handlers

import (
	"net/http"
	"strconv"

	"github.com/astralume/astral-api/internal/services/geo"
	"github.com/gorilla/mux"
)

// GeoHandler serves location search and resolution.
type GeoHandler struct {
	client *geo.Client
}

// NewGeoHandler creates the geo handler.
func NewGeoHandler(client *geo.Client) *GeoHandler {
	return &GeoHandler{client: client}
}

// RegisterRoutes registers geo routes. The router should already carry the
// /geo prefix.
func (h *GeoHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/search", h.Search).Methods("GET")
	r.HandleFunc("/resolve", h.Resolve).Methods("GET")
}

// Search returns candidate locations for a free-text query. Degradation is
// handled inside the client, so this route always returns 200.
func (h *GeoHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")

	limit := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid limit: "+l)
			return
		}
		limit = parsed
	}

	results := h.client.Search(r.Context(), query, limit)
	respondJSON(w, http.StatusOK, map[string]any{
		"query":   query,
		"results": results,
	})
}

// Resolve maps a city name to a single location, falling back to the default
// location on any failure.
func (h *GeoHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	city := r.URL.Query().Get("city")
	loc := h.client.Resolve(r.Context(), city)
	respondJSON(w, http.StatusOK, map[string]any{
		"query":    city,
		"location": loc,
	})
}
