// Package handlers contains the HTTP route handlers. Handlers are thin:
// they parse and validate the request, call a service, and shape the
// response. Success responses are flat JSON objects; error responses are
// {"error": message} with an extra "reason" field for AI outages.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/astralume/astral-api/internal/logger"
	"github.com/astralume/astral-api/internal/models"
	"github.com/astralume/astral-api/internal/services/ai"
)

// respondJSON writes a JSON body with the given status.
func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}

// respondError writes {"error": message}.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]any{"error": message})
}

// respondGenerationError maps generation failures onto the API error
// contract: an unreachable LLM is 503 with a reason, everything else
// (template lookup, context serialization, cache persistence) is 500.
func respondGenerationError(w http.ResponseWriter, err error) {
	var unavailable *ai.UnavailableError
	if errors.As(err, &unavailable) {
		respondJSON(w, http.StatusServiceUnavailable, map[string]any{
			"error":  "AI unavailable",
			"reason": unavailable.Reason,
		})
		return
	}
	respondError(w, http.StatusInternalServerError, logger.SanitizeError(err))
}

// respondContent writes a generated-content success body, merging any
// route-specific domain fields into the flat response object.
func respondContent(w http.ResponseWriter, content *models.GeneratedContent, domainFields map[string]any) {
	body := map[string]any{
		"lang":    content.Lang,
		"content": content.Content,
	}
	if content.Meta != nil {
		body["meta"] = content.Meta
	}
	for k, v := range domainFields {
		body[k] = v
	}
	respondJSON(w, http.StatusOK, body)
}

// decodeJSON decodes a request body into dst, rejecting unknown fields.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}
