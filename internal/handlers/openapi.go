package handlers

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"github.com/gorilla/mux"
	"gopkg.in/yaml.v3"
)

// OpenAPIHandler serves the API description in YAML and JSON.
type OpenAPIHandler struct {
	path string

	once sync.Once
	data []byte
	err  error
}

// NewOpenAPIHandler creates a handler for the spec file at path.
func NewOpenAPIHandler(path string) *OpenAPIHandler {
	abs, _ := filepath.Abs(path)
	return &OpenAPIHandler{path: abs}
}

// RegisterRoutes registers the spec routes on the root router.
func (h *OpenAPIHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/v1/openapi.yaml", h.ServeYAML).Methods("GET")
	r.HandleFunc("/api/v1/openapi.json", h.ServeJSON).Methods("GET")
}

// load reads the spec file once; the file does not change while the process
// runs.
func (h *OpenAPIHandler) load() ([]byte, error) {
	h.once.Do(func() {
		h.data, h.err = os.ReadFile(h.path)
	})
	return h.data, h.err
}

// ServeYAML serves the spec as YAML.
func (h *OpenAPIHandler) ServeYAML(w http.ResponseWriter, r *http.Request) {
	data, err := h.load()
	if err != nil {
		respondError(w, http.StatusNotFound, "API specification not found")
		return
	}
	w.Header().Set("Content-Type", "application/x-yaml")
	_, _ = w.Write(data)
}

// ServeJSON serves the spec converted to JSON.
func (h *OpenAPIHandler) ServeJSON(w http.ResponseWriter, r *http.Request) {
	data, err := h.load()
	if err != nil {
		respondError(w, http.StatusNotFound, "API specification not found")
		return
	}

	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to parse API specification")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(doc); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to encode response")
	}
}
