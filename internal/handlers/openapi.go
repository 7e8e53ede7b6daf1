package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gorilla/mux"
	"gopkg.in/yaml.v3"
)

// OpenAPIHandler serves the API description as YAML and JSON
type OpenAPIHandler struct {
	path string

	once    sync.Once
	yamlDoc []byte
	jsonDoc []byte
	loadErr error
}

// NewOpenAPIHandler creates a handler for the document at openAPIPath
func NewOpenAPIHandler(openAPIPath string) *OpenAPIHandler {
	absPath, err := filepath.Abs(filepath.Clean(openAPIPath))
	if err != nil {
		absPath = openAPIPath
	}
	return &OpenAPIHandler{path: absPath}
}

// RegisterRoutes registers OpenAPI routes on the /api subrouter
func (h *OpenAPIHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/openapi.yaml", h.ServeYAML).Methods("GET")
	r.HandleFunc("/openapi.json", h.ServeJSON).Methods("GET")
}

// load reads the document once and keeps both encodings.
func (h *OpenAPIHandler) load() error {
	h.once.Do(func() {
		ext := strings.ToLower(filepath.Ext(h.path))
		if ext != ".yaml" && ext != ".yml" {
			h.loadErr = fmt.Errorf("openapi document must be yaml: %s", filepath.Base(h.path))
			return
		}

		data, err := os.ReadFile(h.path)
		if err != nil {
			h.loadErr = err
			return
		}

		var doc map[string]any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			h.loadErr = fmt.Errorf("parse openapi document: %w", err)
			return
		}
		encoded, err := json.Marshal(doc)
		if err != nil {
			h.loadErr = fmt.Errorf("encode openapi document: %w", err)
			return
		}
		h.yamlDoc = data
		h.jsonDoc = encoded
	})
	return h.loadErr
}

// ServeYAML serves the document as YAML
func (h *OpenAPIHandler) ServeYAML(w http.ResponseWriter, r *http.Request) {
	if err := h.load(); err != nil {
		respondJSONError(w, http.StatusNotFound, "Not Found", "OpenAPI specification not found")
		return
	}
	w.Header().Set("Content-Type", "application/x-yaml")
	_, _ = w.Write(h.yamlDoc)
}

// ServeJSON serves the document converted to JSON
func (h *OpenAPIHandler) ServeJSON(w http.ResponseWriter, r *http.Request) {
	if err := h.load(); err != nil {
		respondJSONError(w, http.StatusNotFound, "Not Found", "OpenAPI specification not found")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(h.jsonDoc)
}
