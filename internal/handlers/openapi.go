package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// OpenAPIHandler serves the API description. The YAML file is read and
// parsed once; info.version is stamped with the running build so clients can
// tell which server produced the document.
type OpenAPIHandler struct {
	path    string
	version string
	logger  *zap.Logger

	once    sync.Once
	rawYAML []byte
	rawJSON []byte
	loadErr error
}

// NewOpenAPIHandler creates a handler for the document at path
func NewOpenAPIHandler(path, version string, logger *zap.Logger) *OpenAPIHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	absPath, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		absPath = filepath.Clean(path)
	}
	return &OpenAPIHandler{path: absPath, version: version, logger: logger}
}

// RegisterRoutes registers OpenAPI routes
func (h *OpenAPIHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/v1/openapi.yaml", h.ServeYAML).Methods("GET")
	r.HandleFunc("/api/v1/openapi.json", h.ServeJSON).Methods("GET")
}

func (h *OpenAPIHandler) load() error {
	h.once.Do(func() {
		data, err := os.ReadFile(h.path)
		if err != nil {
			h.loadErr = fmt.Errorf("read openapi document: %w", err)
			return
		}

		var doc map[string]any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			h.loadErr = fmt.Errorf("parse openapi document: %w", err)
			return
		}
		if h.version != "" {
			if info, ok := doc["info"].(map[string]any); ok {
				info["version"] = h.version
			}
		}

		if h.rawYAML, err = yaml.Marshal(doc); err != nil {
			h.loadErr = fmt.Errorf("render openapi yaml: %w", err)
			return
		}
		if h.rawJSON, err = json.Marshal(doc); err != nil {
			h.loadErr = fmt.Errorf("render openapi json: %w", err)
		}
	})
	if h.loadErr != nil {
		h.logger.Error("openapi_document_unavailable", zap.String("path", h.path), zap.Error(h.loadErr))
	}
	return h.loadErr
}

// ServeYAML serves the document as YAML
func (h *OpenAPIHandler) ServeYAML(w http.ResponseWriter, r *http.Request) {
	if err := h.load(); err != nil {
		http.Error(w, "OpenAPI document not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/x-yaml")
	_, _ = w.Write(h.rawYAML)
}

// ServeJSON serves the document converted to JSON
func (h *OpenAPIHandler) ServeJSON(w http.ResponseWriter, r *http.Request) {
	if err := h.load(); err != nil {
		http.Error(w, "OpenAPI document not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(h.rawJSON)
}
