package handlers

import (
	"net/http"
)

// Endpoints lists the public routes in the order they are documented.
var Endpoints = []string{
	"GET /api/search?query=&category=&sort=&limit=&cursor=&paginated=",
	"GET /api/item/{assetId}",
	"GET /api/item-catalog/{assetId}",
	"GET /api/popular",
	"GET /api/popular/{category}",
	"GET /api/category/{category}?limit=",
	"GET /health",
	"GET /metrics",
	"GET /api/openapi.yaml",
	"GET /api/openapi.json",
}

// ServiceInfo is the body of GET /.
type ServiceInfo struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Description string   `json:"description"`
	Endpoints   []string `json:"endpoints"`
}

// RootHandler serves the service directory and the not found reply.
type RootHandler struct {
	info ServiceInfo
}

// NewRootHandler creates a root handler reporting version.
func NewRootHandler(name, version string) *RootHandler {
	return &RootHandler{info: ServiceInfo{
		Name:        name,
		Version:     version,
		Description: "Rate limited, cached proxy for the public catalog API",
		Endpoints:   Endpoints,
	}}
}

// Index handles GET /
func (h *RootHandler) Index(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.info)
}

// NotFound answers unmatched routes with the endpoint directory.
func (h *RootHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusNotFound, ErrorResponse{
		Error:              "Not Found",
		Message:            "The requested endpoint does not exist",
		AvailableEndpoints: h.info.Endpoints,
	})
}
