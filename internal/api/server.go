// Package api exposes the model retrieval service over HTTP.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/modelsmith/tailor-cli/internal/catalog"
	"github.com/modelsmith/tailor-cli/internal/metrics"
	"github.com/modelsmith/tailor-cli/internal/retrieval"
)

// Server is the tailor HTTP API server.
type Server struct {
	catalog   *catalog.Catalog
	retriever *retrieval.Retriever
	version   string
}

// NewServer creates a new API server over a loaded catalog and its
// retriever.
func NewServer(cat *catalog.Catalog, retriever *retrieval.Retriever, version string) *Server {
	return &Server{catalog: cat, retriever: retriever, version: version}
}

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(2 * time.Minute))
	r.Use(countRequests)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status":  "ok",
			"version": s.version,
		})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Get("/models", s.handleListModels)
		r.Post("/retrieve", s.handleRetrieve)
	})

	// Prometheus metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	return r
}

// ─── Handlers ───────────────────────────────────────────────────────────────

type modelEntry struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Family      string   `json:"family,omitempty"`
	Parameters  string   `json:"parameters,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// handleListModels returns the catalog, optionally filtered by the q
// query parameter.
func (s *Server) handleListModels(w http.ResponseWriter, r *http.Request) {
	records := s.catalog.Records
	if q := r.URL.Query().Get("q"); q != "" {
		records = catalog.Filter(records, q, 0)
	}

	models := make([]modelEntry, len(records))
	for i, rec := range records {
		models[i] = modelEntry{
			ID:          rec.ID,
			Name:        rec.Name,
			Description: rec.Description,
			Family:      rec.Family,
			Parameters:  rec.Parameters,
			Tags:        rec.Tags,
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"models": models,
		"count":  len(models),
	})
}

type retrieveRequest struct {
	Description string `json:"description"`
	K           int    `json:"k,omitempty"`
}

type retrieveResponse struct {
	Matched    bool                  `json:"matched"`
	Model      string                `json:"model,omitempty"`
	Score      float64               `json:"score"`
	Candidates []retrieval.Candidate `json:"candidates"`
}

// handleRetrieve ranks the catalog against a task description. A query
// that no model fits is a normal 200 response with matched=false; only
// encoder or index failures produce a 500.
func (s *Server) handleRetrieve(w http.ResponseWriter, r *http.Request) {
	var req retrieveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Description) == "" {
		writeError(w, http.StatusBadRequest, "description is required")
		return
	}
	if req.K < 0 {
		writeError(w, http.StatusBadRequest, "k must be >= 0")
		return
	}

	result, err := s.retriever.Retrieve(r.Context(), req.Description)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "retrieval failed: "+err.Error())
		return
	}

	candidates := result.Candidates
	if req.K > 0 && req.K < len(candidates) {
		candidates = candidates[:req.K]
	}
	resp := retrieveResponse{
		Matched:    result.Matched,
		Score:      result.Best.Score,
		Candidates: candidates,
	}
	if result.Matched {
		resp.Model = result.Best.Name
	}
	writeJSON(w, http.StatusOK, resp)
}

// ─── Helpers ────────────────────────────────────────────────────────────────

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    "error",
		},
	})
}

// countRequests records every request in the http_requests_total
// counter, labelled by the matched route pattern and status code.
func countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(ww.Status())).Inc()
	})
}
