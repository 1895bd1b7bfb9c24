package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/mkd-neo4j/neo4j-supplychain-gds/internal/gds"
	"github.com/mkd-neo4j/neo4j-supplychain-gds/internal/gdserr"
	"github.com/mkd-neo4j/neo4j-supplychain-gds/internal/queries"
	"github.com/mkd-neo4j/neo4j-supplychain-gds/internal/tools/graph"
)

const welcomeMessage = "Welcome to the supply chain analytics API with Neo4j"

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error     string `json:"error"`
	Kind      string `json:"kind,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": welcomeMessage})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.dbService.VerifyConnectivity(r.Context()); err != nil {
		slog.Warn("health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable", "gds": s.gdsInstalled})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "gds": s.gdsInstalled})
}

func (s *Server) handleNeo4jTest(w http.ResponseWriter, r *http.Request) {
	message, err := queries.Ping(r.Context(), s.dbService)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": message})
}

func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	schema, err := queries.Schema(r.Context(), s.dbService)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, schema)
}

func (s *Server) handleProductsByCategory(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit")
	if err != nil {
		writeError(w, r, err)
		return
	}
	products, err := queries.ProductsByCategory(r.Context(), s.dbService, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (s *Server) handlePageRank(w http.ResponseWriter, r *http.Request) {
	req := gds.AlgorithmRequest{Kind: gds.KindCentrality, Order: gds.Order(r.URL.Query().Get("order"))}

	var err error
	if req.Limit, err = intParam(r, "limit"); err != nil {
		writeError(w, r, err)
		return
	}
	if req.MaxIterations, err = intParam(r, "maxIterations"); err != nil {
		writeError(w, r, err)
		return
	}
	if req.DampingFactor, err = floatParam(r, "dampingFactor"); err != nil {
		writeError(w, r, err)
		return
	}
	s.runAlgorithm(w, r, req)
}

func (s *Server) handleLouvain(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit")
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.runAlgorithm(w, r, gds.AlgorithmRequest{
		Kind:  gds.KindCommunity,
		Limit: limit,
		Order: gds.Order(r.URL.Query().Get("order")),
	})
}

func (s *Server) handleDijkstra(w http.ResponseWriter, r *http.Request) {
	s.runShortestPath(w, r, gds.FormCost)
}

func (s *Server) handleDijkstraPath(w http.ResponseWriter, r *http.Request) {
	s.runShortestPath(w, r, gds.FormPath)
}

// runShortestPath starts from the catalog defaults for form and applies
// query overrides: source/target set the selector values, and
// sourceLabel/sourceProperty/targetLabel/targetProperty/weight the rest.
func (s *Server) runShortestPath(w http.ResponseWriter, r *http.Request, form gds.Form) {
	req := gds.AlgorithmRequest{Kind: gds.KindShortestPath, Form: form}
	if entry, err := s.orchestrator.Catalog().Lookup(gds.KindShortestPath); err == nil {
		req = entry.DefaultRequest(form)
	}

	q := r.URL.Query()
	req.Source = overrideSelector(req.Source, q.Get("sourceLabel"), q.Get("sourceProperty"), q.Get("source"))
	req.Target = overrideSelector(req.Target, q.Get("targetLabel"), q.Get("targetProperty"), q.Get("target"))
	if q.Has("weight") {
		req.WeightProperty = strings.TrimSpace(q.Get("weight"))
	}

	s.runAlgorithm(w, r, req)
}

func overrideSelector(sel *gds.Selector, label, property, value string) *gds.Selector {
	if label == "" && property == "" && value == "" {
		return sel
	}
	out := gds.Selector{}
	if sel != nil {
		out = *sel
	}
	if label != "" {
		out.Label = label
	}
	if property != "" {
		out.Property = property
		out.DisplayProperty = ""
	}
	if value != "" {
		out.Value = value
	}
	return &out
}

func (s *Server) runAlgorithm(w http.ResponseWriter, r *http.Request, req gds.AlgorithmRequest) {
	records, err := s.orchestrator.Run(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleListProjections(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, graph.Overview(s.orchestrator))
}

func (s *Server) handleInvalidateProjection(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	known := s.orchestrator.Invalidate(name)
	writeJSON(w, http.StatusOK, map[string]any{"name": name, "stale": known})
}

func (s *Server) handleDropProjection(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	dropped, err := s.orchestrator.Drop(r.Context(), name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"name": name, "dropped": dropped})
}

func intParam(r *http.Request, name string) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, gdserr.Errorf(gdserr.KindInvalidRequest, "parse", fmt.Sprintf("%s must be an integer, got %q", name, raw))
	}
	return v, nil
}

func floatParam(r *http.Request, name string) (float64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, gdserr.Errorf(gdserr.KindInvalidRequest, "parse", fmt.Sprintf("%s must be a number, got %q", name, raw))
	}
	return v, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := gdserr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "path", r.URL.Path, "status", status, "error", err)
	} else {
		slog.Warn("request rejected", "path", r.URL.Path, "status", status, "error", err)
	}
	writeJSON(w, status, ErrorResponse{
		Error:     err.Error(),
		Kind:      string(gdserr.KindOf(err)),
		RequestID: chimiddleware.GetReqID(r.Context()),
	})
}
