package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/mark3labs/mcp-go/server"
)

func (s *Server) routes() http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(requestLogger)
	if s.metrics != nil {
		router.Use(s.metrics.Middleware)
	}
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.config.CORSAllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID", "Mcp-Session-Id"},
		ExposedHeaders: []string{"X-Request-ID", "Mcp-Session-Id"},
		MaxAge:         300,
	}))

	router.Get("/", s.handleRoot)
	router.Get("/healthz", s.handleHealth)
	if s.metrics != nil {
		router.Handle("/metrics", s.metrics.Handler())
	}

	router.Group(func(r chi.Router) {
		if s.config.RequestTimeout > 0 {
			r.Use(chimiddleware.Timeout(s.config.RequestTimeout))
		}

		r.Get("/products-by-category", s.handleProductsByCategory)

		r.Route("/api", func(r chi.Router) {
			r.Get("/neo4j-test", s.handleNeo4jTest)
			r.Get("/schema", s.handleSchema)
			r.Get("/pagerank", s.handlePageRank)
			r.Get("/louvain", s.handleLouvain)
			r.Get("/dijkstra", s.handleDijkstra)
			r.Get("/dijkstra/path", s.handleDijkstraPath)
			// legacy spelling; it always served the weighted path form
			r.Get("/djikstra", s.handleDijkstraPath)
			r.Get("/djikstra/path", s.handleDijkstraPath)

			r.Route("/projections", func(r chi.Router) {
				r.Get("/", s.handleListProjections)
				r.Post("/{name}/invalidate", s.handleInvalidateProjection)
				r.Delete("/{name}", s.handleDropProjection)
			})
		})
	})

	router.Handle("/mcp", server.NewStreamableHTTPServer(s.MCPServer))

	return router
}

// requestLogger logs one line per request.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		slog.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", chimiddleware.GetReqID(r.Context()))
	})
}
