// Package server exposes the engine's command surface over HTTP/JSON.
//
// Route table:
//
//	GET    /health                      liveness
//	GET    /api/v1/search               text-syntax query (?q=&offset=&limit=)
//	POST   /api/v1/search               JSON query AST {query, offset, limit}
//	GET    /api/v1/completion           word completions (?q=&limit=)
//	POST   /api/v1/documents            insert document
//	PUT    /api/v1/documents            update document
//	POST   /api/v1/documents/delete     batch delete {uris}
//	GET    /api/v1/contexts             list schema
//	POST   /api/v1/contexts/{name}      create context
//	DELETE /api/v1/contexts/{name}      delete context
//	POST   /api/v1/index/store          persist indexer {path}
//	POST   /api/v1/index/load           restore indexer {path}
//	GET    /api/v1/status               engine statistics
//
// Middleware chain (outermost first): RequestID → Metrics → mux.
package server

import (
	"log/slog"
	"net/http"

	"github.com/seralab/contexture/internal/engine"
	"github.com/seralab/contexture/pkg/config"
	"github.com/seralab/contexture/pkg/metrics"
	"github.com/seralab/contexture/pkg/middleware"
)

// Server handles the HTTP control plane for one engine.
type Server struct {
	engine *engine.Engine
	cache  *QueryCache
	cfg    config.ServerConfig
	logger *slog.Logger
}

// New builds a server. cache may be nil to disable result caching.
func New(e *engine.Engine, cache *QueryCache, cfg config.ServerConfig) *Server {
	return &Server{
		engine: e,
		cache:  cache,
		cfg:    cfg,
		logger: slog.Default().With("component", "server"),
	}
}

// Handler builds the full HTTP handler with all routes and middleware.
// m may be nil to skip HTTP metrics.
func (s *Server) Handler(m *metrics.Metrics) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)

	mux.HandleFunc("GET /api/v1/search", s.handleSearchGet)
	mux.HandleFunc("POST /api/v1/search", s.handleSearchPost)
	mux.HandleFunc("GET /api/v1/completion", s.handleCompletion)

	mux.HandleFunc("POST /api/v1/documents", s.handleInsert)
	mux.HandleFunc("PUT /api/v1/documents", s.handleUpdate)
	mux.HandleFunc("POST /api/v1/documents/delete", s.handleBatchDelete)

	mux.HandleFunc("GET /api/v1/contexts", s.handleListContexts)
	mux.HandleFunc("POST /api/v1/contexts/{name}", s.handleInsertContext)
	mux.HandleFunc("DELETE /api/v1/contexts/{name}", s.handleDeleteContext)

	mux.HandleFunc("POST /api/v1/index/store", s.handleStore)
	mux.HandleFunc("POST /api/v1/index/load", s.handleLoad)

	mux.HandleFunc("GET /api/v1/status", s.handleStatus)

	var chain http.Handler = mux
	if m != nil {
		chain = middleware.Metrics(m)(chain)
	}
	chain = middleware.RequestID(chain)
	return chain
}
