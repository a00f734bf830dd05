package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/seralab/contexture/internal/doctable"
	"github.com/seralab/contexture/internal/engine"
	"github.com/seralab/contexture/internal/query"
	"github.com/seralab/contexture/internal/schema"
	"github.com/seralab/contexture/pkg/errors"
	"github.com/seralab/contexture/pkg/logger"
)

// errorBody is the JSON error envelope: the engine error code doubles as
// the HTTP status.
type errorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encoding response failed", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := errors.Code(err)
	s.writeJSON(w, code, errorBody{Code: code, Message: err.Error()})
}

func (s *Server) writeBadRequest(w http.ResponseWriter, format string, args ...any) {
	s.writeJSON(w, http.StatusBadRequest, errorBody{
		Code:    http.StatusBadRequest,
		Message: fmt.Sprintf(format, args...),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "up"})
}

func (s *Server) handleSearchGet(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		s.writeBadRequest(w, "query parameter 'q' is required")
		return
	}
	parsed, err := query.Parse(q)
	if err != nil {
		s.writeBadRequest(w, "parsing query: %v", err)
		return
	}
	offset := s.intParam(r, "offset", 0)
	limit := s.limitParam(r)
	s.runSearch(w, r, parsed, offset, limit, "get|"+q)
}

func (s *Server) handleSearchPost(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Query  json.RawMessage `json:"query"`
		Offset int             `json:"offset"`
		Limit  int             `json:"limit"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeBadRequest(w, "parsing request body: %v", err)
		return
	}
	if len(body.Query) == 0 {
		s.writeBadRequest(w, "missing query")
		return
	}
	parsed, err := query.Unmarshal(body.Query)
	if err != nil {
		s.writeBadRequest(w, "parsing query: %v", err)
		return
	}
	limit := body.Limit
	if limit <= 0 {
		limit = s.cfg.DefaultLimit
	}
	if s.cfg.MaxResults > 0 && limit > s.cfg.MaxResults {
		limit = s.cfg.MaxResults
	}
	s.runSearch(w, r, parsed, body.Offset, limit, "post|"+string(body.Query))
}

func (s *Server) runSearch(w http.ResponseWriter, r *http.Request, q query.Query, offset, limit int, cacheKey string) {
	start := time.Now()
	log := logger.FromContext(r.Context())

	compute := func() (engine.ResultPage, error) {
		res, err := s.engine.Execute(r.Context(), engine.Search{Query: q, Offset: offset, Limit: limit})
		if err != nil {
			return engine.ResultPage{}, err
		}
		return res.(engine.ResSearch).Page, nil
	}

	var page engine.ResultPage
	var err error
	cacheHit := false
	if s.cache != nil {
		key := fmt.Sprintf("%s|%d|%d", cacheKey, offset, limit)
		page, cacheHit, err = s.cache.GetOrCompute(key, compute)
	} else {
		page, err = compute()
	}
	if err != nil {
		s.writeError(w, err)
		return
	}

	log.Info("search completed",
		"query", query.String(q),
		"total_hits", page.Count,
		"returned", len(page.Hits),
		"cache_hit", cacheHit,
		"latency_ms", time.Since(start).Milliseconds(),
	)
	s.writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleCompletion(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		s.writeBadRequest(w, "query parameter 'q' is required")
		return
	}
	parsed, err := query.Parse(q)
	if err != nil {
		s.writeBadRequest(w, "parsing query: %v", err)
		return
	}
	limit := s.limitParam(r)

	res, err := s.engine.Execute(r.Context(), engine.Completion{Query: parsed, Limit: limit})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res.(engine.ResCompletion).Words)
}

func (s *Server) handleInsert(w http.ResponseWriter, r *http.Request) {
	s.mutateDoc(w, r, func(doc doctable.Document) engine.Command {
		return engine.Insert{Doc: doc}
	})
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	s.mutateDoc(w, r, func(doc doctable.Document) engine.Command {
		return engine.Update{Doc: doc}
	})
}

func (s *Server) mutateDoc(w http.ResponseWriter, r *http.Request, mk func(doctable.Document) engine.Command) {
	var doc doctable.Document
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		s.writeBadRequest(w, "parsing document: %v", err)
		return
	}
	if doc.URI == "" {
		s.writeBadRequest(w, "document without uri")
		return
	}
	if _, err := s.engine.Execute(r.Context(), mk(doc)); err != nil {
		s.writeError(w, err)
		return
	}
	s.invalidateCache()
	s.writeJSON(w, http.StatusOK, map[string]string{"uri": doc.URI})
}

func (s *Server) handleBatchDelete(w http.ResponseWriter, r *http.Request) {
	var body struct {
		URIs []string `json:"uris"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeBadRequest(w, "parsing request body: %v", err)
		return
	}
	if _, err := s.engine.Execute(r.Context(), engine.BatchDelete{URIs: body.URIs}); err != nil {
		s.writeError(w, err)
		return
	}
	s.invalidateCache()
	s.writeJSON(w, http.StatusOK, map[string]int{"requested": len(body.URIs)})
}

func (s *Server) handleListContexts(w http.ResponseWriter, r *http.Request) {
	res, err := s.engine.Execute(r.Context(), engine.Status{})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res.(engine.ResStatus).Contexts)
}

func (s *Server) handleInsertContext(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	var cs schema.ContextSchema
	if err := json.NewDecoder(r.Body).Decode(&cs); err != nil {
		s.writeBadRequest(w, "parsing context schema: %v", err)
		return
	}
	if _, err := s.engine.Execute(r.Context(), engine.InsertContext{Context: name, Schema: cs}); err != nil {
		s.writeError(w, err)
		return
	}
	s.invalidateCache()
	s.writeJSON(w, http.StatusOK, map[string]string{"context": name})
}

func (s *Server) handleDeleteContext(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if _, err := s.engine.Execute(r.Context(), engine.DeleteContext{Context: name}); err != nil {
		s.writeError(w, err)
		return
	}
	s.invalidateCache()
	s.writeJSON(w, http.StatusOK, map[string]string{"context": name})
}

func (s *Server) handleStore(w http.ResponseWriter, r *http.Request) {
	s.persist(w, r, func(path string) engine.Command { return engine.StoreIx{Path: path} })
}

func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	defer s.invalidateCache()
	s.persist(w, r, func(path string) engine.Command { return engine.LoadIx{Path: path} })
}

func (s *Server) persist(w http.ResponseWriter, r *http.Request, mk func(string) engine.Command) {
	var body struct {
		Path string `json:"path"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeBadRequest(w, "parsing request body: %v", err)
		return
	}
	if body.Path == "" {
		s.writeBadRequest(w, "missing path")
		return
	}
	if _, err := s.engine.Execute(r.Context(), mk(body.Path)); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"path": body.Path})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	res, err := s.engine.Execute(r.Context(), engine.Status{})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) invalidateCache() {
	if s.cache != nil {
		s.cache.Invalidate()
	}
}

func (s *Server) intParam(r *http.Request, name string, def int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func (s *Server) limitParam(r *http.Request) int {
	limit := s.intParam(r, "limit", s.cfg.DefaultLimit)
	if limit < 1 {
		limit = s.cfg.DefaultLimit
	}
	if s.cfg.MaxResults > 0 && limit > s.cfg.MaxResults {
		limit = s.cfg.MaxResults
	}
	return limit
}
