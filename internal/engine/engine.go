package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/seralab/contexture/internal/doctable"
	"github.com/seralab/contexture/internal/index"
	"github.com/seralab/contexture/internal/postings"
	"github.com/seralab/contexture/internal/processor"
	"github.com/seralab/contexture/internal/query"
	"github.com/seralab/contexture/internal/result"
	"github.com/seralab/contexture/internal/schema"
	"github.com/seralab/contexture/pkg/config"
	enginerr "github.com/seralab/contexture/pkg/errors"
	"github.com/seralab/contexture/pkg/metrics"
)

// Indexer bundles the three stores that make up the searchable state. The
// schema's keys and the context index's contexts are always equal.
type Indexer struct {
	Cix    *index.ContextIndex
	Table  *doctable.Table
	Schema schema.Schema
}

// NewIndexer returns an empty indexer.
func NewIndexer() *Indexer {
	return &Indexer{
		Cix:    index.NewContextIndex(),
		Table:  doctable.New(),
		Schema: make(schema.Schema),
	}
}

// Engine executes commands against one live indexer. Queries run
// concurrently under a read lock against a consistent snapshot; mutating
// commands take the write lock, validate completely before touching state,
// and so either apply wholly or not at all.
type Engine struct {
	mu      sync.RWMutex
	ix      *Indexer
	types   *schema.TypeRegistry
	cfg     config.EngineConfig
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// New builds an engine with an empty indexer. metrics may be nil.
func New(cfg config.EngineConfig, types *schema.TypeRegistry, m *metrics.Metrics) *Engine {
	return &Engine{
		ix:      NewIndexer(),
		types:   types,
		cfg:     cfg,
		logger:  slog.Default().With("component", "engine"),
		metrics: m,
	}
}

// Execute runs one command. Errors carry the engine error envelope; a
// failed command leaves the indexer unchanged, except that a failed Sequence
// keeps the effects of the children that ran before the failing one.
func (e *Engine) Execute(ctx context.Context, cmd Command) (res Result, err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = enginerr.Newf(enginerr.ErrInternal, enginerr.CodeInternal,
				"invariant violation in %s: %v", cmd.Kind(), r)
		}
		status := "ok"
		if err != nil {
			status = "error"
			e.logger.Warn("command failed",
				"kind", cmd.Kind(),
				"error", err,
				"latency", time.Since(start),
			)
		}
		if e.metrics != nil {
			e.metrics.CommandsTotal.WithLabelValues(cmd.Kind(), status).Inc()
		}
	}()

	switch c := cmd.(type) {
	case Search:
		return e.search(ctx, c)
	case Completion:
		return e.completion(ctx, c)
	case Insert:
		return e.insert(c)
	case Update:
		return e.update(c)
	case BatchDelete:
		return e.batchDelete(c)
	case InsertContext:
		return e.insertContext(c)
	case DeleteContext:
		return e.deleteContext(c)
	case StoreIx:
		return e.storeIx(c)
	case LoadIx:
		return e.loadIx(c)
	case Sequence:
		return e.sequence(ctx, c)
	case Noop:
		return ResOK{}, nil
	case Status:
		return e.status()
	}
	return nil, enginerr.Newf(enginerr.ErrCapabilityMissing, enginerr.CodeCapability,
		"command %s is not available", cmd.Kind())
}

func (e *Engine) search(ctx context.Context, c Search) (Result, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	start := time.Now()
	im, err := e.process(ctx, c.Query)
	if err != nil {
		return nil, err
	}
	hits := result.MaterializeDocs(im, e.ix.Table)
	page := rankDocs(hits, c.Offset, c.Limit)

	if e.metrics != nil {
		e.metrics.QueryLatency.WithLabelValues("search").Observe(time.Since(start).Seconds())
		e.metrics.QueryResultsCount.Observe(float64(page.Count))
	}
	return ResSearch{Page: page}, nil
}

func (e *Engine) completion(ctx context.Context, c Completion) (Result, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	start := time.Now()
	im, err := e.process(ctx, c.Query)
	if err != nil {
		return nil, err
	}
	words := rankWords(result.MaterializeWords(im), c.Limit)

	if e.metrics != nil {
		e.metrics.QueryLatency.WithLabelValues("completion").Observe(time.Since(start).Seconds())
	}
	return ResCompletion{Words: words}, nil
}

// process runs the query processor over the current snapshot. Callers hold
// at least the read lock.
func (e *Engine) process(ctx context.Context, q query.Query) (result.Intermediate, error) {
	p := processor.New(e.cfg, e.ix.Schema, e.types, e.ix.Cix)
	return p.Process(ctx, q)
}

func (e *Engine) insert(c Insert) (Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if c.Doc.URI == "" {
		return nil, enginerr.Newf(enginerr.ErrInvalidValue, enginerr.CodeInvalidValue,
			"document without uri")
	}
	if _, exists := e.ix.Table.LookupByURI(c.Doc.URI); exists {
		return nil, enginerr.Newf(enginerr.ErrConflict, enginerr.CodeConflict,
			"document %q already exists", c.Doc.URI)
	}
	entries, err := e.analyzeDoc(c.Doc)
	if err != nil {
		return nil, err
	}

	id := e.ix.Table.Insert(c.Doc)
	e.applyPostings(id, entries)

	if e.metrics != nil {
		e.metrics.DocsIndexedTotal.Inc()
		e.metrics.LiveDocuments.Set(float64(e.ix.Table.Size()))
	}
	e.logger.Debug("document inserted", "uri", c.Doc.URI, "doc_id", id)
	return ResOK{}, nil
}

func (e *Engine) update(c Update) (Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	id, exists := e.ix.Table.LookupByURI(c.Doc.URI)
	if !exists {
		return nil, enginerr.Newf(enginerr.ErrConflict, enginerr.CodeConflict,
			"document %q does not exist", c.Doc.URI)
	}
	entries, err := e.analyzeDoc(c.Doc)
	if err != nil {
		return nil, err
	}

	e.ix.Cix.DeleteDocs(postings.NewDocIDSet(id))
	if err := e.ix.Table.Update(id, c.Doc); err != nil {
		panic(fmt.Sprintf("engine: updating validated document: %v", err))
	}
	e.applyPostings(id, entries)

	if e.metrics != nil {
		e.metrics.DocsIndexedTotal.Inc()
	}
	e.logger.Debug("document updated", "uri", c.Doc.URI, "doc_id", id)
	return ResOK{}, nil
}

func (e *Engine) batchDelete(c BatchDelete) (Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	uris := make(map[string]struct{}, len(c.URIs))
	for _, u := range c.URIs {
		uris[u] = struct{}{}
	}
	removed := e.ix.Table.DifferenceByURI(uris)
	e.ix.Cix.DeleteDocs(removed)

	if e.metrics != nil {
		e.metrics.DocsDeletedTotal.Add(float64(removed.Len()))
		e.metrics.LiveDocuments.Set(float64(e.ix.Table.Size()))
	}
	e.logger.Info("documents deleted", "requested", len(c.URIs), "removed", removed.Len())
	return ResOK{}, nil
}

func (e *Engine) insertContext(c InsertContext) (Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.ix.Schema[c.Context]; exists {
		return nil, enginerr.Newf(enginerr.ErrConflict, enginerr.CodeConflict,
			"context %q already exists", c.Context)
	}
	ct, ok := e.types.Get(c.Schema.Type)
	if !ok {
		return nil, enginerr.Newf(enginerr.ErrUnknownType, enginerr.CodeUnknownType,
			"context type %q is not registered", c.Schema.Type)
	}
	if c.Schema.Weight < 0 {
		return nil, enginerr.Newf(enginerr.ErrInvalidValue, enginerr.CodeInvalidValue,
			"context weight must not be negative")
	}

	// Index and schema change in the same transition.
	if err := e.ix.Cix.InsertContext(c.Context, ct.NewIndex()); err != nil {
		return nil, enginerr.Newf(enginerr.ErrInternal, enginerr.CodeInternal,
			"schema and index out of sync: %v", err)
	}
	e.ix.Schema[c.Context] = c.Schema

	if e.metrics != nil {
		e.metrics.LiveContexts.Set(float64(len(e.ix.Schema)))
	}
	e.logger.Info("context created", "context", c.Context, "type", c.Schema.Type)
	return ResOK{}, nil
}

func (e *Engine) deleteContext(c DeleteContext) (Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.ix.Cix.DeleteContext(c.Context)
	delete(e.ix.Schema, c.Context)

	if e.metrics != nil {
		e.metrics.LiveContexts.Set(float64(len(e.ix.Schema)))
	}
	e.logger.Info("context deleted", "context", c.Context)
	return ResOK{}, nil
}

func (e *Engine) sequence(ctx context.Context, c Sequence) (Result, error) {
	for i, child := range c.Commands {
		if _, err := e.Execute(ctx, child); err != nil {
			return nil, &enginerr.EngineError{
				Err:     err,
				Code:    enginerr.Code(err),
				Message: fmt.Sprintf("sequence aborted at command %d (%s)", i, child.Kind()),
			}
		}
	}
	return ResOK{}, nil
}

func (e *Engine) status() (Result, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return ResStatus{
		Documents: e.ix.Table.Size(),
		Contexts:  e.ix.Schema.Clone(),
		Terms:     e.ix.Cix.TermCount(),
	}, nil
}

// analyzeDoc validates that every context the document mentions exists and
// tokenizes its fields into per-context posting entries. Nothing is
// mutated, so a failing document leaves the indexer untouched.
func (e *Engine) analyzeDoc(doc doctable.Document) (map[schema.Context][]index.Entry, error) {
	out := make(map[schema.Context][]index.Entry, len(doc.Index))
	for cx, text := range doc.Index {
		cs, ok := e.ix.Schema[cx]
		if !ok {
			return nil, enginerr.Newf(enginerr.ErrConflict, enginerr.CodeConflict,
				"document %q mentions unknown context %q", doc.URI, cx)
		}
		ct, ok := e.types.Get(cs.Type)
		if !ok {
			return nil, enginerr.Newf(enginerr.ErrUnknownType, enginerr.CodeUnknownType,
				"context type %q is not registered", cs.Type)
		}
		perWord := make(map[string]postings.Occurrences)
		for _, tok := range ct.Analyzer.Tokenize(text) {
			occ, ok := perWord[tok.Word]
			if !ok {
				occ = postings.NewOccurrences()
				perWord[tok.Word] = occ
			}
			occ.Add(0, tok.Position) // placeholder id, rewritten on apply
		}
		entries := make([]index.Entry, 0, len(perWord))
		for w, occ := range perWord {
			entries = append(entries, index.Entry{Key: w, Occ: occ})
		}
		out[cx] = entries
	}
	return out, nil
}

// applyPostings rewrites the analyzed entries to the minted DocID and
// inserts them. Callers hold the write lock and have already validated the
// contexts.
func (e *Engine) applyPostings(id postings.DocID, analyzed map[schema.Context][]index.Entry) {
	for cx, entries := range analyzed {
		final := make([]index.Entry, len(entries))
		for i, entry := range entries {
			occ := postings.NewOccurrences()
			for _, pos := range entry.Occ {
				occ[id] = pos
			}
			final[i] = index.Entry{Key: entry.Key, Occ: occ}
		}
		if err := e.ix.Cix.InsertListCx(cx, postings.MergeOccurrences, final); err != nil {
			panic(fmt.Sprintf("engine: inserting postings into validated context %q: %v", cx, err))
		}
	}
}
