// Package processor evaluates query ASTs against the context index: term
// normalization per context, index dispatch, word/doc limiting, and
// combination through the intermediate-result algebra.
package processor

import (
	"context"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/seralab/contexture/internal/analyzer"
	"github.com/seralab/contexture/internal/index"
	"github.com/seralab/contexture/internal/postings"
	"github.com/seralab/contexture/internal/query"
	"github.com/seralab/contexture/internal/result"
	"github.com/seralab/contexture/internal/schema"
	"github.com/seralab/contexture/pkg/config"
	enginerr "github.com/seralab/contexture/pkg/errors"
)

// Processor evaluates queries against one consistent snapshot of the
// indexer. It is read-only and safe for concurrent use as long as the
// snapshot is not mutated underneath it.
type Processor struct {
	cfg    config.EngineConfig
	sch    schema.Schema
	types  *schema.TypeRegistry
	cix    *index.ContextIndex
	logger *slog.Logger
}

// New builds a processor over the given indexer snapshot.
func New(cfg config.EngineConfig, sch schema.Schema, types *schema.TypeRegistry, cix *index.ContextIndex) *Processor {
	return &Processor{
		cfg:    cfg,
		sch:    sch,
		types:  types,
		cix:    cix,
		logger: slog.Default().With("component", "query-processor"),
	}
}

// Process evaluates q. The active contexts start as the schema's default
// contexts (all contexts if none is marked default) and are narrowed by
// context sub-queries.
func (p *Processor) Process(ctx context.Context, q query.Query) (result.Intermediate, error) {
	if p.cfg.Optimize {
		q = query.Optimize(q)
	}
	active := p.sch.DefaultContexts()
	if len(active) == 0 {
		active = p.sch.Contexts()
	}
	p.logger.Debug("evaluating query", "query", query.String(q), "contexts", active)
	return p.eval(ctx, q, active)
}

func (p *Processor) eval(ctx context.Context, q query.Query, active []schema.Context) (result.Intermediate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch t := q.(type) {
	case query.Word:
		if t.Match == query.MatchFuzzy {
			return p.evalFuzzyWord(ctx, t.Text, active)
		}
		return p.evalWord(ctx, wordMode(t.Match), t.Text, active)

	case query.Phrase:
		if t.Match == query.MatchFuzzy {
			return p.evalFuzzyPhrase(ctx, t.Text, active)
		}
		return p.evalPhrase(ctx, phraseMode(t.Match), t.Text, active)

	case query.Context:
		for _, c := range t.Contexts {
			if _, ok := p.sch[c]; !ok {
				return nil, enginerr.Newf(enginerr.ErrContextNotFound, enginerr.CodeNotFound,
					"context %q does not exist", c)
			}
		}
		return p.eval(ctx, t.Query, t.Contexts)

	case query.Binary:
		return p.evalBinary(ctx, t, active)

	case query.Range:
		return p.evalRange(ctx, t.Lower, t.Upper, active)

	case query.Boost:
		im, err := p.eval(ctx, t.Query, active)
		if err != nil {
			return nil, err
		}
		return result.Boosted(im, t.Factor), nil
	}

	return nil, enginerr.Newf(enginerr.ErrInternal, enginerr.CodeInternal,
		"unhandled query node %T", q)
}

// evalWord prefix-searches a single word in every active context and
// merges the per-context results.
func (p *Processor) evalWord(ctx context.Context, mode index.Mode, text string, active []schema.Context) (result.Intermediate, error) {
	pairs := make([]index.CxTerm, 0, len(active))
	for _, cx := range active {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		norm, err := p.normalize(cx, text)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, index.CxTerm{Context: cx, Term: norm})
	}

	results := p.cix.SearchWithCxsNormalized(mode, pairs)
	for i := range results {
		results[i].Raw = limitRawResult(p.cfg.WordLimit, p.cfg.DocLimit, results[i].Raw)
	}
	return result.FromListCxs(p.sch, []string{text}, results), nil
}

// evalFuzzyWord evaluates the word and its near-spellings, each as a
// case-insensitive word, merging in increasing edit distance so the doc
// limit keeps the closest spellings.
func (p *Processor) evalFuzzyWord(ctx context.Context, text string, active []schema.Context) (result.Intermediate, error) {
	candidates := append([]FuzzyCandidate{{Word: text, Dist: 0}}, Fuzz(p.cfg.Fuzzy, text)...)
	parts := make([]result.Intermediate, 0, len(candidates))
	for _, c := range candidates {
		im, err := p.evalWord(ctx, index.PrefixNoCase, c.Word, active)
		if err != nil {
			return nil, err
		}
		parts = append(parts, im)
	}
	return result.MergesDocLimited(p.cfg.DocLimit, parts), nil
}

// evalPhrase evaluates a phrase in every active context and merges the
// results.
func (p *Processor) evalPhrase(ctx context.Context, mode index.Mode, text string, active []schema.Context) (result.Intermediate, error) {
	parts := make([]result.Intermediate, 0, len(active))
	for _, cx := range active {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		im, err := p.evalPhraseCx(mode, text, cx)
		if err != nil {
			return nil, err
		}
		parts = append(parts, im)
	}
	return result.Merges(parts), nil
}

// evalPhraseCx runs the positional chain filter in one context: a document
// survives if some occurrence of the first word is followed, position by
// position, by the remaining words. The surviving positions are those of
// the first word.
func (p *Processor) evalPhraseCx(mode index.Mode, text string, cx schema.Context) (result.Intermediate, error) {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil, enginerr.Newf(enginerr.ErrInvalidValue, enginerr.CodeInvalidValue,
			"empty phrase")
	}

	occs := make([]postings.Occurrences, len(words))
	for k, w := range words {
		norm, err := p.normalize(cx, w)
		if err != nil {
			return nil, err
		}
		merged := postings.NewOccurrences()
		for _, e := range p.cix.SearchWithCx(mode, cx, norm) {
			merged = merged.Union(e.Occ)
		}
		if merged.IsEmpty() {
			return result.Empty(), nil
		}
		occs[k] = merged
	}

	survivors := postings.NewOccurrences()
	for id, pos0 := range occs[0] {
		var keep postings.Positions
		for _, cp := range pos0.Slice() {
			matched := true
			for k := 1; k < len(occs); k++ {
				pk, present := occs[k][id]
				if !present || !pk.Contains(cp+k) {
					matched = false
					break
				}
			}
			if matched {
				keep.Add(cp)
			}
		}
		if !keep.IsEmpty() {
			survivors[id] = keep
		}
	}
	if survivors.IsEmpty() {
		return result.Empty(), nil
	}

	raw := index.RawResult{{Key: text, Occ: survivors}}
	return result.FromList(p.sch[cx].Boost(), []string{text}, cx, raw), nil
}

// evalFuzzyPhrase evaluates the phrase and its near-spellings, each
// case-insensitively.
func (p *Processor) evalFuzzyPhrase(ctx context.Context, text string, active []schema.Context) (result.Intermediate, error) {
	candidates := append([]FuzzyCandidate{{Word: text, Dist: 0}}, Fuzz(p.cfg.Fuzzy, text)...)
	parts := make([]result.Intermediate, 0, len(candidates))
	for _, c := range candidates {
		im, err := p.evalPhrase(ctx, index.NoCase, c.Word, active)
		if err != nil {
			return nil, err
		}
		parts = append(parts, im)
	}
	return result.MergesDocLimited(p.cfg.DocLimit, parts), nil
}

// evalBinary evaluates both children in parallel and combines them with
// the intermediate algebra. Cancellation propagates through the errgroup's
// derived context.
func (p *Processor) evalBinary(ctx context.Context, q query.Binary, active []schema.Context) (result.Intermediate, error) {
	g, gctx := errgroup.WithContext(ctx)
	var left, right result.Intermediate
	g.Go(func() error {
		var err error
		left, err = p.eval(gctx, q.Left, active)
		return err
	})
	g.Go(func() error {
		var err error
		right, err = p.eval(gctx, q.Right, active)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	switch q.Op {
	case query.And:
		return result.Intersection(left, right), nil
	case query.Or:
		return result.Union(left, right), nil
	case query.AndNot:
		return result.Difference(left, right), nil
	}
	return nil, enginerr.Newf(enginerr.ErrInternal, enginerr.CodeInternal,
		"unhandled binary operator %v", q.Op)
}

// evalRange looks up the inclusive term range in every active context. An
// inverted range yields no results.
func (p *Processor) evalRange(ctx context.Context, lower, upper string, active []schema.Context) (result.Intermediate, error) {
	parts := make([]result.Intermediate, 0, len(active))
	for _, cx := range active {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		lo, err := p.normalize(cx, lower)
		if err != nil {
			return nil, err
		}
		hi, err := p.normalize(cx, upper)
		if err != nil {
			return nil, err
		}
		raw := p.cix.LookupRangeCx(cx, lo, hi)
		raw = limitRawResult(p.cfg.WordLimit, p.cfg.DocLimit, raw)
		parts = append(parts, result.FromList(p.sch[cx].Boost(), []string{lower, upper}, cx, raw))
	}
	return result.Merges(parts), nil
}

// normalize runs the context's analyzer over a query term. A term the
// context type cannot represent fails the query with an invalid-value
// error.
func (p *Processor) normalize(cx schema.Context, term string) (string, error) {
	an, err := p.analyzerFor(cx)
	if err != nil {
		return "", err
	}
	norm, err := an.Normalize(term)
	if err != nil {
		return "", enginerr.Newf(enginerr.ErrInvalidValue, enginerr.CodeInvalidValue,
			"term %q not valid in context %q: %v", term, cx, err)
	}
	return norm, nil
}

func (p *Processor) analyzerFor(cx schema.Context) (analyzer.Analyzer, error) {
	cs, ok := p.sch[cx]
	if !ok {
		return nil, enginerr.Newf(enginerr.ErrContextNotFound, enginerr.CodeNotFound,
			"context %q does not exist", cx)
	}
	ct, ok := p.types.Get(cs.Type)
	if !ok {
		return nil, enginerr.Newf(enginerr.ErrUnknownType, enginerr.CodeUnknownType,
			"context type %q is not registered", cs.Type)
	}
	return ct.Analyzer, nil
}

func wordMode(m query.Match) index.Mode {
	if m == query.MatchCase {
		return index.PrefixCase
	}
	return index.PrefixNoCase
}

func phraseMode(m query.Match) index.Mode {
	if m == query.MatchCase {
		return index.Case
	}
	return index.NoCase
}
