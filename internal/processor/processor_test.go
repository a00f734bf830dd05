package processor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seralab/contexture/internal/index"
	"github.com/seralab/contexture/internal/postings"
	"github.com/seralab/contexture/internal/query"
	"github.com/seralab/contexture/internal/schema"
	"github.com/seralab/contexture/pkg/config"
	enginerr "github.com/seralab/contexture/pkg/errors"
)

// buildIndex analyzes and indexes the given documents (DocID → context →
// text) against the schema, the way the engine's ingestion path does.
func buildIndex(t *testing.T, sch schema.Schema, docs map[postings.DocID]map[string]string) *index.ContextIndex {
	t.Helper()
	reg := schema.DefaultRegistry()
	cix := index.NewContextIndex()
	for cx, cs := range sch {
		ct, ok := reg.Get(cs.Type)
		require.True(t, ok, "type %s", cs.Type)
		require.NoError(t, cix.InsertContext(cx, ct.NewIndex()))
	}
	for id, fields := range docs {
		for cx, text := range fields {
			ct, _ := reg.Get(sch[cx].Type)
			perWord := make(map[string]postings.Occurrences)
			for _, tok := range ct.Analyzer.Tokenize(text) {
				occ, ok := perWord[tok.Word]
				if !ok {
					occ = postings.NewOccurrences()
					perWord[tok.Word] = occ
				}
				occ.Add(id, tok.Position)
			}
			entries := make([]index.Entry, 0, len(perWord))
			for w, occ := range perWord {
				entries = append(entries, index.Entry{Key: w, Occ: occ})
			}
			require.NoError(t, cix.InsertListCx(cx, postings.MergeOccurrences, entries))
		}
	}
	return cix
}

func newProcessor(t *testing.T, cfg config.EngineConfig, sch schema.Schema, cix *index.ContextIndex) *Processor {
	t.Helper()
	return New(cfg, sch, schema.DefaultRegistry(), cix)
}

func defaultSchema() schema.Schema {
	return schema.Schema{
		"subject": {Type: "text", Weight: 2.0, Default: true},
		"content": {Type: "text", Default: true},
	}
}

func TestWordPrefixSearch(t *testing.T) {
	sch := defaultSchema()
	cix := buildIndex(t, sch, map[postings.DocID]map[string]string{
		1: {"content": "hello world"},
	})
	p := newProcessor(t, config.EngineConfig{}, sch, cix)

	im, err := p.Process(context.Background(), query.Word{Match: query.MatchNoCase, Text: "hel"})
	require.NoError(t, err)
	require.Equal(t, 1, im.DocCount())

	entry := im[1]
	we, ok := entry.Contexts["content"]["hello"]
	require.True(t, ok)
	assert.Equal(t, []int{0}, we.Pos.Slice())
	assert.Equal(t, []string{"hel"}, we.Info.Terms)
}

func TestWordCaseSensitivity(t *testing.T) {
	sch := defaultSchema()
	cix := buildIndex(t, sch, map[postings.DocID]map[string]string{
		1: {"content": "Hello"},
	})
	p := newProcessor(t, config.EngineConfig{}, sch, cix)

	im, err := p.Process(context.Background(), query.Word{Match: query.MatchCase, Text: "hel"})
	require.NoError(t, err)
	assert.Zero(t, im.DocCount())

	im, err = p.Process(context.Background(), query.Word{Match: query.MatchNoCase, Text: "hel"})
	require.NoError(t, err)
	assert.Equal(t, 1, im.DocCount())
}

func TestContextRestriction(t *testing.T) {
	sch := defaultSchema()
	cix := buildIndex(t, sch, map[postings.DocID]map[string]string{
		1: {"subject": "cat", "content": "dog"},
	})
	p := newProcessor(t, config.EngineConfig{}, sch, cix)

	// Restricted to content, "cat" finds nothing.
	im, err := p.Process(context.Background(), query.Context{
		Contexts: []string{"content"},
		Query:    query.Word{Match: query.MatchCase, Text: "cat"},
	})
	require.NoError(t, err)
	assert.Zero(t, im.DocCount())

	// Implicit default contexts: found in subject with its weight as boost.
	im, err = p.Process(context.Background(), query.Word{Match: query.MatchCase, Text: "cat"})
	require.NoError(t, err)
	require.Equal(t, 1, im.DocCount())
	assert.InDelta(t, 2.0, im[1].Boost, 1e-9)
}

func TestUnknownContextIs404(t *testing.T) {
	sch := defaultSchema()
	p := newProcessor(t, config.EngineConfig{}, sch, buildIndex(t, sch, nil))

	_, err := p.Process(context.Background(), query.Context{
		Contexts: []string{"no-such"},
		Query:    query.Word{Match: query.MatchNoCase, Text: "x"},
	})
	require.Error(t, err)
	assert.Equal(t, enginerr.CodeNotFound, enginerr.Code(err))
}

func TestEmptyTermIs400(t *testing.T) {
	sch := defaultSchema()
	p := newProcessor(t, config.EngineConfig{}, sch, buildIndex(t, sch, nil))

	_, err := p.Process(context.Background(), query.Word{Match: query.MatchNoCase, Text: ""})
	require.Error(t, err)
	assert.Equal(t, enginerr.CodeInvalidValue, enginerr.Code(err))
}

func TestBooleanAndNot(t *testing.T) {
	sch := defaultSchema()
	cix := buildIndex(t, sch, map[postings.DocID]map[string]string{
		1: {"content": "x"},
		2: {"content": "x y"},
		3: {"content": "y"},
	})
	p := newProcessor(t, config.EngineConfig{}, sch, cix)

	im, err := p.Process(context.Background(), query.Binary{
		Op:    query.AndNot,
		Left:  query.Word{Match: query.MatchCase, Text: "x"},
		Right: query.Word{Match: query.MatchCase, Text: "y"},
	})
	require.NoError(t, err)
	require.Equal(t, 1, im.DocCount())
	_, ok := im[1]
	assert.True(t, ok, "only doc A must survive")
}

func TestBooleanAndOr(t *testing.T) {
	sch := defaultSchema()
	cix := buildIndex(t, sch, map[postings.DocID]map[string]string{
		1: {"content": "x"},
		2: {"content": "x y"},
		3: {"content": "y"},
	})
	p := newProcessor(t, config.EngineConfig{}, sch, cix)

	and, err := p.Process(context.Background(), query.Binary{
		Op:    query.And,
		Left:  query.Word{Match: query.MatchCase, Text: "x"},
		Right: query.Word{Match: query.MatchCase, Text: "y"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, and.DocCount())

	or, err := p.Process(context.Background(), query.Binary{
		Op:    query.Or,
		Left:  query.Word{Match: query.MatchCase, Text: "x"},
		Right: query.Word{Match: query.MatchCase, Text: "y"},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, or.DocCount())
}

func TestPhrasePositions(t *testing.T) {
	sch := defaultSchema()
	cix := buildIndex(t, sch, map[postings.DocID]map[string]string{
		1: {"content": "a b c a b"},
	})
	p := newProcessor(t, config.EngineConfig{}, sch, cix)

	im, err := p.Process(context.Background(), query.Phrase{Match: query.MatchCase, Text: "a b"})
	require.NoError(t, err)
	require.Equal(t, 1, im.DocCount())
	assert.Equal(t, []int{0, 3}, im[1].Contexts["content"]["a b"].Pos.Slice())

	im, err = p.Process(context.Background(), query.Phrase{Match: query.MatchCase, Text: "b c"})
	require.NoError(t, err)
	require.Equal(t, 1, im.DocCount())
	assert.Equal(t, []int{1}, im[1].Contexts["content"]["b c"].Pos.Slice())

	im, err = p.Process(context.Background(), query.Phrase{Match: query.MatchCase, Text: "a c"})
	require.NoError(t, err)
	assert.Zero(t, im.DocCount())
}

func TestPhraseSingleWordDegenerates(t *testing.T) {
	sch := defaultSchema()
	cix := buildIndex(t, sch, map[postings.DocID]map[string]string{
		1: {"content": "hello world"},
	})
	p := newProcessor(t, config.EngineConfig{}, sch, cix)

	im, err := p.Process(context.Background(), query.Phrase{Match: query.MatchCase, Text: "hello"})
	require.NoError(t, err)
	assert.Equal(t, 1, im.DocCount())
}

func TestPhraseLongerThanDocument(t *testing.T) {
	sch := defaultSchema()
	cix := buildIndex(t, sch, map[postings.DocID]map[string]string{
		1: {"content": "a b"},
	})
	p := newProcessor(t, config.EngineConfig{}, sch, cix)

	im, err := p.Process(context.Background(), query.Phrase{Match: query.MatchCase, Text: "a b c d"})
	require.NoError(t, err)
	assert.Zero(t, im.DocCount())
}

func TestRangeQuery(t *testing.T) {
	sch := schema.Schema{
		"publish_date": {Type: "date", Default: true},
	}
	cix := buildIndex(t, sch, map[postings.DocID]map[string]string{
		1: {"publish_date": "2014-01-15"},
		2: {"publish_date": "2014-02-10"},
		3: {"publish_date": "2014-03-01"},
	})
	p := newProcessor(t, config.EngineConfig{}, sch, cix)

	im, err := p.Process(context.Background(), query.Context{
		Contexts: []string{"publish_date"},
		Query:    query.Range{Lower: "2014-01-01", Upper: "2014-01-31"},
	})
	require.NoError(t, err)
	require.Equal(t, 1, im.DocCount())
	_, ok := im[1]
	assert.True(t, ok)

	// Inverted range is empty.
	im, err = p.Process(context.Background(), query.Range{Lower: "2014-03-01", Upper: "2014-01-01"})
	require.NoError(t, err)
	assert.Zero(t, im.DocCount())
}

func TestIntRangeNumericOrder(t *testing.T) {
	sch := schema.Schema{"pages": {Type: "int", Default: true}}
	cix := buildIndex(t, sch, map[postings.DocID]map[string]string{
		1: {"pages": "9"},
		2: {"pages": "10"},
		3: {"pages": "100"},
	})
	p := newProcessor(t, config.EngineConfig{}, sch, cix)

	// Numerically 9..50 contains 9 and 10 but not 100; lexicographic order
	// would get this wrong without the padded key proxy.
	im, err := p.Process(context.Background(), query.Range{Lower: "9", Upper: "50"})
	require.NoError(t, err)
	assert.Equal(t, 2, im.DocCount())
}

func TestBoostComposition(t *testing.T) {
	sch := defaultSchema()
	cix := buildIndex(t, sch, map[postings.DocID]map[string]string{
		1: {"subject": "cat"},
	})
	p := newProcessor(t, config.EngineConfig{}, sch, cix)

	im, err := p.Process(context.Background(), query.Boost{
		Factor: 2.0,
		Query: query.Boost{
			Factor: 3.0,
			Query:  query.Word{Match: query.MatchCase, Text: "cat"},
		},
	})
	require.NoError(t, err)
	require.Equal(t, 1, im.DocCount())
	// 6.0 × context weight 2.0.
	assert.InDelta(t, 12.0, im[1].Boost, 1e-9)
}

func TestBoostIdentity(t *testing.T) {
	sch := defaultSchema()
	cix := buildIndex(t, sch, map[postings.DocID]map[string]string{
		1: {"subject": "cat"},
	})
	p := newProcessor(t, config.EngineConfig{}, sch, cix)

	plain, err := p.Process(context.Background(), query.Word{Match: query.MatchCase, Text: "cat"})
	require.NoError(t, err)
	boosted, err := p.Process(context.Background(), query.Boost{
		Factor: 1.0,
		Query:  query.Word{Match: query.MatchCase, Text: "cat"},
	})
	require.NoError(t, err)
	assert.InDelta(t, plain[1].Boost, boosted[1].Boost, 1e-9)
}

func TestFuzzyFindsTransposition(t *testing.T) {
	sch := defaultSchema()
	cix := buildIndex(t, sch, map[postings.DocID]map[string]string{
		1: {"content": "hello"},
	})
	p := newProcessor(t, config.EngineConfig{
		Fuzzy: config.FuzzyConfig{MaxDistance: 1, Swaps: true},
	}, sch, cix)

	// "ehllo" is one transposition away from "hello".
	im, err := p.Process(context.Background(), query.Word{Match: query.MatchFuzzy, Text: "ehllo"})
	require.NoError(t, err)
	assert.Equal(t, 1, im.DocCount())
}

func TestFuzzyZeroRadiusEqualsNoCase(t *testing.T) {
	sch := defaultSchema()
	cix := buildIndex(t, sch, map[postings.DocID]map[string]string{
		1: {"content": "hello"},
	})
	p := newProcessor(t, config.EngineConfig{}, sch, cix)

	fuzzy, err := p.Process(context.Background(), query.Word{Match: query.MatchFuzzy, Text: "HELLO"})
	require.NoError(t, err)
	nocase, err := p.Process(context.Background(), query.Word{Match: query.MatchNoCase, Text: "HELLO"})
	require.NoError(t, err)
	assert.Equal(t, nocase.DocCount(), fuzzy.DocCount())
}

func TestCancellation(t *testing.T) {
	sch := defaultSchema()
	cix := buildIndex(t, sch, map[postings.DocID]map[string]string{
		1: {"content": "x"},
	})
	p := newProcessor(t, config.EngineConfig{}, sch, cix)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.Process(ctx, query.Word{Match: query.MatchNoCase, Text: "x"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStemmedContext(t *testing.T) {
	sch := schema.Schema{"body": {Type: "text-stemmed", Default: true}}
	cix := buildIndex(t, sch, map[postings.DocID]map[string]string{
		1: {"body": "Running quickly"},
	})
	p := newProcessor(t, config.EngineConfig{}, sch, cix)

	// The query term stems to the same form as the indexed word.
	im, err := p.Process(context.Background(), query.Word{Match: query.MatchNoCase, Text: "runs"})
	require.NoError(t, err)
	assert.Equal(t, 1, im.DocCount())
}
