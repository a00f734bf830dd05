package engine

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seralab/contexture/internal/doctable"
	"github.com/seralab/contexture/internal/query"
	"github.com/seralab/contexture/internal/schema"
	"github.com/seralab/contexture/pkg/config"
	enginerr "github.com/seralab/contexture/pkg/errors"
)

func newEngine(t *testing.T) *Engine {
	t.Helper()
	return New(config.EngineConfig{
		Fuzzy: config.FuzzyConfig{MaxDistance: 1, Swaps: true},
	}, schema.DefaultRegistry(), nil)
}

func exec(t *testing.T, e *Engine, cmd Command) Result {
	t.Helper()
	res, err := e.Execute(context.Background(), cmd)
	require.NoError(t, err, "command %s", cmd.Kind())
	return res
}

func mustFail(t *testing.T, e *Engine, cmd Command, wantCode int) {
	t.Helper()
	_, err := e.Execute(context.Background(), cmd)
	require.Error(t, err, "command %s", cmd.Kind())
	assert.Equal(t, wantCode, enginerr.Code(err))
}

func insertDoc(t *testing.T, e *Engine, uri string, fields map[string]string) {
	t.Helper()
	exec(t, e, Insert{Doc: doctable.Document{URI: uri, Index: fields}})
}

func searchPage(t *testing.T, e *Engine, q query.Query) ResultPage {
	t.Helper()
	res := exec(t, e, Search{Query: q, Limit: 100})
	return res.(ResSearch).Page
}

func TestInsertThenSearch(t *testing.T) {
	e := newEngine(t)
	exec(t, e, InsertContext{Context: "content", Schema: schema.ContextSchema{Type: "text", Default: true}})
	insertDoc(t, e, "id://1", map[string]string{"content": "hello world"})

	page := searchPage(t, e, query.Word{Match: query.MatchNoCase, Text: "hel"})
	require.Equal(t, 1, page.Count)
	hit := page.Hits[0]
	assert.Equal(t, "id://1", hit.URI)
	assert.Equal(t, []int{0}, hit.Contexts["content"]["hello"].Slice())
}

func TestContextRestrictionAndWeight(t *testing.T) {
	e := newEngine(t)
	exec(t, e, InsertContext{Context: "subject", Schema: schema.ContextSchema{Type: "text", Weight: 2.0, Default: true}})
	exec(t, e, InsertContext{Context: "content", Schema: schema.ContextSchema{Type: "text", Default: true}})
	insertDoc(t, e, "id://1", map[string]string{"subject": "cat", "content": "dog"})

	restricted := searchPage(t, e, query.Context{
		Contexts: []string{"content"},
		Query:    query.Word{Match: query.MatchCase, Text: "cat"},
	})
	assert.Zero(t, restricted.Count)

	implicit := searchPage(t, e, query.Word{Match: query.MatchCase, Text: "cat"})
	require.Equal(t, 1, implicit.Count)
	assert.InDelta(t, 2.0, implicit.Hits[0].Boost, 1e-9)
}

func TestBooleanAndNot(t *testing.T) {
	e := newEngine(t)
	exec(t, e, InsertContext{Context: "content", Schema: schema.ContextSchema{Type: "text", Default: true}})
	insertDoc(t, e, "id://a", map[string]string{"content": "x"})
	insertDoc(t, e, "id://b", map[string]string{"content": "x y"})
	insertDoc(t, e, "id://c", map[string]string{"content": "y"})

	page := searchPage(t, e, query.Binary{
		Op:    query.AndNot,
		Left:  query.Word{Match: query.MatchCase, Text: "x"},
		Right: query.Word{Match: query.MatchCase, Text: "y"},
	})
	require.Equal(t, 1, page.Count)
	assert.Equal(t, "id://a", page.Hits[0].URI)
}

func TestPhraseScenario(t *testing.T) {
	e := newEngine(t)
	exec(t, e, InsertContext{Context: "content", Schema: schema.ContextSchema{Type: "text", Default: true}})
	insertDoc(t, e, "id://1", map[string]string{"content": "a b c a b"})

	page := searchPage(t, e, query.Phrase{Match: query.MatchCase, Text: "a b"})
	require.Equal(t, 1, page.Count)
	assert.Equal(t, []int{0, 3}, page.Hits[0].Contexts["content"]["a b"].Slice())

	page = searchPage(t, e, query.Phrase{Match: query.MatchCase, Text: "b c"})
	require.Equal(t, 1, page.Count)
	assert.Equal(t, []int{1}, page.Hits[0].Contexts["content"]["b c"].Slice())

	page = searchPage(t, e, query.Phrase{Match: query.MatchCase, Text: "a c"})
	assert.Zero(t, page.Count)
}

func TestRangeScenario(t *testing.T) {
	e := newEngine(t)
	exec(t, e, InsertContext{Context: "publish_date", Schema: schema.ContextSchema{Type: "date"}})
	exec(t, e, InsertContext{Context: "content", Schema: schema.ContextSchema{Type: "text", Default: true}})
	insertDoc(t, e, "id://1", map[string]string{"publish_date": "2014-01-15", "content": "one"})
	insertDoc(t, e, "id://2", map[string]string{"publish_date": "2014-02-10", "content": "two"})
	insertDoc(t, e, "id://3", map[string]string{"publish_date": "2014-03-01", "content": "three"})

	page := searchPage(t, e, query.Context{
		Contexts: []string{"publish_date"},
		Query:    query.Range{Lower: "2014-01-01", Upper: "2014-01-31"},
	})
	require.Equal(t, 1, page.Count)
	assert.Equal(t, "id://1", page.Hits[0].URI)
}

func TestBoostCompositionScenario(t *testing.T) {
	e := newEngine(t)
	exec(t, e, InsertContext{Context: "subject", Schema: schema.ContextSchema{Type: "text", Weight: 2.0, Default: true}})
	insertDoc(t, e, "id://1", map[string]string{"subject": "cat"})

	page := searchPage(t, e, query.Boost{
		Factor: 2.0,
		Query: query.Boost{
			Factor: 3.0,
			Query:  query.Word{Match: query.MatchCase, Text: "cat"},
		},
	})
	require.Equal(t, 1, page.Count)
	assert.InDelta(t, 12.0, page.Hits[0].Boost, 1e-9)
}

func TestInsertConflicts(t *testing.T) {
	e := newEngine(t)
	exec(t, e, InsertContext{Context: "content", Schema: schema.ContextSchema{Type: "text", Default: true}})
	insertDoc(t, e, "id://1", map[string]string{"content": "hello"})

	// Existing URI conflicts.
	mustFail(t, e, Insert{Doc: doctable.Document{URI: "id://1", Index: map[string]string{"content": "again"}}},
		enginerr.CodeConflict)

	// Unknown context conflicts, and must not partially index.
	mustFail(t, e, Insert{Doc: doctable.Document{
		URI:   "id://2",
		Index: map[string]string{"content": "ok", "ghost": "nope"},
	}}, enginerr.CodeConflict)
	page := searchPage(t, e, query.Word{Match: query.MatchNoCase, Text: "ok"})
	assert.Zero(t, page.Count)

	status := exec(t, e, Status{}).(ResStatus)
	assert.Equal(t, 1, status.Documents)
}

func TestUpdateReplacesPostings(t *testing.T) {
	e := newEngine(t)
	exec(t, e, InsertContext{Context: "content", Schema: schema.ContextSchema{Type: "text", Default: true}})

	mustFail(t, e, Update{Doc: doctable.Document{URI: "id://1", Index: map[string]string{"content": "x"}}},
		enginerr.CodeConflict)

	insertDoc(t, e, "id://1", map[string]string{"content": "old words"})
	exec(t, e, Update{Doc: doctable.Document{URI: "id://1", Index: map[string]string{"content": "new words"}}})

	assert.Zero(t, searchPage(t, e, query.Word{Match: query.MatchNoCase, Text: "old"}).Count)
	assert.Equal(t, 1, searchPage(t, e, query.Word{Match: query.MatchNoCase, Text: "new"}).Count)
}

func TestBatchDeleteIgnoresMissing(t *testing.T) {
	e := newEngine(t)
	exec(t, e, InsertContext{Context: "content", Schema: schema.ContextSchema{Type: "text", Default: true}})
	insertDoc(t, e, "id://1", map[string]string{"content": "hello"})
	insertDoc(t, e, "id://2", map[string]string{"content": "hello"})

	exec(t, e, BatchDelete{URIs: []string{"id://1", "id://missing"}})

	page := searchPage(t, e, query.Word{Match: query.MatchNoCase, Text: "hello"})
	require.Equal(t, 1, page.Count)
	assert.Equal(t, "id://2", page.Hits[0].URI)
}

func TestContextLifecycleErrors(t *testing.T) {
	e := newEngine(t)
	exec(t, e, InsertContext{Context: "content", Schema: schema.ContextSchema{Type: "text"}})

	mustFail(t, e, InsertContext{Context: "content", Schema: schema.ContextSchema{Type: "text"}},
		enginerr.CodeConflict)
	mustFail(t, e, InsertContext{Context: "other", Schema: schema.ContextSchema{Type: "no-such-type"}},
		enginerr.CodeUnknownType)

	// Delete is idempotent.
	exec(t, e, DeleteContext{Context: "content"})
	exec(t, e, DeleteContext{Context: "content"})

	status := exec(t, e, Status{}).(ResStatus)
	assert.Empty(t, status.Contexts)
}

func TestDeleteContextDropsPostings(t *testing.T) {
	e := newEngine(t)
	exec(t, e, InsertContext{Context: "content", Schema: schema.ContextSchema{Type: "text", Default: true}})
	insertDoc(t, e, "id://1", map[string]string{"content": "hello"})

	exec(t, e, DeleteContext{Context: "content"})
	exec(t, e, InsertContext{Context: "content", Schema: schema.ContextSchema{Type: "text", Default: true}})

	assert.Zero(t, searchPage(t, e, query.Word{Match: query.MatchNoCase, Text: "hello"}).Count)
}

func TestSequenceAbortsOnFirstError(t *testing.T) {
	e := newEngine(t)
	exec(t, e, InsertContext{Context: "content", Schema: schema.ContextSchema{Type: "text", Default: true}})

	_, err := e.Execute(context.Background(), Sequence{Commands: []Command{
		Insert{Doc: doctable.Document{URI: "id://1", Index: map[string]string{"content": "one"}}},
		InsertContext{Context: "content", Schema: schema.ContextSchema{Type: "text"}}, // conflict
		Insert{Doc: doctable.Document{URI: "id://2", Index: map[string]string{"content": "two"}}},
	}})
	require.Error(t, err)
	assert.Equal(t, enginerr.CodeConflict, enginerr.Code(err))

	// Child 0 applied, child 2 never ran.
	assert.Equal(t, 1, searchPage(t, e, query.Word{Match: query.MatchNoCase, Text: "one"}).Count)
	assert.Zero(t, searchPage(t, e, query.Word{Match: query.MatchNoCase, Text: "two"}).Count)
}

func TestCompletion(t *testing.T) {
	e := newEngine(t)
	exec(t, e, InsertContext{Context: "content", Schema: schema.ContextSchema{Type: "text", Default: true}})
	insertDoc(t, e, "id://1", map[string]string{"content": "help helm hello hello"})
	insertDoc(t, e, "id://2", map[string]string{"content": "hello"})

	res := exec(t, e, Completion{Query: query.Word{Match: query.MatchNoCase, Text: "hel"}, Limit: 2})
	words := res.(ResCompletion).Words
	// Each document keeps only its first matching word in key order
	// (result.FromList), so "helm" and "help" of id://1 are dropped.
	require.Len(t, words, 1)
	assert.Equal(t, "hello", words[0].Word)
	assert.Equal(t, 3.0, words[0].Score)
}

func TestStoreLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.bin")

	e := newEngine(t)
	exec(t, e, InsertContext{Context: "subject", Schema: schema.ContextSchema{Type: "text", Weight: 2.0, Default: true}})
	exec(t, e, InsertContext{Context: "pages", Schema: schema.ContextSchema{Type: "int"}})
	insertDoc(t, e, "id://1", map[string]string{"subject": "hello world", "pages": "42"})
	exec(t, e, StoreIx{Path: path})

	restored := newEngine(t)
	exec(t, restored, LoadIx{Path: path})

	page := searchPage(t, restored, query.Word{Match: query.MatchNoCase, Text: "hel"})
	require.Equal(t, 1, page.Count)
	assert.Equal(t, "id://1", page.Hits[0].URI)
	assert.InDelta(t, 2.0, page.Hits[0].Boost, 1e-9)

	// DocIDs are not reused after load either.
	insertDoc(t, restored, "id://2", map[string]string{"subject": "fresh"})
	page = searchPage(t, restored, query.Word{Match: query.MatchNoCase, Text: "fresh"})
	assert.Equal(t, 1, page.Count)
}

func TestLoadMissingFileIsIOError(t *testing.T) {
	e := newEngine(t)
	mustFail(t, e, LoadIx{Path: filepath.Join(t.TempDir(), "absent.bin")}, enginerr.CodeIO)
}

func TestLoadUnknownTypeIs410(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.bin")

	e := newEngine(t)
	exec(t, e, InsertContext{Context: "content", Schema: schema.ContextSchema{Type: "text"}})
	exec(t, e, StoreIx{Path: path})

	// A registry without the persisted type cannot re-link it.
	bare := New(config.EngineConfig{}, schema.NewTypeRegistry(), nil)
	mustFail(t, bare, LoadIx{Path: path}, enginerr.CodeUnknownType)
}

func TestNoopAndStatus(t *testing.T) {
	e := newEngine(t)
	exec(t, e, Noop{})

	exec(t, e, InsertContext{Context: "content", Schema: schema.ContextSchema{Type: "text", Default: true}})
	insertDoc(t, e, "id://1", map[string]string{"content": "a b c"})

	status := exec(t, e, Status{}).(ResStatus)
	assert.Equal(t, 1, status.Documents)
	assert.Equal(t, 3, status.Terms)
	assert.Contains(t, status.Contexts, "content")
}

func TestFuzzySearchEndToEnd(t *testing.T) {
	e := newEngine(t)
	exec(t, e, InsertContext{Context: "content", Schema: schema.ContextSchema{Type: "text", Default: true}})
	insertDoc(t, e, "id://1", map[string]string{"content": "hello"})

	page := searchPage(t, e, query.Word{Match: query.MatchFuzzy, Text: "ehllo"})
	require.Equal(t, 1, page.Count)
	assert.Equal(t, "id://1", page.Hits[0].URI)
}
