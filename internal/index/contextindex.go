package index

import (
	"fmt"
	"sort"

	"github.com/seralab/contexture/internal/postings"
)

// AnyIndex is a type-tagged index cell. Different contexts may hold
// different concrete index implementations; the tag names the context type
// that minted the cell so persistence can select the matching codec on
// load.
type AnyIndex struct {
	Type string
	Ix   Index
}

// CxTerm pairs a context with a term already normalized for that context.
type CxTerm struct {
	Context string
	Term    string
}

// CxRawResult pairs a context with the raw result of searching it.
type CxRawResult struct {
	Context string
	Raw     RawResult
}

// ContextIndex fans index operations across a map of contexts, each holding
// an independent inner index. The set of contexts always equals the schema's
// keys; the engine applies context creation and deletion to both in the same
// transition.
type ContextIndex struct {
	cxs map[string]*AnyIndex
}

// NewContextIndex returns an empty context index.
func NewContextIndex() *ContextIndex {
	return &ContextIndex{cxs: make(map[string]*AnyIndex)}
}

// InsertContext registers a new sub-index under c. It fails if c exists.
func (ci *ContextIndex) InsertContext(c string, ix *AnyIndex) error {
	if _, exists := ci.cxs[c]; exists {
		return fmt.Errorf("context %q already exists", c)
	}
	ci.cxs[c] = ix
	return nil
}

// DeleteContext removes c and all its postings. Deleting an absent context
// is a no-op.
func (ci *ContextIndex) DeleteContext(c string) {
	delete(ci.cxs, c)
}

// Has reports whether context c exists.
func (ci *ContextIndex) Has(c string) bool {
	_, ok := ci.cxs[c]
	return ok
}

// Get returns the index cell of context c.
func (ci *ContextIndex) Get(c string) (*AnyIndex, bool) {
	ix, ok := ci.cxs[c]
	return ix, ok
}

// InsertListCx inserts entries into the index of context c.
func (ci *ContextIndex) InsertListCx(c string, op CombineOp, entries []Entry) error {
	ix, ok := ci.cxs[c]
	if !ok {
		return fmt.Errorf("context %q does not exist", c)
	}
	ix.Ix.InsertList(op, entries)
	return nil
}

// SearchWithCx searches a single context.
func (ci *ContextIndex) SearchWithCx(mode Mode, c string, term string) RawResult {
	ix, ok := ci.cxs[c]
	if !ok {
		return nil
	}
	return ix.Ix.Search(mode, term)
}

// SearchWithCxsNormalized searches a set of contexts, each with its own
// already-normalized term, and returns the per-context raw results in input
// order.
func (ci *ContextIndex) SearchWithCxsNormalized(mode Mode, terms []CxTerm) []CxRawResult {
	out := make([]CxRawResult, 0, len(terms))
	for _, ct := range terms {
		out = append(out, CxRawResult{
			Context: ct.Context,
			Raw:     ci.SearchWithCx(mode, ct.Context, ct.Term),
		})
	}
	return out
}

// LookupRangeCx performs an inclusive range lookup in one context.
func (ci *ContextIndex) LookupRangeCx(c string, lo, hi string) RawResult {
	ix, ok := ci.cxs[c]
	if !ok {
		return nil
	}
	return ix.Ix.LookupRange(lo, hi)
}

// DeleteDocs removes the documents in docs from every context.
func (ci *ContextIndex) DeleteDocs(docs *postings.DocIDSet) {
	for _, ix := range ci.cxs {
		ix.Ix.DeleteDocs(docs)
	}
}

// Contexts lists the current contexts in sorted order.
func (ci *ContextIndex) Contexts() []string {
	out := make([]string, 0, len(ci.cxs))
	for c := range ci.cxs {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// TermCount returns the total number of distinct terms across all contexts.
func (ci *ContextIndex) TermCount() int {
	total := 0
	for _, ix := range ci.cxs {
		total += ix.Ix.TermCount()
	}
	return total
}
