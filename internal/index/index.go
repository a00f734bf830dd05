// Package index implements the term index capability of the engine and the
// proxies layered on top of it: key conversion, transparent posting-list
// compression, and per-context routing.
//
// A term index maps normalized terms to postings.Occurrences. Keys are kept
// in sorted order so prefix and range searches are cheap. Values returned by
// searches must be treated as immutable; every mutation of the index
// replaces stored values instead of editing them in place.
package index

import "github.com/seralab/contexture/internal/postings"

// Mode selects how Search matches terms.
type Mode int

const (
	// Case matches the key exactly.
	Case Mode = iota
	// NoCase matches the key ignoring letter case.
	NoCase
	// PrefixCase matches every term with the key as exact prefix.
	PrefixCase
	// PrefixNoCase matches every term with the key as case-insensitive
	// prefix.
	PrefixNoCase
)

// IsPrefix reports whether the mode is one of the prefix modes.
func (m Mode) IsPrefix() bool {
	return m == PrefixCase || m == PrefixNoCase
}

// IgnoresCase reports whether the mode folds letter case.
func (m Mode) IgnoresCase() bool {
	return m == NoCase || m == PrefixNoCase
}

// Entry is one term with its full posting list.
type Entry struct {
	Key string
	Occ postings.Occurrences
}

// RawResult is the ordered list of matching terms returned by a search.
// The order is index-provided (ascending key order) and meaningful for
// result limiting: closer matches come first.
type RawResult []Entry

// CombineOp merges an existing posting list with a newly inserted one.
type CombineOp func(old, new postings.Occurrences) postings.Occurrences

// Index is the term index capability. Implementations never store empty
// posting lists and deduplicate search results by key.
type Index interface {
	// InsertList inserts the entries, combining with existing posting
	// lists via op. Entries with empty occurrences are ignored.
	InsertList(op CombineOp, entries []Entry)

	// DeleteDocs removes every document in docs from all posting lists,
	// purging lists emptied by the removal.
	DeleteDocs(docs *postings.DocIDSet)

	// Search returns the terms matching key under the given mode.
	Search(mode Mode, key string) RawResult

	// LookupRange returns all terms in the inclusive lexicographic range
	// [lo, hi].
	LookupRange(lo, hi string) RawResult

	// ToList dumps every term with its posting list in key order.
	ToList() RawResult

	// Keys returns all terms in ascending order.
	Keys() []string

	// Map applies f to every posting list, purging terms for which f
	// returns an empty result.
	Map(f func(postings.Occurrences) postings.Occurrences)

	// Empty reports whether the index holds no terms.
	Empty() bool

	// TermCount returns the number of distinct terms.
	TermCount() int
}

// UnionWith merges src into dst, combining shared terms via op.
func UnionWith(dst Index, op CombineOp, src Index) {
	dst.InsertList(op, src.ToList())
}
