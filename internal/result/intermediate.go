// Package result implements the intermediate-result algebra that underpins
// boolean, phrase, range, and boost operations, and the materialization of
// final results against the document table.
//
// An Intermediate maps every matched document to the contexts and words it
// was matched under, with the positions of each word and a multiplicative
// document boost. All operators are pure: they build new values and leave
// their operands untouched.
package result

import (
	"slices"

	"github.com/seralab/contexture/internal/index"
	"github.com/seralab/contexture/internal/postings"
	"github.com/seralab/contexture/internal/schema"
)

// WordInfo carries the search terms that produced a word match and the
// word's ranking score. Scores start at zero and are assigned by the
// ranker after materialization.
type WordInfo struct {
	Terms []string `json:"terms"`
	Score float64  `json:"score"`
}

// merge unites the term lists (deduplicated, order of first appearance)
// and sums the scores.
func (wi WordInfo) merge(other WordInfo) WordInfo {
	terms := slices.Clone(wi.Terms)
	for _, t := range other.Terms {
		if !slices.Contains(terms, t) {
			terms = append(terms, t)
		}
	}
	return WordInfo{Terms: terms, Score: wi.Score + other.Score}
}

// WordEntry is one matched word: its info and the positions at which it
// occurs in the document.
type WordEntry struct {
	Info WordInfo
	Pos  postings.Positions
}

// ContextWords maps context → word → entry for one document.
type ContextWords map[schema.Context]map[string]WordEntry

// DocEntry is the per-document value of an Intermediate.
type DocEntry struct {
	Contexts ContextWords
	Boost    float64
}

// Intermediate is the per-query combinator domain. Invariants: every
// WordEntry has non-empty positions, every Boost is positive.
type Intermediate map[postings.DocID]DocEntry

// Empty returns an empty Intermediate.
func Empty() Intermediate {
	return make(Intermediate)
}

// DocCount returns the number of matched documents.
func (im Intermediate) DocCount() int {
	return len(im)
}

// Docs returns the set of matched document IDs.
func (im Intermediate) Docs() *postings.DocIDSet {
	set := postings.NewDocIDSet()
	for id := range im {
		set.Add(id)
	}
	return set
}

// mergeContexts deep-merges two context maps: contexts union, words union,
// and for a shared word the infos merge and the positions unite.
func mergeContexts(l, r ContextWords) ContextWords {
	out := make(ContextWords, len(l))
	for cx, words := range l {
		cp := make(map[string]WordEntry, len(words))
		for w, e := range words {
			cp[w] = e
		}
		out[cx] = cp
	}
	for cx, words := range r {
		existing, ok := out[cx]
		if !ok {
			cp := make(map[string]WordEntry, len(words))
			for w, e := range words {
				cp[w] = e
			}
			out[cx] = cp
			continue
		}
		for w, e := range words {
			if prev, shared := existing[w]; shared {
				existing[w] = WordEntry{
					Info: prev.Info.merge(e.Info),
					Pos:  prev.Pos.Union(e.Pos),
				}
			} else {
				existing[w] = e
			}
		}
	}
	return out
}

// combine is the shared union/merge walk: keys of both sides, entries of
// shared documents deep-merged with boostOp deciding the combined boost.
func combine(l, r Intermediate, boostOp func(lb, rb float64) float64) Intermediate {
	out := make(Intermediate, len(l)+len(r))
	for id, le := range l {
		if re, shared := r[id]; shared {
			out[id] = DocEntry{
				Contexts: mergeContexts(le.Contexts, re.Contexts),
				Boost:    boostOp(le.Boost, re.Boost),
			}
		} else {
			out[id] = le
		}
	}
	for id, re := range r {
		if _, shared := l[id]; !shared {
			out[id] = re
		}
	}
	return out
}

// Union combines two intermediates: contexts and words merge recursively,
// and the boosts of shared documents multiply.
func Union(l, r Intermediate) Intermediate {
	return combine(l, r, func(lb, rb float64) float64 { return lb * rb })
}

// Merge is Union with the right-hand boost treated as identity. It is used
// when combining the per-context results of a single query term, which must
// not re-apply the term's boost.
func Merge(l, r Intermediate) Intermediate {
	return combine(l, r, func(lb, rb float64) float64 { return lb })
}

// Intersection keeps documents present on both sides, combining their
// entries the same way Union does.
func Intersection(l, r Intermediate) Intermediate {
	out := make(Intermediate)
	for id, le := range l {
		re, shared := r[id]
		if !shared {
			continue
		}
		out[id] = DocEntry{
			Contexts: mergeContexts(le.Contexts, re.Contexts),
			Boost:    le.Boost * re.Boost,
		}
	}
	return out
}

// Difference keeps the documents of l that are absent from r, values
// unchanged.
func Difference(l, r Intermediate) Intermediate {
	out := make(Intermediate)
	for id, le := range l {
		if _, shared := r[id]; !shared {
			out[id] = le
		}
	}
	return out
}

// Unions folds Union over the list starting from empty.
func Unions(xs []Intermediate) Intermediate {
	acc := Empty()
	for _, x := range xs {
		acc = Union(acc, x)
	}
	return acc
}

// Merges folds Merge over the list starting from empty.
func Merges(xs []Intermediate) Intermediate {
	acc := Empty()
	for _, x := range xs {
		acc = Merge(acc, x)
	}
	return acc
}

// UnionsDocLimited folds Union and returns the first prefix whose document
// count reaches n, or the full fold if it never does. The input is assumed
// ordered so that earlier elements are better matches. n <= 0 disables the
// limit.
func UnionsDocLimited(n int, xs []Intermediate) Intermediate {
	return foldDocLimited(Union, n, xs)
}

// MergesDocLimited is UnionsDocLimited over Merge.
func MergesDocLimited(n int, xs []Intermediate) Intermediate {
	return foldDocLimited(Merge, n, xs)
}

func foldDocLimited(op func(l, r Intermediate) Intermediate, n int, xs []Intermediate) Intermediate {
	acc := Empty()
	for _, x := range xs {
		acc = op(acc, x)
		if n > 0 && acc.DocCount() >= n {
			break
		}
	}
	return acc
}

// Boosted returns im with every document's boost multiplied by b.
func Boosted(im Intermediate, b float64) Intermediate {
	out := make(Intermediate, len(im))
	for id, e := range im {
		out[id] = DocEntry{Contexts: e.Contexts, Boost: e.Boost * b}
	}
	return out
}

// FromList constructs the Intermediate of a single term searched in a
// single context from the raw posting result. Every matched document gets a
// single-word entry tagged with the context and the context's weight as
// boost.
//
// When the same document appears under several words of the raw result,
// the first word wins and the later words of that document are dropped.
// Prefix and case-folded searches of the query processor can list one
// document under several words; only the first of them is kept.
func FromList(boost float64, terms []string, cx schema.Context, raw index.RawResult) Intermediate {
	out := make(Intermediate)
	for _, entry := range raw {
		for id, pos := range entry.Occ {
			if _, seen := out[id]; seen {
				continue
			}
			out[id] = DocEntry{
				Contexts: ContextWords{
					cx: {entry.Key: WordEntry{
						Info: WordInfo{Terms: terms, Score: 0.0},
						Pos:  pos,
					}},
				},
				Boost: boost,
			}
		}
	}
	return out
}

// FromListCxs merges the per-context raw results of one query term.
func FromListCxs(s schema.Schema, terms []string, results []index.CxRawResult) Intermediate {
	parts := make([]Intermediate, 0, len(results))
	for _, r := range results {
		parts = append(parts, FromList(s[r.Context].Boost(), terms, r.Context, r.Raw))
	}
	return Merges(parts)
}
