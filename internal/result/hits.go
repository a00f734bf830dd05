package result

import (
	"github.com/seralab/contexture/internal/doctable"
	"github.com/seralab/contexture/internal/postings"
	"github.com/seralab/contexture/internal/schema"
)

// DocInfo is the per-document half of a hit. Score starts at zero; the
// ranker assigns it after materialization.
type DocInfo struct {
	Document doctable.Document `json:"document"`
	Boost    float64           `json:"boost"`
	Score    float64           `json:"score"`
}

// DocHit is one matched document with the words and positions that
// matched it, grouped by context.
type DocHit struct {
	Info     DocInfo                                          `json:"info"`
	Contexts map[schema.Context]map[string]postings.Positions `json:"contexts"`
}

// DocHits maps every surviving document to its hit.
type DocHits map[postings.DocID]*DocHit

// WordHit is one matched word with its info and, per context, the
// documents and positions it matched in.
type WordHit struct {
	Info     WordInfo                                                  `json:"info"`
	Contexts map[schema.Context]map[postings.DocID]postings.Positions `json:"contexts"`
}

// WordHits maps every matched word to its hit.
type WordHits map[string]*WordHit

// MaterializeDocs joins the final Intermediate with the document table. A
// document missing from the table falls back to an empty document rather
// than dropping the hit.
func MaterializeDocs(im Intermediate, tbl *doctable.Table) DocHits {
	out := make(DocHits, len(im))
	for id, entry := range im {
		doc, ok := tbl.Lookup(id)
		if !ok {
			doc = doctable.Document{}
		}
		contexts := make(map[schema.Context]map[string]postings.Positions, len(entry.Contexts))
		for cx, words := range entry.Contexts {
			wm := make(map[string]postings.Positions, len(words))
			for w, we := range words {
				wm[w] = we.Pos
			}
			contexts[cx] = wm
		}
		out[id] = &DocHit{
			Info:     DocInfo{Document: doc, Boost: entry.Boost, Score: 0.0},
			Contexts: contexts,
		}
	}
	return out
}

// MaterializeWords inverts the Intermediate to word → hit. Entries whose
// only search term is the empty string are excluded. When a word appears in
// several documents its infos merge and its per-document positions unite.
func MaterializeWords(im Intermediate) WordHits {
	out := make(WordHits)
	for id, entry := range im {
		for cx, words := range entry.Contexts {
			for w, we := range words {
				if isEmptyTerm(we.Info.Terms) {
					continue
				}
				hit, ok := out[w]
				if !ok {
					hit = &WordHit{
						Info:     we.Info,
						Contexts: make(map[schema.Context]map[postings.DocID]postings.Positions),
					}
					out[w] = hit
				} else {
					hit.Info = hit.Info.merge(we.Info)
				}
				docs, ok := hit.Contexts[cx]
				if !ok {
					docs = make(map[postings.DocID]postings.Positions)
					hit.Contexts[cx] = docs
				}
				if prev, shared := docs[id]; shared {
					docs[id] = prev.Union(we.Pos)
				} else {
					docs[id] = we.Pos
				}
			}
		}
	}
	return out
}

func isEmptyTerm(terms []string) bool {
	return len(terms) == 1 && terms[0] == ""
}
