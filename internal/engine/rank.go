package engine

import (
	"sort"

	"github.com/seralab/contexture/internal/postings"
	"github.com/seralab/contexture/internal/result"
	"github.com/seralab/contexture/internal/schema"
)

// RankedDoc is one scored document hit.
type RankedDoc struct {
	URI      string                                            `json:"uri"`
	Score    float64                                           `json:"score"`
	Boost    float64                                           `json:"boost"`
	Fields   map[string]string                                 `json:"fields,omitempty"`
	Contexts map[schema.Context]map[string]postings.Positions `json:"contexts"`
}

// ResultPage is one page of ranked hits plus the total match count.
type ResultPage struct {
	Offset int         `json:"offset"`
	Count  int         `json:"count"`
	Hits   []RankedDoc `json:"hits"`
}

// WordScore is one scored completion candidate.
type WordScore struct {
	Word  string  `json:"word"`
	Score float64 `json:"score"`
}

// rankDocs scores materialized hits with the occurrence-count heuristic:
// a document's score is its boost times the number of matched positions
// across all contexts and words. Ties break on URI so pagination is
// deterministic.
func rankDocs(hits result.DocHits, offset, limit int) ResultPage {
	ranked := make([]RankedDoc, 0, len(hits))
	for _, hit := range hits {
		occurrences := 0
		for _, words := range hit.Contexts {
			for _, pos := range words {
				occurrences += pos.Len()
			}
		}
		ranked = append(ranked, RankedDoc{
			URI:      hit.Info.Document.URI,
			Score:    hit.Info.Boost * float64(occurrences),
			Boost:    hit.Info.Boost,
			Fields:   hit.Info.Document.Fields,
			Contexts: hit.Contexts,
		})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].URI < ranked[j].URI
	})

	total := len(ranked)
	if offset < 0 {
		offset = 0
	}
	if offset > total {
		offset = total
	}
	page := ranked[offset:]
	if limit > 0 && len(page) > limit {
		page = page[:limit]
	}
	return ResultPage{Offset: offset, Count: total, Hits: page}
}

// rankWords scores word hits by their total occurrence count across all
// contexts and documents, descending; ties break alphabetically.
func rankWords(words result.WordHits, limit int) []WordScore {
	out := make([]WordScore, 0, len(words))
	for w, hit := range words {
		occurrences := 0
		for _, docs := range hit.Contexts {
			for _, pos := range docs {
				occurrences += pos.Len()
			}
		}
		out = append(out, WordScore{Word: w, Score: float64(occurrences)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Word < out[j].Word
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
