package processor

import (
	"sort"

	"github.com/seralab/contexture/internal/index"
)

// limitRawResult applies the two result-limiting knobs to a raw posting
// result, doc limit first. Both are disabled at zero.
func limitRawResult(wordLimit, docLimit int, raw index.RawResult) index.RawResult {
	return limitWords(wordLimit, limitDocs(docLimit, raw))
}

// limitDocs walks the result accumulating the document count of each
// posting list and cuts after the element that reaches docLimit. This
// relies on the index-provided order putting closer matches first.
func limitDocs(docLimit int, raw index.RawResult) index.RawResult {
	if docLimit <= 0 {
		return raw
	}
	total := 0
	for i, e := range raw {
		total += e.Occ.Size()
		if total >= docLimit {
			return raw[:i+1]
		}
	}
	return raw
}

// limitWords keeps the wordLimit entries with the fewest occurrences.
// Scoring a word by the size of its posting list and keeping the
// low-scored entries prefers rarer terms. This is a deliberate heuristic,
// not an IDF: it only looks at the result at hand.
func limitWords(wordLimit int, raw index.RawResult) index.RawResult {
	if wordLimit <= 0 || len(raw) <= wordLimit {
		return raw
	}
	scored := make(index.RawResult, len(raw))
	copy(scored, raw)
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Occ.Size() < scored[j].Occ.Size()
	})
	return scored[:wordLimit]
}
