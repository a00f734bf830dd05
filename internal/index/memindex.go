package index

import "github.com/seralab/contexture/internal/postings"

// MemIndex is the plain in-memory term index: term → Occurrences with a
// sorted key slice for prefix and range scans.
type MemIndex struct {
	store *sortedMap[postings.Occurrences]
}

// NewMemIndex returns an empty MemIndex.
func NewMemIndex() *MemIndex {
	return &MemIndex{store: newSortedMap[postings.Occurrences]()}
}

func (ix *MemIndex) InsertList(op CombineOp, entries []Entry) {
	for _, e := range entries {
		if e.Occ.IsEmpty() {
			continue
		}
		if old, ok := ix.store.get(e.Key); ok {
			combined := op(old, e.Occ)
			if combined.IsEmpty() {
				ix.store.delete(e.Key)
			} else {
				ix.store.put(e.Key, combined)
			}
		} else {
			ix.store.put(e.Key, e.Occ)
		}
	}
}

func (ix *MemIndex) DeleteDocs(docs *postings.DocIDSet) {
	for _, key := range ix.store.allKeys() {
		occ, _ := ix.store.get(key)
		rest := occ.WithoutDocs(docs)
		if rest.IsEmpty() {
			ix.store.delete(key)
		} else if rest.Size() != occ.Size() {
			ix.store.put(key, rest)
		}
	}
}

func (ix *MemIndex) Search(mode Mode, key string) RawResult {
	var keys []string
	switch mode {
	case Case:
		if _, ok := ix.store.get(key); ok {
			keys = []string{key}
		}
	case PrefixCase:
		keys = ix.store.prefixKeys(key)
	case NoCase, PrefixNoCase:
		keys = ix.store.foldKeys(key, mode.IsPrefix())
	}
	return ix.collect(keys)
}

func (ix *MemIndex) LookupRange(lo, hi string) RawResult {
	return ix.collect(ix.store.rangeKeys(lo, hi))
}

func (ix *MemIndex) ToList() RawResult {
	return ix.collect(ix.store.keys)
}

func (ix *MemIndex) Keys() []string {
	return ix.store.allKeys()
}

func (ix *MemIndex) Map(f func(postings.Occurrences) postings.Occurrences) {
	for _, key := range ix.store.allKeys() {
		occ, _ := ix.store.get(key)
		mapped := f(occ)
		if mapped.IsEmpty() {
			ix.store.delete(key)
		} else {
			ix.store.put(key, mapped)
		}
	}
}

func (ix *MemIndex) Empty() bool {
	return ix.store.len() == 0
}

func (ix *MemIndex) TermCount() int {
	return ix.store.len()
}

func (ix *MemIndex) collect(keys []string) RawResult {
	if len(keys) == 0 {
		return nil
	}
	out := make(RawResult, 0, len(keys))
	for _, k := range keys {
		occ, ok := ix.store.get(k)
		if !ok {
			continue
		}
		out = append(out, Entry{Key: k, Occ: occ})
	}
	return out
}
