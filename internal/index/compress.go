package index

import (
	"fmt"

	"github.com/klauspost/compress/s2"

	"github.com/seralab/contexture/internal/postings"
)

// Codec turns a posting list into bytes and back. Decode(Encode(v)) must
// equal v.
type Codec interface {
	Encode(postings.Occurrences) ([]byte, error)
	Decode([]byte) (postings.Occurrences, error)
}

// S2Codec encodes occurrences with the compact binary codec and compresses
// the result with s2 block compression.
type S2Codec struct{}

func (S2Codec) Encode(o postings.Occurrences) ([]byte, error) {
	raw, err := postings.EncodeOccurrences(o)
	if err != nil {
		return nil, err
	}
	return s2.Encode(nil, raw), nil
}

func (S2Codec) Decode(data []byte) (postings.Occurrences, error) {
	raw, err := s2.Decode(nil, data)
	if err != nil {
		return nil, fmt.Errorf("decompressing posting list: %w", err)
	}
	return postings.DecodeOccurrences(raw)
}

// CompressedIndex stores posting lists in their encoded, compressed form,
// trading CPU on access for resident memory. Combining on insert
// decompresses, merges, and recompresses, so it is observationally
// equivalent to combining uncompressed values.
type CompressedIndex struct {
	codec Codec
	store *sortedMap[[]byte]
}

// NewCompressedIndex returns an empty index using the given codec.
func NewCompressedIndex(codec Codec) *CompressedIndex {
	return &CompressedIndex{codec: codec, store: newSortedMap[[]byte]()}
}

func (ix *CompressedIndex) InsertList(op CombineOp, entries []Entry) {
	for _, e := range entries {
		if e.Occ.IsEmpty() {
			continue
		}
		value := e.Occ
		if old, ok := ix.store.get(e.Key); ok {
			value = op(ix.decode(e.Key, old), e.Occ)
			if value.IsEmpty() {
				ix.store.delete(e.Key)
				continue
			}
		}
		ix.store.put(e.Key, ix.encode(e.Key, value))
	}
}

func (ix *CompressedIndex) DeleteDocs(docs *postings.DocIDSet) {
	for _, key := range ix.store.allKeys() {
		data, _ := ix.store.get(key)
		occ := ix.decode(key, data)
		rest := occ.WithoutDocs(docs)
		switch {
		case rest.IsEmpty():
			ix.store.delete(key)
		case rest.Size() != occ.Size():
			ix.store.put(key, ix.encode(key, rest))
		}
	}
}

func (ix *CompressedIndex) Search(mode Mode, key string) RawResult {
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

func (ix *CompressedIndex) LookupRange(lo, hi string) RawResult {
	return ix.collect(ix.store.rangeKeys(lo, hi))
}

func (ix *CompressedIndex) ToList() RawResult {
	return ix.collect(ix.store.keys)
}

func (ix *CompressedIndex) Keys() []string {
	return ix.store.allKeys()
}

func (ix *CompressedIndex) Map(f func(postings.Occurrences) postings.Occurrences) {
	for _, key := range ix.store.allKeys() {
		data, _ := ix.store.get(key)
		mapped := f(ix.decode(key, data))
		if mapped.IsEmpty() {
			ix.store.delete(key)
		} else {
			ix.store.put(key, ix.encode(key, mapped))
		}
	}
}

func (ix *CompressedIndex) Empty() bool {
	return ix.store.len() == 0
}

func (ix *CompressedIndex) TermCount() int {
	return ix.store.len()
}

func (ix *CompressedIndex) collect(keys []string) RawResult {
	if len(keys) == 0 {
		return nil
	}
	out := make(RawResult, 0, len(keys))
	for _, k := range keys {
		data, ok := ix.store.get(k)
		if !ok {
			continue
		}
		out = append(out, Entry{Key: k, Occ: ix.decode(k, data)})
	}
	return out
}

// encode and decode panic on codec failure: a stored value that cannot be
// round-tripped is a broken invariant, and the engine converts panics into
// internal errors at the command boundary.
func (ix *CompressedIndex) encode(key string, o postings.Occurrences) []byte {
	data, err := ix.codec.Encode(o)
	if err != nil {
		panic(fmt.Sprintf("index: encoding postings of %q: %v", key, err))
	}
	return data
}

func (ix *CompressedIndex) decode(key string, data []byte) postings.Occurrences {
	o, err := ix.codec.Decode(data)
	if err != nil {
		panic(fmt.Sprintf("index: decoding postings of %q: %v", key, err))
	}
	return o
}
