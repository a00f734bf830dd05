package index

import "github.com/seralab/contexture/internal/postings"

// KeyProxy presents one key space over an inner index keyed differently.
// The conversion pair must be a bijection: From maps an external key to the
// inner key, To maps it back. Prefix searches and range lookups convert
// their keys with From and run on the inner keys, so they follow inner-key
// order and inner-key prefixes: padded integer keys keep numeric order,
// interleaved position keys order by alternating lat/lon digits, and
// neither maps an outer prefix to an inner prefix.
type KeyProxy struct {
	inner Index
	to    func(inner string) string
	from  func(outer string) string
}

// NewKeyProxy wraps inner behind the to/from bijection.
func NewKeyProxy(inner Index, to, from func(string) string) *KeyProxy {
	return &KeyProxy{inner: inner, to: to, from: from}
}

func (p *KeyProxy) InsertList(op CombineOp, entries []Entry) {
	converted := make([]Entry, len(entries))
	for i, e := range entries {
		converted[i] = Entry{Key: p.from(e.Key), Occ: e.Occ}
	}
	p.inner.InsertList(op, converted)
}

func (p *KeyProxy) DeleteDocs(docs *postings.DocIDSet) {
	p.inner.DeleteDocs(docs)
}

func (p *KeyProxy) Search(mode Mode, key string) RawResult {
	return p.convert(p.inner.Search(mode, p.from(key)))
}

func (p *KeyProxy) LookupRange(lo, hi string) RawResult {
	return p.convert(p.inner.LookupRange(p.from(lo), p.from(hi)))
}

func (p *KeyProxy) ToList() RawResult {
	return p.convert(p.inner.ToList())
}

func (p *KeyProxy) Keys() []string {
	inner := p.inner.Keys()
	out := make([]string, len(inner))
	for i, k := range inner {
		out[i] = p.to(k)
	}
	return out
}

func (p *KeyProxy) Map(f func(postings.Occurrences) postings.Occurrences) {
	p.inner.Map(f)
}

func (p *KeyProxy) Empty() bool {
	return p.inner.Empty()
}

func (p *KeyProxy) TermCount() int {
	return p.inner.TermCount()
}

func (p *KeyProxy) convert(raw RawResult) RawResult {
	out := make(RawResult, len(raw))
	for i, e := range raw {
		out[i] = Entry{Key: p.to(e.Key), Occ: e.Occ}
	}
	return out
}
