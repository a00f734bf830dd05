// Package doctable implements the document table: the authoritative mapping
// between document IDs, URIs, and stored document payloads. IDs are minted
// sequentially on first insert of a URI and never reused within a session.
package doctable

import (
	"fmt"

	"github.com/seralab/contexture/internal/postings"
)

// Document is the ingested document: a unique URI, the per-context text
// that was indexed, and an opaque stored field map returned with hits.
type Document struct {
	URI    string            `json:"uri"`
	Index  map[string]string `json:"index,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
}

// Table maps DocID ↔ URI and DocID → stored document.
type Table struct {
	docs   map[postings.DocID]DValue
	byURI  map[string]postings.DocID
	uris   map[postings.DocID]string
	nextID postings.DocID
}

// New returns an empty document table.
func New() *Table {
	return &Table{
		docs:   make(map[postings.DocID]DValue),
		byURI:  make(map[string]postings.DocID),
		uris:   make(map[postings.DocID]string),
		nextID: 1,
	}
}

// Null reports whether the table holds no documents.
func (t *Table) Null() bool {
	return len(t.docs) == 0
}

// Size returns the number of documents.
func (t *Table) Size() int {
	return len(t.docs)
}

// Lookup returns the document stored under id.
func (t *Table) Lookup(id postings.DocID) (Document, bool) {
	dv, ok := t.docs[id]
	if !ok {
		return Document{}, false
	}
	doc, err := dv.Unwrap()
	if err != nil {
		panic(fmt.Sprintf("doctable: unwrapping doc %d: %v", id, err))
	}
	return doc, true
}

// LookupByURI returns the DocID minted for uri.
func (t *Table) LookupByURI(uri string) (postings.DocID, bool) {
	id, ok := t.byURI[uri]
	return id, ok
}

// Insert stores doc and returns its DocID. Insert is idempotent on URI: if
// the URI already exists, the existing DocID is returned and the table is
// unchanged.
func (t *Table) Insert(doc Document) postings.DocID {
	if id, ok := t.byURI[doc.URI]; ok {
		return id
	}
	id := t.nextID
	t.nextID++
	t.docs[id] = Wrap(doc)
	t.byURI[doc.URI] = id
	t.uris[id] = doc.URI
	return id
}

// Update replaces the document stored under id. The URI mappings follow the
// new document's URI.
func (t *Table) Update(id postings.DocID, doc Document) error {
	if _, ok := t.docs[id]; !ok {
		return fmt.Errorf("document %d does not exist", id)
	}
	if other, ok := t.byURI[doc.URI]; ok && other != id {
		return fmt.Errorf("uri %q already mapped to document %d", doc.URI, other)
	}
	delete(t.byURI, t.uris[id])
	t.docs[id] = Wrap(doc)
	t.byURI[doc.URI] = id
	t.uris[id] = doc.URI
	return nil
}

// Adjust applies f to the document stored under id, if present.
func (t *Table) Adjust(f func(Document) Document, id postings.DocID) {
	doc, ok := t.Lookup(id)
	if !ok {
		return
	}
	if err := t.Update(id, f(doc)); err != nil {
		panic(fmt.Sprintf("doctable: adjusting doc %d: %v", id, err))
	}
}

// AdjustByURI applies f to the document stored under uri, if present.
func (t *Table) AdjustByURI(f func(Document) Document, uri string) {
	if id, ok := t.byURI[uri]; ok {
		t.Adjust(f, id)
	}
}

// Delete removes the document with the given id. Absent IDs are ignored.
func (t *Table) Delete(id postings.DocID) {
	uri, ok := t.uris[id]
	if !ok {
		return
	}
	delete(t.docs, id)
	delete(t.uris, id)
	delete(t.byURI, uri)
}

// DeleteByURI removes the document with the given URI and returns its
// DocID. Absent URIs are ignored.
func (t *Table) DeleteByURI(uri string) (postings.DocID, bool) {
	id, ok := t.byURI[uri]
	if !ok {
		return 0, false
	}
	t.Delete(id)
	return id, true
}

// Difference removes every document whose ID is in set.
func (t *Table) Difference(set *postings.DocIDSet) {
	for _, id := range set.Slice() {
		t.Delete(id)
	}
}

// DifferenceByURI removes every document whose URI is in uris and returns
// the set of removed DocIDs. Missing URIs are silently ignored.
func (t *Table) DifferenceByURI(uris map[string]struct{}) *postings.DocIDSet {
	removed := postings.NewDocIDSet()
	for uri := range uris {
		if id, ok := t.DeleteByURI(uri); ok {
			removed.Add(id)
		}
	}
	return removed
}

// Map applies f to every stored document.
func (t *Table) Map(f func(Document) Document) {
	for id := range t.docs {
		t.Adjust(f, id)
	}
}

// Filter keeps only documents satisfying pred and returns the set of
// removed DocIDs.
func (t *Table) Filter(pred func(postings.DocID, Document) bool) *postings.DocIDSet {
	removed := postings.NewDocIDSet()
	for id := range t.docs {
		doc, _ := t.Lookup(id)
		if !pred(id, doc) {
			t.Delete(id)
			removed.Add(id)
		}
	}
	return removed
}

// ToMap returns a snapshot of DocID → Document.
func (t *Table) ToMap() map[postings.DocID]Document {
	out := make(map[postings.DocID]Document, len(t.docs))
	for id := range t.docs {
		doc, _ := t.Lookup(id)
		out[id] = doc
	}
	return out
}

// MapKeys rewrites every DocID through f. f must be injective over the
// table's current IDs.
func (t *Table) MapKeys(f func(postings.DocID) postings.DocID) error {
	docs := make(map[postings.DocID]DValue, len(t.docs))
	byURI := make(map[string]postings.DocID, len(t.byURI))
	uris := make(map[postings.DocID]string, len(t.uris))
	next := t.nextID
	for id, dv := range t.docs {
		nid := f(id)
		if _, clash := docs[nid]; clash {
			return fmt.Errorf("key mapping collides on document %d", nid)
		}
		docs[nid] = dv
		uri := t.uris[id]
		byURI[uri] = nid
		uris[nid] = uri
		if nid >= next {
			next = nid + 1
		}
	}
	t.docs, t.byURI, t.uris, t.nextID = docs, byURI, uris, next
	return nil
}

// Union merges other into t. Precondition: the DocID sets and URI sets of
// the two tables are disjoint.
func (t *Table) Union(other *Table) error {
	for id, uri := range other.uris {
		if _, clash := t.docs[id]; clash {
			return fmt.Errorf("docid %d present in both tables", id)
		}
		if _, clash := t.byURI[uri]; clash {
			return fmt.Errorf("uri %q present in both tables", uri)
		}
	}
	for id, dv := range other.docs {
		uri := other.uris[id]
		t.docs[id] = dv
		t.byURI[uri] = id
		t.uris[id] = uri
		if id >= t.nextID {
			t.nextID = id + 1
		}
	}
	return nil
}

// IDs returns the set of all live DocIDs.
func (t *Table) IDs() *postings.DocIDSet {
	set := postings.NewDocIDSet()
	for id := range t.docs {
		set.Add(id)
	}
	return set
}

// Snapshot exposes the raw wrapped values and the next ID for persistence.
func (t *Table) Snapshot() (map[postings.DocID]DValue, map[postings.DocID]string, postings.DocID) {
	return t.docs, t.uris, t.nextID
}

// Restore rebuilds a table from persisted state.
func Restore(docs map[postings.DocID]DValue, uris map[postings.DocID]string, nextID postings.DocID) *Table {
	t := New()
	for id, dv := range docs {
		t.docs[id] = dv
		uri := uris[id]
		t.uris[id] = uri
		t.byURI[uri] = id
	}
	t.nextID = nextID
	return t
}
