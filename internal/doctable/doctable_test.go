package doctable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seralab/contexture/internal/postings"
)

func doc(uri string) Document {
	return Document{
		URI:    uri,
		Index:  map[string]string{"content": "hello world"},
		Fields: map[string]string{"title": "t-" + uri},
	}
}

func TestInsertIdempotentOnURI(t *testing.T) {
	tbl := New()
	id1 := tbl.Insert(doc("id://1"))
	id2 := tbl.Insert(doc("id://1"))
	assert.Equal(t, id1, id2)
	assert.Equal(t, 1, tbl.Size())

	id3 := tbl.Insert(doc("id://2"))
	assert.NotEqual(t, id1, id3)
	assert.Equal(t, 2, tbl.Size())
}

func TestLookupRoundTrip(t *testing.T) {
	tbl := New()
	id := tbl.Insert(doc("id://1"))

	got, ok := tbl.Lookup(id)
	require.True(t, ok)
	assert.Equal(t, "id://1", got.URI)
	assert.Equal(t, "hello world", got.Index["content"])
	assert.Equal(t, "t-id://1", got.Fields["title"])

	byURI, ok := tbl.LookupByURI("id://1")
	require.True(t, ok)
	assert.Equal(t, id, byURI)
}

func TestUpdateMovesURI(t *testing.T) {
	tbl := New()
	id := tbl.Insert(doc("id://1"))

	updated := doc("id://renamed")
	require.NoError(t, tbl.Update(id, updated))

	_, ok := tbl.LookupByURI("id://1")
	assert.False(t, ok)
	got, ok := tbl.LookupByURI("id://renamed")
	require.True(t, ok)
	assert.Equal(t, id, got)

	// Updating a missing document fails.
	assert.Error(t, tbl.Update(9999, updated))

	// Updating onto another document's URI fails.
	other := tbl.Insert(doc("id://other"))
	assert.Error(t, tbl.Update(other, updated))
}

func TestDeleteNeverReusesIDs(t *testing.T) {
	tbl := New()
	id1 := tbl.Insert(doc("id://1"))
	tbl.Delete(id1)
	id2 := tbl.Insert(doc("id://1"))
	assert.Greater(t, id2, id1)
}

func TestDifferenceByURIIgnoresMissing(t *testing.T) {
	tbl := New()
	id1 := tbl.Insert(doc("id://1"))
	tbl.Insert(doc("id://2"))

	removed := tbl.DifferenceByURI(map[string]struct{}{
		"id://1":       {},
		"id://missing": {},
	})

	assert.Equal(t, []postings.DocID{id1}, removed.Slice())
	assert.Equal(t, 1, tbl.Size())
}

func TestFilterReturnsRemoved(t *testing.T) {
	tbl := New()
	keep := tbl.Insert(doc("id://keep"))
	drop := tbl.Insert(doc("id://drop"))

	removed := tbl.Filter(func(id postings.DocID, d Document) bool {
		return d.URI == "id://keep"
	})

	assert.True(t, removed.Contains(drop))
	assert.False(t, removed.Contains(keep))
	assert.Equal(t, 1, tbl.Size())
}

func TestUnionDisjoint(t *testing.T) {
	a := New()
	a.Insert(doc("id://1"))

	b := New()
	b.Insert(doc("id://1"))

	// Same IDs and URIs on both sides: precondition violated.
	assert.Error(t, a.Union(b))

	c := Restore(
		map[postings.DocID]DValue{100: Wrap(doc("id://100"))},
		map[postings.DocID]string{100: "id://100"},
		101,
	)
	require.NoError(t, a.Union(c))
	assert.Equal(t, 2, a.Size())

	// nextID advanced past the union's IDs.
	next := a.Insert(doc("id://new"))
	assert.Greater(t, next, postings.DocID(100))
}

func TestMapKeys(t *testing.T) {
	tbl := New()
	id := tbl.Insert(doc("id://1"))

	require.NoError(t, tbl.MapKeys(func(d postings.DocID) postings.DocID { return d + 10 }))

	_, ok := tbl.Lookup(id)
	assert.False(t, ok)
	got, ok := tbl.LookupByURI("id://1")
	require.True(t, ok)
	assert.Equal(t, id+10, got)
}

func TestDValueRoundTrip(t *testing.T) {
	d := doc("id://wrap")
	back, err := Wrap(d).Unwrap()
	require.NoError(t, err)
	assert.Equal(t, d, back)
}
