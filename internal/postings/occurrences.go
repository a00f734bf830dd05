package postings

// Occurrences maps a document to the positions at which a term occurs in it.
// The invariant maintained by every operation: no entry has an empty
// position set.
type Occurrences map[DocID]Positions

// NewOccurrences returns an empty occurrence map.
func NewOccurrences() Occurrences {
	return make(Occurrences)
}

// SingleOccurrence builds an occurrence map for one document.
func SingleOccurrence(id DocID, pos Positions) Occurrences {
	o := NewOccurrences()
	if !pos.IsEmpty() {
		o[id] = pos
	}
	return o
}

// Add records a position of the term in the given document, in place.
func (o Occurrences) Add(id DocID, pos int) {
	p := o[id]
	p.Add(pos)
	o[id] = p
}

// Size returns the number of documents the term occurs in.
func (o Occurrences) Size() int {
	return len(o)
}

// IsEmpty reports whether the term occurs in no document.
func (o Occurrences) IsEmpty() bool {
	return len(o) == 0
}

// Docs returns the set of documents the term occurs in.
func (o Occurrences) Docs() *DocIDSet {
	s := NewDocIDSet()
	for id := range o {
		s.Add(id)
	}
	return s
}

// Clone returns a deep copy of o.
func (o Occurrences) Clone() Occurrences {
	out := make(Occurrences, len(o))
	for id, pos := range o {
		out[id] = pos.Clone()
	}
	return out
}

// Union combines o and q, uniting position sets of shared documents.
func (o Occurrences) Union(q Occurrences) Occurrences {
	out := o.Clone()
	for id, pos := range q {
		if existing, ok := out[id]; ok {
			out[id] = existing.Union(pos)
		} else {
			out[id] = pos.Clone()
		}
	}
	return out
}

// Intersect keeps documents present in both o and q, intersecting their
// position sets. Documents whose intersection is empty are dropped.
func (o Occurrences) Intersect(q Occurrences) Occurrences {
	out := NewOccurrences()
	for id, pos := range o {
		other, ok := q[id]
		if !ok {
			continue
		}
		common := pos.Intersect(other)
		if !common.IsEmpty() {
			out[id] = common
		}
	}
	return out
}

// Diff removes q's positions from o per document, dropping documents whose
// position set becomes empty.
func (o Occurrences) Diff(q Occurrences) Occurrences {
	out := NewOccurrences()
	for id, pos := range o {
		other, ok := q[id]
		if !ok {
			out[id] = pos.Clone()
			continue
		}
		rest := pos.Diff(other)
		if !rest.IsEmpty() {
			out[id] = rest
		}
	}
	return out
}

// WithoutDocs returns o with every document in s removed.
func (o Occurrences) WithoutDocs(s *DocIDSet) Occurrences {
	out := NewOccurrences()
	for id, pos := range o {
		if !s.Contains(id) {
			out[id] = pos
		}
	}
	return out
}

// Equal reports whether o and q hold the same documents with the same
// positions.
func (o Occurrences) Equal(q Occurrences) bool {
	if len(o) != len(q) {
		return false
	}
	for id, pos := range o {
		other, ok := q[id]
		if !ok || !pos.Equal(other) {
			return false
		}
	}
	return true
}

// MergeOccurrences is the combine operator handed to the term index on
// insert: the union of old and new postings.
func MergeOccurrences(old, new Occurrences) Occurrences {
	return old.Union(new)
}
