package postings

import "github.com/RoaringBitmap/roaring"

// DocIDSet is a set of document identifiers backed by a roaring bitmap.
// The zero value is an empty set.
type DocIDSet struct {
	bits *roaring.Bitmap
}

// NewDocIDSet builds a set from the given document IDs.
func NewDocIDSet(ids ...DocID) *DocIDSet {
	s := &DocIDSet{bits: roaring.New()}
	for _, id := range ids {
		s.bits.Add(uint32(id))
	}
	return s
}

// Add inserts id into the set.
func (s *DocIDSet) Add(id DocID) {
	if s.bits == nil {
		s.bits = roaring.New()
	}
	s.bits.Add(uint32(id))
}

// Contains reports whether id is in the set.
func (s *DocIDSet) Contains(id DocID) bool {
	if s == nil || s.bits == nil {
		return false
	}
	return s.bits.Contains(uint32(id))
}

// Len returns the number of IDs in the set.
func (s *DocIDSet) Len() int {
	if s == nil || s.bits == nil {
		return 0
	}
	return int(s.bits.GetCardinality())
}

// IsEmpty reports whether the set has no IDs.
func (s *DocIDSet) IsEmpty() bool {
	return s.Len() == 0
}

// Slice returns the IDs in ascending order.
func (s *DocIDSet) Slice() []DocID {
	if s == nil || s.bits == nil {
		return nil
	}
	raw := s.bits.ToArray()
	out := make([]DocID, len(raw))
	for i, v := range raw {
		out[i] = DocID(v)
	}
	return out
}

// Union returns the set union of s and t.
func (s *DocIDSet) Union(t *DocIDSet) *DocIDSet {
	out := NewDocIDSet()
	if s != nil && s.bits != nil {
		out.bits.Or(s.bits)
	}
	if t != nil && t.bits != nil {
		out.bits.Or(t.bits)
	}
	return out
}
