// Package postings defines the posting primitives of the engine: document
// identifiers, position sets, occurrence maps, and the set operations the
// intermediate-result algebra is built on. All binary operators return fresh
// values and never mutate their operands.
package postings

import (
	"encoding/json"

	"github.com/RoaringBitmap/roaring"
)

// DocID identifies a document. IDs are minted sequentially by the document
// table and never reused within a session.
type DocID uint32

// Positions is a sorted, deduplicated set of non-negative word positions
// within a single document, backed by a roaring bitmap. The zero value is an
// empty set.
type Positions struct {
	bits *roaring.Bitmap
}

// NewPositions builds a position set from the given positions.
func NewPositions(ps ...int) Positions {
	p := Positions{bits: roaring.New()}
	for _, v := range ps {
		p.bits.Add(uint32(v))
	}
	return p
}

// Add inserts a position into the set in place.
func (p *Positions) Add(pos int) {
	if p.bits == nil {
		p.bits = roaring.New()
	}
	p.bits.Add(uint32(pos))
}

// Contains reports whether pos is in the set.
func (p Positions) Contains(pos int) bool {
	if p.bits == nil || pos < 0 {
		return false
	}
	return p.bits.Contains(uint32(pos))
}

// Len returns the number of positions in the set.
func (p Positions) Len() int {
	if p.bits == nil {
		return 0
	}
	return int(p.bits.GetCardinality())
}

// IsEmpty reports whether the set has no positions.
func (p Positions) IsEmpty() bool {
	return p.Len() == 0
}

// Slice returns the positions in ascending order.
func (p Positions) Slice() []int {
	if p.bits == nil {
		return nil
	}
	raw := p.bits.ToArray()
	out := make([]int, len(raw))
	for i, v := range raw {
		out[i] = int(v)
	}
	return out
}

// Min returns the smallest position. It panics on an empty set.
func (p Positions) Min() int {
	return int(p.bits.Minimum())
}

// Union returns the set union of p and q.
func (p Positions) Union(q Positions) Positions {
	switch {
	case p.bits == nil:
		return q.Clone()
	case q.bits == nil:
		return p.Clone()
	}
	return Positions{bits: roaring.Or(p.bits, q.bits)}
}

// Intersect returns the set intersection of p and q.
func (p Positions) Intersect(q Positions) Positions {
	if p.bits == nil || q.bits == nil {
		return Positions{}
	}
	return Positions{bits: roaring.And(p.bits, q.bits)}
}

// Diff returns the positions of p not present in q.
func (p Positions) Diff(q Positions) Positions {
	if p.bits == nil || q.bits == nil {
		return p.Clone()
	}
	return Positions{bits: roaring.AndNot(p.bits, q.bits)}
}

// Clone returns an independent copy of p.
func (p Positions) Clone() Positions {
	if p.bits == nil {
		return Positions{}
	}
	return Positions{bits: p.bits.Clone()}
}

// Equal reports whether p and q contain the same positions.
func (p Positions) Equal(q Positions) bool {
	if p.Len() != q.Len() {
		return false
	}
	if p.bits == nil {
		return true
	}
	return p.bits.Equals(q.bits)
}

// MarshalJSON renders the set as a sorted position array.
func (p Positions) MarshalJSON() ([]byte, error) {
	s := p.Slice()
	if s == nil {
		s = []int{}
	}
	return json.Marshal(s)
}

// UnmarshalJSON parses a position array.
func (p *Positions) UnmarshalJSON(data []byte) error {
	var s []int
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*p = NewPositions(s...)
	return nil
}
