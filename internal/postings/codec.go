package postings

import (
	"encoding/binary"
	"fmt"

	"github.com/RoaringBitmap/roaring"
)

// EncodeOccurrences serializes an occurrence map to a compact binary form:
// a uvarint document count, then per document a uvarint DocID delta and a
// length-prefixed roaring-serialized position set. Documents are written in
// ascending ID order so the encoding is canonical.
func EncodeOccurrences(o Occurrences) ([]byte, error) {
	ids := o.Docs().Slice()
	buf := binary.AppendUvarint(nil, uint64(len(ids)))
	prev := uint64(0)
	for _, id := range ids {
		bits := o[id].bits
		if bits == nil {
			bits = roaring.New()
		}
		posBytes, err := bits.ToBytes()
		if err != nil {
			return nil, fmt.Errorf("encoding positions of doc %d: %w", id, err)
		}
		buf = binary.AppendUvarint(buf, uint64(id)-prev)
		buf = binary.AppendUvarint(buf, uint64(len(posBytes)))
		buf = append(buf, posBytes...)
		prev = uint64(id)
	}
	return buf, nil
}

// DecodeOccurrences parses the encoding produced by EncodeOccurrences.
func DecodeOccurrences(data []byte) (Occurrences, error) {
	count, n := binary.Uvarint(data)
	if n <= 0 {
		return nil, fmt.Errorf("decoding occurrence count")
	}
	data = data[n:]
	out := make(Occurrences, count)
	prev := uint64(0)
	for i := uint64(0); i < count; i++ {
		delta, n := binary.Uvarint(data)
		if n <= 0 {
			return nil, fmt.Errorf("decoding doc id %d", i)
		}
		data = data[n:]
		size, n := binary.Uvarint(data)
		if n <= 0 {
			return nil, fmt.Errorf("decoding position length of doc %d", i)
		}
		data = data[n:]
		if uint64(len(data)) < size {
			return nil, fmt.Errorf("truncated positions of doc %d", i)
		}
		bits := roaring.New()
		if _, err := bits.FromBuffer(data[:size]); err != nil {
			return nil, fmt.Errorf("decoding positions of doc %d: %w", i, err)
		}
		// Clone detaches the bitmap from the shared input buffer.
		id := prev + delta
		out[DocID(id)] = Positions{bits: bits.Clone()}
		prev = id
		data = data[size:]
	}
	return out, nil
}
