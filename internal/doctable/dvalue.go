package doctable

import (
	"encoding/json"
	"fmt"

	"github.com/klauspost/compress/s2"
)

// DValue is the stored form of a document: JSON-encoded and s2-compressed.
// Documents are read far less often than postings, so the table trades
// unwrap CPU for resident memory the same way the compressed term index
// does.
type DValue struct {
	Data []byte
}

// Wrap compresses a document into its stored form.
func Wrap(doc Document) DValue {
	raw, err := json.Marshal(doc)
	if err != nil {
		// Document is maps of strings; marshalling cannot fail.
		panic(fmt.Sprintf("doctable: marshalling document %q: %v", doc.URI, err))
	}
	return DValue{Data: s2.Encode(nil, raw)}
}

// Unwrap decompresses a stored document.
func (v DValue) Unwrap() (Document, error) {
	raw, err := s2.Decode(nil, v.Data)
	if err != nil {
		return Document{}, fmt.Errorf("decompressing document: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Document{}, fmt.Errorf("decoding document: %w", err)
	}
	return doc, nil
}
