// Package schema defines contexts, their schemas, and the registry of
// context types. The schema is authoritative for which contexts exist and
// how their terms are analyzed; the engine keeps it in lockstep with the
// context index.
package schema

import (
	"fmt"
	"sort"

	"github.com/seralab/contexture/internal/analyzer"
	"github.com/seralab/contexture/internal/index"
)

// DefScore is the boost of a document matched in a context without an
// explicit weight.
const DefScore = 1.0

// Context is the name of an indexed field.
type Context = string

// ContextSchema describes one context: the context type that analyzes and
// stores its terms, a positive weight applied as document boost, and
// whether the context participates in queries that name no context.
type ContextSchema struct {
	Type    string  `json:"type"`
	Weight  float64 `json:"weight,omitempty"`
	Default bool    `json:"default,omitempty"`
}

// Boost returns the schema weight, or DefScore when none is set.
func (cs ContextSchema) Boost() float64 {
	if cs.Weight <= 0 {
		return DefScore
	}
	return cs.Weight
}

// Schema maps every live context to its schema.
type Schema map[Context]ContextSchema

// DefaultContexts returns the contexts marked default, sorted.
func (s Schema) DefaultContexts() []Context {
	var out []Context
	for c, cs := range s {
		if cs.Default {
			out = append(out, c)
		}
	}
	sort.Strings(out)
	return out
}

// Contexts returns all context names, sorted.
func (s Schema) Contexts() []Context {
	out := make([]Context, 0, len(s))
	for c := range s {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Clone returns a copy of the schema.
func (s Schema) Clone() Schema {
	out := make(Schema, len(s))
	for c, cs := range s {
		out[c] = cs
	}
	return out
}

// ContextType couples an analyzer with a factory minting the index variant
// that stores terms of this type.
type ContextType struct {
	Name     string
	Analyzer analyzer.Analyzer
	NewIndex func() *index.AnyIndex
}

// TypeRegistry holds the context types known to a running engine.
// Persisted indexes re-link their schemas against this registry on load.
type TypeRegistry struct {
	types map[string]*ContextType
}

// NewTypeRegistry returns an empty registry.
func NewTypeRegistry() *TypeRegistry {
	return &TypeRegistry{types: make(map[string]*ContextType)}
}

// Register adds a context type. Registering a duplicate name is an error.
func (r *TypeRegistry) Register(ct *ContextType) error {
	if _, exists := r.types[ct.Name]; exists {
		return fmt.Errorf("context type %q already registered", ct.Name)
	}
	r.types[ct.Name] = ct
	return nil
}

// Get returns the context type with the given name.
func (r *TypeRegistry) Get(name string) (*ContextType, bool) {
	ct, ok := r.types[name]
	return ct, ok
}

// Names lists the registered type names, sorted.
func (r *TypeRegistry) Names() []string {
	out := make([]string, 0, len(r.types))
	for n := range r.types {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// DefaultRegistry returns the built-in context types:
//
//	text         case-preserving words, compressed postings
//	text-stemmed lowercased snowball-stemmed words, compressed postings
//	int          signed integers behind a sortable key proxy
//	date         ISO dates, plain index (keys sort natively)
//	position     lat,lon pairs behind an interleaving key proxy
func DefaultRegistry() *TypeRegistry {
	r := NewTypeRegistry()
	for _, ct := range []*ContextType{
		{
			Name:     "text",
			Analyzer: analyzer.Text{},
			NewIndex: func() *index.AnyIndex {
				return &index.AnyIndex{Type: "text", Ix: index.NewCompressedIndex(index.S2Codec{})}
			},
		},
		{
			Name:     "text-stemmed",
			Analyzer: analyzer.Stemmed{},
			NewIndex: func() *index.AnyIndex {
				return &index.AnyIndex{Type: "text-stemmed", Ix: index.NewCompressedIndex(index.S2Codec{})}
			},
		},
		{
			Name:     "int",
			Analyzer: analyzer.Int{},
			NewIndex: func() *index.AnyIndex {
				return &index.AnyIndex{Type: "int", Ix: index.NewKeyProxy(index.NewMemIndex(), UnpadInt, PadInt)}
			},
		},
		{
			Name:     "date",
			Analyzer: analyzer.Date{},
			NewIndex: func() *index.AnyIndex {
				return &index.AnyIndex{Type: "date", Ix: index.NewMemIndex()}
			},
		},
		{
			Name:     "position",
			Analyzer: analyzer.Position{},
			NewIndex: func() *index.AnyIndex {
				return &index.AnyIndex{Type: "position", Ix: index.NewKeyProxy(index.NewMemIndex(), DeinterleavePos, InterleavePos)}
			},
		},
	} {
		if err := r.Register(ct); err != nil {
			panic(err)
		}
	}
	return r
}
