package query

import (
	"encoding/json"
	"fmt"
)

// wire is the JSON shape of every query node. Binary operators accept two
// or more sub-queries and fold left.
type wire struct {
	Type     string            `json:"type"`
	Match    string            `json:"match,omitempty"`
	Text     string            `json:"text,omitempty"`
	Contexts []string          `json:"contexts,omitempty"`
	Queries  []json.RawMessage `json:"queries,omitempty"`
	Query    json.RawMessage   `json:"query,omitempty"`
	Lower    string            `json:"lower,omitempty"`
	Upper    string            `json:"upper,omitempty"`
	Factor   float64           `json:"factor,omitempty"`
}

// Unmarshal parses the JSON wire form of a query.
func Unmarshal(data []byte) (Query, error) {
	var w wire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("parsing query: %w", err)
	}
	return w.decode()
}

func (w wire) decode() (Query, error) {
	switch w.Type {
	case "word", "phrase":
		m, err := parseMatch(w.Match)
		if err != nil {
			return nil, err
		}
		if w.Text == "" {
			return nil, fmt.Errorf("%s query without text", w.Type)
		}
		if w.Type == "word" {
			return Word{Match: m, Text: w.Text}, nil
		}
		return Phrase{Match: m, Text: w.Text}, nil

	case "context":
		if len(w.Contexts) == 0 {
			return nil, fmt.Errorf("context query without contexts")
		}
		sub, err := w.subQuery()
		if err != nil {
			return nil, err
		}
		return Context{Contexts: w.Contexts, Query: sub}, nil

	case "and", "or", "and-not":
		if len(w.Queries) < 2 {
			return nil, fmt.Errorf("%s query needs at least two sub-queries", w.Type)
		}
		op := map[string]BinOp{"and": And, "or": Or, "and-not": AndNot}[w.Type]
		acc, err := Unmarshal(w.Queries[0])
		if err != nil {
			return nil, err
		}
		for _, raw := range w.Queries[1:] {
			next, err := Unmarshal(raw)
			if err != nil {
				return nil, err
			}
			acc = Binary{Op: op, Left: acc, Right: next}
		}
		return acc, nil

	case "range":
		if w.Lower == "" || w.Upper == "" {
			return nil, fmt.Errorf("range query needs lower and upper")
		}
		return Range{Lower: w.Lower, Upper: w.Upper}, nil

	case "boost":
		if w.Factor <= 0 {
			return nil, fmt.Errorf("boost factor must be positive")
		}
		sub, err := w.subQuery()
		if err != nil {
			return nil, err
		}
		return Boost{Factor: w.Factor, Query: sub}, nil

	default:
		return nil, fmt.Errorf("unknown query type %q", w.Type)
	}
}

func (w wire) subQuery() (Query, error) {
	if len(w.Query) == 0 {
		return nil, fmt.Errorf("%s query without sub-query", w.Type)
	}
	return Unmarshal(w.Query)
}

func parseMatch(s string) (Match, error) {
	switch s {
	case "case":
		return MatchCase, nil
	case "", "nocase":
		return MatchNoCase, nil
	case "fuzzy":
		return MatchFuzzy, nil
	}
	return 0, fmt.Errorf("unknown match mode %q", s)
}

// Marshal renders a query to its JSON wire form.
func Marshal(q Query) ([]byte, error) {
	return json.Marshal(encode(q))
}

func encode(q Query) map[string]any {
	switch t := q.(type) {
	case Word:
		return map[string]any{"type": "word", "match": t.Match.String(), "text": t.Text}
	case Phrase:
		return map[string]any{"type": "phrase", "match": t.Match.String(), "text": t.Text}
	case Context:
		return map[string]any{"type": "context", "contexts": t.Contexts, "query": encode(t.Query)}
	case Binary:
		return map[string]any{"type": t.Op.String(), "queries": []any{encode(t.Left), encode(t.Right)}}
	case Range:
		return map[string]any{"type": "range", "lower": t.Lower, "upper": t.Upper}
	case Boost:
		return map[string]any{"type": "boost", "factor": t.Factor, "query": encode(t.Query)}
	}
	return nil
}
