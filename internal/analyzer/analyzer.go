// Package analyzer provides per-context-type text analysis: tokenization of
// ingested field values into positioned words, and validation plus
// normalization of individual terms at query time.
package analyzer

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	snowballeng "github.com/kljensen/snowball/english"
)

// Token is a single term and its word position in the analyzed text.
type Token struct {
	Word     string
	Position int
}

// Analyzer turns field values into tokens and query terms into canonical
// form. Normalize rejects values the context type cannot represent.
type Analyzer interface {
	Tokenize(text string) []Token
	Normalize(term string) (string, error)
}

// Text splits on non-letter/digit boundaries and preserves case, so both
// case-sensitive and case-insensitive searches stay possible.
type Text struct{}

func (Text) Tokenize(text string) []Token {
	return splitWords(text, func(w string) string { return w })
}

func (Text) Normalize(term string) (string, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return "", fmt.Errorf("empty term")
	}
	return term, nil
}

// Stemmed lowercases and applies English snowball stemming. Case-sensitive
// search against a stemmed context degenerates to case-insensitive search,
// since every stored term is lowercase.
type Stemmed struct{}

func (Stemmed) Tokenize(text string) []Token {
	return splitWords(text, func(w string) string {
		return snowballeng.Stem(strings.ToLower(w), false)
	})
}

func (Stemmed) Normalize(term string) (string, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return "", fmt.Errorf("empty term")
	}
	return snowballeng.Stem(strings.ToLower(term), false), nil
}

// Int accepts signed decimal integers; the canonical form strips leading
// zeros. Sortable storage padding happens in the index key proxy, not here.
type Int struct{}

func (Int) Tokenize(text string) []Token {
	var tokens []Token
	pos := 0
	for _, f := range strings.Fields(text) {
		n, err := strconv.ParseInt(f, 10, 64)
		if err != nil {
			continue
		}
		tokens = append(tokens, Token{Word: strconv.FormatInt(n, 10), Position: pos})
		pos++
	}
	return tokens
}

func (Int) Normalize(term string) (string, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(term), 10, 64)
	if err != nil {
		return "", fmt.Errorf("not an integer: %q", term)
	}
	return strconv.FormatInt(n, 10), nil
}

// Date accepts ISO dates (YYYY-MM-DD), which are lexicographically
// sortable as-is.
type Date struct{}

const dateLayout = "2006-01-02"

func (Date) Tokenize(text string) []Token {
	var tokens []Token
	pos := 0
	for _, f := range strings.Fields(text) {
		if _, err := time.Parse(dateLayout, f); err != nil {
			continue
		}
		tokens = append(tokens, Token{Word: f, Position: pos})
		pos++
	}
	return tokens
}

func (Date) Normalize(term string) (string, error) {
	term = strings.TrimSpace(term)
	if _, err := time.Parse(dateLayout, term); err != nil {
		return "", fmt.Errorf("not an ISO date: %q", term)
	}
	return term, nil
}

// Position accepts geographic "lat,lon" pairs in decimal degrees. The
// canonical form is fixed-precision so equal points compare equal.
type Position struct{}

func (Position) Tokenize(text string) []Token {
	var tokens []Token
	pos := 0
	for _, f := range strings.Fields(text) {
		norm, err := Position{}.Normalize(f)
		if err != nil {
			continue
		}
		tokens = append(tokens, Token{Word: norm, Position: pos})
		pos++
	}
	return tokens
}

func (Position) Normalize(term string) (string, error) {
	lat, lon, err := ParseLatLon(term)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%.6f,%.6f", lat, lon), nil
}

// ParseLatLon splits and validates a "lat,lon" pair.
func ParseLatLon(term string) (lat, lon float64, err error) {
	parts := strings.Split(strings.TrimSpace(term), ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("not a lat,lon pair: %q", term)
	}
	lat, err = strconv.ParseFloat(parts[0], 64)
	if err != nil || lat < -90 || lat > 90 {
		return 0, 0, fmt.Errorf("invalid latitude: %q", parts[0])
	}
	lon, err = strconv.ParseFloat(parts[1], 64)
	if err != nil || lon < -180 || lon > 180 {
		return 0, 0, fmt.Errorf("invalid longitude: %q", parts[1])
	}
	return lat, lon, nil
}

// splitWords breaks text on non-letter/digit boundaries and maps each word
// through norm, dropping words that normalize to "".
func splitWords(text string, norm func(string) string) []Token {
	words := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	tokens := make([]Token, 0, len(words))
	pos := 0
	for _, w := range words {
		n := norm(w)
		if n == "" {
			continue
		}
		tokens = append(tokens, Token{Word: n, Position: pos})
		pos++
	}
	return tokens
}
