package query

import (
	"fmt"
	"strconv"
	"strings"
)

// Parse turns the interactive text syntax into a query AST:
//
//	hello world            words, folded with AND
//	hello OR world         OR fold
//	hello NOT world        AND-NOT
//	"hello world"          phrase
//	=Hello                 case-sensitive word
//	~helo                  fuzzy word
//	content:hello          restrict the next term to a context
//	cx1,cx2:hello          restrict to several contexts
//	term^2.5               boost the term
//	[2014-01-01 TO 2014-01-31]  inclusive range
//
// Words are matched case-insensitively by prefix unless marked with "=".
func Parse(input string) (Query, error) {
	tokens := lex(input)
	if len(tokens) == 0 {
		return nil, fmt.Errorf("empty query")
	}

	var acc Query
	op := And
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		switch tok {
		case "AND":
			op = And
			continue
		case "OR":
			op = Or
			continue
		case "NOT":
			op = AndNot
			continue
		}

		term, err := parseTerm(tok)
		if err != nil {
			return nil, err
		}
		if acc == nil {
			if op == AndNot {
				return nil, fmt.Errorf("query cannot start with NOT")
			}
			acc = term
		} else {
			acc = Binary{Op: op, Left: acc, Right: term}
		}
		op = And
	}
	if acc == nil {
		return nil, fmt.Errorf("empty query")
	}
	return acc, nil
}

func parseTerm(tok string) (Query, error) {
	// Context restriction: cx:term, cx1,cx2:term, or cx:[lo TO hi].
	var contexts []string
	if cut := strings.IndexByte(tok, ':'); cut > 0 &&
		!strings.HasPrefix(tok, "\"") && !strings.HasPrefix(tok, "[") &&
		(strings.IndexByte(tok, '[') == -1 || cut < strings.IndexByte(tok, '[')) {
		contexts = strings.Split(tok[:cut], ",")
		tok = tok[cut+1:]
		if tok == "" {
			return nil, fmt.Errorf("context restriction without a term")
		}
	}

	var q Query
	if strings.HasPrefix(tok, "[") && strings.HasSuffix(tok, "]") {
		// Range: [lo TO hi], already joined by the lexer.
		body := strings.TrimSuffix(strings.TrimPrefix(tok, "["), "]")
		parts := strings.SplitN(body, " TO ", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("malformed range %q", tok)
		}
		q = Range{Lower: strings.TrimSpace(parts[0]), Upper: strings.TrimSpace(parts[1])}
	} else {
		// Boost suffix: term^2.5.
		boost := 1.0
		if cut := strings.LastIndexByte(tok, '^'); cut > 0 {
			f, err := strconv.ParseFloat(tok[cut+1:], 64)
			if err != nil || f <= 0 {
				return nil, fmt.Errorf("malformed boost in %q", tok)
			}
			boost = f
			tok = tok[:cut]
		}

		switch {
		case strings.HasPrefix(tok, "\"") && strings.HasSuffix(tok, "\"") && len(tok) >= 2:
			q = Phrase{Match: MatchNoCase, Text: strings.Trim(tok, "\"")}
		case strings.HasPrefix(tok, "="):
			q = Word{Match: MatchCase, Text: tok[1:]}
		case strings.HasPrefix(tok, "~"):
			q = Word{Match: MatchFuzzy, Text: tok[1:]}
		default:
			q = Word{Match: MatchNoCase, Text: tok}
		}
		if w, ok := q.(Word); ok && w.Text == "" {
			return nil, fmt.Errorf("empty term in query")
		}
		if boost != 1.0 {
			if len(contexts) > 0 {
				q = Context{Contexts: contexts, Query: q}
				contexts = nil
			}
			q = Boost{Factor: boost, Query: q}
		}
	}

	if len(contexts) > 0 {
		q = Context{Contexts: contexts, Query: q}
	}
	return q, nil
}

// lex splits the input on whitespace, keeping quoted phrases and bracketed
// ranges together.
func lex(input string) []string {
	var tokens []string
	fields := strings.Fields(input)
	for i := 0; i < len(fields); i++ {
		f := fields[i]
		switch {
		case strings.Contains(f, "[") && !strings.HasSuffix(f, "]"):
			joined := f
			for i+1 < len(fields) {
				i++
				joined += " " + fields[i]
				if strings.HasSuffix(fields[i], "]") {
					break
				}
			}
			tokens = append(tokens, joined)
		case hasOpenQuote(f):
			joined := f
			for i+1 < len(fields) && !strings.HasSuffix(joined, "\"") {
				i++
				joined += " " + fields[i]
			}
			tokens = append(tokens, joined)
		default:
			tokens = append(tokens, f)
		}
	}
	return tokens
}

func hasOpenQuote(f string) bool {
	return strings.HasPrefix(f, "\"") && (len(f) == 1 || !strings.HasSuffix(f, "\""))
}
