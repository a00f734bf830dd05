package query

// Optimize rewrites a query into an equivalent, usually cheaper form:
// boost folding, identity-boost elimination, and nested-context collapse.
// Optimize is idempotent and never changes query semantics.
func Optimize(q Query) Query {
	switch t := q.(type) {
	case Boost:
		inner := Optimize(t.Query)
		factor := t.Factor
		for {
			ib, ok := inner.(Boost)
			if !ok {
				break
			}
			factor *= ib.Factor
			inner = ib.Query
		}
		if factor == 1.0 {
			return inner
		}
		return Boost{Factor: factor, Query: inner}

	case Context:
		inner := Optimize(t.Query)
		// An inner context restriction overrides the outer one, so the
		// outer wrapper is dead.
		if ic, ok := inner.(Context); ok {
			return ic
		}
		return Context{Contexts: t.Contexts, Query: inner}

	case Binary:
		return Binary{
			Op:    t.Op,
			Left:  Optimize(t.Left),
			Right: Optimize(t.Right),
		}

	default:
		return q
	}
}
