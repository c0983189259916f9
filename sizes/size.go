// Package sizes implements the shape algebra: symbolic size expressions
// over a free commutative semiring of symbol names and natural-number
// literals, the broadcast tag, and the Shape (ordered list of sizes) type
// built on top of it.
package sizes

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// SymEnv is a partial binding from size-symbol name to a resolved natural
// number, used by CanEval/Eval/Subst once concrete sizes are known.
type SymEnv map[string]uint64

// monomial is a single term of the polynomial: coeff * prod(symbol^power).
// Symbols with power 0 are never stored (normalized away).
type monomial struct {
	coeff  uint64
	powers map[string]uint32
}

func (m monomial) key() string {
	if len(m.powers) == 0 {
		return ""
	}
	names := make([]string, 0, len(m.powers))
	for s := range m.powers {
		names = append(names, s)
	}
	sort.Strings(names)
	var sb strings.Builder
	for _, s := range names {
		fmt.Fprintf(&sb, "%s^%d,", s, m.powers[s])
	}
	return sb.String()
}

func (m monomial) clonePowers() map[string]uint32 {
	if len(m.powers) == 0 {
		return nil
	}
	p := make(map[string]uint32, len(m.powers))
	for k, v := range m.powers {
		p[k] = v
	}
	return p
}

// SizeExpr is an element of the free commutative semiring over symbolic
// size variables and natural-number literals: a normalized sum of
// monomials. Broadcast is a distinguished tag meaning "semantically 1, but
// flagged for broadcast inference" (see BroadcastToSameShape).
type SizeExpr struct {
	terms     []monomial // normalized: sorted by key(), no duplicate keys, no zero-coeff terms (except the single 0 constant)
	Broadcast bool
}

// Fix returns the size expression for the natural-number literal n.
func Fix(n uint64) SizeExpr {
	return SizeExpr{terms: []monomial{{coeff: n}}}
}

// Sym returns the size expression for a single free symbol.
func Sym(name string) SizeExpr {
	return SizeExpr{terms: []monomial{{coeff: 1, powers: map[string]uint32{name: 1}}}}
}

// BroadcastSize is the distinguished size expression: semantically 1, but
// tagged so Shape broadcasting rules can replace it with the other operand.
func BroadcastSize() SizeExpr {
	return SizeExpr{terms: []monomial{{coeff: 1}}, Broadcast: true}
}

func normalize(terms []monomial) []monomial {
	byKey := make(map[string]monomial, len(terms))
	order := make([]string, 0, len(terms))
	for _, t := range terms {
		k := t.key()
		if existing, ok := byKey[k]; ok {
			existing.coeff += t.coeff
			byKey[k] = existing
		} else {
			byKey[k] = t
			order = append(order, k)
		}
	}
	sort.Strings(order)
	out := make([]monomial, 0, len(order))
	for _, k := range order {
		m := byKey[k]
		if m.coeff != 0 {
			out = append(out, m)
		}
	}
	if len(out) == 0 {
		out = []monomial{{coeff: 0}}
	}
	return out
}

// Add returns a + b. The result is never Broadcast-tagged: arithmetic
// combination resolves the tag (it only matters for axis alignment).
func Add(a, b SizeExpr) SizeExpr {
	terms := make([]monomial, 0, len(a.terms)+len(b.terms))
	terms = append(terms, a.terms...)
	terms = append(terms, b.terms...)
	return SizeExpr{terms: normalize(terms)}
}

// Mul returns a * b, distributing over both sums of monomials.
func Mul(a, b SizeExpr) SizeExpr {
	terms := make([]monomial, 0, len(a.terms)*len(b.terms))
	for _, ta := range a.terms {
		for _, tb := range b.terms {
			powers := ta.clonePowers()
			if powers == nil && len(tb.powers) > 0 {
				powers = make(map[string]uint32, len(tb.powers))
			}
			for s, p := range tb.powers {
				powers[s] += p
			}
			terms = append(terms, monomial{coeff: ta.coeff * tb.coeff, powers: powers})
		}
	}
	return SizeExpr{terms: normalize(terms)}
}

// FreeSymbols returns the set of symbol names appearing in e.
func (e SizeExpr) FreeSymbols() []string {
	set := map[string]bool{}
	for _, t := range e.terms {
		for s := range t.powers {
			set[s] = true
		}
	}
	names := make([]string, 0, len(set))
	for s := range set {
		names = append(names, s)
	}
	sort.Strings(names)
	return names
}

// CanEval reports whether every free symbol in e is bound in env (so Eval
// would succeed).
func (e SizeExpr) CanEval(env SymEnv) bool {
	for _, s := range e.FreeSymbols() {
		if _, ok := env[s]; !ok {
			return false
		}
	}
	return true
}

// Eval evaluates e to a concrete natural number once every free symbol is
// bound in env. Broadcast-tagged expressions evaluate to their literal
// value (1, for BroadcastSize()).
func (e SizeExpr) Eval(env SymEnv) (uint64, error) {
	if !e.CanEval(env) {
		missing := make([]string, 0)
		for _, s := range e.FreeSymbols() {
			if _, ok := env[s]; !ok {
				missing = append(missing, s)
			}
		}
		return 0, errors.Errorf("cannot evaluate size expression %s: unresolved symbols %v", e, missing)
	}
	var total uint64
	for _, t := range e.terms {
		term := t.coeff
		for s, p := range t.powers {
			base := env[s]
			for i := uint32(0); i < p; i++ {
				term *= base
			}
		}
		total += term
	}
	return total, nil
}

// Subst substitutes every symbol bound in env with its numeric value,
// returning a new, re-normalized SizeExpr. Symbols not in env are left
// free. The Broadcast tag is preserved.
func (e SizeExpr) Subst(env SymEnv) SizeExpr {
	terms := make([]monomial, 0, len(e.terms))
	for _, t := range e.terms {
		coeff := t.coeff
		var powers map[string]uint32
		for s, p := range t.powers {
			if v, ok := env[s]; ok {
				for i := uint32(0); i < p; i++ {
					coeff *= v
				}
			} else {
				if powers == nil {
					powers = map[string]uint32{}
				}
				powers[s] = p
			}
		}
		terms = append(terms, monomial{coeff: coeff, powers: powers})
	}
	return SizeExpr{terms: normalize(terms), Broadcast: e.Broadcast}
}

// isLiteralOne reports whether e is the closed-form constant 1 (used by
// the non-strict broadcast rule to implicitly broadcast a literal-1 axis
// even when it isn't tagged Broadcast).
func (e SizeExpr) isLiteralOne() bool {
	return len(e.terms) == 1 && len(e.terms[0].powers) == 0 && e.terms[0].coeff == 1
}

// EqualUnder reports whether e and other denote the same size once env is
// substituted into both sides and they are normalized.
func (e SizeExpr) EqualUnder(env SymEnv, other SizeExpr) bool {
	a := e.Subst(env)
	b := other.Subst(env)
	if len(a.terms) != len(b.terms) {
		return false
	}
	for i := range a.terms {
		ta, tb := a.terms[i], b.terms[i]
		if ta.coeff != tb.coeff || ta.key() != tb.key() {
			return false
		}
	}
	return true
}

// String renders the size expression in a human-readable polynomial form,
// e.g. "N*M + 1" or "Broadcast".
func (e SizeExpr) String() string {
	if e.Broadcast && e.isLiteralOne() {
		return "Broadcast"
	}
	parts := make([]string, 0, len(e.terms))
	for _, t := range e.terms {
		names := make([]string, 0, len(t.powers))
		for s := range t.powers {
			names = append(names, s)
		}
		sort.Strings(names)
		var sb strings.Builder
		if t.coeff != 1 || len(names) == 0 {
			fmt.Fprintf(&sb, "%d", t.coeff)
		}
		for _, s := range names {
			if sb.Len() > 0 {
				sb.WriteString("*")
			}
			if t.powers[s] == 1 {
				sb.WriteString(s)
			} else {
				fmt.Fprintf(&sb, "%s^%d", s, t.powers[s])
			}
		}
		parts = append(parts, sb.String())
	}
	return strings.Join(parts, " + ")
}
