// Package querylanguage renders predicate trees into the small
// infix query language used by explain(): field
// comparisons, boolean combinators, and a handful of named functions
// (contains, has_prefix, has_edge, ...). It does not parse, only
// stringifies, predicates built from Filter/Update ASTs elsewhere in
// the module.
package querylanguage

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// P is a predicate: anything that renders to the query language and
// knows how to negate itself.
type P interface {
	String() string
	Negate() P
}

// F references a field by name, rendered unquoted.
func F(name string) P { return rawExpr(name) }

type rawExpr string

func (r rawExpr) String() string { return string(r) }
func (r rawExpr) Negate() P      { return Not(r) }

type binaryExpr struct {
	op       string
	lhs, rhs P
}

func (b binaryExpr) String() string { return b.lhs.String() + " " + b.op + " " + b.rhs.String() }
func (b binaryExpr) Negate() P      { return Not(b) }

// EQ, NEQ, GT, GTE, LT, LTE compare two predicates (typically F(...)
// or a literal built by one of the Field* helpers below).
func EQ(lhs, rhs P) P  { return binaryExpr{"==", lhs, rhs} }
func NEQ(lhs, rhs P) P { return binaryExpr{"!=", lhs, rhs} }
func GT(lhs, rhs P) P  { return binaryExpr{">", lhs, rhs} }
func GTE(lhs, rhs P) P { return binaryExpr{">=", lhs, rhs} }
func LT(lhs, rhs P) P  { return binaryExpr{"<", lhs, rhs} }
func LTE(lhs, rhs P) P { return binaryExpr{"<=", lhs, rhs} }

type unaryExpr struct{ p P }

func (u unaryExpr) String() string { return "!(" + u.p.String() + ")" }
func (u unaryExpr) Negate() P      { return Not(u) }

// Not negates p, wrapping its rendering in "!(...)".
func Not(p P) P { return unaryExpr{p} }

type naryOp string

const (
	naryAnd naryOp = "&&"
	naryOr  naryOp = "||"
)

type naryExpr struct {
	op naryOp
	ps []P
}

func (n naryExpr) String() string {
	parts := make([]string, len(n.ps))
	for i, p := range n.ps {
		parts[i] = p.String()
	}
	joined := strings.Join(parts, " "+string(n.op)+" ")
	if len(n.ps) <= 2 {
		return joined
	}
	return "(" + joined + ")"
}
func (n naryExpr) Negate() P { return Not(n) }

// And combines predicates conjunctively. Two operands render
// unwrapped (a && b); three or more are parenthesized.
func And(ps ...P) P { return naryExpr{naryAnd, ps} }

// Or combines predicates disjunctively, with the same 2-vs-3+ wrapping
// rule as And.
func Or(ps ...P) P { return naryExpr{naryOr, ps} }

type callExpr struct {
	name string
	args []string
}

func (c callExpr) String() string { return c.name + "(" + strings.Join(c.args, ", ") + ")" }
func (c callExpr) Negate() P      { return Not(c) }

type inExpr struct {
	field string
	neg   bool
	vals  []string
}

func (e inExpr) String() string {
	op := "in"
	if e.neg {
		op = "not in"
	}
	return e.field + " " + op + " [" + strings.Join(e.vals, ",") + "]"
}
func (e inExpr) Negate() P { return Not(e) }

type litExpr string

func (l litExpr) String() string { return string(l) }
func (l litExpr) Negate() P      { return Not(l) }

// formatValue renders a Go value as a query-language literal: strings
// are double-quoted, bytes are base64-then-quoted, times are
// RFC3339-then-quoted, floats print with no exponent and no trailing
// zeros, and anything else (driver.Valuer implementations included)
// renders as the opaque placeholder "{}".
func formatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return "nil"
	case string:
		return strconv.Quote(t)
	case bool:
		return fmt.Sprintf("%v", t)
	case []byte:
		return strconv.Quote(base64.StdEncoding.EncodeToString(t))
	case time.Time:
		return strconv.Quote(t.Format(time.RFC3339))
	case int:
		return strconv.FormatInt(int64(t), 10)
	case int8:
		return strconv.FormatInt(int64(t), 10)
	case int16:
		return strconv.FormatInt(int64(t), 10)
	case int32:
		return strconv.FormatInt(int64(t), 10)
	case int64:
		return strconv.FormatInt(t, 10)
	case uint:
		return strconv.FormatUint(uint64(t), 10)
	case uint8:
		return strconv.FormatUint(uint64(t), 10)
	case uint16:
		return strconv.FormatUint(uint64(t), 10)
	case uint32:
		return strconv.FormatUint(uint64(t), 10)
	case uint64:
		return strconv.FormatUint(t, 10)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return "{}"
	}
}

func literal(v any) P { return litExpr(formatValue(v)) }

// FieldEQ, FieldNEQ, FieldGT, FieldGTE, FieldLT, FieldLTE compare a
// named field against a literal value.
func FieldEQ(field string, v any) P  { return EQ(F(field), literal(v)) }
func FieldNEQ(field string, v any) P { return NEQ(F(field), literal(v)) }
func FieldGT(field string, v any) P  { return GT(F(field), literal(v)) }
func FieldGTE(field string, v any) P { return GTE(F(field), literal(v)) }
func FieldLT(field string, v any) P  { return LT(F(field), literal(v)) }
func FieldLTE(field string, v any) P { return LTE(F(field), literal(v)) }

// FieldNil and FieldNotNil test a field against nil.
func FieldNil(field string) P    { return EQ(F(field), litExpr("nil")) }
func FieldNotNil(field string) P { return NEQ(F(field), litExpr("nil")) }

func formatValues(vals []any) []string {
	strs := make([]string, len(vals))
	for i, v := range vals {
		strs[i] = formatValue(v)
	}
	return strs
}

// FieldIn and FieldNotIn test set membership.
func FieldIn(field string, vals ...any) P {
	return inExpr{field: field, vals: formatValues(vals)}
}
func FieldNotIn(field string, vals ...any) P {
	return inExpr{field: field, neg: true, vals: formatValues(vals)}
}

// FieldContains, FieldContainsFold, FieldEqualFold, FieldHasPrefix,
// and FieldHasSuffix render as named function calls over a field and
// a quoted string literal.
func FieldContains(field, substr string) P {
	return callExpr{"contains", []string{field, strconv.Quote(substr)}}
}
func FieldContainsFold(field, substr string) P {
	return callExpr{"contains_fold", []string{field, strconv.Quote(substr)}}
}
func FieldEqualFold(field, s string) P {
	return callExpr{"equal_fold", []string{field, strconv.Quote(s)}}
}
func FieldHasPrefix(field, prefix string) P {
	return callExpr{"has_prefix", []string{field, strconv.Quote(prefix)}}
}
func FieldHasSuffix(field, suffix string) P {
	return callExpr{"has_suffix", []string{field, strconv.Quote(suffix)}}
}

// HasEdge asserts that an edge exists. HasEdgeWith additionally
// requires the edge's target to satisfy a nested predicate.
func HasEdge(name string) P { return callExpr{"has_edge", []string{name}} }
func HasEdgeWith(name string, p P) P {
	return callExpr{"has_edge", []string{name, p.String()}}
}
