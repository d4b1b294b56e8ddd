package sql

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/polyquery/polyquery"
	"github.com/polyquery/polyquery/dialect"
)

// placeholderStyle identifies how a dialect spells positional
// parameters.
type placeholderStyle int

const (
	placeholderDollar   placeholderStyle = iota // PostgreSQL: $1, $2, ...
	placeholderQuestion                         // MySQL/SQLite: ?
	placeholderAtP                              // MSSQL: @p1, @p2, ...
)

func styleFor(dialectName string) placeholderStyle {
	switch dialectName {
	case dialect.Postgres:
		return placeholderDollar
	case dialect.MSSQL:
		return placeholderAtP
	default:
		return placeholderQuestion
	}
}

// paramCounter emits successive placeholders for one statement,
// numbering densely from offset+1 in dialects that number placeholders
// (offsetting shifts the whole clause uniformly).
type paramCounter struct {
	style placeholderStyle
	next  int
}

func newParamCounter(style placeholderStyle, offset int) *paramCounter {
	return &paramCounter{style: style, next: offset + 1}
}

func (c *paramCounter) placeholder() string {
	switch c.style {
	case placeholderDollar:
		s := fmt.Sprintf("$%d", c.next)
		c.next++
		return s
	case placeholderAtP:
		s := fmt.Sprintf("@p%d", c.next)
		c.next++
		return s
	default:
		c.next++
		return "?"
	}
}

// quoteIdent double-quotes an identifier, escaping internal double
// quotes by doubling them: identifiers are always double-quoted
// with internal double-quotes escaped.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// canonicalOps is the fixed emission order for operators within one
// bag, matching the order operators are introduced conceptually. A fixed
// order is required because polyquery.OpBag is a Go map with no
// defined iteration order; without one, repeated translation of the
// same filter could legally differ in clause text.
var canonicalOps = []string{
	polyquery.OpEQ, polyquery.OpNE, polyquery.OpGT, polyquery.OpGTE,
	polyquery.OpLT, polyquery.OpLTE, polyquery.OpIn, polyquery.OpNin,
	polyquery.OpExists, polyquery.OpRegex, polyquery.OpNot, polyquery.OpSize,
}

func isKnownOp(op string) bool {
	for _, k := range canonicalOps {
		if k == op {
			return true
		}
	}
	return false
}

// TranslateFilter compiles f into a parameterized SQL clause for
// dialectName, offsetting placeholder numbers by offset. Empty filter
// yields "1=1" with no values.
func TranslateFilter(dialectName string, f polyquery.Filter, offset int) (string, []any, error) {
	pc := newParamCounter(styleFor(dialectName), offset)
	values := make([]any, 0)
	clause, err := translateFilter(dialectName, f, pc, &values)
	if err != nil {
		return "", nil, err
	}
	if clause == "" {
		clause = "1=1"
	}
	return clause, values, nil
}

func translateFilter(dialectName string, f polyquery.Filter, pc *paramCounter, values *[]any) (string, error) {
	if len(f) == 0 {
		return "", nil
	}
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	clauses := make([]string, 0, len(keys))
	for _, key := range keys {
		val := f[key]
		switch key {
		case polyquery.KeyAnd, polyquery.KeyOr, polyquery.KeyNor:
			c, err := translateLogical(dialectName, key, val, pc, values)
			if err != nil {
				return "", err
			}
			clauses = append(clauses, c)
		default:
			if strings.HasPrefix(key, "$") {
				return "", strayKeyError(key)
			}
			c, err := translateField(dialectName, key, val, pc, values)
			if err != nil {
				return "", err
			}
			clauses = append(clauses, c)
		}
	}
	return strings.Join(clauses, " AND "), nil
}

func translateLogical(dialectName, key string, val any, pc *paramCounter, values *[]any) (string, error) {
	sub, ok := val.([]polyquery.Filter)
	if !ok {
		return "", strayKeyError(key)
	}
	parts := make([]string, 0, len(sub))
	for _, s := range sub {
		c, err := translateFilter(dialectName, s, pc, values)
		if err != nil {
			return "", err
		}
		if c == "" {
			c = "1=1"
		}
		parts = append(parts, "("+c+")")
	}
	switch key {
	case polyquery.KeyAnd:
		return "(" + strings.Join(parts, " AND ") + ")", nil
	case polyquery.KeyOr:
		return "(" + strings.Join(parts, " OR ") + ")", nil
	default: // KeyNor
		return "NOT (" + strings.Join(parts, " OR ") + ")", nil
	}
}

func translateField(dialectName, field string, val any, pc *paramCounter, values *[]any) (string, error) {
	bag, isBag := val.(polyquery.OpBag)
	if !isBag {
		if val == nil {
			return quoteIdent(field) + " IS NULL", nil
		}
		ph := pc.placeholder()
		*values = append(*values, val)
		return quoteIdent(field) + " = " + ph, nil
	}

	for k := range bag {
		if k == polyquery.OpOptions {
			continue
		}
		if !isKnownOp(k) {
			return "", unknownOperatorError(k)
		}
	}

	options, _ := bag[polyquery.OpOptions].(string)
	parts := make([]string, 0, len(bag))
	for _, op := range canonicalOps {
		v, present := bag[op]
		if !present {
			continue
		}
		part, err := translateOp(dialectName, field, op, v, options, pc, values)
		if err != nil {
			return "", err
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, " AND "), nil
}

func translateOp(dialectName, field, op string, v any, options string, pc *paramCounter, values *[]any) (string, error) {
	ident := quoteIdent(field)
	switch op {
	case polyquery.OpEQ:
		if v == nil {
			return ident + " IS NULL", nil
		}
		ph := pc.placeholder()
		*values = append(*values, v)
		return ident + " = " + ph, nil
	case polyquery.OpNE:
		if v == nil {
			return ident + " IS NOT NULL", nil
		}
		ph := pc.placeholder()
		*values = append(*values, v)
		return ident + " <> " + ph, nil
	case polyquery.OpGT, polyquery.OpGTE, polyquery.OpLT, polyquery.OpLTE:
		sym := map[string]string{polyquery.OpGT: ">", polyquery.OpGTE: ">=", polyquery.OpLT: "<", polyquery.OpLTE: "<="}[op]
		ph := pc.placeholder()
		*values = append(*values, v)
		return ident + " " + sym + " " + ph, nil
	case polyquery.OpIn, polyquery.OpNin:
		items := toSlice(v)
		if len(items) == 0 {
			if op == polyquery.OpIn {
				return "1=0", nil
			}
			return "1=1", nil
		}
		phs := make([]string, len(items))
		for i, it := range items {
			phs[i] = pc.placeholder()
			*values = append(*values, it)
		}
		kw := "IN"
		if op == polyquery.OpNin {
			kw = "NOT IN"
		}
		return ident + " " + kw + " (" + strings.Join(phs, ", ") + ")", nil
	case polyquery.OpExists:
		exists, _ := v.(bool)
		if exists {
			return ident + " IS NOT NULL", nil
		}
		return ident + " IS NULL", nil
	case polyquery.OpRegex:
		pattern, _ := v.(string)
		return translateRegex(dialectName, field, pattern, options, pc, values)
	case polyquery.OpNot:
		nested, ok := v.(polyquery.OpBag)
		if !ok {
			return "", unknownOperatorError(polyquery.OpNot)
		}
		inner, err := translateField(dialectName, field, nested, pc, values)
		if err != nil {
			return "", err
		}
		return "NOT (" + inner + ")", nil
	case polyquery.OpSize:
		ph := pc.placeholder()
		*values = append(*values, v)
		return jsonLengthExpr(dialectName, field) + " = " + ph, nil
	default:
		return "", unknownOperatorError(op)
	}
}

func translateRegex(dialectName, field, pattern, options string, pc *paramCounter, values *[]any) (string, error) {
	ident := quoteIdent(field)
	caseInsensitive := strings.Contains(options, "i")
	multiline := strings.Contains(options, "m")

	switch dialectName {
	case dialect.Postgres:
		op := "~"
		if caseInsensitive {
			op = "~*"
		}
		ph := pc.placeholder()
		*values = append(*values, pattern)
		return ident + " " + op + " " + ph, nil
	case dialect.MySQL:
		ph := pc.placeholder()
		*values = append(*values, pattern)
		if caseInsensitive {
			return "LOWER(" + ident + ") REGEXP LOWER(" + ph + ")", nil
		}
		return ident + " REGEXP " + ph, nil
	case dialect.MSSQL, dialect.SQLite:
		if multiline {
			return "", polyquery.NewError(
				polyquery.CodeUnsupportedOperation,
				fmt.Sprintf("multiline $regex is not supported on %s", dialectName),
				"drop the 'm' option or use a backend with native regex support",
			)
		}
		ph := pc.placeholder()
		*values = append(*values, regexToLike(pattern))
		return ident + " LIKE " + ph, nil
	default:
		return "", polyquery.NewError(polyquery.CodeInternalError, "unknown dialect "+dialectName, "")
	}
}

// regexToLike performs the simple anchor/wildcard rewriting for
// dialects whose $regex falls back to LIKE: strip ^/$
// anchors, rewrite .* to % and . to _, escaping any literal % or _
// already present in the pattern.
func regexToLike(pattern string) string {
	p := strings.TrimSuffix(strings.TrimPrefix(pattern, "^"), "$")
	var b strings.Builder
	for i := 0; i < len(p); {
		switch {
		case strings.HasPrefix(p[i:], ".*"):
			b.WriteByte('%')
			i += 2
		case p[i] == '.':
			b.WriteByte('_')
			i++
		case p[i] == '%' || p[i] == '_':
			b.WriteByte('\\')
			b.WriteByte(p[i])
			i++
		default:
			b.WriteByte(p[i])
			i++
		}
	}
	return b.String()
}

func jsonLengthExpr(dialectName, field string) string {
	ident := quoteIdent(field)
	switch dialectName {
	case dialect.Postgres:
		return "jsonb_array_length(" + ident + ")"
	case dialect.MySQL:
		return "JSON_LENGTH(" + ident + ")"
	case dialect.SQLite:
		return "json_array_length(" + ident + ")"
	case dialect.MSSQL:
		return "(SELECT COUNT(*) FROM OPENJSON(" + ident + "))"
	default:
		return ident
	}
}

func toSlice(v any) []any {
	if v == nil {
		return nil
	}
	if s, ok := v.([]any); ok {
		return s
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil
	}
	out := make([]any, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		out[i] = rv.Index(i).Interface()
	}
	return out
}

func unknownOperatorError(op string) error {
	return polyquery.NewError(
		polyquery.CodeUnknownOperator,
		fmt.Sprintf("unknown operator %q", op),
		"supported operators: "+strings.Join(polyquery.SupportedOperators, ", "),
	)
}

func strayKeyError(key string) error {
	return polyquery.NewError(
		polyquery.CodeUnknownOperator,
		fmt.Sprintf("unexpected top-level key %q", key),
		`nest operators under a field, e.g. {"field": {"$eq": ...}}`,
	)
}

// TranslateUpdate compiles u into SQL SET-clause fragments for
// dialectName. $push/$pull have no uniform SQL
// representation across dialects and are only emitted by the
// search-engine translator; an update using only those is treated as
// empty here and raises QUERY_ERROR, per "at least one clause
// required".
func TranslateUpdate(dialectName string, u polyquery.Update, offset int) (string, []any, error) {
	pc := newParamCounter(styleFor(dialectName), offset)
	values := make([]any, 0)
	parts := make([]string, 0)

	for _, name := range sortedKeys(u.Set) {
		ph := pc.placeholder()
		values = append(values, u.Set[name])
		parts = append(parts, quoteIdent(name)+" = "+ph)
	}
	for _, name := range sortedKeys(u.Inc) {
		ph := pc.placeholder()
		values = append(values, u.Inc[name])
		ident := quoteIdent(name)
		parts = append(parts, ident+" = "+ident+" + "+ph)
	}
	for _, name := range sortedKeys(u.Unset) {
		parts = append(parts, quoteIdent(name)+" = NULL")
	}

	if len(parts) == 0 {
		return "", nil, polyquery.NewError(
			polyquery.CodeQueryError,
			"update has no SQL-translatable operators",
			"supply at least one of $set/$inc/$unset",
		)
	}
	return strings.Join(parts, ", "), values, nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
