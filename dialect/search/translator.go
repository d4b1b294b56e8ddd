// Package search compiles the document-style filter/update AST into
// an Elasticsearch-family query DSL and Painless-style mutation
// scripts.
package search

import (
	"sort"
	"strconv"

	"github.com/polyquery/polyquery"
)

// Query is a search-engine query DSL fragment, shaped the way the
// wire JSON is (e.g. {"term": {"role": "admin"}}).
type Query = map[string]any

// TranslateFilter compiles f into a search-engine query. An empty
// filter compiles to match_all; a filter with exactly one effective
// top-level clause is returned unwrapped; two or more collapse into
// bool.must.
func TranslateFilter(f polyquery.Filter) (Query, error) {
	if len(f) == 0 {
		return matchAll(), nil
	}

	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	clauses := make([]Query, 0, len(keys))
	for _, key := range keys {
		val := f[key]
		switch key {
		case polyquery.KeyAnd, polyquery.KeyOr, polyquery.KeyNor:
			c, err := translateLogical(key, val)
			if err != nil {
				return nil, err
			}
			clauses = append(clauses, c)
		default:
			c, err := translateField(key, val)
			if err != nil {
				return nil, err
			}
			clauses = append(clauses, c)
		}
	}
	return combine(clauses), nil
}

func translateLogical(key string, val any) (Query, error) {
	sub, ok := val.([]polyquery.Filter)
	if !ok {
		return nil, unknownOperatorError(key)
	}
	clauses := make([]Query, 0, len(sub))
	for _, s := range sub {
		c, err := TranslateFilter(s)
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, c)
	}
	switch key {
	case polyquery.KeyAnd:
		return Query{"bool": Query{"must": clauses}}, nil
	case polyquery.KeyOr:
		return Query{"bool": Query{"should": clauses, "minimum_should_match": 1}}, nil
	default: // KeyNor
		return Query{"bool": Query{"must_not": clauses}}, nil
	}
}

var rangeOpKeys = map[string]string{
	polyquery.OpGT:  "gt",
	polyquery.OpGTE: "gte",
	polyquery.OpLT:  "lt",
	polyquery.OpLTE: "lte",
}

func translateField(field string, val any) (Query, error) {
	bag, isBag := val.(polyquery.OpBag)
	if !isBag {
		if val == nil {
			return mustNot(existsClause(field)), nil
		}
		return termClause(field, val), nil
	}

	for k := range bag {
		if k == polyquery.OpOptions {
			continue
		}
		if !isKnownOp(k) {
			return nil, unknownOperatorError(k)
		}
	}

	rangeObj := Query{}
	clauses := make([]Query, 0, len(bag))
	options, _ := bag[polyquery.OpOptions].(string)

	for _, op := range canonicalOps {
		v, present := bag[op]
		if !present {
			continue
		}
		if esKey, isRange := rangeOpKeys[op]; isRange {
			rangeObj[esKey] = v
			continue
		}
		c, err := translateOp(field, op, v, options)
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, c)
	}
	if len(rangeObj) > 0 {
		clauses = append([]Query{{"range": Query{field: rangeObj}}}, clauses...)
	}
	return combine(clauses), nil
}

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

func translateOp(field, op string, v any, options string) (Query, error) {
	switch op {
	case polyquery.OpEQ:
		if v == nil {
			return mustNot(existsClause(field)), nil
		}
		return termClause(field, v), nil
	case polyquery.OpNE:
		if v == nil {
			return existsClause(field), nil
		}
		return mustNot(termClause(field, v)), nil
	case polyquery.OpIn:
		items := toSlice(v)
		if len(items) == 0 {
			return mustNot(matchAll()), nil
		}
		return Query{"terms": Query{field: items}}, nil
	case polyquery.OpNin:
		items := toSlice(v)
		if len(items) == 0 {
			return matchAll(), nil
		}
		return mustNot(Query{"terms": Query{field: items}}), nil
	case polyquery.OpExists:
		exists, _ := v.(bool)
		if exists {
			return existsClause(field), nil
		}
		return mustNot(existsClause(field)), nil
	case polyquery.OpRegex:
		pattern, _ := v.(string)
		regexpBody := Query{"value": pattern}
		if containsRune(options, 'i') {
			regexpBody["case_insensitive"] = true
		}
		return Query{"regexp": Query{field: regexpBody}}, nil
	case polyquery.OpNot:
		nested, ok := v.(polyquery.OpBag)
		if !ok {
			return nil, unknownOperatorError(polyquery.OpNot)
		}
		inner, err := translateField(field, nested)
		if err != nil {
			return nil, err
		}
		return mustNot(inner), nil
	case polyquery.OpSize:
		n := toInt(v)
		return Query{"script": Query{
			"script": "doc['" + field + "'].size() == " + strconv.Itoa(n),
		}}, nil
	default:
		return nil, unknownOperatorError(op)
	}
}

func matchAll() Query { return Query{"match_all": Query{}} }

func termClause(field string, v any) Query { return Query{"term": Query{field: v}} }

func existsClause(field string) Query { return Query{"exists": Query{"field": field}} }

func mustNot(clauses ...Query) Query {
	if len(clauses) == 1 {
		return Query{"bool": Query{"must_not": []Query{clauses[0]}}}
	}
	return Query{"bool": Query{"must_not": clauses}}
}

func combine(clauses []Query) Query {
	if len(clauses) == 1 {
		return clauses[0]
	}
	return Query{"bool": Query{"must": clauses}}
}

func containsRune(s string, r rune) bool {
	for _, c := range s {
		if c == r {
			return true
		}
	}
	return false
}

func toInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int32:
		return int(n)
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}

func toSlice(v any) []any {
	if v == nil {
		return nil
	}
	if s, ok := v.([]any); ok {
		return s
	}
	return nil
}

func unknownOperatorError(op string) error {
	return polyquery.NewError(
		polyquery.CodeUnknownOperator,
		"unknown operator \""+op+"\"",
		"supported operators: "+joinStrings(polyquery.SupportedOperators, ", "),
	)
}

func joinStrings(items []string, sep string) string {
	out := ""
	for i, s := range items {
		if i > 0 {
			out += sep
		}
		out += s
	}
	return out
}
