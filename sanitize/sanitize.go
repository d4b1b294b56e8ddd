// Package sanitize implements the four pre-flight checks every
// request passes through before it reaches an adapter: the
// relational field-name whitelist, the search-engine reserved-field
// and index-name blocks, regex complexity rejection, and
// caller-supplied value transforms.
package sanitize

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/polyquery/polyquery"
	"github.com/polyquery/polyquery/schema"
)

// CheckFields validates every non-operator key in f (recursing into
// $and/$or/$nor arrays) against collection's registered field set.
// If collection is nil (no registered schema), no check is performed.
func CheckFields(f polyquery.Filter, collection *schema.Collection) error {
	if collection == nil {
		return nil
	}
	valid := collection.FieldNames()
	allowed := make(map[string]bool, len(valid))
	for _, name := range valid {
		allowed[name] = true
	}
	return checkFilterFields(f, allowed, valid)
}

func checkFilterFields(f polyquery.Filter, allowed map[string]bool, valid []string) error {
	for k, v := range f {
		switch k {
		case polyquery.KeyAnd, polyquery.KeyOr, polyquery.KeyNor:
			subs, _ := v.([]polyquery.Filter)
			for _, s := range subs {
				if err := checkFilterFields(s, allowed, valid); err != nil {
					return err
				}
			}
		default:
			if strings.HasPrefix(k, "$") {
				continue
			}
			if !allowed[k] {
				return polyquery.NewError(
					polyquery.CodeQueryError,
					fmt.Sprintf("unknown field %q", k),
					"valid fields: "+strings.Join(valid, ", "),
				)
			}
		}
	}
	return nil
}

// reservedSearchFields are document metadata fields the search engine
// itself owns; callers may never filter or write through them.
var reservedSearchFields = map[string]bool{
	"_id": true, "_source": true, "_score": true, "_index": true,
	"_type": true, "_routing": true, "_version": true,
	"_seq_no": true, "_primary_term": true,
}

// CheckReservedField rejects field names the search engine reserves:
// anything beginning with an underscore, plus the named metadata
// fields above for completeness (underscore already covers them, the
// explicit set documents intent).
func CheckReservedField(field string) error {
	if strings.HasPrefix(field, "_") || reservedSearchFields[field] {
		return polyquery.NewError(
			polyquery.CodeQueryError,
			fmt.Sprintf("field %q is reserved", field),
			"choose a field name that doesn't begin with an underscore",
		)
	}
	return nil
}

// CheckIndexName rejects index names containing a wildcard, comma, or
// space, or beginning with '.' or '-'.
func CheckIndexName(name string) error {
	if strings.ContainsAny(name, "*, ") || strings.HasPrefix(name, ".") || strings.HasPrefix(name, "-") {
		return polyquery.NewError(
			polyquery.CodeQueryError,
			fmt.Sprintf("invalid index name %q", name),
			"index names may not contain '*', ',', or spaces, or begin with '.' or '-'",
		)
	}
	return nil
}

// nestedQuantifier catches the classic catastrophic-backtracking
// shape (a+)+, (a*)*, (a+)*, etc: a group ending in + or * that is
// itself repeated with + or *.
var nestedQuantifier = regexp.MustCompile(`\([^()]*[+*]\)[+*]`)

const maxRegexLength = 1000

// CheckRegexComplexity rejects obviously dangerous $regex patterns: a
// recognized nested-quantifier shape, or a pattern longer than 1000
// characters. This is a cheap static check, not a general ReDoS
// detector.
func CheckRegexComplexity(pattern string) error {
	if len(pattern) > maxRegexLength {
		return polyquery.NewError(
			polyquery.CodeQueryError,
			"regex pattern exceeds the maximum allowed length",
			fmt.Sprintf("shorten the pattern to at most %d characters", maxRegexLength),
		)
	}
	if nestedQuantifier.MatchString(pattern) {
		return polyquery.NewError(
			polyquery.CodeQueryError,
			"regex pattern contains a nested quantifier",
			"rewrite the pattern to avoid nested repetition such as (a+)+",
		)
	}
	return nil
}

// TransformFunc transforms one field's value.
type TransformFunc func(value any) any

// TransformRule applies Transform to every field in Fields, or to
// every field when Fields is empty or contains "*".
type TransformRule struct {
	Fields    []string
	Transform TransformFunc
}

func (r TransformRule) appliesTo(field string) bool {
	if len(r.Fields) == 0 {
		return true
	}
	for _, f := range r.Fields {
		if f == "*" || f == field {
			return true
		}
	}
	return false
}

// ApplyTransforms returns a fresh copy of doc with every rule applied
// in order; doc itself is never mutated. An empty rule set returns an
// unmodified copy.
func ApplyTransforms(doc map[string]any, rules []TransformRule) map[string]any {
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	for _, rule := range rules {
		for k, v := range out {
			if rule.appliesTo(k) {
				out[k] = rule.Transform(v)
			}
		}
	}
	return out
}
