package polyquery

import (
	"fmt"

	"github.com/polyquery/polyquery/adapter"
	"github.com/polyquery/polyquery/querylanguage"
)

// ExplainResult is explain's return value: the native query the
// adapter would run, plus a backend-independent human-readable
// rendering of the same filter for audit logs and agent-facing
// output.
type ExplainResult struct {
	Backend  string
	Native   string
	Readable string
}

// Explain renders the native query text/object that QueryOne/QueryMany
// would execute for f and opts, without running it, alongside a
// plain-language rendering of f itself.
func (r *Router) Explain(collection string, f Filter, opts QueryOptions) (ExplainResult, error) {
	explainer, ok := r.adp.(adapter.Explainer)
	if !ok {
		return ExplainResult{}, NewError(CodeUnsupportedOperation,
			fmt.Sprintf("backend %q does not support explain", r.adp.Backend()),
			"explain is only available for backends implementing adapter.Explainer",
		).WithBackend(r.adp.Backend())
	}
	native, err := explainer.Explain(collection, f, opts)
	if err != nil {
		return ExplainResult{}, err
	}
	return ExplainResult{
		Backend:  r.adp.Backend(),
		Native:   native,
		Readable: filterToPredicate(f).String(),
	}, nil
}

// filterToPredicate renders a Filter as a querylanguage.P tree: an
// empty filter or nil value becomes the literal "true" predicate
// (match everything), $and/$or compile to the matching combinator,
// $nor compiles to the negation of an $or, and every operator bag
// compiles field-by-field through the Field* builders.
func filterToPredicate(f Filter) querylanguage.P {
	if f.IsEmpty() {
		return querylanguage.F("true")
	}
	var parts []querylanguage.P
	for k, v := range f {
		switch k {
		case KeyAnd:
			if subs, ok := v.([]Filter); ok {
				parts = append(parts, querylanguage.And(predicatesFor(subs)...))
			}
		case KeyOr:
			if subs, ok := v.([]Filter); ok {
				parts = append(parts, querylanguage.Or(predicatesFor(subs)...))
			}
		case KeyNor:
			if subs, ok := v.([]Filter); ok {
				parts = append(parts, querylanguage.Not(querylanguage.Or(predicatesFor(subs)...)))
			}
		default:
			parts = append(parts, fieldPredicate(k, v))
		}
	}
	if len(parts) == 1 {
		return parts[0]
	}
	return querylanguage.And(parts...)
}

func predicatesFor(subs []Filter) []querylanguage.P {
	ps := make([]querylanguage.P, len(subs))
	for i, s := range subs {
		ps[i] = filterToPredicate(s)
	}
	return ps
}

// fieldPredicate renders one field's value: a bare value means
// equality, an OpBag compiles each operator conjunctively.
func fieldPredicate(field string, v any) querylanguage.P {
	bag, ok := v.(OpBag)
	if !ok {
		return querylanguage.FieldEQ(field, v)
	}
	var parts []querylanguage.P
	for op, val := range bag {
		switch op {
		case OpEQ:
			parts = append(parts, querylanguage.FieldEQ(field, val))
		case OpNE:
			parts = append(parts, querylanguage.FieldNEQ(field, val))
		case OpGT:
			parts = append(parts, querylanguage.FieldGT(field, val))
		case OpGTE:
			parts = append(parts, querylanguage.FieldGTE(field, val))
		case OpLT:
			parts = append(parts, querylanguage.FieldLT(field, val))
		case OpLTE:
			parts = append(parts, querylanguage.FieldLTE(field, val))
		case OpIn:
			parts = append(parts, fieldInPredicate(field, val, false))
		case OpNin:
			parts = append(parts, fieldInPredicate(field, val, true))
		case OpExists:
			if exists, _ := val.(bool); exists {
				parts = append(parts, querylanguage.FieldNotNil(field))
			} else {
				parts = append(parts, querylanguage.FieldNil(field))
			}
		case OpRegex:
			pattern, _ := val.(string)
			parts = append(parts, querylanguage.F(fmt.Sprintf("%s =~ /%s/", field, pattern)))
		case OpSize:
			parts = append(parts, querylanguage.FieldEQ(field+".size", val))
		case OpOptions:
			// Carried alongside OpRegex; it has no standalone rendering.
		default:
			parts = append(parts, querylanguage.FieldEQ(field+" "+op, val))
		}
	}
	if len(parts) == 1 {
		return parts[0]
	}
	return querylanguage.And(parts...)
}

func fieldInPredicate(field string, val any, negate bool) querylanguage.P {
	items, _ := val.([]any)
	if negate {
		return querylanguage.FieldNotIn(field, items...)
	}
	return querylanguage.FieldIn(field, items...)
}
