package polyquery

import (
	"fmt"
	"strings"

	"github.com/polyquery/polyquery/schema"
)

// ValidationFailure is one thing wrong with a filter or document
// checked against a collection's declared schema.
type ValidationFailure struct {
	Field    string
	Message  string
	Expected string
	Received string
}

// ValidationResult is validate's return value: empty Failures means
// the filter and document (if supplied) both conform to the
// collection's declared schema.
type ValidationResult struct {
	Failures []ValidationFailure
}

func (r ValidationResult) Valid() bool { return len(r.Failures) == 0 }

// Validate dry-runs a filter and, optionally, a document against
// collection's declared schema without touching the adapter: every
// filter key is checked against the field set, and every document
// field is checked against its declared type and required/enum
// constraints. A collection with no registry entry can't be
// validated and reports that as a single failure rather than silently
// passing.
func (r *Router) Validate(collection string, f Filter, doc map[string]any) ValidationResult {
	c := r.collectionSchema(collection)
	if c == nil {
		return ValidationResult{Failures: []ValidationFailure{{
			Message: fmt.Sprintf("collection %q has no registered schema", collection),
		}}}
	}

	var failures []ValidationFailure
	failures = append(failures, validateFilterFields(f, c)...)
	if doc != nil {
		failures = append(failures, validateDocument(doc, c)...)
	}
	return ValidationResult{Failures: failures}
}

// validateFilterFields walks f (recursing into $and/$or/$nor) and
// reports every non-logical, non-operator key absent from c's field
// set.
func validateFilterFields(f Filter, c *schema.Collection) []ValidationFailure {
	var failures []ValidationFailure
	for k, v := range f {
		if isLogicalKey(k) {
			if subs, ok := v.([]Filter); ok {
				for _, s := range subs {
					failures = append(failures, validateFilterFields(s, c)...)
				}
			}
			continue
		}
		if isOperatorKey(k) {
			continue
		}
		if _, ok := c.Field(k); !ok {
			failures = append(failures, ValidationFailure{
				Field:    k,
				Message:  fmt.Sprintf("field %q is not declared on collection %q", k, c.Name),
				Expected: "one of " + fmt.Sprint(c.FieldNames()),
			})
		}
	}
	return failures
}

// validateDocument checks every declared field's presence (if
// required) and type against doc, plus every enum field's value
// against its declared allowed set. Fields present in doc but not
// declared on c are left alone. Document stores routinely carry
// fields the schema doesn't enumerate, and describe's example filter
// only ever uses a prefix of the declared fields anyway.
func validateDocument(doc map[string]any, c *schema.Collection) []ValidationFailure {
	var failures []ValidationFailure
	for _, field := range c.Fields {
		v, present := doc[field.Name()]
		if !present {
			if field.IsRequired() {
				failures = append(failures, ValidationFailure{
					Field:    field.Name(),
					Message:  fmt.Sprintf("field %q is required", field.Name()),
					Expected: string(field.Type()),
					Received: "missing",
				})
			}
			continue
		}
		if msg, ok := typeMismatch(field, v); ok {
			failures = append(failures, ValidationFailure{
				Field:    field.Name(),
				Message:  msg,
				Expected: string(field.Type()),
				Received: fmt.Sprintf("%T", v),
			})
		}
	}
	return failures
}

// validateForInsert checks doc against collection's declared schema when
// schema validation is enabled (r.cfg.Schema) and the collection has a
// registry entry, returning a single VALIDATION_ERROR aggregating every
// ValidationFailure. A collection with no registered schema is left
// alone here, unlike Validate's dry-run façade: there's nothing to
// check it against, so an unregistered collection can't block writes.
func (r *Router) validateForInsert(collection string, doc map[string]any) error {
	if !r.cfg.Schema {
		return nil
	}
	c := r.collectionSchema(collection)
	if c == nil {
		return nil
	}
	failures := validateDocument(doc, c)
	if len(failures) == 0 {
		return nil
	}
	msgs := make([]string, len(failures))
	for i, f := range failures {
		msgs[i] = f.Message
	}
	return NewError(CodeValidationError, strings.Join(msgs, "; "),
		"fix the listed fields and retry the insert").
		WithCollection(collection).
		WithOperation("insert")
}

func typeMismatch(field *schema.Field, v any) (string, bool) {
	switch field.Type() {
	case schema.TypeString:
		if _, ok := v.(string); !ok {
			return fmt.Sprintf("field %q expects a string", field.Name()), true
		}
	case schema.TypeEnum:
		s, ok := v.(string)
		if !ok {
			return fmt.Sprintf("field %q expects a string", field.Name()), true
		}
		for _, allowed := range field.EnumValues() {
			if s == allowed {
				return "", false
			}
		}
		return fmt.Sprintf("field %q value %q is not one of %v", field.Name(), s, field.EnumValues()), true
	case schema.TypeNumber:
		switch v.(type) {
		case int, int32, int64, float32, float64:
		default:
			return fmt.Sprintf("field %q expects a number", field.Name()), true
		}
	case schema.TypeBool:
		if _, ok := v.(bool); !ok {
			return fmt.Sprintf("field %q expects a bool", field.Name()), true
		}
	case schema.TypeObject:
		if _, ok := v.(map[string]any); !ok {
			return fmt.Sprintf("field %q expects an object", field.Name()), true
		}
	case schema.TypeArray:
		switch v.(type) {
		case []any:
		default:
			return fmt.Sprintf("field %q expects an array", field.Name()), true
		}
	}
	return "", false
}
