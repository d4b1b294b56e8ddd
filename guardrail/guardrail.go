// Package guardrail evaluates the destructive-operation safety checks
// before a request reaches an adapter. A filter is "empty" iff
// it has zero keys.
package guardrail

import (
	"errors"
	"fmt"

	"github.com/polyquery/polyquery"
)

// Decision sentinel errors, returned by a Rule to say how evaluation
// should proceed. Use errors.Is to check for these values.
var (
	// Allow terminates evaluation with an allow decision.
	Allow = errors.New("guardrail: allow rule")
	// Deny terminates evaluation with a deny decision.
	Deny = errors.New("guardrail: deny rule")
	// Skip abstains; evaluation continues to the next rule.
	Skip = errors.New("guardrail: skip rule")
)

// Denyf returns a formatted error wrapping Deny.
func Denyf(format string, a ...any) error {
	return fmt.Errorf(format+": %w", append(a, Deny)...)
}

// Request describes one call about to reach an adapter.
type Request struct {
	Operation  polyquery.Op
	Collection string
	Filter     polyquery.Filter
	Confirm    polyquery.ConfirmToken
	HasLimit   bool
}

// Rule decides whether a request is permitted. It returns Allow, Deny
// (optionally wrapped with Denyf for a message), Skip, or nil (treated
// like Skip).
type Rule func(Request) error

// Rules combines rules into a single FIFO chain: the first rule to
// return a non-Skip, non-nil decision wins.
type Rules []Rule

func (rules Rules) eval(req Request) error {
	for _, rule := range rules {
		switch decision := rule(req); {
		case decision == nil || errors.Is(decision, Skip):
		case errors.Is(decision, Allow):
			return nil
		default:
			return decision
		}
	}
	return nil
}

// DefaultRules implements the four-row destructive-operation decision
// table exactly.
func DefaultRules() Rules {
	return Rules{ruleDeleteMany, ruleUpdateMany, ruleDeleteOne, ruleQueryMany}
}

func ruleDeleteMany(req Request) error {
	if req.Operation != polyquery.OpDeleteMany {
		return Skip
	}
	if req.Filter.IsEmpty() && req.Confirm != polyquery.ConfirmDeleteAll {
		return Denyf("deleteMany on %q with an empty filter requires explicit confirmation", req.Collection)
	}
	return Allow
}

func ruleUpdateMany(req Request) error {
	if req.Operation != polyquery.OpUpdateMany {
		return Skip
	}
	if req.Filter.IsEmpty() && req.Confirm != polyquery.ConfirmUpdateAll {
		return Denyf("updateMany on %q with an empty filter requires explicit confirmation", req.Collection)
	}
	return Allow
}

func ruleDeleteOne(req Request) error {
	if req.Operation != polyquery.OpDeleteOne {
		return Skip
	}
	if req.Filter.IsEmpty() {
		return Denyf("deleteOne on %q requires a non-empty filter", req.Collection)
	}
	return Allow
}

func ruleQueryMany(req Request) error {
	if req.Operation != polyquery.OpQueryMany {
		return Skip
	}
	if !req.HasLimit {
		return Denyf("queryMany on %q requires an explicit limit", req.Collection)
	}
	return Allow
}

// Check evaluates req against rules and, if blocked, returns a
// GUARDRAIL_BLOCKED error whose Fix contains a literal example
// invocation demonstrating the correct override or limit. It returns
// nil if the request is permitted.
func Check(req Request, rules Rules) *polyquery.Error {
	if err := rules.eval(req); err != nil {
		return polyquery.NewError(polyquery.CodeGuardrailBlocked, err.Error(), fixFor(req)).
			WithCollection(req.Collection).
			WithOperation(string(req.Operation))
	}
	return nil
}

func fixFor(req Request) string {
	switch req.Operation {
	case polyquery.OpDeleteMany:
		return fmt.Sprintf(`pass {confirm: "DELETE_ALL"} to delete every document in %q, e.g. deleteMany(%q, {}, {confirm: "DELETE_ALL"})`, req.Collection, req.Collection)
	case polyquery.OpUpdateMany:
		return fmt.Sprintf(`pass {confirm: "UPDATE_ALL"} to update every document in %q, e.g. updateMany(%q, {}, update, {confirm: "UPDATE_ALL"})`, req.Collection, req.Collection)
	case polyquery.OpDeleteOne:
		return fmt.Sprintf(`supply a filter identifying the single document, e.g. deleteOne(%q, {_id: "..."})`, req.Collection)
	case polyquery.OpQueryMany:
		return fmt.Sprintf(`supply a limit, e.g. queryMany(%q, filter, {limit: 100})`, req.Collection)
	default:
		return "operation blocked by guardrail"
	}
}
