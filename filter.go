package polyquery

// Filter is the document-style filter AST. Keys are either field
// names bound to an equality value, nil (field-is-missing), or an
// operator bag, or one of the logical keys And, Or, Nor bound to an
// ordered sequence of sub-filters.
//
// A Filter with zero keys means "match everything".
type Filter map[string]any

// Logical keys. These only appear at filter position, never nested
// inside an operator bag.
const (
	KeyAnd = "$and"
	KeyOr  = "$or"
	KeyNor = "$nor"
)

// IsEmpty reports whether the filter has zero keys.
func (f Filter) IsEmpty() bool {
	return len(f) == 0
}

// OpBag is a mapping of operators applied conjunctively to one field.
type OpBag map[string]any

// Supported operator keys within an OpBag.
const (
	OpEQ     = "$eq"
	OpNE     = "$ne"
	OpGT     = "$gt"
	OpGTE    = "$gte"
	OpLT     = "$lt"
	OpLTE    = "$lte"
	OpIn     = "$in"
	OpNin    = "$nin"
	OpExists = "$exists"
	OpRegex  = "$regex"
	OpNot    = "$not"
	OpSize   = "$size"

	// OpOptions carries the regex modifier string ("i", "m", "im") for
	// OpRegex.
	OpOptions = "$options"
)

// SupportedOperators lists every recognized operator key, used to
// build the "supported list" hint on UNKNOWN_OPERATOR errors.
var SupportedOperators = []string{
	OpEQ, OpNE, OpGT, OpGTE, OpLT, OpLTE, OpIn, OpNin, OpExists, OpRegex, OpNot, OpSize, OpOptions,
}

func isLogicalKey(k string) bool {
	return k == KeyAnd || k == KeyOr || k == KeyNor
}

func isOperatorKey(k string) bool {
	return len(k) > 0 && k[0] == '$'
}
