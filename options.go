package polyquery

// SortDirection is the ascending/descending token for a sort field.
// Both ±1 and asc/desc spellings are accepted at the API boundary;
// internally everything normalizes to this type.
type SortDirection int

const (
	Ascending  SortDirection = 1
	Descending SortDirection = -1
)

// ParseSortDirection accepts "asc", "desc", "descending", 1, -1, 1.0,
// -1.0 and normalizes to a SortDirection. Anything else defaults to
// Ascending.
func ParseSortDirection(v any) SortDirection {
	switch t := v.(type) {
	case string:
		if t == "desc" || t == "descending" {
			return Descending
		}
		return Ascending
	case int:
		if t < 0 {
			return Descending
		}
		return Ascending
	case float64:
		if t < 0 {
			return Descending
		}
		return Ascending
	default:
		return Ascending
	}
}

// Sort is an ordered sequence of field -> direction pairs. Order
// matters (it is the ORDER BY / sort clause order), hence a slice of
// pairs rather than a map.
type Sort []SortField

// SortField is one entry of a Sort.
type SortField struct {
	Field     string
	Direction SortDirection
}

// Projection selects which fields are returned. Exactly one of
// Include/Exclude may be populated; a mixed projection is not
// rejected, and the relational builder then selects every column.
type Projection struct {
	Include []string
	Exclude []string
}

// IsExclusionOnly reports whether the projection is purely exclusion
// (no Include fields set). Inclusion-only projections emit an
// explicit column list; everything else (including exclusion-only)
// selects * and the caller strips excluded fields post-fetch.
func (p Projection) IsExclusionOnly() bool {
	return len(p.Include) == 0 && len(p.Exclude) > 0
}

// ConfirmToken is the closed set of destructive-operation overrides
// accepted by the guardrail stage.
type ConfirmToken string

const (
	ConfirmNone       ConfirmToken = ""
	ConfirmDeleteAll  ConfirmToken = "DELETE_ALL"
	ConfirmUpdateAll  ConfirmToken = "UPDATE_ALL"
)

// QueryOptions configures queryOne/queryMany.
type QueryOptions struct {
	Sort       Sort
	Limit      *int
	Skip       *int
	Projection Projection
}

// HasLimit reports whether a positive limit was supplied.
func (o QueryOptions) HasLimit() bool {
	return o.Limit != nil && *o.Limit > 0
}

// WriteOptions configures the plural destructive operations
// (deleteMany, updateMany) and the single deleteOne.
type WriteOptions struct {
	Confirm ConfirmToken
	// Upsert, when set on updateOne, triggers the insert-on-zero-rows
	// upsert emulation.
	Upsert bool
}
