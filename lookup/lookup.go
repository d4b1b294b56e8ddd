// Package lookup implements the cross-collection lookup two-query
// join pattern shared by the relational and search-engine adapters,
// plus the generic batch-loading helpers it's built on.
package lookup

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Attach when the local field is absent or
// nil and the join is declared inner.
var ErrNotFound = errors.New("lookup: local value absent, inner join has nothing to attach")

// Spec describes one cross-collection lookup.
type Spec struct {
	LocalField   string
	ForeignField string
	As           string
	Left         bool // false means inner
	Unwind       bool
}

// Attach performs the single-row half of queryWithLookup: given the
// primary row and a fetch callback that runs the foreign SELECT/query
// for one local value, it returns the row with Spec.As attached. If
// the local field is absent or nil, a left join attaches an empty
// sequence (or nil, if Unwind) and an inner join returns ErrNotFound.
func Attach(row map[string]any, spec Spec, fetch func(localValue any) ([]map[string]any, error)) (map[string]any, error) {
	localValue, present := row[spec.LocalField]
	if !present || localValue == nil {
		if !spec.Left {
			return nil, ErrNotFound
		}
		return withAttached(row, spec, nil), nil
	}
	related, err := fetch(localValue)
	if err != nil {
		return nil, err
	}
	return withAttached(row, spec, related), nil
}

// BatchAttach performs the same join as Attach across many primary
// rows in a single foreign fetch, rather than one foreign query per
// row: it collects the distinct, non-nil local values, calls fetchMany
// once, and groups the results by Spec.ForeignField before attaching.
func BatchAttach(rows []map[string]any, spec Spec, fetchMany func(localValues []any) ([]map[string]any, error)) ([]map[string]any, error) {
	seen := make(map[any]bool)
	keys := make([]any, 0, len(rows))
	for _, row := range rows {
		if v, ok := row[spec.LocalField]; ok && v != nil && !seen[v] {
			seen[v] = true
			keys = append(keys, v)
		}
	}

	var related []map[string]any
	if len(keys) > 0 {
		var err error
		related, err = fetchMany(keys)
		if err != nil {
			return nil, err
		}
	}
	groups := GroupByKey(related, func(r map[string]any) any { return r[spec.ForeignField] })

	out := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		v, ok := row[spec.LocalField]
		if !ok || v == nil {
			if !spec.Left {
				continue
			}
			out = append(out, withAttached(row, spec, nil))
			continue
		}
		out = append(out, withAttached(row, spec, groups[v]))
	}
	return out, nil
}

func withAttached(row map[string]any, spec Spec, related []map[string]any) map[string]any {
	out := make(map[string]any, len(row)+1)
	for k, v := range row {
		out[k] = v
	}
	if spec.Unwind {
		if len(related) > 0 {
			out[spec.As] = related[0]
		} else {
			out[spec.As] = nil
		}
		return out
	}
	if related == nil {
		related = []map[string]any{}
	}
	out[spec.As] = related
	return out
}

// KeyFunc extracts a key from a value.
type KeyFunc[K comparable, V any] func(V) K

// BatchFunc loads a batch of values by key.
type BatchFunc[K comparable, V any] func(ctx context.Context, keys []K) ([]V, []error)

// OrderByKeys reorders values to match the order of requested keys.
// Missing values come back as zero values with a corresponding
// ErrKeyNotFound.
func OrderByKeys[K comparable, V any](keys []K, values []V, keyFn KeyFunc[K, V]) ([]V, []error) {
	byKey := make(map[K]V, len(values))
	for _, v := range values {
		byKey[keyFn(v)] = v
	}
	result := make([]V, len(keys))
	errs := make([]error, len(keys))
	for i, k := range keys {
		if v, ok := byKey[k]; ok {
			result[i] = v
		} else {
			errs[i] = ErrKeyNotFound
		}
	}
	return result, errs
}

// ErrKeyNotFound is returned by OrderByKeys for keys with no matching
// value.
var ErrKeyNotFound = errors.New("lookup: key not found in batch result")

// OrderByKeysNoError is OrderByKeys without the per-key error slice,
// for callers that treat a missing value as acceptable.
func OrderByKeysNoError[K comparable, V any](keys []K, values []V, keyFn KeyFunc[K, V]) []V {
	result, _ := OrderByKeys(keys, values, keyFn)
	return result
}

// GroupByKey groups values by a key function, preserving the relative
// order of values sharing a key.
func GroupByKey[K comparable, V any](values []V, keyFn KeyFunc[K, V]) map[K][]V {
	groups := make(map[K][]V)
	for _, v := range values {
		k := keyFn(v)
		groups[k] = append(groups[k], v)
	}
	return groups
}
