// Package timestamp injects created_at/updated_at fields into
// documents and updates according to a per-collection configuration,
// generalizing the built-in Time/CreateTime/UpdateTime mixin
// concept into direct functions over document/update maps.
package timestamp

import (
	"time"

	"github.com/polyquery/polyquery"
)

// Config controls whether and under what field names timestamps are
// injected.
type Config struct {
	Enabled        bool
	CreatedAtField string
	UpdatedAtField string
}

// Disabled returns a Config that injects nothing.
func Disabled() Config { return Config{} }

// Default returns the enabled Config using the conventional
// created_at/updated_at field names.
func Default() Config {
	return Config{Enabled: true, CreatedAtField: "created_at", UpdatedAtField: "updated_at"}
}

// Custom returns an enabled Config using the given field names.
func Custom(createdAtField, updatedAtField string) Config {
	return Config{Enabled: true, CreatedAtField: createdAtField, UpdatedAtField: updatedAtField}
}

// InjectInsert returns a fresh copy of doc with each configured
// timestamp field set to now, unless the caller already set that key
// (even to nil/undefined: the caller's explicit choice is
// preserved). doc is never mutated. Disabled is the identity.
func InjectInsert(doc map[string]any, cfg Config, now time.Time) map[string]any {
	fresh := make(map[string]any, len(doc)+2)
	for k, v := range doc {
		fresh[k] = v
	}
	if !cfg.Enabled {
		return fresh
	}
	for _, field := range []string{cfg.CreatedAtField, cfg.UpdatedAtField} {
		if field == "" {
			continue
		}
		if _, present := fresh[field]; !present {
			fresh[field] = now
		}
	}
	return fresh
}

// InjectUpdate returns a fresh Update with UpdatedAtField added to
// $set iff not already present there. If u has no $set, one is
// created containing only the timestamp field. created_at is never
// added by an update. u is never mutated. Disabled is the identity.
func InjectUpdate(u polyquery.Update, cfg Config, now time.Time) polyquery.Update {
	fresh := u.Clone()
	if !cfg.Enabled || cfg.UpdatedAtField == "" {
		return fresh
	}
	if fresh.Set == nil {
		fresh.Set = make(map[string]any, 1)
	}
	if _, present := fresh.Set[cfg.UpdatedAtField]; !present {
		fresh.Set[cfg.UpdatedAtField] = now
	}
	return fresh
}
