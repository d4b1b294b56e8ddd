package search

import (
	"sort"
	"strings"

	"github.com/polyquery/polyquery"
)

// Script is a compiled search-engine mutation script: Painless-style
// source plus its named parameters.
type Script struct {
	Source string
	Params map[string]any
}

// TranslateUpdate compiles u into a Script against the document root.
// Each operator produces one statement and, where it needs a value, a named
// parameter prefixed by the operator (set_name, inc_count, ...) to
// avoid collisions between operators touching the same field.
// Statements are joined with "; ". An update with no operators raises
// QUERY_ERROR.
func TranslateUpdate(u polyquery.Update) (Script, error) {
	params := make(map[string]any)
	var statements []string

	for _, field := range sortedKeys(u.Set) {
		name := "set_" + field
		params[name] = u.Set[field]
		statements = append(statements, "ctx._source."+field+" = params."+name)
	}
	for _, field := range sortedKeys(u.Inc) {
		name := "inc_" + field
		params[name] = u.Inc[field]
		statements = append(statements, "ctx._source."+field+" += params."+name)
	}
	for _, field := range sortedKeys(u.Unset) {
		statements = append(statements, "ctx._source.remove('"+field+"')")
	}
	for _, field := range sortedKeys(u.Push) {
		name := "push_" + field
		params[name] = u.Push[field]
		statements = append(statements,
			"if (ctx._source."+field+" == null) { ctx._source."+field+" = [] } ctx._source."+field+".add(params."+name+")")
	}
	for _, field := range sortedKeys(u.Pull) {
		name := "pull_" + field
		params[name] = u.Pull[field]
		statements = append(statements,
			"if (ctx._source."+field+" != null) { ctx._source."+field+".removeIf(item -> item == params."+name+") }")
	}

	if len(statements) == 0 {
		return Script{}, polyquery.NewError(
			polyquery.CodeQueryError,
			"update has no operators",
			"supply at least one of $set/$inc/$unset/$push/$pull",
		)
	}
	return Script{Source: strings.Join(statements, "; "), Params: params}, nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
