package errormap

import "github.com/agnivade/levenshtein"

// Suggest returns the candidate closest to name by edit distance,
// used to build "did you mean X?" hints for unknown collection names
// and (via UNKNOWN_OPERATOR fixes elsewhere) unrecognized operators.
// It returns "" if candidates is empty or nothing is within a
// reasonable edit distance of name.
func Suggest(name string, candidates []string) string {
	best := ""
	bestDist := -1
	maxDist := len(name)/2 + 1

	for _, c := range candidates {
		d := levenshtein.ComputeDistance(name, c)
		if d > maxDist {
			continue
		}
		if bestDist == -1 || d < bestDist {
			bestDist = d
			best = c
		}
	}
	return best
}

// SuggestFix formats a "did you mean" fix string for an unknown
// collection or field name, falling back to a generic list when no
// close match exists.
func SuggestFix(kind, name string, candidates []string) string {
	if s := Suggest(name, candidates); s != "" {
		return "unknown " + kind + " " + quote(name) + "; did you mean " + quote(s) + "?"
	}
	if len(candidates) == 0 {
		return "unknown " + kind + " " + quote(name)
	}
	return "unknown " + kind + " " + quote(name) + "; known: " + joinQuoted(candidates)
}

func quote(s string) string { return "\"" + s + "\"" }

func joinQuoted(items []string) string {
	out := ""
	for i, it := range items {
		if i > 0 {
			out += ", "
		}
		out += quote(it)
	}
	return out
}
