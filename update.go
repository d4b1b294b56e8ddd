package polyquery

// Update is the document-style update AST. An empty update is
// invalid: callers must supply at least one of the operator maps
// below.
type Update struct {
	Set   map[string]any `json:"$set,omitempty"`
	Inc   map[string]any `json:"$inc,omitempty"`
	Unset map[string]any `json:"$unset,omitempty"`
	Push  map[string]any `json:"$push,omitempty"`
	Pull  map[string]any `json:"$pull,omitempty"`
}

// IsEmpty reports whether the update carries no operators at all.
func (u Update) IsEmpty() bool {
	return len(u.Set) == 0 && len(u.Inc) == 0 && len(u.Unset) == 0 && len(u.Push) == 0 && len(u.Pull) == 0
}

// Clone returns a deep-enough copy of u: the top-level operator maps
// are copied so that mutating the clone (e.g. timestamp injection)
// never touches the caller's original Update.
func (u Update) Clone() Update {
	return Update{
		Set:   cloneMap(u.Set),
		Inc:   cloneMap(u.Inc),
		Unset: cloneMap(u.Unset),
		Push:  cloneMap(u.Push),
		Pull:  cloneMap(u.Pull),
	}
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
