package flowdef

// meta wraps a node's metadata map for tolerant value extraction.
// All accessors return zero values when the key is missing or the value
// has the wrong type; malformed metadata degrades rather than fails.
type meta map[string]any

// str returns the string value for key, or "".
func (m meta) str(key string) string {
	v, ok := m[key]
	if !ok {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// list returns the slice value for key, or nil.
// YAML decodes sequences as []any; JSON does the same.
func (m meta) list(key string) []any {
	v, ok := m[key]
	if !ok {
		return nil
	}
	if s, ok := v.([]any); ok {
		return s
	}
	return nil
}
