package deltastate

// clone produces a copy of v that shares no composite values with it.
// scalars are immutable and returned as-is
func clone(v interface{}) interface{} {
	switch x := v.(type) {
	case map[string]interface{}:
		if x == nil {
			return x
		}
		cp := make(map[string]interface{}, len(x))
		for key, val := range x {
			cp[key] = clone(val)
		}
		return cp
	case []interface{}:
		if x == nil {
			return x
		}
		cp := make([]interface{}, len(x))
		for i, val := range x {
			cp[i] = clone(val)
		}
		return cp
	default:
		return v
	}
}
