package deltastate

import (
	"reflect"
	"sort"
	"strconv"
)

// nodeType defines the kinds of values we encounter while generating a diff.
// trees are the go types created by unmarshaling JSON
type nodeType uint8

const (
	ntScalar nodeType = iota
	ntObject
	ntArray
)

func typeOf(v interface{}) nodeType {
	switch v.(type) {
	case map[string]interface{}:
		return ntObject
	case []interface{}:
		return ntArray
	default:
		return ntScalar
	}
}

// keys lists the slots of a level. for arrays this'll be the string value of
// each index in numeric order, for objects the sorted key names. scalars have
// no slots
func keys(v interface{}) []string {
	switch x := v.(type) {
	case map[string]interface{}:
		names := make([]string, 0, len(x))
		for name := range x {
			names = append(names, name)
		}
		sort.Strings(names)
		return names
	case []interface{}:
		names := make([]string, len(x))
		for i := range x {
			names[i] = strconv.Itoa(i)
		}
		return names
	default:
		return nil
	}
}

// child looks up the value at a slot, reporting whether it exists
func child(v interface{}, key string) (interface{}, bool) {
	switch x := v.(type) {
	case map[string]interface{}:
		ch, ok := x[key]
		return ch, ok
	case []interface{}:
		i, ok := index(key)
		if !ok || i >= len(x) {
			return nil, false
		}
		return x[i], true
	default:
		return nil, false
	}
}

// index parses a canonical array index: no sign, no leading zeros
func index(key string) (int, bool) {
	if key == "" || (len(key) > 1 && key[0] == '0') {
		return 0, false
	}
	i, err := strconv.Atoi(key)
	if err != nil || i < 0 {
		return 0, false
	}
	return i, true
}

// identical reports whether two values are the same. scalars compare by value,
// composites by reference, so two deep-equal but distinct maps are different
func identical(a, b interface{}) bool {
	if an, ok := number(a); ok {
		if bn, ok := number(b); ok {
			// NaN never equals itself, always reported as a change
			return an == bn
		}
		return false
	}

	at, bt := typeOf(a), typeOf(b)
	if at != bt {
		return false
	}
	switch at {
	case ntObject:
		return reflect.ValueOf(a).Pointer() == reflect.ValueOf(b).Pointer()
	case ntArray:
		av, bv := reflect.ValueOf(a), reflect.ValueOf(b)
		return av.Len() == bv.Len() && av.Pointer() == bv.Pointer()
	}

	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if reflect.TypeOf(a) != reflect.TypeOf(b) {
		return false
	}
	if !reflect.TypeOf(a).Comparable() {
		return reflect.DeepEqual(a, b)
	}
	return a == b
}

// number widens any go numeric value to float64
func number(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int8:
		return float64(x), true
	case int16:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint:
		return float64(x), true
	case uint8:
		return float64(x), true
	case uint16:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	default:
		return 0, false
	}
}

// walk a tree in top-down (prefix) order, calling fn for every value
// including the root. returning false stops descent below that value
func walk(v interface{}, path []string, fn func(path []string, v interface{}) bool) {
	if !fn(path, v) {
		return
	}
	for _, key := range keys(v) {
		ch, _ := child(v, key)
		walk(ch, append(path[:len(path):len(path)], key), fn)
	}
}
