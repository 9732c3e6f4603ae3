package deltastate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// ErrInvalidPath is returned when a patch path doesn't address a value in
// the tree being patched
var ErrInvalidPath = errors.New("invalid path")

// Apply applies patches in order to the tree v points to. adds & replaces
// set the patch value, removes delete the key or cut the array element. OpAny
// patches replace the whole subtree. Apply(&a, Diff(a, b)) leaves a
// deep-equal to b
func Apply(v interface{}, patches Patches) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return fmt.Errorf("passed in value must be a pointer")
	}

	if len(patches) == 0 {
		return nil
	}

	root := rv.Elem().Interface()
	for i, p := range patches {
		if len(p.Path) == 0 {
			return fmt.Errorf("patch %d: %w: empty path", i, ErrInvalidPath)
		}
		updated, err := applyPatch(root, p.Path, p)
		if err != nil {
			return fmt.Errorf("patch %d: %w", i, err)
		}
		root = updated
	}

	rv.Elem().Set(reflect.ValueOf(root))
	return nil
}

// applyPatch walks down path, returning the container at this level with the
// patch applied. slices may be reallocated, so parents store the result
func applyPatch(tree interface{}, path []string, p *Patch) (interface{}, error) {
	key := path[0]
	if len(path) > 1 {
		ch, ok := child(tree, key)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrInvalidPath, strings.Join(p.Path, PatternSeparator))
		}
		updated, err := applyPatch(ch, path[1:], p)
		if err != nil {
			return nil, err
		}
		return setChild(tree, key, updated, p)
	}

	switch p.Op {
	case OpAdd:
		return insertValue(tree, key, p.Value, p)
	case OpReplace, OpAny:
		return setChild(tree, key, p.Value, p)
	case OpRemove:
		return deleteValue(tree, key, p)
	default:
		return nil, fmt.Errorf("unknown operation %d", p.Op)
	}
}

func setChild(tree interface{}, key string, val interface{}, p *Patch) (interface{}, error) {
	switch x := tree.(type) {
	case map[string]interface{}:
		x[key] = val
		return x, nil
	case []interface{}:
		i, ok := index(key)
		if !ok || i >= len(x) {
			return nil, fmt.Errorf("%w: array index %s out of range at path %s", ErrInvalidPath, key, strings.Join(p.Path, PatternSeparator))
		}
		x[i] = val
		return x, nil
	default:
		return nil, fmt.Errorf("%w: unrecognized data type for path '%s': %T", ErrInvalidPath, strings.Join(p.Path, PatternSeparator), tree)
	}
}

func insertValue(tree interface{}, key string, val interface{}, p *Patch) (interface{}, error) {
	x, ok := tree.([]interface{})
	if !ok {
		return setChild(tree, key, val, p)
	}

	i, ok := index(key)
	if !ok || i > len(x) {
		return nil, fmt.Errorf("%w: array index %s exceeds %d at path %s", ErrInvalidPath, key, len(x), strings.Join(p.Path, PatternSeparator))
	}
	if i == len(x) {
		return append(x, val), nil
	}
	cp := make([]interface{}, 0, len(x)+1)
	cp = append(cp, x[:i]...)
	cp = append(cp, val)
	return append(cp, x[i:]...), nil
}

func deleteValue(tree interface{}, key string, p *Patch) (interface{}, error) {
	switch x := tree.(type) {
	case map[string]interface{}:
		delete(x, key)
		return x, nil
	case []interface{}:
		i, ok := index(key)
		if !ok || i >= len(x) {
			return nil, fmt.Errorf("%w: array index %s exceeds %d at path %s", ErrInvalidPath, key, len(x), strings.Join(p.Path, PatternSeparator))
		}
		cp := make([]interface{}, 0, len(x)-1)
		cp = append(cp, x[:i]...)
		return append(cp, x[i+1:]...), nil
	default:
		return nil, fmt.Errorf("%w: unrecognized data type for path '%s': %T", ErrInvalidPath, strings.Join(p.Path, PatternSeparator), tree)
	}
}
