package deltastate

import (
	"encoding/json"
	"fmt"
)

// Operation defines the operation of a Patch item
type Operation uint8

const (
	// OpUnspecified is the "no filter" operation. Patches never carry it, a
	// listener registered with it receives every operation
	OpUnspecified Operation = iota
	// OpAdd means a key that was absent from the old tree is present in the new one
	OpAdd
	// OpRemove means a key present in the old tree is gone from the new one
	OpRemove
	// OpReplace is an alteration of the value at an existing key
	OpReplace
	// OpAny is a composite change reported once for a whole subtree, emitted
	// only for paths some parent-level listener asked to aggregate
	OpAny
)

// String returns the text form of an operation
func (op Operation) String() string {
	switch op {
	case OpAdd:
		return "add"
	case OpRemove:
		return "remove"
	case OpReplace:
		return "replace"
	case OpAny:
		return "any"
	default:
		return ""
	}
}

// ParseOperation reads the text form of an operation. The empty string
// parses as OpUnspecified, "*" is accepted as an alias for "any"
func ParseOperation(s string) (Operation, error) {
	switch s {
	case "":
		return OpUnspecified, nil
	case "add":
		return OpAdd, nil
	case "remove":
		return OpRemove, nil
	case "replace":
		return OpReplace, nil
	case "any", "*":
		return OpAny, nil
	default:
		return OpUnspecified, fmt.Errorf("unknown operation %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler
func (op Operation) MarshalText() ([]byte, error) {
	return []byte(op.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (op *Operation) UnmarshalText(text []byte) (err error) {
	*op, err = ParseOperation(string(text))
	return err
}

// Patch is a single detected difference between two snapshots
type Patch struct {
	// the type of change
	Op Operation `json:"op"`
	// Path holds one key per tree level, array indices are written as decimal
	// strings. Path always has at least one element
	Path []string `json:"path"`
	// Value is a deep copy of the new value, nil for removals
	Value interface{} `json:"value,omitempty"`
}

// Patches is a list of patches, in the order they were generated
type Patches []*Patch

// MarshalJSON keeps "value" for replacements with a null value, dropping it
// only when the operation can't carry one
func (p *Patch) MarshalJSON() ([]byte, error) {
	if p.Op == OpRemove {
		return json.Marshal(struct {
			Op   Operation `json:"op"`
			Path []string  `json:"path"`
		}{p.Op, p.Path})
	}
	return json.Marshal(struct {
		Op    Operation   `json:"op"`
		Path  []string    `json:"path"`
		Value interface{} `json:"value"`
	}{p.Op, p.Path, p.Value})
}
