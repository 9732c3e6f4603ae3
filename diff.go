package deltastate

// Diff computes the patches that turn the tree at d1 into d2. neither tree is
// modified. values carried by patches are copies disconnected from d2
//
// Diff compares positionally: array elements are matched by index, object
// members by key. It never reports moves, so inserting into the middle of an
// array replaces every element after the insertion point
func Diff(d1, d2 interface{}, opts ...DiffOption) Patches {
	cfg := &DiffConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	d := &diff{cfg: cfg}
	d.generate(d1, d2, nil)

	if cfg.Stats != nil {
		cfg.Stats.count(d1, d2, d.patches)
	}
	return d.patches
}

// DiffConfig are any possible configuration parameters for calculating diffs
type DiffConfig struct {
	// Aggregate, when non-nil, is asked before descending into a composite
	// value present in both trees. Returning true compares that value
	// shallowly & reports any difference as a single OpAny patch for the
	// whole subtree instead of one patch per changed descendant
	Aggregate func(path []string) bool
	// Provide a non-nil stats pointer & diff will populate it with data from
	// the diff process
	Stats *Stats
}

// DiffOption is a function that adjust a config, zero or more DiffOptions
// can be passed to the Diff function
type DiffOption func(cfg *DiffConfig)

// OptionSetStats will set the passed-in stats pointer when Diff is called
func OptionSetStats(st *Stats) DiffOption {
	return func(cfg *DiffConfig) {
		cfg.Stats = st
	}
}

// OptionAggregate sets the predicate deciding which subtrees are reported as
// a whole
func OptionAggregate(fn func(path []string) bool) DiffOption {
	return func(cfg *DiffConfig) {
		cfg.Aggregate = fn
	}
}

// diff accumulates patches for a single comparison
type diff struct {
	cfg     *DiffConfig
	patches Patches
}

func (d *diff) emit(op Operation, path []string, value interface{}) {
	d.patches = append(d.patches, &Patch{Op: op, Path: path, Value: value})
}

// generate compares one level of the trees, recursing into composite values
// present on both sides:
//
// 1. visit old keys last to first. keys still present either recurse (both
//    composites of the same kind) or produce a replace if the value changed
// 2. keys missing from the new level produce removals
// 3. with no removals & equal key counts there can't be any additions, stop
// 4. otherwise new keys missing from the old level produce additions
func (d *diff) generate(oldData, newData interface{}, path []string) {
	oldKeys := keys(oldData)
	newKeys := keys(newData)
	deleted := false

	for t := len(oldKeys) - 1; t >= 0; t-- {
		key := oldKeys[t]
		oldVal, _ := child(oldData, key)
		newVal, ok := child(newData, key)
		if !ok {
			d.emit(OpRemove, join(path, key), nil)
			deleted = true
			continue
		}

		ot, nt := typeOf(oldVal), typeOf(newVal)
		if ot != ntScalar && ot == nt {
			childPath := join(path, key)
			if !d.aggregate(oldVal, newVal, childPath) {
				d.generate(oldVal, newVal, childPath)
			}
			continue
		}

		if !identical(oldVal, newVal) {
			d.emit(OpReplace, join(path, key), clone(newVal))
		}
	}

	if !deleted && len(newKeys) == len(oldKeys) {
		return
	}

	for _, key := range newKeys {
		if _, ok := child(oldData, key); ok {
			continue
		}
		newVal, _ := child(newData, key)
		d.emit(OpAdd, join(path, key), clone(newVal))
	}
}

// aggregate checks a composite against the aggregate predicate, emitting a
// single OpAny patch if the shallow members of the value differ. it returns
// true when the caller must not descend into the value
func (d *diff) aggregate(oldVal, newVal interface{}, path []string) bool {
	if d.cfg.Aggregate == nil || !d.cfg.Aggregate(path) {
		return false
	}

	newKeys := keys(newVal)
	if len(keys(oldVal)) != len(newKeys) {
		d.emit(OpAny, path, clone(newVal))
		return true
	}
	for t := len(newKeys) - 1; t >= 0; t-- {
		o, ok := child(oldVal, newKeys[t])
		n, _ := child(newVal, newKeys[t])
		if !ok || !identical(o, n) {
			d.emit(OpAny, path, clone(newVal))
			return true
		}
	}
	return false
}

// join copies path, appending key. patches keep their own path slices so
// appending for a sibling never rewrites an emitted path
func join(path []string, key string) []string {
	p := make([]string, len(path)+1)
	copy(p, path)
	p[len(path)] = key
	return p
}
