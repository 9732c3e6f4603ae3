// Package deltastate detects changes between snapshots of a structured data
// tree & notifies subscribers about exactly which values changed. It's
// intended to drive incremental state synchronisation, pushing only the
// changed fields of a shared state to the parties interested in them instead
// of having every consumer rescan the whole tree.
//
// deltastate operates on document trees consisting of the go types created by
// unmarshaling from JSON, which are two complex types:
//   map[string]interface{}
//   []interface{}
// and scalar types:
//   string, float64, bool, nil
// other numeric types compare by numeric value, so trees decoded from YAML or
// TOML work as well.
//
// Diff compares two trees key by key & index by index, producing a list of
// add, remove & replace patches. It does not compute a minimal edit script:
// there is no move detection, and arrays are compared positionally.
//
// Container keeps the current snapshot and a set of listeners. Listeners
// subscribe with a "/" separated path pattern, where segments beginning with
// ':' are placeholders that capture the matched path component:
//
//   c := deltastate.New(initial)
//   c.Listen("players/:id", deltastate.OpAdd, func(ch deltastate.Change) {
//     fmt.Println("joined:", ch.Vars["id"])
//   })
//   c.Set(next)
//
// A listener registered with OpAny aggregates: any change inside a matching
// subtree is reported once with a copy of the whole new subtree, and no finer
// grained patches are produced below it.
//
// CollectionContainer is a reduced sibling of Container for state shaped as
// { collection: { id: entity } }, reporting only entities that appear or
// disappear.
//
// Everything in this package is synchronous and not safe for concurrent use.
package deltastate
