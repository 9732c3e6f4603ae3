package deltastate

import (
	"github.com/google/uuid"
)

// Change is passed to listener callbacks
type Change struct {
	// Vars holds the path components captured by placeholders, keyed by
	// placeholder name without the leading ':'. nil for the fallback listener
	Vars map[string]string
	// Path is the full path of the patch
	Path []string
	// Op is the operation of the patch, never OpUnspecified
	Op Operation
	// Value is a copy of the new value, nil for removals
	Value interface{}
}

// Callback is called synchronously for every patch a listener matches
type Callback func(Change)

// Listener is a registered subscription. The zero segment listener is the
// fallback
type Listener struct {
	id       string
	raw      string
	op       Operation
	pattern  pattern
	callback Callback
}

// ID returns an identifier unique to this listener
func (l *Listener) ID() string { return l.id }

// Pattern returns the pattern the listener was registered with. empty for the
// fallback listener
func (l *Listener) Pattern() string { return l.raw }

// Operation returns the listener's operation filter
func (l *Listener) Operation() Operation { return l.op }

// IsFallback is true for the listener that receives otherwise unmatched patches
func (l *Listener) IsFallback() bool { return len(l.pattern) == 0 }

// accepts checks the operation filter
func (l *Listener) accepts(op Operation) bool {
	return l.op == OpUnspecified || l.op == op
}

func newListener(raw string, op Operation, p pattern, cb Callback) *Listener {
	return &Listener{
		id:       uuid.New().String(),
		raw:      raw,
		op:       op,
		pattern:  p,
		callback: cb,
	}
}

// registry holds listeners in registration order plus a single fallback
type registry struct {
	listeners []*Listener
	fallback  *Listener
}

func (r *registry) add(l *Listener) {
	if l.IsFallback() {
		r.fallback = l
		return
	}
	r.listeners = append(r.listeners, l)
}

// remove drops a listener, reporting whether it was registered
func (r *registry) remove(l *Listener) bool {
	if l == nil {
		return false
	}
	if r.fallback == l {
		r.fallback = nil
		return true
	}
	for i, reg := range r.listeners {
		if reg == l {
			r.listeners = append(r.listeners[:i:i], r.listeners[i+1:]...)
			return true
		}
	}
	return false
}

func (r *registry) reset() {
	r.listeners = nil
	r.fallback = nil
}

func (r *registry) len() int {
	n := len(r.listeners)
	if r.fallback != nil {
		n++
	}
	return n
}

// aggregates reports whether some OpAny listener's pattern matches path
// exactly. used as the diff aggregate predicate
func (r *registry) aggregates(path []string) bool {
	for _, l := range r.listeners {
		if l.op != OpAny {
			continue
		}
		if _, ok := l.pattern.match(path); ok {
			return true
		}
	}
	return false
}
