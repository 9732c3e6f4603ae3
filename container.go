package deltastate

import (
	"regexp"

	"github.com/sirupsen/logrus"
)

// Container holds the current snapshot of a tree & notifies listeners about
// the differences every time a new snapshot is set.
//
// Container is not safe for concurrent use. Callers must serialise calls to
// Set and listener registration
type Container struct {
	data         interface{}
	listeners    registry
	placeholders Placeholders
	log          logrus.FieldLogger
	stats        *Stats
}

// Option configures a Container
type Option func(c *Container)

// OptionLogger sets the logger used for debug output. defaults to the logrus
// standard logger
func OptionLogger(log logrus.FieldLogger) Option {
	return func(c *Container) {
		c.log = log
	}
}

// OptionContainerStats sets a stats pointer that is overwritten with the
// result of every Set or Compare call
func OptionContainerStats(st *Stats) Option {
	return func(c *Container) {
		c.stats = st
	}
}

// New creates a container holding an initial snapshot
func New(data interface{}, opts ...Option) *Container {
	c := &Container{
		data:         data,
		placeholders: DefaultPlaceholders(),
		log:          logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.WithField("component", "deltastate")
	return c
}

// Data returns the current snapshot. while listeners run during Set this is
// still the previous snapshot
func (c *Container) Data() interface{} {
	return c.data
}

// Set compares newData against the current snapshot, calls every matching
// listener & then stores newData as the current snapshot. The returned
// patches describe the change, which is useful for forwarding them elsewhere.
//
// If a listener panics the panic propagates to the caller of Set and the
// snapshot is not swapped. Calling Set again with the same value recomputes
// the same patches
func (c *Container) Set(newData interface{}) Patches {
	patches := c.Compare(newData)
	delivered := c.listeners.dispatch(patches, c.log)
	c.data = newData

	c.log.WithFields(logrus.Fields{
		"patches":   len(patches),
		"delivered": delivered,
	}).Debug("snapshot updated")
	return patches
}

// Compare diffs newData against the current snapshot without calling
// listeners or changing the snapshot. subtrees watched by OpAny listeners are
// reported whole, the way Set would see them
func (c *Container) Compare(newData interface{}) Patches {
	opts := []DiffOption{OptionAggregate(c.listeners.aggregates)}
	if c.stats != nil {
		*c.stats = Stats{}
		opts = append(opts, OptionSetStats(c.stats))
	}
	return Diff(c.data, newData, opts...)
}

// RegisterPlaceholder binds a placeholder token like ":xyz" to a regular
// expression with one capture group, replacing any previous binding.
// Only patterns compiled afterwards see the change
func (c *Container) RegisterPlaceholder(token string, re *regexp.Regexp) {
	c.placeholders[token] = re
}

// Listen registers cb for patches whose path matches pattern. pattern is a
// "/" separated list of segments, each either a literal regular expression
// matched against the whole path component or a placeholder like ":id" whose
// capture is passed to cb in Change.Vars. op filters by operation,
// OpUnspecified accepts every operation.
//
// An OpAny listener makes Set report any change inside a matching subtree as
// one patch carrying the whole new subtree, and suppresses the fine-grained
// patches below it
func (c *Container) Listen(pattern string, op Operation, cb Callback) (*Listener, error) {
	p, err := compilePattern(pattern, c.placeholders)
	if err != nil {
		return nil, err
	}
	l := newListener(pattern, op, p, cb)
	c.listeners.add(l)
	c.log.WithFields(logrus.Fields{
		"listener": l.id,
		"pattern":  pattern,
		"op":       op.String(),
	}).Debug("listener added")
	return l, nil
}

// ListenFallback registers cb for every patch no other listener matched,
// replacing any previous fallback listener
func (c *Container) ListenFallback(cb Callback) *Listener {
	l := newListener("", OpUnspecified, nil, cb)
	c.listeners.add(l)
	return l
}

// RemoveListener unregisters a listener. other listeners on the same pattern
// are unaffected. It reports whether the listener was registered
func (c *Container) RemoveListener(l *Listener) bool {
	return c.listeners.remove(l)
}

// RemoveAllListeners unregisters every listener, the fallback included
func (c *Container) RemoveAllListeners() {
	c.listeners.reset()
}

// ListenerCount returns the number of registered listeners, the fallback
// included
func (c *Container) ListenerCount() int {
	return c.listeners.len()
}
