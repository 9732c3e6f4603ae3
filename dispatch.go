package deltastate

import (
	"github.com/sirupsen/logrus"
)

// dispatch routes patches to matching listeners, last patch first. every
// listener whose filter & pattern match a patch is called in registration
// order. a patch no listener matched goes to the fallback, if any.
//
// callbacks are not guarded: a panicking callback aborts dispatch and the
// remaining patches are not delivered
func (r *registry) dispatch(patches Patches, log logrus.FieldLogger) (delivered int) {
	for i := len(patches) - 1; i >= 0; i-- {
		p := patches[i]
		matched := false

		for _, l := range r.listeners {
			if !l.accepts(p.Op) {
				continue
			}
			vars, ok := l.pattern.match(p.Path)
			if !ok {
				continue
			}
			l.callback(Change{Vars: vars, Path: p.Path, Op: p.Op, Value: p.Value})
			matched = true
			delivered++
		}

		if matched {
			continue
		}
		if r.fallback != nil {
			r.fallback.callback(Change{Path: p.Path, Op: p.Op, Value: p.Value})
			delivered++
			continue
		}
		log.WithFields(logrus.Fields{
			"op":   p.Op.String(),
			"path": p.Path,
		}).Debug("patch matched no listener")
	}
	return delivered
}
