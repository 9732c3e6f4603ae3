package deltastate

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidPattern is returned when a literal pattern segment is not a valid
// regular expression
var ErrInvalidPattern = errors.New("invalid pattern")

// PatternSeparator splits a pattern into one segment per tree level
const PatternSeparator = "/"

// CatchAll is the placeholder token used for unknown placeholders
const CatchAll = ":*"

// defaultPlaceholders is copied into every new container. never modified
var defaultPlaceholders = map[string]*regexp.Regexp{
	":id":     regexp.MustCompile(`^([a-zA-Z0-9\-_]+)$`),
	":number": regexp.MustCompile(`^([0-9]+)$`),
	":string": regexp.MustCompile(`^(\w+)$`),
	":axis":   regexp.MustCompile(`^([xyz])$`),
	CatchAll:  regexp.MustCompile(`(.*)`),
}

// Placeholders maps placeholder tokens like ":id" to a regular expression
// with one capture group
type Placeholders map[string]*regexp.Regexp

// DefaultPlaceholders returns a fresh copy of the built-in placeholder table
func DefaultPlaceholders() Placeholders {
	p := make(Placeholders, len(defaultPlaceholders))
	for token, re := range defaultPlaceholders {
		p[token] = re
	}
	return p
}

// lookup resolves a token, falling back to the catch-all
func (p Placeholders) lookup(token string) *regexp.Regexp {
	if re, ok := p[token]; ok && re != nil {
		return re
	}
	if re, ok := p[CatchAll]; ok && re != nil {
		return re
	}
	return defaultPlaceholders[CatchAll]
}

// segmentMatcher tests a single path component
type segmentMatcher struct {
	re *regexp.Regexp
	// name is the placeholder name without its leading ':'. empty for
	// literal segments
	name        string
	placeholder bool
}

// matches reports whether s satisfies the segment, returning the captured
// value for placeholders. a placeholder must capture exactly one group and a
// literal at most one, anything else never matches
func (m segmentMatcher) matches(s string) (string, bool) {
	groups := m.re.NumSubexp()
	if groups > 1 || (m.placeholder && groups != 1) {
		return "", false
	}
	sub := m.re.FindStringSubmatch(s)
	if sub == nil {
		return "", false
	}
	if m.placeholder {
		return sub[1], true
	}
	return "", true
}

// pattern is an immutable compiled listener path
type pattern []segmentMatcher

// compilePattern splits a pattern on "/" resolving placeholders against the
// given table. literal segments must match a path component in full
func compilePattern(raw string, placeholders Placeholders) (pattern, error) {
	segments := strings.Split(raw, PatternSeparator)
	p := make(pattern, len(segments))
	for i, seg := range segments {
		if strings.HasPrefix(seg, ":") {
			p[i] = segmentMatcher{re: placeholders.lookup(seg), name: seg[1:], placeholder: true}
			continue
		}
		re, err := regexp.Compile("^(?:" + seg + ")$")
		if err != nil {
			return nil, fmt.Errorf("%w %q: segment %d: %s", ErrInvalidPattern, raw, i, err)
		}
		p[i] = segmentMatcher{re: re}
	}
	return p, nil
}

// match tests a path against the pattern. segment counts must be equal, every
// segment must match. captured placeholder values are returned by name. when a
// name repeats the last capture wins
func (p pattern) match(path []string) (map[string]string, bool) {
	if len(path) != len(p) {
		return nil, false
	}
	vars := map[string]string{}
	for i, m := range p {
		v, ok := m.matches(path[i])
		if !ok {
			return nil, false
		}
		if m.placeholder {
			vars[m.name] = v
		}
	}
	return vars, true
}
