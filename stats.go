package deltastate

// Stats holds statistical metadata about a diff
type Stats struct {
	Left  int `json:"leftNodes"`  // count of nodes in the left tree
	Right int `json:"rightNodes"` // count of nodes in the right tree

	Adds       int `json:"adds,omitempty"`       // number of add patches
	Removes    int `json:"removes,omitempty"`    // number of remove patches
	Replaces   int `json:"replaces,omitempty"`   // number of replace patches
	Aggregates int `json:"aggregates,omitempty"` // number of subtrees reported whole
}

// NodeChange returns a count of the shift between left & right trees
func (s Stats) NodeChange() int {
	return s.Right - s.Left
}

// Total returns the number of patches the diff produced
func (s Stats) Total() int {
	return s.Adds + s.Removes + s.Replaces + s.Aggregates
}

func (s *Stats) count(left, right interface{}, patches Patches) {
	s.Left = countNodes(left)
	s.Right = countNodes(right)
	for _, p := range patches {
		switch p.Op {
		case OpAdd:
			s.Adds++
		case OpRemove:
			s.Removes++
		case OpReplace:
			s.Replaces++
		case OpAny:
			s.Aggregates++
		}
	}
}

// countNodes counts every value in a tree, root included
func countNodes(v interface{}) (n int) {
	walk(v, nil, func(_ []string, _ interface{}) bool {
		n++
		return true
	})
	return n
}
