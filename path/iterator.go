// Package path implements the slash-delimited path model: parsing,
// validation, component iteration, and glob matching.
package path

// Iterator walks the components of a path without allocating. It is a
// value type: copying an Iterator copies its cursor, which is what lets
// match and glob-expansion code advance two iterators independently.
type Iterator struct {
	full    string
	cur     int // start of current component
	end     int // end of current component (exclusive)
	atStart bool
}

// NewIterator builds an Iterator over path, positioned at the first component.
func NewIterator(p string) Iterator {
	it := Iterator{full: p, atStart: true}
	it.findNextComponent(0)
	return it
}

// findNextComponent positions cur/end on the next component starting at
// or after from, skipping any run of leading slashes.
func (it *Iterator) findNextComponent(from int) {
	i := from
	for i < len(it.full) && it.full[i] == '/' {
		i++
	}
	it.cur = i
	for i < len(it.full) && it.full[i] != '/' {
		i++
	}
	it.end = i
}

// Component returns the current path component (without separators).
func (it Iterator) Component() string {
	return it.full[it.cur:it.end]
}

// AtEnd reports whether iteration has exhausted all components.
func (it Iterator) AtEnd() bool {
	return it.cur >= len(it.full) || it.cur == it.end
}

// AtFinalComponent reports whether the current component is the last one.
func (it Iterator) AtFinalComponent() bool {
	return it.end == len(it.full)
}

// Full returns the full path string the iterator was built from.
func (it Iterator) Full() string {
	return it.full
}

// Next returns an iterator advanced past the current component. It does
// not mutate it; Iterator is a value type throughout, matching the
// original PathIterator's copy-and-advance idiom.
func (it Iterator) Next() Iterator {
	n := it
	if !n.AtEnd() {
		n.findNextComponent(n.end)
	}
	return n
}

// Advance mutates it in place to the next component; equivalent to
// it = it.Next() but avoids a copy on hot paths.
func (it *Iterator) Advance() {
	if !it.AtEnd() {
		it.findNextComponent(it.end)
	}
}

// Components collects every component into a slice. Intended for
// diagnostics and tests, not hot-path traversal.
func Components(p string) []string {
	var out []string
	for it := NewIterator(p); !it.AtEnd(); it.Advance() {
		out = append(out, it.Component())
	}
	return out
}
