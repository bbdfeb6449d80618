package document

// Path addresses a node as the sequence of child indexes from the root.
type Path []int

func (p Path) clone() Path {
	return append(Path(nil), p...)
}

// compare orders two paths in document order. A parent sorts before its
// descendants.
func (p Path) compare(other Path) int {
	for i := 0; i < len(p) && i < len(other); i++ {
		switch {
		case p[i] < other[i]:
			return -1
		case p[i] > other[i]:
			return 1
		}
	}
	switch {
	case len(p) < len(other):
		return -1
	case len(p) > len(other):
		return 1
	}
	return 0
}

func (p Path) equal(other Path) bool {
	return p.compare(other) == 0
}

// Position is one end of a selection: a node path plus a rune offset
// within that node's text. For non-text nodes the offset is zero.
type Position struct {
	Path   Path `json:"path"`
	Offset int  `json:"offset"`
}

// Selection is the (anchor, head) range every command takes as implicit
// context. Anchor is where the selection started, head is where it ends;
// head may precede anchor in document order.
type Selection struct {
	Anchor Position `json:"anchor"`
	Head   Position `json:"head"`
}

// Collapsed reports whether the selection is a bare cursor.
func (s Selection) Collapsed() bool {
	return s.Anchor.Path.equal(s.Head.Path) && s.Anchor.Offset == s.Head.Offset
}

// ordered returns the selection's endpoints in document order.
func (s Selection) ordered() (start, end Position) {
	c := s.Anchor.Path.compare(s.Head.Path)
	if c < 0 || (c == 0 && s.Anchor.Offset <= s.Head.Offset) {
		return s.Anchor, s.Head
	}
	return s.Head, s.Anchor
}

func (s Selection) clone() Selection {
	return Selection{
		Anchor: Position{Path: s.Anchor.Path.clone(), Offset: s.Anchor.Offset},
		Head:   Position{Path: s.Head.Path.clone(), Offset: s.Head.Offset},
	}
}

// collapsedAt builds a cursor selection at the given position.
func collapsedAt(path Path, offset int) Selection {
	pos := Position{Path: path, Offset: offset}
	return Selection{Anchor: pos, Head: pos}
}

// nodeAt resolves a path against the tree. Returns nil when the path
// walks off the tree.
func nodeAt(root *Node, path Path) *Node {
	n := root
	for _, idx := range path {
		if idx < 0 || idx >= len(n.Children) {
			return nil
		}
		n = n.Children[idx]
	}
	return n
}

// validPosition reports whether the position resolves to a node and its
// offset fits that node's text.
func validPosition(root *Node, pos Position) bool {
	n := nodeAt(root, pos.Path)
	if n == nil {
		return false
	}
	if n.Kind == KindText {
		return pos.Offset >= 0 && pos.Offset <= len([]rune(n.Text))
	}
	return pos.Offset == 0
}

// textSegment is one text node (or part of one) covered by a selection.
type textSegment struct {
	path  Path
	node  *Node
	start int // rune offsets within node.Text
	end   int
}

// textSegments collects the text nodes covered by the selection, in
// document order, with per-node offset bounds for the boundary nodes.
func textSegments(root *Node, sel Selection) []textSegment {
	start, end := sel.ordered()

	var segments []textSegment
	var walk func(n *Node, path Path)
	walk = func(n *Node, path Path) {
		if n.Kind == KindText {
			if path.compare(start.Path) < 0 || path.compare(end.Path) > 0 {
				return
			}
			seg := textSegment{path: path.clone(), node: n, start: 0, end: len([]rune(n.Text))}
			if path.equal(start.Path) {
				seg.start = start.Offset
			}
			if path.equal(end.Path) {
				seg.end = end.Offset
			}
			if seg.start < seg.end || (seg.start == seg.end && sel.Collapsed()) {
				segments = append(segments, seg)
			}
			return
		}
		for i, child := range n.Children {
			walk(child, append(path, i))
		}
	}
	walk(root, nil)
	return segments
}

// textblockAncestor walks up from the position to the nearest textblock
// (paragraph, heading, code block). Returns the ancestor's path, or ok
// false when the position is not inside one.
func textblockAncestor(root *Node, pos Position) (Path, bool) {
	for l := len(pos.Path); l >= 0; l-- {
		prefix := pos.Path[:l]
		if n := nodeAt(root, prefix); n != nil && n.IsTextblock() {
			return prefix.clone(), true
		}
	}
	return nil, false
}

// ancestorOfKind walks up from the position to the nearest ancestor
// satisfying the predicate.
func ancestorOfKind(root *Node, pos Position, match func(*Node) bool) (Path, bool) {
	for l := len(pos.Path); l >= 0; l-- {
		prefix := pos.Path[:l]
		if n := nodeAt(root, prefix); n != nil && match(n) {
			return prefix.clone(), true
		}
	}
	return nil, false
}

// topLevelIndex returns the root-child index the position lives under.
func topLevelIndex(pos Position) (int, bool) {
	if len(pos.Path) == 0 {
		return 0, false
	}
	return pos.Path[0], true
}

// absOffset flattens a position to a document-order rune offset over all
// text content. Structural commands use this to re-anchor the selection
// after node splits and merges move paths around.
func absOffset(root *Node, pos Position) int {
	acc := 0
	found := false
	var walk func(n *Node, path Path)
	walk = func(n *Node, path Path) {
		if found {
			return
		}
		if n.Kind == KindText {
			switch {
			case path.compare(pos.Path) < 0:
				acc += len([]rune(n.Text))
			case path.equal(pos.Path):
				acc += pos.Offset
				found = true
			default:
				found = true
			}
			return
		}
		if path.equal(pos.Path) || path.compare(pos.Path) > 0 {
			found = true
			return
		}
		for i, child := range n.Children {
			walk(child, append(path, i))
		}
	}
	walk(root, nil)
	return acc
}

// posAtAbs maps a flattened rune offset back to a tree position. Offsets
// past the end of the text clamp to the last text position; a document
// with no text yields the default cursor position.
func posAtAbs(root *Node, abs int) Position {
	remaining := abs
	var result *Position
	var last *Position
	var walk func(n *Node, path Path)
	walk = func(n *Node, path Path) {
		if result != nil {
			return
		}
		if n.Kind == KindText {
			length := len([]rune(n.Text))
			if remaining <= length {
				p := Position{Path: path.clone(), Offset: remaining}
				result = &p
				return
			}
			remaining -= length
			p := Position{Path: path.clone(), Offset: length}
			last = &p
			return
		}
		for i, child := range n.Children {
			walk(child, append(path, i))
		}
	}
	walk(root, nil)
	if result != nil {
		return *result
	}
	if last != nil {
		return *last
	}
	return Position{Path: Path{0}, Offset: 0}
}
