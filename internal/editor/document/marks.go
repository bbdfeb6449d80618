package document

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"ludoforge/internal/domain"
)

// ToggleMark applies the mark to every text node in the selection when
// any of them lacks it, and removes it from all of them when the
// selection's text fully carries it. Text nodes are split at the
// selection boundaries as needed and re-merged afterwards, so toggling
// twice over an unchanged selection restores the prior tree.
//
// At a collapsed cursor the toggle is deferred: the mark joins the
// pending set and the next typed character receives it.
func (d *Document) ToggleMark(mark Mark) error {
	if !knownMark(mark.Kind) {
		return &domain.ValidationError{Message: "unknown mark kind: " + string(mark.Kind)}
	}

	if d.sel.Collapsed() {
		d.pending = d.pending.Toggle(mark)
		return nil
	}

	return d.apply(func() error {
		return d.toggleMarkInRange(mark)
	})
}

// SetLink applies a link mark with the given href over the selection.
// The href must be a syntactically valid URL.
func (d *Document) SetLink(href string) error {
	if err := validation.Validate(href, validation.Required, is.URL); err != nil {
		return &domain.ValidationError{Message: "invalid link URL: " + err.Error()}
	}
	if d.sel.Collapsed() {
		return &domain.StructuralError{Message: "setting a link requires a non-empty selection"}
	}
	return d.apply(func() error {
		return d.applyMarkInRange(Mark{Kind: MarkLink, Href: href}, true)
	})
}

// UnsetLink removes link marks from the selection.
func (d *Document) UnsetLink() error {
	if d.sel.Collapsed() {
		return &domain.StructuralError{Message: "removing a link requires a non-empty selection"}
	}
	return d.apply(func() error {
		return d.applyMarkInRange(Mark{Kind: MarkLink}, false)
	})
}

// toggleMarkInRange decides toggle direction from full coverage: remove
// when every covered text node carries the mark, apply otherwise.
func (d *Document) toggleMarkInRange(mark Mark) error {
	segments := textSegments(d.root, d.sel)
	if len(segments) == 0 {
		return &domain.StructuralError{Message: "selection contains no text"}
	}

	add := false
	for _, seg := range segments {
		if !seg.node.Marks.Has(mark.Kind) {
			add = true
			break
		}
	}
	return d.applyMarkInRange(mark, add)
}

// applyMarkInRange adds or removes a mark across the selection, splitting
// partially covered text nodes. The selection is re-anchored over the
// same text afterwards.
func (d *Document) applyMarkInRange(mark Mark, add bool) error {
	segments := textSegments(d.root, d.sel)
	if len(segments) == 0 {
		return &domain.StructuralError{Message: "selection contains no text"}
	}

	start, end := d.sel.ordered()
	a0 := absOffset(d.root, start)
	a1 := absOffset(d.root, end)

	// Process in reverse document order so splices don't shift the
	// paths of segments not yet processed.
	for i := len(segments) - 1; i >= 0; i-- {
		d.markSegment(segments[i], mark, add)
	}

	d.normalizeInline()
	d.sel = Selection{Anchor: posAtAbs(d.root, a0), Head: posAtAbs(d.root, a1)}
	return nil
}

// markSegment rewrites one text node: a fully covered node changes in
// place, a partially covered one is split into covered and uncovered
// pieces.
func (d *Document) markSegment(seg textSegment, mark Mark, add bool) {
	parent := nodeAt(d.root, seg.path[:len(seg.path)-1])
	idx := seg.path[len(seg.path)-1]
	node := seg.node
	runes := []rune(node.Text)

	changed := func(base MarkSet) MarkSet {
		if add {
			return base.With(mark)
		}
		return base.Without(mark.Kind)
	}

	if seg.start == 0 && seg.end == len(runes) {
		node.Marks = changed(node.Marks)
		return
	}

	var pieces []*Node
	if seg.start > 0 {
		pieces = append(pieces, newTextNode(string(runes[:seg.start]), node.Marks))
	}
	pieces = append(pieces, &Node{
		Kind:  KindText,
		Text:  string(runes[seg.start:seg.end]),
		Marks: changed(node.Marks),
	})
	if seg.end < len(runes) {
		pieces = append(pieces, newTextNode(string(runes[seg.end:]), node.Marks))
	}

	parent.Children = append(parent.Children[:idx],
		append(pieces, parent.Children[idx+1:]...)...)
}

// normalizeInline merges adjacent text siblings with equal mark sets and
// drops empty text nodes, across the whole tree. Keeping the inline
// content canonical is what makes paired mark toggles structurally
// idempotent.
func (d *Document) normalizeInline() {
	var walk func(n *Node)
	walk = func(n *Node) {
		if n.IsLeaf() || !n.Kind.known() {
			return
		}
		merged := make([]*Node, 0, len(n.Children))
		for _, child := range n.Children {
			if child.Kind == KindText && child.Text == "" {
				continue
			}
			if child.Kind == KindText && len(merged) > 0 {
				prev := merged[len(merged)-1]
				if prev.Kind == KindText && prev.Marks.Equal(child.Marks) {
					prev.Text += child.Text
					continue
				}
			}
			merged = append(merged, child)
		}
		n.Children = merged
		for _, child := range n.Children {
			walk(child)
		}
	}
	walk(d.root)
}
