package document

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"ludoforge/internal/domain"
)

// InsertText inserts typed text at the cursor, consuming any pending
// cursor marks. A selection confined to a single text node is replaced by
// the typed text; a wider selection collapses to its start first. The
// insertion is rejected with a capacity error when it would push the
// document past its character limit.
func (d *Document) InsertText(text string) error {
	if text == "" {
		return nil
	}

	start, end := d.sel.ordered()
	removed := 0
	if !d.sel.Collapsed() && start.Path.equal(end.Path) {
		removed = end.Offset - start.Offset
	}
	added := len([]rune(text))
	if d.CharacterCount()-removed+added > d.limit {
		return &domain.CapacityError{
			Message: fmt.Sprintf("document would exceed the %d character limit", d.limit),
		}
	}

	target := nodeAt(d.root, start.Path)
	if target == nil {
		return &domain.StructuralError{Message: "selection does not resolve to a document position"}
	}

	return d.apply(func() error {
		switch {
		case target.Kind == KindText:
			d.insertIntoTextNode(start, removed, text)
		case target.IsTextblock():
			d.insertIntoEmptyBlock(start.Path, target, text)
		default:
			return &domain.StructuralError{Message: "cannot type into a " + string(target.Kind) + " node"}
		}
		d.pending = nil
		return nil
	})
}

func (d *Document) insertIntoTextNode(start Position, removed int, text string) {
	node := nodeAt(d.root, start.Path)
	runes := []rune(node.Text)
	off := start.Offset

	// Marks the inserted text carries: the node's marks with the pending
	// toggles applied.
	effective := node.Marks
	for _, m := range d.pending {
		effective = effective.Toggle(m)
	}

	if effective.Equal(node.Marks) {
		node.Text = string(runes[:off]) + text + string(runes[off+removed:])
		cursorAbs := absOffset(d.root, Position{Path: start.Path, Offset: off + len([]rune(text))})
		d.normalizeInline()
		pos := posAtAbs(d.root, cursorAbs)
		d.sel = collapsedAt(pos.Path, pos.Offset)
		return
	}

	// Split the node around the insertion point so the typed text can
	// carry a different mark set.
	parent := nodeAt(d.root, start.Path[:len(start.Path)-1])
	idx := start.Path[len(start.Path)-1]

	var pieces []*Node
	if off > 0 {
		pieces = append(pieces, newTextNode(string(runes[:off]), node.Marks))
	}
	inserted := newTextNode(text, effective)
	pieces = append(pieces, inserted)
	if off+removed < len(runes) {
		pieces = append(pieces, newTextNode(string(runes[off+removed:]), node.Marks))
	}
	parent.Children = append(parent.Children[:idx],
		append(pieces, parent.Children[idx+1:]...)...)

	// Cursor lands at the end of the inserted run. Normalization may merge
	// the inserted node with a neighbor, so the cursor is re-anchored
	// through its flattened offset.
	insertedIdx := idx
	if off > 0 {
		insertedIdx++
	}
	newPath := append(start.Path[:len(start.Path)-1].clone(), insertedIdx)
	cursorAbs := absOffset(d.root, Position{Path: newPath, Offset: len([]rune(text))})
	d.normalizeInline()
	pos := posAtAbs(d.root, cursorAbs)
	d.sel = collapsedAt(pos.Path, pos.Offset)
}

func (d *Document) insertIntoEmptyBlock(blockPath Path, block *Node, text string) {
	marks := MarkSet(nil)
	if block.Kind != KindCodeBlock {
		for _, m := range d.pending {
			marks = marks.Toggle(m)
		}
	}
	block.Children = append(block.Children, newTextNode(text, marks))
	newPath := append(blockPath.clone(), len(block.Children)-1)
	d.sel = collapsedAt(newPath, len([]rune(text)))
}

// InsertTable inserts a table with the given dimensions after the block
// holding the cursor. The first row holds header cells when requested.
// Dimensions must each be at least 1.
func (d *Document) InsertTable(rows, cols int, withHeaderRow bool) error {
	if err := validation.Validate(rows, validation.Required, validation.Min(1)); err != nil {
		return &domain.ValidationError{Message: fmt.Sprintf("table rows must be at least 1, got %d", rows)}
	}
	if err := validation.Validate(cols, validation.Required, validation.Min(1)); err != nil {
		return &domain.ValidationError{Message: fmt.Sprintf("table columns must be at least 1, got %d", cols)}
	}

	table := &Node{Kind: KindTable}
	for r := 0; r < rows; r++ {
		row := &Node{Kind: KindTableRow}
		cellKind := KindTableCell
		if withHeaderRow && r == 0 {
			cellKind = KindTableHeader
		}
		for c := 0; c < cols; c++ {
			row.Children = append(row.Children, &Node{
				Kind:     cellKind,
				Children: []*Node{newParagraph()},
			})
		}
		table.Children = append(table.Children, row)
	}

	return d.apply(func() error {
		d.insertTopLevelBlock(table)
		return nil
	})
}

// InsertImage inserts an image block at the cursor.
func (d *Document) InsertImage(src, alt string) error {
	if err := validation.Validate(src, validation.Required); err != nil {
		return &domain.ValidationError{Message: "image source is required"}
	}
	return d.apply(func() error {
		d.insertTopLevelBlock(&Node{Kind: KindImage, Src: src, Alt: alt})
		return nil
	})
}

// InsertHorizontalRule inserts a divider block at the cursor.
func (d *Document) InsertHorizontalRule() error {
	return d.apply(func() error {
		d.insertTopLevelBlock(&Node{Kind: KindHorizontalRule})
		return nil
	})
}

// insertTopLevelBlock places a block after the top-level block holding
// the anchor, or at the end of the document when the anchor does not
// resolve to one.
func (d *Document) insertTopLevelBlock(block *Node) {
	idx, ok := topLevelIndex(d.sel.Anchor)
	at := len(d.root.Children)
	if ok && idx < len(d.root.Children) {
		at = idx + 1
	}
	d.root.Children = append(d.root.Children[:at],
		append([]*Node{block}, d.root.Children[at:]...)...)
}
