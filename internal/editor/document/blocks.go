package document

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"ludoforge/internal/domain"
)

// BlockAttrs carries the optional attributes of a SetBlockType target.
type BlockAttrs struct {
	Level    int    // heading level, 1..3
	Language string // code block language tag
}

// SetBlockType replaces the textblock ancestor of the selection's anchor
// with a block of the new kind, preserving inline content. Structurally
// invalid transformations are rejected and leave the document unchanged.
func (d *Document) SetBlockType(kind Kind, attrs BlockAttrs) error {
	switch kind {
	case KindParagraph, KindCodeBlock, KindBlockquote:
	case KindHeading:
		if err := validation.Validate(attrs.Level, validation.Required, validation.Min(1), validation.Max(3)); err != nil {
			return &domain.ValidationError{Message: "heading level must be between 1 and 3"}
		}
	default:
		return &domain.StructuralError{Message: "cannot set block type to " + string(kind)}
	}

	blockPath, ok := textblockAncestor(d.root, d.sel.Anchor)
	if !ok {
		return &domain.StructuralError{Message: "selection anchor is not inside a textblock"}
	}

	return d.apply(func() error {
		return d.retype(blockPath, kind, attrs)
	})
}

func (d *Document) retype(blockPath Path, kind Kind, attrs BlockAttrs) error {
	block := nodeAt(d.root, blockPath)

	parentKind := KindDoc
	if len(blockPath) > 0 {
		parentKind = nodeAt(d.root, blockPath[:len(blockPath)-1]).Kind
	}
	if !allowedChild(parentKind, kind) {
		return &domain.StructuralError{Message: string(kind) + " cannot replace a block inside " + string(parentKind)}
	}

	anchorAbs := absOffset(d.root, d.sel.Anchor)
	headAbs := absOffset(d.root, d.sel.Head)

	switch kind {
	case KindBlockquote:
		inner := &Node{Kind: block.Kind, Level: block.Level, Language: block.Language, Children: block.Children}
		*block = Node{Kind: KindBlockquote, Children: []*Node{inner}}
	case KindCodeBlock:
		// Code blocks hold plain text: inline content is flattened and
		// marks are dropped.
		var sb strings.Builder
		block.walkText(func(t *Node) { sb.WriteString(t.Text) })
		children := []*Node{}
		if sb.Len() > 0 {
			children = []*Node{newTextNode(sb.String(), nil)}
		}
		*block = Node{Kind: KindCodeBlock, Language: attrs.Language, Children: children}
	default:
		*block = Node{Kind: kind, Level: attrs.Level, Children: block.Children}
	}

	d.sel = Selection{Anchor: posAtAbs(d.root, anchorAbs), Head: posAtAbs(d.root, headAbs)}
	return nil
}

// ToggleList wraps the selected top-level block range in a list container
// of the given kind, or unwraps it when the range already is one. Lists
// of a different kind in the range are converted in place.
func (d *Document) ToggleList(kind Kind) error {
	switch kind {
	case KindBulletList, KindOrderedList, KindTaskList:
	default:
		return &domain.ValidationError{Message: string(kind) + " is not a list kind"}
	}

	start, end := d.sel.ordered()
	i0, ok0 := topLevelIndex(start)
	i1, ok1 := topLevelIndex(end)
	if !ok0 || !ok1 {
		return &domain.StructuralError{Message: "selection does not cover a block range"}
	}

	return d.apply(func() error {
		return d.toggleListRange(kind, i0, i1)
	})
}

func (d *Document) toggleListRange(kind Kind, i0, i1 int) error {
	anchorAbs := absOffset(d.root, d.sel.Anchor)
	headAbs := absOffset(d.root, d.sel.Head)

	unwrap := false
	for i := i0; i <= i1; i++ {
		if d.root.Children[i].Kind == kind {
			unwrap = true
			break
		}
	}

	var out []*Node
	out = append(out, d.root.Children[:i0]...)

	if unwrap {
		for i := i0; i <= i1; i++ {
			block := d.root.Children[i]
			if block.Kind != kind {
				out = append(out, block)
				continue
			}
			for _, item := range block.Children {
				out = append(out, item.Children...)
			}
		}
	} else {
		itemKind := itemKindFor(kind)
		var run []*Node // contiguous non-list blocks gathered into one list
		flush := func() {
			if len(run) == 0 {
				return
			}
			list := &Node{Kind: kind}
			for _, block := range run {
				list.Children = append(list.Children, &Node{Kind: itemKind, Children: []*Node{block}})
			}
			out = append(out, list)
			run = nil
		}
		for i := i0; i <= i1; i++ {
			block := d.root.Children[i]
			if block.IsList() {
				flush()
				out = append(out, convertList(block, kind))
				continue
			}
			if !allowedChild(itemKind, block.Kind) {
				flush()
				out = append(out, block)
				continue
			}
			run = append(run, block)
		}
		flush()
	}

	out = append(out, d.root.Children[i1+1:]...)
	d.root.Children = out

	d.sel = Selection{Anchor: posAtAbs(d.root, anchorAbs), Head: posAtAbs(d.root, headAbs)}
	return nil
}

// convertList rewrites a list container and its items to another list
// kind, preserving nested content. Task state is dropped when leaving a
// task list and reset when entering one.
func convertList(list *Node, kind Kind) *Node {
	itemKind := itemKindFor(kind)
	items := make([]*Node, len(list.Children))
	for i, item := range list.Children {
		converted := *item
		converted.Kind = itemKind
		if itemKind != KindTaskItem {
			converted.Checked = false
		}
		children := make([]*Node, len(item.Children))
		for j, child := range item.Children {
			if child.IsList() {
				children[j] = convertList(child, kind)
			} else {
				children[j] = child
			}
		}
		converted.Children = children
		items[i] = &converted
	}
	return &Node{Kind: kind, Children: items}
}

// IndentListItem moves the list item at the anchor one level deeper, into
// a nested list under its previous sibling. Reports a structural error
// when the item has no valid deeper target.
func (d *Document) IndentListItem() error {
	itemPath, ok := ancestorOfKind(d.root, d.sel.Anchor, (*Node).IsListItem)
	if !ok {
		return &domain.StructuralError{Message: "selection is not inside a list item"}
	}
	idx := itemPath[len(itemPath)-1]
	if idx == 0 {
		return &domain.StructuralError{Message: "cannot indent the first item of a list"}
	}

	return d.apply(func() error {
		anchorAbs := absOffset(d.root, d.sel.Anchor)
		headAbs := absOffset(d.root, d.sel.Head)

		list := nodeAt(d.root, itemPath[:len(itemPath)-1])
		item := list.Children[idx]
		prev := list.Children[idx-1]

		// Reuse a trailing nested list of the same kind on the previous
		// item, otherwise start one.
		var nested *Node
		if len(prev.Children) > 0 {
			if last := prev.Children[len(prev.Children)-1]; last.Kind == list.Kind {
				nested = last
			}
		}
		if nested == nil {
			nested = &Node{Kind: list.Kind}
			prev.Children = append(prev.Children, nested)
		}
		nested.Children = append(nested.Children, item)
		list.Children = append(list.Children[:idx], list.Children[idx+1:]...)

		d.sel = Selection{Anchor: posAtAbs(d.root, anchorAbs), Head: posAtAbs(d.root, headAbs)}
		return nil
	})
}

// OutdentListItem moves the list item at the anchor one level shallower.
// Reports a structural error at the list root.
func (d *Document) OutdentListItem() error {
	itemPath, ok := ancestorOfKind(d.root, d.sel.Anchor, (*Node).IsListItem)
	if !ok {
		return &domain.StructuralError{Message: "selection is not inside a list item"}
	}
	// The item's list must itself live inside another list item for the
	// item to have somewhere shallower to go.
	listPath := itemPath[:len(itemPath)-1]
	if len(listPath) == 0 || !nodeAt(d.root, listPath[:len(listPath)-1]).IsListItem() {
		return &domain.StructuralError{Message: "list item is already at the outermost level"}
	}

	return d.apply(func() error {
		anchorAbs := absOffset(d.root, d.sel.Anchor)
		headAbs := absOffset(d.root, d.sel.Head)

		idx := itemPath[len(itemPath)-1]
		list := nodeAt(d.root, listPath)
		item := list.Children[idx]

		outerItemPath := listPath[:len(listPath)-1]
		outerItem := nodeAt(d.root, outerItemPath)
		outerList := nodeAt(d.root, outerItemPath[:len(outerItemPath)-1])
		outerIdx := outerItemPath[len(outerItemPath)-1]

		// Detach from the nested list; drop the list entirely when it
		// empties out.
		list.Children = append(list.Children[:idx], list.Children[idx+1:]...)
		if len(list.Children) == 0 {
			nestedIdx := listPath[len(listPath)-1]
			outerItem.Children = append(outerItem.Children[:nestedIdx], outerItem.Children[nestedIdx+1:]...)
		}

		// Reinsert after the item that held the nested list, adopting the
		// outer list's item kind.
		item.Kind = itemKindFor(outerList.Kind)
		if item.Kind != KindTaskItem {
			item.Checked = false
		}
		outerList.Children = append(outerList.Children[:outerIdx+1],
			append([]*Node{item}, outerList.Children[outerIdx+1:]...)...)

		d.sel = Selection{Anchor: posAtAbs(d.root, anchorAbs), Head: posAtAbs(d.root, headAbs)}
		return nil
	})
}
