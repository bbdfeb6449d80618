// Package document implements the structured rulebook document model: a
// typed node tree with a command-based mutation API, bounded undo history,
// and deterministic JSON serialization compatible with the web editor's
// persisted content format.
package document

import (
	"encoding/json"
)

// Kind identifies a node variant. Values match the persisted wire tags.
type Kind string

const (
	KindDoc            Kind = "doc"
	KindHeading        Kind = "heading"
	KindParagraph      Kind = "paragraph"
	KindBulletList     Kind = "bulletList"
	KindOrderedList    Kind = "orderedList"
	KindListItem       Kind = "listItem"
	KindTaskList       Kind = "taskList"
	KindTaskItem       Kind = "taskItem"
	KindTable          Kind = "table"
	KindTableRow       Kind = "tableRow"
	KindTableHeader    Kind = "tableHeader"
	KindTableCell      Kind = "tableCell"
	KindBlockquote     Kind = "blockquote"
	KindHorizontalRule Kind = "horizontalRule"
	KindCodeBlock      Kind = "codeBlock"
	KindImage          Kind = "image"
	KindText           Kind = "text"
)

// Node is one node in the document tree. Exactly one variant is active,
// selected by Kind; attribute fields not belonging to the active variant
// are zero. Nodes with a Kind this package does not recognize keep their
// original JSON in Raw and pass through serialization untouched, so older
// and newer schema versions can coexist.
type Node struct {
	Kind Kind

	Level    int    // heading: 1..3
	Checked  bool   // taskItem
	Src      string // image
	Alt      string // image
	Language string // codeBlock, may be empty

	Text  string  // text nodes only
	Marks MarkSet // text nodes only

	Children []*Node

	Raw json.RawMessage // unknown kinds: original JSON, emitted verbatim
}

// known reports whether the kind is one this package models structurally.
func (k Kind) known() bool {
	switch k {
	case KindDoc, KindHeading, KindParagraph, KindBulletList, KindOrderedList,
		KindListItem, KindTaskList, KindTaskItem, KindTable, KindTableRow,
		KindTableHeader, KindTableCell, KindBlockquote, KindHorizontalRule,
		KindCodeBlock, KindImage, KindText:
		return true
	}
	return false
}

// IsTextblock reports whether the node holds inline content directly.
func (n *Node) IsTextblock() bool {
	switch n.Kind {
	case KindParagraph, KindHeading, KindCodeBlock:
		return true
	}
	return false
}

// IsList reports whether the node is a list container.
func (n *Node) IsList() bool {
	switch n.Kind {
	case KindBulletList, KindOrderedList, KindTaskList:
		return true
	}
	return false
}

// IsListItem reports whether the node is an item inside a list container.
func (n *Node) IsListItem() bool {
	return n.Kind == KindListItem || n.Kind == KindTaskItem
}

// IsLeaf reports whether the node never carries children.
func (n *Node) IsLeaf() bool {
	switch n.Kind {
	case KindText, KindImage, KindHorizontalRule:
		return true
	}
	return false
}

// itemKindFor returns the item variant a list container holds.
func itemKindFor(list Kind) Kind {
	if list == KindTaskList {
		return KindTaskItem
	}
	return KindListItem
}

// allowedChild enforces the structural invariants of the tree: only tables
// contain rows, only rows contain cells, task lists contain task items and
// plain lists contain plain items.
func allowedChild(parent, child Kind) bool {
	if !parent.known() || !child.known() {
		// Unknown nodes pass through without structural checks.
		return true
	}
	switch parent {
	case KindTable:
		return child == KindTableRow
	case KindTableRow:
		return child == KindTableHeader || child == KindTableCell
	case KindBulletList, KindOrderedList:
		return child == KindListItem
	case KindTaskList:
		return child == KindTaskItem
	case KindText, KindImage, KindHorizontalRule:
		return false
	}
	switch child {
	case KindTableRow, KindTableHeader, KindTableCell:
		return false
	case KindListItem:
		return parent == KindBulletList || parent == KindOrderedList
	case KindTaskItem:
		return parent == KindTaskList
	}
	return true
}

// Clone deep-copies the node and its subtree.
func (n *Node) Clone() *Node {
	c := *n
	c.Marks = n.Marks.clone()
	if n.Raw != nil {
		c.Raw = append(json.RawMessage(nil), n.Raw...)
	}
	if n.Children != nil {
		c.Children = make([]*Node, len(n.Children))
		for i, child := range n.Children {
			c.Children[i] = child.Clone()
		}
	}
	return &c
}

// walkText visits every text node in document order.
func (n *Node) walkText(visit func(*Node)) {
	if n.Kind == KindText {
		visit(n)
		return
	}
	for _, child := range n.Children {
		child.walkText(visit)
	}
}

// newTextNode builds a text leaf carrying a copy of the given marks.
func newTextNode(text string, marks MarkSet) *Node {
	return &Node{Kind: KindText, Text: text, Marks: marks.clone()}
}

// newParagraph builds a paragraph around the given inline children.
func newParagraph(inline ...*Node) *Node {
	return &Node{Kind: KindParagraph, Children: inline}
}
