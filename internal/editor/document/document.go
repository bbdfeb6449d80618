package document

import (
	"strings"

	"ludoforge/internal/config"
	"ludoforge/internal/domain"
)

// Document is the in-memory rulebook document: the node tree, the current
// selection, pending cursor marks, and the bounded undo history. It does
// no I/O; durable state is the caller's concern.
//
// Commands are atomic: they either apply fully or leave the document
// untouched, and every applied command pushes a reversible history entry.
type Document struct {
	root    *Node
	sel     Selection
	pending MarkSet // marks the next typed character receives at a collapsed cursor

	limit        int // character capacity, 0 means default
	historyDepth int

	undo []snapshot
	redo []snapshot

	revision  uint64
	observers []func()
}

// snapshot is one history entry: the serialized tree plus the selection
// and pending cursor marks that produced it.
type snapshot struct {
	data    []byte
	sel     Selection
	pending MarkSet
}

// Option configures a Document at construction time.
type Option func(*Document)

// WithCharacterLimit overrides the default character capacity.
func WithCharacterLimit(limit int) Option {
	return func(d *Document) { d.limit = limit }
}

// WithHistoryDepth overrides the default undo stack depth.
func WithHistoryDepth(depth int) Option {
	return func(d *Document) { d.historyDepth = depth }
}

func newDocument(root *Node, opts ...Option) *Document {
	d := &Document{
		root:         root,
		limit:        config.MaxRulebookCharacters,
		historyDepth: config.MaxHistoryDepth,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.sel = d.defaultSelection()
	return d
}

// Seed builds the skeleton document a fresh rulebook starts from.
func Seed(projectTitle string, opts ...Option) *Document {
	return newDocument(seedRoot(projectTitle), opts...)
}

// FromJSON builds a document from persisted content. Unknown node kinds
// survive as opaque passthrough nodes; malformed JSON is rejected with a
// validation error.
func FromJSON(data []byte, opts ...Option) (*Document, error) {
	root, err := parseRoot(data)
	if err != nil {
		return nil, err
	}
	return newDocument(root, opts...), nil
}

// defaultSelection places the cursor at the start of the first textblock.
func (d *Document) defaultSelection() Selection {
	var path Path
	n := d.root
	for len(n.Children) > 0 {
		if n.IsTextblock() {
			break
		}
		path = append(path, 0)
		n = n.Children[0]
	}
	if n.Kind == KindText || n.IsTextblock() {
		return collapsedAt(path, 0)
	}
	return collapsedAt(Path{0}, 0)
}

// Select moves the selection. The position must resolve against the
// current tree or a validation error is returned. Moving the selection
// clears any pending cursor marks.
func (d *Document) Select(sel Selection) error {
	if !validPosition(d.root, sel.Anchor) || !validPosition(d.root, sel.Head) {
		return &domain.ValidationError{Message: "selection does not resolve to a document position"}
	}
	d.sel = sel.clone()
	d.pending = nil
	return nil
}

// Selection returns the current selection.
func (d *Document) Selection() Selection {
	return d.sel.clone()
}

// Revision increments on every applied mutation, including undo/redo.
func (d *Document) Revision() uint64 {
	return d.revision
}

// Subscribe registers a change observer. Observers fire after each
// applied mutation; they must not mutate the document reentrantly.
func (d *Document) Subscribe(fn func()) {
	d.observers = append(d.observers, fn)
}

// Root exposes the node tree for read paths such as export. Callers
// must not mutate through it.
func (d *Document) Root() *Node {
	return d.root
}

// CharacterCount counts the runes held by text nodes.
func (d *Document) CharacterCount() int {
	count := 0
	d.root.walkText(func(n *Node) {
		count += len([]rune(n.Text))
	})
	return count
}

// WordCount counts whitespace-separated words across text nodes, with
// block boundaries acting as separators.
func (d *Document) WordCount() int {
	count := 0
	var walkBlocks func(n *Node)
	walkBlocks = func(n *Node) {
		if n.IsTextblock() {
			var sb strings.Builder
			n.walkText(func(t *Node) {
				sb.WriteString(t.Text)
				sb.WriteString(" ")
			})
			count += len(strings.Fields(sb.String()))
			return
		}
		for _, child := range n.Children {
			walkBlocks(child)
		}
	}
	walkBlocks(d.root)
	return count
}

// CharacterLimit returns the capacity commands enforce on insertion.
func (d *Document) CharacterLimit() int {
	return d.limit
}

// snapshotNow serializes the current state. Serialization of an in-memory
// tree cannot fail outside of a corrupted unknown node, which parseRoot
// never produces; a failure here is a programming error.
func (d *Document) snapshotNow() snapshot {
	data, err := d.ToJSON()
	if err != nil {
		panic("document: snapshot of live tree failed: " + err.Error())
	}
	return snapshot{data: data, sel: d.sel.clone(), pending: d.pending.clone()}
}

func (d *Document) restore(s snapshot) {
	root, err := parseRoot(s.data)
	if err != nil {
		panic("document: restore of own snapshot failed: " + err.Error())
	}
	d.root = root
	d.sel = s.sel.clone()
	if !validPosition(d.root, d.sel.Anchor) || !validPosition(d.root, d.sel.Head) {
		d.sel = d.defaultSelection()
	}
	d.pending = s.pending.clone()
}

// apply runs a mutation atomically: on error the pre-command state is
// restored and no history entry is recorded; on success the prior state
// is pushed onto the undo stack, the redo stack is cleared, and observers
// are notified.
func (d *Document) apply(fn func() error) error {
	before := d.snapshotNow()
	if err := fn(); err != nil {
		d.restore(before)
		return err
	}
	d.pushUndo(before)
	d.redo = nil
	d.bump()
	return nil
}

func (d *Document) pushUndo(s snapshot) {
	d.undo = append(d.undo, s)
	if len(d.undo) > d.historyDepth {
		d.undo = d.undo[len(d.undo)-d.historyDepth:]
	}
}

func (d *Document) bump() {
	d.revision++
	for _, fn := range d.observers {
		fn()
	}
}

// Undo restores the state before the most recent command.
func (d *Document) Undo() error {
	if len(d.undo) == 0 {
		return domain.ErrNothingToUndo
	}
	entry := d.undo[len(d.undo)-1]
	d.undo = d.undo[:len(d.undo)-1]
	d.redo = append(d.redo, d.snapshotNow())
	d.restore(entry)
	d.bump()
	return nil
}

// Redo reapplies the most recently undone command.
func (d *Document) Redo() error {
	if len(d.redo) == 0 {
		return domain.ErrNothingToRedo
	}
	entry := d.redo[len(d.redo)-1]
	d.redo = d.redo[:len(d.redo)-1]
	d.undo = append(d.undo, d.snapshotNow())
	d.restore(entry)
	d.bump()
	return nil
}
