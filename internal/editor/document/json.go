package document

import (
	"encoding/json"
	"fmt"

	"ludoforge/internal/domain"
)

// Wire format: {"type": <tag>, "attrs"?: {...}, "content"?: [...],
// "marks"?: [...], "text"?: string}. The shape is shared with the web
// editor and must stay stable across schema versions.
type wireNode struct {
	Type    string            `json:"type"`
	Attrs   map[string]any    `json:"attrs,omitempty"`
	Content []json.RawMessage `json:"content,omitempty"`
	Marks   []wireMark        `json:"marks,omitempty"`
	Text    string            `json:"text,omitempty"`
}

type wireMark struct {
	Type  string         `json:"type"`
	Attrs map[string]any `json:"attrs,omitempty"`
}

// ToJSON serializes the document deterministically: attrs maps marshal
// with sorted keys, marks are stored in rank order, and unknown nodes are
// emitted as their original bytes.
func (d *Document) ToJSON() ([]byte, error) {
	return marshalNode(d.root)
}

func marshalNode(n *Node) ([]byte, error) {
	if !n.Kind.known() {
		if n.Raw != nil {
			return n.Raw, nil
		}
		return nil, fmt.Errorf("unknown node %q has no raw payload", n.Kind)
	}

	w := wireNode{Type: string(n.Kind)}

	switch n.Kind {
	case KindHeading:
		w.Attrs = map[string]any{"level": n.Level}
	case KindTaskItem:
		w.Attrs = map[string]any{"checked": n.Checked}
	case KindImage:
		w.Attrs = map[string]any{"src": n.Src}
		if n.Alt != "" {
			w.Attrs["alt"] = n.Alt
		}
	case KindCodeBlock:
		if n.Language != "" {
			w.Attrs = map[string]any{"language": n.Language}
		}
	case KindText:
		w.Text = n.Text
		for _, m := range n.Marks {
			w.Marks = append(w.Marks, marshalMark(m))
		}
	}

	for _, child := range n.Children {
		data, err := marshalNode(child)
		if err != nil {
			return nil, err
		}
		w.Content = append(w.Content, data)
	}

	return json.Marshal(w)
}

func marshalMark(m Mark) wireMark {
	w := wireMark{Type: string(m.Kind)}
	switch m.Kind {
	case MarkLink:
		w.Attrs = map[string]any{"href": m.Href}
	case MarkTextColor:
		w.Attrs = map[string]any{"color": m.Color}
	case MarkHighlight:
		if m.Color != "" {
			w.Attrs = map[string]any{"color": m.Color}
		}
	}
	return w
}

// unmarshalNode decodes one wire node. Nodes whose type this package does
// not model, nodes that fail structural decoding, and text nodes carrying
// unrecognized marks are preserved as opaque passthrough nodes rather than
// rejected, so content written by other schema versions survives a
// load/save cycle.
func unmarshalNode(raw json.RawMessage) *Node {
	var w wireNode
	if err := json.Unmarshal(raw, &w); err != nil {
		return &Node{Raw: append(json.RawMessage(nil), raw...)}
	}

	kind := Kind(w.Type)
	if !kind.known() {
		return &Node{Kind: kind, Raw: append(json.RawMessage(nil), raw...)}
	}

	n := &Node{Kind: kind}

	switch kind {
	case KindHeading:
		n.Level = intAttr(w.Attrs, "level", 1)
		if n.Level < 1 {
			n.Level = 1
		}
		if n.Level > 3 {
			n.Level = 3
		}
	case KindTaskItem:
		n.Checked, _ = w.Attrs["checked"].(bool)
	case KindImage:
		n.Src, _ = w.Attrs["src"].(string)
		n.Alt, _ = w.Attrs["alt"].(string)
	case KindCodeBlock:
		n.Language, _ = w.Attrs["language"].(string)
	case KindText:
		n.Text = w.Text
		for _, m := range w.Marks {
			mk, ok := unmarshalMark(m)
			if !ok {
				// Unrecognized mark: keep the whole node opaque so the
				// mark's attributes are not lost on the next save.
				return &Node{Kind: kind, Raw: append(json.RawMessage(nil), raw...)}
			}
			n.Marks = n.Marks.With(mk)
		}
	}

	for _, childRaw := range w.Content {
		child := unmarshalNode(childRaw)
		n.Children = append(n.Children, child)
	}

	return n
}

func unmarshalMark(w wireMark) (Mark, bool) {
	kind := MarkKind(w.Type)
	if !knownMark(kind) {
		return Mark{}, false
	}
	m := Mark{Kind: kind}
	switch kind {
	case MarkLink:
		m.Href, _ = w.Attrs["href"].(string)
	case MarkTextColor, MarkHighlight:
		m.Color, _ = w.Attrs["color"].(string)
	}
	return m, true
}

func intAttr(attrs map[string]any, key string, fallback int) int {
	v, ok := attrs[key]
	if !ok {
		return fallback
	}
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	}
	return fallback
}

// parseRoot decodes a serialized document into a node tree. The root must
// be a doc node; everything below it is decoded leniently.
func parseRoot(data []byte) (*Node, error) {
	var w wireNode
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, &domain.ValidationError{Message: fmt.Sprintf("malformed document JSON: %v", err)}
	}
	if w.Type != string(KindDoc) {
		return nil, &domain.ValidationError{Message: fmt.Sprintf("root node must be %q, got %q", KindDoc, w.Type)}
	}

	root := &Node{Kind: KindDoc}
	for _, childRaw := range w.Content {
		root.Children = append(root.Children, unmarshalNode(childRaw))
	}

	// An empty document still needs a block for the cursor to live in.
	if len(root.Children) == 0 {
		root.Children = append(root.Children, newParagraph())
	}

	return root, nil
}

// seedRoot builds the skeleton document a fresh rulebook starts from: an
// H1 carrying the project title and one empty paragraph.
func seedRoot(projectTitle string) *Node {
	heading := &Node{Kind: KindHeading, Level: 1}
	if projectTitle != "" {
		heading.Children = []*Node{newTextNode(projectTitle, nil)}
	}
	return &Node{
		Kind:     KindDoc,
		Children: []*Node{heading, newParagraph()},
	}
}
