package document

// MarkKind identifies an inline formatting mark. Values match the
// persisted wire tags.
type MarkKind string

const (
	MarkBold        MarkKind = "bold"
	MarkItalic      MarkKind = "italic"
	MarkUnderline   MarkKind = "underline"
	MarkStrike      MarkKind = "strike"
	MarkCode        MarkKind = "code"
	MarkLink        MarkKind = "link"
	MarkHighlight   MarkKind = "highlight"
	MarkTextColor   MarkKind = "textColor"
	MarkSubscript   MarkKind = "subscript"
	MarkSuperscript MarkKind = "superscript"
)

// markRank fixes the serialization order of marks so that equal mark sets
// always round-trip to identical JSON regardless of application order.
var markRank = map[MarkKind]int{
	MarkBold:        0,
	MarkItalic:      1,
	MarkUnderline:   2,
	MarkStrike:      3,
	MarkCode:        4,
	MarkLink:        5,
	MarkHighlight:   6,
	MarkTextColor:   7,
	MarkSubscript:   8,
	MarkSuperscript: 9,
}

// knownMark reports whether this package models the mark kind.
func knownMark(k MarkKind) bool {
	_, ok := markRank[k]
	return ok
}

// Mark is one inline formatting mark on a text node. Href is set for
// link marks, Color for highlight and textColor marks.
type Mark struct {
	Kind  MarkKind
	Href  string
	Color string
}

// MarkSet is a set of marks keyed by kind: at most one mark per kind,
// kept sorted by markRank. Application order is irrelevant; storage
// order is deterministic.
type MarkSet []Mark

// Has reports whether the set carries a mark of the given kind.
func (s MarkSet) Has(kind MarkKind) bool {
	for _, m := range s {
		if m.Kind == kind {
			return true
		}
	}
	return false
}

// Get returns the mark of the given kind, if present.
func (s MarkSet) Get(kind MarkKind) (Mark, bool) {
	for _, m := range s {
		if m.Kind == kind {
			return m, true
		}
	}
	return Mark{}, false
}

// With returns a new set carrying the mark, replacing any existing mark
// of the same kind. Rank order is preserved.
func (s MarkSet) With(mark Mark) MarkSet {
	out := make(MarkSet, 0, len(s)+1)
	inserted := false
	for _, m := range s {
		if m.Kind == mark.Kind {
			continue
		}
		if !inserted && markRank[m.Kind] > markRank[mark.Kind] {
			out = append(out, mark)
			inserted = true
		}
		out = append(out, m)
	}
	if !inserted {
		out = append(out, mark)
	}
	return out
}

// Without returns a new set with the given kind removed.
func (s MarkSet) Without(kind MarkKind) MarkSet {
	out := make(MarkSet, 0, len(s))
	for _, m := range s {
		if m.Kind != kind {
			out = append(out, m)
		}
	}
	return out
}

// Toggle adds the mark when absent and removes its kind when present.
func (s MarkSet) Toggle(mark Mark) MarkSet {
	if s.Has(mark.Kind) {
		return s.Without(mark.Kind)
	}
	return s.With(mark)
}

// Equal reports whether two sets carry the same marks with the same
// attributes.
func (s MarkSet) Equal(other MarkSet) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

func (s MarkSet) clone() MarkSet {
	if s == nil {
		return nil
	}
	return append(MarkSet(nil), s...)
}
