// Package export renders rulebook documents to portable formats.
package export

import (
	"encoding/json"
	"fmt"
	"strings"

	"ludoforge/internal/editor/document"
)

// Markdown renders serialized rulebook content as Markdown. Unknown
// node kinds contribute nothing; their content is skipped rather than
// guessed at.
func Markdown(content json.RawMessage) (string, error) {
	doc, err := document.FromJSON(content)
	if err != nil {
		return "", err
	}
	return MarkdownDocument(doc), nil
}

// MarkdownDocument renders an in-memory document as Markdown.
func MarkdownDocument(doc *document.Document) string {
	var sb strings.Builder
	for _, block := range doc.Root().Children {
		renderBlock(&sb, block, "")
	}
	return strings.TrimSpace(sb.String()) + "\n"
}

func renderBlock(sb *strings.Builder, n *document.Node, indent string) {
	switch n.Kind {
	case document.KindHeading:
		sb.WriteString(strings.Repeat("#", n.Level))
		sb.WriteString(" ")
		renderInline(sb, n)
		sb.WriteString("\n\n")
	case document.KindParagraph:
		sb.WriteString(indent)
		renderInline(sb, n)
		sb.WriteString("\n\n")
	case document.KindBulletList:
		renderList(sb, n, indent, func(int) string { return "- " })
		sb.WriteString("\n")
	case document.KindOrderedList:
		renderList(sb, n, indent, func(i int) string { return fmt.Sprintf("%d. ", i+1) })
		sb.WriteString("\n")
	case document.KindTaskList:
		renderList(sb, n, indent, func(int) string { return "- " })
		sb.WriteString("\n")
	case document.KindCodeBlock:
		sb.WriteString("```")
		sb.WriteString(n.Language)
		sb.WriteString("\n")
		renderInline(sb, n)
		sb.WriteString("\n```\n\n")
	case document.KindBlockquote:
		var inner strings.Builder
		for _, child := range n.Children {
			renderBlock(&inner, child, "")
		}
		for _, line := range strings.Split(strings.TrimRight(inner.String(), "\n"), "\n") {
			sb.WriteString("> ")
			sb.WriteString(line)
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	case document.KindHorizontalRule:
		sb.WriteString("---\n\n")
	case document.KindImage:
		fmt.Fprintf(sb, "![%s](%s)\n\n", n.Alt, n.Src)
	case document.KindTable:
		renderTable(sb, n)
	default:
		for _, child := range n.Children {
			renderBlock(sb, child, indent)
		}
	}
}

// renderList renders one list level. Nested lists indent under their
// parent item; task items carry a checkbox.
func renderList(sb *strings.Builder, list *document.Node, indent string, marker func(int) string) {
	for i, item := range list.Children {
		prefix := indent + marker(i)
		if item.Kind == document.KindTaskItem {
			if item.Checked {
				prefix += "[x] "
			} else {
				prefix += "[ ] "
			}
		}

		first := true
		for _, child := range item.Children {
			switch {
			case child.IsList():
				var nested func(int) string
				switch child.Kind {
				case document.KindOrderedList:
					nested = func(j int) string { return fmt.Sprintf("%d. ", j+1) }
				default:
					nested = func(int) string { return "- " }
				}
				renderList(sb, child, indent+"  ", nested)
			case child.Kind == document.KindParagraph:
				if first {
					sb.WriteString(prefix)
					first = false
				} else {
					sb.WriteString(indent + "  ")
				}
				renderInline(sb, child)
				sb.WriteString("\n")
			default:
				renderBlock(sb, child, indent+"  ")
			}
		}
	}
}

// renderTable renders a document table as a pipe table. The first row
// supplies the header; a separator row is always emitted because
// Markdown tables require one.
func renderTable(sb *strings.Builder, table *document.Node) {
	for r, row := range table.Children {
		sb.WriteString("|")
		for _, cell := range row.Children {
			var cellText strings.Builder
			for _, block := range cell.Children {
				renderInline(&cellText, block)
				cellText.WriteString(" ")
			}
			sb.WriteString(" ")
			sb.WriteString(strings.TrimSpace(cellText.String()))
			sb.WriteString(" |")
		}
		sb.WriteString("\n")

		if r == 0 {
			sb.WriteString("|")
			for range row.Children {
				sb.WriteString(" --- |")
			}
			sb.WriteString("\n")
		}
	}
	sb.WriteString("\n")
}

func renderInline(sb *strings.Builder, n *document.Node) {
	for _, child := range n.Children {
		if child.Kind != document.KindText {
			renderInline(sb, child)
			continue
		}
		sb.WriteString(wrapMarks(child.Text, child.Marks))
	}
}

// wrapMarks wraps a text run in Markdown mark syntax. Marks without a
// Markdown equivalent (underline, colors) pass the text through
// unchanged.
func wrapMarks(text string, marks document.MarkSet) string {
	result := text
	for _, m := range marks {
		switch m.Kind {
		case document.MarkBold:
			result = "**" + result + "**"
		case document.MarkItalic:
			result = "*" + result + "*"
		case document.MarkCode:
			result = "`" + result + "`"
		case document.MarkStrike:
			result = "~~" + result + "~~"
		case document.MarkHighlight:
			result = "==" + result + "=="
		case document.MarkLink:
			result = "[" + result + "](" + m.Href + ")"
		}
	}
	return result
}
