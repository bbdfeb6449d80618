package export

import (
	"encoding/json"
	"testing"
)

func TestMarkdown_FullDocument(t *testing.T) {
	content := json.RawMessage(`{"type":"doc","content":[
		{"type":"heading","attrs":{"level":1},"content":[{"type":"text","text":"Catan Clone"}]},
		{"type":"paragraph","content":[
			{"type":"text","text":"A game of "},
			{"type":"text","marks":[{"type":"bold"}],"text":"trade"},
			{"type":"text","text":" and "},
			{"type":"text","marks":[{"type":"italic"}],"text":"settlement"},
			{"type":"text","text":"."}
		]},
		{"type":"heading","attrs":{"level":2},"content":[{"type":"text","text":"Setup"}]},
		{"type":"bulletList","content":[
			{"type":"listItem","content":[{"type":"paragraph","content":[{"type":"text","text":"Shuffle the deck"}]}]},
			{"type":"listItem","content":[{"type":"paragraph","content":[{"type":"text","text":"Deal five cards"}]}]}
		]},
		{"type":"horizontalRule"},
		{"type":"codeBlock","attrs":{"language":"text"},"content":[{"type":"text","text":"score = roads + cities"}]}
	]}`)

	got, err := Markdown(content)
	if err != nil {
		t.Fatalf("Markdown failed: %v", err)
	}

	want := `# Catan Clone

A game of **trade** and *settlement*.

## Setup

- Shuffle the deck
- Deal five cards

---

` + "```text\nscore = roads + cities\n```\n"
	if got != want {
		t.Errorf("markdown mismatch:\n got: %q\nwant: %q", got, want)
	}
}

func TestMarkdown_TaskListAndNesting(t *testing.T) {
	content := json.RawMessage(`{"type":"doc","content":[
		{"type":"taskList","content":[
			{"type":"taskItem","attrs":{"checked":true},"content":[{"type":"paragraph","content":[{"type":"text","text":"Print the board"}]}]},
			{"type":"taskItem","attrs":{"checked":false},"content":[
				{"type":"paragraph","content":[{"type":"text","text":"Cut the tokens"}]},
				{"type":"taskList","content":[
					{"type":"taskItem","attrs":{"checked":false},"content":[{"type":"paragraph","content":[{"type":"text","text":"Wood"}]}]}
				]}
			]}
		]}
	]}`)

	got, err := Markdown(content)
	if err != nil {
		t.Fatalf("Markdown failed: %v", err)
	}

	want := `- [x] Print the board
- [ ] Cut the tokens
  - [ ] Wood
`
	if got != want {
		t.Errorf("markdown mismatch:\n got: %q\nwant: %q", got, want)
	}
}

func TestMarkdown_Table(t *testing.T) {
	content := json.RawMessage(`{"type":"doc","content":[
		{"type":"table","content":[
			{"type":"tableRow","content":[
				{"type":"tableHeader","content":[{"type":"paragraph","content":[{"type":"text","text":"Resource"}]}]},
				{"type":"tableHeader","content":[{"type":"paragraph","content":[{"type":"text","text":"Cost"}]}]}
			]},
			{"type":"tableRow","content":[
				{"type":"tableCell","content":[{"type":"paragraph","content":[{"type":"text","text":"Road"}]}]},
				{"type":"tableCell","content":[{"type":"paragraph","content":[{"type":"text","text":"1 brick, 1 wood"}]}]}
			]}
		]}
	]}`)

	got, err := Markdown(content)
	if err != nil {
		t.Fatalf("Markdown failed: %v", err)
	}

	want := `| Resource | Cost |
| --- | --- |
| Road | 1 brick, 1 wood |
`
	if got != want {
		t.Errorf("markdown mismatch:\n got: %q\nwant: %q", got, want)
	}
}

func TestMarkdown_LinkAndBlockquote(t *testing.T) {
	content := json.RawMessage(`{"type":"doc","content":[
		{"type":"blockquote","content":[{"type":"paragraph","content":[
			{"type":"text","text":"See "},
			{"type":"text","marks":[{"type":"link","attrs":{"href":"https://example.com"}}],"text":"the rules"}
		]}]}
	]}`)

	got, err := Markdown(content)
	if err != nil {
		t.Fatalf("Markdown failed: %v", err)
	}

	want := "> See [the rules](https://example.com)\n"
	if got != want {
		t.Errorf("markdown mismatch:\n got: %q\nwant: %q", got, want)
	}
}

func TestMarkdown_UnknownNodeSkipped(t *testing.T) {
	content := json.RawMessage(`{"type":"doc","content":[
		{"type":"callout","attrs":{"tone":"warning"},"content":[{"type":"paragraph"}]},
		{"type":"paragraph","content":[{"type":"text","text":"Kept"}]}
	]}`)

	got, err := Markdown(content)
	if err != nil {
		t.Fatalf("Markdown failed: %v", err)
	}
	if got != "Kept\n" {
		t.Errorf("expected unknown node skipped, got %q", got)
	}
}

func TestMarkdown_MalformedContent(t *testing.T) {
	if _, err := Markdown(json.RawMessage(`{"type":"paragraph"}`)); err == nil {
		t.Error("expected error for non-doc root")
	}
}
