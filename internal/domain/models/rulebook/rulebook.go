package rulebook

import (
	"encoding/json"
	"time"
)

// Rulebook is the durable record behind one project's rulebook document.
// Content holds the serialized document tree as JSONB; Version counts
// successful material saves and matches the newest Version row.
type Rulebook struct {
	ID           string          `json:"id" db:"id"`
	ProjectID    string          `json:"project_id" db:"project_id"`
	Title        string          `json:"title" db:"title"`
	Content      json.RawMessage `json:"content" db:"content"`
	Version      int             `json:"version" db:"version"`
	IsPublished  bool            `json:"is_published" db:"is_published"`
	WordCount    int             `json:"word_count" db:"word_count"`
	PageCount    int             `json:"page_count" db:"page_count"`
	LastEditedBy string          `json:"last_edited_by" db:"last_edited_by"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at" db:"updated_at"`
}

// Version is an immutable snapshot of a rulebook at one save. Rows are
// append-only: written once inside the save transaction, never updated,
// retained until an external pruning policy says otherwise.
type Version struct {
	ID            string          `json:"id" db:"id"`
	RulebookID    string          `json:"rulebook_id" db:"rulebook_id"`
	VersionNumber int             `json:"version_number" db:"version_number"`
	Content       json.RawMessage `json:"content" db:"content"`
	ChangeSummary *string         `json:"change_summary,omitempty" db:"change_summary"`
	CreatedBy     string          `json:"created_by" db:"created_by"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
}

// VersionMeta is a Version without its content payload, for history lists.
type VersionMeta struct {
	ID            string    `json:"id" db:"id"`
	RulebookID    string    `json:"rulebook_id" db:"rulebook_id"`
	VersionNumber int       `json:"version_number" db:"version_number"`
	ChangeSummary *string   `json:"change_summary,omitempty" db:"change_summary"`
	CreatedBy     string    `json:"created_by" db:"created_by"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}
