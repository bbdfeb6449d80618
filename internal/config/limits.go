package config

import "time"

const (
	// MaxProjectNameLength is the maximum length for project names.
	// Limited to 255 to fit in PostgreSQL VARCHAR(255) and provide
	// reasonable UX (names should be short and descriptive).
	MaxProjectNameLength = 255

	// MaxRulebookTitleLength is the maximum length for rulebook titles.
	// Same limit as project names for consistency.
	MaxRulebookTitleLength = 255

	// MaxRulebookCharacters is the maximum number of characters a rulebook
	// document may hold. Commands that would push the document past this
	// limit are rejected rather than truncated.
	MaxRulebookCharacters = 50000

	// MaxChangeSummaryLength is the maximum length for a version's change
	// summary. Limited to 500 to keep version lists scannable.
	MaxChangeSummaryLength = 500

	// WordsPerPage is the divisor used to derive a rulebook's page count
	// from its word count. 400 approximates a letter-size page of body text.
	WordsPerPage = 400

	// MaxHistoryDepth is the maximum number of undo entries an editing
	// session retains. Older entries are discarded from the bottom.
	MaxHistoryDepth = 100

	// AutosaveInterval is how often a dirty editing session flushes to
	// persistence. Fixed-interval (time-boxed), not keystroke-debounced.
	AutosaveInterval = 30 * time.Second

	// SessionIdleTimeout is how long a session may sit untouched before
	// the registry's cleanup pass closes it.
	SessionIdleTimeout = 30 * time.Minute
)
