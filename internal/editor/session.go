// Package editor binds a rulebook document to one editing session:
// command dispatch, keyboard chords, autosave, and save-state
// reporting. The session is the only component that talks to
// persistence; the document itself does no I/O.
package editor

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"ludoforge/internal/config"
	"ludoforge/internal/domain"
	"ludoforge/internal/editor/document"
	"ludoforge/internal/editor/keymap"

	"github.com/google/uuid"
)

// SaveState is the session's position in the save lifecycle.
type SaveState string

const (
	SaveIdle   SaveState = "idle"
	SaveDirty  SaveState = "dirty"
	SaveSaving SaveState = "saving"
	SaveSaved  SaveState = "saved"
	SaveFailed SaveState = "save_failed"
)

// SaveStatus is a point-in-time snapshot of the save lifecycle for
// hosts to render.
type SaveStatus struct {
	State       SaveState  `json:"state"`
	LastSavedAt *time.Time `json:"last_saved_at,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// Persistence is the durable-storage contract the session writes
// through. Write must be atomic from the session's point of view:
// either the rulebook and its version record both land or neither is
// visible. Failures carry domain.PersistenceError so the session can
// tell transient from permanent.
type Persistence interface {
	Write(ctx context.Context, content json.RawMessage) error
}

// CommandArgs carries the optional arguments of a dispatched command.
// Unused fields are ignored by commands that do not take them.
type CommandArgs struct {
	Text          string              `json:"text,omitempty"`
	Href          string              `json:"href,omitempty"`
	Level         int                 `json:"level,omitempty"`
	Language      string              `json:"language,omitempty"`
	Rows          int                 `json:"rows,omitempty"`
	Cols          int                 `json:"cols,omitempty"`
	WithHeaderRow bool                `json:"with_header_row,omitempty"`
	Src           string              `json:"src,omitempty"`
	Alt           string              `json:"alt,omitempty"`
	Color         string              `json:"color,omitempty"`
	Selection     *document.Selection `json:"selection,omitempty"`
}

// Session drives one editor against one rulebook document.
//
// Concurrency: a single mutex serializes every entry point, so command
// application is single-writer. Saves are single-flight: a save request
// landing while one is in flight is queued and issued after the
// in-flight write completes, never concurrently.
type Session struct {
	id      string
	doc     *document.Document
	keys    *keymap.Keymap
	persist Persistence
	logger  *slog.Logger

	readOnly bool

	mu              sync.Mutex
	state           SaveState
	lastSavedAt     time.Time
	saveErr         error
	dirtyDuringSave bool
	pendingSave     bool
	autosaveBlocked bool // permanent persistence failure; cleared by manual save
	lastActivity    time.Time
	closed          bool

	autosaveInterval time.Duration
	stopAutosave     chan struct{}
	autosaveDone     chan struct{}
}

// SessionOption configures a Session at construction time.
type SessionOption func(*Session)

// WithAutosaveInterval overrides the default autosave cadence.
// Intended for tests.
func WithAutosaveInterval(d time.Duration) SessionOption {
	return func(s *Session) { s.autosaveInterval = d }
}

// WithLogger overrides the default logger.
func WithLogger(logger *slog.Logger) SessionOption {
	return func(s *Session) { s.logger = logger }
}

// NewSession builds a session over persisted content, or over a seeded
// skeleton when content is nil. Read-only sessions reject every
// mutating entry point and never autosave.
func NewSession(content json.RawMessage, projectTitle string, readOnly bool, persist Persistence, opts ...SessionOption) (*Session, error) {
	var doc *document.Document
	if content == nil {
		doc = document.Seed(projectTitle)
	} else {
		var err error
		doc, err = document.FromJSON(content)
		if err != nil {
			return nil, err
		}
	}

	keys, err := keymap.New()
	if err != nil {
		return nil, err
	}

	s := &Session{
		id:               uuid.NewString(),
		doc:              doc,
		keys:             keys,
		persist:          persist,
		logger:           slog.Default(),
		readOnly:         readOnly,
		state:            SaveIdle,
		lastActivity:     time.Now(),
		autosaveInterval: config.AutosaveInterval,
		stopAutosave:     make(chan struct{}),
		autosaveDone:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	if readOnly {
		close(s.autosaveDone)
	} else {
		go s.autosaveLoop()
	}
	return s, nil
}

// autosaveLoop issues a save on a fixed cadence while the session is
// dirty. The cadence is time-boxed rather than keystroke-debounced, so
// a continuously typing editor still saves every interval.
func (s *Session) autosaveLoop() {
	defer close(s.autosaveDone)

	ticker := time.NewTicker(s.autosaveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopAutosave:
			return
		case <-ticker.C:
			if err := s.save(context.Background(), false); err != nil {
				s.logger.Warn("autosave failed", "session_id", s.id, "error", err)
			}
		}
	}
}

// Dispatch applies one named command. Mutating commands on a read-only
// session are rejected before the document is touched.
func (s *Session) Dispatch(ctx context.Context, command string, args CommandArgs) error {
	if command == "save" {
		return s.Save(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return &domain.ValidationError{Message: "session is closed"}
	}
	s.lastActivity = time.Now()

	if command == "select" {
		if args.Selection == nil {
			return &domain.ValidationError{Message: "select requires a selection"}
		}
		return s.doc.Select(*args.Selection)
	}

	if s.readOnly {
		return &domain.ReadOnlyError{Message: "session is read-only"}
	}

	err := s.applyCommand(command, args)
	if err != nil {
		return err
	}
	s.markDirtyLocked()
	return nil
}

// applyCommand routes a mutating command to the document. Callers hold
// the session lock.
func (s *Session) applyCommand(command string, args CommandArgs) error {
	switch command {
	case "insertText":
		return s.doc.InsertText(args.Text)
	case "toggleBold":
		return s.doc.ToggleMark(document.Mark{Kind: document.MarkBold})
	case "toggleItalic":
		return s.doc.ToggleMark(document.Mark{Kind: document.MarkItalic})
	case "toggleUnderline":
		return s.doc.ToggleMark(document.Mark{Kind: document.MarkUnderline})
	case "toggleStrike":
		return s.doc.ToggleMark(document.Mark{Kind: document.MarkStrike})
	case "toggleCode":
		return s.doc.ToggleMark(document.Mark{Kind: document.MarkCode})
	case "toggleHighlight":
		return s.doc.ToggleMark(document.Mark{Kind: document.MarkHighlight, Color: args.Color})
	case "setTextColor":
		return s.doc.ToggleMark(document.Mark{Kind: document.MarkTextColor, Color: args.Color})
	case "setLink":
		return s.doc.SetLink(args.Href)
	case "unsetLink":
		return s.doc.UnsetLink()
	case "setParagraph":
		return s.doc.SetBlockType(document.KindParagraph, document.BlockAttrs{})
	case "setHeading":
		return s.doc.SetBlockType(document.KindHeading, document.BlockAttrs{Level: args.Level})
	case "setCodeBlock":
		return s.doc.SetBlockType(document.KindCodeBlock, document.BlockAttrs{Language: args.Language})
	case "setBlockquote":
		return s.doc.SetBlockType(document.KindBlockquote, document.BlockAttrs{})
	case "toggleBulletList":
		return s.doc.ToggleList(document.KindBulletList)
	case "toggleOrderedList":
		return s.doc.ToggleList(document.KindOrderedList)
	case "toggleTaskList":
		return s.doc.ToggleList(document.KindTaskList)
	case "indent":
		return s.doc.IndentListItem()
	case "outdent":
		return s.doc.OutdentListItem()
	case "insertTable":
		return s.doc.InsertTable(args.Rows, args.Cols, args.WithHeaderRow)
	case "insertImage":
		return s.doc.InsertImage(args.Src, args.Alt)
	case "insertHorizontalRule":
		return s.doc.InsertHorizontalRule()
	case "undo":
		return s.doc.Undo()
	case "redo":
		return s.doc.Redo()
	default:
		return &domain.ValidationError{Message: "unknown command: " + command}
	}
}

// HandleKey resolves a keyboard chord and dispatches its command.
// Reports handled true for recognized chords so the host suppresses
// the platform default action; unrecognized chords pass through.
func (s *Session) HandleKey(ctx context.Context, chord string) (bool, error) {
	command, ok := s.keys.Resolve(chord)
	if !ok {
		return false, nil
	}
	return true, s.Dispatch(ctx, command, CommandArgs{})
}

// markDirtyLocked records a mutation in the save state machine.
// Mutations landing mid-save are remembered so the follow-up save
// carries them.
func (s *Session) markDirtyLocked() {
	if s.state == SaveSaving {
		s.dirtyDuringSave = true
		return
	}
	s.state = SaveDirty
}

// Save issues a manual save. A manual save also clears the
// permanent-failure block so an operator-initiated retry goes through.
func (s *Session) Save(ctx context.Context) error {
	if s.readOnly {
		return &domain.ReadOnlyError{Message: "session is read-only"}
	}
	return s.save(ctx, true)
}

// save runs one save cycle. Autosave skips clean sessions and sessions
// blocked by a permanent failure; a manual save retries regardless.
// The persistence call runs outside the session lock so editing is not
// blocked by a slow write.
func (s *Session) save(ctx context.Context, manual bool) error {
	s.mu.Lock()

	if s.closed {
		s.mu.Unlock()
		return nil
	}
	if s.state == SaveSaving {
		// Single-flight: remember the request and let the in-flight
		// save's completion reschedule.
		s.pendingSave = true
		s.mu.Unlock()
		return nil
	}
	dirty := s.state == SaveDirty || s.state == SaveFailed
	if !dirty || (!manual && s.autosaveBlocked) {
		s.mu.Unlock()
		return nil
	}

	content, err := s.doc.ToJSON()
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.state = SaveSaving
	if manual {
		s.autosaveBlocked = false
	}
	s.mu.Unlock()

	writeErr := s.persist.Write(ctx, content)

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finishSaveLocked(writeErr)
}

// finishSaveLocked applies a completed write's outcome to the state
// machine.
func (s *Session) finishSaveLocked(writeErr error) error {
	if writeErr != nil {
		s.state = SaveFailed
		s.saveErr = writeErr

		var pe *domain.PersistenceError
		if errors.As(writeErr, &pe) && pe.Permanent {
			s.autosaveBlocked = true
			s.logger.Error("save failed permanently, autosave suspended", "session_id", s.id, "error", writeErr)
		}
		s.dirtyDuringSave = false
		s.pendingSave = false
		return writeErr
	}

	s.saveErr = nil
	s.lastSavedAt = time.Now()
	if s.dirtyDuringSave || s.pendingSave {
		// Changes landed mid-save; the next tick picks them up.
		s.state = SaveDirty
	} else {
		s.state = SaveSaved
	}
	s.dirtyDuringSave = false
	s.pendingSave = false
	return nil
}

// SaveStatus reports the current save lifecycle state.
func (s *Session) SaveStatus() SaveStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := SaveStatus{State: s.state}
	if !s.lastSavedAt.IsZero() {
		t := s.lastSavedAt
		status.LastSavedAt = &t
	}
	if s.saveErr != nil {
		status.Error = s.saveErr.Error()
	}
	return status
}

// ID returns the session's unique identifier.
func (s *Session) ID() string {
	return s.id
}

// DocumentJSON serializes the current document.
func (s *Session) DocumentJSON() (json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.ToJSON()
}

// Document exposes the underlying document for read paths (counts,
// export). Callers must not mutate through it.
func (s *Session) Document() *document.Document {
	return s.doc
}

// ReadOnly reports whether the session rejects mutations.
func (s *Session) ReadOnly() bool {
	return s.readOnly
}

// LastActivity reports when a command last touched the session.
func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// Close stops the autosave loop and flushes unsaved changes with one
// best-effort final save. The session accepts no commands afterwards;
// undo history is discarded with the document.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	dirty := s.state == SaveDirty || s.state == SaveFailed || s.dirtyDuringSave
	s.mu.Unlock()

	if !s.readOnly {
		close(s.stopAutosave)
		<-s.autosaveDone

		if dirty {
			if err := s.save(ctx, true); err != nil {
				s.logger.Warn("final save on close failed", "error", err)
			}
		}
	}

	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}
