package editor

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"ludoforge/internal/domain"
)

// fakePersistence records writes and fails on demand.
type fakePersistence struct {
	mu     sync.Mutex
	writes []json.RawMessage
	err    error
	block  chan struct{} // when set, Write waits for it to close
}

func (f *fakePersistence) Write(ctx context.Context, content json.RawMessage) error {
	f.mu.Lock()
	block := f.block
	f.mu.Unlock()
	if block != nil {
		<-block
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.writes = append(f.writes, append(json.RawMessage(nil), content...))
	return nil
}

func (f *fakePersistence) writeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.writes)
}

func (f *fakePersistence) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func newTestSession(t *testing.T, persist Persistence, opts ...SessionOption) *Session {
	t.Helper()
	s, err := NewSession(nil, "Catan Clone", false, persist, opts...)
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}
	t.Cleanup(func() { s.Close(context.Background()) })
	return s
}

func typeText(t *testing.T, s *Session, text string) {
	t.Helper()
	if err := s.Dispatch(context.Background(), "insertText", CommandArgs{Text: text}); err != nil {
		t.Fatalf("insertText failed: %v", err)
	}
}

func TestSession_SeedsFreshDocument(t *testing.T) {
	s := newTestSession(t, &fakePersistence{})

	data, err := s.DocumentJSON()
	if err != nil {
		t.Fatalf("DocumentJSON failed: %v", err)
	}
	want := `{"type":"doc","content":[{"type":"heading","attrs":{"level":1},"content":[{"type":"text","text":"Catan Clone"}]},{"type":"paragraph"}]}`
	if string(data) != want {
		t.Errorf("seeded document mismatch:\n got: %s\nwant: %s", data, want)
	}
	if got := s.SaveStatus().State; got != SaveIdle {
		t.Errorf("expected idle after load, got %s", got)
	}
}

func TestSession_MutationMarksDirty(t *testing.T) {
	s := newTestSession(t, &fakePersistence{})

	typeText(t, s, "!")
	if got := s.SaveStatus().State; got != SaveDirty {
		t.Errorf("expected dirty after mutation, got %s", got)
	}
}

func TestSession_ManualSave(t *testing.T) {
	persist := &fakePersistence{}
	s := newTestSession(t, persist)

	// A clean session has nothing to write.
	if err := s.Save(context.Background()); err != nil {
		t.Fatalf("Save on clean session failed: %v", err)
	}
	if persist.writeCount() != 0 {
		t.Fatalf("clean save wrote %d times", persist.writeCount())
	}

	typeText(t, s, "!")
	if err := s.Save(context.Background()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if persist.writeCount() != 1 {
		t.Fatalf("expected 1 write, got %d", persist.writeCount())
	}

	status := s.SaveStatus()
	if status.State != SaveSaved {
		t.Errorf("expected saved, got %s", status.State)
	}
	if status.LastSavedAt == nil {
		t.Error("expected last_saved_at after a successful save")
	}
}

func TestSession_AutosaveTicksWhileDirty(t *testing.T) {
	persist := &fakePersistence{}
	s := newTestSession(t, persist, WithAutosaveInterval(10*time.Millisecond))

	typeText(t, s, "!")

	deadline := time.After(2 * time.Second)
	for persist.writeCount() == 0 {
		select {
		case <-deadline:
			t.Fatal("autosave never fired")
		case <-time.After(5 * time.Millisecond):
		}
	}

	// A clean session does not keep writing.
	for s.SaveStatus().State == SaveSaving || s.SaveStatus().State == SaveDirty {
		time.Sleep(5 * time.Millisecond)
	}
	count := persist.writeCount()
	time.Sleep(50 * time.Millisecond)
	if got := persist.writeCount(); got != count {
		t.Errorf("clean session kept autosaving: %d -> %d writes", count, got)
	}
}

func TestSession_TransientFailureRetriesAtCadence(t *testing.T) {
	persist := &fakePersistence{}
	persist.setErr(&domain.PersistenceError{Message: "connection reset", Permanent: false})
	s := newTestSession(t, persist, WithAutosaveInterval(10*time.Millisecond))

	typeText(t, s, "!")

	deadline := time.After(2 * time.Second)
	for s.SaveStatus().State != SaveFailed {
		select {
		case <-deadline:
			t.Fatal("session never reached save_failed")
		case <-time.After(5 * time.Millisecond):
		}
	}
	if s.SaveStatus().Error == "" {
		t.Error("expected the failure to be reported in the status")
	}

	// The backend recovers; the next tick retries from current content.
	persist.setErr(nil)
	deadline = time.After(2 * time.Second)
	for persist.writeCount() == 0 {
		select {
		case <-deadline:
			t.Fatal("autosave never retried after transient failure")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestSession_PermanentFailureSuspendsAutosave(t *testing.T) {
	persist := &fakePersistence{}
	persist.setErr(&domain.PersistenceError{Message: "rulebook deleted", Permanent: true})
	s := newTestSession(t, persist, WithAutosaveInterval(10*time.Millisecond))

	typeText(t, s, "!")

	deadline := time.After(2 * time.Second)
	for s.SaveStatus().State != SaveFailed {
		select {
		case <-deadline:
			t.Fatal("session never reached save_failed")
		case <-time.After(5 * time.Millisecond):
		}
	}

	// The backend recovers, but autosave stays suspended.
	persist.setErr(nil)
	time.Sleep(50 * time.Millisecond)
	if persist.writeCount() != 0 {
		t.Fatalf("autosave ran despite permanent failure: %d writes", persist.writeCount())
	}

	// A manual save clears the block.
	if err := s.Save(context.Background()); err != nil {
		t.Fatalf("manual save after recovery failed: %v", err)
	}
	if persist.writeCount() != 1 {
		t.Fatalf("expected 1 write after manual save, got %d", persist.writeCount())
	}
}

func TestSession_SingleFlightSaves(t *testing.T) {
	persist := &fakePersistence{block: make(chan struct{})}
	s := newTestSession(t, persist)

	typeText(t, s, "!")

	done := make(chan error, 1)
	go func() { done <- s.Save(context.Background()) }()

	// Wait for the save to be in flight, then edit and request another.
	deadline := time.After(2 * time.Second)
	for s.SaveStatus().State != SaveSaving {
		select {
		case <-deadline:
			t.Fatal("save never reached in-flight state")
		case <-time.After(2 * time.Millisecond):
		}
	}
	typeText(t, s, "?")
	if err := s.Save(context.Background()); err != nil {
		t.Fatalf("queued save failed: %v", err)
	}
	if persist.writeCount() != 0 {
		t.Fatal("second save ran concurrently with the first")
	}

	close(persist.block)
	if err := <-done; err != nil {
		t.Fatalf("in-flight save failed: %v", err)
	}

	// The mid-save edit leaves the session dirty for the follow-up.
	if got := s.SaveStatus().State; got != SaveDirty {
		t.Errorf("expected dirty after mid-save edit, got %s", got)
	}
	if err := s.Save(context.Background()); err != nil {
		t.Fatalf("follow-up save failed: %v", err)
	}
	if persist.writeCount() != 2 {
		t.Fatalf("expected 2 writes, got %d", persist.writeCount())
	}
}

func TestSession_ReadOnlyRejectsMutations(t *testing.T) {
	content := json.RawMessage(`{"type":"doc","content":[{"type":"paragraph","content":[{"type":"text","text":"rules"}]}]}`)
	s, err := NewSession(content, "", true, &fakePersistence{})
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}
	defer s.Close(context.Background())

	if err := s.Dispatch(context.Background(), "insertText", CommandArgs{Text: "!"}); !errors.Is(err, domain.ErrReadOnly) {
		t.Errorf("expected read-only error for insertText, got %v", err)
	}
	if err := s.Save(context.Background()); !errors.Is(err, domain.ErrReadOnly) {
		t.Errorf("expected read-only error for save, got %v", err)
	}

	// The document is untouched.
	data, err := s.DocumentJSON()
	if err != nil {
		t.Fatalf("DocumentJSON failed: %v", err)
	}
	if string(data) != string(content) {
		t.Errorf("read-only document changed: %s", data)
	}
}

func TestSession_HandleKey(t *testing.T) {
	persist := &fakePersistence{}
	s := newTestSession(t, persist)

	// Select the heading text so a mark toggle has a range.
	var sel = `{"anchor":{"path":[0,0],"offset":0},"head":{"path":[0,0],"offset":5}}`
	var args CommandArgs
	if err := json.Unmarshal([]byte(`{"selection":`+sel+`}`), &args); err != nil {
		t.Fatalf("unmarshal args: %v", err)
	}
	if err := s.Dispatch(context.Background(), "select", args); err != nil {
		t.Fatalf("select failed: %v", err)
	}

	handled, err := s.HandleKey(context.Background(), "Ctrl+B")
	if err != nil {
		t.Fatalf("HandleKey failed: %v", err)
	}
	if !handled {
		t.Fatal("Ctrl+B should be handled")
	}
	if got := s.SaveStatus().State; got != SaveDirty {
		t.Errorf("expected dirty after bold toggle, got %s", got)
	}

	handled, err = s.HandleKey(context.Background(), "Ctrl+Q")
	if err != nil {
		t.Fatalf("HandleKey failed: %v", err)
	}
	if handled {
		t.Error("unbound chord should pass through")
	}

	handled, err = s.HandleKey(context.Background(), "Ctrl+S")
	if err != nil {
		t.Fatalf("save chord failed: %v", err)
	}
	if !handled {
		t.Fatal("Ctrl+S should be handled")
	}
	if persist.writeCount() != 1 {
		t.Fatalf("expected 1 write after save chord, got %d", persist.writeCount())
	}
}

func TestSession_CloseFlushesUnsavedChanges(t *testing.T) {
	persist := &fakePersistence{}
	s := newTestSession(t, persist)

	typeText(t, s, "!")
	if err := s.Close(context.Background()); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if persist.writeCount() != 1 {
		t.Fatalf("expected final save on close, got %d writes", persist.writeCount())
	}

	if err := s.Dispatch(context.Background(), "insertText", CommandArgs{Text: "x"}); err == nil {
		t.Error("expected closed session to reject commands")
	}
}

func TestSessionRegistry_SingleWriterPerRulebook(t *testing.T) {
	registry := NewSessionRegistry(time.Minute, time.Minute, nil)
	s1 := newTestSession(t, &fakePersistence{})
	s2 := newTestSession(t, &fakePersistence{})

	if !registry.Register("rb-1", s1) {
		t.Fatal("first register should succeed")
	}
	if registry.Register("rb-1", s2) {
		t.Fatal("second register for the same rulebook should fail")
	}
	if got := registry.Get("rb-1"); got != s1 {
		t.Error("Get returned the wrong session")
	}

	registry.Remove("rb-1")
	if registry.Count() != 0 {
		t.Errorf("expected empty registry, got %d", registry.Count())
	}
	if !registry.Register("rb-1", s2) {
		t.Error("register after remove should succeed")
	}
}

func TestSessionRegistry_SweepClosesIdleSessions(t *testing.T) {
	registry := NewSessionRegistry(time.Minute, time.Nanosecond, nil)
	persist := &fakePersistence{}
	s := newTestSession(t, persist)
	typeText(t, s, "!")

	registry.Register("rb-1", s)
	time.Sleep(time.Millisecond)
	registry.sweep(context.Background())

	if registry.Count() != 0 {
		t.Fatalf("expected idle session removed, got %d", registry.Count())
	}
	if persist.writeCount() != 1 {
		t.Errorf("expected idle close to flush changes, got %d writes", persist.writeCount())
	}
}
