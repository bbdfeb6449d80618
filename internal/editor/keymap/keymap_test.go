package keymap

import "testing"

func TestResolve_DefaultBindings(t *testing.T) {
	k, err := New()
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	tests := []struct {
		chord   string
		command string
	}{
		{"Ctrl+S", "save"},
		{"Cmd+S", "save"},
		{"Mod+S", "save"},
		{"ctrl+shift+h", "toggleHighlight"},
		{"Shift+Cmd+K", "setLink"},
		{"Ctrl+Shift+X", "toggleStrike"},
		{"Ctrl+Alt+L", "toggleBulletList"},
		{"Cmd+Alt+O", "toggleOrderedList"},
		{"Ctrl+Alt+T", "toggleTaskList"},
		{"Ctrl+B", "toggleBold"},
		{"Ctrl+Z", "undo"},
		{"Ctrl+Shift+Z", "redo"},
	}
	for _, tt := range tests {
		cmd, ok := k.Resolve(tt.chord)
		if !ok {
			t.Errorf("Resolve(%q): not bound", tt.chord)
			continue
		}
		if cmd != tt.command {
			t.Errorf("Resolve(%q) = %q, want %q", tt.chord, cmd, tt.command)
		}
	}
}

func TestResolve_UnboundChordsPassThrough(t *testing.T) {
	k, err := New()
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	for _, chord := range []string{"Ctrl+Q", "F5", "Ctrl+Shift+Alt+P", "", "Ctrl+"} {
		if cmd, ok := k.Resolve(chord); ok {
			t.Errorf("Resolve(%q) unexpectedly bound to %q", chord, cmd)
		}
	}
}

func TestBind_OverridesDefault(t *testing.T) {
	k, err := New()
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if err := k.Bind("Shift+Ctrl+D", "insertHorizontalRule"); err != nil {
		t.Fatalf("Bind failed: %v", err)
	}
	cmd, ok := k.Resolve("Ctrl+Shift+D")
	if !ok || cmd != "insertHorizontalRule" {
		t.Errorf("Resolve after Bind = %q, %v", cmd, ok)
	}

	if err := k.Bind("Ctrl+Ctrl", "nope"); err == nil {
		t.Error("expected error for chord without a key")
	}
}
