// Package keymap resolves keyboard chords to editor command names. The
// shipped bindings live in an embedded YAML file; hosts may rebind at
// runtime.
package keymap

import (
	"embed"
	"fmt"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed config/*.yaml
var configFiles embed.FS

// Binding pairs one chord with the command it dispatches.
type Binding struct {
	Chord   string `yaml:"chord"`
	Command string `yaml:"command"`
}

type bindingFile struct {
	Bindings []Binding `yaml:"bindings"`
}

// Keymap is a chord-to-command table. Lookup is
// normalization-insensitive: "Ctrl+Shift+H", "cmd+shift+h", and
// "Mod+Shift+H" all resolve to the same binding.
type Keymap struct {
	bindings map[string]string // normalized chord -> command
	mu       sync.RWMutex
}

// New loads the embedded default bindings.
func New() (*Keymap, error) {
	data, err := configFiles.ReadFile("config/default.yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to read default keymap: %w", err)
	}

	var file bindingFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to unmarshal default keymap: %w", err)
	}

	k := &Keymap{bindings: make(map[string]string, len(file.Bindings))}
	for _, b := range file.Bindings {
		chord, err := normalizeChord(b.Chord)
		if err != nil {
			return nil, fmt.Errorf("invalid keymap entry %q: %w", b.Chord, err)
		}
		k.bindings[chord] = b.Command
	}
	return k, nil
}

// Resolve maps a chord to its command name. Reports ok false for
// unbound or unparseable chords so the host lets the platform default
// action run.
func (k *Keymap) Resolve(chord string) (string, bool) {
	normalized, err := normalizeChord(chord)
	if err != nil {
		return "", false
	}

	k.mu.RLock()
	defer k.mu.RUnlock()

	cmd, ok := k.bindings[normalized]
	return cmd, ok
}

// Bind adds or replaces a binding at runtime.
func (k *Keymap) Bind(chord, command string) error {
	normalized, err := normalizeChord(chord)
	if err != nil {
		return err
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	k.bindings[normalized] = command
	return nil
}

// Bindings returns the active bindings in normalized chord order.
func (k *Keymap) Bindings() []Binding {
	k.mu.RLock()
	defer k.mu.RUnlock()

	out := make([]Binding, 0, len(k.bindings))
	for chord, cmd := range k.bindings {
		out = append(out, Binding{Chord: chord, Command: cmd})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Chord < out[j].Chord })
	return out
}

// normalizeChord lowercases a "+"-joined chord, folds the platform
// primary modifier (ctrl, cmd, meta) into "mod", and orders modifiers
// canonically before the key.
func normalizeChord(chord string) (string, error) {
	parts := strings.Split(chord, "+")

	mods := map[string]bool{}
	key := ""
	for _, part := range parts {
		p := strings.ToLower(strings.TrimSpace(part))
		switch p {
		case "":
			return "", fmt.Errorf("empty chord component")
		case "mod", "ctrl", "control", "cmd", "meta":
			mods["mod"] = true
		case "alt", "option":
			mods["alt"] = true
		case "shift":
			mods["shift"] = true
		default:
			if key != "" {
				return "", fmt.Errorf("chord has multiple keys: %q and %q", key, p)
			}
			key = p
		}
	}
	if key == "" {
		return "", fmt.Errorf("chord has no key")
	}

	var sb strings.Builder
	for _, mod := range []string{"mod", "alt", "shift"} {
		if mods[mod] {
			sb.WriteString(mod)
			sb.WriteString("+")
		}
	}
	sb.WriteString(key)
	return sb.String(), nil
}
