// Package assist defines the core types for the reading assistant: incremental
// turns, actions, side-effect hooks, provider selection, availability, and the
// backend interface the three engines implement.
package assist

// ---------------------------------------------------------------------------
// Sections
// ---------------------------------------------------------------------------

// Section identifies one of the library's three text collections.
type Section string

const (
	SectionSermons Section = "sermons"
	SectionLetters Section = "letters"
	SectionSayings Section = "sayings"
)

// ---------------------------------------------------------------------------
// Actions
// ---------------------------------------------------------------------------

// Command is the wire-stable action vocabulary the assistant may emit.
// The spellings are part of the external contract and must not change.
type Command string

const (
	CommandOpenSermons Command = "openSermons"
	CommandOpenLetters Command = "openLetters"
	CommandOpenSayings Command = "openSayings"
	CommandSetDarkMode Command = "setDarkMode"
)

// Section returns the library section a navigation command refers to.
// ok is false for setDarkMode and for unrecognized commands.
func (c Command) Section() (Section, bool) {
	switch c {
	case CommandOpenSermons:
		return SectionSermons, true
	case CommandOpenLetters:
		return SectionLetters, true
	case CommandOpenSayings:
		return SectionSayings, true
	}
	return "", false
}

// Action is a structured command the assistant can emit to trigger navigation
// or a theme change. Enabled is only meaningful for setDarkMode.
type Action struct {
	Command Command `json:"command"`
	Enabled *bool   `json:"bool,omitempty"`
}

// ---------------------------------------------------------------------------
// Turns
// ---------------------------------------------------------------------------

// Turn is one latest-state snapshot of an in-progress assistant reply.
// Each field supersedes the previous snapshot's value; snapshots are not
// deltas to be merged.
type Turn struct {
	// Reply is the assistant's reply text so far. It replaces, not appends to,
	// the reply of the previous snapshot.
	Reply string `json:"reply"`

	// Results is an optional list of short search-style suggestions.
	Results []string `json:"searchResults,omitempty"`

	// Action is an optional command for the caller to execute.
	Action *Action `json:"action,omitempty"`
}

// ---------------------------------------------------------------------------
// Stream options
// ---------------------------------------------------------------------------

// StreamOptions carries the per-request parameters a backend needs.
type StreamOptions struct {
	// Model is the cloud model identifier (ignored by stub and on-device).
	Model string

	// Credential is the bearer credential for the cloud backend.
	Credential string

	// MaxTokens caps the response length (0 = backend default).
	MaxTokens int

	// Temperature controls sampling randomness (nil = backend default).
	Temperature *float64

	// Hooks are fired by the backend the moment an action becomes known.
	Hooks Hooks
}
