// Package ondevice implements the assist.Backend interface on top of a local
// structured-generation runtime. The runtime is a black box behind the
// Runtime interface; OllamaRuntime adapts a localhost Ollama-style server.
package ondevice

import (
	"context"

	"github.com/nahjlib/assistant/pkg/assist"
)

// maxResults is the search-result size hint passed to the runtime.
const maxResults = 3

// instructions is the fixed system instruction submitted with every prompt.
const instructions = `You are the reading assistant for a library of classical texts organised ` +
	`into three sections: sermons, letters, and sayings. Fill in a JSON object of the form ` +
	`{"reply": string, "action": {"command": string, "bool": boolean}?, "searchResults": [string]?}. ` +
	`Allowed action commands: openSermons, openLetters, openSayings, setDarkMode. ` +
	`setDarkMode requires the "bool" field. Include at most 3 searchResults entries.`

// ---------------------------------------------------------------------------
// Runtime interface
// ---------------------------------------------------------------------------

// Snapshot is one progressively-completed structured state from the runtime.
// Later snapshots supersede earlier ones field by field.
type Snapshot struct {
	Reply   string
	Action  *ActionSnapshot
	Results []string
}

// ActionSnapshot is the action portion of a snapshot. Command may be empty
// while the runtime is still generating it.
type ActionSnapshot struct {
	Command string
	Enabled *bool
}

// CompletionRequest is the input to one structured generation.
type CompletionRequest struct {
	Prompt       string
	Instructions string
	MaxResults   int
}

// Runtime is the local structured-generation model. Implementations stream
// zero or more snapshots and report a terminal error through the wait
// function; an error from the call itself is a genuine stream failure.
type Runtime interface {
	// State reports whether the runtime can serve a completion right now.
	State(ctx context.Context) assist.RuntimeState

	// Complete starts a structured generation for req.
	Complete(ctx context.Context, req CompletionRequest) (<-chan Snapshot, func() error)
}

// ---------------------------------------------------------------------------
// Backend
// ---------------------------------------------------------------------------

// Backend converts runtime snapshots into assistant turns.
type Backend struct {
	runtime Runtime
}

// New creates an on-device backend over rt.
func New(rt Runtime) *Backend {
	return &Backend{runtime: rt}
}

func (b *Backend) Name() string { return "on-device" }

// State exposes the runtime's readiness for availability resolution.
func (b *Backend) State(ctx context.Context) assist.RuntimeState {
	return b.runtime.State(ctx)
}

// Stream submits the prompt with the fixed instructions and emits one turn
// per snapshot. The matching hook fires the moment a snapshot's action
// command becomes non-empty; unrecognized commands are ignored. A runtime
// error propagates through the wait function as a stream failure.
func (b *Backend) Stream(ctx context.Context, prompt string, opts assist.StreamOptions) (<-chan assist.Turn, func() error) {
	events := make(chan assist.Turn, 8)
	done := make(chan struct{})
	var finalErr error

	go func() {
		defer close(events)
		defer close(done)

		snaps, wait := b.runtime.Complete(ctx, CompletionRequest{
			Prompt:       prompt,
			Instructions: instructions,
			MaxResults:   maxResults,
		})

		fired := false
		for snap := range snaps {
			turn := snap.turn()
			if turn.Action != nil && !fired {
				fired = opts.Hooks.Apply(*turn.Action)
			}
			events <- turn
		}
		finalErr = wait()
	}()

	wait := func() error {
		<-done
		return finalErr
	}
	return events, wait
}

// turn converts a snapshot into the Turn the caller sees. The action is
// carried only once its command is known.
func (s Snapshot) turn() assist.Turn {
	t := assist.Turn{Reply: s.Reply, Results: s.Results}
	if s.Action != nil && s.Action.Command != "" {
		t.Action = &assist.Action{
			Command: assist.Command(s.Action.Command),
			Enabled: s.Action.Enabled,
		}
	}
	return t
}
