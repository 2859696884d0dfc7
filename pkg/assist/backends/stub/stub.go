// Package stub implements the deterministic, network-free assistant backend.
// It is the fallback when no runtime or credential is available, and the
// fixture most tests are written against.
package stub

import (
	"context"
	"strings"
	"time"

	"github.com/nahjlib/assistant/pkg/assist"
)

// Default delays before the two emissions.
const (
	DefaultThinkDelay = 250 * time.Millisecond
	DefaultReplyDelay = 350 * time.Millisecond
)

// demoResults is the fixed search-result list emitted when no keyword matches.
var demoResults = []string{
	"Sermon 1: On the creation of the heavens and the earth",
	"Letter 31: Advice to his son al-Hasan",
	"Saying 47: The worth of a man is in his courage",
}

// Backend is the deterministic stub. Zero-valued delays mean "no delay",
// which is what tests want; New sets the documented defaults.
type Backend struct {
	ThinkDelay time.Duration
	ReplyDelay time.Duration
}

// New creates a stub backend with the default delays.
func New() *Backend {
	return &Backend{ThinkDelay: DefaultThinkDelay, ReplyDelay: DefaultReplyDelay}
}

func (b *Backend) Name() string { return "stub" }

// Stream emits a "Thinking…" turn, then classifies the prompt by substring
// match and emits one final turn. The stream always ends cleanly; the only
// early exit is context cancellation.
func (b *Backend) Stream(ctx context.Context, prompt string, opts assist.StreamOptions) (<-chan assist.Turn, func() error) {
	events := make(chan assist.Turn, 2)
	done := make(chan struct{})

	go func() {
		defer close(events)
		defer close(done)

		if !sleep(ctx, b.ThinkDelay) {
			return
		}
		events <- assist.Turn{Reply: "Thinking…"}

		if !sleep(ctx, b.ReplyDelay) {
			return
		}

		turn := Classify(prompt)
		if turn.Action != nil {
			opts.Hooks.Apply(*turn.Action)
		}
		events <- turn
	}()

	wait := func() error {
		<-done
		return nil
	}
	return events, wait
}

// Classify maps a prompt to its canned final turn. The match order is fixed:
// sermons, letters, sayings, then theme, then the demonstration results.
func Classify(prompt string) assist.Turn {
	p := strings.ToLower(prompt)

	switch {
	case strings.Contains(p, "open sermons") || strings.Contains(p, "go to sermons"):
		return assist.Turn{
			Reply:  "Opening Sermons…",
			Action: &assist.Action{Command: assist.CommandOpenSermons},
		}
	case strings.Contains(p, "open letters") || strings.Contains(p, "go to letters"):
		return assist.Turn{
			Reply:  "Opening Letters…",
			Action: &assist.Action{Command: assist.CommandOpenLetters},
		}
	case strings.Contains(p, "open sayings") || strings.Contains(p, "go to sayings"):
		return assist.Turn{
			Reply:  "Opening Sayings…",
			Action: &assist.Action{Command: assist.CommandOpenSayings},
		}
	case strings.Contains(p, "dark mode") || strings.Contains(p, "light mode") || strings.Contains(p, "theme"):
		dark := strings.Contains(p, "dark") && !strings.Contains(p, "light")
		reply := "Switching to light mode…"
		if dark {
			reply = "Switching to dark mode…"
		}
		return assist.Turn{
			Reply:  reply,
			Action: &assist.Action{Command: assist.CommandSetDarkMode, Enabled: &dark},
		}
	}

	results := make([]string, len(demoResults))
	copy(results, demoResults)
	return assist.Turn{
		Reply:   "Here are a few passages you might explore:",
		Results: results,
	}
}

// sleep waits for d or until ctx is cancelled; it reports whether the full
// delay elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
