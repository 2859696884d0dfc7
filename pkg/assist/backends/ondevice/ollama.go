// Package ondevice — Ollama-backed Runtime.
//
// The runtime speaks the Ollama HTTP API on localhost: GET /api/tags for
// readiness, POST /api/chat (streaming NDJSON, JSON output format) for
// completion. Because the model emits the structured reply as one JSON
// object, snapshots are produced by best-effort completion of the
// partially-received object after each chunk.
package ondevice

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nahjlib/assistant/pkg/assist"
)

const (
	// DefaultRuntimeURL is the standard local Ollama endpoint.
	DefaultRuntimeURL = "http://127.0.0.1:11434"

	// DefaultRuntimeModel is the local model used when none is configured.
	DefaultRuntimeModel = "llama3.2"

	runtimeTimeout = 5 * time.Minute
	probeTimeout   = 3 * time.Second
)

// OllamaRuntime implements Runtime against a local Ollama-style server.
type OllamaRuntime struct {
	BaseURL string
	Model   string

	// Disabled switches the on-device feature off without touching the
	// server. Availability then reports the feature-disabled reason.
	Disabled bool

	HTTPClient *http.Client
}

// NewOllamaRuntime creates a runtime client. Empty arguments select the
// defaults.
func NewOllamaRuntime(baseURL, model string) *OllamaRuntime {
	if baseURL == "" {
		baseURL = DefaultRuntimeURL
	}
	if model == "" {
		model = DefaultRuntimeModel
	}
	return &OllamaRuntime{
		BaseURL:    strings.TrimSuffix(baseURL, "/"),
		Model:      model,
		HTTPClient: &http.Client{Timeout: runtimeTimeout},
	}
}

// ---------------------------------------------------------------------------
// Readiness
// ---------------------------------------------------------------------------

type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// State probes /api/tags. Unreachable server means the runtime is not
// installed on this device; a reachable server without the model means the
// model has not finished downloading.
func (r *OllamaRuntime) State(ctx context.Context) assist.RuntimeState {
	if r.Disabled {
		return assist.RuntimeDisabled
	}

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.BaseURL+"/api/tags", nil)
	if err != nil {
		return assist.RuntimeUnknown
	}
	resp, err := r.HTTPClient.Do(req)
	if err != nil {
		return assist.RuntimeIneligible
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return assist.RuntimeUnknown
	}

	var tags tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return assist.RuntimeUnknown
	}
	for _, m := range tags.Models {
		if m.Name == r.Model || strings.HasPrefix(m.Name, r.Model+":") {
			return assist.RuntimeReady
		}
	}
	return assist.RuntimeDownloading
}

// ---------------------------------------------------------------------------
// Completion
// ---------------------------------------------------------------------------

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Format   string        `json:"format,omitempty"`
	Options  *chatOptions  `json:"options,omitempty"`
}

type chatOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type chatChunk struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Done  bool   `json:"done"`
	Error string `json:"error,omitempty"`
}

// Complete streams a structured generation. Each received chunk extends the
// accumulated JSON object; every successful best-effort parse of the partial
// object is emitted as a snapshot.
func (r *OllamaRuntime) Complete(ctx context.Context, req CompletionRequest) (<-chan Snapshot, func() error) {
	snaps := make(chan Snapshot, 8)
	done := make(chan struct{})
	var finalErr error

	go func() {
		defer close(snaps)
		defer close(done)
		finalErr = r.stream(ctx, req, snaps)
	}()

	wait := func() error {
		<-done
		return finalErr
	}
	return snaps, wait
}

func (r *OllamaRuntime) stream(ctx context.Context, req CompletionRequest, snaps chan<- Snapshot) error {
	body, err := json.Marshal(chatRequest{
		Model: r.Model,
		Messages: []chatMessage{
			{Role: "system", Content: req.Instructions},
			{Role: "user", Content: req.Prompt},
		},
		Stream:  true,
		Format:  "json",
		Options: &chatOptions{Temperature: 0.2},
	})
	if err != nil {
		return fmt.Errorf("ondevice: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.BaseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("ondevice: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := r.HTTPClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("ondevice: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("ondevice: HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 1<<20), 1<<20)

	var acc strings.Builder
	var last Snapshot
	emitted := false

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}

		var chunk chatChunk
		if err := json.Unmarshal(line, &chunk); err != nil {
			continue
		}
		if chunk.Error != "" {
			return fmt.Errorf("ondevice: runtime error: %s", chunk.Error)
		}

		acc.WriteString(chunk.Message.Content)

		if snap, ok := parseSnapshot(acc.String(), req.MaxResults); ok {
			if !emitted || !snap.equal(last) {
				snaps <- snap
				last = snap
				emitted = true
			}
		}

		if chunk.Done {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("ondevice: read stream: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Partial JSON parsing
// ---------------------------------------------------------------------------

// parseSnapshot completes the partially-received JSON object and unmarshals
// it into a snapshot. ok is false while the accumulated text cannot yet be
// repaired into a valid object.
func parseSnapshot(partial string, maxResults int) (Snapshot, bool) {
	trimmed := strings.TrimSpace(partial)
	if !strings.HasPrefix(trimmed, "{") {
		return Snapshot{}, false
	}

	var reply struct {
		Reply  string `json:"reply"`
		Action *struct {
			Command string `json:"command"`
			Bool    *bool  `json:"bool"`
		} `json:"action"`
		SearchResults []string `json:"searchResults"`
	}
	if err := json.Unmarshal([]byte(completeJSON(trimmed)), &reply); err != nil {
		return Snapshot{}, false
	}

	snap := Snapshot{Reply: reply.Reply, Results: reply.SearchResults}
	if maxResults > 0 && len(snap.Results) > maxResults {
		snap.Results = snap.Results[:maxResults]
	}
	if reply.Action != nil {
		snap.Action = &ActionSnapshot{Command: reply.Action.Command, Enabled: reply.Action.Bool}
	}
	return snap, true
}

// completeJSON appends the closers a truncated JSON document is missing:
// a closing quote when the text ends inside a string, then one bracket per
// unclosed object or array. The result is not guaranteed to be valid (the
// text may end after a key or a colon); callers must still check Unmarshal.
func completeJSON(s string) string {
	var stack []byte
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case inString:
			if c == '\\' {
				escaped = true
			} else if c == '"' {
				inString = false
			}
		case c == '"':
			inString = true
		case c == '{' || c == '[':
			stack = append(stack, c)
		case c == '}' || c == ']':
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		}
	}

	var b strings.Builder
	b.WriteString(s)
	if escaped {
		// A dangling backslash can never be completed into a valid escape
		// deterministically; drop it.
		b.Reset()
		b.WriteString(s[:len(s)-1])
	}
	if inString {
		b.WriteByte('"')
	}
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i] == '{' {
			b.WriteByte('}')
		} else {
			b.WriteByte(']')
		}
	}
	return b.String()
}

// equal reports whether two snapshots carry identical state, so duplicate
// emissions can be suppressed.
func (s Snapshot) equal(o Snapshot) bool {
	if s.Reply != o.Reply || len(s.Results) != len(o.Results) {
		return false
	}
	for i := range s.Results {
		if s.Results[i] != o.Results[i] {
			return false
		}
	}
	switch {
	case s.Action == nil && o.Action == nil:
		return true
	case s.Action == nil || o.Action == nil:
		return false
	}
	if s.Action.Command != o.Action.Command {
		return false
	}
	switch {
	case s.Action.Enabled == nil && o.Action.Enabled == nil:
		return true
	case s.Action.Enabled == nil || o.Action.Enabled == nil:
		return false
	}
	return *s.Action.Enabled == *o.Action.Enabled
}
