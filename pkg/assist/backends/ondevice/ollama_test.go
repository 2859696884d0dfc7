package ondevice

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nahjlib/assistant/pkg/assist"
)

// ---------------------------------------------------------------------------
// JSON completion
// ---------------------------------------------------------------------------

func TestCompleteJSON(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`{}`, `{}`},
		{`{"reply": "done"}`, `{"reply": "done"}`},
		{`{"reply": "Open`, `{"reply": "Open"}`},
		{`{"reply": "Opening", "action": {"command": "open`, `{"reply": "Opening", "action": {"command": "open"}}`},
		{`{"searchResults": ["a", "b`, `{"searchResults": ["a", "b"]}`},
		{`{"reply": "a \"quoted`, `{"reply": "a \"quoted"}`},
		{`{"reply": "trailing \`, `{"reply": "trailing "}`},
	}
	for _, tt := range tests {
		if got := completeJSON(tt.in); got != tt.want {
			t.Errorf("completeJSON(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseSnapshotProgression(t *testing.T) {
	full := `{"reply": "Opening Sermons…", "action": {"command": "openSermons"}}`

	var got []Snapshot
	for i := 1; i <= len(full); i++ {
		if snap, ok := parseSnapshot(full[:i], 3); ok {
			if len(got) == 0 || !snap.equal(got[len(got)-1]) {
				got = append(got, snap)
			}
		}
	}

	if len(got) == 0 {
		t.Fatal("no snapshot parsed from any prefix")
	}
	final := got[len(got)-1]
	if final.Reply != "Opening Sermons…" {
		t.Errorf("final reply = %q", final.Reply)
	}
	if final.Action == nil || final.Action.Command != "openSermons" {
		t.Errorf("final action = %+v", final.Action)
	}
	// The reply must have been visible before the action completed.
	if got[0].Action != nil {
		t.Errorf("first snapshot already has an action: %+v", got[0])
	}
}

func TestParseSnapshotTruncatesResults(t *testing.T) {
	in := `{"reply": "x", "searchResults": ["a", "b", "c", "d", "e"]}`
	snap, ok := parseSnapshot(in, 3)
	if !ok {
		t.Fatal("parseSnapshot failed")
	}
	if len(snap.Results) != 3 {
		t.Errorf("got %d results, want 3", len(snap.Results))
	}
}

func TestParseSnapshotRejectsNonObject(t *testing.T) {
	for _, in := range []string{"", "plain text", `["array"]`} {
		if _, ok := parseSnapshot(in, 3); ok {
			t.Errorf("parseSnapshot accepted %q", in)
		}
	}
}

// ---------------------------------------------------------------------------
// Readiness probe
// ---------------------------------------------------------------------------

func TestStateMapping(t *testing.T) {
	tags := func(names ...string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			models := make([]map[string]string, 0, len(names))
			for _, n := range names {
				models = append(models, map[string]string{"name": n})
			}
			json.NewEncoder(w).Encode(map[string]any{"models": models})
		}
	}

	t.Run("ready", func(t *testing.T) {
		srv := httptest.NewServer(tags("llama3.2:latest"))
		defer srv.Close()
		rt := NewOllamaRuntime(srv.URL, "llama3.2")
		if got := rt.State(context.Background()); got != assist.RuntimeReady {
			t.Errorf("state = %v, want ready", got)
		}
	})

	t.Run("downloading", func(t *testing.T) {
		srv := httptest.NewServer(tags("some-other-model"))
		defer srv.Close()
		rt := NewOllamaRuntime(srv.URL, "llama3.2")
		if got := rt.State(context.Background()); got != assist.RuntimeDownloading {
			t.Errorf("state = %v, want downloading", got)
		}
	})

	t.Run("ineligible", func(t *testing.T) {
		srv := httptest.NewServer(tags())
		srv.Close() // unreachable
		rt := NewOllamaRuntime(srv.URL, "llama3.2")
		if got := rt.State(context.Background()); got != assist.RuntimeIneligible {
			t.Errorf("state = %v, want ineligible", got)
		}
	})

	t.Run("disabled", func(t *testing.T) {
		rt := NewOllamaRuntime("", "")
		rt.Disabled = true
		if got := rt.State(context.Background()); got != assist.RuntimeDisabled {
			t.Errorf("state = %v, want disabled", got)
		}
	})

	t.Run("server error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()
		rt := NewOllamaRuntime(srv.URL, "llama3.2")
		if got := rt.State(context.Background()); got != assist.RuntimeUnknown {
			t.Errorf("state = %v, want unknown", got)
		}
	})
}

// ---------------------------------------------------------------------------
// Streaming completion
// ---------------------------------------------------------------------------

func TestCompleteStreamsSnapshots(t *testing.T) {
	// The runtime emits the structured object in three chunks over NDJSON.
	chunks := []string{
		`{"reply": "Opening`,
		` Sermons…", "action": `,
		`{"command": "openSermons"}}`,
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			http.NotFound(w, r)
			return
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if !req.Stream || req.Format != "json" {
			t.Errorf("request stream=%v format=%q", req.Stream, req.Format)
		}

		for i, c := range chunks {
			done := i == len(chunks)-1
			fmt.Fprintf(w, `{"message": {"content": %s}, "done": %v}`+"\n", mustJSON(c), done)
		}
	}))
	defer srv.Close()

	rt := NewOllamaRuntime(srv.URL, "llama3.2")
	snaps, wait := rt.Complete(context.Background(), CompletionRequest{
		Prompt:       "open sermons",
		Instructions: "instructions",
		MaxResults:   3,
	})

	var got []Snapshot
	for s := range snaps {
		got = append(got, s)
	}
	if err := wait(); err != nil {
		t.Fatalf("wait: %v", err)
	}

	if len(got) == 0 {
		t.Fatal("no snapshots emitted")
	}
	final := got[len(got)-1]
	if final.Reply != "Opening Sermons…" {
		t.Errorf("final reply = %q", final.Reply)
	}
	if final.Action == nil || final.Action.Command != "openSermons" {
		t.Errorf("final action = %+v", final.Action)
	}
}

func TestCompleteHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	rt := NewOllamaRuntime(srv.URL, "llama3.2")
	snaps, wait := rt.Complete(context.Background(), CompletionRequest{Prompt: "x"})
	for range snaps {
	}
	if err := wait(); err == nil {
		t.Fatal("wait returned nil, want error")
	}
}

func TestCompleteRuntimeErrorLine(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"error": "out of memory"}`)
	}))
	defer srv.Close()

	rt := NewOllamaRuntime(srv.URL, "llama3.2")
	snaps, wait := rt.Complete(context.Background(), CompletionRequest{Prompt: "x"})
	for range snaps {
	}
	err := wait()
	if err == nil {
		t.Fatal("wait returned nil, want error")
	}
}

func mustJSON(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
