// Package cloud implements the assist.Backend interface against an
// OpenAI-compatible chat-completions endpoint. The call is a single POST:
// the response is parsed once, either as the structured reply JSON or, when
// the model does not cooperate, through keyword inference over the raw text.
//
// Transport failures are retried; HTTP error statuses are not. Every failure
// on this path is converted into an apologetic reply turn so the stream
// always ends cleanly from the caller's point of view.
package cloud

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/nahjlib/assistant/pkg/assist"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultTimeout = 60 * time.Second
	userAgent      = "nahjlib-assistant/1.0"

	// maxResponseSize bounds the response body read.
	maxResponseSize = 10 * 1024 * 1024

	thinkingReply = "Thinking…"
)

// systemPrompt describes the reply schema and action vocabulary to the model.
const systemPrompt = `You are the reading assistant for a library of classical texts organised ` +
	`into three sections: sermons, letters, and sayings. Always answer with a single JSON object ` +
	`of the form {"reply": string, "action": {"command": string, "bool": boolean}?, "searchResults": [string]?}. ` +
	`Allowed action commands: openSermons, openLetters, openSayings, setDarkMode. ` +
	`setDarkMode requires the "bool" field (true for dark, false for light). ` +
	`Include at most 3 short searchResults entries, and only when the user is searching for passages. ` +
	`Do not wrap the JSON in markdown fences.`

// APIError is an error response from the chat-completions endpoint.
type APIError struct {
	Status int
	Reason string
}

func (e *APIError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("cloud: HTTP %d: %s", e.Status, e.Reason)
	}
	return fmt.Sprintf("cloud: HTTP %d", e.Status)
}

// Backend is the cloud chat-completions backend.
type Backend struct {
	BaseURL string
	client  *retryablehttp.Client
}

// New creates a Backend. Pass "" for baseURL to use the default endpoint and
// 0 for timeout to use the default.
func New(baseURL string, timeout time.Duration) *Backend {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	c := retryablehttp.NewClient()
	c.Logger = nil
	c.RetryMax = 2
	c.RetryWaitMin = 500 * time.Millisecond
	c.RetryWaitMax = 2 * time.Second
	c.HTTPClient.Timeout = timeout
	// Retry transport-level failures only. An HTTP error status is a terminal
	// answer from the server and is surfaced exactly once.
	c.CheckRetry = func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		return resp == nil && err != nil, nil
	}

	return &Backend{BaseURL: strings.TrimSuffix(baseURL, "/"), client: c}
}

func (b *Backend) Name() string { return "cloud" }

// ---------------------------------------------------------------------------
// Wire types
// ---------------------------------------------------------------------------

type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type wireRequest struct {
	Model       string        `json:"model"`
	Messages    []wireMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type wireResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
			Role    string `json:"role"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage,omitempty"`
}

type wireError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// ---------------------------------------------------------------------------
// Stream implementation
// ---------------------------------------------------------------------------

// Stream emits a placeholder turn, performs one chat-completions round trip,
// and emits a single terminal turn. Failures become an apologetic reply; the
// wait function always returns nil on this path.
func (b *Backend) Stream(ctx context.Context, prompt string, opts assist.StreamOptions) (<-chan assist.Turn, func() error) {
	events := make(chan assist.Turn, 2)
	done := make(chan struct{})

	go func() {
		defer close(events)
		defer close(done)

		events <- assist.Turn{Reply: thinkingReply}

		turn, err := b.complete(ctx, prompt, opts)
		if err != nil {
			events <- assist.Turn{Reply: apology(err)}
			return
		}

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

// complete performs the HTTP round trip and interprets the reply content.
func (b *Backend) complete(ctx context.Context, prompt string, opts assist.StreamOptions) (assist.Turn, error) {
	reqBody := wireRequest{
		Model: opts.Model,
		Messages: []wireMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		MaxTokens:   opts.MaxTokens,
		Temperature: 0.7,
	}
	if opts.Temperature != nil {
		reqBody.Temperature = *opts.Temperature
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return assist.Turn{}, fmt.Errorf("cloud: marshal request: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, b.BaseURL+"/chat/completions", body)
	if err != nil {
		return assist.Turn{}, fmt.Errorf("cloud: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+opts.Credential)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := b.client.Do(req)
	if err != nil {
		return assist.Turn{}, fmt.Errorf("cloud: request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return assist.Turn{}, fmt.Errorf("cloud: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return assist.Turn{}, &APIError{Status: resp.StatusCode, Reason: errorReason(raw)}
	}

	var wire wireResponse
	if err := json.Unmarshal(raw, &wire); err != nil {
		return assist.Turn{}, fmt.Errorf("cloud: parse response: %w", err)
	}
	if len(wire.Choices) == 0 {
		return assist.Turn{}, fmt.Errorf("cloud: response contained no choices")
	}

	content := wire.Choices[0].Message.Content
	if turn, ok := parseStructured(content); ok {
		return turn, nil
	}
	return inferTurn(content), nil
}

// errorReason extracts the server-provided reason text from an error body.
func errorReason(raw []byte) string {
	var we wireError
	if err := json.Unmarshal(raw, &we); err == nil && we.Error.Message != "" {
		return we.Error.Message
	}
	return strings.TrimSpace(string(raw))
}

// inferTurn falls back to case-insensitive keyword scanning when the reply is
// not the structured JSON. First match wins; the order is fixed for
// compatibility with the structured vocabulary.
func inferTurn(content string) assist.Turn {
	lower := strings.ToLower(content)
	turn := assist.Turn{Reply: content}

	switch {
	case strings.Contains(lower, "sermons"):
		turn.Action = &assist.Action{Command: assist.CommandOpenSermons}
	case strings.Contains(lower, "letters"):
		turn.Action = &assist.Action{Command: assist.CommandOpenLetters}
	case strings.Contains(lower, "sayings"):
		turn.Action = &assist.Action{Command: assist.CommandOpenSayings}
	case strings.Contains(lower, "dark mode"):
		on := true
		turn.Action = &assist.Action{Command: assist.CommandSetDarkMode, Enabled: &on}
	case strings.Contains(lower, "light mode"):
		off := false
		turn.Action = &assist.Action{Command: assist.CommandSetDarkMode, Enabled: &off}
	}
	return turn
}

// apology builds the user-facing reply emitted when the round trip fails.
// It includes the underlying error's description so the caller can display
// what went wrong.
func apology(err error) string {
	return "I'm sorry, I couldn't reach the assistant service: " + err.Error()
}
