// Package transcript — JSONL transcript file entry types.
package transcript

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nahjlib/assistant/pkg/assist"
)

const currentVersion = 1

// EntryType identifies the kind of JSONL line.
type EntryType string

const (
	EntryTypeTranscript EntryType = "transcript"
	EntryTypePrompt     EntryType = "prompt"
	EntryTypeTurn       EntryType = "turn"
)

// ---------------------------------------------------------------------------
// Header (first line of every transcript file)
// ---------------------------------------------------------------------------

// Header is the first line written to every transcript file.
type Header struct {
	Type      EntryType `json:"type"`      // "transcript"
	ID        string    `json:"id"`        // transcript UUID
	Version   int       `json:"version"`   // format version
	Timestamp string    `json:"timestamp"` // ISO 8601
}

// ---------------------------------------------------------------------------
// PromptEntry
// ---------------------------------------------------------------------------

// PromptEntry records one user prompt.
type PromptEntry struct {
	Type      EntryType `json:"type"` // "prompt"
	ID        string    `json:"id"`   // entry ID (8 hex chars)
	ParentID  string    `json:"parent_id"`
	Timestamp string    `json:"timestamp"`
	Text      string    `json:"text"`
}

func newPromptEntry(parentID, text string) PromptEntry {
	return PromptEntry{
		Type:      EntryTypePrompt,
		ID:        newEntryID(),
		ParentID:  parentID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Text:      text,
	}
}

// ---------------------------------------------------------------------------
// TurnEntry
// ---------------------------------------------------------------------------

// TurnEntry records the final turn the assistant produced for a prompt,
// together with the backend that served it.
type TurnEntry struct {
	Type      EntryType   `json:"type"` // "turn"
	ID        string      `json:"id"`
	ParentID  string      `json:"parent_id"`
	Timestamp string      `json:"timestamp"`
	Provider  string      `json:"provider"`
	Turn      assist.Turn `json:"turn"`
}

func newTurnEntry(parentID, provider string, turn assist.Turn) TurnEntry {
	return TurnEntry{
		Type:      EntryTypeTurn,
		ID:        newEntryID(),
		ParentID:  parentID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Provider:  provider,
		Turn:      turn,
	}
}

// ---------------------------------------------------------------------------
// Generic line parser
// ---------------------------------------------------------------------------

// ParseLine peeks at the "type" field of a JSONL line and returns the
// strongly-typed entry.
func ParseLine(line []byte) (EntryType, json.RawMessage, error) {
	var probe struct {
		Type EntryType `json:"type"`
	}
	if err := json.Unmarshal(line, &probe); err != nil {
		return "", nil, fmt.Errorf("parse entry type: %w", err)
	}
	return probe.Type, json.RawMessage(line), nil
}

// newEntryID generates an 8-character hex entry ID from a random UUID.
func newEntryID() string {
	return uuid.New().String()[:8]
}
