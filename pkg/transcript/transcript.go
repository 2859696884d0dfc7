// Package transcript persists assistant conversations as JSONL files.
//
// Each transcript is one JSONL file:
//   - Line 1: Header (type=transcript, id, version, timestamp)
//   - Lines 2+: PromptEntry or TurnEntry (one per line)
//
// Entry IDs are 8-character hex strings; the parent_id chain preserves the
// prompt/turn ordering. Only the final turn of each exchange is recorded,
// not the intermediate snapshots.
//
// Usage:
//
//	tr, _ := transcript.Create("~/.config/assistant/transcripts")
//	tr.AppendPrompt("open sermons please")
//	tr.AppendTurn("stub", finalTurn)
//
//	// Later: reload
//	tr, _ = transcript.Load(dir, tr.ID()[:8])
//	entries, _ := tr.Entries()
package transcript

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nahjlib/assistant/pkg/assist"
)

// Transcript is an open transcript file. Writes are append-only; the mutex
// guards against accidental concurrent appends.
type Transcript struct {
	mu     sync.Mutex
	f      *os.File
	w      *bufio.Writer
	id     string
	leafID string
	dir    string
}

// ID returns the transcript's UUID.
func (t *Transcript) ID() string { return t.id }

// FilePath returns the absolute path to the transcript's JSONL file.
func (t *Transcript) FilePath() string { return t.f.Name() }

// ---------------------------------------------------------------------------
// Creating and loading transcripts
// ---------------------------------------------------------------------------

// Create opens a new transcript file in dir and writes the header.
func Create(dir string) (*Transcript, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("transcript: mkdir %s: %w", dir, err)
	}

	id := uuid.New().String()
	name := fmt.Sprintf("%s-%s.jsonl",
		time.Now().UTC().Format("20060102-150405"),
		id[:8],
	)
	path := filepath.Join(dir, name)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("transcript: create %s: %w", path, err)
	}

	t := &Transcript{f: f, w: bufio.NewWriter(f), id: id, dir: dir}

	header := Header{
		Type:      EntryTypeTranscript,
		ID:        id,
		Version:   currentVersion,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if err := t.writeLine(header); err != nil {
		f.Close()
		return nil, err
	}

	return t, nil
}

// Load opens an existing transcript by ID prefix (first 8 chars of the UUID),
// reads the existing entries to restore the leaf ID, and returns a transcript
// ready for appending.
func Load(dir, idPrefix string) (*Transcript, error) {
	path, err := findTranscriptFile(dir, idPrefix)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("transcript: read %s: %w", path, err)
	}

	var id, leafID string
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		if line == "" {
			continue
		}
		typ, raw, err := ParseLine([]byte(line))
		if err != nil {
			continue
		}
		switch typ {
		case EntryTypeTranscript:
			var h Header
			if err := json.Unmarshal(raw, &h); err == nil {
				id = h.ID
			}
		case EntryTypePrompt:
			var e PromptEntry
			if err := json.Unmarshal(raw, &e); err == nil {
				leafID = e.ID
			}
		case EntryTypeTurn:
			var e TurnEntry
			if err := json.Unmarshal(raw, &e); err == nil {
				leafID = e.ID
			}
		}
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("transcript: open %s for append: %w", path, err)
	}

	return &Transcript{
		f:      f,
		w:      bufio.NewWriter(f),
		id:     id,
		dir:    dir,
		leafID: leafID,
	}, nil
}

// ---------------------------------------------------------------------------
// Appending entries
// ---------------------------------------------------------------------------

// AppendPrompt appends a PromptEntry and returns the new entry ID.
func (t *Transcript) AppendPrompt(text string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry := newPromptEntry(t.leafID, text)
	if err := t.writeLine(entry); err != nil {
		return "", err
	}
	t.leafID = entry.ID
	return entry.ID, nil
}

// AppendTurn appends a TurnEntry recording the final turn produced by the
// named provider. Returns the new entry ID.
func (t *Transcript) AppendTurn(provider string, turn assist.Turn) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry := newTurnEntry(t.leafID, provider, turn)
	if err := t.writeLine(entry); err != nil {
		return "", err
	}
	t.leafID = entry.ID
	return entry.ID, nil
}

// Close flushes and closes the transcript file.
func (t *Transcript) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.w.Flush(); err != nil {
		return err
	}
	return t.f.Close()
}

// ---------------------------------------------------------------------------
// Reading back
// ---------------------------------------------------------------------------

// Entry is one replayed exchange element: exactly one of Prompt or Turn is
// non-nil.
type Entry struct {
	Prompt *PromptEntry
	Turn   *TurnEntry
}

// Entries reads the transcript file back in write order.
func (t *Transcript) Entries() ([]Entry, error) {
	t.mu.Lock()
	path := t.f.Name()
	t.mu.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("transcript: read %s: %w", path, err)
	}
	return ParseEntries(data)
}

// ParseEntries parses raw transcript JSONL into the ordered entry list.
// Malformed lines are skipped.
func ParseEntries(data []byte) ([]Entry, error) {
	var entries []Entry
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		if line == "" {
			continue
		}
		typ, raw, err := ParseLine([]byte(line))
		if err != nil {
			continue
		}
		switch typ {
		case EntryTypePrompt:
			var e PromptEntry
			if err := json.Unmarshal(raw, &e); err == nil {
				entries = append(entries, Entry{Prompt: &e})
			}
		case EntryTypeTurn:
			var e TurnEntry
			if err := json.Unmarshal(raw, &e); err == nil {
				entries = append(entries, Entry{Turn: &e})
			}
		}
	}
	return entries, nil
}

// ---------------------------------------------------------------------------
// Listing
// ---------------------------------------------------------------------------

// Info summarises one transcript file on disk.
type Info struct {
	ID        string
	Path      string
	Timestamp string
	Prompts   int
}

// List returns the transcripts in dir, newest first. A missing directory is
// an empty list, not an error.
func List(dir string) ([]Info, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("transcript: read dir %s: %w", dir, err)
	}

	var infos []Info
	for _, fe := range files {
		if fe.IsDir() || !strings.HasSuffix(fe.Name(), ".jsonl") {
			continue
		}
		path := filepath.Join(dir, fe.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}

		info := Info{Path: path}
		for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
			if line == "" {
				continue
			}
			typ, raw, err := ParseLine([]byte(line))
			if err != nil {
				continue
			}
			switch typ {
			case EntryTypeTranscript:
				var h Header
				if json.Unmarshal(raw, &h) == nil {
					info.ID = h.ID
					info.Timestamp = h.Timestamp
				}
			case EntryTypePrompt:
				info.Prompts++
			}
		}
		if info.ID != "" {
			infos = append(infos, info)
		}
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Timestamp > infos[j].Timestamp
	})
	return infos, nil
}

// ---------------------------------------------------------------------------
// Internal helpers
// ---------------------------------------------------------------------------

func (t *Transcript) writeLine(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("transcript: marshal entry: %w", err)
	}
	if _, err := t.w.Write(data); err != nil {
		return fmt.Errorf("transcript: write: %w", err)
	}
	if err := t.w.WriteByte('\n'); err != nil {
		return fmt.Errorf("transcript: write newline: %w", err)
	}
	return t.w.Flush()
}

// findTranscriptFile locates a transcript file matching the given ID prefix.
func findTranscriptFile(dir, idPrefix string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("transcript: read dir %s: %w", dir, err)
	}
	for _, e := range entries {
		if strings.Contains(e.Name(), idPrefix) && strings.HasSuffix(e.Name(), ".jsonl") {
			return filepath.Join(dir, e.Name()), nil
		}
	}
	return "", fmt.Errorf("transcript: no transcript found matching %q in %s", idPrefix, dir)
}
