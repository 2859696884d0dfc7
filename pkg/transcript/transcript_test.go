package transcript

import (
	"os"
	"strings"
	"testing"

	"github.com/nahjlib/assistant/pkg/assist"
)

func TestCreateWritesHeader(t *testing.T) {
	dir := t.TempDir()
	tr, err := Create(dir)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer tr.Close()

	data, err := os.ReadFile(tr.FilePath())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1", len(lines))
	}
	typ, _, err := ParseLine([]byte(lines[0]))
	if err != nil || typ != EntryTypeTranscript {
		t.Errorf("first line type = %q (%v), want transcript", typ, err)
	}
}

func TestAppendAndReadBack(t *testing.T) {
	dir := t.TempDir()
	tr, err := Create(dir)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer tr.Close()

	promptID, err := tr.AppendPrompt("open sermons please")
	if err != nil {
		t.Fatalf("AppendPrompt: %v", err)
	}
	if len(promptID) != 8 {
		t.Errorf("prompt entry ID = %q, want 8 hex chars", promptID)
	}

	turn := assist.Turn{
		Reply:  "Opening Sermons…",
		Action: &assist.Action{Command: assist.CommandOpenSermons},
	}
	turnID, err := tr.AppendTurn("stub", turn)
	if err != nil {
		t.Fatalf("AppendTurn: %v", err)
	}

	entries, err := tr.Entries()
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}

	p := entries[0].Prompt
	if p == nil || p.Text != "open sermons please" {
		t.Errorf("entry[0] = %+v, want prompt", entries[0])
	}
	tu := entries[1].Turn
	if tu == nil || tu.Provider != "stub" {
		t.Fatalf("entry[1] = %+v, want turn from stub", entries[1])
	}
	if tu.Turn.Reply != "Opening Sermons…" {
		t.Errorf("turn reply = %q", tu.Turn.Reply)
	}
	if tu.Turn.Action == nil || tu.Turn.Action.Command != assist.CommandOpenSermons {
		t.Errorf("turn action = %+v", tu.Turn.Action)
	}
	if tu.ParentID != promptID || tu.ID != turnID {
		t.Errorf("entry chain broken: %+v", tu)
	}
}

func TestLoadResumesChain(t *testing.T) {
	dir := t.TempDir()
	tr, err := Create(dir)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	id := tr.ID()
	if _, err := tr.AppendPrompt("first"); err != nil {
		t.Fatalf("AppendPrompt: %v", err)
	}
	lastID, err := tr.AppendTurn("stub", assist.Turn{Reply: "ok"})
	if err != nil {
		t.Fatalf("AppendTurn: %v", err)
	}
	tr.Close()

	reopened, err := Load(dir, id[:8])
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	defer reopened.Close()

	if reopened.ID() != id {
		t.Errorf("reopened ID = %q, want %q", reopened.ID(), id)
	}

	promptID, err := reopened.AppendPrompt("second")
	if err != nil {
		t.Fatalf("AppendPrompt after reload: %v", err)
	}

	entries, err := reopened.Entries()
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}
	last := entries[2].Prompt
	if last == nil || last.ID != promptID {
		t.Fatalf("entry[2] = %+v", entries[2])
	}
	// The new entry chains off the last pre-reload entry.
	if last.ParentID != lastID {
		t.Errorf("parent = %q, want %q", last.ParentID, lastID)
	}
}

func TestLoadMissing(t *testing.T) {
	if _, err := Load(t.TempDir(), "deadbeef"); err == nil {
		t.Fatal("Load succeeded for a missing transcript")
	}
}

func TestParseEntriesSkipsMalformedLines(t *testing.T) {
	data := []byte(strings.Join([]string{
		`{"type": "transcript", "id": "x", "version": 1}`,
		`not json at all`,
		`{"type": "prompt", "id": "aaaaaaaa", "text": "hello"}`,
		`{"type": "mystery", "id": "bbbbbbbb"}`,
	}, "\n"))

	entries, err := ParseEntries(data)
	if err != nil {
		t.Fatalf("ParseEntries: %v", err)
	}
	if len(entries) != 1 || entries[0].Prompt == nil || entries[0].Prompt.Text != "hello" {
		t.Errorf("entries = %+v, want single prompt", entries)
	}
}

func TestList(t *testing.T) {
	dir := t.TempDir()

	first, err := Create(dir)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := first.AppendPrompt("one"); err != nil {
		t.Fatalf("AppendPrompt: %v", err)
	}
	if _, err := first.AppendPrompt("two"); err != nil {
		t.Fatalf("AppendPrompt: %v", err)
	}
	first.Close()

	second, err := Create(dir)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	second.Close()

	infos, err := List(dir)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("got %d transcripts, want 2", len(infos))
	}
	var counts []int
	for _, info := range infos {
		counts = append(counts, info.Prompts)
	}
	if counts[0]+counts[1] != 2 {
		t.Errorf("prompt counts = %v, want a 2 and a 0", counts)
	}
}

func TestListMissingDir(t *testing.T) {
	infos, err := List("/does/not/exist")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if infos != nil {
		t.Errorf("infos = %v, want nil", infos)
	}
}
