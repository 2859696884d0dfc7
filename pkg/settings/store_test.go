package settings

import (
	"path/filepath"
	"testing"

	"github.com/nahjlib/assistant/pkg/assist"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "settings.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestDefaults(t *testing.T) {
	s := openStore(t)

	p, err := s.Provider()
	if err != nil {
		t.Fatalf("Provider: %v", err)
	}
	if p != assist.ProviderOnDevice {
		t.Errorf("default provider = %q, want on-device", p)
	}

	m, err := s.Model()
	if err != nil {
		t.Fatalf("Model: %v", err)
	}
	if m != assist.DefaultCloudModel() {
		t.Errorf("default model = %q, want %q", m, assist.DefaultCloudModel())
	}

	c, err := s.Credential()
	if err != nil {
		t.Fatalf("Credential: %v", err)
	}
	if c != "" {
		t.Errorf("default credential = %q, want empty", c)
	}
}

func TestSetAndGet(t *testing.T) {
	s := openStore(t)

	if err := s.SetProvider(assist.ProviderCloud); err != nil {
		t.Fatalf("SetProvider: %v", err)
	}
	if err := s.SetModel("gpt-4o"); err != nil {
		t.Fatalf("SetModel: %v", err)
	}
	if err := s.SetCredential("sk-test"); err != nil {
		t.Fatalf("SetCredential: %v", err)
	}

	if p, _ := s.Provider(); p != assist.ProviderCloud {
		t.Errorf("provider = %q", p)
	}
	if m, _ := s.Model(); m != "gpt-4o" {
		t.Errorf("model = %q", m)
	}
	if c, _ := s.Credential(); c != "sk-test" {
		t.Errorf("credential = %q", c)
	}

	// Overwrite replaces, not appends.
	if err := s.SetModel("gpt-4o-mini"); err != nil {
		t.Fatalf("SetModel: %v", err)
	}
	if m, _ := s.Model(); m != "gpt-4o-mini" {
		t.Errorf("model after overwrite = %q", m)
	}
}

func TestSetModelRejectsUnknown(t *testing.T) {
	s := openStore(t)
	if err := s.SetModel("gpt-99"); err == nil {
		t.Fatal("SetModel accepted an unsupported model")
	}
}

func TestSetProviderRejectsUnknown(t *testing.T) {
	s := openStore(t)
	if err := s.SetProvider(assist.Provider("telepathy")); err == nil {
		t.Fatal("SetProvider accepted an unknown provider")
	}
}

func TestClearCredential(t *testing.T) {
	s := openStore(t)
	if err := s.SetCredential("sk-test"); err != nil {
		t.Fatalf("SetCredential: %v", err)
	}
	if err := s.SetCredential(""); err != nil {
		t.Fatalf("clear credential: %v", err)
	}
	if c, _ := s.Credential(); c != "" {
		t.Errorf("credential after clear = %q", c)
	}
}

func TestPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.SetProvider(assist.ProviderStub); err != nil {
		t.Fatalf("SetProvider: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	if p, _ := s2.Provider(); p != assist.ProviderStub {
		t.Errorf("provider after reopen = %q, want stub", p)
	}
}

func TestUnknownStoredValuesFallBack(t *testing.T) {
	s := openStore(t)

	// Values written by a newer or corrupted build must not break reads.
	if err := s.Set(KeyProvider, "telepathy"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Set(KeyModel, "gpt-99"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	if p, _ := s.Provider(); p != assist.ProviderOnDevice {
		t.Errorf("provider = %q, want on-device fallback", p)
	}
	if m, _ := s.Model(); m != assist.DefaultCloudModel() {
		t.Errorf("model = %q, want default fallback", m)
	}
}
