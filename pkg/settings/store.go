// Package settings persists assistant preferences in a small SQLite
// key/value table. The store implements assist.SettingsSource, so a
// dispatcher reads the selected provider, cloud model, and credential
// straight from disk and picks up changes between prompts.
package settings

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/nahjlib/assistant/pkg/assist"
)

// Well-known keys.
const (
	KeyProvider   = "provider"
	KeyModel      = "model"
	KeyCredential = "api_credential"
)

const schema = `
CREATE TABLE IF NOT EXISTS settings (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// Store is a SQLite-backed settings store. Safe for concurrent use.
type Store struct {
	mu sync.Mutex
	db *sql.DB
}

// Open creates or opens the settings database at path, creating parent
// directories as needed.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("settings: mkdir %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("settings: open %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("settings: create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// ---------------------------------------------------------------------------
// Raw key/value access
// ---------------------------------------------------------------------------

// Get returns the value for key, or "" when the key is not set.
func (s *Store) Get(key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var value string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("settings: get %s: %w", key, err)
	}
	return value, nil
}

// Set stores value under key, replacing any previous value.
func (s *Store) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("settings: set %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *Store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(`DELETE FROM settings WHERE key = ?`, key); err != nil {
		return fmt.Errorf("settings: delete %s: %w", key, err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// assist.SettingsSource
// ---------------------------------------------------------------------------

// Provider returns the selected provider, defaulting to on-device when the
// key is unset or holds an unrecognized value.
func (s *Store) Provider() (assist.Provider, error) {
	raw, err := s.Get(KeyProvider)
	if err != nil {
		return "", err
	}
	if raw == "" {
		return assist.ProviderOnDevice, nil
	}
	p, err := assist.ParseProvider(raw)
	if err != nil {
		return assist.ProviderOnDevice, nil
	}
	return p, nil
}

// SetProvider validates and stores the provider selection.
func (s *Store) SetProvider(p assist.Provider) error {
	if _, err := assist.ParseProvider(string(p)); err != nil {
		return err
	}
	return s.Set(KeyProvider, string(p))
}

// Model returns the selected cloud model, defaulting to the catalog default.
func (s *Store) Model() (string, error) {
	raw, err := s.Get(KeyModel)
	if err != nil {
		return "", err
	}
	if raw == "" || !assist.IsAllowedCloudModel(raw) {
		return assist.DefaultCloudModel(), nil
	}
	return raw, nil
}

// SetModel stores the cloud model selection. The model must be in the
// supported catalog.
func (s *Store) SetModel(id string) error {
	if !assist.IsAllowedCloudModel(id) {
		return fmt.Errorf("settings: unsupported model %q", id)
	}
	return s.Set(KeyModel, id)
}

// Credential returns the stored API credential, or "" when none is set.
func (s *Store) Credential() (string, error) {
	return s.Get(KeyCredential)
}

// SetCredential stores the API credential. An empty value clears it.
func (s *Store) SetCredential(value string) error {
	if value == "" {
		return s.Delete(KeyCredential)
	}
	return s.Set(KeyCredential, value)
}

// ---------------------------------------------------------------------------
// Default location
// ---------------------------------------------------------------------------

// DefaultPath returns the default settings database location, honoring
// XDG_CONFIG_HOME and falling back to ~/.config.
func DefaultPath() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("settings: resolve home dir: %w", err)
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "assistant", "settings.db"), nil
}
