package assist

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
)

// FileConfig is the YAML structure of the assistant config file.
type FileConfig struct {
	// Provider: "on-device" | "cloud" | "stub". Empty keeps the persisted
	// selection (or the on-device default).
	Provider string `yaml:"provider"`

	// Model is the cloud model identifier. Must be in the allow-list.
	Model string `yaml:"model"`

	// BaseURL overrides the default cloud chat-completions endpoint.
	BaseURL string `yaml:"base_url"`

	// APIKey can be a literal credential or "${ENV_VAR}" to read from the
	// environment. When set it is written into the settings store at startup.
	APIKey string `yaml:"api_key"`

	// RuntimeURL is the local runtime endpoint (default http://127.0.0.1:11434).
	RuntimeURL string `yaml:"runtime_url"`

	// RuntimeModel is the local model name served by the runtime.
	RuntimeModel string `yaml:"runtime_model"`

	// TimeoutSeconds bounds one cloud round trip (0 = default).
	TimeoutSeconds int `yaml:"timeout_seconds"`

	// SettingsPath overrides the default settings database location.
	SettingsPath string `yaml:"settings_path"`

	// TranscriptsDir overrides the default transcripts directory.
	TranscriptsDir string `yaml:"transcripts_dir"`

	// Stub configures the deterministic offline backend.
	Stub StubFileConfig `yaml:"stub"`
}

// StubFileConfig holds the stub backend's fixed delays in milliseconds.
// Zero keeps the defaults.
type StubFileConfig struct {
	ThinkDelayMS int `yaml:"think_delay_ms"`
	ReplyDelayMS int `yaml:"reply_delay_ms"`
}

// ThinkDelay returns the configured delay before the "Thinking…" turn.
func (c StubFileConfig) ThinkDelay() time.Duration {
	return time.Duration(c.ThinkDelayMS) * time.Millisecond
}

// ReplyDelay returns the configured delay before the classified reply.
func (c StubFileConfig) ReplyDelay() time.Duration {
	return time.Duration(c.ReplyDelayMS) * time.Millisecond
}

// LoadFileConfig reads and parses a YAML config file, expanding ${ENV_VAR}
// references in string values.
func LoadFileConfig(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	// Expand environment variables in the raw YAML before parsing.
	expanded := os.ExpandEnv(string(data))

	var cfg FileConfig
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if err := validateFileConfig(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validateFileConfig(cfg *FileConfig) error {
	cfg.Provider = strings.ToLower(strings.TrimSpace(cfg.Provider))
	if cfg.Provider != "" {
		if _, err := ParseProvider(cfg.Provider); err != nil {
			return fmt.Errorf("config: %w", err)
		}
	}
	if cfg.Model != "" && !IsAllowedCloudModel(cfg.Model) {
		return fmt.Errorf("config: model %q is not in the allow-list", cfg.Model)
	}
	return nil
}
