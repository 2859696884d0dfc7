package assist

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "assistant.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadFileConfig(t *testing.T) {
	path := writeConfig(t, `
provider: cloud
model: gpt-4o
base_url: https://proxy.example.com/v1
timeout_seconds: 30
stub:
  think_delay_ms: 10
  reply_delay_ms: 20
`)

	cfg, err := LoadFileConfig(path)
	if err != nil {
		t.Fatalf("LoadFileConfig: %v", err)
	}
	if cfg.Provider != "cloud" || cfg.Model != "gpt-4o" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.BaseURL != "https://proxy.example.com/v1" {
		t.Errorf("base_url = %q", cfg.BaseURL)
	}
	if cfg.TimeoutSeconds != 30 {
		t.Errorf("timeout_seconds = %d", cfg.TimeoutSeconds)
	}
	if cfg.Stub.ThinkDelay() != 10*time.Millisecond || cfg.Stub.ReplyDelay() != 20*time.Millisecond {
		t.Errorf("stub delays = %v/%v", cfg.Stub.ThinkDelay(), cfg.Stub.ReplyDelay())
	}
}

func TestLoadFileConfigExpandsEnv(t *testing.T) {
	t.Setenv("TEST_ASSISTANT_KEY", "sk-from-env")
	path := writeConfig(t, "api_key: ${TEST_ASSISTANT_KEY}\n")

	cfg, err := LoadFileConfig(path)
	if err != nil {
		t.Fatalf("LoadFileConfig: %v", err)
	}
	if cfg.APIKey != "sk-from-env" {
		t.Errorf("api_key = %q, want sk-from-env", cfg.APIKey)
	}
}

func TestLoadFileConfigRejectsUnknownProvider(t *testing.T) {
	path := writeConfig(t, "provider: telepathy\n")
	if _, err := LoadFileConfig(path); err == nil {
		t.Fatal("LoadFileConfig accepted an unknown provider")
	}
}

func TestLoadFileConfigRejectsUnknownModel(t *testing.T) {
	path := writeConfig(t, "model: gpt-99\n")
	if _, err := LoadFileConfig(path); err == nil {
		t.Fatal("LoadFileConfig accepted an unknown model")
	}
}

func TestLoadFileConfigMissingFile(t *testing.T) {
	if _, err := LoadFileConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("LoadFileConfig succeeded on a missing file")
	}
}
