package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeTempConfig(t, `
version: 1
llm:
  api_key: test-key
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Fatalf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.LLM.APIKey != "test-key" {
		t.Fatalf("expected api key to survive decode, got %q", cfg.LLM.APIKey)
	}
	if cfg.LLM.Model != "gpt-4o-mini" {
		t.Fatalf("expected default model, got %q", cfg.LLM.Model)
	}
	if cfg.LLM.ContextTrim.PerCallChars != 50000 {
		t.Fatalf("expected default per-call trim, got %d", cfg.LLM.ContextTrim.PerCallChars)
	}
}

func TestLoadExpandsEnv(t *testing.T) {
	os.Setenv("RELAYCORE_TEST_KEY", "from-env")
	defer os.Unsetenv("RELAYCORE_TEST_KEY")

	path := writeTempConfig(t, `
version: 1
llm:
  api_key: ${RELAYCORE_TEST_KEY}
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LLM.APIKey != "from-env" {
		t.Fatalf("expected env expansion, got %q", cfg.LLM.APIKey)
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	path := writeTempConfig(t, `
version: 1
bogus_section:
  foo: bar
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected unknown field to be rejected")
	}
}

func TestLoadRejectsNewerVersion(t *testing.T) {
	path := writeTempConfig(t, `version: 999`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected future version to be rejected")
	}
}
