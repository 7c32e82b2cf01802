package bot

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseConfig_OverlaysDefaults(t *testing.T) {
	yaml := []byte(`
wake_word: ">>"
intent:
  threshold: 0.8
  keywords: ["weather"]
`)
	cfg, err := ParseConfig(yaml)
	if err != nil {
		t.Fatalf("ParseConfig() error = %v", err)
	}

	if cfg.WakeWord != ">>" {
		t.Errorf("WakeWord = %q, want >>", cfg.WakeWord)
	}
	if cfg.Intent.Threshold != 0.8 {
		t.Errorf("Threshold = %v, want 0.8", cfg.Intent.Threshold)
	}
	if len(cfg.Intent.Keywords) != 1 || cfg.Intent.Keywords[0] != "weather" {
		t.Errorf("Keywords = %v, want [weather]", cfg.Intent.Keywords)
	}

	// Untouched values keep the defaults.
	if cfg.Model != "gpt-4o-mini" {
		t.Errorf("Model = %q, want default gpt-4o-mini", cfg.Model)
	}
	if cfg.Intent.CacheTTLSeconds != 300 {
		t.Errorf("CacheTTLSeconds = %d, want default 300", cfg.Intent.CacheTTLSeconds)
	}
}

func TestParseConfig_Invalid(t *testing.T) {
	if _, err := ParseConfig([]byte("wake_word: [broken")); err == nil {
		t.Error("ParseConfig() error = nil for invalid YAML, want error")
	}
}

func TestLoadConfigFromFile_ExpandsEnv(t *testing.T) {
	t.Setenv("TEST_C2L_KEY", "sk-test-123")

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte("api:\n  api_key: ${TEST_C2L_KEY}\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := LoadConfigFromFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFromFile() error = %v", err)
	}
	if cfg.API.APIKey != "sk-test-123" {
		t.Errorf("APIKey = %q, want sk-test-123", cfg.API.APIKey)
	}
}

func TestLoadConfigFromFile_KeepsUnsetPlaceholder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte("api:\n  api_key: ${C2L_DEFINITELY_UNSET}\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := LoadConfigFromFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFromFile() error = %v", err)
	}
	if cfg.API.APIKey != "${C2L_DEFINITELY_UNSET}" {
		t.Errorf("APIKey = %q, want unresolved placeholder", cfg.API.APIKey)
	}
}

func TestSaveConfigToFile_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := DefaultConfig()
	cfg.WakeWord = "!"
	cfg.Intent.Threshold = 0.7

	if err := SaveConfigToFile(cfg, path); err != nil {
		t.Fatalf("SaveConfigToFile() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("file mode = %04o, want 0600", perm)
	}

	loaded, err := LoadConfigFromFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFromFile() error = %v", err)
	}
	if loaded.WakeWord != "!" {
		t.Errorf("WakeWord = %q, want !", loaded.WakeWord)
	}
	if loaded.Intent.Threshold != 0.7 {
		t.Errorf("Threshold = %v, want 0.7", loaded.Intent.Threshold)
	}
}

func TestIsEnvReference(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"${OPENAI_API_KEY}", true},
		{"$OPENAI_API_KEY", true},
		{"sk-real-key", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := IsEnvReference(tc.in); got != tc.want {
			t.Errorf("IsEnvReference(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestIntentConfig_DurationAccessors(t *testing.T) {
	cfg := IntentConfig{CacheTTLSeconds: 300, ToolTimeoutSeconds: 60}
	if got := cfg.CacheTTL().Seconds(); got != 300 {
		t.Errorf("CacheTTL() = %vs, want 300s", got)
	}
	if got := cfg.ToolTimeout().Seconds(); got != 60 {
		t.Errorf("ToolTimeout() = %vs, want 60s", got)
	}
}
