package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	t.Setenv("VLM_API_KEY", "test_api_key")
	t.Setenv("SCENARIO", "toolcheck")
	t.Setenv("ENABLE_FILE_LOGGING", "true")
	t.Setenv("KILL_HOTKEY", "Ctrl+Shift+T")
	t.Setenv("ANNOTATION_TIMEOUT_SEC", "12")
	t.Setenv("ENABLE_TRAY", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Failed to load configuration: %v", err)
	}

	if cfg.APIKey != "test_api_key" {
		t.Errorf("Expected APIKey to be 'test_api_key', got '%s'", cfg.APIKey)
	}
	if cfg.Scenario != "toolcheck" {
		t.Errorf("Expected Scenario to be 'toolcheck', got '%s'", cfg.Scenario)
	}
	if !cfg.EnableFileLogging {
		t.Errorf("Expected EnableFileLogging to be true, got %v", cfg.EnableFileLogging)
	}
	if cfg.KillHotkey != "Ctrl+Shift+T" {
		t.Errorf("Expected KillHotkey to be 'Ctrl+Shift+T', got '%s'", cfg.KillHotkey)
	}
	if cfg.AnnotationTimeout != 12*time.Second {
		t.Errorf("Expected AnnotationTimeout 12s, got %v", cfg.AnnotationTimeout)
	}
	if cfg.EnableTray {
		t.Errorf("Expected EnableTray to be false")
	}
}

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"SCENARIO", "KILL_HOTKEY", "CAPTURE_REGION", "ENABLE_TRAY", "VLM_API_KEY", APIKeyPathEnvVar} {
		t.Setenv(key, "")
	}
	t.Setenv("MODEL_TIMEOUT_SEC", "-5")
	t.Setenv("NATIVE_CALL_TIMEOUT_SEC", "soon")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Failed to load configuration: %v", err)
	}

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"scenario", cfg.Scenario, DefaultScenario},
		{"hotkey", cfg.KillHotkey, DefaultKillHotkey},
		{"region", cfg.CaptureRegion, ""},
		{"tray", cfg.EnableTray, true},
		{"api key", cfg.APIKey, ""},
		{"model timeout", cfg.ModelTimeout, 120 * time.Second},
		{"native timeout", cfg.NativeCallTimeout, 30 * time.Second},
		{"annotation timeout", cfg.AnnotationTimeout, 30 * time.Second},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s: got %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestLoadOptionsOverride(t *testing.T) {
	keyFile := filepath.Join(t.TempDir(), "key")
	if err := os.WriteFile(keyFile, []byte("  file_key\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("VLM_API_KEY", "env_key")
	t.Setenv("SCENARIO", "toolcheck")
	t.Setenv("CAPTURE_REGION", "0,0,500,500")

	cfg, err := LoadWithOptions(LoadOptions{
		APIKeyPathOverride: keyFile,
		ScenarioOverride:   "validator",
		RegionOverride:     "100,100,900,900",
	})
	if err != nil {
		t.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.APIKey != "file_key" {
		t.Errorf("Expected key from file, got '%s'", cfg.APIKey)
	}
	if cfg.APIKeyPath != keyFile {
		t.Errorf("Expected APIKeyPath %s, got %s", keyFile, cfg.APIKeyPath)
	}
	if cfg.Scenario != "validator" {
		t.Errorf("Expected scenario override, got '%s'", cfg.Scenario)
	}
	if cfg.CaptureRegion != "100,100,900,900" {
		t.Errorf("Expected region override, got '%s'", cfg.CaptureRegion)
	}
}

func TestMissingKeyFileFallsBackToEnv(t *testing.T) {
	t.Setenv("VLM_API_KEY", "env_key")
	cfg, err := LoadWithOptions(LoadOptions{APIKeyPathOverride: filepath.Join(t.TempDir(), "absent")})
	if err != nil {
		t.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.APIKey != "env_key" {
		t.Errorf("Expected env key, got '%s'", cfg.APIKey)
	}
}
