package runtimeinit

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"screen-pilot/src/config"
	"screen-pilot/src/scenario"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		config.EnvFileEnvVar, config.APIKeyEnvVar, config.APIKeyPathEnvVar,
		"SCENARIO", "SCENARIO_FILE", "CAPTURE_REGION", "ENABLE_FILE_LOGGING",
	} {
		t.Setenv(k, "")
	}
}

func TestBootstrapDefaults(t *testing.T) {
	clearEnv(t)

	var logging *bool
	rt, err := Bootstrap(Options{SetupLogging: func(enabled bool) { logging = &enabled }})
	if err != nil {
		t.Fatalf("Bootstrap() error: %v", err)
	}
	if logging == nil || *logging {
		t.Errorf("SetupLogging should be called with false")
	}
	if rt.Scenario.Name != config.DefaultScenario {
		t.Errorf("scenario = %q, want %q", rt.Scenario.Name, config.DefaultScenario)
	}
	if rt.Model == nil {
		t.Error("model client not built")
	}
}

func TestBootstrapOverrides(t *testing.T) {
	clearEnv(t)

	dir := t.TempDir()
	overrides := filepath.Join(dir, "toolcheck.yaml")
	if err := os.WriteFile(overrides, []byte("server_port: 4321\nvlm_model_name: other-model\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SCENARIO_FILE", overrides)
	t.Setenv("CAPTURE_REGION", "0,0,500,500")

	rt, err := Bootstrap(Options{LoadOptions: config.LoadOptions{ScenarioOverride: "toolcheck", RegionOverride: "100,100,900,900"}})
	if err != nil {
		t.Fatalf("Bootstrap() error: %v", err)
	}
	cfg := rt.Scenario.Config
	if cfg.ServerPort != 4321 || cfg.VLMModelName != "other-model" {
		t.Errorf("overrides not applied: port=%d model=%q", cfg.ServerPort, cfg.VLMModelName)
	}
	if cfg.CaptureRegion != "100,100,900,900" {
		t.Errorf("region = %q, flag should win over env", cfg.CaptureRegion)
	}

	again, err := scenario.Lookup("toolcheck")
	if err != nil {
		t.Fatal(err)
	}
	if again.Config.ServerPort == 4321 {
		t.Error("overrides leaked into the registry")
	}
}

func TestBootstrapErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		is   error
	}{
		{name: "unknown scenario", env: map[string]string{"SCENARIO": "nope"}, is: scenario.ErrUnknownScenario},
		{name: "bad region", env: map[string]string{"CAPTURE_REGION": "1,2,3"}},
		{name: "missing overrides file", env: map[string]string{"SCENARIO_FILE": "/nonexistent/overrides.yaml"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			rt, err := Bootstrap(Options{})
			if err == nil {
				t.Fatalf("Bootstrap() = %+v, want error", rt)
			}
			if tt.is != nil && !errors.Is(err, tt.is) {
				t.Errorf("error %v is not %v", err, tt.is)
			}
		})
	}
}
