package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	EnvFileEnvVar     = "SCREEN_PILOT_ENV"
	APIKeyEnvVar      = "VLM_API_KEY"
	APIKeyPathEnvVar  = "VLM_API_KEY_FILE"
	DefaultScenario   = "chess"
	DefaultKillHotkey = "Ctrl+Alt+Q"

	defaultAnnotationTimeoutSec = 30
	defaultModelTimeoutSec      = 120
	defaultNativeTimeoutSec     = 30
)

type LoadOptions struct {
	APIKeyPathOverride string
	ScenarioOverride   string
	RegionOverride     string
}

type Config struct {
	Scenario          string
	ScenarioFile      string
	CaptureRegion     string
	APIKey            string
	APIKeyPath        string
	EnableFileLogging bool
	EnableTray        bool
	KillHotkey        string
	AnnotationTimeout time.Duration
	ModelTimeout      time.Duration
	NativeCallTimeout time.Duration
}

func Load() (*Config, error) {
	return LoadWithOptions(LoadOptions{})
}

func LoadWithOptions(opts LoadOptions) (*Config, error) {
	// Sources in priority order:
	// 1) .env in the executable directory
	// 2) otherwise the file named by SCREEN_PILOT_ENV
	// Values already in the process environment are not overwritten, and
	// LoadOptions win over both.
	envPath := resolveEnvPath()
	dotenvValues := readDotenvValues(envPath)
	if envPath != "" {
		_ = godotenv.Load(envPath)
	}

	apiKeyPath := resolveAPIKeyPath(opts, dotenvValues)

	cfg := &Config{
		Scenario:          firstNonEmpty(opts.ScenarioOverride, os.Getenv("SCENARIO"), DefaultScenario),
		ScenarioFile:      strings.TrimSpace(os.Getenv("SCENARIO_FILE")),
		CaptureRegion:     firstNonEmpty(opts.RegionOverride, os.Getenv("CAPTURE_REGION")),
		APIKey:            resolveAPIKey(apiKeyPath),
		APIKeyPath:        apiKeyPath,
		EnableFileLogging: strings.ToLower(os.Getenv("ENABLE_FILE_LOGGING")) == "true",
		EnableTray:        getBool("ENABLE_TRAY", true),
		KillHotkey:        getEnvWithDefault("KILL_HOTKEY", DefaultKillHotkey),
		AnnotationTimeout: getSeconds("ANNOTATION_TIMEOUT_SEC", defaultAnnotationTimeoutSec),
		ModelTimeout:      getSeconds("MODEL_TIMEOUT_SEC", defaultModelTimeoutSec),
		NativeCallTimeout: getSeconds("NATIVE_CALL_TIMEOUT_SEC", defaultNativeTimeoutSec),
	}

	return cfg, nil
}

func resolveEnvPath() string {
	execPath, err := os.Executable()
	if err != nil {
		return ""
	}

	execDir := filepath.Dir(execPath)
	exeEnv := filepath.Join(execDir, ".env")
	if _, err := os.Stat(exeEnv); err == nil {
		return exeEnv
	}

	if alt := os.Getenv(EnvFileEnvVar); alt != "" {
		if _, err := os.Stat(alt); err == nil {
			return alt
		}
	}

	return ""
}

func readDotenvValues(envPath string) map[string]string {
	if envPath == "" {
		return map[string]string{}
	}

	values, err := godotenv.Read(envPath)
	if err != nil {
		return map[string]string{}
	}

	return values
}

func resolveAPIKeyPath(opts LoadOptions, dotenvValues map[string]string) string {
	keyPath := ""

	if envPath := strings.TrimSpace(os.Getenv(APIKeyPathEnvVar)); envPath != "" {
		keyPath = envPath
	}

	if dotenvPath := strings.TrimSpace(dotenvValues[APIKeyPathEnvVar]); dotenvPath != "" {
		keyPath = dotenvPath
	}

	if overridePath := strings.TrimSpace(opts.APIKeyPathOverride); overridePath != "" {
		keyPath = overridePath
	}

	return keyPath
}

// resolveAPIKey prefers the key file. Local model servers need no key, so
// an empty result is not an error.
func resolveAPIKey(keyPath string) string {
	if keyPath != "" {
		if data, err := os.ReadFile(keyPath); err == nil {
			if fileKey := strings.TrimSpace(string(data)); fileKey != "" {
				return fileKey
			}
		}
	}

	return strings.TrimSpace(os.Getenv(APIKeyEnvVar))
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func getBool(key string, defaultValue bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	}
	return defaultValue
}

// getSeconds reads a positive whole number of seconds; anything else falls
// back to the default.
func getSeconds(key string, defaultSec int) time.Duration {
	sec := defaultSec
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 0 {
			sec = n
		}
	}
	return time.Duration(sec) * time.Second
}
