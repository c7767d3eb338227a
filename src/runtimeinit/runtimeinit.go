// Package runtimeinit turns the environment into a validated scenario and
// model client. Both binaries share it so startup errors read the same.
package runtimeinit

import (
	"fmt"
	"log"

	"screen-pilot/src/config"
	"screen-pilot/src/llm"
	"screen-pilot/src/logutil"
	"screen-pilot/src/notification"
	"screen-pilot/src/scenario"
)

type Options struct {
	LoadOptions  config.LoadOptions
	SetupLogging func(bool)
	// ShowBlockingError also reports failures in a message box.
	ShowBlockingError bool
}

// Runtime is everything the engine needs that comes from configuration.
type Runtime struct {
	Config   *config.Config
	Scenario scenario.Definition
	Model    *llm.Client
}

func Bootstrap(opts Options) (*Runtime, error) {
	rt, err := bootstrap(opts)
	if err != nil && opts.ShowBlockingError {
		notification.ReportStartupFailure(err)
	}
	return rt, err
}

func bootstrap(opts Options) (*Runtime, error) {
	cfg, err := config.LoadWithOptions(opts.LoadOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if opts.SetupLogging != nil {
		opts.SetupLogging(cfg.EnableFileLogging)
	}

	def, err := scenario.Lookup(cfg.Scenario)
	if err != nil {
		return nil, err
	}
	if cfg.ScenarioFile != "" {
		if err := def.Config.ApplyYAMLFile(cfg.ScenarioFile); err != nil {
			return nil, err
		}
		log.Printf("Applied scenario overrides from %s", cfg.ScenarioFile)
	}
	if cfg.CaptureRegion != "" {
		def.Config.CaptureRegion = cfg.CaptureRegion
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}

	model, err := llm.New(llm.Config{
		EndpointURL:  def.Config.VLMEndpointURL,
		Model:        def.Config.VLMModelName,
		APIKey:       cfg.APIKey,
		SystemPrompt: def.Config.SystemPrompt,
		Temperature:  float32(def.Config.VLMTemperature),
		TopP:         float32(def.Config.VLMTopP),
		MaxTokens:    def.Config.VLMMaxTokens,
		Timeout:      cfg.ModelTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("model client: %w", err)
	}

	key := "none"
	if cfg.APIKey != "" {
		key = logutil.RedactKey(cfg.APIKey)
	}
	log.Printf("Scenario %s: model %s at %s (key %s), region %q",
		def.Name, def.Config.VLMModelName, def.Config.VLMEndpointURL, key, def.Config.CaptureRegion)

	return &Runtime{Config: cfg, Scenario: def, Model: model}, nil
}
