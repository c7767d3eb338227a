package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"screen-pilot/src/coords"
)

// Config is the bundle a scenario hands the engine.
type Config struct {
	VLMEndpointURL      string  `yaml:"vlm_endpoint_url"`
	VLMModelName        string  `yaml:"vlm_model_name"`
	VLMTemperature      float64 `yaml:"vlm_temperature"`
	VLMTopP             float64 `yaml:"vlm_top_p"`
	VLMMaxTokens        int     `yaml:"vlm_max_tokens"`
	ServerHost          string  `yaml:"server_host"`
	ServerPort          int     `yaml:"server_port"`
	CaptureRegion       string  `yaml:"capture_region"`
	CaptureWidth        int     `yaml:"capture_width"`
	CaptureHeight       int     `yaml:"capture_height"`
	CaptureDelaySeconds float64 `yaml:"capture_delay_seconds"`
	SystemPrompt        string  `yaml:"system_prompt"`
	SeedVLMText         string  `yaml:"seed_vlm_text"`
	ChangeThreshold     float64 `yaml:"change_threshold"`
	ActionDelaySeconds  float64 `yaml:"action_delay_seconds"`
	ShowCursor          bool    `yaml:"show_cursor"`
}

// DefaultConfig returns the values a scenario starts from.
func DefaultConfig() Config {
	return Config{
		VLMEndpointURL:      "http://127.0.0.1:1235/v1/chat/completions",
		VLMModelName:        "qwen3-vl-2b",
		VLMTemperature:      0.6,
		VLMTopP:             0.85,
		VLMMaxTokens:        800,
		ServerHost:          "127.0.0.1",
		ServerPort:          1234,
		CaptureWidth:        640,
		CaptureHeight:       640,
		CaptureDelaySeconds: 3,
		ChangeThreshold:     0.01,
		ActionDelaySeconds:  0.3,
		ShowCursor:          true,
	}
}

// Validate checks the fields the engine cannot run without.
func (c Config) Validate() error {
	switch {
	case c.VLMEndpointURL == "":
		return errors.New("vlm_endpoint_url is required")
	case c.VLMModelName == "":
		return errors.New("vlm_model_name is required")
	case c.ServerHost == "":
		return errors.New("server_host is required")
	case c.ServerPort <= 0 || c.ServerPort > 65535:
		return fmt.Errorf("server_port %d out of range", c.ServerPort)
	case c.CaptureWidth <= 0 || c.CaptureHeight <= 0:
		return fmt.Errorf("capture size %dx%d must be positive", c.CaptureWidth, c.CaptureHeight)
	}
	if _, err := c.Region(); err != nil {
		return err
	}
	return nil
}

// Region parses CaptureRegion; empty means the whole display.
func (c Config) Region() (coords.Rect, error) {
	return coords.ParseRect(c.CaptureRegion)
}

// CaptureDelay is CaptureDelaySeconds as a duration.
func (c Config) CaptureDelay() time.Duration { return seconds(c.CaptureDelaySeconds) }

// ActionDelay is ActionDelaySeconds as a duration.
func (c Config) ActionDelay() time.Duration { return seconds(c.ActionDelaySeconds) }

func seconds(s float64) time.Duration {
	if s <= 0 {
		return 0
	}
	return time.Duration(s * float64(time.Second))
}

// ApplyYAML overlays the keys present in data onto c. Unknown keys are an
// error so typos do not pass silently.
func (c *Config) ApplyYAML(data []byte) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	next := *c
	if err := dec.Decode(&next); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("scenario overrides: %w", err)
	}
	*c = next
	return nil
}

// ApplyYAMLFile reads overrides from path.
func (c *Config) ApplyYAMLFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read scenario overrides: %w", err)
	}
	return c.ApplyYAML(data)
}
