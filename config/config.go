// Package config provides file configuration for livedeck.
//
// A config file tunes the provider and, for the standalone console mode,
// declares the watched targets. YAML files are parsed directly; files ending
// in .json or .jsonc may carry comments and trailing commas.
//
// Example configuration:
//
//	live_api_url: https://live.sooplive.co.kr/afreeca/player_live_api.php
//	player_url: https://play.sooplive.co.kr
//	request_timeout: 10s
//	inspect_port: 8787
//
//	targets:
//	  - name: Foo
//	    streamer_id: ${FOO_ID:-foo}
//	    fetch_interval: "3000"
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/jpalmerr/livedeck/host"
)

// Config is the root configuration structure.
//
// Use [Load], [Parse] or [ParseJSONC] to create a Config.
type Config struct {
	// LiveAPIURL is the liveness endpoint. Empty uses the SOOP default.
	// Supports environment variable substitution: ${VAR} or ${VAR:-default}
	LiveAPIURL string `yaml:"live_api_url"`

	// PlayerURL is the click-through base URL. Empty uses the SOOP default.
	PlayerURL string `yaml:"player_url"`

	// RequestTimeout bounds each liveness request. Zero leaves only the
	// transport timeouts in place.
	RequestTimeout Duration `yaml:"request_timeout"`

	// InspectPort enables the local inspect API when non-zero.
	InspectPort int `yaml:"inspect_port"`

	// Targets are the buttons shown in console mode.
	Targets []TargetConfig `yaml:"targets"`
}

// TargetConfig defines one watched streamer.
type TargetConfig struct {
	// Name labels the target in the console. Defaults to the streamer id.
	Name string `yaml:"name"`

	// StreamerID is the broadcaster id. Required.
	StreamerID string `yaml:"streamer_id"`

	// FetchInterval is the raw poll interval in milliseconds. It is kept
	// as text; the registry decides what it means.
	FetchInterval host.Interval `yaml:"fetch_interval"`
}

// Duration wraps time.Duration for YAML unmarshalling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
// Group 1: variable name
// Group 2: the ":-default" part (if present, indicates a default was specified)
// Group 3: the default value (may be empty for ${VAR:-})
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with environment values.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if firstErr != nil {
			return match
		}

		submatches := envVarPattern.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}

		varName := submatches[1]
		hasDefault := len(submatches) > 2 && submatches[2] != ""
		defaultVal := ""
		if hasDefault && len(submatches) > 3 {
			defaultVal = submatches[3]
		}

		value, exists := os.LookupEnv(varName)
		if !exists {
			if hasDefault {
				return defaultVal
			}
			firstErr = fmt.Errorf("environment variable %q is not set", varName)
			return match
		}
		return value
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// Load reads and parses a configuration file. Files ending in .json or
// .jsonc are parsed with [ParseJSONC], everything else with [Parse].
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		return ParseJSONC(data)
	default:
		return Parse(data)
	}
}

// Parse parses YAML configuration data.
//
// Environment variables are expanded in URLs and streamer ids.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := cfg.expandAndValidate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ParseJSONC parses JSON configuration data that may contain comments and
// trailing commas.
func ParseJSONC(data []byte) (*Config, error) {
	var cfg Config
	// JSON is a subset of YAML, so the YAML decoder and its unmarshalers
	// serve both formats once comments are stripped.
	if err := yaml.Unmarshal(jsonc.ToJSON(data), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	if err := cfg.expandAndValidate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// expandAndValidate expands environment variables and validates the config.
func (c *Config) expandAndValidate() error {
	var err error
	if c.LiveAPIURL, err = expandURL("live_api_url", c.LiveAPIURL); err != nil {
		return err
	}
	if c.PlayerURL, err = expandURL("player_url", c.PlayerURL); err != nil {
		return err
	}

	if c.RequestTimeout.Duration() < 0 {
		return fmt.Errorf("request_timeout cannot be negative, got %s", c.RequestTimeout.Duration())
	}

	if c.InspectPort < 0 || c.InspectPort > 65535 {
		return fmt.Errorf("inspect_port must be between 0 and 65535, got %d", c.InspectPort)
	}

	for i := range c.Targets {
		t := &c.Targets[i]

		expanded, err := expandEnvVars(t.StreamerID)
		if err != nil {
			return fmt.Errorf("targets[%d] (%s): streamer_id: %w", i, t.Name, err)
		}
		t.StreamerID = strings.TrimSpace(expanded)
		if t.StreamerID == "" {
			return fmt.Errorf("targets[%d] (%s): streamer_id is required", i, t.Name)
		}
		if t.Name == "" {
			t.Name = t.StreamerID
		}
	}

	return nil
}

// expandURL expands and checks an optional http(s) URL field.
func expandURL(field, raw string) (string, error) {
	if raw == "" {
		return "", nil
	}
	expanded, err := expandEnvVars(raw)
	if err != nil {
		return "", fmt.Errorf("%s: %w", field, err)
	}

	parsed, err := url.Parse(expanded)
	if err != nil {
		return "", fmt.Errorf("%s: invalid url: %w", field, err)
	}
	if parsed.Scheme == "" {
		return "", fmt.Errorf("%s: url must have a scheme (http:// or https://)", field)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("%s: url scheme must be http or https, got %q", field, parsed.Scheme)
	}
	return expanded, nil
}
