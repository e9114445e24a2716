// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads fincrew settings from defaults, YAML files, environment and overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes every environment override (FINCREW_LLM_PRIMARY_MODEL -> llm.primary.model).
const EnvPrefix = "FINCREW_"

type Config struct {
	Log       LogConfig       `koanf:"log"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	LLM       LLMConfig       `koanf:"llm"`
	Store     StoreConfig     `koanf:"store"`
	Pipeline  PipelineConfig  `koanf:"pipeline"`
	DataDir   string          `koanf:"data_dir"`
	// Profile is the overlay that was requested, if any. It is not read from files.
	Profile string `koanf:"-"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // json, text
}

type TelemetryConfig struct {
	Exporter     string `koanf:"exporter"` // stdout, otlp, none
	OTLPEndpoint string `koanf:"otlp_endpoint"`
	OTLPInsecure bool   `koanf:"otlp_insecure"`
	ServiceName  string `koanf:"service_name"`
}

// LLMConfig holds the two advice tiers and the provider behind the document analyzers.
type LLMConfig struct {
	Primary   ProviderConfig `koanf:"primary"`
	Secondary ProviderConfig `koanf:"secondary"`
	Analysis  ProviderConfig `koanf:"analysis"`
}

type ProviderConfig struct {
	Provider string `koanf:"provider"` // gemini, openai, anthropic, ollama, mock
	Model    string `koanf:"model"`
	BaseURL  string `koanf:"base_url"`
	APIKey   string `koanf:"api_key"`
}

type StoreConfig struct {
	Driver string `koanf:"driver"` // sqlite, memory
	DSN    string `koanf:"dsn"`
}

type PipelineConfig struct {
	// File is an optional YAML or JSON pipeline definition. Empty means the built-in pipeline.
	File string `koanf:"file"`
}

var defaults = map[string]any{
	"log.level":               "info",
	"log.format":              "text",
	"telemetry.exporter":      "none",
	"telemetry.otlp_endpoint": "localhost:4317",
	"telemetry.otlp_insecure": true,
	"telemetry.service_name":  "fincrew",
	"llm.primary.provider":    "gemini",
	"llm.primary.model":       "gemini-1.5-flash",
	"llm.primary.base_url":    "",
	"llm.primary.api_key":     "",
	"llm.secondary.provider":  "openai",
	"llm.secondary.model":     "deepseek-ai/deepseek-r1",
	"llm.secondary.base_url":  "https://integrate.api.nvidia.com/v1",
	"llm.secondary.api_key":   "",
	"llm.analysis.provider":   "openai",
	"llm.analysis.model":      "deepseek-ai/deepseek-r1",
	"llm.analysis.base_url":   "https://integrate.api.nvidia.com/v1",
	"llm.analysis.api_key":    "",
	"store.driver":            "sqlite",
	"store.dsn":               "file:fincrew.db",
	"pipeline.file":           "",
	"data_dir":                "data",
}

var (
	validProviders = map[string]bool{"gemini": true, "openai": true, "anthropic": true, "ollama": true, "mock": true}
	validDrivers   = map[string]bool{"sqlite": true, "memory": true}
	validExporters = map[string]bool{"stdout": true, "otlp": true, "none": true}
)

// Options controls where configuration is read from.
type Options struct {
	// Path is the main YAML file. Empty skips file loading.
	Path string
	// Profile overlays <name>.<profile>.<ext> next to Path when that file exists.
	Profile string
	// Overrides are key=value pairs applied last.
	Overrides []string
}

// Load reads defaults, the file at path (if any) and FINCREW_ environment variables.
func Load(path string) (*Config, error) {
	return LoadWithOptions(Options{Path: path})
}

// LoadWithProfile is Load plus a profile overlay.
func LoadWithProfile(path, profile string) (*Config, error) {
	return LoadWithOptions(Options{Path: path, Profile: profile})
}

// LoadWithOptions loads configuration in order: defaults, file, profile file, env, overrides.
// Every call uses its own koanf instance.
func LoadWithOptions(opts Options) (*Config, error) {
	k := koanf.New(".")
	for key, value := range defaults {
		if err := k.Set(key, value); err != nil {
			return nil, err
		}
	}

	profile := opts.Profile
	if profile == "" {
		profile = os.Getenv(EnvPrefix + "PROFILE")
	}
	if opts.Path != "" {
		if err := k.Load(file.Provider(opts.Path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config %s: %w", opts.Path, err)
		}
		if profilePath := ProfileConfigPath(opts.Path, profile); profilePath != "" {
			if _, err := os.Stat(profilePath); err == nil {
				if err := k.Load(file.Provider(profilePath), yaml.Parser()); err != nil {
					return nil, fmt.Errorf("load profile config %s: %w", profilePath, err)
				}
			}
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, err
	}

	for _, kv := range opts.Overrides {
		key, value, ok := strings.Cut(kv, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid override %q: want key=value", kv)
		}
		if err := k.Set(key, strings.TrimSpace(value)); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}
	cfg.Profile = profile
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ProfileConfigPath returns the overlay path for profile, or "" when profile is empty.
func ProfileConfigPath(path, profile string) string {
	if path == "" || profile == "" {
		return ""
	}
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "." + profile + ext
}

// envKey maps FINCREW_LLM_PRIMARY_API_KEY to llm.primary.api_key.
// Known keys are matched first so underscores inside key names survive.
func envKey(s string) string {
	raw := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	for key := range defaults {
		if strings.ReplaceAll(key, ".", "_") == raw {
			return key
		}
	}
	return strings.ReplaceAll(raw, "_", ".")
}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	for tier, p := range map[string]ProviderConfig{
		"primary":   c.LLM.Primary,
		"secondary": c.LLM.Secondary,
		"analysis":  c.LLM.Analysis,
	} {
		if !validProviders[p.Provider] {
			return fmt.Errorf("llm.%s.provider: unsupported provider %q", tier, p.Provider)
		}
	}
	if !validDrivers[c.Store.Driver] {
		return fmt.Errorf("store.driver: unsupported driver %q", c.Store.Driver)
	}
	if !validExporters[c.Telemetry.Exporter] {
		return fmt.Errorf("telemetry.exporter: unsupported exporter %q", c.Telemetry.Exporter)
	}
	return nil
}

// providerKeyEnv lists the conventional API key variables per provider.
var providerKeyEnv = map[string][]string{
	"gemini":    {"GEMINI_API_KEY", "GOOGLE_API_KEY"},
	"openai":    {"NVIDIA_API_KEY", "OPENAI_API_KEY"},
	"anthropic": {"ANTHROPIC_API_KEY"},
}

// ResolveAPIKey returns APIKey, or the first non-empty conventional variable for the provider.
func (p ProviderConfig) ResolveAPIKey() string {
	if p.APIKey != "" {
		return p.APIKey
	}
	for _, name := range providerKeyEnv[p.Provider] {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}
