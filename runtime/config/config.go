// Package config loads the runtime's configuration: model/provider
// selection, multi-agent limits, and the on-disk layout rooted at
// CODEX_HOME. Values are read from a TOML file and overridable by
// environment variables, matching the layered precedence the teacher
// applies to its own provider configuration.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/agentrtkit/codexrt/runtime/codexerr"
)

// Config is the runtime's resolved configuration. It is immutable once
// loaded; a new Config is built per process, not mutated in place.
type Config struct {
	// CodexHome is the base directory for all persisted state: rollouts,
	// team registries, task stores, worktree leases, role overrides.
	CodexHome string

	// Model is the default model identifier passed to the provider.
	Model string
	// Provider selects the model provider backend ("anthropic").
	Provider string
	// Effort is the default reasoning effort hint ("low", "medium", "high").
	Effort string

	// AgentMaxThreads bounds the number of simultaneously non-shutdown
	// threads (top-level plus sub-agents) a runtime instance will hold.
	AgentMaxThreads int
	// AgentMaxDepth bounds how many spawn generations deep a sub-agent
	// chain may go before spawn_agent/resume_agent refuse to recurse
	// further.
	AgentMaxDepth int

	// WaitMinDeadline and WaitMaxDeadline clamp the deadline a caller may
	// request from the wait coordinator.
	WaitMinDeadline time.Duration
	WaitMaxDeadline time.Duration

	// StreamMaxRepairRetries bounds how many times the stream adapter
	// will re-prompt the model to repair a schema-constrained output
	// that failed validation.
	StreamMaxRepairRetries int
}

// fileConfig is the TOML-shaped configuration read from
// <codex_home>/config.toml. Any field left unset falls back to Default's
// value for that field.
type fileConfig struct {
	Model    string `toml:"model"`
	Provider string `toml:"provider"`
	Effort   string `toml:"effort"`

	AgentMaxThreads int `toml:"agent_max_threads"`
	AgentMaxDepth   int `toml:"agent_max_depth"`

	WaitMinDeadlineSeconds int `toml:"wait_min_deadline_seconds"`
	WaitMaxDeadlineSeconds int `toml:"wait_max_deadline_seconds"`

	StreamMaxRepairRetries int `toml:"stream_max_repair_retries"`
}

// KnownProviders is the catalog of model provider ids spawn_agent/
// spawn_team accept for their model_provider override. There is one
// provider wired into this runtime today (runtime/providers/anthropic);
// the catalog exists so a new provider package registers itself here
// rather than overrides silently passing through unchecked.
var KnownProviders = map[string]struct{}{
	"anthropic": {},
}

// ValidateModelProvider checks id against KnownProviders, per spec's
// "unknown provider id" error for spawn_agent/spawn_team's model_provider
// override. An empty id (no override requested) is always valid.
func ValidateModelProvider(id string) error {
	if id == "" {
		return nil
	}
	if _, ok := KnownProviders[id]; !ok {
		return codexerr.RespondToModel("model_provider `%s` not found", id)
	}
	return nil
}

// Default returns the configuration used when no config.toml is present
// and no environment overrides apply.
func Default() Config {
	return Config{
		CodexHome:              defaultCodexHome(),
		Model:                  "claude-sonnet-4-5",
		Provider:               "anthropic",
		Effort:                 "medium",
		AgentMaxThreads:        16,
		AgentMaxDepth:          4,
		WaitMinDeadline:        10 * time.Second,
		WaitMaxDeadline:        300 * time.Second,
		StreamMaxRepairRetries: 2,
	}
}

// Load resolves a Config by layering, in increasing precedence:
//  1. Default()
//  2. <codex_home>/config.toml, if present
//  3. CODEX_* environment variable overrides
//
// codexHome overrides CODEX_HOME when non-empty; otherwise CODEX_HOME (or
// the "~/.codex" fallback) is used.
func Load(codexHome string) (Config, error) {
	cfg := Default()
	if codexHome != "" {
		cfg.CodexHome = codexHome
	}

	path := filepath.Join(cfg.CodexHome, "config.toml")
	if data, err := os.ReadFile(path); err == nil {
		var fc fileConfig
		if _, err := toml.Decode(string(data), &fc); err != nil {
			return Config{}, codexerr.InvalidRequest("parse %s: %v", path, err)
		}
		applyFileConfig(&cfg, fc)
	} else if !os.IsNotExist(err) {
		return Config{}, codexerr.Wrap(codexerr.KindInvalidRequest, "read "+path, err)
	}

	applyEnvOverrides(&cfg)
	return cfg, nil
}

func applyFileConfig(cfg *Config, fc fileConfig) {
	if fc.Model != "" {
		cfg.Model = fc.Model
	}
	if fc.Provider != "" {
		cfg.Provider = fc.Provider
	}
	if fc.Effort != "" {
		cfg.Effort = fc.Effort
	}
	if fc.AgentMaxThreads > 0 {
		cfg.AgentMaxThreads = fc.AgentMaxThreads
	}
	if fc.AgentMaxDepth > 0 {
		cfg.AgentMaxDepth = fc.AgentMaxDepth
	}
	if fc.WaitMinDeadlineSeconds > 0 {
		cfg.WaitMinDeadline = time.Duration(fc.WaitMinDeadlineSeconds) * time.Second
	}
	if fc.WaitMaxDeadlineSeconds > 0 {
		cfg.WaitMaxDeadline = time.Duration(fc.WaitMaxDeadlineSeconds) * time.Second
	}
	if fc.StreamMaxRepairRetries > 0 {
		cfg.StreamMaxRepairRetries = fc.StreamMaxRepairRetries
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CODEX_MODEL"); v != "" {
		cfg.Model = v
	}
	if v := os.Getenv("CODEX_PROVIDER"); v != "" {
		cfg.Provider = v
	}
	if v := os.Getenv("CODEX_EFFORT"); v != "" {
		cfg.Effort = v
	}
}

func defaultCodexHome() string {
	if v := os.Getenv("CODEX_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".codex"
	}
	return filepath.Join(home, ".codex")
}
