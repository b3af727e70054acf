package config

import (
	"os"

	"github.com/BurntSushi/toml"

	"github.com/agentrtkit/codexrt/runtime/codexerr"
)

// RoleOverride is the parsed shape of <codex_home>/agents/<role>.toml.
// Its contents are opaque to the rest of the runtime beyond the few
// fields that override a spawned sub-agent's Config; an unrecognized
// role file still loads (unknown keys are ignored by toml.Decode), only
// a missing file is an error.
type RoleOverride struct {
	Model            string `toml:"model"`
	Provider         string `toml:"provider"`
	Effort           string `toml:"effort"`
	BaseInstructions string `toml:"base_instructions"`
}

// LoadRoleOverride reads and parses the role override file for role under
// layout. A missing file is reported as a RespondToModel error per
// spec's "unknown roles propagate a RespondToModel error from the role
// loader" rule, since role is caller-supplied (agent_type) and this is
// the only point that validates it.
func LoadRoleOverride(layout Layout, role string) (RoleOverride, error) {
	path := layout.RoleOverridePath(role)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return RoleOverride{}, codexerr.RespondToModel("unknown agent type %q", role)
		}
		return RoleOverride{}, codexerr.Wrap(codexerr.KindInvalidRequest, "read "+path, err)
	}
	var ro RoleOverride
	if _, err := toml.Decode(string(data), &ro); err != nil {
		return RoleOverride{}, codexerr.RespondToModel("agent type %q: parse role override: %v", role, err)
	}
	return ro, nil
}

// Apply layers a non-empty override field onto cfg, returning the
// resulting Config. cfg itself is left untouched.
func (ro RoleOverride) Apply(cfg Config) Config {
	if ro.Model != "" {
		cfg.Model = ro.Model
	}
	if ro.Provider != "" {
		cfg.Provider = ro.Provider
	}
	if ro.Effort != "" {
		cfg.Effort = ro.Effort
	}
	return cfg
}
