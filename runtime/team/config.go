package team

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/agentrtkit/codexrt/runtime/codexerr"
	"github.com/agentrtkit/codexrt/runtime/ids"
)

// Member is one named participant in a team.
type Member struct {
	Name      string       `json:"name"`
	AgentID   ids.ThreadID `json:"agent_id"`
	AgentType string       `json:"agent_type,omitempty"`
}

// Config is the persisted team document at teams/<team_id>/config.json.
type Config struct {
	TeamName     string       `json:"team_name"`
	LeadThreadID ids.ThreadID `json:"lead_thread_id"`
	Members      []Member     `json:"members"`
}

// MemberByName returns the member named n, if present.
func (c Config) MemberByName(n string) (Member, bool) {
	for _, m := range c.Members {
		if m.Name == n {
			return m, true
		}
	}
	return Member{}, false
}

// IsMember reports whether threadID belongs to this team (lead or member).
func (c Config) IsMember(threadID ids.ThreadID) bool {
	if c.LeadThreadID == threadID {
		return true
	}
	for _, m := range c.Members {
		if m.AgentID == threadID {
			return true
		}
	}
	return false
}

func loadConfig(teamID, path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, codexerr.RespondToModel("team `%s` not found", teamID)
		}
		return Config{}, codexerr.Fatal("team: read config: %v", err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, codexerr.Fatal("team: parse config: %v", err)
	}
	return cfg, nil
}

func saveConfig(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return codexerr.Fatal("team: create team dir: %v", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return codexerr.Fatal("team: marshal config: %v", err)
	}
	return os.WriteFile(path, data, 0o644)
}
