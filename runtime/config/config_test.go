package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadAppliesFileOverridesOverDefaults(t *testing.T) {
	dir := t.TempDir()
	toml := "model = \"claude-opus-4\"\nagent_max_depth = 2\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(toml), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	require.Equal(t, "claude-opus-4", cfg.Model)
	require.Equal(t, 2, cfg.AgentMaxDepth)
	require.Equal(t, "anthropic", cfg.Provider, "unset fields keep their default")
}

func TestLoadMissingConfigFileUsesDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(dir)
	require.NoError(t, err)
	require.Equal(t, Default().Model, cfg.Model)
	require.Equal(t, dir, cfg.CodexHome)
}

func TestLoadRejectsMalformedToml(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte("not = [valid"), 0o644))

	_, err := Load(dir)
	require.Error(t, err)
}

func TestLoadEnvOverridesWinOverFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte("model = \"from-file\"\n"), 0o644))
	t.Setenv("CODEX_MODEL", "from-env")

	cfg, err := Load(dir)
	require.NoError(t, err)
	require.Equal(t, "from-env", cfg.Model)
}

func TestValidateModelProviderAcceptsKnownAndEmpty(t *testing.T) {
	require.NoError(t, ValidateModelProvider(""))
	require.NoError(t, ValidateModelProvider("anthropic"))
}

func TestValidateModelProviderRejectsUnknown(t *testing.T) {
	err := ValidateModelProvider("bedrock")
	require.Error(t, err)
	require.Equal(t, "model_provider `bedrock` not found", err.Error())
}

func TestLayoutPaths(t *testing.T) {
	l := NewLayout("/home/user/.codex")
	require.Equal(t, "/home/user/.codex/teams/t1/config.json", l.TeamConfigPath("t1"))
	require.Equal(t, "/home/user/.codex/tasks/t1/task1.json", l.TaskPath("t1", "task1"))
	require.Equal(t, "/home/user/.codex/teams/t1/inbox/thread1.jsonl", l.TeamInboxPath("t1", "thread1"))
	require.Equal(t, "/home/user/.codex/worktrees/lead1/lease1", l.WorktreePath("lead1", "lease1"))
	require.Equal(t, "/home/user/.codex/agents/reviewer.toml", l.RoleOverridePath("reviewer"))
}
