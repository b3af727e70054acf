package config

import "path/filepath"

// Layout resolves the on-disk paths rooted at a Config's CodexHome. Every
// path-building concern for persisted state (rollouts, team registries,
// task stores, worktree leases, role overrides) goes through here so the
// directory structure is defined in exactly one place.
type Layout struct {
	root string
}

// NewLayout constructs a Layout rooted at codexHome.
func NewLayout(codexHome string) Layout { return Layout{root: codexHome} }

// Root returns CodexHome itself.
func (l Layout) Root() string { return l.root }

// RolloutPath returns where a thread's rollout (its persisted transcript
// and turn history) is stored.
func (l Layout) RolloutPath(threadID string) string {
	return filepath.Join(l.root, "rollouts", threadID+".jsonl")
}

// RoleOverridePath returns where a named agent role's TOML override file
// lives, loaded by spawn_agent when agent_type is given.
func (l Layout) RoleOverridePath(role string) string {
	return filepath.Join(l.root, "agents", role+".toml")
}

// TeamDir returns the directory holding a team's registry entry.
func (l Layout) TeamDir(teamID string) string {
	return filepath.Join(l.root, "teams", teamID)
}

// TeamConfigPath returns where a team's {team_name, lead_thread_id,
// members} document is persisted.
func (l Layout) TeamConfigPath(teamID string) string {
	return filepath.Join(l.TeamDir(teamID), "config.json")
}

// TeamInboxDir returns the directory holding one JSONL inbox file per
// receiver thread for a team.
func (l Layout) TeamInboxDir(teamID string) string {
	return filepath.Join(l.TeamDir(teamID), "inbox")
}

// TeamInboxPath returns a single receiver's inbox file path.
func (l Layout) TeamInboxPath(teamID, receiverThreadID string) string {
	return filepath.Join(l.TeamInboxDir(teamID), receiverThreadID+".jsonl")
}

// TaskDir returns the directory holding a team's task documents.
func (l Layout) TaskDir(teamID string) string {
	return filepath.Join(l.root, "tasks", teamID)
}

// TaskPath returns a single task's document path.
func (l Layout) TaskPath(teamID, taskID string) string {
	return filepath.Join(l.TaskDir(teamID), taskID+".json")
}

// WorktreeLeaseDir returns the directory under which a lead thread's
// worktree leases are allocated, one uuid-named subdirectory per lease.
func (l Layout) WorktreeLeaseDir(leadThreadID string) string {
	return filepath.Join(l.root, "worktrees", leadThreadID)
}

// WorktreePath returns a single worktree lease's checkout path.
func (l Layout) WorktreePath(leadThreadID, leaseID string) string {
	return filepath.Join(l.WorktreeLeaseDir(leadThreadID), leaseID)
}
