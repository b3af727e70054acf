package multiagent

import (
	"context"
	"os"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentrtkit/codexrt/runtime/config"
	"github.com/agentrtkit/codexrt/runtime/team"
	"github.com/agentrtkit/codexrt/runtime/thread"
	"github.com/agentrtkit/codexrt/runtime/worktree"
)

// initGitRepo creates a throwaway git repository with one commit so
// `git worktree add` has a HEAD to branch from. Tests skip rather than
// fail if git isn't usable in the sandbox.
func initGitRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	env := append(os.Environ(),
		"GIT_AUTHOR_NAME=test", "GIT_AUTHOR_EMAIL=test@example.com",
		"GIT_COMMITTER_NAME=test", "GIT_COMMITTER_EMAIL=test@example.com",
	)
	run := func(args ...string) error {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		cmd.Env = env
		return cmd.Run()
	}
	if err := run("init"); err != nil {
		t.Skipf("git not available in this environment: %v", err)
	}
	if err := run("commit", "--allow-empty", "-m", "init"); err != nil {
		t.Skipf("git commit not available in this environment: %v", err)
	}
	return dir
}

func newLiveWorktreeCollab(t *testing.T) (*Collab, string) {
	t.Helper()
	home := t.TempDir()
	layout := config.NewLayout(home)
	mgr := thread.NewManager(10, 4, func() thread.TurnRunner { return fakeRunner{} }, layout)
	c := &Collab{
		Threads:   mgr,
		Teams:     team.NewStore(layout),
		Worktrees: worktree.NewManager(layout),
		Layout:    layout,
		MaxDepth:  4,
		Now:       func() int64 { return 1 },
	}
	return c, initGitRepo(t)
}

// TestCloseAgentReleasesWorktreeLeaseAcquiredAtSpawn covers spec §8's
// "Worktree cleanliness" invariant on the real tool-dispatch path: a
// close_agent call with no lease in hand (the only shape the Handler ever
// produces) must still release the lease spawn_agent acquired.
func TestCloseAgentReleasesWorktreeLeaseAcquiredAtSpawn(t *testing.T) {
	c, repo := newLiveWorktreeCollab(t)

	result, err := c.SpawnAgent(context.Background(), "thread_lead", rootSource(), SpawnAgentInput{
		UserInput: msg("go"), Worktree: true, SessionCwd: repo,
	})
	require.NoError(t, err)

	c.leasesMu.Lock()
	rec, tracked := c.leases[result.AgentID]
	c.leasesMu.Unlock()
	require.True(t, tracked, "lease must be tracked by agent id after spawn")
	require.DirExists(t, rec.lease.Path)

	_, err = c.CloseAgent(context.Background(), result.AgentID, nil, "")
	require.NoError(t, err)

	_, statErr := os.Stat(rec.lease.Path)
	assert.True(t, os.IsNotExist(statErr), "worktree directory must be removed on close")

	c.leasesMu.Lock()
	_, stillTracked := c.leases[result.AgentID]
	c.leasesMu.Unlock()
	assert.False(t, stillTracked, "lease entry must be removed once released")
}

// TestCloseTeamReleasesMemberWorktreeLeases covers the same invariant for
// close_team/team_cleanup: every member spawned with worktree: true must
// have its lease released when the team closes.
func TestCloseTeamReleasesMemberWorktreeLeases(t *testing.T) {
	c, repo := newLiveWorktreeCollab(t)

	res, err := c.SpawnTeam(context.Background(), "thread_lead", rootSource(), SpawnTeamInput{
		Members: []TeamMemberSpec{{Name: "worker", Task: "work", Worktree: true}},
		Cwd:     repo,
	})
	require.NoError(t, err)
	require.Len(t, res.Members, 1)
	memberID := res.Members[0].AgentID

	c.leasesMu.Lock()
	rec, tracked := c.leases[memberID]
	c.leasesMu.Unlock()
	require.True(t, tracked)
	require.DirExists(t, rec.lease.Path)

	cleanup, err := c.TeamCleanup(context.Background(), res.TeamID, repo)
	require.NoError(t, err)
	require.Len(t, cleanup.Closed, 1)
	assert.True(t, cleanup.Closed[0].OK)

	_, statErr := os.Stat(rec.lease.Path)
	assert.True(t, os.IsNotExist(statErr), "member worktree directory must be removed on team_cleanup")
}
