// Package worktree implements the C8 worktree lease manager: isolated
// git worktrees created for agents/team members that request one and
// destroyed at close time.
package worktree

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/agentrtkit/codexrt/runtime/codexerr"
	"github.com/agentrtkit/codexrt/runtime/config"
	"github.com/agentrtkit/codexrt/runtime/ids"
)

// Lease is a single checked-out git worktree owned by one thread.
type Lease struct {
	OwnerThreadID ids.ThreadID
	Path          string
}

// Manager allocates and releases leases under a codex home's worktrees/
// directory, per spec §4.7.
type Manager struct {
	layout config.Layout
	runGit func(ctx context.Context, dir string, args ...string) error
}

// NewManager constructs a Manager rooted at layout.
func NewManager(layout config.Layout) *Manager {
	return &Manager{layout: layout, runGit: runGit}
}

// Acquire verifies cwd sits inside a git repository, allocates a fresh
// directory under worktrees/<leadThreadID>/<uuid>/, and runs `git worktree
// add` to populate it. On any failure after allocation the directory is
// removed before the error is returned.
func (m *Manager) Acquire(ctx context.Context, leadThreadID ids.ThreadID, ownerThreadID ids.ThreadID, cwd string) (Lease, error) {
	if err := verifyInsideGitRepo(ctx, cwd); err != nil {
		return Lease{}, codexerr.InvalidRequest("worktree=true requires running inside a git repository")
	}

	dir := m.layout.WorktreePath(leadThreadID.String(), uuid.NewString())
	if err := os.MkdirAll(filepath.Dir(dir), 0o755); err != nil {
		return Lease{}, codexerr.Fatal("worktree: create parent dir: %v", err)
	}

	if err := m.runGit(ctx, cwd, "worktree", "add", dir, "HEAD"); err != nil {
		_ = os.RemoveAll(dir)
		return Lease{}, codexerr.Fatal("worktree: git worktree add failed: %v", err)
	}

	return Lease{OwnerThreadID: ownerThreadID, Path: dir}, nil
}

// Release removes lease's directory. `git worktree remove --force` is
// attempted first (so the origin repo's worktree list stays accurate);
// an unconditional rm -rf follows regardless of that outcome. A directory
// that no longer exists is not an error.
func (m *Manager) Release(ctx context.Context, originCwd string, lease Lease) error {
	if lease.Path == "" {
		return nil
	}
	_ = m.runGit(ctx, originCwd, "worktree", "remove", "--force", lease.Path)
	if err := os.RemoveAll(lease.Path); err != nil {
		return codexerr.Fatal("worktree: rm -rf %s: %v", lease.Path, err)
	}
	return nil
}

func verifyInsideGitRepo(ctx context.Context, cwd string) error {
	cmd := exec.CommandContext(ctx, "git", "rev-parse", "--git-dir")
	cmd.Dir = cwd
	return cmd.Run()
}

func runGit(ctx context.Context, dir string, args ...string) error {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	return cmd.Run()
}
