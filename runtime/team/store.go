package team

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"github.com/gofrs/flock"

	"github.com/agentrtkit/codexrt/runtime/codexerr"
	"github.com/agentrtkit/codexrt/runtime/config"
)

// Store persists team config, task, and inbox documents under a codex
// home directory, per spec §"Team"/"Team task"/"Inbox entry" on-disk
// layout. All mutating operations on one team's tasks are serialized by a
// per-team file lock, so claim/complete races between threads resolve the
// same way they would resolve between processes.
type Store struct {
	layout config.Layout
}

// NewStore constructs a Store rooted at layout.
func NewStore(layout config.Layout) *Store {
	return &Store{layout: layout}
}

// taskLock builds a fresh *flock.Flock over teamID's lock file. flock's
// Lock only blocks callers on distinct instances contending for the same
// path; a cached instance shared across goroutines would let a second
// in-process Lock call succeed immediately instead of waiting, so every
// call gets its own instance (matching inbox.go's per-call flock.New).
func (s *Store) taskLock(teamID string) (*flock.Flock, error) {
	dir := s.layout.TaskDir(teamID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, codexerr.Fatal("team: create task dir: %v", err)
	}
	return flock.New(filepath.Join(dir, ".lock")), nil
}

// withTaskLock runs fn while holding teamID's exclusive task-store lock.
func (s *Store) withTaskLock(teamID string, fn func() error) error {
	l, err := s.taskLock(teamID)
	if err != nil {
		return err
	}
	if err := l.Lock(); err != nil {
		return codexerr.Fatal("team: lock task store: %v", err)
	}
	defer l.Unlock()
	return fn()
}

// CreateTeam persists a new team config and one pending task per member.
// It fails if team_id already exists.
func (s *Store) CreateTeam(teamID string, cfg Config, tasks []Task) error {
	cfgPath := s.layout.TeamConfigPath(teamID)
	if _, err := os.Stat(cfgPath); err == nil {
		return codexerr.RespondToModel("team `%s` already exists", teamID)
	}

	if err := saveConfig(cfgPath, cfg); err != nil {
		return err
	}

	taskDir := s.layout.TaskDir(teamID)
	if err := os.MkdirAll(taskDir, 0o755); err != nil {
		return codexerr.Fatal("team: create task dir: %v", err)
	}
	for _, t := range tasks {
		if err := s.writeTask(teamID, t); err != nil {
			return err
		}
	}
	return nil
}

// LoadTeam returns the persisted config for teamID.
func (s *Store) LoadTeam(teamID string) (Config, error) {
	return loadConfig(teamID, s.layout.TeamConfigPath(teamID))
}

// SaveTeam overwrites the persisted config for teamID.
func (s *Store) SaveTeam(teamID string, cfg Config) error {
	return saveConfig(s.layout.TeamConfigPath(teamID), cfg)
}

// RemoveTeam deletes a team's config/task/inbox directories entirely.
func (s *Store) RemoveTeam(teamID string) (removedConfig, removedTaskDir bool) {
	teamDir := s.layout.TeamDir(teamID)
	if err := os.RemoveAll(teamDir); err == nil {
		removedConfig = true
	}
	taskDir := s.layout.TaskDir(teamID)
	if err := os.RemoveAll(taskDir); err == nil {
		removedTaskDir = true
	}
	return removedConfig, removedTaskDir
}

// ForceWriteTaskForTest overwrites a task document directly, bypassing
// claim/complete transition rules. It exists so tests can set up
// dependency graphs (depends_on) without a dedicated mutation API, since
// spawn_team itself never wires cross-member dependencies.
func (s *Store) ForceWriteTaskForTest(teamID string, t Task) error {
	return s.writeTask(teamID, t)
}

func (s *Store) writeTask(teamID string, t Task) error {
	path := s.layout.TaskPath(teamID, t.ID)
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return codexerr.Fatal("team: marshal task: %v", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func (s *Store) readTask(teamID, taskID string) (Task, error) {
	path := s.layout.TaskPath(teamID, taskID)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Task{}, codexerr.RespondToModel("task `%s` not found", taskID)
		}
		return Task{}, codexerr.Fatal("team: read task: %v", err)
	}
	var t Task
	if err := json.Unmarshal(data, &t); err != nil {
		return Task{}, codexerr.Fatal("team: parse task: %v", err)
	}
	return t, nil
}

// ListTasks returns every task document for teamID, sorted by file name.
func (s *Store) ListTasks(teamID string) ([]Task, error) {
	dir := s.layout.TaskDir(teamID)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, codexerr.Fatal("team: list tasks: %v", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".json" {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	tasks := make([]Task, 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			continue
		}
		var t Task
		if err := json.Unmarshal(data, &t); err != nil {
			continue
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

func (s *Store) dependenciesSatisfied(teamID string, t Task) bool {
	for _, dep := range t.DependsOn {
		depTask, err := s.readTask(teamID, dep)
		if err != nil || depTask.State != TaskCompleted {
			return false
		}
	}
	return true
}

// ClaimTask transitions task_id from pending to claimed, serialized under
// the team's task-store lock.
func (s *Store) ClaimTask(teamID, taskID string, now int64) (Task, error) {
	var result Task
	err := s.withTaskLock(teamID, func() error {
		t, err := s.readTask(teamID, taskID)
		if err != nil {
			return err
		}
		switch t.State {
		case TaskClaimed:
			return codexerr.RespondToModel("task `%s` already claimed", taskID)
		case TaskCompleted:
			return codexerr.RespondToModel("task `%s` is already completed", taskID)
		}
		if !s.dependenciesSatisfied(teamID, t) {
			return codexerr.RespondToModel("task `%s` has unresolved dependencies", taskID)
		}
		t.State = TaskClaimed
		t.touch(now)
		if err := s.writeTask(teamID, t); err != nil {
			return err
		}
		result = t
		return nil
	})
	return result, err
}

// ClaimNextTask finds the first pending task assigned to memberName whose
// dependencies are satisfied, claims it, and returns it. found=false when
// no eligible task exists.
func (s *Store) ClaimNextTask(teamID, memberName string, now int64) (task Task, found bool, err error) {
	err = s.withTaskLock(teamID, func() error {
		tasks, lerr := s.ListTasks(teamID)
		if lerr != nil {
			return lerr
		}
		for _, t := range tasks {
			if t.State != TaskPending || t.Assignee.Name != memberName {
				continue
			}
			if !s.dependenciesSatisfied(teamID, t) {
				continue
			}
			t.State = TaskClaimed
			t.touch(now)
			if werr := s.writeTask(teamID, t); werr != nil {
				return werr
			}
			task = t
			found = true
			return nil
		}
		return nil
	})
	return task, found, err
}

// CompleteTask transitions task_id from pending|claimed to completed,
// returning whether this call performed the transition (so the caller
// fires the task-completion hook exactly once even under concurrent
// callers racing to complete the same task).
func (s *Store) CompleteTask(teamID, taskID string, now int64) (task Task, transitioned bool, err error) {
	err = s.withTaskLock(teamID, func() error {
		t, rerr := s.readTask(teamID, taskID)
		if rerr != nil {
			return rerr
		}
		if t.State == TaskCompleted {
			return codexerr.RespondToModel("task `%s` is already completed", taskID)
		}
		t.State = TaskCompleted
		t.touch(now)
		if werr := s.writeTask(teamID, t); werr != nil {
			return werr
		}
		task = t
		transitioned = true
		return nil
	})
	return task, transitioned, err
}
