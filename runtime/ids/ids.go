// Package ids defines the opaque identifiers used across the runtime:
// thread, team, task, inbox-entry, and worktree-lease ids. All are backed
// by UUIDs. Thread, team, task and inbox-entry ids are distinct string
// types so the compiler catches accidental mixing (a ThreadID passed where
// a TaskID is expected, etc); worktree-lease ids are plain strings.
package ids

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ThreadID uniquely identifies a live or historical agent thread.
type ThreadID string

// TeamID uniquely identifies a team.
type TeamID string

// TaskID uniquely identifies a team task.
type TaskID string

// InboxEntryID uniquely identifies an inbox entry within a team member's inbox.
type InboxEntryID string

// ErrEmpty is returned when an id string fails to parse because it is empty.
var ErrEmpty = errors.New("ids: id must not be empty")

// NewThreadID generates a fresh, random ThreadID.
func NewThreadID() ThreadID { return ThreadID(fmt.Sprintf("thread_%s", uuid.NewString())) }

// NewTeamID generates a fresh, random TeamID.
func NewTeamID() TeamID { return TeamID(fmt.Sprintf("team_%s", uuid.NewString())) }

// NewTaskID generates a fresh, random TaskID.
func NewTaskID() TaskID { return TaskID(uuid.NewString()) }

// NewInboxEntryID generates a fresh, random InboxEntryID.
func NewInboxEntryID() InboxEntryID { return InboxEntryID(uuid.NewString()) }

// NewWorktreeID generates a fresh, random worktree-lease directory name.
func NewWorktreeID() string { return uuid.NewString() }

// ParseThreadID validates and returns id as a ThreadID.
func ParseThreadID(id string) (ThreadID, error) {
	if id == "" {
		return "", ErrEmpty
	}
	return ThreadID(id), nil
}

// String implements fmt.Stringer.
func (t ThreadID) String() string { return string(t) }

// String implements fmt.Stringer.
func (t TeamID) String() string { return string(t) }

// String implements fmt.Stringer.
func (t TaskID) String() string { return string(t) }

// String implements fmt.Stringer.
func (t InboxEntryID) String() string { return string(t) }
