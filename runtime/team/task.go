// Package team implements the C6 team registry, task store, and durable
// inbox: teams/<team_id>/config.json, tasks/<team_id>/<task_id>.json, and
// teams/<team_id>/inbox/<receiver_thread_id>.jsonl.
package team

import (
	"time"

	"github.com/agentrtkit/codexrt/runtime/ids"
)

// TaskState is a team task's lifecycle stage.
type TaskState string

const (
	TaskPending   TaskState = "pending"
	TaskClaimed   TaskState = "claimed"
	TaskCompleted TaskState = "completed"
)

// Assignee names the member a task belongs to.
type Assignee struct {
	Name     string       `json:"name"`
	ThreadID ids.ThreadID `json:"thread_id"`
}

// Task is one unit of work tracked under a team.
type Task struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Assignee  Assignee  `json:"assignee"`
	DependsOn []string  `json:"depends_on"`
	State     TaskState `json:"state"`
	UpdatedAt int64     `json:"updated_at"`
}

func (t *Task) touch(nowMillis int64) {
	t.UpdatedAt = nowMillis
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}
