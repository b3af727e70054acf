package team

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentrtkit/codexrt/runtime/codexerr"
	"github.com/agentrtkit/codexrt/runtime/config"
	"github.com/agentrtkit/codexrt/runtime/ids"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(config.NewLayout(t.TempDir()))
}

func TestCreateTeamRejectsDuplicateID(t *testing.T) {
	s := newTestStore(t)
	cfg := Config{TeamName: "t", LeadThreadID: "thread_lead"}
	require.NoError(t, s.CreateTeam("team_1", cfg, nil))

	err := s.CreateTeam("team_1", cfg, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestClaimTaskRejectsUnresolvedDependencies(t *testing.T) {
	s := newTestStore(t)
	cfg := Config{TeamName: "t", LeadThreadID: "thread_lead"}
	tasks := []Task{
		{ID: "a", Title: "first", State: TaskPending},
		{ID: "b", Title: "second", State: TaskPending, DependsOn: []string{"a"}},
	}
	require.NoError(t, s.CreateTeam("team_1", cfg, tasks))

	_, err := s.ClaimTask("team_1", "b", 1000)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unresolved dependencies")

	_, err = s.ClaimTask("team_1", "a", 1000)
	require.NoError(t, err)
	_, err = s.CompleteTask("team_1", "a", 1001)
	require.NoError(t, err)

	claimed, err := s.ClaimTask("team_1", "b", 1002)
	require.NoError(t, err)
	assert.Equal(t, TaskClaimed, claimed.State)
}

func TestClaimTaskRejectsDoubleClaim(t *testing.T) {
	s := newTestStore(t)
	cfg := Config{TeamName: "t", LeadThreadID: "thread_lead"}
	require.NoError(t, s.CreateTeam("team_1", cfg, []Task{{ID: "a", Title: "x", State: TaskPending}}))

	_, err := s.ClaimTask("team_1", "a", 1000)
	require.NoError(t, err)

	_, err = s.ClaimTask("team_1", "a", 1001)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already claimed")
}

func TestCompleteTaskRejectsAlreadyCompleted(t *testing.T) {
	s := newTestStore(t)
	cfg := Config{TeamName: "t", LeadThreadID: "thread_lead"}
	require.NoError(t, s.CreateTeam("team_1", cfg, []Task{{ID: "a", Title: "x", State: TaskPending}}))

	_, transitioned, err := s.CompleteTask("team_1", "a", 1000)
	require.NoError(t, err)
	assert.True(t, transitioned)

	_, _, err = s.CompleteTask("team_1", "a", 1001)
	require.Error(t, err)
	assert.Equal(t, codexerr.KindRespondToModel, codexerr.KindOf(err))
}

func TestCompleteTaskTransitionsExactlyOnceUnderConcurrency(t *testing.T) {
	s := newTestStore(t)
	cfg := Config{TeamName: "t", LeadThreadID: "thread_lead"}
	require.NoError(t, s.CreateTeam("team_1", cfg, []Task{{ID: "a", Title: "x", State: TaskPending}}))

	const n = 20
	var wg sync.WaitGroup
	var mu sync.Mutex
	transitions := 0
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, transitioned, _ := s.CompleteTask("team_1", "a", int64(1000+i))
			if transitioned {
				mu.Lock()
				transitions++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 1, transitions)
}

func TestClaimNextTaskFindsFirstEligiblePendingTaskForMember(t *testing.T) {
	s := newTestStore(t)
	cfg := Config{TeamName: "t", LeadThreadID: "thread_lead"}
	tasks := []Task{
		{ID: "a", Title: "x", State: TaskPending, Assignee: Assignee{Name: "alice"}},
		{ID: "b", Title: "y", State: TaskPending, Assignee: Assignee{Name: "bob"}},
	}
	require.NoError(t, s.CreateTeam("team_1", cfg, tasks))

	task, found, err := s.ClaimNextTask("team_1", "bob", 1000)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "b", task.ID)

	_, found, err = s.ClaimNextTask("team_1", "bob", 1001)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestInboxAppendPopAckRoundTrip(t *testing.T) {
	s := newTestStore(t)
	receiver := ids.ThreadID("thread_receiver")

	id1, err := s.AppendInboxEntry("team_1", InboxEntry{FromThreadID: "thread_a", ToThreadID: receiver, Prompt: "hello"}, 1000)
	require.NoError(t, err)
	id2, err := s.AppendInboxEntry("team_1", InboxEntry{FromThreadID: "thread_a", ToThreadID: receiver, Prompt: "world"}, 1001)
	require.NoError(t, err)
	assert.NotEqual(t, id1, id2)

	entries, token, err := s.PopInbox("team_1", receiver, 50)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.NotNil(t, token)
	assert.Equal(t, id2, token.UpToEntryID)

	require.NoError(t, s.AckInbox("team_1", receiver, *token))

	entries, _, err = s.PopInbox("team_1", receiver, 50)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestAckInboxRejectsMismatchedTeamOrThread(t *testing.T) {
	s := newTestStore(t)
	receiver := ids.ThreadID("thread_receiver")
	_, err := s.AppendInboxEntry("team_1", InboxEntry{FromThreadID: "thread_a", ToThreadID: receiver}, 1000)
	require.NoError(t, err)

	_, token, err := s.PopInbox("team_1", receiver, 50)
	require.NoError(t, err)

	wrongTeam := *token
	wrongTeam.TeamID = "team_2"
	err = s.AckInbox("team_1", receiver, wrongTeam)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "team_id mismatch")

	wrongThread := *token
	wrongThread.ThreadID = "thread_other"
	err = s.AckInbox("team_1", receiver, wrongThread)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "thread_id mismatch")
}

func TestInboxAppendsConcurrentlyProduceDistinctDurableEntries(t *testing.T) {
	s := newTestStore(t)
	receiver := ids.ThreadID("thread_receiver")

	const writers, perWriter = 5, 10
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWriter; j++ {
				_, err := s.AppendInboxEntry("team_1", InboxEntry{FromThreadID: "thread_a", ToThreadID: receiver, Prompt: "m"}, 1000)
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	entries, _, err := s.PopInbox("team_1", receiver, writers*perWriter)
	require.NoError(t, err)
	require.Len(t, entries, writers*perWriter)

	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		_, dup := seen[e.ID]
		assert.False(t, dup)
		seen[e.ID] = struct{}{}
	}
}
