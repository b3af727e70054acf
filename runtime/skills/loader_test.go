package skills

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentrtkit/codexrt/runtime/hooks"
)

func writeSkill(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".md"), []byte(content), 0o644))
}

func TestLoadDirMergesHooksAcrossSkillFiles(t *testing.T) {
	dir := t.TempDir()
	writeSkill(t, dir, "reviewer", "---\nhooks:\n  PreToolUse:\n    - handler:\n        kind: command\n        command: \"echo reviewer\"\n---\n")
	writeSkill(t, dir, "tester", "---\nhooks:\n  PreToolUse:\n    - handler:\n        kind: command\n        command: \"echo tester\"\n---\n")
	writeSkill(t, dir, "notes", "# no frontmatter here\n")

	loaded, err := LoadDir(dir)
	require.NoError(t, err)
	assert.Len(t, loaded.ForEvent(hooks.EventPreToolUse), 2)
	assert.Empty(t, loaded.Warnings)
}

func TestLoadDirMissingDirIsEmptyNotError(t *testing.T) {
	loaded, err := LoadDir(filepath.Join(t.TempDir(), "does-not-exist"))
	require.NoError(t, err)
	assert.Empty(t, loaded.ByEvent)
}

func TestLoadDirWarnsOnUnknownEventButKeepsOtherSkills(t *testing.T) {
	dir := t.TempDir()
	writeSkill(t, dir, "broken", "---\nhooks:\n  NotARealEvent:\n    - handler:\n        kind: command\n        command: \"echo hi\"\n---\n")
	writeSkill(t, dir, "ok", "---\nhooks:\n  Stop:\n    - handler:\n        kind: command\n        command: \"echo stop\"\n---\n")

	loaded, err := LoadDir(dir)
	require.NoError(t, err)
	require.Len(t, loaded.Warnings, 1)
	assert.Len(t, loaded.ForEvent(hooks.EventStop), 1)
}

func TestWatchFiresOnChangeAfterDebounce(t *testing.T) {
	dir := t.TempDir()
	writeSkill(t, dir, "reviewer", "# placeholder\n")

	fired := make(chan struct{}, 1)
	w, err := Watch(dir, func() {
		select {
		case fired <- struct{}{}:
		default:
		}
	})
	require.NoError(t, err)
	defer w.Close()

	writeSkill(t, dir, "reviewer", "---\nhooks:\n  Stop:\n    - handler:\n        kind: command\n        command: \"echo stop\"\n---\n")

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("onChange was not invoked after file write")
	}
}
